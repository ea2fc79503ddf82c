package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"lensgate/internal/config"
	"lensgate/internal/logging"
)

// cli carries state shared by subcommands once the root pre-run has loaded it.
type cli struct {
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "lensgate",
		Short: "Mirror Notion lenses and entries into a local store and serve them",
		Long: `lensgate pulls lenses and entries from two Notion data sources into a
local SQLite database, mirrors their images, and serves the published
content over a small JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg

			logger, closer := logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				File:   cfg.LogFile,
			})
			c.logCloser = closer
			slog.SetDefault(logger)
			slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logCloser != nil {
				_ = c.logCloser.Close()
			}
		},
	}

	root.AddCommand(newServeCmd(c), newSyncCmd(c))
	return root
}
