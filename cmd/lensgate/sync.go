package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"lensgate/internal/handlers"
	"lensgate/internal/service"
)

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and print its summary",
		Long: `Pull changed lenses and entries from Notion, mirror their images and
commit them to the local store. The first run, or a run against an empty
sync state, is a full pass and demotes records that disappeared upstream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = a.Close()
			}()

			summary, err := a.sync.Sync(ctx)
			if err != nil {
				enc := json.NewEncoder(cmd.ErrOrStderr())
				_ = enc.Encode(handlers.ErrorResponse{Error: service.ErrorCode(err)})
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}
}
