package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Media backends.
const (
	MediaBackendLocal = "local"
	MediaBackendS3    = "s3"
)

// Config holds all configuration for the application.
type Config struct {
	NotionToken       string
	NotionLensesDBID  string
	NotionEntriesDBID string
	NotionBaseURL     string
	NotionVersion     string

	DatabaseURL     string
	SearchIndexPath string

	MediaBackend     string
	MediaDir         string
	MediaURLPrefix   string
	MediaS3Bucket    string
	MediaS3Region    string
	MediaS3Endpoint  string
	MediaS3KeyPrefix string
	MediaS3AccessKey string
	MediaS3SecretKey string

	AdminToken  string
	APIPort     string
	SyncTimeout time.Duration
	HTTPTimeout time.Duration
	SyncOnStart bool

	LogLevel  slog.Level
	LogFormat string
	LogFile   string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the values it can check
// without network access. Notion credentials are checked when a sync starts.
// If a .env file exists in the current directory or a parent, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		NotionToken:       getEnv("NOTION_TOKEN", ""),
		NotionLensesDBID:  getEnv("NOTION_LENSES_DB_ID", ""),
		NotionEntriesDBID: getEnv("NOTION_ENTRIES_DB_ID", ""),
		NotionBaseURL:     getEnv("NOTION_BASE_URL", "https://api.notion.com"),
		NotionVersion:     getEnv("NOTION_VERSION", "2025-09-03"),
		DatabaseURL:       getEnv("DATABASE_URL", "file:./data/lensgate.db"),
		SearchIndexPath:   getEnv("SEARCH_INDEX_PATH", "./data/search.bleve"),
		MediaBackend:      strings.ToLower(getEnv("MEDIA_BACKEND", MediaBackendLocal)),
		MediaDir:          getEnv("MEDIA_DIR", "./public/images"),
		MediaURLPrefix:    getEnv("MEDIA_URL_PREFIX", "/images/"),
		MediaS3Bucket:     getEnv("MEDIA_S3_BUCKET", ""),
		MediaS3Region:     getEnv("MEDIA_S3_REGION", ""),
		MediaS3Endpoint:   getEnv("MEDIA_S3_ENDPOINT", ""),
		MediaS3KeyPrefix:  getEnv("MEDIA_S3_KEY_PREFIX", "images"),
		MediaS3AccessKey:  getEnv("MEDIA_S3_ACCESS_KEY", ""),
		MediaS3SecretKey:  getEnv("MEDIA_S3_SECRET_KEY", ""),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		APIPort:           getEnv("API_PORT", "9000"),
		LogFormat:         strings.ToLower(getEnv("LOG_FORMAT", "text")),
		LogFile:           getEnv("LOG_FILE", ""),
	}

	var err error
	if cfg.SyncTimeout, err = getDuration("SYNC_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	syncOnStart := getEnv("SYNC_ON_START", "false")
	if cfg.SyncOnStart, err = strconv.ParseBool(syncOnStart); err != nil {
		return nil, fmt.Errorf("SYNC_ON_START must be a boolean: %w", err)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	port, err := strconv.Atoi(cfg.APIPort)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("API_PORT must be a valid port number, got %q", cfg.APIPort)
	}

	// Media is served by this process, so references must be local paths.
	if !strings.HasPrefix(cfg.MediaURLPrefix, "/") {
		return nil, fmt.Errorf("MEDIA_URL_PREFIX must be an absolute path like /images/, got %q", cfg.MediaURLPrefix)
	}

	switch cfg.MediaBackend {
	case MediaBackendLocal:
	case MediaBackendS3:
		if cfg.MediaS3Bucket == "" {
			return nil, fmt.Errorf("MEDIA_S3_BUCKET is required when MEDIA_BACKEND=s3")
		}
	default:
		return nil, fmt.Errorf("MEDIA_BACKEND must be local or s3, got %q", cfg.MediaBackend)
	}

	return cfg, nil
}

// loadDotEnv loads .env from the current directory, then from the nearest
// parent that has one. Values already in the environment are not overridden.
func loadDotEnv() {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}
