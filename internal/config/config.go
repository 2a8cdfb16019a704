// Package config loads the service configuration from built-in defaults, an
// optional TOML file, and SORTGATE_* environment variables, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// FileEnv names the environment variable that points at the TOML file.
const FileEnv = "SORTGATE_CONFIG"

// Names of the documents kept in StateDir.
const (
	SnapshotFile = "cache.json"
	PendingFile  = "pending_posts.json"
)

type Config struct {
	DatabaseURL    string        `toml:"database_url" env:"SORTGATE_DATABASE_URL" validate:"required"`
	DatabaseDriver string        `toml:"database_driver" env:"SORTGATE_DATABASE_DRIVER" validate:"oneof=postgres pgx mysql"`
	HTTPAddr       string        `toml:"http_addr" env:"SORTGATE_HTTP_ADDR" validate:"hostport"`
	GRPCAddr       string        `toml:"grpc_addr" env:"SORTGATE_GRPC_ADDR" validate:"hostport_or_empty"` // empty disables gRPC
	StateDir       string        `toml:"state_dir" env:"SORTGATE_STATE_DIR" validate:"required"`
	StoreTimeout   time.Duration `toml:"store_timeout" env:"SORTGATE_STORE_TIMEOUT" validate:"gt=0"`
	SyncTimeout    time.Duration `toml:"sync_timeout" env:"SORTGATE_SYNC_TIMEOUT" validate:"gt=0"`
	NATSURL        string        `toml:"nats_url" env:"SORTGATE_NATS_URL"` // empty = no events
	LogLevel       string        `toml:"log_level" env:"SORTGATE_LOG_LEVEL" validate:"oneof=debug info warn error"`

	// Upstream table names
	ItemsTable         string `toml:"items_table" env:"SORTGATE_TABLE_ITEMS" validate:"required"`
	TrashBinsTable     string `toml:"trashbins_table" env:"SORTGATE_TABLE_TRASHBINS" validate:"required"`
	TrashBinItemsTable string `toml:"trashbin_items_table" env:"SORTGATE_TABLE_TRASHBIN_ITEMS" validate:"required"`
	SelectionsTable    string `toml:"selections_table" env:"SORTGATE_TABLE_SELECTIONS" validate:"required"`

	// Export settings
	ExportInterval   time.Duration `toml:"export_interval" env:"SORTGATE_EXPORT_INTERVAL" validate:"gte=0"` // 0 = disabled
	ExportS3Bucket   string        `toml:"export_s3_bucket" env:"SORTGATE_EXPORT_S3_BUCKET"`
	ExportS3Endpoint string        `toml:"export_s3_endpoint" env:"SORTGATE_EXPORT_S3_ENDPOINT"` // custom endpoint for MinIO
	ExportS3Region   string        `toml:"export_s3_region" env:"SORTGATE_EXPORT_S3_REGION" validate:"required_with=ExportS3Bucket"`
	ExportS3Key      string        `toml:"export_s3_key" env:"SORTGATE_EXPORT_S3_KEY" validate:"required_with=ExportS3Bucket"`
}

// Default returns the built-in configuration. DatabaseURL has no default.
func Default() *Config {
	return &Config{
		DatabaseDriver:     "postgres",
		HTTPAddr:           ":8080",
		GRPCAddr:           ":9090",
		StateDir:           ".",
		StoreTimeout:       3 * time.Second,
		SyncTimeout:        30 * time.Second,
		LogLevel:           "info",
		ItemsTable:         "items",
		TrashBinsTable:     "trashBins",
		TrashBinItemsTable: "trashBinItems",
		SelectionsTable:    "selected_at_location",
		ExportS3Region:     "us-east-1",
		ExportS3Key:        "sortgate/state.jsonl",
	}
}

// Load builds the configuration from defaults, the file named by
// SORTGATE_CONFIG (if set), and the process environment.
func Load() (*Config, error) {
	return load(os.Getenv(FileEnv), os.Environ())
}

func load(path string, environ []string) (*Config, error) {
	c := Default()
	if path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.ParseWithOptions(c, env.Options{Environment: nonEmpty(environ)}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// nonEmpty turns KEY=VALUE pairs into a map, dropping empty values so that
// an empty variable means "unset".
func nonEmpty(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && v != "" {
			m[k] = v
		}
	}
	return m
}

// applyFile decodes the TOML file over c. Keys absent from the file keep
// their current value; durations are strings such as "3s" or "5m".
func (c *Config) applyFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// SnapshotPath is the location of the snapshot document.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.StateDir, SnapshotFile)
}

// PendingPath is the location of the pending queue document.
func (c *Config) PendingPath() string {
	return filepath.Join(c.StateDir, PendingFile)
}

// SlogLevel converts LogLevel for slog.HandlerOptions.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
