// Package config resolves pipeline configuration from the environment.
//
// A .env file in the working directory is honoured when present
// (godotenv), matching how the pipeline runs in CI and locally. Command
// line flags override anything loaded here.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Piyawat-Pienmak/data-quality-reconciliation-pipeline/internal/model"
)

// Config holds everything a pipeline invocation needs from the
// environment.
type Config struct {
	// DatabasePath is the SQLite database file.
	DatabasePath string

	// DataDir is where orders.csv and payments.csv live. Either a local
	// directory or an s3://bucket/prefix URL.
	DataDir string

	// TolerancePct is the relative tolerance for the amount metric as a
	// decimal fraction (0.01 = 1%). Default 0: exact match required.
	TolerancePct string

	// BuildSHA tags the run with its build provenance. GITHUB_SHA is
	// present in CI, usually empty locally.
	BuildSHA string

	// S3Region and S3Endpoint configure the S3 source when DataDir is an
	// s3:// URL. S3Endpoint supports MinIO/LocalStack.
	S3Region   string
	S3Endpoint string
}

// Load reads configuration from the environment, after loading .env if
// one exists. Missing variables fall back to defaults.
func Load() (Config, error) {
	// Missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		DatabasePath: envOr("DQ_DATABASE", "dqpipe.db"),
		DataDir:      envOr("DATA_DIR", "data"),
		TolerancePct: envOr("TOLERANCE_PCT", "0"),
		BuildSHA:     os.Getenv("GITHUB_SHA"),
		S3Region:     os.Getenv("AWS_REGION"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the parts of the configuration that can fail late and
// confusingly if left unchecked.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if _, err := model.ParseDecimal(c.TolerancePct); err != nil {
		return fmt.Errorf("invalid tolerance: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
