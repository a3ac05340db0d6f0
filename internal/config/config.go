// Package config holds the run configuration for the sync engine. The
// engine never reads configuration from the environment itself; a fully
// populated Config is passed into the orchestrator. Values come from
// built-in defaults, an optional TOML file, and CLI flag overrides, in
// that order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full configuration surface of one sync run.
type Config struct {
	// Object store
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	MasterPrefix string `toml:"master_prefix"`
	ChunkPrefix  string `toml:"chunk_prefix"`
	ImagePrefix  string `toml:"image_prefix"`
	AudioPrefix  string `toml:"audio_prefix"`

	// Source file store
	SourceRoot    string `toml:"source_root"`
	ProcessedRoot string `toml:"processed_root"`
	NameFilter    string `toml:"name_filter"`

	// Policy
	StalenessToleranceSec int     `toml:"staleness_tolerance_sec"`
	ChunkMaxChars         int     `toml:"chunk_max_chars"`
	ChunkMaxDurationSec   float64 `toml:"chunk_max_duration_sec"`

	// Execution
	Workers           int     `toml:"workers"`
	RetryMax          int     `toml:"retry_max"`
	RequestTimeoutSec int     `toml:"request_timeout_sec"`
	UploadsPerSecond  float64 `toml:"uploads_per_second"`
}

// Default returns the production defaults. The staleness tolerance and
// chunk bounds are policy constants inherited from the capture pipeline,
// not tuned values; override them freely.
func Default() Config {
	return Config{
		Bucket:                "tclip-raw-data-2025",
		Region:                "ap-northeast-1",
		MasterPrefix:          "rag/master_text/",
		ChunkPrefix:           "rag/vector_chunks/",
		ImagePrefix:           "rag/images/",
		AudioPrefix:           "rag/audio/",
		NameFilter:            "integrated",
		StalenessToleranceSec: 5,
		ChunkMaxChars:         800,
		ChunkMaxDurationSec:   60,
		Workers:               4,
		RetryMax:              3,
		RequestTimeoutSec:     30,
	}
}

// LoadFile reads a TOML config file over the defaults. Keys absent from
// the file keep their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket is required")
	}
	if c.SourceRoot == "" {
		return fmt.Errorf("source_root is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("retry_max must not be negative, got %d", c.RetryMax)
	}
	if c.StalenessToleranceSec < 0 {
		return fmt.Errorf("staleness_tolerance_sec must not be negative, got %d", c.StalenessToleranceSec)
	}
	return nil
}

// StalenessTolerance returns the tolerance as a duration.
func (c Config) StalenessTolerance() time.Duration {
	return time.Duration(c.StalenessToleranceSec) * time.Second
}

// RequestTimeout returns the per-call store timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}
