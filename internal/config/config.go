// Package config provides configuration management for the key-value
// store. It loads settings from an optional YAML file and optional .env
// overrides, the way the teacher's config package does, but falls back to
// sensible defaults when no config file exists: the CLI opens against
// whatever directory the caller is standing in, and there is no guarantee a
// kvs.yml lives there.
package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/nandanvikas/kvs/internal/engine"
)

// FileName is the name of the optional YAML config file, looked up in the
// current working directory.
const FileName = "kvs.yml"

// Config holds every knob the engine exposes beyond the spec's fixed
// defaults.
type Config struct {
	DataDir          string `yaml:"data_dir"`
	Safe             bool   `yaml:"safe"`
	CompactThreshold uint64 `yaml:"compact_threshold"`
	LockFile         bool   `yaml:"lock_file"`
}

// Default returns the configuration used when no kvs.yml is present: store
// in the current directory, unsynced writes, the spec's default compaction
// threshold, and the advisory lock enabled.
func Default() *Config {
	return &Config{
		DataDir:          ".",
		Safe:             false,
		CompactThreshold: engine.DefaultCompactThreshold,
		LockFile:         true,
	}
}

// Load reads FileName from the current directory if present, applying a
// .env overlay first (also optional), and returns the result merged over
// Default(). A missing kvs.yml is not an error; a malformed one is.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file found", "error", err)
	}

	cfg := Default()

	data, err := os.ReadFile(FileName)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Debug("config: no kvs.yml found, using defaults")
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, err
	}

	slog.Debug("config: loaded kvs.yml",
		"data_dir", cfg.DataDir,
		"safe", cfg.Safe,
		"compact_threshold", cfg.CompactThreshold,
		"lock_file", cfg.LockFile,
	)
	return cfg, nil
}

// EngineOptions adapts Config to engine.Options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Safe:             c.Safe,
		CompactThreshold: c.CompactThreshold,
		LockDir:          c.LockFile,
	}
}
