// Command kvs is the command-line driver for the embedded key-value store.
// It opens the engine against the configured data directory (the current
// working directory unless kvs.yml sets data_dir) and runs
// exactly one subcommand per invocation: set, get, or rm.
package main

import (
	"log/slog"
	"os"

	"github.com/nandanvikas/kvs/internal/cli"
	"github.com/nandanvikas/kvs/internal/config"
	"github.com/nandanvikas/kvs/internal/engine"
)

func main() {
	os.Exit(run())
}

func run() int {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("main: failed to load configuration", "error", err)
		return 1
	}

	kv, err := engine.Open(cfg.DataDir, cfg.EngineOptions())
	if err != nil {
		slog.Error("main: failed to open engine", "error", err)
		return 1
	}
	defer func() {
		if err := kv.Close(); err != nil {
			slog.Error("main: error closing engine", "error", err)
		}
	}()

	return cli.NewHandler(kv, os.Stdout, os.Stderr).Run(os.Args[1:])
}
