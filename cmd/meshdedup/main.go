// Package main is the entry point for meshdedup, which rewrites a place file
// so that duplicate meshes share one asset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/Faultbox/meshdedup/internal/config"
	"github.com/Faultbox/meshdedup/internal/logger"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	args := config.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Sugar.Debugf("Config: %+v", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := run(ctx, cfg, args[0], args[1])
	if err != nil {
		logger.Error("dedup failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	printReport(os.Stdout, report, args[1])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `meshdedup - point duplicate meshes in a place at one asset

Usage:
  meshdedup [flags] <input.yaml> <output.yaml>

Flags:
  -config <path>       Config file (default ./config.yaml)
  -cache <dir>         Asset cache directory
  -endpoint <url>      Asset URL template, {id} is replaced
  -concurrency <n>     Maximum concurrent downloads
  -rotation <name>     Duplicate rotation correction: none or maxima
  -gltf <path>         Also write a glTF preview of the result
  -debug               Enable debug logging`)
}
