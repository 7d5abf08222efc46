// Package main provides the lightning CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/trainer"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("lightning %s\n", version)
	case "fit":
		err = runFit(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("lightning - training loops for Go models")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  fit        Train the demo two-optimizer model")
}

func runFit(args []string) error {
	fs := flag.NewFlagSet("fit", flag.ExitOnError)
	configPath := fs.String("config", "", "trainer config (YAML)")
	numBatches := fs.Int("batches", 32, "number of training batches")
	seed := fs.Uint64("seed", 1, "random seed")
	checkpoint := fs.String("checkpoint", "", "checkpoint path (default: <log dir>/checkpoints/last.born)")
	resume := fs.String("resume", "", "checkpoint to resume from")
	verbose := fs.Bool("v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var cfg trainer.Config
	if *configPath != "" {
		var err error
		if cfg, err = trainer.LoadConfig(*configPath); err != nil {
			return err
		}
	}

	csvLogger, err := loggers.NewCSVLogger(loggers.CSVConfig{RootDir: cfg.DefaultRootDir})
	if err != nil {
		return err
	}
	tr, err := trainer.New(cfg, trainer.WithLogger(csvLogger), trainer.WithSlog(log))
	if err != nil {
		return err
	}

	model := newDemoModel(*seed)
	if *resume != "" {
		if _, err := tr.LoadCheckpoint(model, *resume, true); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := tr.Fit(ctx, model, demoData(*numBatches, *seed)); err != nil {
		return err
	}

	path := *checkpoint
	if path == "" {
		dir := filepath.Join(csvLogger.LogDir(), "checkpoints")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create checkpoint dir: %w", err)
		}
		path = filepath.Join(dir, "last.born")
	}
	if err := tr.SaveCheckpoint(path); err != nil {
		return err
	}

	fmt.Printf("run %s finished: epoch=%d step=%d logs=%s checkpoint=%s\n",
		tr.RunID(), tr.CurrentEpoch(), tr.GlobalStep(), csvLogger.LogDir(), path)
	return nil
}
