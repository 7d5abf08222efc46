// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loggers provides experiment loggers for the trainer.
package loggers

import (
	"github.com/born-ml/lightning/internal/loggers"
)

// Logger receives metrics and hyperparameters.
type Logger = loggers.Logger

// Record is one LogMetrics call.
type Record = loggers.Record

// CSVLogger writes metrics.csv and hparams.yaml under a versioned directory.
type CSVLogger = loggers.CSVLogger

// CSVConfig configures a CSVLogger.
type CSVConfig = loggers.CSVConfig

// MemoryLogger keeps everything in memory.
type MemoryLogger = loggers.MemoryLogger

// ErrFinalized is returned when logging after Finalize.
var ErrFinalized = loggers.ErrFinalized

// NewCSVLogger creates the run directory and returns a CSVLogger.
func NewCSVLogger(cfg CSVConfig) (*CSVLogger, error) {
	return loggers.NewCSVLogger(cfg)
}

// NewMemoryLogger creates an in-memory logger.
func NewMemoryLogger(name, version string) *MemoryLogger {
	return loggers.NewMemoryLogger(name, version)
}
