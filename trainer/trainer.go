// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package trainer runs fit, test and predict loops over lightning models.
//
// Example:
//
//	cfg, err := trainer.LoadConfig("fit.yaml")
//	if err != nil {
//	    return err
//	}
//	tr, err := trainer.New(cfg, trainer.WithSlog(slog.Default()))
//	if err != nil {
//	    return err
//	}
//	if err := tr.Fit(ctx, model, trainer.SliceLoader(batches)); err != nil {
//	    return err
//	}
//	return tr.SaveCheckpoint("last.born")
package trainer

import (
	"github.com/born-ml/lightning/internal/trainer"
)

// Trainer orchestrates training.
type Trainer = trainer.Trainer

// Config configures a Trainer.
type Config = trainer.Config

// Option customizes a Trainer.
type Option = trainer.Option

// DataLoader yields the batches of an epoch.
type DataLoader = trainer.DataLoader

// SliceLoader serves in-memory batches.
type SliceLoader = trainer.SliceLoader

// ErrNoModel is returned by checkpoint operations before any model was used.
var ErrNoModel = trainer.ErrNoModel

// New creates a Trainer.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	return trainer.New(cfg, opts...)
}

// DefaultConfig returns the configuration used for zero Config fields.
func DefaultConfig() Config {
	return trainer.DefaultConfig()
}

// LoadConfig reads a Config from YAML.
func LoadConfig(path string) (Config, error) {
	return trainer.LoadConfig(path)
}

// Option constructors.
var (
	WithLogger = trainer.WithLogger
	WithSlog   = trainer.WithSlog
)
