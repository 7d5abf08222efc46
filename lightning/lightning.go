// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package lightning is the public API for writing trainable models.
//
// A model embeds Module, registers its layers, and implements
// ConfigureOptimizers and TrainingStep. Everything else has a default that
// can be overridden by defining the method on the model:
//
//	type GAN struct {
//	    lightning.Module
//	    gen, disc *nn.Sequential
//	}
//
//	func (m *GAN) ConfigureOptimizers() ([]optim.Optimizer, error) {
//	    return []optim.Optimizer{
//	        optim.NewAdam(m.gen.Parameters(), optim.AdamConfig{}),
//	        optim.NewAdam(m.disc.Parameters(), optim.AdamConfig{}),
//	    }, nil
//	}
//
// With several optimizers the trainer calls ToggleOptimizer before each
// optimizer's step so that only that optimizer's parameters receive
// gradients, and UntoggleOptimizer afterwards.
package lightning

import (
	"github.com/born-ml/lightning/internal/lightning"
)

// Module is the base embedded by every model.
type Module = lightning.Module

// NewModule creates an empty Module. The zero value works as well.
func NewModule() *Module {
	return lightning.NewModule()
}

// Trainer is what a Module sees of the trainer it is attached to.
type Trainer = lightning.Trainer

// TrainingModule is the contract between a model and the trainer.
type TrainingModule = lightning.TrainingModule

// Optional hooks.
type (
	GradientClippingConfigurer = lightning.GradientClippingConfigurer
	OptimizerStepper           = lightning.OptimizerStepper
	TestStepper                = lightning.TestStepper
	PredictStepper             = lightning.PredictStepper
	TrainEpochEnder            = lightning.TrainEpochEnder
)

// Batch is one step's input and target.
type Batch = lightning.Batch

// StepOutput is returned by TrainingStep.
type StepOutput = lightning.StepOutput

// LoadResult lists unmatched keys of a state dict load.
type LoadResult = lightning.LoadResult

// ClipOption overrides a ClipGradients setting.
type ClipOption = lightning.ClipOption

// WithClipValue passes an explicit clip value to ClipGradients.
var WithClipValue = lightning.WithClipValue

// WithClipAlgorithm passes an explicit clip algorithm to ClipGradients.
var WithClipAlgorithm = lightning.WithClipAlgorithm

// ConfigError reports conflicting clip settings.
type ConfigError = lightning.ConfigError

// Errors.
var (
	ErrNotAttached       = lightning.ErrNotAttached
	ErrMisconfiguration  = lightning.ErrMisconfiguration
	ErrStateDictMismatch = lightning.ErrStateDictMismatch
)
