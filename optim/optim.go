// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimizers and gradient clipping.
//
// Example:
//
//	opt := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//	model.Backward(grad)
//	optim.ClipGradNorm(model.Parameters(), 1.0)
//	opt.Step()
//	opt.ZeroGrad()
package optim

import (
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/optim"
)

// Optimizer updates a fixed set of parameters from their gradients.
type Optimizer = optim.Optimizer

// ParamGroup is a set of parameters sharing a learning rate.
type ParamGroup = optim.ParamGroup

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	return optim.NewSGD(params, config)
}

// Adam is the Adam optimizer with bias correction.
type Adam = optim.Adam

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	return optim.NewAdam(params, config)
}

// ClipAlgorithm selects how gradients are clipped.
type ClipAlgorithm = optim.ClipAlgorithm

// Clipping algorithms.
const (
	ClipNorm  ClipAlgorithm = optim.ClipNorm
	ClipValue ClipAlgorithm = optim.ClipValue
)

// ClipGradValue clamps every gradient element into [-clip, clip].
func ClipGradValue(params []*nn.Parameter, clip float64) {
	optim.ClipGradValue(params, clip)
}

// ClipGradNorm rescales gradients to a global L2 norm of at most maxNorm
// and returns the norm before clipping.
func ClipGradNorm(params []*nn.Parameter, maxNorm float64) float64 {
	return optim.ClipGradNorm(params, maxNorm)
}

// Params returns every parameter of opt in group order.
func Params(opt Optimizer) []*nn.Parameter {
	return optim.Params(opt)
}
