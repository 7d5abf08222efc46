// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides layers with hand-written backward passes.
//
// Example:
//
//	rng := rand.New(rand.NewPCG(1, 2))
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, rng),
//	)
//	out := model.Forward(x)
//	loss, grad := nn.MSELoss(out, y)
//	model.Backward(grad)
package nn

import (
	"math/rand/v2"

	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/tensor"
)

// Layer is a differentiable building block.
type Layer = nn.Layer

// Container is a Layer made of other layers.
type Container = nn.Container

// Parameter is a trainable tensor with its gradient.
type Parameter = nn.Parameter

// NamedParameter pairs a parameter with its dotted path.
type NamedParameter = nn.NamedParameter

// NewParameter creates a parameter that requires gradients.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}

// NamedParameters lists the parameters of l under prefix.
func NamedParameters(prefix string, l Layer) []NamedParameter {
	return nn.NamedParameters(prefix, l)
}

// Linear is a fully connected layer.
type Linear = nn.Linear

// NewLinear creates a Linear layer with Xavier-initialized weights.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return nn.NewLinear(inFeatures, outFeatures, rng)
}

// ReLU is the rectified linear activation.
type ReLU = nn.ReLU

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return nn.NewReLU()
}

// Sequential chains layers.
type Sequential = nn.Sequential

// NewSequential creates a Sequential from layers.
func NewSequential(layers ...Layer) *Sequential {
	return nn.NewSequential(layers...)
}

// MSELoss returns the mean squared error and its gradient.
func MSELoss(predictions, targets *tensor.Tensor) (float32, *tensor.Tensor) {
	return nn.MSELoss(predictions, targets)
}
