// Package nn implements the layers user models are built from.
//
// This package provides:
//   - Parameter: trainable tensor with a RequiresGrad flag
//   - Layer interface: Forward, Backward and Parameters
//   - Linear, ReLU and Sequential
//   - MSELoss with its gradient
//
// Layers cache their forward inputs and compute gradients in Backward. There
// is no tape: a model calls Backward on its layers in reverse order, which is
// what Sequential does.
package nn

import (
	"strconv"

	"github.com/born-ml/lightning/internal/tensor"
)

// Layer is the base interface for all neural network components.
type Layer interface {
	// Forward computes the output for input and caches what Backward needs.
	Forward(input *tensor.Tensor) *tensor.Tensor

	// Backward takes dLoss/dOutput of the most recent Forward, accumulates
	// parameter gradients and returns dLoss/dInput.
	Backward(gradOutput *tensor.Tensor) *tensor.Tensor

	// Parameters returns all trainable parameters, including nested ones.
	Parameters() []*Parameter
}

// Container is implemented by layers that hold other layers.
type Container interface {
	Layer
	Children() []Layer
}

// NamedParameter pairs a parameter with its dotted path inside a model.
type NamedParameter struct {
	Name  string
	Param *Parameter
}

// NamedParameters walks l and returns every parameter with a dotted path
// rooted at prefix. Container children are keyed by their index, so the
// second Linear of a Sequential registered as "layer_1" yields
// "layer_1.2.weight".
func NamedParameters(prefix string, l Layer) []NamedParameter {
	if c, ok := l.(Container); ok {
		var out []NamedParameter
		for i, child := range c.Children() {
			out = append(out, NamedParameters(join(prefix, strconv.Itoa(i)), child)...)
		}
		return out
	}

	params := l.Parameters()
	out := make([]NamedParameter, 0, len(params))
	for _, p := range params {
		out = append(out, NamedParameter{Name: join(prefix, p.Name()), Param: p})
	}
	return out
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
