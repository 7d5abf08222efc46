package nn

import (
	"github.com/born-ml/lightning/internal/tensor"
)

// Sequential is a container layer that chains multiple layers together.
//
// Example:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(32, 32, rng),
//	    nn.NewReLU(),
//	    nn.NewLinear(32, 2, rng),
//	)
type Sequential struct {
	layers []Layer
}

// NewSequential creates a new Sequential container.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{layers: layers}
}

// Forward applies all layers in order.
func (s *Sequential) Forward(input *tensor.Tensor) *tensor.Tensor {
	output := input
	for _, l := range s.layers {
		output = l.Forward(output)
	}
	return output
}

// Backward runs the layers' backward passes in reverse order.
func (s *Sequential) Backward(gradOutput *tensor.Tensor) *tensor.Tensor {
	grad := gradOutput
	for i := len(s.layers) - 1; i >= 0; i-- {
		grad = s.layers[i].Backward(grad)
	}
	return grad
}

// Parameters returns the parameters of every layer in order.
func (s *Sequential) Parameters() []*Parameter {
	var params []*Parameter
	for _, l := range s.layers {
		params = append(params, l.Parameters()...)
	}
	return params
}

// Children returns the contained layers.
func (s *Sequential) Children() []Layer {
	return s.layers
}

// At returns the i-th layer.
func (s *Sequential) At(i int) Layer {
	return s.layers[i]
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Add appends a layer to the sequence.
func (s *Sequential) Add(l Layer) {
	s.layers = append(s.layers, l)
}
