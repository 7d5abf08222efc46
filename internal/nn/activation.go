package nn

import "github.com/born-ml/lightning/internal/tensor"

// ReLU applies max(0, x) elementwise. It has no parameters.
type ReLU struct {
	mask []bool
}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies the activation.
func (r *ReLU) Forward(input *tensor.Tensor) *tensor.Tensor {
	out := input.Clone()
	data := out.Data()
	r.mask = make([]bool, len(data))
	for i, v := range data {
		if v > 0 {
			r.mask[i] = true
		} else {
			data[i] = 0
		}
	}
	return out
}

// Backward passes gradients through where the input was positive.
func (r *ReLU) Backward(gradOutput *tensor.Tensor) *tensor.Tensor {
	grad := gradOutput.Clone()
	data := grad.Data()
	for i := range data {
		if !r.mask[i] {
			data[i] = 0
		}
	}
	return grad
}

// Parameters returns nil.
func (r *ReLU) Parameters() []*Parameter {
	return nil
}
