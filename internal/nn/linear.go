package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/lightning/internal/parallel"
	"github.com/born-ml/lightning/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter
	bias        *Parameter
	input       *tensor.Tensor
	par         parallel.Config
}

// NewLinear creates a new Linear layer drawing its weights from rng.
func NewLinear(inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, rng)),
		bias:        NewParameter("bias", tensor.Zeros(tensor.Shape{outFeatures})),
		par:         parallel.DefaultConfig(),
	}
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int { return l.inFeatures }

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int { return l.outFeatures }

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter { return l.weight }

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter { return l.bias }

// Parameters returns the weight and bias.
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Forward computes y = x @ W.T + b.
//
// Panics if the input is not [batch_size, in_features] or lives on a
// different device than the weights.
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	shape := input.Shape()
	if len(shape) != 2 || shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear: expected input [batch, %d], got %v", l.inFeatures, shape))
	}
	if input.Device() != l.weight.Device() {
		panic(fmt.Sprintf("Linear: input on %s but weights on %s", input.Device(), l.weight.Device()))
	}

	batch := shape[0]
	out, err := tensor.New(tensor.Shape{batch, l.outFeatures}, input.Device())
	if err != nil {
		panic(err)
	}

	x := input.Data()
	w := l.weight.Tensor().Data()
	b := l.bias.Tensor().Data()
	y := out.Data()

	parallel.ForRange(batch, func(lo, hi int) {
		for n := lo; n < hi; n++ {
			row := x[n*l.inFeatures : (n+1)*l.inFeatures]
			for o := range l.outFeatures {
				wr := w[o*l.inFeatures : (o+1)*l.inFeatures]
				sum := b[o]
				for i, v := range row {
					sum += v * wr[i]
				}
				y[n*l.outFeatures+o] = sum
			}
		}
	}, l.par)

	l.input = input
	return out
}

// Backward accumulates dW = g.T @ x and db = sum(g) into the parameters
// that require gradients and returns dx = g @ W.
func (l *Linear) Backward(gradOutput *tensor.Tensor) *tensor.Tensor {
	if l.input == nil {
		panic("Linear: Backward called before Forward")
	}
	batch := l.input.Shape()[0]
	if !gradOutput.Shape().Equal(tensor.Shape{batch, l.outFeatures}) {
		panic(fmt.Sprintf("Linear: expected gradient [%d, %d], got %v", batch, l.outFeatures, gradOutput.Shape()))
	}

	x := l.input.Data()
	g := gradOutput.Data()
	w := l.weight.Tensor().Data()

	if l.weight.RequiresGrad() {
		dw := tensor.Zeros(l.weight.Tensor().Shape())
		dwd := dw.Data()
		parallel.ForRange(l.outFeatures, func(lo, hi int) {
			for o := lo; o < hi; o++ {
				for n := range batch {
					gv := g[n*l.outFeatures+o]
					for i := range l.inFeatures {
						dwd[o*l.inFeatures+i] += gv * x[n*l.inFeatures+i]
					}
				}
			}
		}, l.par)
		l.weight.AccumulateGrad(dw)
	}

	if l.bias.RequiresGrad() {
		db := tensor.Zeros(l.bias.Tensor().Shape())
		dbd := db.Data()
		for n := range batch {
			for o := range l.outFeatures {
				dbd[o] += g[n*l.outFeatures+o]
			}
		}
		l.bias.AccumulateGrad(db)
	}

	dx, err := tensor.New(tensor.Shape{batch, l.inFeatures}, l.input.Device())
	if err != nil {
		panic(err)
	}
	dxd := dx.Data()
	parallel.ForRange(batch, func(lo, hi int) {
		for n := lo; n < hi; n++ {
			for o := range l.outFeatures {
				gv := g[n*l.outFeatures+o]
				for i := range l.inFeatures {
					dxd[n*l.inFeatures+i] += gv * w[o*l.inFeatures+i]
				}
			}
		}
	}, l.par)
	return dx
}

// Xavier draws a tensor from U(-sqrt(6/(fan_in+fan_out)), +sqrt(6/(fan_in+fan_out))).
func Xavier(fanIn, fanOut int, shape tensor.Shape, rng *rand.Rand) *tensor.Tensor {
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))
	return tensor.Uniform(shape, -bound, bound, rng)
}
