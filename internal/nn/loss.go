package nn

import (
	"github.com/born-ml/lightning/internal/tensor"
)

// MSELoss computes mean((predictions - targets)²) and its gradient with
// respect to predictions.
//
// Panics if the shapes differ.
func MSELoss(predictions, targets *tensor.Tensor) (float32, *tensor.Tensor) {
	if !predictions.Shape().Equal(targets.Shape()) {
		panic("MSELoss: predictions and targets must have the same shape")
	}

	p := predictions.Data()
	t := targets.Data()
	n := float32(len(p))

	grad, err := tensor.New(predictions.Shape(), predictions.Device())
	if err != nil {
		panic(err)
	}
	g := grad.Data()

	var loss float32
	for i := range p {
		d := p[i] - t[i]
		loss += d * d
		g[i] = 2 * d / n
	}
	return loss / n, grad
}
