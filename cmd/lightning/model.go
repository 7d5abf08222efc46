package main

import (
	"math/rand/v2"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/tensor"
	"github.com/born-ml/lightning/internal/trainer"
)

const (
	inFeatures  = 4
	outFeatures = 2
	batchSize   = 8
)

// demoModel has two branches that feed one shared head. Optimizer 0 owns
// the left branch and the head, optimizer 1 the right branch and the head,
// so every step trains one branch while the other stays frozen.
type demoModel struct {
	lightning.Module
	left, right *nn.Sequential
	head        *nn.Linear
}

func newDemoModel(seed uint64) *demoModel {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	m := &demoModel{
		left:  nn.NewSequential(nn.NewLinear(inFeatures, 8, rng), nn.NewReLU()),
		right: nn.NewSequential(nn.NewLinear(inFeatures, 8, rng), nn.NewReLU()),
		head:  nn.NewLinear(8, outFeatures, rng),
	}
	m.RegisterLayer("left", m.left)
	m.RegisterLayer("right", m.right)
	m.RegisterLayer("head", m.head)
	return m
}

func (m *demoModel) ConfigureOptimizers() ([]optim.Optimizer, error) {
	return []optim.Optimizer{
		optim.NewSGD(append(m.left.Parameters(), m.head.Parameters()...), optim.SGDConfig{LR: 0.05, Momentum: 0.5}),
		optim.NewAdam(append(m.right.Parameters(), m.head.Parameters()...), optim.AdamConfig{LR: 0.005}),
	}, nil
}

func (m *demoModel) TrainingStep(batch lightning.Batch, _, optimizerIdx int) (*lightning.StepOutput, error) {
	branch := m.left
	if optimizerIdx == 1 {
		branch = m.right
	}

	pred := m.head.Forward(branch.Forward(batch.Input))
	loss, grad := nn.MSELoss(pred, batch.Target)
	name := "left_loss"
	if optimizerIdx == 1 {
		name = "right_loss"
	}
	if err := m.Log(name, float64(loss)); err != nil {
		return nil, err
	}

	return &lightning.StepOutput{
		Loss: loss,
		Backward: func() {
			branch.Backward(m.head.Backward(grad))
		},
	}, nil
}

// demoData samples batches of y = W x for a fixed random W.
func demoData(n int, seed uint64) trainer.SliceLoader {
	rng := rand.New(rand.NewPCG(seed+2, seed+3))
	w := tensor.Uniform(tensor.Shape{outFeatures, inFeatures}, -1, 1, rng).Data()

	out := make(trainer.SliceLoader, n)
	for i := range out {
		x := tensor.Uniform(tensor.Shape{batchSize, inFeatures}, -1, 1, rng)
		y := tensor.Zeros(tensor.Shape{batchSize, outFeatures})
		xd, yd := x.Data(), y.Data()
		for b := range batchSize {
			for o := range outFeatures {
				var sum float32
				for j := range inFeatures {
					sum += w[o*inFeatures+j] * xd[b*inFeatures+j]
				}
				yd[b*outFeatures+o] = sum
			}
		}
		out[i] = lightning.Batch{Input: x, Target: y}
	}
	return out
}
