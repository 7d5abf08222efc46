// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package lightning_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/born-ml/lightning/lightning"
	"github.com/born-ml/lightning/nn"
	"github.com/born-ml/lightning/optim"
	"github.com/born-ml/lightning/tensor"
	"github.com/born-ml/lightning/trainer"
)

type gan struct {
	lightning.Module
	gen, disc *nn.Linear
}

func (m *gan) ConfigureOptimizers() ([]optim.Optimizer, error) {
	return []optim.Optimizer{
		optim.NewSGD(m.gen.Parameters(), optim.SGDConfig{LR: 0.01}),
		optim.NewSGD(m.disc.Parameters(), optim.SGDConfig{LR: 0.01}),
	}, nil
}

func (m *gan) TrainingStep(batch lightning.Batch, _, _ int) (*lightning.StepOutput, error) {
	pred := m.disc.Forward(m.gen.Forward(batch.Input))
	loss, grad := nn.MSELoss(pred, batch.Target)
	return &lightning.StepOutput{
		Loss:     loss,
		Backward: func() { m.gen.Backward(m.disc.Backward(grad)) },
	}, nil
}

func Example() {
	rng := rand.New(rand.NewPCG(1, 2))
	model := &gan{gen: nn.NewLinear(4, 4, rng), disc: nn.NewLinear(4, 1, rng)}
	model.RegisterLayer("gen", model.gen)
	model.RegisterLayer("disc", model.disc)

	data := trainer.SliceLoader{{
		Input:  tensor.Uniform(tensor.Shape{2, 4}, -1, 1, rng),
		Target: tensor.Zeros(tensor.Shape{2, 1}),
	}}

	tr, err := trainer.New(trainer.Config{MaxEpochs: 2},
		trainer.WithSlog(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		panic(err)
	}
	if err := tr.Fit(context.Background(), model, data); err != nil {
		panic(err)
	}
	fmt.Println(tr.CurrentEpoch(), tr.GlobalStep(), len(model.ToggleState()))
	// Output: 2 2 0
}
