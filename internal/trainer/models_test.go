package trainer_test

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/tensor"
	"github.com/born-ml/lightning/internal/trainer"
	"github.com/stretchr/testify/require"
)

func quiet() trainer.Option {
	return trainer.WithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func batches(t *testing.T, n int) trainer.SliceLoader {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 8))
	out := make(trainer.SliceLoader, n)
	for i := range out {
		out[i] = lightning.Batch{
			Input:  tensor.Uniform(tensor.Shape{3, 4}, -1, 1, rng),
			Target: tensor.Uniform(tensor.Shape{3, 2}, -1, 1, rng),
		}
	}
	return out
}

func clone(p *nn.Parameter) []float32 {
	return append([]float32(nil), p.Tensor().Data()...)
}

// stepRecord captures parameter state as seen from inside OptimizerStep.
type stepRecord struct {
	optimizerIdx                int
	genTrainable, discTrainable bool
	genHasGrad, discHasGrad     bool
}

// ganModel has a generator and a discriminator chained into one forward
// pass, each with its own optimizer.
type ganModel struct {
	lightning.Module
	gen, disc *nn.Linear
	opts      []optim.Optimizer

	skipOptimizer int
	devices       []tensor.Device
	steps         []stepRecord
}

func newGANModel() *ganModel {
	rng := rand.New(rand.NewPCG(3, 4))
	m := &ganModel{
		gen:           nn.NewLinear(4, 4, rng),
		disc:          nn.NewLinear(4, 2, rng),
		skipOptimizer: -1,
	}
	m.RegisterLayer("generator", m.gen)
	m.RegisterLayer("discriminator", m.disc)
	return m
}

func (m *ganModel) ConfigureOptimizers() ([]optim.Optimizer, error) {
	m.opts = []optim.Optimizer{
		optim.NewSGD(m.gen.Parameters(), optim.SGDConfig{LR: 0.05}),
		optim.NewAdam(m.disc.Parameters(), optim.AdamConfig{LR: 0.01}),
	}
	return m.opts, nil
}

func (m *ganModel) TrainingStep(batch lightning.Batch, _, optimizerIdx int) (*lightning.StepOutput, error) {
	m.devices = append(m.devices, batch.Input.Device())
	if optimizerIdx == m.skipOptimizer {
		return nil, nil
	}
	pred := m.disc.Forward(m.gen.Forward(batch.Input))
	loss, grad := nn.MSELoss(pred, batch.Target)
	if err := m.Log(fmt.Sprintf("loss_%d", optimizerIdx), float64(loss)); err != nil {
		return nil, err
	}
	return &lightning.StepOutput{
		Loss: loss,
		Backward: func() {
			m.gen.Backward(m.disc.Backward(grad))
		},
	}, nil
}

func (m *ganModel) OptimizerStep(epoch, batchIdx int, opt optim.Optimizer, optimizerIdx int, closure func() error) error {
	rec := stepRecord{
		optimizerIdx:  optimizerIdx,
		genTrainable:  m.gen.Weight().RequiresGrad(),
		discTrainable: m.disc.Weight().RequiresGrad(),
	}
	err := m.Module.OptimizerStep(epoch, batchIdx, opt, optimizerIdx, func() error {
		if err := closure(); err != nil {
			return err
		}
		rec.genHasGrad = m.gen.Weight().Grad() != nil
		rec.discHasGrad = m.disc.Weight().Grad() != nil
		return nil
	})
	m.steps = append(m.steps, rec)
	return err
}

// regressor is a single Linear layer with one optimizer.
type regressor struct {
	lightning.Module
	layer *nn.Linear

	devices   []tensor.Device
	epochEnds int
}

func newRegressor() *regressor {
	m := &regressor{layer: nn.NewLinear(4, 2, rand.New(rand.NewPCG(5, 6)))}
	m.RegisterLayer("layer", m.layer)
	return m
}

func (m *regressor) ConfigureOptimizers() ([]optim.Optimizer, error) {
	return []optim.Optimizer{optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: 0.1})}, nil
}

func (m *regressor) TrainingStep(batch lightning.Batch, _, _ int) (*lightning.StepOutput, error) {
	m.devices = append(m.devices, m.layer.Weight().Device())
	loss, grad := nn.MSELoss(m.layer.Forward(batch.Input), batch.Target)
	return &lightning.StepOutput{Loss: loss, Backward: func() { m.layer.Backward(grad) }}, nil
}

func (m *regressor) TestStep(batch lightning.Batch, _ int) (map[string]float64, error) {
	m.devices = append(m.devices, m.layer.Weight().Device())
	loss, _ := nn.MSELoss(m.layer.Forward(batch.Input), batch.Target)
	return map[string]float64{"test_loss": float64(loss)}, nil
}

func (m *regressor) PredictStep(batch lightning.Batch, _ int) (*tensor.Tensor, error) {
	m.devices = append(m.devices, m.layer.Weight().Device())
	return m.layer.Forward(batch.Input), nil
}

func (m *regressor) OnTrainEpochEnd() error {
	m.epochEnds++
	return nil
}

// overClipper asks for a clip value that conflicts with the trainer's.
type overClipper struct {
	*regressor
}

func (m overClipper) ConfigureGradientClipping(opt optim.Optimizer, _ int, _ float64, _ optim.ClipAlgorithm) error {
	return m.ClipGradients(opt, lightning.WithClipValue(0.01))
}

// noOptimizers configures nothing.
type noOptimizers struct {
	*regressor
}

func (noOptimizers) ConfigureOptimizers() ([]optim.Optimizer, error) {
	return nil, nil
}

func newTrainer(t *testing.T, cfg trainer.Config, opts ...trainer.Option) *trainer.Trainer {
	t.Helper()
	tr, err := trainer.New(cfg, append([]trainer.Option{quiet()}, opts...)...)
	require.NoError(t, err)
	return tr
}
