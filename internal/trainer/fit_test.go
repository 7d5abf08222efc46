package trainer_test

import (
	"context"
	"testing"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/tensor"
	"github.com/born-ml/lightning/internal/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFit_TogglesBetweenOptimizers(t *testing.T) {
	logger := loggers.NewMemoryLogger("gan", "0")
	tr := newTrainer(t, trainer.Config{}, trainer.WithLogger(logger))
	m := newGANModel()
	genBefore, discBefore := clone(m.gen.Weight()), clone(m.disc.Weight())

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 2)))

	want := []stepRecord{
		{optimizerIdx: 0, genTrainable: true, discTrainable: false, genHasGrad: true, discHasGrad: false},
		{optimizerIdx: 1, genTrainable: false, discTrainable: true, genHasGrad: false, discHasGrad: true},
		{optimizerIdx: 0, genTrainable: true, discTrainable: false, genHasGrad: true, discHasGrad: false},
		{optimizerIdx: 1, genTrainable: false, discTrainable: true, genHasGrad: false, discHasGrad: true},
	}
	assert.Equal(t, want, m.steps)

	for _, p := range m.Parameters() {
		assert.True(t, p.RequiresGrad(), "%s restored", p.Name())
		assert.Nil(t, p.Grad(), "%s gradients cleared", p.Name())
	}
	assert.Empty(t, m.ToggleState())
	assert.NotEqual(t, genBefore, m.gen.Weight().Tensor().Data())
	assert.NotEqual(t, discBefore, m.disc.Weight().Tensor().Data())

	assert.Equal(t, 1, tr.CurrentEpoch())
	assert.Equal(t, 2, tr.GlobalStep())

	_, err := m.Trainer()
	assert.ErrorIs(t, err, lightning.ErrNotAttached, "trainer handle cleared at teardown")

	records := logger.Records()
	require.Len(t, records, 4)
	assert.Equal(t, 0, records[0].Step)
	assert.Contains(t, records[0].Metrics, "loss_0")
	assert.Contains(t, records[1].Metrics, "loss_1")
	assert.Equal(t, 1, records[3].Step)
	assert.True(t, logger.Finalized())

	hp := logger.Hyperparams()
	assert.Equal(t, tr.RunID(), hp["run_id"])
	assert.Equal(t, []string{"sgd", "adam"}, hp["optimizers"])
}

func TestFit_NilOutputSkipsBackward(t *testing.T) {
	tr := newTrainer(t, trainer.Config{})
	m := newGANModel()
	m.skipOptimizer = 1
	discBefore := clone(m.disc.Weight())

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 2)))

	require.Len(t, m.steps, 4)
	for _, rec := range m.steps {
		if rec.optimizerIdx == 1 {
			assert.False(t, rec.discHasGrad)
		}
	}
	assert.Equal(t, discBefore, m.disc.Weight().Tensor().Data())
	for _, p := range m.Parameters() {
		assert.True(t, p.RequiresGrad(), "%s restored", p.Name())
	}
	assert.Empty(t, m.ToggleState())
}

func TestFit_SingleOptimizerIsNotToggled(t *testing.T) {
	tr := newTrainer(t, trainer.Config{MaxEpochs: 3})
	m := newRegressor()

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 2)))
	assert.Equal(t, 3, m.epochEnds)
	assert.Equal(t, 6, tr.GlobalStep())
	assert.Empty(t, m.ToggleState())
}

func TestFit_GradientAccumulation(t *testing.T) {
	data := batches(t, 1)

	single := newRegressor()
	require.NoError(t, newTrainer(t, trainer.Config{}).Fit(context.Background(), single, data))

	// Two identical batches accumulated into one step average to the same update.
	accumulated := newRegressor()
	tr := newTrainer(t, trainer.Config{AccumulateGradBatches: 2})
	require.NoError(t, tr.Fit(context.Background(), accumulated, trainer.SliceLoader{data[0], data[0]}))

	assert.Equal(t, 1, tr.GlobalStep())
	assert.Len(t, accumulated.devices, 2)
	assert.InDeltaSlice(t, single.layer.Weight().Tensor().Data(), accumulated.layer.Weight().Tensor().Data(), 1e-6)
	assert.InDeltaSlice(t, single.layer.Bias().Tensor().Data(), accumulated.layer.Bias().Tensor().Data(), 1e-6)
}

func TestFit_AccumulationPartialWindow(t *testing.T) {
	tr := newTrainer(t, trainer.Config{AccumulateGradBatches: 2})
	m := newGANModel()

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 3)))
	assert.Len(t, m.devices, 6, "every batch runs a training step per optimizer")
	assert.Len(t, m.steps, 4, "batches 1 and 2 close a window")
	assert.Equal(t, 2, tr.GlobalStep())
}

func TestFit_ClipMismatchSurfaces(t *testing.T) {
	tr := newTrainer(t, trainer.Config{GradientClipVal: ptr(1e-4)})
	m := overClipper{newRegressor()}

	err := tr.Fit(context.Background(), m, batches(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, lightning.ErrMisconfiguration)
	assert.Contains(t, err.Error(),
		"gradient_clip_val=0.0001)` and have passed `clip_gradients(gradient_clip_val=0.01")
}

func TestFit_ClipsWithTrainerSettings(t *testing.T) {
	tr := newTrainer(t, trainer.Config{GradientClipVal: ptr(1e-9), GradientClipAlgorithm: optim.ClipValue})
	m := newRegressor()
	before := clone(m.layer.Weight())

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 1)))
	assert.InDeltaSlice(t, before, m.layer.Weight().Tensor().Data(), 1e-8)
}

func TestFit_DevicePlacementRoundTrip(t *testing.T) {
	cuda := tensor.MustParseDevice("cuda:0")
	tr := newTrainer(t, trainer.Config{Accelerator: "gpu"})
	m := newRegressor()
	ctx := context.Background()

	require.NoError(t, tr.Fit(ctx, m, batches(t, 2)))
	assert.Equal(t, []tensor.Device{cuda, cuda}, m.devices)
	assert.Equal(t, tensor.HostDevice, m.Device())
	for _, p := range m.Parameters() {
		assert.Equal(t, tensor.HostDevice, p.Device())
	}

	m.devices = nil
	metrics, err := tr.Test(ctx, m, batches(t, 2))
	require.NoError(t, err)
	assert.Contains(t, metrics, "test_loss")
	assert.Equal(t, []tensor.Device{cuda, cuda}, m.devices)
	assert.Equal(t, tensor.HostDevice, m.Device())

	m.devices = nil
	preds, err := tr.Predict(ctx, m, batches(t, 2))
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, tensor.HostDevice, preds[0].Device())
	assert.Equal(t, []tensor.Device{cuda, cuda}, m.devices)
	assert.Equal(t, tensor.HostDevice, m.Device())
}

func TestFit_FastDevRun(t *testing.T) {
	tr := newTrainer(t, trainer.Config{MaxEpochs: 5, FastDevRun: true})
	m := newRegressor()

	require.NoError(t, tr.Fit(context.Background(), m, batches(t, 4)))
	assert.Len(t, m.devices, 1)
	assert.Equal(t, 1, m.epochEnds)
}

func TestFit_ContextCancelled(t *testing.T) {
	logger := loggers.NewMemoryLogger("run", "0")
	tr := newTrainer(t, trainer.Config{}, trainer.WithLogger(logger))
	m := newGANModel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := tr.Fit(ctx, m, batches(t, 2))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, m.steps)
	assert.True(t, logger.Finalized())
	_, err = m.Trainer()
	assert.ErrorIs(t, err, lightning.ErrNotAttached)
}

func TestFit_NoOptimizers(t *testing.T) {
	tr := newTrainer(t, trainer.Config{})
	err := tr.Fit(context.Background(), noOptimizers{newRegressor()}, batches(t, 1))
	assert.ErrorIs(t, err, lightning.ErrMisconfiguration)
}

func TestTest_RequiresTestStep(t *testing.T) {
	tr := newTrainer(t, trainer.Config{})
	_, err := tr.Test(context.Background(), newGANModel(), batches(t, 1))
	assert.ErrorIs(t, err, lightning.ErrMisconfiguration)

	_, err = tr.Predict(context.Background(), newGANModel(), batches(t, 1))
	assert.ErrorIs(t, err, lightning.ErrMisconfiguration)
}

func TestTest_AveragesMetrics(t *testing.T) {
	tr := newTrainer(t, trainer.Config{LimitTestBatches: 2})
	m := newRegressor()
	data := batches(t, 3)

	metrics, err := tr.Test(context.Background(), m, data)
	require.NoError(t, err)
	assert.Len(t, m.devices, 2)

	var want float64
	for _, b := range data[:2] {
		got, err := m.TestStep(b, 0)
		require.NoError(t, err)
		want += got["test_loss"] / 2
	}
	assert.InDelta(t, want, metrics["test_loss"], 1e-9)
}

func ptr[T any](v T) *T {
	return &v
}
