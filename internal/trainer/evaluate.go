package trainer

import (
	"context"
	"fmt"
	"maps"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/tensor"
)

// Test runs the model's TestStep over loader and returns each metric
// averaged over the batches that reported it.
func (t *Trainer) Test(ctx context.Context, model lightning.TrainingModule, loader DataLoader) (map[string]float64, error) {
	stepper, ok := model.(lightning.TestStepper)
	if !ok {
		return nil, fmt.Errorf("%w: model does not implement TestStep", lightning.ErrMisconfiguration)
	}
	base := t.attach(model)
	defer t.detach(base)

	sums := make(map[string]float64)
	counts := make(map[string]int)
	n := limit(loader.Len(), t.cfg.LimitTestBatches)
	for batchIdx := range n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := loader.Batch(batchIdx)
		if err != nil {
			return nil, err
		}
		metrics, err := stepper.TestStep(batch.To(t.device), batchIdx)
		if err != nil {
			return nil, fmt.Errorf("test step %d: %w", batchIdx, err)
		}
		for k, v := range metrics {
			sums[k] += v
			counts[k]++
		}
	}

	out := maps.Clone(sums)
	for k := range out {
		out[k] /= float64(counts[k])
	}
	t.log.Info("test finished", "batches", n, "metrics", out)
	return out, nil
}

// Predict runs the model's PredictStep over loader and returns one host
// tensor per batch. LimitTestBatches does not apply.
func (t *Trainer) Predict(ctx context.Context, model lightning.TrainingModule, loader DataLoader) ([]*tensor.Tensor, error) {
	stepper, ok := model.(lightning.PredictStepper)
	if !ok {
		return nil, fmt.Errorf("%w: model does not implement PredictStep", lightning.ErrMisconfiguration)
	}
	base := t.attach(model)
	defer t.detach(base)

	out := make([]*tensor.Tensor, 0, loader.Len())
	for batchIdx := range loader.Len() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := loader.Batch(batchIdx)
		if err != nil {
			return nil, err
		}
		pred, err := stepper.PredictStep(batch.To(t.device), batchIdx)
		if err != nil {
			return nil, fmt.Errorf("predict step %d: %w", batchIdx, err)
		}
		if pred != nil {
			pred = pred.To(tensor.HostDevice)
		}
		out = append(out, pred)
	}
	return out, nil
}
