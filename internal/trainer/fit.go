package trainer

import (
	"context"
	"errors"
	"fmt"

	"github.com/born-ml/lightning/internal/accelerator"
	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/optim"
)

// Fit trains model on the batches of train for the configured number of
// epochs.
//
// Every batch runs each optimizer in index order. With more than one
// optimizer the model's parameters are toggled so that only the active
// optimizer's parameters track gradients. The update itself goes through
// the model's OptimizerStep hook, and only every AccumulateGradBatches
// batches; batches in between accumulate gradients.
//
// Fit returns ctx.Err() when ctx is cancelled between batches. Loggers are
// finalized when Fit returns.
func (t *Trainer) Fit(ctx context.Context, model lightning.TrainingModule, train DataLoader) (err error) {
	base := t.attach(model)
	defer func() {
		t.detach(base)
		err = errors.Join(err, t.finalizeLoggers())
	}()

	opts, err := model.ConfigureOptimizers()
	if err != nil {
		return fmt.Errorf("configure optimizers: %w", err)
	}
	if len(opts) == 0 {
		return fmt.Errorf("%w: ConfigureOptimizers returned no optimizers", lightning.ErrMisconfiguration)
	}
	t.optimizers = opts
	if err := t.restoreOptimizerState(); err != nil {
		return err
	}

	t.log.Info("fit started",
		"device", t.device.String(),
		"host", accelerator.Detect().String(),
		"optimizers", len(opts),
		"batches", limit(train.Len(), t.cfg.LimitTrainBatches),
		"max_epochs", t.cfg.MaxEpochs)
	if err := t.logHyperparams(); err != nil {
		return err
	}

	for ; t.epoch < t.cfg.MaxEpochs; t.epoch++ {
		if err := t.fitEpoch(ctx, model, train); err != nil {
			return err
		}
		if ender, ok := model.(lightning.TrainEpochEnder); ok {
			if err := ender.OnTrainEpochEnd(); err != nil {
				return fmt.Errorf("epoch %d: on train epoch end: %w", t.epoch, err)
			}
		}
		t.log.Debug("epoch finished", "epoch", t.epoch, "global_step", t.globalStep)
	}

	t.log.Info("fit finished", "epochs", t.epoch, "global_step", t.globalStep)
	return nil
}

func (t *Trainer) fitEpoch(ctx context.Context, model lightning.TrainingModule, train DataLoader) error {
	n := limit(train.Len(), t.cfg.LimitTrainBatches)
	accum := t.cfg.AccumulateGradBatches

	for batchIdx := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch, err := train.Batch(batchIdx)
		if err != nil {
			return fmt.Errorf("epoch %d: %w", t.epoch, err)
		}
		batch = batch.To(t.device)

		// The last batch closes a partial accumulation window.
		window := batchIdx%accum + 1
		boundary := window == accum || batchIdx == n-1

		for idx, opt := range t.optimizers {
			if err := t.runOptimizer(model, batch, batchIdx, idx, opt, boundary, window); err != nil {
				return fmt.Errorf("epoch %d batch %d: %w", t.epoch, batchIdx, err)
			}
		}
		if boundary {
			t.globalStep++
		}
	}
	return nil
}

// runOptimizer brackets one optimizer's share of a batch with toggle and
// untoggle. Untoggle runs even if the step fails.
func (t *Trainer) runOptimizer(model lightning.TrainingModule, batch lightning.Batch, batchIdx, idx int, opt optim.Optimizer, boundary bool, window int) (err error) {
	base := model.Base()
	if len(t.optimizers) > 1 {
		if err := base.ToggleOptimizer(opt, idx); err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, base.UntoggleOptimizer(idx))
		}()
	}

	if !boundary {
		return t.trainingStep(model, batch, batchIdx, idx)
	}

	called := false
	closure := func() error {
		called = true
		if err := t.trainingStep(model, batch, batchIdx, idx); err != nil {
			return err
		}
		if window > 1 {
			scale := 1 / float32(window)
			for _, p := range optim.Params(opt) {
				if g := p.Grad(); g != nil {
					g.Scale(scale)
				}
			}
		}
		clipVal, _ := t.GradientClipVal()
		clipAlgo, _ := t.GradientClipAlgorithm()
		if err := model.ConfigureGradientClipping(opt, idx, clipVal, clipAlgo); err != nil {
			return fmt.Errorf("configure gradient clipping: %w", err)
		}
		return nil
	}

	if err := model.OptimizerStep(t.epoch, batchIdx, opt, idx, closure); err != nil {
		return fmt.Errorf("optimizer %d: %w", idx, err)
	}
	if !called {
		t.log.Warn("OptimizerStep did not run the closure", "optimizer", idx, "batch", batchIdx)
	}
	opt.ZeroGrad()
	return nil
}

// trainingStep runs the model's forward pass and backward. A nil output
// skips backward.
func (t *Trainer) trainingStep(model lightning.TrainingModule, batch lightning.Batch, batchIdx, idx int) error {
	out, err := model.TrainingStep(batch, batchIdx, idx)
	if err != nil {
		return fmt.Errorf("training step for optimizer %d: %w", idx, err)
	}
	if out == nil {
		t.log.Debug("training step returned no output, skipping backward", "optimizer", idx, "batch", batchIdx)
		return nil
	}
	if out.Backward != nil {
		out.Backward()
	}
	t.log.Debug("training step", "optimizer", idx, "batch", batchIdx, "loss", out.Loss)
	return nil
}

func (t *Trainer) logHyperparams() error {
	hp := map[string]any{
		"run_id":                  t.runID,
		"max_epochs":              t.cfg.MaxEpochs,
		"accumulate_grad_batches": t.cfg.AccumulateGradBatches,
		"device":                  t.device.String(),
		"optimizers":              optimizerNames(t.optimizers),
	}
	if v, ok := t.GradientClipVal(); ok {
		hp["gradient_clip_val"] = v
	}
	if a, ok := t.GradientClipAlgorithm(); ok {
		hp["gradient_clip_algorithm"] = string(a)
	}
	for _, l := range t.loggers {
		if err := l.LogHyperparams(hp); err != nil {
			return fmt.Errorf("logger %s: %w", l.Name(), err)
		}
	}
	return nil
}

func (t *Trainer) finalizeLoggers() error {
	var errs []error
	for _, l := range t.loggers {
		if err := l.Finalize(); err != nil {
			errs = append(errs, fmt.Errorf("finalize logger %s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}
