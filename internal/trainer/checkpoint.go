package trainer

import (
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/serialization"
	"github.com/born-ml/lightning/internal/tensor"
)

// optimizerPrefix marks optimizer state in a checkpoint: "optimizer.<idx>.<key>".
const optimizerPrefix = "optimizer."

// SaveCheckpoint writes the model state, optimizer state and progress
// counters of the last fitted or loaded model to path.
func (t *Trainer) SaveCheckpoint(path string) error {
	if t.model == nil {
		return ErrNoModel
	}

	sd := t.model.Base().StateDict()
	for idx, opt := range t.optimizers {
		for k, v := range opt.StateDict() {
			sd[optimizerKey(idx, k)] = v
		}
	}

	meta := &serialization.CheckpointMeta{
		RunID:      t.runID,
		Epoch:      t.epoch,
		Step:       t.globalStep,
		Optimizers: optimizerNames(t.optimizers),
	}
	if err := serialization.WriteFile(path, sd, meta); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	t.log.Info("checkpoint saved", "path", path, "epoch", t.epoch, "global_step", t.globalStep, "tensors", len(sd))
	return nil
}

// LoadCheckpoint restores model state and progress counters from path and
// adopts the checkpoint's run ID. Optimizer state is applied to the
// optimizers the next Fit configures, or immediately if they already exist.
func (t *Trainer) LoadCheckpoint(model lightning.TrainingModule, path string, strict bool) (lightning.LoadResult, error) {
	ckpt, err := serialization.ReadFile(path)
	if err != nil {
		return lightning.LoadResult{}, fmt.Errorf("load checkpoint: %w", err)
	}

	modelSD := make(map[string]*tensor.Tensor, len(ckpt.StateDict))
	optimSD := make(map[int]map[string]*tensor.Tensor)
	for k, v := range ckpt.StateDict {
		idx, key, ok := splitOptimizerKey(k)
		if !ok {
			modelSD[k] = v
			continue
		}
		if optimSD[idx] == nil {
			optimSD[idx] = make(map[string]*tensor.Tensor)
		}
		optimSD[idx][key] = v
	}

	res, err := model.Base().LoadStateDict(modelSD, strict)
	if err != nil {
		return res, fmt.Errorf("load checkpoint %s: %w", path, err)
	}

	t.model = model
	if meta := ckpt.Header.CheckpointMeta; meta != nil {
		t.epoch = meta.Epoch
		t.globalStep = meta.Step
		if meta.RunID != "" && meta.RunID != t.runID {
			t.setRunID(meta.RunID)
		}
	}
	t.pendingOptimState = optimSD
	if t.optimizers != nil {
		if err := t.restoreOptimizerState(); err != nil {
			return res, err
		}
	}
	t.log.Info("checkpoint loaded", "path", path, "epoch", t.epoch, "global_step", t.globalStep,
		"missing", len(res.MissingKeys), "unexpected", len(res.UnexpectedKeys))
	return res, nil
}

func (t *Trainer) restoreOptimizerState() error {
	if len(t.pendingOptimState) == 0 {
		return nil
	}
	for idx, sd := range t.pendingOptimState {
		if idx >= len(t.optimizers) {
			return fmt.Errorf("%w: checkpoint has state for optimizer %d but %d are configured",
				lightning.ErrMisconfiguration, idx, len(t.optimizers))
		}
		if err := t.optimizers[idx].LoadStateDict(maps.Clone(sd)); err != nil {
			return fmt.Errorf("restore optimizer %d: %w", idx, err)
		}
	}
	t.pendingOptimState = nil
	return nil
}

func optimizerKey(idx int, key string) string {
	return optimizerPrefix + strconv.Itoa(idx) + "." + key
}

func splitOptimizerKey(k string) (int, string, bool) {
	rest, ok := strings.CutPrefix(k, optimizerPrefix)
	if !ok {
		return 0, "", false
	}
	idxStr, key, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, "", false
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return 0, "", false
	}
	return idx, key, true
}

func optimizerNames(opts []optim.Optimizer) []string {
	names := make([]string, len(opts))
	for i, o := range opts {
		switch o.(type) {
		case *optim.SGD:
			names[i] = "sgd"
		case *optim.Adam:
			names[i] = "adam"
		default:
			names[i] = fmt.Sprintf("%T", o)
		}
	}
	return names
}
