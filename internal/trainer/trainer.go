// Package trainer runs the fit, test and predict loops of a
// lightning.TrainingModule.
//
// The Trainer owns the model for the duration of a loop: it attaches itself
// with SetTrainer, places the model on the configured device, and detaches
// and returns the model to the host when the loop ends.
package trainer

import (
	"errors"
	"log/slog"

	"github.com/born-ml/lightning/internal/accelerator"
	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/tensor"
	"github.com/google/uuid"
)

// ErrNoModel is returned by checkpoint operations before a model was fitted or loaded.
var ErrNoModel = errors.New("trainer has no model")

// Option customizes a Trainer.
type Option func(*Trainer)

// WithLogger adds experiment loggers.
func WithLogger(l ...loggers.Logger) Option {
	return func(t *Trainer) {
		t.loggers = append(t.loggers, l...)
	}
}

// WithSlog sets the operational logger. Defaults to slog.Default().
func WithSlog(l *slog.Logger) Option {
	return func(t *Trainer) {
		t.log = l
	}
}

// Trainer orchestrates training. It implements lightning.Trainer.
type Trainer struct {
	cfg     Config
	device  tensor.Device
	runID   string
	baseLog *slog.Logger
	log     *slog.Logger // baseLog scoped to runID
	loggers []loggers.Logger

	model      lightning.TrainingModule
	optimizers []optim.Optimizer
	epoch      int
	globalStep int

	// Optimizer state read by LoadCheckpoint before optimizers exist.
	pendingOptimState map[int]map[string]*tensor.Tensor
}

// New validates cfg and creates a Trainer.
func New(cfg Config, opts ...Option) (*Trainer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	device, err := accelerator.Resolve(cfg.Accelerator, cfg.Devices)
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:    cfg,
		device: device,
		runID:  uuid.NewString(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.baseLog = t.log
	t.setRunID(t.runID)
	return t, nil
}

// Config returns the effective configuration, defaults applied.
func (t *Trainer) Config() Config { return t.cfg }

// Device returns the device models are placed on while a loop runs.
func (t *Trainer) Device() tensor.Device { return t.device }

// RunID identifies this run in logs and checkpoints.
func (t *Trainer) RunID() string { return t.runID }

func (t *Trainer) setRunID(id string) {
	t.runID = id
	t.log = t.baseLog.With("run_id", id)
}

func (t *Trainer) CurrentEpoch() int { return t.epoch }
func (t *Trainer) GlobalStep() int   { return t.globalStep }
func (t *Trainer) GlobalRank() int   { return t.cfg.GlobalRank }
func (t *Trainer) LocalRank() int    { return t.cfg.LocalRank }

// Loggers returns the experiment loggers.
func (t *Trainer) Loggers() []loggers.Logger { return t.loggers }

// Optimizers returns the optimizers configured by the model being fitted.
func (t *Trainer) Optimizers() []optim.Optimizer { return t.optimizers }

// GradientClipVal returns the configured clip value, if any.
func (t *Trainer) GradientClipVal() (float64, bool) {
	if t.cfg.GradientClipVal == nil {
		return 0, false
	}
	return *t.cfg.GradientClipVal, true
}

// GradientClipAlgorithm returns the configured clip algorithm, if any.
func (t *Trainer) GradientClipAlgorithm() (optim.ClipAlgorithm, bool) {
	return t.cfg.GradientClipAlgorithm, t.cfg.GradientClipAlgorithm != ""
}

// attach hands the model to the trainer and places it on the run device.
func (t *Trainer) attach(model lightning.TrainingModule) *lightning.Module {
	base := model.Base()
	t.model = model
	base.SetTrainer(t)
	base.To(t.device)
	return base
}

// detach returns the model to the host and clears its trainer handle.
func (t *Trainer) detach(base *lightning.Module) {
	base.To(tensor.HostDevice)
	base.SetTrainer(nil)
}

var _ lightning.Trainer = (*Trainer)(nil)
