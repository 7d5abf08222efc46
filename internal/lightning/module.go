// Package lightning implements the training-module abstraction driven by a
// trainer.
//
// A user model embeds Module, registers its layers, buffers and sharded
// tensors, and implements the TrainingModule hooks. The trainer attaches
// itself, calls the hooks, and reads everything else (parameters, device,
// state dict) through Module.
//
// Example:
//
//	type GAN struct {
//	    lightning.Module
//	    gen, disc *nn.Sequential
//	}
//
//	func NewGAN(rng *rand.Rand) *GAN {
//	    g := &GAN{gen: ..., disc: ...}
//	    g.RegisterLayer("generator", g.gen)
//	    g.RegisterLayer("discriminator", g.disc)
//	    return g
//	}
//
// Hooks with a default behavior (ConfigureGradientClipping, OptimizerStep)
// are methods on Module and are promoted to the embedding type; defining the
// same method on the user type overrides them.
package lightning

import (
	"fmt"
	"slices"

	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/shard"
	"github.com/born-ml/lightning/internal/tensor"
)

type namedLayer struct {
	name  string
	layer nn.Layer
}

type namedBuffer struct {
	name   string
	tensor *tensor.Tensor
}

type namedShardedTensor struct {
	name string
	st   *shard.ShardedTensor
}

type namedModule struct {
	name   string
	module *Module
}

// Module is the base of every trainable model. The zero value is ready to use.
type Module struct {
	trainer Trainer
	device  tensor.Device

	layers   []namedLayer
	buffers  []*namedBuffer
	sharded  []namedShardedTensor
	children []namedModule

	// paramRequiresGradState holds the RequiresGrad values overwritten by
	// ToggleOptimizer. Empty whenever no optimizer is toggled.
	paramRequiresGradState map[*nn.Parameter]bool
}

// NewModule returns an empty module on the CPU.
func NewModule() *Module {
	return &Module{}
}

// Base returns m. Embedding types inherit it, which is how the trainer
// reaches the Module inside a user model.
func (m *Module) Base() *Module {
	return m
}

// RegisterLayer adds a layer whose parameters belong to this module. Names
// become state-dict prefixes and must be unique.
func (m *Module) RegisterLayer(name string, layer nn.Layer) {
	m.checkName(name)
	m.layers = append(m.layers, namedLayer{name: name, layer: layer})
}

// RegisterBuffer adds a non-trainable tensor that is saved in the state dict
// and moved by To.
func (m *Module) RegisterBuffer(name string, t *tensor.Tensor) {
	m.checkName(name)
	m.buffers = append(m.buffers, &namedBuffer{name: name, tensor: t})
}

// RegisterShardedTensor adds a sharded tensor saved under name.
func (m *Module) RegisterShardedTensor(name string, st *shard.ShardedTensor) {
	m.checkName(name)
	m.sharded = append(m.sharded, namedShardedTensor{name: name, st: st})
}

// RegisterModule nests another module. Trainer attachment, device moves and
// state dicts recurse into it.
func (m *Module) RegisterModule(name string, child *Module) {
	m.checkName(name)
	if child == m {
		panic("lightning: module cannot contain itself")
	}
	m.children = append(m.children, namedModule{name: name, module: child})
	if m.trainer != nil {
		child.SetTrainer(m.trainer)
	}
}

// Buffer returns the current tensor registered under name, or nil.
func (m *Module) Buffer(name string) *tensor.Tensor {
	for _, b := range m.buffers {
		if b.name == name {
			return b.tensor
		}
	}
	return nil
}

func (m *Module) checkName(name string) {
	if name == "" {
		panic("lightning: empty registration name")
	}
	if slices.Contains(m.registeredNames(), name) {
		panic(fmt.Sprintf("lightning: name %q already registered", name))
	}
}

func (m *Module) registeredNames() []string {
	var names []string
	for _, l := range m.layers {
		names = append(names, l.name)
	}
	for _, b := range m.buffers {
		names = append(names, b.name)
	}
	for _, s := range m.sharded {
		names = append(names, s.name)
	}
	for _, c := range m.children {
		names = append(names, c.name)
	}
	return names
}

// Trainer returns the attached trainer or ErrNotAttached.
func (m *Module) Trainer() (Trainer, error) {
	if m.trainer == nil {
		return nil, ErrNotAttached
	}
	return m.trainer, nil
}

// SetTrainer attaches t to this module and every nested module. Passing nil
// detaches them all.
func (m *Module) SetTrainer(t Trainer) {
	m.trainer = t
	for _, c := range m.children {
		c.module.SetTrainer(t)
	}
}

// CurrentEpoch returns the trainer's epoch, or 0 when detached.
func (m *Module) CurrentEpoch() int {
	if m.trainer == nil {
		return 0
	}
	return m.trainer.CurrentEpoch()
}

// GlobalStep returns the number of optimizer steps taken, or 0 when detached.
func (m *Module) GlobalStep() int {
	if m.trainer == nil {
		return 0
	}
	return m.trainer.GlobalStep()
}

// GlobalRank returns the process rank across all nodes, or 0 when detached.
func (m *Module) GlobalRank() int {
	if m.trainer == nil {
		return 0
	}
	return m.trainer.GlobalRank()
}

// LocalRank returns the process rank within its node, or 0 when detached.
func (m *Module) LocalRank() int {
	if m.trainer == nil {
		return 0
	}
	return m.trainer.LocalRank()
}

// Logger returns the first configured logger, or nil.
func (m *Module) Logger() loggers.Logger {
	ls := m.Loggers()
	if len(ls) == 0 {
		return nil
	}
	return ls[0]
}

// Loggers returns every configured logger. Never nil.
func (m *Module) Loggers() []loggers.Logger {
	if m.trainer == nil {
		return []loggers.Logger{}
	}
	ls := m.trainer.Loggers()
	if ls == nil {
		return []loggers.Logger{}
	}
	return ls
}

// Optimizers returns the trainer's configured optimizers.
func (m *Module) Optimizers() ([]optim.Optimizer, error) {
	t, err := m.Trainer()
	if err != nil {
		return nil, err
	}
	return t.Optimizers(), nil
}

// Log records a single metric at the current global step on every logger.
func (m *Module) Log(name string, value float64) error {
	return m.LogDict(map[string]float64{name: value})
}

// LogDict records metrics at the current global step on every logger.
func (m *Module) LogDict(metrics map[string]float64) error {
	step := m.GlobalStep()
	for _, l := range m.Loggers() {
		if err := l.LogMetrics(metrics, step); err != nil {
			return fmt.Errorf("logger %s: %w", l.Name(), err)
		}
	}
	return nil
}
