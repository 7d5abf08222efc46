// Package optim implements optimization algorithms and gradient clipping.
//
// This package provides:
//   - Optimizer interface: parameter groups, Step, ZeroGrad and state export
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - ClipGradValue / ClipGradNorm: in-place gradient clipping
//
// Optimizers read gradients straight from the parameters they own, so a
// parameter frozen with SetRequiresGrad(false) before backward is simply
// skipped by Step.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//
//	for range epochs {
//	    out := model.Forward(x)
//	    _, grad := nn.MSELoss(out, y)
//	    model.Backward(grad)
//	    optimizer.Step()
//	    optimizer.ZeroGrad()
//	}
package optim

import (
	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// ParamGroups returns the optimizer's parameter groups in order.
	ParamGroups() []ParamGroup

	// Step applies one update to every parameter that has a gradient.
	Step()

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// LR returns the default learning rate.
	LR() float32

	// SetLR updates the default learning rate and every group that inherits it.
	SetLR(lr float32)

	// StateDict returns the optimizer's internal buffers for checkpointing.
	StateDict() map[string]*tensor.Tensor

	// LoadStateDict restores buffers produced by StateDict.
	LoadStateDict(stateDict map[string]*tensor.Tensor) error
}

// ParamGroup is a set of parameters sharing hyperparameters.
// A zero LR means the group inherits the optimizer's learning rate.
type ParamGroup struct {
	Params []*nn.Parameter
	LR     float32
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float32 // Learning rate
}

// paramGroups is the parameter-group bookkeeping shared by every optimizer.
type paramGroups struct {
	lr   float32
	list []ParamGroup
}

func newParamGroups(params []*nn.Parameter, lr float32) paramGroups {
	return paramGroups{lr: lr, list: []ParamGroup{{Params: params}}}
}

// ParamGroups returns a copy of the group list; parameters are shared.
func (g *paramGroups) ParamGroups() []ParamGroup {
	out := make([]ParamGroup, len(g.list))
	copy(out, g.list)
	return out
}

// AddParamGroup appends a group. Its LR may be zero to inherit the default.
func (g *paramGroups) AddParamGroup(group ParamGroup) {
	g.list = append(g.list, group)
}

// LR returns the default learning rate.
func (g *paramGroups) LR() float32 {
	return g.lr
}

// SetLR updates the default learning rate.
func (g *paramGroups) SetLR(lr float32) {
	g.lr = lr
}

// ZeroGrad clears gradients for all parameters.
func (g *paramGroups) ZeroGrad() {
	for _, group := range g.list {
		for _, p := range group.Params {
			p.ZeroGrad()
		}
	}
}

// each calls f for every parameter with its effective learning rate and
// its position in the flattened parameter list.
func (g *paramGroups) each(f func(idx int, p *nn.Parameter, lr float32)) {
	idx := 0
	for _, group := range g.list {
		lr := group.LR
		if lr == 0 {
			lr = g.lr
		}
		for _, p := range group.Params {
			f(idx, p, lr)
			idx++
		}
	}
}

// Params flattens every parameter group of opt in order. Duplicates are kept.
func Params(opt Optimizer) []*nn.Parameter {
	var out []*nn.Parameter
	for _, group := range opt.ParamGroups() {
		out = append(out, group.Params...)
	}
	return out
}

// ParamSet returns the identity set of parameters owned by opt.
func ParamSet(opt Optimizer) map[*nn.Parameter]struct{} {
	set := make(map[*nn.Parameter]struct{})
	for _, group := range opt.ParamGroups() {
		for _, p := range group.Params {
			set[p] = struct{}{}
		}
	}
	return set
}
