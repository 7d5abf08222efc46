package optim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/tensor"
)

// SGD implements Stochastic Gradient Descent optimizer with optional momentum.
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	paramGroups
	momentum   float32
	velocities map[*nn.Parameter]*tensor.Tensor
}

// SGDConfig holds configuration for SGD optimizer.
type SGDConfig struct {
	LR       float32 // Learning rate (default: 0.01)
	Momentum float32 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer over a single parameter group.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD{
		paramGroups: newParamGroups(params, config.LR),
		momentum:    config.Momentum,
		velocities:  make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step performs a single optimization step. Parameters without a gradient
// are skipped. A parameter listed in two groups is updated twice.
func (s *SGD) Step() {
	s.each(func(_ int, p *nn.Parameter, lr float32) {
		grad := p.Grad()
		if grad == nil {
			return
		}

		if s.momentum == 0 {
			p.Tensor().AddScaled(grad, -lr)
			return
		}

		v, ok := s.velocities[p]
		if !ok {
			v = tensor.Zeros(p.Tensor().Shape()).To(p.Device())
			s.velocities[p] = v
		}
		v.Scale(s.momentum)
		v.AddScaled(grad, 1)
		p.Tensor().AddScaled(v, -lr)
	})
}

// Momentum returns the momentum factor.
func (s *SGD) Momentum() float32 {
	return s.momentum
}

// StateDict exports velocity buffers keyed "velocity.{param_index}".
// Without momentum, returns an empty map.
func (s *SGD) StateDict() map[string]*tensor.Tensor {
	state := make(map[string]*tensor.Tensor)
	s.each(func(idx int, p *nn.Parameter, _ float32) {
		if v, ok := s.velocities[p]; ok {
			state["velocity."+strconv.Itoa(idx)] = v.Clone()
		}
	})
	return state
}

// LoadStateDict restores velocity buffers.
func (s *SGD) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	params := s.indexed()
	for key, v := range stateDict {
		idxStr, ok := strings.CutPrefix(key, "velocity.")
		if !ok {
			return fmt.Errorf("unexpected SGD state key %q", key)
		}
		p, err := lookup(params, idxStr)
		if err != nil {
			return err
		}
		if !v.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("velocity for %s: shape %v, want %v", p.Name(), v.Shape(), p.Tensor().Shape())
		}
		s.velocities[p] = v.Clone().To(p.Device())
	}
	return nil
}

func (g *paramGroups) indexed() []*nn.Parameter {
	var out []*nn.Parameter
	g.each(func(_ int, p *nn.Parameter, _ float32) {
		out = append(out, p)
	})
	return out
}

func lookup(params []*nn.Parameter, idxStr string) (*nn.Parameter, error) {
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 || idx >= len(params) {
		return nil, fmt.Errorf("parameter index %q out of range [0, %d)", idxStr, len(params))
	}
	return params[idx], nil
}
