package lightning

import (
	"maps"

	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/optim"
)

// ToggleOptimizer restricts gradient tracking to the parameters of opt for
// the duration of one optimizer step.
//
// Every parameter of every configured optimizer that opt does not own is
// frozen, and the RequiresGrad value it had before is remembered. A
// parameter reached through several optimizers is saved once, on first
// sight. Parameters owned by opt keep whatever RequiresGrad they already
// had. With a single configured optimizer nothing changes.
//
// If opt is nil the optimizer at optimizerIdx is used.
func (m *Module) ToggleOptimizer(opt optim.Optimizer, optimizerIdx int) error {
	optimizers, err := m.Optimizers()
	if err != nil {
		return err
	}
	if opt == nil {
		opt = optimizers[optimizerIdx]
	}
	if len(optimizers) < 2 {
		return nil
	}

	keep := optim.ParamSet(opt)
	state := make(map[*nn.Parameter]bool)
	for _, o := range optimizers {
		for _, p := range optim.Params(o) {
			if _, ok := keep[p]; ok {
				continue
			}
			if _, saved := state[p]; saved {
				continue
			}
			state[p] = p.RequiresGrad()
			p.SetRequiresGrad(false)
		}
	}
	m.paramRequiresGradState = state
	return nil
}

// UntoggleOptimizer undoes the matching ToggleOptimizer call. Saved values
// are restored except for parameters owned by the optimizer at
// optimizerIdx, which were never touched. The saved state is always
// cleared.
func (m *Module) UntoggleOptimizer(optimizerIdx int) error {
	optimizers, err := m.Optimizers()
	if err != nil {
		return err
	}

	own := optim.ParamSet(optimizers[optimizerIdx])
	for p, requiresGrad := range m.paramRequiresGradState {
		if _, ok := own[p]; ok {
			continue
		}
		p.SetRequiresGrad(requiresGrad)
	}
	m.paramRequiresGradState = nil
	return nil
}

// ToggleState returns a copy of the RequiresGrad values saved by the active
// toggle. It is empty when no optimizer is toggled.
func (m *Module) ToggleState() map[*nn.Parameter]bool {
	if m.paramRequiresGradState == nil {
		return map[*nn.Parameter]bool{}
	}
	return maps.Clone(m.paramRequiresGradState)
}
