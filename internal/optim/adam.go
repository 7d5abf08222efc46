package optim

import (
	"fmt"
	"math"
	"strings"

	"github.com/born-ml/lightning/internal/nn"
	"github.com/born-ml/lightning/internal/tensor"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient       // First moment
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²      // Second moment
//	m_hat = m_t / (1 - beta1^t)                        // Bias correction
//	v_hat = v_t / (1 - beta2^t)                        // Bias correction
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)  // Parameter update
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	paramGroups
	beta1 float32
	beta2 float32
	eps   float32
	t     int                              // Timestep for bias correction
	m     map[*nn.Parameter]*tensor.Tensor // First moment estimates
	v     map[*nn.Parameter]*tensor.Tensor // Second moment estimates
}

// AdamConfig holds configuration for Adam optimizer.
type AdamConfig struct {
	LR    float32    // Learning rate (default: 0.001)
	Betas [2]float32 // Coefficients for computing running averages (default: [0.9, 0.999])
	Eps   float32    // Term for numerical stability (default: 1e-8)
}

// NewAdam creates a new Adam optimizer over a single parameter group.
// Zero-valued config fields take their defaults.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}

	return &Adam{
		paramGroups: newParamGroups(params, config.LR),
		beta1:       config.Betas[0],
		beta2:       config.Betas[1],
		eps:         config.Eps,
		m:           make(map[*nn.Parameter]*tensor.Tensor),
		v:           make(map[*nn.Parameter]*tensor.Tensor),
	}
}

// Step performs a single Adam update. Parameters with no gradient are skipped.
func (a *Adam) Step() {
	a.t++

	biasCorrection1 := float32(1.0 - math.Pow(float64(a.beta1), float64(a.t)))
	biasCorrection2 := float32(1.0 - math.Pow(float64(a.beta2), float64(a.t)))

	a.each(func(_ int, p *nn.Parameter, lr float32) {
		grad := p.Grad()
		if grad == nil {
			return
		}

		m, ok := a.m[p]
		if !ok {
			m = tensor.Zeros(p.Tensor().Shape()).To(p.Device())
			a.m[p] = m
		}
		v, ok := a.v[p]
		if !ok {
			v = tensor.Zeros(p.Tensor().Shape()).To(p.Device())
			a.v[p] = v
		}

		g := grad.Data()
		md := m.Data()
		vd := v.Data()
		pd := p.Tensor().Data()
		for i := range pd {
			md[i] = a.beta1*md[i] + (1-a.beta1)*g[i]
			vd[i] = a.beta2*vd[i] + (1-a.beta2)*g[i]*g[i]
			mHat := md[i] / biasCorrection1
			vHat := vd[i] / biasCorrection2
			pd[i] -= lr * mHat / (float32(math.Sqrt(float64(vHat))) + a.eps)
		}
	})
}

// Timestep returns the number of steps taken.
func (a *Adam) Timestep() int {
	return a.t
}

// StateDict exports "m.{i}", "v.{i}" and a scalar "step".
func (a *Adam) StateDict() map[string]*tensor.Tensor {
	state := map[string]*tensor.Tensor{
		"step": tensor.Full(tensor.Shape{1}, float32(a.t)),
	}
	a.each(func(idx int, p *nn.Parameter, _ float32) {
		if m, ok := a.m[p]; ok {
			state[fmt.Sprintf("m.%d", idx)] = m.Clone()
		}
		if v, ok := a.v[p]; ok {
			state[fmt.Sprintf("v.%d", idx)] = v.Clone()
		}
	})
	return state
}

// LoadStateDict restores moments and the timestep.
func (a *Adam) LoadStateDict(stateDict map[string]*tensor.Tensor) error {
	params := a.indexed()
	for key, buf := range stateDict {
		if key == "step" {
			a.t = int(buf.Data()[0])
			continue
		}

		var target map[*nn.Parameter]*tensor.Tensor
		var idxStr string
		switch {
		case strings.HasPrefix(key, "m."):
			target, idxStr = a.m, key[2:]
		case strings.HasPrefix(key, "v."):
			target, idxStr = a.v, key[2:]
		default:
			return fmt.Errorf("unexpected Adam state key %q", key)
		}

		p, err := lookup(params, idxStr)
		if err != nil {
			return err
		}
		if !buf.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("%s for %s: shape %v, want %v", key, p.Name(), buf.Shape(), p.Tensor().Shape())
		}
		target[p] = buf.Clone().To(p.Device())
	}
	return nil
}
