package nn

import (
	"github.com/born-ml/lightning/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters track gradients only while RequiresGrad is true. Optimizers
// freeze and unfreeze parameters through SetRequiresGrad, so identity matters:
// a Parameter is always handled by pointer and may be shared between layers
// and optimizers.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	weight.SetRequiresGrad(false) // frozen: backward leaves Grad() untouched
type Parameter struct {
	name         string
	tensor       *tensor.Tensor
	grad         *tensor.Tensor
	requiresGrad bool
}

// NewParameter creates a new trainable parameter with RequiresGrad set.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{
		name:         name,
		tensor:       t,
		requiresGrad: true,
	}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// Device returns where the parameter currently lives.
func (p *Parameter) Device() tensor.Device {
	return p.tensor.Device()
}

// RequiresGrad reports whether backward passes accumulate into Grad.
func (p *Parameter) RequiresGrad() bool {
	return p.requiresGrad
}

// SetRequiresGrad enables or disables gradient tracking.
func (p *Parameter) SetRequiresGrad(v bool) {
	p.requiresGrad = v
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been accumulated since the last ZeroGrad.
func (p *Parameter) Grad() *tensor.Tensor {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter) SetGrad(grad *tensor.Tensor) {
	p.grad = grad
}

// AccumulateGrad adds g into the parameter gradient. It is a no-op while
// RequiresGrad is false.
func (p *Parameter) AccumulateGrad(g *tensor.Tensor) {
	if !p.requiresGrad {
		return
	}
	if p.grad == nil {
		p.grad = g.Clone().To(p.tensor.Device())
		return
	}
	p.grad.AddScaled(g, 1)
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}

// To moves the parameter and its gradient to device in place. The Parameter
// pointer stays valid, so optimizers holding it see the new placement.
func (p *Parameter) To(device tensor.Device) {
	p.tensor = p.tensor.To(device)
	if p.grad != nil {
		p.grad = p.grad.To(device)
	}
}
