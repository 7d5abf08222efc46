package lightning

import (
	"github.com/born-ml/lightning/internal/optim"
	"github.com/born-ml/lightning/internal/tensor"
)

// Batch is one step's worth of data.
type Batch struct {
	Input  *tensor.Tensor
	Target *tensor.Tensor
}

// To returns the batch with both tensors placed on device.
func (b Batch) To(device tensor.Device) Batch {
	out := b
	if b.Input != nil {
		out.Input = b.Input.To(device)
	}
	if b.Target != nil {
		out.Target = b.Target.To(device)
	}
	return out
}

// StepOutput is what a training step hands back to the trainer.
type StepOutput struct {
	Loss float32

	// Backward propagates the gradient of Loss into the parameters.
	// The trainer calls it once; nil means the step produced no gradients.
	Backward func()
}

// TrainingModule is the contract between a user model and the trainer.
//
// Embedding Module provides Base, ConfigureGradientClipping and
// OptimizerStep; the model supplies the rest.
type TrainingModule interface {
	Base() *Module

	// ConfigureOptimizers returns the optimizers to step, in index order.
	ConfigureOptimizers() ([]optim.Optimizer, error)

	// TrainingStep runs the forward pass for one optimizer. Returning a nil
	// output skips backward for this optimizer and batch.
	TrainingStep(batch Batch, batchIdx, optimizerIdx int) (*StepOutput, error)

	GradientClippingConfigurer
	OptimizerStepper
}

// GradientClippingConfigurer is called once per optimizer step, after
// backward and before the update, with the trainer's clip settings. A zero
// clipVal or empty algorithm means the trainer has none configured.
type GradientClippingConfigurer interface {
	ConfigureGradientClipping(opt optim.Optimizer, optimizerIdx int, clipVal float64, algorithm optim.ClipAlgorithm) error
}

// OptimizerStepper performs the update. closure runs the training step,
// backward and gradient clipping, and must be called exactly once.
type OptimizerStepper interface {
	OptimizerStep(epoch, batchIdx int, opt optim.Optimizer, optimizerIdx int, closure func() error) error
}

// TestStepper is implemented by models that can be evaluated with Trainer.Test.
type TestStepper interface {
	TestStep(batch Batch, batchIdx int) (map[string]float64, error)
}

// PredictStepper is implemented by models usable with Trainer.Predict.
type PredictStepper interface {
	PredictStep(batch Batch, batchIdx int) (*tensor.Tensor, error)
}

// TrainEpochEnder is called after the last batch of every training epoch.
type TrainEpochEnder interface {
	OnTrainEpochEnd() error
}

// OptimizerStep is the default update: run the closure, then step.
func (m *Module) OptimizerStep(_, _ int, opt optim.Optimizer, _ int, closure func() error) error {
	if err := closure(); err != nil {
		return err
	}
	opt.Step()
	return nil
}
