package lightning

import (
	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/optim"
)

// Trainer is what a Module reads from the orchestrator driving it.
//
// The trainer owns the module. A module keeps only a non-owning handle that
// the trainer sets on attach and clears on teardown; nothing in this package
// retains the trainer beyond that window.
type Trainer interface {
	CurrentEpoch() int
	GlobalStep() int
	GlobalRank() int
	LocalRank() int
	Loggers() []loggers.Logger

	// Optimizers returns the optimizers configured for the current fit.
	Optimizers() []optim.Optimizer

	// GradientClipVal returns the configured clip value, if any.
	GradientClipVal() (float64, bool)

	// GradientClipAlgorithm returns the configured clip algorithm, if any.
	GradientClipAlgorithm() (optim.ClipAlgorithm, bool)
}
