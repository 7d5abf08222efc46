package lightning_test

import (
	"github.com/born-ml/lightning/internal/loggers"
	"github.com/born-ml/lightning/internal/optim"
)

// mockTrainer is a settable stand-in for the real trainer.
type mockTrainer struct {
	epoch, step           int
	globalRank, localRank int
	loggers               []loggers.Logger
	optimizers            []optim.Optimizer
	clipVal               *float64
	clipAlgo              optim.ClipAlgorithm
}

func (m *mockTrainer) CurrentEpoch() int             { return m.epoch }
func (m *mockTrainer) GlobalStep() int               { return m.step }
func (m *mockTrainer) GlobalRank() int               { return m.globalRank }
func (m *mockTrainer) LocalRank() int                { return m.localRank }
func (m *mockTrainer) Loggers() []loggers.Logger     { return m.loggers }
func (m *mockTrainer) Optimizers() []optim.Optimizer { return m.optimizers }

func (m *mockTrainer) GradientClipVal() (float64, bool) {
	if m.clipVal == nil {
		return 0, false
	}
	return *m.clipVal, true
}

func (m *mockTrainer) GradientClipAlgorithm() (optim.ClipAlgorithm, bool) {
	return m.clipAlgo, m.clipAlgo != ""
}

func ptr[T any](v T) *T {
	return &v
}
