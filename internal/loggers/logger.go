// Package loggers records experiment metrics and hyperparameters.
package loggers

import (
	"errors"
	"maps"
	"sync"
)

// ErrFinalized is returned when logging to a logger that was already finalized.
var ErrFinalized = errors.New("logger already finalized")

// Logger receives metrics from a training run.
type Logger interface {
	// Name identifies the experiment.
	Name() string

	// Version identifies the run within the experiment.
	Version() string

	// LogMetrics records metric values observed at step.
	LogMetrics(metrics map[string]float64, step int) error

	// LogHyperparams records the run configuration.
	LogHyperparams(params map[string]any) error

	// Finalize flushes buffered output. Further logging fails with ErrFinalized.
	Finalize() error
}

// Record is one LogMetrics call.
type Record struct {
	Step    int
	Metrics map[string]float64
}

// MemoryLogger keeps everything in memory. It is safe for concurrent use.
type MemoryLogger struct {
	name    string
	version string

	mu          sync.Mutex
	records     []Record
	hyperparams map[string]any
	finalized   bool
}

// NewMemoryLogger creates an in-memory logger.
func NewMemoryLogger(name, version string) *MemoryLogger {
	return &MemoryLogger{name: name, version: version, hyperparams: map[string]any{}}
}

func (m *MemoryLogger) Name() string    { return m.name }
func (m *MemoryLogger) Version() string { return m.version }

// LogMetrics appends a copy of metrics.
func (m *MemoryLogger) LogMetrics(metrics map[string]float64, step int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrFinalized
	}
	m.records = append(m.records, Record{Step: step, Metrics: maps.Clone(metrics)})
	return nil
}

// LogHyperparams merges params into the stored hyperparameters.
func (m *MemoryLogger) LogHyperparams(params map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrFinalized
	}
	maps.Copy(m.hyperparams, params)
	return nil
}

// Finalize marks the logger closed.
func (m *MemoryLogger) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	return nil
}

// Records returns a copy of everything logged so far.
func (m *MemoryLogger) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Hyperparams returns a copy of the logged hyperparameters.
func (m *MemoryLogger) Hyperparams() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.hyperparams)
}

// Finalized reports whether Finalize has been called.
func (m *MemoryLogger) Finalized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finalized
}
