package loggers

import (
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	metricsFile = "metrics.csv"
	hparamsFile = "hparams.yaml"
)

// CSVConfig holds configuration for CSVLogger.
type CSVConfig struct {
	RootDir string // Parent directory of all experiments (default: ".")
	Name    string // Experiment name (default: "lightning_logs")
	Version string // Run version; empty picks the next free "version_<n>"
}

// CSVLogger writes metrics to <root>/<name>/<version>/metrics.csv and
// hyperparameters to hparams.yaml in the same directory.
//
// Metrics are buffered and the CSV is rewritten on Save and Finalize, so the
// header always covers every metric seen so far.
type CSVLogger struct {
	name    string
	version string
	dir     string

	mu          sync.Mutex
	rows        []Record
	hyperparams map[string]any
	finalized   bool
}

// NewCSVLogger creates the run directory and returns the logger.
func NewCSVLogger(cfg CSVConfig) (*CSVLogger, error) {
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	if cfg.Name == "" {
		cfg.Name = "lightning_logs"
	}

	expDir := filepath.Join(cfg.RootDir, cfg.Name)
	if cfg.Version == "" {
		v, err := nextVersion(expDir)
		if err != nil {
			return nil, err
		}
		cfg.Version = "version_" + strconv.Itoa(v)
	}

	dir := filepath.Join(expDir, cfg.Version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &CSVLogger{
		name:        cfg.Name,
		version:     cfg.Version,
		dir:         dir,
		hyperparams: map[string]any{},
	}, nil
}

// nextVersion returns one past the highest existing version_<n> directory.
func nextVersion(expDir string) (int, error) {
	entries, err := os.ReadDir(expDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", expDir, err)
	}

	next := 0
	for _, e := range entries {
		n, ok := strings.CutPrefix(e.Name(), "version_")
		if !e.IsDir() || !ok {
			continue
		}
		if v, err := strconv.Atoi(n); err == nil && v >= next {
			next = v + 1
		}
	}
	return next, nil
}

func (c *CSVLogger) Name() string    { return c.name }
func (c *CSVLogger) Version() string { return c.version }

// LogDir returns the run directory.
func (c *CSVLogger) LogDir() string { return c.dir }

// LogMetrics buffers a row.
func (c *CSVLogger) LogMetrics(metrics map[string]float64, step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return ErrFinalized
	}
	c.rows = append(c.rows, Record{Step: step, Metrics: maps.Clone(metrics)})
	return nil
}

// LogHyperparams merges params and rewrites hparams.yaml.
func (c *CSVLogger) LogHyperparams(params map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return ErrFinalized
	}
	maps.Copy(c.hyperparams, params)

	out, err := yaml.Marshal(c.hyperparams)
	if err != nil {
		return fmt.Errorf("failed to encode hyperparameters: %w", err)
	}
	if err := os.WriteFile(filepath.Join(c.dir, hparamsFile), out, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", hparamsFile, err)
	}
	return nil
}

// Save rewrites metrics.csv with every buffered row.
func (c *CSVLogger) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save()
}

// Finalize saves and closes the logger.
func (c *CSVLogger) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finalized {
		return nil
	}
	c.finalized = true
	return c.save()
}

func (c *CSVLogger) save() error {
	keys := map[string]struct{}{}
	for _, r := range c.rows {
		for k := range r.Metrics {
			keys[k] = struct{}{}
		}
	}
	columns := slices.Sorted(maps.Keys(keys))

	f, err := os.Create(filepath.Join(c.dir, metricsFile))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", metricsFile, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"step"}, columns...)); err != nil {
		return err
	}
	for _, r := range c.rows {
		rec := make([]string, 0, len(columns)+1)
		rec = append(rec, strconv.Itoa(r.Step))
		for _, col := range columns {
			v, ok := r.Metrics[col]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", metricsFile, err)
	}
	return f.Close()
}
