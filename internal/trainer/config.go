package trainer

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/lightning/internal/accelerator"
	"github.com/born-ml/lightning/internal/lightning"
	"github.com/born-ml/lightning/internal/optim"
	"gopkg.in/yaml.v3"
)

// Config configures a Trainer. Zero fields take the defaults noted below.
type Config struct {
	MaxEpochs             int `yaml:"max_epochs"`              // Default: 1
	LimitTrainBatches     int `yaml:"limit_train_batches"`     // 0 runs every batch
	LimitTestBatches      int `yaml:"limit_test_batches"`      // 0 runs every batch
	AccumulateGradBatches int `yaml:"accumulate_grad_batches"` // Default: 1

	// GradientClipVal is nil when clipping is left to the model.
	GradientClipVal       *float64            `yaml:"gradient_clip_val"`
	GradientClipAlgorithm optim.ClipAlgorithm `yaml:"gradient_clip_algorithm"`

	Accelerator    string `yaml:"accelerator"`      // Default: "auto"
	Devices        int    `yaml:"devices"`          // Default: 1
	DefaultRootDir string `yaml:"default_root_dir"` // Default: "."

	// FastDevRun runs a single batch of a single epoch.
	FastDevRun bool `yaml:"fast_dev_run"`

	GlobalRank int `yaml:"global_rank"`
	LocalRank  int `yaml:"local_rank"`
}

// DefaultConfig returns the configuration used for zero fields.
func DefaultConfig() Config {
	return Config{
		MaxEpochs:             1,
		AccumulateGradBatches: 1,
		Accelerator:           "auto",
		Devices:               1,
		DefaultRootDir:        ".",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxEpochs == 0 {
		c.MaxEpochs = d.MaxEpochs
	}
	if c.AccumulateGradBatches == 0 {
		c.AccumulateGradBatches = d.AccumulateGradBatches
	}
	if c.Accelerator == "" {
		c.Accelerator = d.Accelerator
	}
	if c.Devices == 0 {
		c.Devices = d.Devices
	}
	if c.DefaultRootDir == "" {
		c.DefaultRootDir = d.DefaultRootDir
	}
	if c.FastDevRun {
		c.MaxEpochs = 1
		c.LimitTrainBatches = 1
		c.LimitTestBatches = 1
	}
	return c
}

// Validate reports every invalid field. The returned error wraps
// lightning.ErrMisconfiguration.
func (c Config) Validate() error {
	var errs []error
	field := func(name string, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s: %s", lightning.ErrMisconfiguration, name, fmt.Sprintf(format, args...)))
	}

	if c.MaxEpochs < 0 {
		field("max_epochs", "must be >= 0, got %d", c.MaxEpochs)
	}
	if c.LimitTrainBatches < 0 {
		field("limit_train_batches", "must be >= 0, got %d", c.LimitTrainBatches)
	}
	if c.LimitTestBatches < 0 {
		field("limit_test_batches", "must be >= 0, got %d", c.LimitTestBatches)
	}
	if c.AccumulateGradBatches < 0 {
		field("accumulate_grad_batches", "must be >= 0, got %d", c.AccumulateGradBatches)
	}
	if c.GradientClipVal != nil && *c.GradientClipVal < 0 {
		field("gradient_clip_val", "must be >= 0, got %g", *c.GradientClipVal)
	}
	if c.GradientClipAlgorithm != "" {
		if _, err := optim.ParseClipAlgorithm(string(c.GradientClipAlgorithm)); err != nil {
			field("gradient_clip_algorithm", "%v", err)
		}
	}
	if _, err := accelerator.Resolve(c.Accelerator, c.Devices); err != nil {
		field("accelerator", "%v", err)
	}
	if c.GlobalRank < 0 || c.LocalRank < 0 {
		field("rank", "global_rank and local_rank must be >= 0, got %d and %d", c.GlobalRank, c.LocalRank)
	}
	return errors.Join(errs...)
}

// LoadConfig reads a Config from a YAML file. Unknown keys are rejected and
// an empty file yields the zero Config.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
