package lightning

import (
	"fmt"
	"strconv"

	"github.com/born-ml/lightning/internal/optim"
)

type clipOptions struct {
	val     float64
	hasVal  bool
	algo    optim.ClipAlgorithm
	hasAlgo bool
}

// ClipOption overrides one clipping setting in ClipGradients.
type ClipOption func(*clipOptions)

// WithClipValue sets the clip value explicitly.
func WithClipValue(v float64) ClipOption {
	return func(o *clipOptions) {
		o.val, o.hasVal = v, true
	}
}

// WithClipAlgorithm sets the clip algorithm explicitly.
func WithClipAlgorithm(a optim.ClipAlgorithm) ClipOption {
	return func(o *clipOptions) {
		o.algo, o.hasAlgo = a, true
	}
}

// ClipGradients clips the gradients of opt's parameters.
//
// Settings not passed as options fall back to the trainer's. Passing a value
// that differs from one the trainer was configured with fails with a
// ConfigError naming both. A clip value of zero disables clipping; the
// algorithm defaults to norm.
func (m *Module) ClipGradients(opt optim.Optimizer, opts ...ClipOption) error {
	var o clipOptions
	for _, fn := range opts {
		fn(&o)
	}

	var cfgVal float64
	var cfgAlgo optim.ClipAlgorithm
	var hasCfgVal, hasCfgAlgo bool
	if m.trainer != nil {
		cfgVal, hasCfgVal = m.trainer.GradientClipVal()
		cfgAlgo, hasCfgAlgo = m.trainer.GradientClipAlgorithm()
	}

	val := cfgVal
	if o.hasVal {
		if hasCfgVal && cfgVal != o.val {
			return &ConfigError{
				Field:      "gradient_clip_val",
				Configured: formatFloat(cfgVal),
				Passed:     formatFloat(o.val),
			}
		}
		val = o.val
	}

	algo := optim.ClipNorm
	if hasCfgAlgo {
		algo = cfgAlgo
	}
	if o.hasAlgo {
		if hasCfgAlgo && cfgAlgo != o.algo {
			return &ConfigError{
				Field:      "gradient_clip_algorithm",
				Configured: quote(cfgAlgo),
				Passed:     quote(o.algo),
			}
		}
		algo = o.algo
	}

	if val == 0 {
		return nil
	}
	if val < 0 {
		return fmt.Errorf("%w: gradient_clip_val must be non-negative, got %s", ErrMisconfiguration, formatFloat(val))
	}
	if _, err := optim.ParseClipAlgorithm(string(algo)); err != nil {
		return fmt.Errorf("%w: %w", ErrMisconfiguration, err)
	}

	params := optim.Params(opt)
	switch algo {
	case optim.ClipValue:
		optim.ClipGradValue(params, val)
	default:
		optim.ClipGradNorm(params, val)
	}
	return nil
}

// ConfigureGradientClipping is the default clipping hook: clip with the
// trainer's settings.
func (m *Module) ConfigureGradientClipping(opt optim.Optimizer, _ int, clipVal float64, algorithm optim.ClipAlgorithm) error {
	var opts []ClipOption
	if clipVal != 0 {
		opts = append(opts, WithClipValue(clipVal))
	}
	if algorithm != "" {
		opts = append(opts, WithClipAlgorithm(algorithm))
	}
	return m.ClipGradients(opt, opts...)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func quote(a optim.ClipAlgorithm) string {
	return "'" + string(a) + "'"
}
