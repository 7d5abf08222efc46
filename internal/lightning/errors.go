package lightning

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotAttached is returned when a module needs its trainer before one is attached.
	ErrNotAttached = errors.New("module is not attached to a `Trainer`")

	// ErrMisconfiguration marks settings that contradict each other or are invalid.
	ErrMisconfiguration = errors.New("misconfiguration")

	// ErrStateDictMismatch is returned by strict loads with missing or unexpected keys.
	ErrStateDictMismatch = errors.New("state dict mismatch")
)

// ConfigError reports a value passed at call time that conflicts with the
// value the trainer was configured with.
type ConfigError struct {
	Field      string // Setting name (e.g., "gradient_clip_val")
	Configured string // Value set on the trainer, formatted
	Passed     string // Value passed to the call, formatted
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: you have set `Trainer(%s=%s)` and have passed `clip_gradients(%s=%s)`; use only one of them",
		ErrMisconfiguration, e.Field, e.Configured, e.Field, e.Passed)
}

// Unwrap makes errors.Is(err, ErrMisconfiguration) hold.
func (e *ConfigError) Unwrap() error {
	return ErrMisconfiguration
}
