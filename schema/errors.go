package schema

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Sentinel errors shared by every layer.
var (
	ErrUnknownFramework    = errors.New("unknown framework")
	ErrUnknownDimension    = errors.New("unknown dimension")
	ErrWeightOutOfRange    = errors.New("weight out of range")
	ErrInvalidThresholds   = errors.New("invalid thresholds")
	ErrConfigNotFound      = errors.New("framework configuration not found")
	ErrVersionConflict     = errors.New("framework configuration was modified concurrently")
	ErrMalformedPayload    = errors.New("malformed enrichment payload")
	ErrPersistenceDisabled = errors.New("persistence backend is disabled")
)

// InvalidConfigurationError reports every violation found in a framework
// configuration. Scoring is refused while this error is outstanding.
type InvalidConfigurationError struct {
	Framework FrameworkID
	Err       error
}

func (e *InvalidConfigurationError) Error() string {
	if e.Framework == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid %s configuration: %v", e.Framework, e.Err)
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}

// Violations returns each individual violation message.
func (e *InvalidConfigurationError) Violations() []string {
	errs := multierr.Errors(e.Err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// UnbalancedWeightsError is advisory: the requested weight was applied but
// some other dimensions had to be clamped to keep the total at 100.
// Weights carries the valid set that was produced.
type UnbalancedWeightsError struct {
	Dimension DimensionKey
	Requested int
	Clamped   []DimensionKey
	Weights   WeightSet
}

func (e *UnbalancedWeightsError) Error() string {
	names := make([]string, 0, len(e.Clamped))
	for _, k := range e.Clamped {
		names = append(names, string(k))
	}
	return fmt.Sprintf("setting %s to %d required clamping %s", e.Dimension, e.Requested, strings.Join(names, ", "))
}

// PerContactFailure describes a contact that could not be scored in a batch.
type PerContactFailure struct {
	ContactID string
	Err       error
}

func (e *PerContactFailure) Error() string {
	if e.ContactID == "" {
		return fmt.Sprintf("contact: %v", e.Err)
	}
	return fmt.Sprintf("contact %s: %v", e.ContactID, e.Err)
}

func (e *PerContactFailure) Unwrap() error {
	return e.Err
}

// IsInvalidConfiguration reports whether err carries an InvalidConfigurationError.
func IsInvalidConfiguration(err error) bool {
	var target *InvalidConfigurationError
	return errors.As(err, &target)
}

// AsUnbalanced extracts an UnbalancedWeightsError from err.
func AsUnbalanced(err error) (*UnbalancedWeightsError, bool) {
	var target *UnbalancedWeightsError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}
