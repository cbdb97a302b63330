// Package fuzzyflake - errors.go provides sentinel errors and structured
// error types for construction and query parsing.

package fuzzyflake

import (
	"errors"
	"fmt"
)

// Standard errors, usable with errors.Is().
var (
	// ErrInvalidConfig is returned (wrapped in a ConfigError) when Index
	// construction parameters fail validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidFuzzyID is returned (wrapped in a ParseError) when a
	// fuzzy query string cannot be understood as part of an ID.
	ErrInvalidFuzzyID = errors.New("invalid fuzzy ID")
)

// ConfigError reports which construction parameter failed validation
// and why.
//
// Example usage:
//
//	idx, err := fuzzyflake.New(30)
//	var cfgErr *fuzzyflake.ConfigError
//	if errors.As(err, &cfgErr) {
//	    log.Logf(ctx, logger, log.Error, "bad index config: %s=%s (%s)",
//	        cfgErr.Field, cfgErr.Value, cfgErr.Reason)
//	}
type ConfigError struct {
	// Field is the name of the configuration field that failed validation.
	Field string

	// Value is the invalid value, as a string for logging.
	Value string

	// Reason is a human-readable explanation of the failure.
	Reason string

	// Constraint describes the valid range.
	Constraint string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s=%s (%s) - %s",
		e.Field, e.Value, e.Reason, e.Constraint)
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

func newConfigError(field, value, reason, constraint string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason, Constraint: constraint}
}

// ParseError reports a fuzzy query string that could not be parsed.
type ParseError struct {
	// Input is the rejected string.
	Input string

	// Reason is a human-readable explanation of the rejection.
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid fuzzy ID %q: %s", e.Input, e.Reason)
}

// Unwrap returns ErrInvalidFuzzyID for errors.Is() compatibility.
func (e *ParseError) Unwrap() error {
	return ErrInvalidFuzzyID
}
