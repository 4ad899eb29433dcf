package config

import (
	"errors"
	"fmt"
)

var (
	errRequired = errors.New("is required")
	errPositive = errors.New("must be positive")
)

// ConfigurationError reports a missing or invalid prerequisite. It is always
// fatal and raised before any page is touched.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
