package rules

import (
	"errors"
	"fmt"

	"github.com/mcdev12/quizbowl/go/internal/models"
)

// ErrConfiguration is matched by every ConfigurationError.
var ErrConfiguration = errors.New("rules configuration error")

// ConfigurationError is fatal at room setup: the schema for a format is missing,
// unparseable or invalid.
type ConfigurationError struct {
	Format models.Format
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("rules schema %s: %s", e.Format, e.Reason)
	if e.Format == "" {
		msg = "rules schema: " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErr(format models.Format, reason string, err error) error {
	return &ConfigurationError{Format: format, Reason: reason, Err: err}
}
