package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig matches every error returned while initializing a planner.
var ErrInvalidConfig = errors.New("invalid compaction planner configuration")

// ErrNoExecutors is returned when neither executors nor queues are defined.
var ErrNoExecutors = &ConfigError{Msg: "No defined executors or queues for this planner"}

// ConfigError describes one invalid planner option.
type ConfigError struct {
	Msg string
	Err error
}

func newConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// UnknownFieldsError lists every unrecognized field of one executor or queue
// element, sorted by name.
type UnknownFieldsError struct {
	Option string
	Fields []string
}

func (e *UnknownFieldsError) Error() string {
	return fmt.Sprintf("Invalid fields: [%s] provided for %s", strings.Join(e.Fields, ", "), e.Option)
}

func (e *UnknownFieldsError) Is(target error) bool {
	return target == ErrInvalidConfig
}
