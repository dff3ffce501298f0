package config

import (
	"fmt"
	"strings"
)

// Error represents a configuration loading failure.
type Error struct {
	Op  string // resolve, read, parse, env
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s error: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ValidationError collects every validation problem found in a configuration.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0])
	}
	return fmt.Sprintf("configuration validation failed with %d errors:\n  - %s",
		len(e.Errors), strings.Join(e.Errors, "\n  - "))
}
