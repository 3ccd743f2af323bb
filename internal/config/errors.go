package config

import (
	"errors"
	"fmt"
)

var (
	// ErrParse marks a value that cannot be coerced to the type of its setting.
	ErrParse = errors.New("config: parse error")
	// ErrValidation marks settings that parsed but violate a field rule.
	ErrValidation = errors.New("config: validation error")
)

// ParseError reports the offending key and its raw value.
type ParseError struct {
	Key    string
	Value  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %s", e.Value, e.Key, e.Reason)
}

// Is lets callers match any ParseError with errors.Is(err, ErrParse).
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// ValidationError wraps the field-level failures reported by the struct validator.
type ValidationError struct {
	Fields []FieldError
}

// FieldError is one failed rule.
type FieldError struct {
	Field string
	Rule  string
	Value any
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid configuration"
	}
	msg := "invalid configuration:"
	for i, f := range e.Fields {
		if i > 0 {
			msg += ";"
		}
		msg += fmt.Sprintf(" %s failed %q (value %v)", f.Field, f.Rule, f.Value)
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
