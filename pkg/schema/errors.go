package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ArgError is one rejected tool argument.
type ArgError struct {
	Key    string
	Reason string
	// Value is nil when the argument was missing.
	Value any
}

func (e *ArgError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("argument %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("argument %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// ArgsError collects every rejected argument of one call.
type ArgsError struct {
	Errors []error
}

func (e *ArgsError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d invalid arguments: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ArgsError) Unwrap() []error { return e.Errors }

// ArgErrors returns the individual failures of an ArgsError, or nil.
func ArgErrors(err error) []error {
	var aggr *ArgsError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
