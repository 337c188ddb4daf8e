package chatrelay

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrSkip is the cause of errors returned by a Normalizer for events that aren't messages to
// relay (pings, typing indicators, deletions, etc). Those are dropped silently
var ErrSkip = errors.New("skip")

// Skip returns an error with cause ErrSkip
func Skip(format string, args ...interface{}) error {
	return errors.Wrapf(ErrSkip, format, args...)
}

// IsSkip returns true if err is caused by ErrSkip
func IsSkip(err error) bool {
	return err != nil && errors.Cause(err) == ErrSkip
}

// ParseError is returned by a Normalizer for malformed events
type ParseError struct {
	Reason string
	Raw    interface{}
}

// NewParseError returns a new ParseError
func NewParseError(raw interface{}, format string, args ...interface{}) *ParseError {
	return &ParseError{Reason: fmt.Sprintf(format, args...), Raw: raw}
}

// Error implements error
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Reason)
}

// IsParseError returns true if err is caused by a ParseError
func IsParseError(err error) bool {
	_, ok := errors.Cause(err).(*ParseError)
	return ok
}

// DeliveryError is returned by a Deliverer when sending or uploading fails. Deliveries
// aren't retried
type DeliveryError struct {
	Task  DeliveryTask
	Step  string
	Cause error
}

// NewDeliveryError returns a new DeliveryError for the task and the step that failed
func NewDeliveryError(task DeliveryTask, step string, cause error) *DeliveryError {
	return &DeliveryError{Task: task, Step: step, Cause: cause}
}

// Error implements error
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s failed on %s: %v", e.Task, e.Step, e.Cause)
}
