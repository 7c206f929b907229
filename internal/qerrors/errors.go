package qerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the queue core
var (
	// ErrNotFound indicates an operation on an unknown queue item or department
	ErrNotFound = errors.New("not found")

	// ErrOutboundTimeout indicates the outbound channel call exceeded its deadline
	ErrOutboundTimeout = errors.New("outbound call timed out")
)

// ValidationError indicates malformed caller input. Surfaced as a 4xx
// equivalent by the HTTP layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a field
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidTransitionError guards the queue item state machine. Always logged,
// and the attempted mutation is a no-op on stored state.
type InvalidTransitionError struct {
	ItemID string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition for item %s: %s -> %s", e.ItemID, e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError
func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// DistributionFailure is a soft failure: the item stays WAITING and will be
// retried on the next sweep. Not surfaced to enqueue callers.
type DistributionFailure struct {
	ItemID string
	Reason string
	Err    error
}

func (e *DistributionFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("distribution failed for item %s: %s: %v", e.ItemID, e.Reason, e.Err)
	}
	return fmt.Sprintf("distribution failed for item %s: %s", e.ItemID, e.Reason)
}

func (e *DistributionFailure) Unwrap() error { return e.Err }
