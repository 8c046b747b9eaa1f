package model

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordNotFound is returned by correlation stores when no record exists for a key.
	ErrRecordNotFound = errors.New("correlation record not found")
	// ErrEmptyNotificationID is returned when a notification id is empty.
	ErrEmptyNotificationID = errors.New("notification id is required")
	// ErrNotRegistered is returned when no callback registration exists for a notification id.
	ErrNotRegistered = errors.New("callback not registered")
	// ErrMalformedRegistration is returned when a registration exists but its destination cannot be read.
	ErrMalformedRegistration = errors.New("malformed callback registration")
	// ErrEnvelopeConstruction is returned when a result envelope cannot be serialized.
	ErrEnvelopeConstruction = errors.New("envelope construction failed")
	// ErrNotDelivered is returned when the consumer did not accept the envelope.
	ErrNotDelivered = errors.New("result not delivered")
	// ErrUnexpectedInternal wraps panics and other failures outside the known taxonomy.
	ErrUnexpectedInternal = errors.New("unexpected internal failure")
	// ErrInvalidRegistration is returned when a registration request is incomplete or has a bad destination.
	ErrInvalidRegistration = errors.New("invalid callback registration")
)

// NotDeliveredError carries the status observed from the consumer, or the
// transport error when no status was received.
type NotDeliveredError struct {
	StatusCode int
	Err        error
}

func (e *NotDeliveredError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", ErrNotDelivered, e.Err)
	}

	return fmt.Sprintf("%s: consumer responded with HTTP status %d", ErrNotDelivered, e.StatusCode)
}

func (e *NotDeliveredError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNotDelivered, e.Err}
	}

	return []error{ErrNotDelivered}
}

// Failure kinds used as log and metric labels.
const (
	FailureNotRegistered         = "not_registered"
	FailureMalformedRegistration = "malformed_registration"
	FailureEnvelopeConstruction  = "envelope_construction_failure"
	FailureNotDelivered          = "not_delivered"
	FailureUnexpectedInternal    = "unexpected_internal_failure"
)

// FailureKind maps an error to its failure kind. Empty notification ids are
// reported as not registered since no lookup can match them.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrEmptyNotificationID):
		return FailureNotRegistered
	case errors.Is(err, ErrMalformedRegistration):
		return FailureMalformedRegistration
	case errors.Is(err, ErrEnvelopeConstruction):
		return FailureEnvelopeConstruction
	case errors.Is(err, ErrNotDelivered):
		return FailureNotDelivered
	default:
		return FailureUnexpectedInternal
	}
}
