// Package service provides business logic layer implementations.
package service

import (
	"context"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

// CorrelationResolver maps a notification id to the destination registered for it.
type CorrelationResolver interface {
	Resolve(ctx context.Context, notificationID string) (string, error)
}

// EnvelopeBuilder produces the serialized result envelope sent to consumers.
type EnvelopeBuilder interface {
	Build(notificationID, objectID, payload string) ([]byte, error)
	ContentType() string
}

// Transmitter performs the outbound POST and reports the response status.
type Transmitter interface {
	Post(ctx context.Context, url, contentType string, body []byte) (int, error)
}

// DeliveryRelay resolves, builds and transmits a single notification.
type DeliveryRelay interface {
	// Deliver never returns an error and never panics; the outcome is informational.
	Deliver(ctx context.Context, notification *model.Notification) *model.DeliveryOutcome
}

// CallbackService answers the exchange's sendResponse operation.
type CallbackService interface {
	// SendResponse always returns model.AckStatus.
	SendResponse(ctx context.Context, id, oid, response string) int
}

// RegistrationService records callback destinations ahead of notifications.
type RegistrationService interface {
	Register(ctx context.Context, registration *model.CallbackRegistration) error
}
