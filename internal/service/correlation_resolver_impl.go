package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/repository"
)

// CorrelationResolverImpl implements CorrelationResolver over a correlation store channel.
type CorrelationResolverImpl struct {
	store   repository.CorrelationReader
	channel string
}

// NewCorrelationResolverImpl creates a resolver reading registrations from channel.
func NewCorrelationResolverImpl(store repository.CorrelationReader, channel string) CorrelationResolver {
	return &CorrelationResolverImpl{
		store:   store,
		channel: channel,
	}
}

// Resolve returns the destination URL registered for notificationID.
func (r *CorrelationResolverImpl) Resolve(ctx context.Context, notificationID string) (string, error) {
	if notificationID == "" {
		return "", model.ErrEmptyNotificationID
	}

	record, err := r.store.Get(ctx, notificationID, r.channel)
	if err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: no registration for %q in %s", model.ErrNotRegistered, notificationID, r.channel)
		}

		return "", fmt.Errorf("failed to look up registration for %q: %w", notificationID, err)
	}

	var registration model.CallbackRegistration
	if err := json.Unmarshal(record.Body, &registration); err != nil {
		return "", fmt.Errorf("%w: cannot decode registration for %q in %s: %v",
			model.ErrMalformedRegistration, notificationID, r.channel, err)
	}

	if registration.DestinationURL == "" {
		return "", fmt.Errorf("%w: registration for %q in %s has no destinationUrl",
			model.ErrMalformedRegistration, notificationID, r.channel)
	}

	return registration.DestinationURL, nil
}
