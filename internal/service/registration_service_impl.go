package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/repository"
)

// RegistrationServiceImpl implements RegistrationService.
type RegistrationServiceImpl struct {
	store   repository.CorrelationWriter
	channel string
	ttl     time.Duration
}

// NewRegistrationServiceImpl creates a service writing registrations to channel with ttl.
func NewRegistrationServiceImpl(store repository.CorrelationWriter, channel string, ttl time.Duration) RegistrationService {
	return &RegistrationServiceImpl{
		store:   store,
		channel: channel,
		ttl:     ttl,
	}
}

// Register validates and stores a registration, replacing an earlier one for the same id.
func (s *RegistrationServiceImpl) Register(ctx context.Context, registration *model.CallbackRegistration) error {
	if err := registration.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(registration)
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}

	record := &model.CorrelationRecord{
		Key:     registration.ID,
		Channel: s.channel,
		Body:    body,
	}

	if err := s.store.Put(ctx, record, s.ttl); err != nil {
		return fmt.Errorf("failed to store registration %q: %w", registration.ID, err)
	}

	return nil
}
