package registrar

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/jnst/egisz-callback-relay/internal/model"
)

// Publisher appends registrations to the stream read by Consumer. It is the
// client side for processes that issue requests to the exchange.
type Publisher struct {
	redisClient rueidis.Client
	stream      string
}

// NewPublisher creates a publisher for stream.
func NewPublisher(redisClient rueidis.Client, stream string) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		stream:      stream,
	}
}

// Publish validates registration and adds it to the stream, returning the entry id.
func (p *Publisher) Publish(ctx context.Context, registration *model.CallbackRegistration) (string, error) {
	if err := registration.Validate(); err != nil {
		return "", err
	}

	cmd := p.redisClient.B().Xadd().Key(p.stream).Id("*").
		FieldValue().FieldValue(FieldID, registration.ID).
		FieldValue(FieldDestinationURL, registration.DestinationURL).
		Build()

	entryID, err := p.redisClient.Do(ctx, cmd).ToString()
	if err != nil {
		return "", fmt.Errorf("failed to publish registration %q to %s: %w", registration.ID, p.stream, err)
	}

	return entryID, nil
}
