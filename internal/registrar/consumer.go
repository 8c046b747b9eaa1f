// Package registrar consumes callback registrations from a Redis stream.
package registrar

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/jnst/egisz-callback-relay/internal/metrics"
	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const (
	// Stream entry fields.
	FieldID             = "id"
	FieldDestinationURL = "destinationUrl"

	defaultBlockTimeout = time.Second
	defaultBatchSize    = 10
	errorRetryDelay     = time.Second

	newID     = ">"
	pendingID = "0"
)

// Consumer reads registration entries from a stream consumer group and
// stores them through a RegistrationService.
type Consumer struct {
	redisClient   rueidis.Client
	registrations service.RegistrationService

	stream       string
	group        string
	name         string
	blockTimeout time.Duration
	batchSize    int64
}

// Option customizes a Consumer.
type Option func(*Consumer)

// WithBlockTimeout sets how long a read waits for new entries.
func WithBlockTimeout(d time.Duration) Option {
	return func(c *Consumer) { c.blockTimeout = d }
}

// WithBatchSize sets how many entries one read may return.
func WithBatchSize(n int64) Option {
	return func(c *Consumer) { c.batchSize = n }
}

// NewConsumer creates a consumer named name in group reading stream.
func NewConsumer(
	redisClient rueidis.Client,
	registrations service.RegistrationService,
	stream, group, name string,
	opts ...Option,
) *Consumer {
	c := &Consumer{
		redisClient:   redisClient,
		registrations: registrations,
		stream:        stream,
		group:         group,
		name:          name,
		blockTimeout:  defaultBlockTimeout,
		batchSize:     defaultBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// EnsureGroup creates the consumer group and the stream if they do not exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	cmd := c.redisClient.B().XgroupCreate().Key(c.stream).Group(c.group).Id("0").Mkstream().Build()
	if err := c.redisClient.Do(ctx, cmd).Error(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}

	return nil
}

// Run consumes until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("registration consumer stopped")
			return
		default:
			if err := c.ConsumeOnce(ctx); err != nil && ctx.Err() == nil {
				slog.Error("error consuming registrations", slog.String("error", err.Error()))
				sleep(ctx, errorRetryDelay)
			}
		}
	}
}

// ConsumeOnce retries this consumer's pending entries, then reads one batch
// of new entries and processes it.
func (c *Consumer) ConsumeOnce(ctx context.Context) error {
	// 未ACKのメッセージを再処理
	pending, err := c.readMessages(ctx, pendingID)
	if err != nil {
		return err
	}
	c.processStreams(ctx, pending)

	streams, err := c.readMessages(ctx, newID)
	if err != nil {
		return err
	}
	c.processStreams(ctx, streams)

	return nil
}

func (c *Consumer) processStreams(ctx context.Context, streams map[string][]rueidis.XRangeEntry) {
	for _, messages := range streams {
		for _, message := range messages {
			if c.processMessage(ctx, message) {
				c.acknowledgeMessage(ctx, message.ID)
			}
		}
	}
}

// readMessages reads entries after id. Only new entries (">") block.
func (c *Consumer) readMessages(ctx context.Context, id string) (map[string][]rueidis.XRangeEntry, error) {
	read := c.redisClient.B().Xreadgroup().Group(c.group, c.name).Count(c.batchSize)

	var readCmd rueidis.Completed
	if id == newID {
		readCmd = read.Block(c.blockTimeout.Milliseconds()).Streams().Key(c.stream).Id(id).Build()
	} else {
		readCmd = read.Streams().Key(c.stream).Id(id).Build()
	}

	result := c.redisClient.Do(ctx, readCmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}

		return nil, err
	}

	return result.AsXRead()
}

// processMessage reports whether the entry should be acknowledged. Entries
// that can never be stored are acknowledged so they are not redelivered.
func (c *Consumer) processMessage(ctx context.Context, message rueidis.XRangeEntry) bool {
	registration := &model.CallbackRegistration{
		ID:             message.FieldValues[FieldID],
		DestinationURL: message.FieldValues[FieldDestinationURL],
	}

	err := c.registrations.Register(ctx, registration)
	switch {
	case err == nil:
		metrics.RegistrationsTotal.WithLabelValues(metrics.SourceStream, metrics.StatusStored).Inc()
		slog.Info("callback registered",
			slog.String("message_id", message.ID),
			slog.String("notification_id", registration.ID),
			slog.String("destination", registration.DestinationURL),
		)

		return true
	case errors.Is(err, model.ErrInvalidRegistration):
		metrics.RegistrationsTotal.WithLabelValues(metrics.SourceStream, metrics.StatusRejected).Inc()
		slog.Warn("discarding invalid registration",
			slog.String("message_id", message.ID),
			slog.Any("fields", message.FieldValues),
			slog.String("error", err.Error()),
		)

		return true
	default:
		metrics.RegistrationsTotal.WithLabelValues(metrics.SourceStream, metrics.StatusFailed).Inc()
		slog.Error("failed to register callback",
			slog.String("message_id", message.ID),
			slog.String("notification_id", registration.ID),
			slog.String("error", err.Error()),
		)

		return false
	}
}

func (c *Consumer) acknowledgeMessage(ctx context.Context, messageID string) {
	ackCmd := c.redisClient.B().Xack().Key(c.stream).Group(c.group).Id(messageID).Build()
	if err := c.redisClient.Do(ctx, ackCmd).Error(); err != nil {
		slog.Error("failed to ACK message",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
	} else {
		slog.Debug("ACKed message", slog.String("message_id", messageID))
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
