package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jnst/egisz-callback-relay/internal/logger"
	"github.com/jnst/egisz-callback-relay/internal/metrics"
	"github.com/jnst/egisz-callback-relay/internal/model"
)

// DeliveryRelayImpl implements DeliveryRelay and CallbackService. Each call is
// a single attempt; nothing is retried, queued or deduplicated.
type DeliveryRelayImpl struct {
	resolver    CorrelationResolver
	builder     EnvelopeBuilder
	transmitter Transmitter
}

// NewDeliveryRelayImpl creates a new relay.
func NewDeliveryRelayImpl(resolver CorrelationResolver, builder EnvelopeBuilder, transmitter Transmitter) *DeliveryRelayImpl {
	return &DeliveryRelayImpl{
		resolver:    resolver,
		builder:     builder,
		transmitter: transmitter,
	}
}

// SendResponse relays one notification and acknowledges it with model.AckStatus
// whatever the delivery outcome.
func (r *DeliveryRelayImpl) SendResponse(ctx context.Context, id, oid, response string) int {
	r.Deliver(ctx, &model.Notification{
		ID:       id,
		ObjectID: oid,
		Payload:  response,
	})

	return model.AckStatus
}

// Deliver resolves the destination, builds the envelope and posts it once.
// Every failure, including panics, ends up in the returned outcome and the log.
func (r *DeliveryRelayImpl) Deliver(ctx context.Context, notification *model.Notification) (outcome *model.DeliveryOutcome) {
	start := time.Now()
	log := logger.FromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			outcome = &model.DeliveryOutcome{
				State: model.DeliveryStateInternalFailure,
				Err:   fmt.Errorf("%w: %v", model.ErrUnexpectedInternal, rec),
			}
			logFailure(ctx, log, outcome)
		}

		metrics.DeliveriesTotal.WithLabelValues(string(outcome.State)).Inc()
		metrics.DeliveryDuration.Observe(time.Since(start).Seconds())
	}()

	if notification == nil {
		notification = &model.Notification{}
	}

	log = log.With(
		slog.String("notification_id", notification.ID),
		slog.String("object_id", notification.ObjectID),
		slog.String("payload", notification.Payload),
	)

	log.DebugContext(ctx, "processing result notification")

	destination, err := r.resolver.Resolve(ctx, notification.ID)
	if err != nil {
		outcome = &model.DeliveryOutcome{State: model.DeliveryStateResolutionFailed, Err: err}
		logFailure(ctx, log, outcome)

		return outcome
	}

	log = log.With(slog.String("destination", destination))
	log.DebugContext(ctx, "resolved callback destination")

	body, err := r.builder.Build(notification.ID, notification.ObjectID, notification.Payload)
	if err != nil {
		outcome = &model.DeliveryOutcome{State: model.DeliveryStateBuildFailed, Destination: destination, Err: err}
		logFailure(ctx, log, outcome)

		return outcome
	}

	status, err := r.transmitter.Post(ctx, destination, r.builder.ContentType(), body)
	if err != nil {
		outcome = &model.DeliveryOutcome{
			State:       model.DeliveryStateNotDelivered,
			Destination: destination,
			Err:         &model.NotDeliveredError{Err: err},
		}
		logFailure(ctx, log, outcome)

		return outcome
	}

	if !accepted(status) {
		outcome = &model.DeliveryOutcome{
			State:       model.DeliveryStateNotDelivered,
			Destination: destination,
			StatusCode:  status,
			Err:         &model.NotDeliveredError{StatusCode: status},
		}
		logFailure(ctx, log, outcome)

		return outcome
	}

	outcome = &model.DeliveryOutcome{
		State:       model.DeliveryStateDelivered,
		Destination: destination,
		StatusCode:  status,
	}

	log.InfoContext(ctx, "result delivered to consumer",
		slog.String("body", string(body)),
		slog.Int("status_code", status),
	)

	return outcome
}

func accepted(status int) bool {
	return status == http.StatusOK || status == http.StatusAccepted
}

func logFailure(ctx context.Context, log *slog.Logger, outcome *model.DeliveryOutcome) {
	attrs := []any{
		slog.String("state", string(outcome.State)),
		slog.String("failure_kind", model.FailureKind(outcome.Err)),
		slog.String("error", outcome.Err.Error()),
	}
	if outcome.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status_code", outcome.StatusCode))
	}

	log.ErrorContext(ctx, "failed to relay result notification", attrs...)
}
