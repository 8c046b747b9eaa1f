package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jnst/egisz-callback-relay/internal/logger"
	"github.com/jnst/egisz-callback-relay/internal/metrics"
	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const (
	contentTypeHeader      = "Content-Type"
	applicationJSON        = "application/json"
	failedToEncodeResponse = "failed to encode response"
)

// RegistrationHandler accepts callback registrations over HTTP.
type RegistrationHandler struct {
	registrationService service.RegistrationService
}

// NewRegistrationHandler creates a new handler.
func NewRegistrationHandler(registrationService service.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// CreateRegistration handles POST /registrations.
func (h *RegistrationHandler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var registration model.CallbackRegistration
	if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusRejected).Inc()
		http.Error(w, "Invalid JSON", http.StatusBadRequest)

		return
	}

	if err := h.registrationService.Register(ctx, &registration); err != nil {
		if errors.Is(err, model.ErrInvalidRegistration) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusRejected).Inc()
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusFailed).Inc()
		logger.FromContext(ctx).ErrorContext(ctx, "failed to register callback",
			slog.String("notification_id", registration.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "failed to store registration", http.StatusInternalServerError)

		return
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.SourceHTTP, metrics.StatusStored).Inc()
	logger.FromContext(ctx).InfoContext(ctx, "callback registered",
		slog.String("notification_id", registration.ID),
		slog.String("destination", registration.DestinationURL),
	)

	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(registration); err != nil {
		http.Error(w, failedToEncodeResponse, http.StatusInternalServerError)
		return
	}
}

// HealthCheck handles GET /health endpoint for service health check.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set(contentTypeHeader, applicationJSON)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		http.Error(w, failedToEncodeResponse, http.StatusInternalServerError)
		return
	}
}
