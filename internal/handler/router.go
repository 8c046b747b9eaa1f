package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jnst/egisz-callback-relay/internal/middleware"
)

// NewRouter wires the relay routes.
func NewRouter(callback *CallbackHandler, registrations *RegistrationHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /callback", callback.SendResponse)
	mux.HandleFunc("POST /registrations", registrations.CreateRegistration)
	mux.HandleFunc("GET /health", HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
