package httphandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ericfisherdev/authgateway/internal/adapter/driving/httpkit"
	"github.com/ericfisherdev/authgateway/internal/application"
	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// okBody is the success marker returned by credential endpoints.
const okBody = "ok"

// writeUpstream relays a storage service response verbatim.
func writeUpstream(w http.ResponseWriter, upErr *driven.UpstreamError) {
	contentType := upErr.ContentType
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(upErr.StatusCode)
	_, _ = w.Write(upErr.Body)
}

// writeServiceError maps application and port errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	var upErr *driven.UpstreamError

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		httpkit.WriteError(w, http.StatusUnauthorized, "unauthorized")
	case errors.As(err, &upErr):
		logger.Warn("storage rejected request", "op", op, "status", upErr.StatusCode)
		writeUpstream(w, upErr)
	case errors.Is(err, driven.ErrUnavailable):
		logger.Error("storage unavailable", "op", op, "error", err)
		httpkit.WriteError(w, http.StatusBadGateway, "storage unavailable")
	default:
		logger.Error("request failed", "op", op, "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CredentialRequest is the body of the verify and save endpoints.
type CredentialRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
