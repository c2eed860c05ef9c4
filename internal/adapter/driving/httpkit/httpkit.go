// Package httpkit holds the response writers and middleware shared by the
// gateway and storaged HTTP adapters.
package httpkit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// StatusWriter wraps http.ResponseWriter to capture the response status code.
type StatusWriter struct {
	http.ResponseWriter
	Status int
}

// NewStatusWriter wraps w with a default status of 200.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	return &StatusWriter{ResponseWriter: w, Status: http.StatusOK}
}

// WriteHeader captures the status code and delegates to the embedded writer.
func (sw *StatusWriter) WriteHeader(status int) {
	sw.Status = status
	sw.ResponseWriter.WriteHeader(status)
}

// WriteJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// WriteText writes a plain text response.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes a JSON error response with the given status code and message.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Error: message})
}

// RequestAttrs returns extra log attributes for a request. It may be nil.
type RequestAttrs func(r *http.Request) []any

// Logging logs each HTTP request with method, path, status, and duration at
// level. Query strings are not logged because they can carry tokens.
func Logging(logger *slog.Logger, level slog.Level, attrs RequestAttrs, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := NewStatusWriter(w)

		next.ServeHTTP(sw, r)

		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.Status,
			"duration", time.Since(start).Round(time.Microsecond),
		}
		if attrs != nil {
			args = append(args, attrs(r)...)
		}
		logger.Log(r.Context(), level, "http request", args...)
	})
}

// Recovery recovers from panics in HTTP handlers, logs the error,
// and returns a 500 response.
func Recovery(logger *slog.Logger, attrs RequestAttrs, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				args := []any{"panic", v, "path", r.URL.Path}
				if attrs != nil {
					args = append(args, attrs(r)...)
				}
				logger.Error("panic recovered", args...)
				WriteError(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
