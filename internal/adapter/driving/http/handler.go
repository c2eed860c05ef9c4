// Package httphandler is the driving HTTP adapter that serves the gateway API.
package httphandler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/ericfisherdev/authgateway/internal/adapter/driving/httpkit"
	"github.com/ericfisherdev/authgateway/internal/application"
	"github.com/ericfisherdev/authgateway/internal/domain/model"
	"github.com/ericfisherdev/authgateway/internal/telemetry"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

var (
	errEmptyBody          = errors.New("request body is empty")
	errMissingCredentials = errors.New("id and password are required")
	errMissingID          = errors.New("id is required")
)

// Handler is the HTTP driving adapter that serves the credential and token API.
type Handler struct {
	credentials *application.CredentialService
	tokens      *application.TokenService
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(credentials *application.CredentialService, tokens *application.TokenService, logger *slog.Logger) *Handler {
	return &Handler{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}
}

// MuxOptions configures NewServeMux.
type MuxOptions struct {
	// Prefix mounts the API routes under a path prefix such as "/auth".
	// Health and metrics endpoints always stay at the root.
	Prefix string

	// Metrics records request metrics and, when it has a handler, is served
	// at /metrics. Nil disables both.
	Metrics *telemetry.Metrics
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with request id, logging and recovery middleware.
func NewServeMux(h *Handler, opts MuxOptions, logger *slog.Logger) http.Handler {
	in := newInstrumentation(opts.Metrics)

	api := http.NewServeMux()
	api.Handle("POST /verify", in.wrap("POST /verify", h.Verify))
	api.Handle("POST /save", in.wrap("POST /save", h.Save))
	api.Handle("GET /has", in.wrap("GET /has", h.Has))
	api.Handle("POST /delete", in.wrap("POST /delete", h.Delete))
	api.Handle("GET /jwt/verify", in.wrap("GET /jwt/verify", h.VerifyToken))
	api.Handle("POST /jwt/encode", in.wrap("POST /jwt/encode", h.EncodeToken))

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", h.Health)
	if opts.Metrics != nil && opts.Metrics.Handler() != nil {
		root.Handle("GET /metrics", opts.Metrics.Handler())
	}

	if opts.Prefix == "" {
		root.Handle("/", api)
	} else {
		root.Handle(opts.Prefix+"/", http.StripPrefix(opts.Prefix, api))
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := httpkit.Recovery(logger, requestAttrs, root)
	wrapped = httpkit.Logging(logger, slog.LevelInfo, requestAttrs, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Verify checks an id/password pair against the stored credential.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.credentials.Verify(r.Context(), req.ID, req.Password); err != nil {
		writeServiceError(w, h.logger, "verify", err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, okBody)
}

// Save stores or replaces the credential for an id.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCredentials(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.credentials.Save(r.Context(), req.ID, req.Password); err != nil {
		writeServiceError(w, h.logger, "save", err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, okBody)
}

// Has reports whether a credential exists for the id query parameter.
func (h *Handler) Has(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("id") {
		httpkit.WriteError(w, http.StatusBadRequest, errMissingID.Error())
		return
	}

	exists, err := h.credentials.Exists(r.Context(), q.Get("id"))
	if err != nil {
		writeServiceError(w, h.logger, "has", err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, exists)
}

// Delete removes the credential for an id given as a query parameter or in
// the request body.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := decodeDeleteID(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.credentials.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete", err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, okBody)
}

// EncodeToken signs the JSON object in the request body and returns the
// token as plain text.
func (h *Handler) EncodeToken(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	var claims model.Claims
	if err := dec.Decode(&claims); err != nil || claims == nil {
		httpkit.WriteError(w, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		httpkit.WriteError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return
	}

	token, err := h.tokens.Encode(claims)
	if err != nil {
		writeServiceError(w, h.logger, "jwt encode", err)
		return
	}

	httpkit.WriteText(w, http.StatusOK, token)
}

// VerifyToken validates the token query parameter and returns its claims
// without the expiry.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	claims, err := h.tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Debug("token rejected", "expired", application.IsExpired(err), "request_id", RequestIDFromContext(r.Context()))
		writeServiceError(w, h.logger, "jwt verify", err)
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, claims)
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// decodeCredentials reads an id/password pair from a JSON or form body.
// Both fields must be present; empty strings are valid values.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialRequest, error) {
	var body struct {
		ID       *string `json:"id"`
		Password *string `json:"password"`
	}

	form, err := decodeBody(w, r, &body)
	switch {
	case errors.Is(err, errEmptyBody):
		return CredentialRequest{}, errMissingCredentials
	case err != nil:
		return CredentialRequest{}, err
	case form != nil:
		if !form.Has("id") || !form.Has("password") {
			return CredentialRequest{}, errMissingCredentials
		}
		return CredentialRequest{ID: form.Get("id"), Password: form.Get("password")}, nil
	case body.ID == nil || body.Password == nil:
		return CredentialRequest{}, errMissingCredentials
	default:
		return CredentialRequest{ID: *body.ID, Password: *body.Password}, nil
	}
}

// decodeDeleteID takes the id query parameter, falling back to the id field
// of a JSON or form body.
func decodeDeleteID(w http.ResponseWriter, r *http.Request) (string, error) {
	if q := r.URL.Query(); q.Has("id") {
		return q.Get("id"), nil
	}

	var body struct {
		ID *string `json:"id"`
	}

	form, err := decodeBody(w, r, &body)
	switch {
	case errors.Is(err, errEmptyBody):
		return "", errMissingID
	case err != nil:
		return "", err
	case form != nil:
		if !form.Has("id") {
			return "", errMissingID
		}
		return form.Get("id"), nil
	case body.ID == nil:
		return "", errMissingID
	default:
		return *body.ID, nil
	}
}

// decodeBody returns the parsed values of a form-encoded body, or decodes a
// JSON body into v and returns nil values. An empty JSON body yields
// errEmptyBody.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isForm(r.Header.Get("Content-Type")) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errEmptyBody
	}
	return nil, json.Unmarshal(data, v)
}

func isForm(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

// writeBadRequest reports a request that could not be decoded.
func writeBadRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, errMissingCredentials) || errors.Is(err, errMissingID) {
		httpkit.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httpkit.WriteError(w, http.StatusBadRequest, "invalid request body")
}
