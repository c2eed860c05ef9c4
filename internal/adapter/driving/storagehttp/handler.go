// Package storagehttp is the driving HTTP adapter of the storaged service.
// It exposes a DocumentStore through the /storage/* key-value API consumed by
// the gateway's storage client.
package storagehttp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/authgateway/internal/adapter/driving/httpkit"
	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

const (
	// maxBodyBytes bounds request bodies.
	maxBodyBytes  = 4 << 20
	healthTimeout = 2 * time.Second
)

// Handler serves the storage API over a DocumentStore.
type Handler struct {
	store  driven.DocumentStore
	logger *slog.Logger
}

// NewHandler creates a Handler backed by store.
func NewHandler(store driven.DocumentStore, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// NewServeMux creates an http.Handler with all storage routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /storage/get", h.Get)
	mux.HandleFunc("POST /storage/save", h.Save)
	mux.HandleFunc("POST /storage/delete", h.Delete)
	mux.HandleFunc("POST /storage/collection/{name}", h.CreateCollection)
	mux.HandleFunc("GET /healthz", h.Health)

	// Storage traffic is logged at debug; every gateway call already logs at info.
	return httpkit.Logging(logger, slog.LevelDebug, nil, httpkit.Recovery(logger, nil, mux))
}

type saveRequest struct {
	Name  string            `json:"name"`
	Value []driven.Document `json:"value"`
}

type deleteRequest struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Get returns the document for the id and name query parameters. The
// response carries a strong ETag and honours If-None-Match.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name, id := q.Get("name"), q.Get("id")
	if name == "" || id == "" {
		httpkit.WriteError(w, http.StatusBadRequest, "name and id are required")
		return
	}

	doc, err := h.store.Get(r.Context(), name, id)
	if errors.Is(err, driven.ErrNotFound) {
		httpkit.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Error("get document failed", "name", name, "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	data, err := json.Marshal(doc)
	if err != nil {
		h.logger.Error("encode document failed", "name", name, "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")

	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Save upserts every document in the value array into the named collection.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpkit.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpkit.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	err := h.store.Upsert(r.Context(), req.Name, req.Value)
	if errors.Is(err, driven.ErrInvalidDocument) {
		httpkit.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("save documents failed", "name", req.Name, "count", len(req.Value), "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, "ok")
}

// Delete removes one document from the named collection.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpkit.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.ID == "" {
		httpkit.WriteError(w, http.StatusBadRequest, "name and id are required")
		return
	}

	err := h.store.Delete(r.Context(), req.Name, req.ID)
	if errors.Is(err, driven.ErrNotFound) {
		httpkit.WriteError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Error("delete document failed", "name", req.Name, "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, "ok")
}

// CreateCollection registers a collection. The type query parameter is
// accepted for compatibility and ignored.
func (h *Handler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if strings.TrimSpace(name) == "" {
		httpkit.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.CreateCollection(r.Context(), name); err != nil {
		h.logger.Error("create collection failed", "name", name, "error", err)
		httpkit.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, "ok")
}

// Health reports ok when the document store answers a ping, and 503
// otherwise.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	httpkit.WriteJSON(w, code, map[string]string{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
