// Package storage implements the CredentialStore port against the remote
// key-value storage service over HTTP.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ericfisherdev/authgateway/internal/domain/model"
	"github.com/ericfisherdev/authgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*Client)(nil)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 1 << 20

const tracerName = "github.com/ericfisherdev/authgateway/internal/adapter/driven/storage"

// Options configures the HTTP transport of a Client.
type Options struct {
	// Timeout bounds each storage request end to end.
	Timeout time.Duration

	// HTTPCache enables an in-memory RFC 7234 cache in front of GET requests.
	// Responses are only reused when the storage service marks them fresh or
	// confirms them with 304 Not Modified.
	HTTPCache bool

	// Transport overrides the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the storage service's /storage/get, /storage/save and
// /storage/delete endpoints within a single namespace.
type Client struct {
	http       *http.Client
	baseURL    string
	name       string
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewClient creates a storage client with the following transport stack:
//  1. httpcache (optional, conditional request caching for GETs)
//  2. the base transport (http.DefaultTransport unless overridden)
func NewClient(baseURL, name string, opts Options) *Client {
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	transport := base
	if opts.HTTPCache {
		cacheTransport := httpcache.NewMemoryCacheTransport()
		cacheTransport.Transport = base
		transport = cacheTransport
	}

	return NewClientWithHTTPClient(&http.Client{Transport: transport, Timeout: opts.Timeout}, baseURL, name)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, name string) *Client {
	return &Client{
		http:       httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		name:       name,
		tracer:     otel.Tracer(tracerName),
		propagator: otel.GetTextMapPropagator(),
	}
}

// credentialDoc is the wire form of a credential record in storage.
type credentialDoc struct {
	ID       string `json:"_id"`
	Password string `json:"password"`
}

type saveRequest struct {
	Name  string          `json:"name"`
	Value []credentialDoc `json:"value"`
}

type deleteRequest struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Get fetches the credential record for id.
func (c *Client) Get(ctx context.Context, id string) (model.Credential, error) {
	ctx, span := c.tracer.Start(ctx, "storage.get", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, body, contentType, err := c.get(ctx, span, id)
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential %q: %w", id, err)
	}

	if status == http.StatusNotFound {
		return model.Credential{}, driven.ErrNotFound
	}
	if !isSuccess(status) {
		return model.Credential{}, &driven.UpstreamError{StatusCode: status, Body: body, ContentType: contentType}
	}

	var doc credentialDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return model.Credential{}, fmt.Errorf("decode credential %q: %w", id, err)
	}

	return model.Credential{ID: id, Password: doc.Password}, nil
}

// Has reports whether storage holds a record for id. The response body is
// never decoded.
func (c *Client) Has(ctx context.Context, id string) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "storage.has", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	status, _, _, err := c.get(ctx, span, id)
	if err != nil {
		return false, fmt.Errorf("lookup credential %q: %w", id, err)
	}
	return status != http.StatusNotFound, nil
}

func (c *Client) get(ctx context.Context, span trace.Span, id string) (int, []byte, string, error) {
	q := url.Values{}
	q.Set("id", id)
	q.Set("name", c.name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/storage/get?"+q.Encode(), nil)
	if err != nil {
		return 0, nil, "", fmt.Errorf("build get request: %w", err)
	}
	return c.do(req, span)
}

// Save upserts the credential record into the namespace.
func (c *Client) Save(ctx context.Context, cred model.Credential) error {
	ctx, span := c.tracer.Start(ctx, "storage.save", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload := saveRequest{
		Name:  c.name,
		Value: []credentialDoc{{ID: cred.ID, Password: cred.Password}},
	}
	if err := c.post(ctx, span, "/storage/save", payload); err != nil {
		return fmt.Errorf("save credential %q: %w", cred.ID, err)
	}
	return nil
}

// Delete removes the credential record for id.
func (c *Client) Delete(ctx context.Context, id string) error {
	ctx, span := c.tracer.Start(ctx, "storage.delete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if err := c.post(ctx, span, "/storage/delete", deleteRequest{Name: c.name, ID: id}); err != nil {
		return fmt.Errorf("delete credential %q: %w", id, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, span trace.Span, path string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	status, body, contentType, err := c.do(req, span)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &driven.UpstreamError{StatusCode: status, Body: body, ContentType: contentType}
	}
	return nil
}

// do sends req and returns the status, body and content type. Transport
// failures are wrapped with driven.ErrUnavailable.
func (c *Client) do(req *http.Request, span trace.Span) (int, []byte, string, error) {
	req.Header.Set("Accept", "application/json")
	c.propagator.Inject(req.Context(), propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.path", req.URL.Path),
		attribute.String("storage.name", c.name),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return 0, nil, "", fmt.Errorf("%w: %w", driven.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read body")
		return 0, nil, "", fmt.Errorf("%w: read body: %w", driven.ErrUnavailable, err)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, resp.Status)
	}

	return resp.StatusCode, body, resp.Header.Get("Content-Type"), nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
