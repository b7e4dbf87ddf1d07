// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package transport issues the HTTP requests assembled by an apimeta client.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Auth credentials attached to a [Request].
type Auth interface {
	apply(*http.Request)
}

// BasicAuth sends user credentials with the basic scheme.
type BasicAuth struct {
	User     string
	Password string
}

func (a BasicAuth) apply(r *http.Request) {
	r.SetBasicAuth(a.User, a.Password)
}

// BearerToken sends a token with the bearer scheme.
type BearerToken string

func (t BearerToken) apply(r *http.Request) {
	r.Header.Set("Authorization", "Bearer "+string(t))
}

// Request is a fully resolved API call.
type Request struct {
	Method string
	URL    string

	// Auth is nil for unauthenticated calls.
	Auth Auth

	// Body is encoded as JSON. A nil Body sends no request body.
	Body any
}

// Doer performs a [Request] and returns the decoded response body.
type Doer interface {
	Do(context.Context, Request) (any, error)
}

// DoerFunc is an adapter to allow the use of ordinary functions as [Doer]s.
type DoerFunc func(context.Context, Request) (any, error)

// Do implements the [Doer] interface.
func (f DoerFunc) Do(ctx context.Context, req Request) (any, error) {
	return f(ctx, req)
}

// Options are used for configuring a [HTTP] doer.
type Options struct {
	client *http.Client
}

// Option sets a value on [Options].
type Option interface {
	ApplyOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyOption(o *Options) {
	f(o)
}

// Client overrides the underlying [http.Client]. Its transport is
// still wrapped for tracing.
func Client(hc *http.Client) Option {
	return optionFunc(func(o *Options) {
		o.client = hc
	})
}

// HTTP is a [Doer] backed by net/http.
//
// Request bodies are sent as JSON. Response bodies are decoded as JSON
// when possible and returned as a string otherwise. Non 2xx responses
// are not treated as errors, the decoded body is returned as is.
type HTTP struct {
	client *http.Client
	tracer trace.Tracer
}

// NewHTTP initializes a [HTTP] doer.
func NewHTTP(opts ...Option) *HTTP {
	o := &Options{
		client: &http.Client{},
	}
	for _, opt := range opts {
		opt.ApplyOption(o)
	}

	hc := *o.client
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)

	return &HTTP{
		client: &hc,
		tracer: otel.Tracer("github.com/z5labs/apimeta/transport"),
	}
}

// Do implements the [Doer] interface.
func (h *HTTP) Do(ctx context.Context, req Request) (v any, err error) {
	spanCtx, span := h.tracer.Start(ctx, "HTTP.Do", trace.WithAttributes(
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL),
	))
	defer span.End()

	r, err := newRequest(spanCtx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp, err := h.client.Do(r)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer try.Close(&err, resp.Body)

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return decodeBody(b), nil
}

func newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	r, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}

	r.Header.Set("Accept", "application/json")
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.Auth != nil {
		req.Auth.apply(r)
	}
	return r, nil
}

func decodeBody(b []byte) any {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}

	var v any
	err := json.Unmarshal(b, &v)
	if err != nil {
		return string(b)
	}
	return v
}
