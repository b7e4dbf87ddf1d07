// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package apimeta builds API clients from a declarative schema document.
//
// Every leaf endpoint of the document becomes callable by name. A call
// substitutes its positional arguments into the endpoint path and body
// templates, attaches credentials from the [Config], sends the request
// and hands the outcome to an [Interceptor] before returning it.
//
//	doc, err := schema.ReadFile("api.json")
//	// ...
//	client, err := apimeta.New(apimeta.Config{Base: "https://api.example.com"}, doc)
//	// ...
//	user, err := client.Call(ctx, "getUser", "42")
package apimeta

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/z5labs/apimeta/endpoint"
	"github.com/z5labs/apimeta/schema"
	"github.com/z5labs/apimeta/transport"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/z5labs/apimeta"

// Logger returns a [slog.Logger] which is bridged into OpenTelemetry.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// UnknownEndpointError is returned when calling a name which is not
// registered. It is never routed through the [Interceptor].
type UnknownEndpointError struct {
	Name string
}

func (e *UnknownEndpointError) Error() string {
	return fmt.Sprintf("%s: apicall not found", e.Name)
}

// Func calls one endpoint.
type Func func(ctx context.Context, args ...any) (any, error)

// Callback may be passed as the final argument of a call. It is removed
// from the positional arguments and invoked once with the call outcome.
// A plain func(any, error) is treated the same. Functions of any other
// signature are ordinary positional arguments.
type Callback func(result any, err error)

// Result is the outcome of a call started with [Client.Go].
type Result struct {
	Value any
	Err   error
}

// Info describes the schema document a [Client] was built from.
type Info struct {
	Description string
	Version     string
	Path        string
}

// Options are used for configuring a [Client].
type Options struct {
	interceptor Interceptor
	transport   transport.Doer
	logger      *slog.Logger
}

// Option sets a value on [Options].
type Option interface {
	ApplyOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyOption(o *Options) {
	f(o)
}

// WithInterceptor overrides the [DefaultInterceptor]. A nil
// Interceptor is ignored.
func WithInterceptor(i Interceptor) Option {
	return optionFunc(func(o *Options) {
		if i == nil {
			return
		}
		o.interceptor = i
	})
}

// WithTransport overrides the default HTTP transport.
func WithTransport(d transport.Doer) Option {
	return optionFunc(func(o *Options) {
		o.transport = d
	})
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(o *Options) {
		o.logger = log
	})
}

// Client calls the endpoints of a compiled schema document.
// It is safe for concurrent use.
type Client struct {
	cfg         Config
	info        Info
	registry    *endpoint.Registry
	interceptor Interceptor
	transport   transport.Doer

	log      *slog.Logger
	tracer   trace.Tracer
	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// New compiles doc and initializes a [Client].
func New(cfg Config, doc *schema.Document, opts ...Option) (*Client, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	o := &Options{
		interceptor: DefaultInterceptor{},
		logger:      Logger(instrumentationName),
	}
	for _, opt := range opts {
		opt.ApplyOption(o)
	}
	if o.transport == nil {
		o.transport = transport.NewHTTP()
	}

	meter := otel.Meter(instrumentationName)
	calls, err := meter.Int64Counter(
		"apimeta.client.calls",
		metric.WithDescription("Number of endpoint calls."),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"apimeta.client.duration",
		metric.WithDescription("Duration of endpoint calls."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		info: Info{
			Description: doc.Description,
			Version:     doc.Version,
			Path:        doc.Path,
		},
		registry:    endpoint.Compile(doc),
		interceptor: o.interceptor,
		transport:   o.transport,
		log:         o.logger,
		tracer:      otel.Tracer(instrumentationName),
		calls:       calls,
		duration:    duration,
	}, nil
}

// Info returns the metadata of the schema document.
func (c *Client) Info() Info {
	return c.info
}

// Registry returns the compiled endpoints.
func (c *Client) Registry() *endpoint.Registry {
	return c.registry
}

// Names returns the names of all callable endpoints in sorted order.
func (c *Client) Names() []string {
	return c.registry.Names()
}

// Endpoint returns the [Func] registered under name.
func (c *Client) Endpoint(name string) (Func, error) {
	d, ok := c.registry.Lookup(name)
	if !ok {
		return nil, &UnknownEndpointError{Name: name}
	}
	return func(ctx context.Context, args ...any) (any, error) {
		return c.call(ctx, d, args)
	}, nil
}

// Call invokes the endpoint registered under name.
//
// An unknown name fails immediately with an [UnknownEndpointError].
// Errors while resolving the path or body are returned before any
// request is sent. Everything else, including transport errors, is
// returned through [Interceptor.PostAPICall].
func (c *Client) Call(ctx context.Context, name string, args ...any) (any, error) {
	f, err := c.Endpoint(name)
	if err != nil {
		return nil, err
	}
	return f(ctx, args...)
}

// Go starts a call in its own goroutine. The returned channel receives
// exactly one [Result] and is then closed.
func (c *Client) Go(ctx context.Context, name string, args ...any) (<-chan Result, error) {
	f, err := c.Endpoint(name)
	if err != nil {
		return nil, err
	}

	results := make(chan Result, 1)
	go func() {
		defer close(results)

		v, err := f(ctx, args...)
		results <- Result{Value: v, Err: err}
	}()
	return results, nil
}

func (c *Client) call(ctx context.Context, d *endpoint.Descriptor, args []any) (result any, err error) {
	args, cb := popCallback(args)
	if cb != nil {
		defer func() {
			cb(result, err)
		}()
	}

	callID := uuid.NewString()
	attrs := []attribute.KeyValue{
		attribute.String("apimeta.endpoint", d.Name()),
		attribute.String("http.request.method", d.Method()),
	}

	spanCtx, span := c.tracer.Start(ctx, "Client.Call", trace.WithAttributes(
		append(attrs, attribute.String("apimeta.call.id", callID))...,
	))
	defer span.End()

	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		set := metric.WithAttributes(append(attrs, attribute.String("outcome", outcome))...)
		c.calls.Add(spanCtx, 1, set)
		c.duration.Record(spanCtx, time.Since(start).Seconds(), set)
	}()

	req, err := c.newRequest(spanCtx, d, args)
	if err != nil {
		return nil, err
	}

	c.log.DebugContext(
		spanCtx,
		"dispatching api call",
		slog.String("endpoint", d.Name()),
		slog.String("call_id", callID),
		slog.String("method", req.Method),
		slog.String("url", req.URL),
	)

	body, err := c.transport.Do(spanCtx, req)
	return c.interceptor.PostAPICall(spanCtx, body, err)
}

func (c *Client) newRequest(ctx context.Context, d *endpoint.Descriptor, args []any) (transport.Request, error) {
	path, err := endpoint.ResolvePath(d, c.cfg, args)
	if err != nil {
		return transport.Request{}, err
	}

	req := transport.Request{
		Method: d.Method(),
		URL:    c.cfg.Base + "/" + path,
	}

	switch {
	case d.RequireAuth():
		req.Auth = transport.BasicAuth{
			User:     c.cfg.User,
			Password: c.cfg.Secret,
		}
	case d.RequireToken():
		req.Auth = transport.BearerToken(c.cfg.Token)
	}

	if !d.HasBody() {
		return req, nil
	}

	body, err := endpoint.ResolveBody(ctx, d, c.cfg, c.interceptor, args)
	if err != nil {
		return transport.Request{}, err
	}
	req.Body = body
	return req, nil
}

func popCallback(args []any) ([]any, Callback) {
	if len(args) == 0 {
		return args, nil
	}

	switch cb := args[len(args)-1].(type) {
	case Callback:
		return args[:len(args)-1], cb
	case func(any, error):
		return args[:len(args)-1], cb
	default:
		return args, nil
	}
}
