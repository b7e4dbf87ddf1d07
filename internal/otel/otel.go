// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/z5labs/apimeta/config"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Options configure [Initialize].
type Options struct {
	stdout io.Writer
}

// Option sets a value on [Options].
type Option interface {
	ApplyOption(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) ApplyOption(o *Options) {
	f(o)
}

// LogWriter overrides where the stdout log exporter writes to.
func LogWriter(w io.Writer) Option {
	return optionFunc(func(o *Options) {
		o.stdout = w
	})
}

// Initialize installs the global trace, meter and logger providers.
// Signals whose exporter is [config.NoExporter] (or empty) keep the
// global noop provider, except logs which default to stdout.
func Initialize(ctx context.Context, cfg config.OTel, opts ...Option) error {
	o := &Options{
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyOption(o)
	}

	r, err := detectResource(ctx, cfg.Resource)
	if err != nil {
		return err
	}

	conns := newCache[string, *grpc.ClientConn]()

	err = initTraceProvider(ctx, cfg.Trace, r, conns)
	if err != nil {
		return err
	}

	err = initMeterProvider(ctx, cfg.Metric, r, conns)
	if err != nil {
		return err
	}

	return initLoggerProvider(ctx, cfg.Log, r, conns, o.stdout)
}

func detectResource(ctx context.Context, cfg config.Resource) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = "unknown_service:go"
		if exe, err := os.Executable(); err == nil {
			name = "unknown_service:" + filepath.Base(exe)
		}
	}

	return resource.New(
		ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
}

func clientConn(cfg config.OTLP, conns *cache[string, *grpc.ClientConn]) (*grpc.ClientConn, error) {
	return conns.getOr(cfg.Target, func() (*grpc.ClientConn, error) {
		return grpc.NewClient(
			cfg.Target,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
	})
}

// UnknownExporterTypeError is returned for an exporter type a signal does not support.
type UnknownExporterTypeError struct {
	Signal string
	Type   config.ExporterType
}

func (e UnknownExporterTypeError) Error() string {
	return fmt.Sprintf("unknown %s exporter type: %q", e.Signal, e.Type)
}

// UnknownOTLPConnTypeError
type UnknownOTLPConnTypeError struct {
	Type config.OTLPConnType
}

func (e UnknownOTLPConnTypeError) Error() string {
	return fmt.Sprintf("unknown otlp conn type: %q", e.Type)
}

func initTraceProvider(ctx context.Context, cfg config.Trace, r *resource.Resource, conns *cache[string, *grpc.ClientConn]) error {
	switch cfg.Exporter.Type {
	case "", config.NoExporter:
		return nil
	case config.OTLPExporter:
	default:
		return UnknownExporterTypeError{Signal: "trace", Type: cfg.Exporter.Type}
	}

	var exp trace.SpanExporter
	var err error
	switch cfg.Exporter.OTLP.Type {
	case config.OTLPGRPC:
		cc, ccErr := clientConn(cfg.Exporter.OTLP, conns)
		if ccErr != nil {
			return ccErr
		}
		exp, err = otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		exp, err = otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Exporter.OTLP.Target))
	default:
		return UnknownOTLPConnTypeError{Type: cfg.Exporter.OTLP.Type}
	}
	if err != nil {
		return err
	}

	var batchOpts []trace.BatchSpanProcessorOption
	if cfg.Batch.ExportInterval > 0 {
		batchOpts = append(batchOpts, trace.WithBatchTimeout(cfg.Batch.ExportInterval))
	}
	if cfg.Batch.MaxSize > 0 {
		batchOpts = append(batchOpts, trace.WithMaxExportBatchSize(cfg.Batch.MaxSize))
	}

	tp := trace.NewTracerProvider(
		trace.WithSpanProcessor(trace.NewBatchSpanProcessor(exp, batchOpts...)),
		trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplingRatio))),
		trace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	return nil
}

func initMeterProvider(ctx context.Context, cfg config.Metric, r *resource.Resource, conns *cache[string, *grpc.ClientConn]) error {
	switch cfg.Exporter.Type {
	case "", config.NoExporter:
		return nil
	case config.OTLPExporter:
	default:
		return UnknownExporterTypeError{Signal: "metric", Type: cfg.Exporter.Type}
	}

	var exp metric.Exporter
	var err error
	switch cfg.Exporter.OTLP.Type {
	case config.OTLPGRPC:
		cc, ccErr := clientConn(cfg.Exporter.OTLP, conns)
		if ccErr != nil {
			return ccErr
		}
		exp, err = otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		exp, err = otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Exporter.OTLP.Target))
	default:
		return UnknownOTLPConnTypeError{Type: cfg.Exporter.OTLP.Type}
	}
	if err != nil {
		return err
	}

	var readerOpts []metric.PeriodicReaderOption
	if cfg.ExportInterval > 0 {
		readerOpts = append(readerOpts, metric.WithInterval(cfg.ExportInterval))
	}
	if cfg.Runtime {
		readerOpts = append(readerOpts, metric.WithProducer(runtime.NewProducer()))
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exp, readerOpts...)),
		metric.WithResource(r),
	)
	otel.SetMeterProvider(mp)

	if !cfg.Runtime {
		return nil
	}
	return runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second),
	)
}

func initLoggerProvider(ctx context.Context, cfg config.Log, r *resource.Resource, conns *cache[string, *grpc.ClientConn], stdout io.Writer) error {
	var processor log.Processor
	switch cfg.Exporter.Type {
	case config.NoExporter:
		return nil
	case "", config.StdoutExporter:
		var level slog.Level
		err := level.UnmarshalText([]byte(cfg.Level))
		if cfg.Level != "" && err != nil {
			return err
		}

		processor = log.NewSimpleProcessor(&slogExporter{
			handler: slog.NewJSONHandler(stdout, &slog.HandlerOptions{
				Level: level,
			}),
		})
	case config.OTLPExporter:
		exp, err := initOTLPLogExporter(ctx, cfg.Exporter.OTLP, conns)
		if err != nil {
			return err
		}

		var batchOpts []log.BatchProcessorOption
		if cfg.Batch.ExportInterval > 0 {
			batchOpts = append(batchOpts, log.WithExportInterval(cfg.Batch.ExportInterval))
		}
		if cfg.Batch.MaxSize > 0 {
			batchOpts = append(batchOpts, log.WithExportMaxBatchSize(cfg.Batch.MaxSize))
		}
		processor = log.NewBatchProcessor(exp, batchOpts...)
	default:
		return UnknownExporterTypeError{Signal: "log", Type: cfg.Exporter.Type}
	}

	provider := log.NewLoggerProvider(
		log.WithProcessor(processor),
		log.WithResource(r),
	)
	global.SetLoggerProvider(provider)
	return nil
}

func initOTLPLogExporter(ctx context.Context, cfg config.OTLP, conns *cache[string, *grpc.ClientConn]) (log.Exporter, error) {
	switch cfg.Type {
	case config.OTLPGRPC:
		cc, err := clientConn(cfg, conns)
		if err != nil {
			return nil, err
		}
		return otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(cc))
	case config.OTLPHTTP:
		return otlploghttp.New(ctx, otlploghttp.WithEndpoint(cfg.Target))
	default:
		return nil, UnknownOTLPConnTypeError{Type: cfg.Type}
	}
}
