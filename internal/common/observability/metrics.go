package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront-services/internal/common/config"
)

// Observability bundles the OpenTelemetry meter and tracer used across the
// service. A nil *Observability is valid and records nothing.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	geocodeAttempts otelmetric.Int64Counter
	storesSettled   otelmetric.Int64Counter
	catalogPages    otelmetric.Int64Counter
	jobDuration     otelmetric.Float64Histogram
}

type options struct {
	registerer promclient.Registerer
	spanSync   sdktrace.SpanExporter
}

type Option func(*options)

// WithRegisterer sends the exported metrics to reg instead of the default
// Prometheus registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithSpanExporter exports spans synchronously to exp, used by tests.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.spanSync = exp }
}

func New(cfg config.ObservabilityConfig, opts ...Option) (*Observability, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var promOpts []prometheus.Option
	if o.registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(o.registerer))
	}
	exporter, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))

	meterProvider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.JaegerEndpoint != "" {
		jaegerExp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
		if err != nil {
			return nil, fmt.Errorf("create jaeger exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(jaegerExp))
	}
	if o.spanSync != nil {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(o.spanSync))
	}
	tracerProvider := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tracerProvider)

	meter := meterProvider.Meter(cfg.ServiceName)

	geocodeAttempts, err := meter.Int64Counter(
		"locator.geocode.attempts",
		otelmetric.WithDescription("Geocoding attempts by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}

	storesSettled, err := meter.Int64Counter(
		"locator.stores.settled",
		otelmetric.WithDescription("Stores that reached a terminal geocoding state"),
	)
	if err != nil {
		return nil, err
	}

	catalogPages, err := meter.Int64Counter(
		"catalog.pages.served",
		otelmetric.WithDescription("Catalog pages served by outcome"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		"jobs.duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:   meterProvider,
		tracerProvider:  tracerProvider,
		tracer:          tracerProvider.Tracer(cfg.ServiceName),
		geocodeAttempts: geocodeAttempts,
		storesSettled:   storesSettled,
		catalogPages:    catalogPages,
		jobDuration:     jobDuration,
	}, nil
}

func (o *Observability) Tracer() trace.Tracer {
	if o == nil || o.tracer == nil {
		return noop.NewTracerProvider().Tracer("")
	}
	return o.tracer
}

func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordGeocodeAttempt(ctx context.Context, provider, status string) {
	if o == nil || o.geocodeAttempts == nil {
		return
	}
	o.geocodeAttempts.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordStoreSettled(ctx context.Context, resolved bool) {
	if o == nil || o.storesSettled == nil {
		return
	}
	o.storesSettled.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("resolved", resolved)))
}

func (o *Observability) RecordCatalogPage(ctx context.Context, backend string, failed bool) {
	if o == nil || o.catalogPages == nil {
		return
	}
	o.catalogPages.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("backend", backend),
		attribute.Bool("failed", failed),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("taskType", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.tracerProvider != nil {
		errs = append(errs, o.tracerProvider.Shutdown(ctx))
	}
	if o.meterProvider != nil {
		errs = append(errs, o.meterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
