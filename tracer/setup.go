package tracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// instrumentationName names the tracer spans are created with.
const instrumentationName = "github.com/aalemi-dev/shardkit"

// TracerClient wraps an OpenTelemetry TracerProvider. It is safe for
// concurrent use and implements Tracer.
type TracerClient struct {
	tracer *trace.TracerProvider
}

// NewClient builds a TracerClient from cfg and installs it as the global
// tracer provider and W3C trace context propagator.
func NewClient(cfg Config) (*TracerClient, error) {
	return newClientWithContext(context.Background(), cfg)
}

func newClientWithContext(ctx context.Context, cfg Config) (*TracerClient, error) {
	var options []trace.TracerProviderOption

	if cfg.EnableExport {
		var clientOpts []otlptracehttp.Option
		if cfg.Endpoint != "" {
			clientOpts = append(clientOpts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		}
		exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(clientOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OTLP exporter: %w", err)
		}
		options = append(options, trace.WithBatcher(exporter))
	}

	return newClient(cfg, options...), nil
}

// NewClientWithExporter builds a TracerClient that hands every ended span to
// exporter synchronously. It does not touch the global provider.
func NewClientWithExporter(cfg Config, exporter trace.SpanExporter) *TracerClient {
	return &TracerClient{tracer: newProvider(cfg, trace.WithSyncer(exporter))}
}

func newClient(cfg Config, options ...trace.TracerProviderOption) *TracerClient {
	tp := newProvider(cfg, options...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator())

	return &TracerClient{tracer: tp}
}

func newProvider(cfg Config, options ...trace.TracerProviderOption) *trace.TracerProvider {
	options = append(options,
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.AppEnv),
			attribute.String("environment", cfg.AppEnv),
		)),
		trace.WithSampler(sampler(cfg.SampleRatio)),
	)
	return trace.NewTracerProvider(options...)
}

func sampler(ratio float64) trace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return trace.ParentBased(trace.AlwaysSample())
	}
	return trace.ParentBased(trace.TraceIDRatioBased(ratio))
}

func propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// Shutdown flushes pending spans and releases the exporter.
func (t *TracerClient) Shutdown(ctx context.Context) error {
	if t.tracer == nil {
		return nil
	}
	return t.tracer.Shutdown(ctx)
}
