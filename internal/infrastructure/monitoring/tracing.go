package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// TracingConfig holds tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SamplingRate   float64
	Enabled        bool
}

// TracingProvider wraps OpenTelemetry tracing functionality
type TracingProvider struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	config   TracingConfig
}

// NewTracingProvider creates a new tracing provider. When tracing is
// disabled every span is a no-op.
func NewTracingProvider(config TracingConfig, logger *zap.Logger) (*TracingProvider, error) {
	if !config.Enabled {
		logger.Info("Tracing is disabled")
		return &TracingProvider{
			tracer: noop.NewTracerProvider().Tracer(config.ServiceName),
			logger: logger,
			config: config,
		}, nil
	}

	var opts []otlptracehttp.Option
	if config.OTLPEndpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(config.OTLPEndpoint))
	}
	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	// Create resource
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("deployment.environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SamplingRate))),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing initialized",
		zap.String("service", config.ServiceName),
		zap.String("version", config.ServiceVersion),
		zap.String("environment", config.Environment),
		zap.String("otlp_endpoint", config.OTLPEndpoint),
		zap.Float64("sampling_rate", config.SamplingRate),
	)

	return &TracingProvider{
		tracer:   tp.Tracer(config.ServiceName),
		provider: tp,
		logger:   logger,
		config:   config,
	}, nil
}

// NewNoopTracingProvider returns a provider whose spans record nothing.
func NewNoopTracingProvider() *TracingProvider {
	return &TracingProvider{
		tracer: noop.NewTracerProvider().Tracer("noop"),
		logger: zap.NewNop(),
	}
}

// NewTracingProviderFrom traces through an existing SDK provider
func NewTracingProviderFrom(provider *sdktrace.TracerProvider, logger *zap.Logger) *TracingProvider {
	return &TracingProvider{
		tracer:   provider.Tracer("chefnano"),
		provider: provider,
		logger:   logger,
	}
}

// StartSpan starts a new span with the given name and options
func (t *TracingProvider) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// StartAISpan starts a span for a generative AI call
func (t *TracingProvider) StartAISpan(ctx context.Context, provider, model, operation string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("ai.%s", operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("ai.provider", provider),
			attribute.String("ai.model", model),
			attribute.String("ai.operation", operation),
		),
	)
}

// StartFlowSpan starts a span for a background kitchen flow
func (t *TracingProvider) StartFlowSpan(ctx context.Context, flow, sessionID string, generation uint64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("kitchen.%s", flow),
		trace.WithAttributes(
			attribute.String("kitchen.session", sessionID),
			attribute.Int64("kitchen.generation", int64(generation)),
		),
	)
}

// StartFlow opens a flow span and returns the func that closes it
func (t *TracingProvider) StartFlow(ctx context.Context, flow, sessionID string, generation uint64) (context.Context, func(error)) {
	ctx, span := t.StartFlowSpan(ctx, flow, sessionID, generation)
	return ctx, func(err error) {
		RecordError(span, err)
		span.End()
	}
}

// RecordError records an error on the span and marks it failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Shutdown flushes and stops the tracer provider
func (t *TracingProvider) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// TraceIDFromContext returns the trace ID of the active span, or ""
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
