package observability

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Environment string
	Endpoint    string
	SampleRate  float64
	Insecure    bool
}

// TracerProvider wraps the SDK provider installed as the global one.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracingConfig
}

// InitTracing installs a global tracer provider exporting over OTLP gRPC.
// When tracing is disabled the provider records nothing and exports nothing.
func InitTracing(ctx context.Context, config TracingConfig, logger *zap.Logger) (*TracerProvider, error) {
	if config.ServiceName == "" {
		config.ServiceName = "gridguardian-backend"
	}

	res, err := createResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(createSampler(config)),
	}

	if config.Enabled {
		exporter, err := createExporter(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("OpenTelemetry error", zap.Error(err))
	}))

	logger.Info("Tracing initialized",
		zap.Bool("enabled", config.Enabled),
		zap.String("endpoint", config.Endpoint),
		zap.Float64("sample_rate", config.SampleRate),
	)

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(config.ServiceName),
		config:   config,
	}, nil
}

func createExporter(ctx context.Context, config TracingConfig) (sdktrace.SpanExporter, error) {
	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if config.Insecure || endpoint == "localhost:4317" || endpoint == "127.0.0.1:4317" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
}

func createResource(config TracingConfig) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(serviceVersion()),
		attribute.String("deployment.environment", config.Environment),
		attribute.String("cloud.provider", "aws"),
	}
	if fn := os.Getenv("AWS_LAMBDA_FUNCTION_NAME"); fn != "" {
		attrs = append(attrs,
			attribute.String("faas.name", fn),
			attribute.String("cloud.region", os.Getenv("AWS_REGION")),
		)
	}
	if hostname, err := os.Hostname(); err == nil {
		attrs = append(attrs, semconv.HostName(hostname))
	}

	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, attrs...),
	)
}

func createSampler(config TracingConfig) sdktrace.Sampler {
	if !config.Enabled {
		return sdktrace.NeverSample()
	}
	switch config.Environment {
	case "production", "staging":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))
	default:
		return sdktrace.AlwaysSample()
	}
}

func serviceVersion() string {
	if version := os.Getenv("SERVICE_VERSION"); version != "" {
		return version
	}
	return "unknown"
}

// Tracer returns the service tracer.
func (tp *TracerProvider) Tracer() trace.Tracer {
	return tp.tracer
}

// Shutdown flushes pending spans and stops the provider.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	return tp.provider.Shutdown(ctx)
}
