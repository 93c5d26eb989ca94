package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
)

// TracingConfig governs how tracing is initialised.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string // stdout | otlp
	Endpoint    string // used when Exporter == otlp
	SampleRatio float64
	// Environment becomes deployment.environment when set.
	Environment string
	// Simulator describes the generator behind the spans.
	Simulator SimulatorInfo
	// Writer receives spans from the stdout exporter; nil means stderr.
	Writer io.Writer
}

// SimulatorInfo is the generator configuration recorded on the tracer
// resource, so every exported span carries the bounds it ran under.
type SimulatorInfo struct {
	Command        string
	Locations      int
	Routes         int
	MaxVessels     int
	MaxSamples     int
	Workers        int
	ReportInterval time.Duration
}

func (s SimulatorInfo) attributes() []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if s.Command != "" {
		attrs = append(attrs, attribute.String("trackgen.command", s.Command))
	}
	ints := []struct {
		key string
		v   int
	}{
		{"trackgen.locations", s.Locations},
		{"trackgen.routes", s.Routes},
		{"trackgen.max_vessels", s.MaxVessels},
		{"trackgen.max_samples", s.MaxSamples},
		{"trackgen.workers", s.Workers},
	}
	for _, kv := range ints {
		if kv.v > 0 {
			attrs = append(attrs, attribute.Int(kv.key, kv.v))
		}
	}
	if s.ReportInterval > 0 {
		attrs = append(attrs, attribute.Float64("trackgen.report_interval_seconds", s.ReportInterval.Seconds()))
	}
	return attrs
}

// resourceAttributes lists what identifies this process on every span.
func (c TracingConfig) resourceAttributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.namespace", "vessel-track-simulator"),
	}
	if c.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", c.Environment))
	}
	return append(attrs, c.Simulator.attributes()...)
}

// TracingConfigFromEnv pulls tracing configuration from environment variables,
// using sensible defaults when unset.
func TracingConfigFromEnv() TracingConfig {
	enabled := strings.EqualFold(os.Getenv("TRACKGEN_TRACING_ENABLED"), "true")
	exporter := strings.ToLower(os.Getenv("TRACKGEN_TRACING_EXPORTER"))
	if exporter == "" {
		exporter = "stdout"
	}
	service := os.Getenv("TRACKGEN_TRACING_SERVICE_NAME")
	if service == "" {
		service = "trackgen"
	}

	ratio := 1.0
	if rawRatio := os.Getenv("TRACKGEN_TRACING_SAMPLE_RATIO"); rawRatio != "" {
		if parsed, err := strconv.ParseFloat(rawRatio, 64); err == nil && parsed >= 0 && parsed <= 1 {
			ratio = parsed
		}
	}

	return TracingConfig{
		Enabled:     enabled,
		ServiceName: service,
		Exporter:    exporter,
		Endpoint:    os.Getenv("TRACKGEN_OTLP_ENDPOINT"),
		SampleRatio: ratio,
		Environment: os.Getenv("TRACKGEN_ENVIRONMENT"),
	}
}

// InitTracing wires a tracer provider, exporter, propagators, and sampler based
// on the provided configuration. It returns a shutdown function to flush spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Info(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx, resource.WithAttributes(cfg.resourceAttributes()...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Int("resource_attributes", len(cfg.resourceAttributes())),
		logging.String("sampler", fmt.Sprintf("parentbased_traceidratio_%0.2f", cfg.SampleRatio)),
	)

	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout", "":
		w := cfg.Writer
		if w == nil {
			w = os.Stderr
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(w),
			stdouttrace.WithPrettyPrint(),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp", "otlpgrpc":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, swallowing errors in the shutdown path.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}
