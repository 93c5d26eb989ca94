package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
)

func TestTracingConfigFromEnv(t *testing.T) {
	t.Setenv("TRACKGEN_TRACING_ENABLED", "TRUE")
	t.Setenv("TRACKGEN_TRACING_EXPORTER", "OTLP")
	t.Setenv("TRACKGEN_TRACING_SERVICE_NAME", "")
	t.Setenv("TRACKGEN_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TRACKGEN_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("TRACKGEN_ENVIRONMENT", "staging")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled || cfg.Exporter != "otlp" || cfg.ServiceName != "trackgen" ||
		cfg.SampleRatio != 0.25 || cfg.Endpoint != "collector:4317" || cfg.Environment != "staging" {
		t.Fatalf("config = %+v", cfg)
	}

	t.Setenv("TRACKGEN_TRACING_SAMPLE_RATIO", "7")
	if got := TracingConfigFromEnv().SampleRatio; got != 1 {
		t.Fatalf("out-of-range ratio should fall back to 1, got %v", got)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestInitTracingStdoutExporter(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "trackgen-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Writer:      &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "core.Generate")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	if !strings.Contains(buf.String(), "core.Generate") {
		t.Fatalf("span not exported:\n%s", buf.String())
	}
	// Restore the no-op provider for other tests.
	if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
		t.Fatalf("reset tracing: %v", err)
	}
}

func TestInitTracingRecordsSimulatorResource(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "trackgen-test",
		Exporter:    "stdout",
		SampleRatio: 1,
		Environment: "staging",
		Simulator: SimulatorInfo{
			Command:        "serve",
			Locations:      12,
			Routes:         16,
			MaxVessels:     100,
			MaxSamples:     500000,
			Workers:        4,
			ReportInterval: 30 * time.Second,
		},
		Writer: &buf,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "core.Generate")
	span.End()
	ShutdownWithTimeout(context.Background(), shutdown, nil)
	defer func() {
		if _, err := InitTracing(context.Background(), TracingConfig{}, nil); err != nil {
			t.Fatalf("reset tracing: %v", err)
		}
	}()

	out := buf.String()
	for _, key := range []string{
		"deployment.environment",
		"trackgen.command",
		"trackgen.locations",
		"trackgen.routes",
		"trackgen.max_vessels",
		"trackgen.max_samples",
		"trackgen.workers",
		"trackgen.report_interval_seconds",
	} {
		if !strings.Contains(out, key) {
			t.Errorf("resource attribute %s missing from exported span", key)
		}
	}
}

func TestSimulatorInfoSkipsUnsetFields(t *testing.T) {
	attrs := SimulatorInfo{Workers: 2}.attributes()
	if len(attrs) != 1 || string(attrs[0].Key) != "trackgen.workers" || attrs[0].Value.AsInt64() != 2 {
		t.Fatalf("attributes = %v", attrs)
	}
	if got := (TracingConfig{ServiceName: "trackgen"}).resourceAttributes(); len(got) != 2 {
		t.Fatalf("base resource attributes = %v", got)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected unsupported exporter error")
	}
}
