package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Format: "json", Output: &buf}).With(String("component", "engine"))

	l.Debug(context.Background(), "vessel simulated",
		MMSI(123456000),
		ScenarioID("scn-1"),
		Vessels(3),
		Float64("speed", 12.5),
		Duration("elapsed", 1500*time.Millisecond),
		Err(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, buf.String())
	}
	if rec["msg"] != "vessel simulated" || rec["level"] != "DEBUG" {
		t.Fatalf("record = %v", rec)
	}
	if rec["component"] != "engine" || rec["mmsi"].(float64) != 123456000 || rec["speed"].(float64) != 12.5 {
		t.Fatalf("fields = %v", rec)
	}
	if rec[KeyScenarioID] != "scn-1" || rec[KeyVessels].(float64) != 3 {
		t.Fatalf("domain fields = %v", rec)
	}
	if rec["error"] != "boom" {
		t.Fatalf("error field = %v", rec["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})
	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("output = %q", out)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SOURCE", "true")

	cfg := ConfigFromEnv()
	if cfg.Level != "error" || cfg.Format != "json" || !cfg.AddSource {
		t.Fatalf("config = %+v", cfg)
	}

	var buf bytes.Buffer
	l := NewFromEnv(&buf)
	l.Warn(context.Background(), "dropped")
	l.Error(context.Background(), "kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), `"source"`) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestRequestIDs(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("request id %q is not a uuid: %v", id, err)
	}
	again, same := EnsureRequestID(ctx)
	if same != id || RequestIDFromContext(again) != id {
		t.Fatalf("EnsureRequestID replaced an existing id")
	}

	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	ctx, l := WithRequestLogger(ContextWithRequestID(context.Background(), "req-1"), base)
	l.Info(ctx, "hello")
	if !strings.Contains(buf.String(), `"request_id":"req-1"`) {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	if LoggerFromContext(context.Background()) != nil {
		t.Fatalf("empty context returned a logger")
	}
	l := Noop()
	ctx := ContextWithLogger(context.Background(), l)
	if LoggerFromContext(ctx) == nil {
		t.Fatalf("logger not stored on context")
	}
	if LoggerFromContext(ContextWithLogger(context.Background(), nil)) == nil {
		t.Fatalf("nil logger should be replaced by Noop")
	}
}
