package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
)

var _ core.MetricsRecorder = (*GeneratorCollector)(nil)

func TestGeneratorCollectorRecordsEngineRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeneratorCollector(reg)
	if err != nil {
		t.Fatalf("NewGeneratorCollector: %v", err)
	}

	se := core.NewSimulationEngine(kb.DefaultRegistry(), core.WithMetricsRecorder(collector))
	sc, err := se.Generate(context.Background(), core.GenerationRequest{
		VesselCount: 2,
		VesselTypes: []model.VesselType{model.VesselTypeCargo, model.VesselTypeFishing},
		Location:    "Dublin",
		Destination: "Liverpool",
		Duration:    time.Hour,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := se.Generate(context.Background(), core.GenerationRequest{
		VesselCount: 1,
		Location:    "Atlantis",
		Duration:    time.Hour,
	}); err == nil {
		t.Fatalf("expected unknown location to fail")
	}

	if got := testutil.ToFloat64(collector.Scenarios.WithLabelValues(core.OutcomeOK)); got != 1 {
		t.Fatalf("scenarios_generated_total{outcome=ok} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Scenarios.WithLabelValues(core.OutcomeLocationNotFound)); got != 1 {
		t.Fatalf("scenarios_generated_total{outcome=location_not_found} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.VesselsSimulated.WithLabelValues("FISHING")); got != 1 {
		t.Fatalf("vessels_simulated_total{vessel_type=FISHING} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.Samples); got != float64(sc.TotalSamples()) {
		t.Fatalf("track_samples_total = %v, want %d", got, sc.TotalSamples())
	}
	if count := histogramSampleCount(t, reg, "scenario_generation_duration_seconds", nil); count != 2 {
		t.Fatalf("scenario_generation_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestObserveHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeneratorCollector(reg)
	if err != nil {
		t.Fatalf("NewGeneratorCollector: %v", err)
	}
	collector.ObserveHTTP(http.MethodPost, "/api/scenarios", 201, 20*time.Millisecond)
	collector.ObserveHTTP(http.MethodPost, "/api/scenarios", 400, time.Millisecond)
	collector.ObserveHTTP(http.MethodGet, "", 404, time.Millisecond)

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("POST", "/api/scenarios", "400")); got != 1 {
		t.Fatalf("http_requests_total{code=400} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("http_requests_total{route=unmatched} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "http_request_duration_seconds", map[string]string{
		"method": "POST",
		"route":  "/api/scenarios",
	}); count != 2 {
		t.Fatalf("http_request_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestRegistrationIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewGeneratorCollector(reg)
	if err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewGeneratorCollector(reg)
	if err != nil {
		t.Fatalf("second registration: %v", err)
	}
	second.ObserveVessel("CARGO", 10)
	if got := testutil.ToFloat64(first.Samples); got != 10 {
		t.Fatalf("collectors not shared: first track_samples_total = %v", got)
	}

	clash := prometheus.NewRegistry()
	clash.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{Name: "track_samples_total", Help: "clash"}))
	if _, err := NewGeneratorCollector(clash); err == nil {
		t.Fatalf("expected incompatible registration to fail")
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *GeneratorCollector
	c.ObserveScenario(core.OutcomeOK, 1, 1, time.Second)
	c.ObserveVessel("CARGO", 1)
	c.ObserveHTTP("GET", "/", 200, time.Second)
	var r *ReplayCollector
	r.ObserveStep(0, 1, time.Second)
	r.ObserveSentence("GPGGA")
}

func TestMetricsHandlerExposesGeneratorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeneratorCollector(reg)
	if err != nil {
		t.Fatalf("NewGeneratorCollector: %v", err)
	}
	collector.ObserveScenario(core.OutcomeOK, 3, 30, 10*time.Millisecond)
	collector.ObserveVessel("PASSENGER", 30)
	collector.ObserveHTTP("GET", "/api/health", 200, time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"scenarios_generated_total",
		"vessels_simulated_total",
		"track_samples_total 30",
		"scenario_generation_duration_seconds",
		"http_requests_total",
		"http_request_duration_seconds",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output:\n%s", metric, body)
		}
	}
}

func TestReplayCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewReplayCollector(reg)
	if err != nil {
		t.Fatalf("NewReplayCollector: %v", err)
	}
	c.ObserveSentence("GPGGA")
	c.ObserveSentence("GPGGA")
	c.ObserveStep(0, 4, 3*time.Millisecond)
	c.ObserveStep(1, 4, -time.Millisecond)

	if got := testutil.ToFloat64(c.SentencesEmitted.WithLabelValues("GPGGA")); got != 2 {
		t.Fatalf("replay_sentences_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.StepsReplayed); got != 2 {
		t.Fatalf("replay_steps_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Progress); got != 0.5 {
		t.Fatalf("replay_progress_ratio = %v, want 0.5", got)
	}
	c.SetProgress(7)
	if got := testutil.ToFloat64(c.Progress); got != 1 {
		t.Fatalf("progress not clamped: %v", got)
	}
	if count := histogramSampleCount(t, reg, "replay_step_lag_seconds", nil); count != 2 {
		t.Fatalf("replay_step_lag_seconds sample_count = %d, want 2", count)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
