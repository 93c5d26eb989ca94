package httpapi

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/nmea"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/wire"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

var epoch = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

const ferryRequest = `{
  "scenario_name": "irish sea",
  "vessel_count": 2,
  "location": "Dublin",
  "destination": "Liverpool",
  "duration_hours": 1,
  "report_interval_seconds": 300,
  "seed": 7
}`

func newTestServer(t *testing.T) (*Server, *observability.GeneratorCollector) {
	t.Helper()
	metrics, err := observability.NewGeneratorCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewGeneratorCollector: %v", err)
	}
	registry := kb.DefaultRegistry()
	engine := core.NewSimulationEngine(registry,
		core.WithClock(timectrl.FixedClock(epoch)),
		core.WithMetricsRecorder(metrics),
	)
	srv := New(engine, registry, Options{
		Metrics:               metrics,
		DefaultReportInterval: core.DefaultReportInterval,
		RequestTimeout:        10 * time.Second,
		Now:                   func() time.Time { return epoch },
	})
	return srv, metrics
}

func do(t *testing.T, srv *Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := srv.App().Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

func postScenario(t *testing.T, srv *Server, query, contentType, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/scenarios"+query, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return do(t, srv, req)
}

type errorBody struct {
	Error     string `json:"error"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id"`
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var got struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "OK" || got.Time != "2025-06-01T08:00:00Z" {
		t.Fatalf("health = %+v", got)
	}
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Fatalf("missing %s header", HeaderRequestID)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/locations/lookup?q=Atlantis", nil)
	req.Header.Set(HeaderRequestID, "req-123")
	resp, body := do(t, srv, req)
	if got := resp.Header.Get(HeaderRequestID); got != "req-123" {
		t.Fatalf("request id header = %q", got)
	}
	var e errorBody
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.RequestID != "req-123" || e.Status != http.StatusNotFound {
		t.Fatalf("error body = %+v", e)
	}
}

func TestLocations(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/locations?kind=port", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var got struct {
		Locations []LocationView `json:"locations"`
		Regions   []string       `json:"regions"`
		Count     int            `json:"count"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count == 0 || got.Count != len(got.Locations) || len(got.Regions) == 0 {
		t.Fatalf("locations = %d (count %d), regions %d", len(got.Locations), got.Count, len(got.Regions))
	}
	for _, l := range got.Locations {
		if l.Kind != "PORT" {
			t.Fatalf("kind filter leaked %+v", l)
		}
	}

	resp, _ = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/locations?kind=lighthouse", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad kind status = %d", resp.StatusCode)
	}
}

func TestLookup(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/locations/lookup?q=dublin", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var loc LocationView
	if err := json.Unmarshal(body, &loc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc.Name != "Dublin" || loc.Latitude < 53 || loc.Latitude > 54 {
		t.Fatalf("lookup = %+v", loc)
	}

	resp, _ = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/locations/lookup", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing q status = %d", resp.StatusCode)
	}
}

func TestVesselTypes(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/vessel-types", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got struct {
		VesselTypes []VesselTypeView `json:"vessel_types"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.VesselTypes) != len(model.VesselTypes) {
		t.Fatalf("got %d vessel types", len(got.VesselTypes))
	}
	first := got.VesselTypes[0]
	if first.Name != "PASSENGER" || first.AISShipType != 60 || first.CruiseSpeedKnots != 12 {
		t.Fatalf("first type = %+v", first)
	}
	if first.LengthM.Min != 120 || first.LengthM.Max != 200 || len(first.NavStatuses) == 0 {
		t.Fatalf("passenger profile = %+v", first)
	}
}

func TestGenerateJSON(t *testing.T) {
	srv, metrics := newTestServer(t)
	resp, body := postScenario(t, srv, "", "application/json", ferryRequest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	sc, err := structured.Unmarshal(body)
	if err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	if sc.ID == "" || resp.Header.Get(HeaderScenarioID) != sc.ID {
		t.Fatalf("scenario id header %q, body %q", resp.Header.Get(HeaderScenarioID), sc.ID)
	}
	if len(sc.Vessels) != 2 || sc.Seed != 7 || !sc.StartTime.Equal(epoch) {
		t.Fatalf("scenario = %d vessels, seed %d, start %v", len(sc.Vessels), sc.Seed, sc.StartTime)
	}
	for _, v := range sc.Vessels {
		if got := len(sc.Tracks[v.MMSI]); got != 12 {
			t.Fatalf("vessel %d has %d samples, want 12", v.MMSI, got)
		}
	}

	if got := testutil.ToFloat64(metrics.Scenarios.WithLabelValues(core.OutcomeOK)); got != 1 {
		t.Fatalf("ok scenarios = %v", got)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", "/api/scenarios", "200")); got != 1 {
		t.Fatalf("http requests = %v", got)
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	srv, _ := newTestServer(t)
	_, first := postScenario(t, srv, "?format=nmea", "application/json", ferryRequest)
	_, second := postScenario(t, srv, "?format=nmea", "application/json", ferryRequest)
	if !bytes.Equal(first, second) {
		t.Fatalf("same seed produced different tracks")
	}
}

func TestGenerateYAML(t *testing.T) {
	srv, _ := newTestServer(t)
	body := "vessel_count: 1\nvessel_types: [pilot]\nlocation: Rotterdam\nduration_hours: 0.5\nreport_interval_seconds: 60\n"
	resp, out := postScenario(t, srv, "", "application/x-yaml", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, out)
	}
	sc, err := structured.Unmarshal(out)
	if err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	if len(sc.Vessels) != 1 || sc.Vessels[0].Type != model.VesselTypePilotVessel {
		t.Fatalf("vessels = %+v", sc.Vessels)
	}
	if got := len(sc.Tracks[sc.Vessels[0].MMSI]); got != 30 {
		t.Fatalf("samples = %d, want 30", got)
	}
}

func TestGenerateFromRouteCatalogue(t *testing.T) {
	srv, _ := newTestServer(t)
	body := `{"vessel_count": 2, "vessel_types": ["cargo", "pilot"], "duration_hours": 1}`
	resp, out := postScenario(t, srv, "", "application/json", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, out)
	}
	sc, err := structured.Unmarshal(out)
	if err != nil {
		t.Fatalf("decode scenario: %v", err)
	}
	if len(sc.Vessels) != 2 || sc.Vessels[0].RouteName != "Dublin-Liverpool Cargo" || sc.Vessels[1].RouteName != "Dublin Bay Patrol" {
		t.Fatalf("vessels = %+v, %+v", sc.Vessels[0], sc.Vessels[1])
	}
}

func TestGenerateNMEA(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := postScenario(t, srv, "?format=nmea&aivdm=true&static=true", "application/json", ferryRequest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}

	counts := map[string]int{}
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if err := nmea.Verify(line); err != nil {
			t.Fatalf("sentence %q: %v", line, err)
		}
		fields, _ := nmea.Fields(line)
		counts[fields[0]]++
	}
	// 2 vessels x 12 reports; static reports take two fragments each.
	if counts["GPGGA"] != 24 || counts["GPRMC"] != 24 || counts["AIVDM"] != 24+4 {
		t.Fatalf("sentence counts = %v", counts)
	}
}

func TestGenerateWire(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, body := postScenario(t, srv, "?format=wire", "application/json", ferryRequest)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != mimeWire {
		t.Fatalf("content type = %q", ct)
	}
	sc, err := wire.Unmarshal(body)
	if err != nil {
		t.Fatalf("wire.Unmarshal: %v", err)
	}
	if len(sc.Vessels) != 2 || sc.TotalSamples() != 24 {
		t.Fatalf("scenario = %d vessels, %d samples", len(sc.Vessels), sc.TotalSamples())
	}
}

func TestGenerateErrors(t *testing.T) {
	cases := []struct {
		name   string
		query  string
		body   string
		status int
	}{
		{"unknown format", "?format=csv", ferryRequest, http.StatusBadRequest},
		{"empty body", "", "", http.StatusBadRequest},
		{"malformed json", "", `{"vessel_count":`, http.StatusBadRequest},
		{"unknown field", "", `{"vessels_count": 2}`, http.StatusBadRequest},
		{"too many vessels", "", `{"vessel_count": 1000, "location": "Dublin", "duration_hours": 1}`, http.StatusBadRequest},
		{"unknown location", "", `{"vessel_count": 1, "location": "Atlantis", "duration_hours": 1}`, http.StatusNotFound},
		{"nanosecond interval", "", `{"vessel_count": 2, "location": "Dublin", "duration_hours": 2000000, "report_interval_seconds": 1e-9}`, http.StatusBadRequest},
		{"duration out of range", "", `{"vessel_count": 1, "location": "Dublin", "duration_hours": 1e12}`, http.StatusBadRequest},
		{"degenerate route", "", `{"vessel_count": 1, "location": "Dublin", "destination": "Dublin", "duration_hours": 1}`, http.StatusUnprocessableEntity},
	}
	srv, metrics := newTestServer(t)
	for _, tc := range cases {
		resp, body := postScenario(t, srv, tc.query, "application/json", tc.body)
		if resp.StatusCode != tc.status {
			t.Errorf("%s: status = %d, want %d (body %s)", tc.name, resp.StatusCode, tc.status, body)
			continue
		}
		var e errorBody
		if err := json.Unmarshal(body, &e); err != nil {
			t.Errorf("%s: decode error body: %v", tc.name, err)
			continue
		}
		if e.Error == "" || e.Status != tc.status || e.RequestID == "" {
			t.Errorf("%s: error body = %+v", tc.name, e)
		}
	}

	if got := testutil.ToFloat64(metrics.Scenarios.WithLabelValues(core.OutcomeLocationNotFound)); got != 1 {
		t.Fatalf("location_not_found scenarios = %v", got)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("POST", "/api/scenarios", "422")); got != 1 {
		t.Fatalf("422 requests = %v", got)
	}
}

func TestUnknownRouteIsCountedAsUnmatched(t *testing.T) {
	srv, metrics := newTestServer(t)
	resp, _ := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/nowhere", nil))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Fatalf("unmatched requests = %v", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	do(t, srv, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	resp, body := do(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `http_requests_total{code="200",method="GET",route="/api/health"} 1`) {
		t.Fatalf("metrics output missing health request:\n%s", body)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		core.ErrValidation:                    http.StatusBadRequest,
		kb.ErrLocationNotFound:                http.StatusNotFound,
		core.ErrDegenerateRoute:               http.StatusUnprocessableEntity,
		io.ErrUnexpectedEOF:                   http.StatusInternalServerError,
		&kb.LocationNotFoundError{Query: "x"}: http.StatusNotFound,
	}
	for err, want := range cases {
		if got, _ := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}
