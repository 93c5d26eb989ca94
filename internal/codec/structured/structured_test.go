package structured_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

var epoch = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func generate(t *testing.T) *model.Scenario {
	t.Helper()
	se := core.NewSimulationEngine(kb.DefaultRegistry(), core.WithClock(timectrl.FixedClock(epoch)))
	sc, err := se.Generate(context.Background(), core.GenerationRequest{
		ScenarioName: "irish sea mix",
		VesselCount:  5,
		VesselTypes:  model.VesselTypes,
		Location:     "Dublin",
		Destination:  "Holyhead",
		Duration:     3 * time.Hour,
		Seed:         1<<63 + 12345,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return sc
}

func TestRoundTripPreservesScenario(t *testing.T) {
	sc := generate(t)

	data, err := structured.Marshal(sc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := structured.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.ID != sc.ID || got.Name != sc.Name || got.Seed != sc.Seed {
		t.Fatalf("metadata = %q %q %d, want %q %q %d", got.ID, got.Name, got.Seed, sc.ID, sc.Name, sc.Seed)
	}
	if !got.StartTime.Equal(sc.StartTime) || !got.GeneratedAt.Equal(sc.GeneratedAt) {
		t.Fatalf("times = %v %v", got.StartTime, got.GeneratedAt)
	}
	if got.Duration != sc.Duration || got.ReportInterval != sc.ReportInterval {
		t.Fatalf("duration/interval = %v/%v", got.Duration, got.ReportInterval)
	}
	if len(got.Vessels) != len(sc.Vessels) {
		t.Fatalf("vessels = %d, want %d", len(got.Vessels), len(sc.Vessels))
	}
	for i, want := range sc.Vessels {
		v := got.Vessels[i]
		if v.MMSI != want.MMSI || v.Name != want.Name || v.Type != want.Type || v.Dimensions != want.Dimensions {
			t.Fatalf("vessel %d = %+v, want %+v", i, v, want)
		}
		if len(v.Route.Legs) != len(want.Route.Legs) || v.Route.LengthNm != want.Route.LengthNm {
			t.Fatalf("vessel %d route differs", v.MMSI)
		}
		for j := range want.Route.Legs {
			if v.Route.Legs[j] != want.Route.Legs[j] {
				t.Fatalf("vessel %d leg %d = %+v, want %+v", v.MMSI, j, v.Route.Legs[j], want.Route.Legs[j])
			}
		}

		track, wantTrack := got.Tracks[v.MMSI], sc.Tracks[want.MMSI]
		if len(track) != len(wantTrack) {
			t.Fatalf("vessel %d samples = %d, want %d", v.MMSI, len(track), len(wantTrack))
		}
		for j, s := range track {
			w := wantTrack[j]
			if !s.Position.Timestamp.Equal(w.Position.Timestamp) {
				t.Fatalf("vessel %d sample %d timestamp %v, want %v", v.MMSI, j, s.Position.Timestamp, w.Position.Timestamp)
			}
			s.Position.Timestamp, w.Position.Timestamp = time.Time{}, time.Time{}
			if s != w {
				t.Fatalf("vessel %d sample %d = %+v, want %+v", v.MMSI, j, s, w)
			}
		}
	}
}

func TestRouteNameRoundTrip(t *testing.T) {
	se := core.NewSimulationEngine(kb.DefaultRegistry(), core.WithClock(timectrl.FixedClock(epoch)))
	sc, err := se.Generate(context.Background(), core.GenerationRequest{
		VesselCount: 2,
		VesselTypes: []model.VesselType{model.VesselTypeFishing},
		Duration:    time.Hour,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, err := structured.Marshal(sc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"route_name": "Central Irish Sea Grounds"`) {
		t.Fatalf("document lacks route_name:\n%s", data)
	}
	got, err := structured.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for i, v := range got.Vessels {
		if v.RouteName != sc.Vessels[i].RouteName {
			t.Fatalf("vessel %d route name = %q, want %q", i, v.RouteName, sc.Vessels[i].RouteName)
		}
	}
}

func TestDocumentLayout(t *testing.T) {
	sc := generate(t)
	var buf bytes.Buffer
	if err := structured.Write(&buf, sc); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	md, ok := raw["metadata"].(map[string]any)
	if !ok {
		t.Fatalf("metadata missing")
	}
	if md["total_vessels"].(float64) != 5 || md["duration_hours"].(float64) != 3 || md["report_interval_seconds"].(float64) != 300 {
		t.Fatalf("metadata = %v", md)
	}
	if _, ok := md["seed"].(string); !ok {
		t.Fatalf("seed should be a JSON string, got %T", md["seed"])
	}

	vessels := raw["vessels"].(map[string]any)
	rec, ok := vessels["123456000"].(map[string]any)
	if !ok {
		t.Fatalf("vessel 123456000 missing; keys %v", vessels)
	}
	info := rec["info"].(map[string]any)
	if info["type"] != "PASSENGER" || info["ais_ship_type"].(float64) != 60 || info["route_type"] != "DIRECT_TRANSIT" {
		t.Fatalf("info = %v", info)
	}
	samples := rec["samples"].([]any)
	if int(info["total_reports"].(float64)) != len(samples) {
		t.Fatalf("total_reports = %v, samples = %d", info["total_reports"], len(samples))
	}
	first := samples[0].(map[string]any)
	if first["timestamp"] != "2025-06-01T08:00:00Z" || first["navigational_status"] != "UNDER_WAY_USING_ENGINE" {
		t.Fatalf("first sample = %v", first)
	}
	summary := rec["route_summary"].(map[string]any)
	start := summary["start"].(map[string]any)
	if start["lat"] != first["lat"] || start["lon"] != first["lon"] {
		t.Fatalf("route_summary.start = %v, first sample = %v", start, first)
	}
}

func TestStationaryVesselRoundTrip(t *testing.T) {
	anchor := model.Coordinates{Latitude: 53.3498, Longitude: -6.2603}
	sc := &model.Scenario{
		ID:             "fixed",
		Name:           "anchored",
		StartTime:      epoch,
		GeneratedAt:    epoch,
		Duration:       time.Hour,
		ReportInterval: 30 * time.Minute,
		Vessels: []*model.Vessel{{
			MMSI:       123456000,
			Name:       "CELTIC SEA_1",
			Type:       model.VesselTypePassenger,
			Stationary: true,
			Anchorage:  anchor,
		}},
		Tracks: map[uint32][]model.VesselState{
			123456000: {{
				MMSI:      123456000,
				Position:  model.Position{Coordinates: anchor, Timestamp: epoch},
				NavStatus: model.NavStatusAtAnchor,
			}},
		},
	}
	data, err := structured.Marshal(sc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(data), `"route"`) {
		t.Fatalf("stationary vessel should not carry a route:\n%s", data)
	}
	got, err := structured.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	v := got.Vessels[0]
	if !v.Stationary || v.Anchorage != anchor || v.Route != nil {
		t.Fatalf("vessel = %+v", v)
	}
	if got.Tracks[v.MMSI][0].NavStatus != model.NavStatusAtAnchor {
		t.Fatalf("status = %v", got.Tracks[v.MMSI][0].NavStatus)
	}
}

func TestDecodeRejectsBrokenDocuments(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"bad key":      `{"metadata":{},"vessels":{"abc":{"info":{"type":"CARGO"},"samples":[]}}}`,
		"bad type":     `{"metadata":{},"vessels":{"1":{"info":{"type":"SUBMARINE"},"samples":[]}}}`,
		"bad status":   `{"metadata":{},"vessels":{"1":{"info":{"type":"CARGO"},"samples":[{"navigational_status":"DRIFTING","timestamp":"2025-06-01T08:00:00Z"}]}}}`,
		"short route":  `{"metadata":{},"vessels":{"1":{"info":{"type":"CARGO"},"route":{"type":"DIRECT_TRANSIT","waypoints":[{"lat":1,"lon":1}]},"samples":[]}}}`,
		"count":        `{"metadata":{"total_vessels":2},"vessels":{"1":{"info":{"type":"CARGO"},"samples":[]}}}`,
		"identity":     `{"metadata":{},"vessels":{"1":{"info":{"identity":2,"type":"CARGO"},"samples":[]}}}`,
		"leg mismatch": `{"metadata":{},"vessels":{"1":{"info":{"type":"CARGO"},"route":{"type":"DIRECT_TRANSIT","waypoints":[{"lat":1,"lon":1},{"lat":2,"lon":2}]},"samples":[]}}}`,
	}
	for name, doc := range cases {
		if _, err := structured.Read(strings.NewReader(doc)); !errors.Is(err, structured.ErrInvalidDocument) {
			t.Errorf("%s: err = %v, want ErrInvalidDocument", name, err)
		}
	}
}
