// Package structured renders a scenario as a JSON document keyed by MMSI and
// reads it back.
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// ErrInvalidDocument is returned when a document cannot be turned back into
// a scenario.
var ErrInvalidDocument = errors.New("invalid scenario document")

// Document is the top-level JSON shape. Vessels are keyed by the decimal
// MMSI; encoding/json writes map keys sorted, so output is stable.
type Document struct {
	Metadata Metadata                `json:"metadata"`
	Vessels  map[string]VesselRecord `json:"vessels"`
}

type Metadata struct {
	ScenarioID            string    `json:"scenario_id"`
	ScenarioName          string    `json:"scenario_name"`
	GeneratedAt           time.Time `json:"generated_at"`
	StartTime             time.Time `json:"start_time"`
	TotalVessels          int       `json:"total_vessels"`
	DurationHours         float64   `json:"duration_hours"`
	ReportIntervalSeconds float64   `json:"report_interval_seconds"`
	// Seed is quoted: JSON numbers lose precision above 2^53.
	Seed uint64 `json:"seed,string"`
}

type VesselRecord struct {
	Info         VesselInfo    `json:"info"`
	Route        *RouteRecord  `json:"route,omitempty"`
	RouteSummary *RouteSummary `json:"route_summary,omitempty"`
	Samples      []Sample      `json:"samples"`
}

type VesselInfo struct {
	Identity     uint32  `json:"identity"`
	Name         string  `json:"name"`
	Type         string  `json:"type"`
	AISShipType  int     `json:"ais_ship_type"`
	Length       int     `json:"length"`
	Width        int     `json:"width"`
	Draught      float64 `json:"draught"`
	RouteType    string  `json:"route_type,omitempty"`
	RouteName    string  `json:"route_name,omitempty"`
	Stationary   bool    `json:"stationary,omitempty"`
	Anchorage    *Point  `json:"anchorage,omitempty"`
	TotalReports int     `json:"total_reports"`
}

type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type RouteRecord struct {
	Type      string      `json:"type"`
	LengthNm  float64     `json:"length_nm"`
	Waypoints []Point     `json:"waypoints"`
	Legs      []LegRecord `json:"legs,omitempty"`
}

type LegRecord struct {
	DistanceNm float64 `json:"distance_nm"`
	BearingDeg float64 `json:"bearing_deg"`
	SpeedKnots float64 `json:"speed_knots"`
	Role       string  `json:"role"`
}

type TimedPoint struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Timestamp time.Time `json:"timestamp"`
}

type RouteSummary struct {
	Start TimedPoint `json:"start"`
	End   TimedPoint `json:"end"`
}

type Sample struct {
	Identity           uint32    `json:"identity"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	SpeedKnots         float64   `json:"speed_knots"`
	Course             float64   `json:"course"`
	Timestamp          time.Time `json:"timestamp"`
	NavigationalStatus string    `json:"navigational_status"`
	LegIndex           int       `json:"leg_index"`
	Progress           float64   `json:"progress"`
}

// Encode converts a scenario into its document form.
func Encode(sc *model.Scenario) Document {
	doc := Document{
		Metadata: Metadata{
			ScenarioID:            sc.ID,
			ScenarioName:          sc.Name,
			GeneratedAt:           sc.GeneratedAt.UTC(),
			StartTime:             sc.StartTime.UTC(),
			TotalVessels:          len(sc.Vessels),
			DurationHours:         sc.Duration.Hours(),
			ReportIntervalSeconds: sc.ReportInterval.Seconds(),
			Seed:                  sc.Seed,
		},
		Vessels: make(map[string]VesselRecord, len(sc.Vessels)),
	}
	for _, v := range sc.Vessels {
		doc.Vessels[strconv.FormatUint(uint64(v.MMSI), 10)] = encodeVessel(v, sc.Tracks[v.MMSI])
	}
	return doc
}

func encodeVessel(v *model.Vessel, track []model.VesselState) VesselRecord {
	profile, _ := v.Type.Profile()
	rec := VesselRecord{
		Info: VesselInfo{
			Identity:     v.MMSI,
			Name:         v.Name,
			Type:         v.Type.String(),
			AISShipType:  profile.AISShipType,
			Length:       v.Dimensions.LengthM,
			Width:        v.Dimensions.WidthM,
			Draught:      v.Dimensions.DraughtM,
			RouteName:    v.RouteName,
			Stationary:   v.Stationary,
			TotalReports: len(track),
		},
		Samples: make([]Sample, 0, len(track)),
	}
	if v.Stationary {
		rec.Info.Anchorage = &Point{Lat: v.Anchorage.Latitude, Lon: v.Anchorage.Longitude}
	}
	if r := v.Route; r != nil {
		rec.Info.RouteType = r.Type.String()
		rr := &RouteRecord{
			Type:      r.Type.String(),
			LengthNm:  r.LengthNm,
			Waypoints: make([]Point, len(r.Waypoints)),
			Legs:      make([]LegRecord, len(r.Legs)),
		}
		for i, wp := range r.Waypoints {
			rr.Waypoints[i] = Point{Lat: wp.Latitude, Lon: wp.Longitude}
		}
		for i, leg := range r.Legs {
			rr.Legs[i] = LegRecord{
				DistanceNm: leg.DistanceNm,
				BearingDeg: leg.BearingDeg,
				SpeedKnots: leg.SpeedKnots,
				Role:       leg.Role.String(),
			}
		}
		rec.Route = rr
	}
	for _, s := range track {
		rec.Samples = append(rec.Samples, Sample{
			Identity:           s.MMSI,
			Lat:                s.Position.Latitude,
			Lon:                s.Position.Longitude,
			SpeedKnots:         s.SpeedKnots,
			Course:             s.CourseDeg,
			Timestamp:          s.Position.Timestamp.UTC(),
			NavigationalStatus: s.NavStatus.String(),
			LegIndex:           s.LegIndex,
			Progress:           s.Progress,
		})
	}
	if n := len(track); n > 0 {
		first, last := track[0].Position, track[n-1].Position
		rec.RouteSummary = &RouteSummary{
			Start: TimedPoint{Lat: first.Latitude, Lon: first.Longitude, Timestamp: first.Timestamp.UTC()},
			End:   TimedPoint{Lat: last.Latitude, Lon: last.Longitude, Timestamp: last.Timestamp.UTC()},
		}
	}
	return rec
}

// Marshal encodes sc as indented JSON.
func Marshal(sc *model.Scenario) ([]byte, error) {
	data, err := json.MarshalIndent(Encode(sc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal scenario: %w", err)
	}
	return data, nil
}

// Write streams the JSON document for sc to w.
func Write(w io.Writer, sc *model.Scenario) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(sc)); err != nil {
		return fmt.Errorf("write scenario: %w", err)
	}
	return nil
}

// Unmarshal parses a JSON document produced by Marshal or Write.
func Unmarshal(data []byte) (*model.Scenario, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Decode(doc)
}

// Read decodes one document from r.
func Read(r io.Reader) (*model.Scenario, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Decode(doc)
}

// Decode rebuilds a scenario from its document form. Vessels come back
// ordered by MMSI.
func Decode(doc Document) (*model.Scenario, error) {
	md := doc.Metadata
	sc := &model.Scenario{
		ID:             md.ScenarioID,
		Name:           md.ScenarioName,
		GeneratedAt:    md.GeneratedAt,
		StartTime:      md.StartTime,
		Duration:       time.Duration(math.Round(md.DurationHours * float64(time.Hour))),
		ReportInterval: time.Duration(math.Round(md.ReportIntervalSeconds * float64(time.Second))),
		Seed:           md.Seed,
		Vessels:        make([]*model.Vessel, 0, len(doc.Vessels)),
		Tracks:         make(map[uint32][]model.VesselState, len(doc.Vessels)),
	}
	for key, rec := range doc.Vessels {
		mmsi, err := strconv.ParseUint(key, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: vessel key %q is not an MMSI", ErrInvalidDocument, key)
		}
		if rec.Info.Identity != 0 && uint64(rec.Info.Identity) != mmsi {
			return nil, fmt.Errorf("%w: vessel %s has identity %d", ErrInvalidDocument, key, rec.Info.Identity)
		}
		v, track, err := decodeVessel(uint32(mmsi), rec)
		if err != nil {
			return nil, err
		}
		sc.Vessels = append(sc.Vessels, v)
		sc.Tracks[v.MMSI] = track
	}
	sort.Slice(sc.Vessels, func(i, j int) bool { return sc.Vessels[i].MMSI < sc.Vessels[j].MMSI })
	if md.TotalVessels != 0 && md.TotalVessels != len(sc.Vessels) {
		return nil, fmt.Errorf("%w: total_vessels is %d but %d vessels present",
			ErrInvalidDocument, md.TotalVessels, len(sc.Vessels))
	}
	return sc, nil
}

func decodeVessel(mmsi uint32, rec VesselRecord) (*model.Vessel, []model.VesselState, error) {
	vt, err := model.ParseVesselType(rec.Info.Type)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: vessel %d: %v", ErrInvalidDocument, mmsi, err)
	}
	v := &model.Vessel{
		MMSI: mmsi,
		Name: rec.Info.Name,
		Type: vt,
		Dimensions: model.Dimensions{
			LengthM:  rec.Info.Length,
			WidthM:   rec.Info.Width,
			DraughtM: rec.Info.Draught,
		},
		RouteName:  rec.Info.RouteName,
		Stationary: rec.Info.Stationary,
	}
	if a := rec.Info.Anchorage; a != nil {
		v.Anchorage = model.Coordinates{Latitude: a.Lat, Longitude: a.Lon}
	}
	if rec.Route != nil {
		route, err := decodeRoute(*rec.Route)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: vessel %d: %v", ErrInvalidDocument, mmsi, err)
		}
		v.Route = route
	}

	track := make([]model.VesselState, len(rec.Samples))
	for i, s := range rec.Samples {
		status, err := model.ParseNavStatus(s.NavigationalStatus)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: vessel %d sample %d: %v", ErrInvalidDocument, mmsi, i, err)
		}
		track[i] = model.VesselState{
			MMSI: s.Identity,
			Position: model.Position{
				Coordinates: model.Coordinates{Latitude: s.Lat, Longitude: s.Lon},
				Timestamp:   s.Timestamp,
			},
			SpeedKnots: s.SpeedKnots,
			CourseDeg:  s.Course,
			NavStatus:  status,
			LegIndex:   s.LegIndex,
			Progress:   s.Progress,
		}
	}
	return v, track, nil
}

func decodeRoute(rr RouteRecord) (*model.Route, error) {
	rt, err := model.ParseRouteType(rr.Type)
	if err != nil {
		return nil, err
	}
	if len(rr.Waypoints) < 2 {
		return nil, fmt.Errorf("route has %d waypoints", len(rr.Waypoints))
	}
	if len(rr.Legs) != len(rr.Waypoints)-1 {
		return nil, fmt.Errorf("route has %d legs for %d waypoints", len(rr.Legs), len(rr.Waypoints))
	}
	r := &model.Route{
		Type:      rt,
		LengthNm:  rr.LengthNm,
		Waypoints: make([]model.Coordinates, len(rr.Waypoints)),
		Legs:      make([]model.Leg, len(rr.Legs)),
	}
	for i, p := range rr.Waypoints {
		r.Waypoints[i] = model.Coordinates{Latitude: p.Lat, Longitude: p.Lon}
	}
	for i, lr := range rr.Legs {
		role, err := model.ParseLegRole(lr.Role)
		if err != nil {
			return nil, err
		}
		r.Legs[i] = model.Leg{
			From:       r.Waypoints[i],
			To:         r.Waypoints[i+1],
			DistanceNm: lr.DistanceNm,
			BearingDeg: lr.BearingDeg,
			SpeedKnots: lr.SpeedKnots,
			Role:       role,
		}
	}
	return r, nil
}
