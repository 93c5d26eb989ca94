package model

import "time"

// Dimensions are the physical size of a vessel in metres.
type Dimensions struct {
	LengthM  int
	WidthM   int
	DraughtM float64
}

// Vessel is a simulated ship. It is created once by the scenario engine and
// not modified afterwards.
type Vessel struct {
	// MMSI is the vessel identity, unique within a scenario.
	MMSI       uint32
	Name       string
	Type       VesselType
	Dimensions Dimensions
	Route      *Route
	// RouteName names the catalogue route the vessel follows, if any.
	RouteName string

	// Stationary is set when the vessel holds a single position for the
	// whole scenario instead of following a route. Anchorage is that
	// position; Route is nil.
	Stationary bool
	Anchorage  Coordinates
}

// VesselState is one report for one vessel.
type VesselState struct {
	MMSI       uint32
	Position   Position
	SpeedKnots float64
	// CourseDeg is the course over ground in [0, 360).
	CourseDeg float64
	NavStatus NavStatus
	LegIndex  int
	// Progress is the fraction of the current leg completed, in [0, 1].
	Progress float64
}

// Scenario is the result of one generation request.
type Scenario struct {
	ID             string
	Name           string
	Vessels        []*Vessel
	Tracks         map[uint32][]VesselState
	GeneratedAt    time.Time
	StartTime      time.Time
	Duration       time.Duration
	ReportInterval time.Duration
	Seed           uint64
}

// Vessel returns the vessel with the given MMSI, or nil.
func (s *Scenario) Vessel(mmsi uint32) *Vessel {
	for _, v := range s.Vessels {
		if v.MMSI == mmsi {
			return v
		}
	}
	return nil
}

// TotalSamples counts the reports across all tracks.
func (s *Scenario) TotalSamples() int {
	n := 0
	for _, track := range s.Tracks {
		n += len(track)
	}
	return n
}
