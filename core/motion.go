package core

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

// DefaultSpeedNoise is the bound on the random speed perturbation, as a
// fraction of the leg speed.
const DefaultSpeedNoise = 0.05

// MotionModel produces the report sequence for one vessel.
type MotionModel interface {
	Simulate(tb timectrl.Timebase, rng *rand.Rand) ([]model.VesselState, error)
}

// NewMotionModel chooses the motion model for a vessel: stationary vessels
// hold their anchorage, everything else follows its route.
func NewMotionModel(v *model.Vessel, opts ...MotionOption) (MotionModel, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: vessel is required", ErrValidation)
	}
	if v.Stationary {
		return &StationaryMotionModel{MMSI: v.MMSI, Position: v.Anchorage}, nil
	}
	return NewRouteMotionModel(v, opts...)
}

// StationaryMotionModel reports the same position at every step.
type StationaryMotionModel struct {
	MMSI       uint32
	Position   model.Coordinates
	HeadingDeg float64
	// Status defaults to AT_ANCHOR.
	Status model.NavStatus
}

// Simulate implements MotionModel.
func (m *StationaryMotionModel) Simulate(tb timectrl.Timebase, _ *rand.Rand) ([]model.VesselState, error) {
	if err := tb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	status := m.Status
	if status == model.NavStatusUnderWayUsingEngine {
		status = model.NavStatusAtAnchor
	}
	steps := tb.Steps()
	out := make([]model.VesselState, 0, steps)
	for i := 0; i < steps; i++ {
		out = append(out, model.VesselState{
			MMSI:      m.MMSI,
			Position:  model.Position{Coordinates: m.Position, Timestamp: tb.At(i)},
			CourseDeg: NormalizeBearing(m.HeadingDeg),
			NavStatus: status,
		})
	}
	return out, nil
}

// MotionOption customises a RouteMotionModel.
type MotionOption func(*RouteMotionModel)

// WithSpeedNoise sets the speed perturbation bound (fraction of leg speed).
func WithSpeedNoise(f float64) MotionOption {
	return func(m *RouteMotionModel) {
		if f >= 0 {
			m.speedNoise = f
		}
	}
}

// WithArrivalTolerance sets the distance from the final waypoint inside which
// the vessel reports AT_ANCHOR.
func WithArrivalTolerance(nm float64) MotionOption {
	return func(m *RouteMotionModel) {
		if nm > 0 {
			m.arrivalTolNm = nm
		}
	}
}

// RouteMotionModel moves a vessel along its route. Positions follow the leg
// schedule exactly; reported course and speed are eased within the vessel
// type's turn-rate and acceleration limits.
type RouteMotionModel struct {
	vessel  *model.Vessel
	route   *model.Route
	profile model.VesselProfile

	speedNoise   float64
	arrivalTolNm float64

	// legStart/legEnd are cumulative schedule offsets in hours.
	legStart []float64
	legEnd   []float64
	period   float64
	lastLeg  int
}

// NewRouteMotionModel precomputes the leg schedule for v's route.
func NewRouteMotionModel(v *model.Vessel, opts ...MotionOption) (*RouteMotionModel, error) {
	if v == nil || v.Route == nil {
		return nil, fmt.Errorf("%w: vessel has no route", ErrValidation)
	}
	profile, ok := v.Type.Profile()
	if !ok {
		return nil, fmt.Errorf("%w: unknown vessel type %v", ErrValidation, v.Type)
	}
	r := v.Route
	if len(r.Legs) == 0 {
		return nil, fmt.Errorf("%w: route has no legs", ErrValidation)
	}

	m := &RouteMotionModel{
		vessel:       v,
		route:        r,
		profile:      profile,
		speedNoise:   DefaultSpeedNoise,
		arrivalTolNm: DefaultArrivalToleranceNm,
		legStart:     make([]float64, len(r.Legs)),
		legEnd:       make([]float64, len(r.Legs)),
		lastLeg:      -1,
	}
	for _, opt := range opts {
		opt(m)
	}

	var t float64
	for i, leg := range r.Legs {
		m.legStart[i] = t
		if leg.DistanceNm > 0 {
			if leg.SpeedKnots <= 0 {
				return nil, fmt.Errorf("%w: leg %d has no speed", ErrValidation, i)
			}
			t += leg.DistanceNm / leg.SpeedKnots
			m.lastLeg = i
		}
		m.legEnd[i] = t
	}
	if m.lastLeg < 0 {
		return nil, fmt.Errorf("%w: every leg has zero length", ErrDegenerateRoute)
	}
	m.period = t
	return m, nil
}

// Period is the time needed to sail the route once. For closed routes it is
// the loop period.
func (m *RouteMotionModel) Period() time.Duration {
	return time.Duration(m.period * float64(time.Hour))
}

// Fix is the scheduled location of a vessel at one instant.
type Fix struct {
	Position model.Coordinates
	LegIndex int
	Progress float64
	// Arrived is set once an open route has been completed.
	Arrived bool
}

// PositionAt returns where the schedule puts the vessel after elapsed.
func (m *RouteMotionModel) PositionAt(elapsed time.Duration) Fix {
	return m.locate(elapsed.Hours())
}

func (m *RouteMotionModel) locate(h float64) Fix {
	if m.route.Closed() {
		h = math.Mod(h, m.period)
		if h < 0 {
			h += m.period
		}
	} else if h >= m.period {
		return Fix{Position: m.route.End(), LegIndex: m.lastLeg, Progress: 1, Arrived: true}
	}
	if h < 0 {
		h = 0
	}

	for i, leg := range m.route.Legs {
		dur := m.legEnd[i] - m.legStart[i]
		if dur <= 0 || h >= m.legEnd[i] {
			continue
		}
		progress := (h - m.legStart[i]) / dur
		return Fix{
			Position: Destination(leg.From, leg.BearingDeg, progress*leg.DistanceNm),
			LegIndex: i,
			Progress: progress,
		}
	}
	// Rounding at the very end of the last leg.
	return Fix{Position: m.route.Legs[m.lastLeg].To, LegIndex: m.lastLeg, Progress: 1}
}

func (m *RouteMotionModel) remainingNm(f Fix) float64 {
	if f.Arrived {
		return 0
	}
	legs := m.route.Legs
	rem := (1 - f.Progress) * legs[f.LegIndex].DistanceNm
	for _, leg := range legs[f.LegIndex+1:] {
		rem += leg.DistanceNm
	}
	return rem
}

func courseTo(f Fix, leg model.Leg) float64 {
	if Distance(f.Position, leg.To) > minRouteLengthNm {
		return InitialBearing(f.Position, leg.To)
	}
	// At the waypoint itself: keep the final great-circle bearing of the leg.
	return NormalizeBearing(InitialBearing(leg.To, leg.From) + 180)
}

// Simulate implements MotionModel. The first report starts at the target
// course and speed; the vessel is already under way.
func (m *RouteMotionModel) Simulate(tb timectrl.Timebase, rng *rand.Rand) ([]model.VesselState, error) {
	if err := tb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: motion model needs a random source", ErrValidation)
	}

	steps := tb.Steps()
	minutes := tb.Interval.Minutes()
	maxTurn := m.profile.MaxTurnRateDegPerMin * minutes
	maxAccel := m.profile.AccelKnotsPerMin * minutes

	out := make([]model.VesselState, 0, steps)
	var course, speed float64
	for i := 0; i < steps; i++ {
		fix := m.PositionAt(tb.Elapsed(i))
		leg := m.route.Legs[fix.LegIndex]
		// Drawn every step so the sequence does not depend on arrival time.
		noise := 1 + (rng.Float64()*2-1)*m.speedNoise

		switch {
		case fix.Arrived:
			if i == 0 {
				course = courseTo(fix, leg)
			}
			speed = 0
		case i == 0:
			course = courseTo(fix, leg)
			speed = leg.SpeedKnots * noise
		default:
			course = NormalizeBearing(course + clamp(AngleDelta(course, courseTo(fix, leg)), maxTurn))
			speed = math.Max(0, speed+clamp(leg.SpeedKnots*noise-speed, maxAccel))
		}

		status := NavStatusAt(StatusInput{
			VesselType:         m.vessel.Type,
			RouteType:          m.route.Type,
			LegIndex:           fix.LegIndex,
			LegRole:            leg.Role,
			Progress:           fix.Progress,
			RemainingNm:        m.remainingNm(fix),
			Arrived:            fix.Arrived,
			DraughtM:           m.vessel.Dimensions.DraughtM,
			ArrivalToleranceNm: m.arrivalTolNm,
		})

		out = append(out, model.VesselState{
			MMSI:       m.vessel.MMSI,
			Position:   model.Position{Coordinates: fix.Position, Timestamp: tb.At(i)},
			SpeedKnots: speed,
			CourseDeg:  course,
			NavStatus:  status,
			LegIndex:   fix.LegIndex,
			Progress:   fix.Progress,
		})
	}
	return out, nil
}

func clamp(v, limit float64) float64 {
	if limit <= 0 {
		return v
	}
	return math.Max(-limit, math.Min(limit, v))
}
