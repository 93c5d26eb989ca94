package core

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// RouteOptions tunes the waypoint generators. The zero value is not useful;
// start from DefaultRouteOptions.
type RouteOptions struct {
	DirectTransitPoints  int
	CommercialLanePoints int

	// Jitter ratios bound the lateral offset of interior waypoints as a
	// fraction of the total route distance.
	DirectJitterRatio float64
	LaneJitterRatio   float64

	// Speed variances bound the per-leg deviation from the base speed.
	DirectSpeedVariance float64
	LaneSpeedVariance   float64

	FishingPoints   int
	FishingRadiusNm float64
	PatrolPoints    int
	PatrolRadiusNm  float64
	// PatrolOffsetDeg rotates the patrol box so its corners sit off the
	// cardinal bearings.
	PatrolOffsetDeg float64

	HarbourApproachFactor float64
	// ProjectedRangeRatio is the share of the window a vessel with no
	// destination spends reaching its projected end point.
	ProjectedRangeRatio float64
	// ArrivalWindowRatio is where ScheduleArrival places the arrival within
	// the reporting window.
	ArrivalWindowRatio float64
}

// DefaultRouteOptions returns the standard generator settings.
func DefaultRouteOptions() RouteOptions {
	return RouteOptions{
		DirectTransitPoints:   4,
		CommercialLanePoints:  8,
		DirectJitterRatio:     0.02,
		LaneJitterRatio:       0.01,
		DirectSpeedVariance:   0.08,
		LaneSpeedVariance:     0.03,
		FishingPoints:         10,
		FishingRadiusNm:       3,
		PatrolPoints:          4,
		PatrolRadiusNm:        8,
		PatrolOffsetDeg:       45,
		HarbourApproachFactor: 0.6,
		ProjectedRangeRatio:   0.9,
		ArrivalWindowRatio:    0.97,
	}
}

// RouteSpec describes one route to build.
type RouteSpec struct {
	Type       model.RouteType
	VesselType model.VesselType
	// Origin is the start of an open route and the centre of a closed one.
	Origin      model.Coordinates
	Destination *model.Coordinates

	// RadiusNm and Points override the loop defaults when positive.
	RadiusNm float64
	Points   int

	// SpeedKnots overrides the vessel type's cruise speed when positive.
	SpeedKnots float64
	// HarbourApproach slows the final leg of an open route.
	HarbourApproach bool
	// Window is used to project a destination for open routes that have none.
	Window time.Duration
}

// RouteBuilder turns a RouteSpec into a validated route.
type RouteBuilder struct {
	opts RouteOptions
}

// NewRouteBuilder constructs a builder with the given options.
func NewRouteBuilder(opts RouteOptions) *RouteBuilder {
	return &RouteBuilder{opts: opts}
}

// Options returns the builder's settings.
func (b *RouteBuilder) Options() RouteOptions {
	return b.opts
}

// Build generates the waypoints for spec. All randomness is drawn from rng so
// the same seed yields the same route.
func (b *RouteBuilder) Build(spec RouteSpec, rng *rand.Rand) (*model.Route, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: route builder needs a random source", ErrValidation)
	}
	profile, ok := spec.VesselType.Profile()
	if !ok {
		return nil, fmt.Errorf("%w: unknown vessel type %v", ErrValidation, spec.VesselType)
	}
	if !spec.Origin.Valid() {
		return nil, fmt.Errorf("%w: origin %v out of range", ErrValidation, spec.Origin)
	}
	base := spec.SpeedKnots
	if base <= 0 {
		base = profile.CruiseSpeedKnots
	}
	if base > profile.MaxSpeedKnots {
		base = profile.MaxSpeedKnots
	}

	switch spec.Type {
	case model.RouteTypeDirectTransit:
		return b.buildTransit(spec, base, b.opts.DirectTransitPoints, b.opts.DirectJitterRatio, b.opts.DirectSpeedVariance, rng)
	case model.RouteTypeCommercialLane:
		return b.buildTransit(spec, base, b.opts.CommercialLanePoints, b.opts.LaneJitterRatio, b.opts.LaneSpeedVariance, rng)
	case model.RouteTypeFishingPattern:
		return b.buildLoop(spec, base, b.opts.FishingPoints, b.opts.FishingRadiusNm, 0, model.LegRoleFishing)
	case model.RouteTypePatrolCircuit:
		return b.buildLoop(spec, base, b.opts.PatrolPoints, b.opts.PatrolRadiusNm, b.opts.PatrolOffsetDeg, model.LegRolePatrol)
	default:
		return nil, fmt.Errorf("%w: unsupported route type %v", ErrValidation, spec.Type)
	}
}

func (b *RouteBuilder) buildTransit(spec RouteSpec, base float64, interior int, jitterRatio, variance float64, rng *rand.Rand) (*model.Route, error) {
	origin := spec.Origin
	var dest model.Coordinates
	if spec.Destination != nil {
		dest = *spec.Destination
		if !dest.Valid() {
			return nil, fmt.Errorf("%w: destination %v out of range", ErrValidation, dest)
		}
	} else {
		if spec.Window <= 0 {
			return nil, fmt.Errorf("%w: %s route needs a destination or a window", ErrValidation, spec.Type)
		}
		rangeNm := base * spec.Window.Hours() * b.opts.ProjectedRangeRatio
		dest = Destination(origin, rng.Float64()*360, rangeNm)
	}

	total := Distance(origin, dest)
	if total < minRouteLengthNm {
		return nil, fmt.Errorf("%w: %s route from %v to %v", ErrDegenerateRoute, spec.Type, origin, dest)
	}
	if spec.Points > 0 {
		interior = spec.Points
	}

	bearing := InitialBearing(origin, dest)
	waypoints := make([]model.Coordinates, 0, interior+2)
	waypoints = append(waypoints, origin)
	for k := 1; k <= interior; k++ {
		along := total * float64(k) / float64(interior+1)
		p := Destination(origin, bearing, along)
		offset := (rng.Float64()*2 - 1) * jitterRatio * total
		waypoints = append(waypoints, OffsetAbeam(p, InitialBearing(p, dest), offset))
	}
	waypoints = append(waypoints, dest)

	legs := len(waypoints) - 1
	speeds := make([]float64, legs)
	roles := make([]model.LegRole, legs)
	for i := range speeds {
		speeds[i] = base * (1 + (rng.Float64()*2-1)*variance)
	}
	if spec.HarbourApproach {
		speeds[legs-1] *= b.opts.HarbourApproachFactor
		roles[legs-1] = model.LegRoleHarbourApproach
	}
	return NewRoute(spec.Type, waypoints, speeds, roles)
}

func (b *RouteBuilder) buildLoop(spec RouteSpec, base float64, points int, radius, offsetDeg float64, role model.LegRole) (*model.Route, error) {
	if spec.Points > 0 {
		points = spec.Points
	}
	if spec.RadiusNm > 0 {
		radius = spec.RadiusNm
	}
	if points < 3 {
		return nil, fmt.Errorf("%w: %s loop needs at least 3 points, got %d", ErrValidation, spec.Type, points)
	}
	if radius <= 0 {
		return nil, fmt.Errorf("%w: %s loop radius must be positive", ErrValidation, spec.Type)
	}

	waypoints := make([]model.Coordinates, 0, points+1)
	for i := 0; i < points; i++ {
		brg := NormalizeBearing(offsetDeg + float64(i)*360/float64(points))
		waypoints = append(waypoints, Destination(spec.Origin, brg, radius))
	}
	waypoints = append(waypoints, waypoints[0])

	speeds := make([]float64, points)
	roles := make([]model.LegRole, points)
	for i := range speeds {
		speeds[i] = base
		roles[i] = role
	}
	return NewRoute(spec.Type, waypoints, speeds, roles)
}

const minRouteLengthNm = 1e-6

// ScheduleArrival returns a copy of an open route whose leg speeds are
// scaled up uniformly so the vessel arrives within window, at
// ArrivalWindowRatio of it. Each leg is capped at maxSpeed, so a route that
// is simply too long still arrives late. Routes that already fit, and
// closed routes, are returned unchanged.
func (b *RouteBuilder) ScheduleArrival(r *model.Route, window time.Duration, maxSpeed float64) *model.Route {
	if r == nil || r.Closed() || window <= 0 {
		return r
	}
	target := window.Hours() * b.opts.ArrivalWindowRatio
	need := TravelTimeHours(r)
	if need <= target || target <= 0 {
		return r
	}
	factor := need / target

	out := *r
	out.Waypoints = append([]model.Coordinates(nil), r.Waypoints...)
	out.Legs = append([]model.Leg(nil), r.Legs...)
	for i := range out.Legs {
		s := out.Legs[i].SpeedKnots * factor
		if maxSpeed > 0 && s > maxSpeed {
			s = maxSpeed
		}
		out.Legs[i].SpeedKnots = s
	}
	return &out
}
