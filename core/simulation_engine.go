package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/vessel-track-simulator/core"

// maxLoopOffsetNm bounds how far a fishing or patrol loop centre is moved
// away from the requested location.
const maxLoopOffsetNm = 5.0

// LocationResolver turns place names into registry entries.
type LocationResolver interface {
	Lookup(query string) (kb.Location, error)
}

// MetricsRecorder receives generation statistics.
type MetricsRecorder interface {
	ObserveScenario(outcome string, vessels, samples int, elapsed time.Duration)
	ObserveVessel(vesselType string, samples int)
}

// Outcome labels passed to MetricsRecorder.ObserveScenario.
const (
	OutcomeOK               = "ok"
	OutcomeValidation       = "validation_error"
	OutcomeLocationNotFound = "location_not_found"
	OutcomeDegenerateRoute  = "degenerate_route"
	OutcomeError            = "error"
)

// OutcomeOf classifies a Generate error for metrics and logs.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrValidation):
		return OutcomeValidation
	case errors.Is(err, kb.ErrLocationNotFound):
		return OutcomeLocationNotFound
	case errors.Is(err, ErrDegenerateRoute):
		return OutcomeDegenerateRoute
	default:
		return OutcomeError
	}
}

// SimulationEngine builds scenarios: it resolves locations, assigns vessel
// identities and routes, and runs every vessel's motion model on a bounded
// worker pool. It holds no per-request state and is safe for concurrent use.
type SimulationEngine struct {
	Locations LocationResolver

	builder    *RouteBuilder
	routes     *kb.RouteCatalog
	motionOpts []MotionOption
	log        logging.Logger
	metrics    MetricsRecorder
	limits     Limits
	clock      timectrl.SimClock
}

// EngineOption customises SimulationEngine construction.
type EngineOption func(*SimulationEngine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(se *SimulationEngine) {
		if l != nil {
			se.log = l
		}
	}
}

// WithMetricsRecorder wires generation metrics.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(se *SimulationEngine) {
		se.metrics = m
	}
}

// WithLimits replaces DefaultLimits.
func WithLimits(l Limits) EngineOption {
	return func(se *SimulationEngine) {
		se.limits = l
	}
}

// WithClock sets the clock used for GeneratedAt and default start times.
func WithClock(c timectrl.SimClock) EngineOption {
	return func(se *SimulationEngine) {
		if c != nil {
			se.clock = c
		}
	}
}

// WithRouteOptions replaces DefaultRouteOptions.
func WithRouteOptions(o RouteOptions) EngineOption {
	return func(se *SimulationEngine) {
		se.builder = NewRouteBuilder(o)
	}
}

// WithRouteCatalog replaces kb.DefaultRouteCatalog as the source of routes
// for vessels given no location. nil requires every vessel to have one.
func WithRouteCatalog(c *kb.RouteCatalog) EngineOption {
	return func(se *SimulationEngine) {
		se.routes = c
	}
}

// WithMotionOptions is applied to every route motion model.
func WithMotionOptions(opts ...MotionOption) EngineOption {
	return func(se *SimulationEngine) {
		se.motionOpts = append(se.motionOpts, opts...)
	}
}

// NewSimulationEngine constructs an engine over the given location resolver.
func NewSimulationEngine(locations LocationResolver, opts ...EngineOption) *SimulationEngine {
	se := &SimulationEngine{
		Locations: locations,
		builder:   NewRouteBuilder(DefaultRouteOptions()),
		routes:    kb.DefaultRouteCatalog(),
		log:       logging.Noop(),
		limits:    DefaultLimits(),
		clock:     timectrl.SystemClock{},
	}
	for _, opt := range opts {
		opt(se)
	}
	return se
}

// Limits returns the engine's request bounds.
func (se *SimulationEngine) Limits() Limits {
	return se.limits
}

type vesselPlan struct {
	vessel *model.Vessel
	origin kb.Location
	dest   *kb.Location
}

// Generate builds a complete scenario or fails as a whole.
func (se *SimulationEngine) Generate(ctx context.Context, req GenerationRequest) (*model.Scenario, error) {
	started := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "core.Generate")
	defer span.End()

	log := se.log
	if l := logging.LoggerFromContext(ctx); l != nil {
		log = l
	}

	scenario, err := se.generate(ctx, req, log)
	outcome := OutcomeOf(err)
	vessels, samples := 0, 0
	if scenario != nil {
		vessels, samples = len(scenario.Vessels), scenario.TotalSamples()
	}
	if se.metrics != nil {
		se.metrics.ObserveScenario(outcome, vessels, samples, time.Since(started))
	}
	span.SetAttributes(
		attribute.String("scenario.outcome", outcome),
		attribute.Int("scenario.vessels", vessels),
		attribute.Int("scenario.samples", samples),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn(ctx, "scenario generation failed",
			logging.String("outcome", outcome),
			logging.Err(err),
		)
		return nil, err
	}
	log.Info(ctx, "scenario generated",
		logging.ScenarioID(scenario.ID),
		logging.String("scenario_name", scenario.Name),
		logging.Vessels(vessels),
		logging.Int("samples", samples),
		logging.Duration("elapsed", time.Since(started)),
	)
	return scenario, nil
}

func (se *SimulationEngine) generate(ctx context.Context, req GenerationRequest, log logging.Logger) (*model.Scenario, error) {
	if se.Locations == nil {
		return nil, fmt.Errorf("%w: simulation engine has no location registry", ErrValidation)
	}
	req = req.WithDefaults(se.clock.Now())
	if err := req.Validate(se.limits); err != nil {
		return nil, err
	}
	tb := req.Timebase()
	seed := req.EffectiveSeed()

	plans, err := se.plan(req)
	if err != nil {
		return nil, err
	}

	workers := se.limits.Workers
	if workers <= 0 {
		workers = 1
	}
	tracks := make([][]model.VesselState, len(plans))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range plans {
		p := plans[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			track, err := se.simulateVessel(gctx, p, req, tb, seed)
			if err != nil {
				return fmt.Errorf("vessel %d (%s): %w", p.vessel.MMSI, p.vessel.Name, err)
			}
			tracks[i] = track
			log.Debug(gctx, "vessel simulated",
				logging.MMSI(p.vessel.MMSI),
				logging.String("type", p.vessel.Type.String()),
				logging.Int("samples", len(track)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scenario := &model.Scenario{
		ID:             uuid.NewString(),
		Name:           req.ScenarioName,
		Vessels:        make([]*model.Vessel, 0, len(plans)),
		Tracks:         make(map[uint32][]model.VesselState, len(plans)),
		GeneratedAt:    se.clock.Now().UTC(),
		StartTime:      tb.Start,
		Duration:       tb.Duration,
		ReportInterval: tb.Interval,
		Seed:           seed,
	}
	for i, p := range plans {
		scenario.Vessels = append(scenario.Vessels, p.vessel)
		scenario.Tracks[p.vessel.MMSI] = tracks[i]
	}
	sort.SliceStable(scenario.Vessels, func(a, b int) bool {
		return scenario.Vessels[a].MMSI < scenario.Vessels[b].MMSI
	})
	return scenario, nil
}

// plan resolves locations and assigns identities sequentially so the result
// does not depend on worker scheduling. Vessels with neither their own
// origin nor a request location take a named route from the catalogue,
// distinct per vessel until the catalogue runs out.
func (se *SimulationEngine) plan(req GenerationRequest) ([]vesselPlan, error) {
	var primary, primaryDest *kb.Location
	if strings.TrimSpace(req.Location) != "" {
		loc, err := se.Locations.Lookup(req.Location)
		if err != nil {
			return nil, err
		}
		primary = &loc
	}
	if strings.TrimSpace(req.Destination) != "" {
		loc, err := se.Locations.Lookup(req.Destination)
		if err != nil {
			return nil, err
		}
		primaryDest = &loc
	}

	n := req.Count()
	ids := newMMSIAllocator(MMSIBase)
	for _, spec := range req.Vessels {
		if spec.MMSI != 0 {
			if err := ids.reserve(spec.MMSI); err != nil {
				return nil, err
			}
		}
	}

	var picker *kb.RoutePicker
	if se.routes != nil {
		picker = se.routes.NewPicker()
	}

	plans := make([]vesselPlan, n)
	for i := 0; i < n; i++ {
		var spec VesselSpec
		if i < len(req.Vessels) {
			spec = req.Vessels[i]
		}
		vt := req.TypeFor(i)

		mmsi := spec.MMSI
		if mmsi == 0 {
			var err error
			if mmsi, err = ids.allocate(); err != nil {
				return nil, err
			}
		}
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			name = VesselName(vt, i)
		}

		p := vesselPlan{
			vessel: &model.Vessel{MMSI: mmsi, Name: name, Type: vt},
			dest:   primaryDest,
		}
		if strings.TrimSpace(spec.Origin) != "" {
			loc, err := se.Locations.Lookup(spec.Origin)
			if err != nil {
				return nil, err
			}
			p.origin = loc
		} else if primary != nil {
			p.origin = *primary
		} else {
			route, err := pickRoute(picker, vt)
			if err != nil {
				return nil, err
			}
			p.origin = route.Origin
			p.vessel.RouteName = route.Name
			if p.dest == nil {
				p.dest = route.Destination
			}
		}
		if strings.TrimSpace(spec.Destination) != "" {
			loc, err := se.Locations.Lookup(spec.Destination)
			if err != nil {
				return nil, err
			}
			p.dest = &loc
		}
		plans[i] = p
	}
	return plans, nil
}

func pickRoute(picker *kb.RoutePicker, vt model.VesselType) (kb.NamedRoute, error) {
	profile, ok := vt.Profile()
	if !ok {
		return kb.NamedRoute{}, fmt.Errorf("%w: unknown vessel type %v", ErrValidation, vt)
	}
	if picker != nil {
		if route, ok := picker.Pick(profile.RouteType); ok {
			return route, nil
		}
	}
	return kb.NamedRoute{}, fmt.Errorf("%w: location is required for %s vessels", ErrValidation, vt)
}

func (se *SimulationEngine) simulateVessel(ctx context.Context, p vesselPlan, req GenerationRequest, tb timectrl.Timebase, seed uint64) ([]model.VesselState, error) {
	v := p.vessel
	_, span := otel.Tracer(tracerName).Start(ctx, "core.SimulateVessel", trace.WithAttributes(
		attribute.Int64("vessel.mmsi", int64(v.MMSI)),
		attribute.String("vessel.type", v.Type.String()),
		attribute.String("vessel.route_name", v.RouteName),
	))
	defer span.End()

	rng := rand.New(rand.NewPCG(seed, uint64(v.MMSI)))
	profile, ok := v.Type.Profile()
	if !ok {
		return nil, fmt.Errorf("%w: unknown vessel type %v", ErrValidation, v.Type)
	}
	v.Dimensions = randomDimensions(profile, rng)

	spec := RouteSpec{
		Type:       profile.RouteType,
		VesselType: v.Type,
		Origin:     p.origin.Coordinates,
		Window:     tb.Duration,
	}
	if spec.Type.Closed() {
		spec.Origin = Destination(p.origin.Coordinates, rng.Float64()*360, rng.Float64()*maxLoopOffsetNm)
	} else if p.dest != nil {
		d := p.dest.Coordinates
		spec.Destination = &d
		spec.HarbourApproach = p.dest.IsPort()
	}

	route, err := se.builder.Build(spec, rng)
	switch {
	case errors.Is(err, ErrDegenerateRoute) && req.AllowStationary:
		v.Stationary = true
		v.Anchorage = p.origin.Coordinates
	case err != nil:
		span.RecordError(err)
		return nil, err
	case spec.Destination != nil:
		route = se.builder.ScheduleArrival(route, tb.Elapsed(tb.Steps()-1), profile.MaxSpeedKnots)
	}
	v.Route = route
	if route != nil {
		span.SetAttributes(
			attribute.String("route.type", route.Type.String()),
			attribute.Float64("route.length_nm", route.LengthNm),
		)
	}

	mm, err := NewMotionModel(v, se.motionOpts...)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	track, err := mm.Simulate(tb, rng)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if se.metrics != nil {
		se.metrics.ObserveVessel(v.Type.String(), len(track))
	}
	return track, nil
}

func randomDimensions(p model.VesselProfile, rng *rand.Rand) model.Dimensions {
	pick := func(r model.Range) float64 {
		return r.Min + rng.Float64()*(r.Max-r.Min)
	}
	return model.Dimensions{
		LengthM:  int(math.Round(pick(p.LengthM))),
		WidthM:   int(math.Round(pick(p.WidthM))),
		DraughtM: math.Round(pick(p.DraughtM)*10) / 10,
	}
}
