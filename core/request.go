package core

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

// DefaultReportInterval is used when a request leaves the interval unset.
const DefaultReportInterval = 300 * time.Second

// DefaultScenarioName is used when a request has no name.
const DefaultScenarioName = "Vessel Scenario"

// Limits bound the work a single request may ask for.
type Limits struct {
	MaxVessels      int
	MaxTotalSamples int
	// Workers caps how many vessels are simulated concurrently.
	Workers int
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxVessels:      100,
		MaxTotalSamples: 500_000,
		Workers:         runtime.GOMAXPROCS(0),
	}
}

// VesselSpec pins details of one vessel. Zero fields fall back to the
// request-wide defaults.
type VesselSpec struct {
	Type        model.VesselType
	Name        string
	MMSI        uint32
	Origin      string
	Destination string
}

// GenerationRequest is the input to SimulationEngine.Generate.
type GenerationRequest struct {
	ScenarioName string
	// VesselCount defaults to len(Vessels) when zero.
	VesselCount int
	// VesselTypes are assigned round-robin to vessels without an explicit type.
	VesselTypes []model.VesselType
	Vessels     []VesselSpec

	Location    string
	Destination string

	Duration       time.Duration
	ReportInterval time.Duration
	// StartTime defaults to the engine clock, truncated to the second.
	StartTime time.Time
	// Seed defaults to a hash of ScenarioName.
	Seed uint64

	// AllowStationary turns a degenerate open route into a vessel that holds
	// position instead of failing the request.
	AllowStationary bool
}

// Count is the number of vessels the request asks for.
func (r GenerationRequest) Count() int {
	if r.VesselCount == 0 {
		return len(r.Vessels)
	}
	return r.VesselCount
}

// Timebase is the shared reporting schedule.
func (r GenerationRequest) Timebase() timectrl.Timebase {
	return timectrl.Timebase{Start: r.StartTime, Interval: r.ReportInterval, Duration: r.Duration}
}

// EffectiveSeed is Seed, or the FNV-64a hash of the scenario name.
func (r GenerationRequest) EffectiveSeed() uint64 {
	if r.Seed != 0 {
		return r.Seed
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(r.ScenarioName))
	return h.Sum64()
}

// TypeFor is the vessel type used for the vessel at index.
func (r GenerationRequest) TypeFor(index int) model.VesselType {
	if index < len(r.Vessels) && r.Vessels[index].Type != model.VesselTypeUnknown {
		return r.Vessels[index].Type
	}
	if len(r.VesselTypes) == 0 {
		return model.VesselTypePassenger
	}
	return r.VesselTypes[index%len(r.VesselTypes)]
}

// WithDefaults fills unset fields. now supplies the default start time.
func (r GenerationRequest) WithDefaults(now time.Time) GenerationRequest {
	r.ScenarioName = strings.TrimSpace(r.ScenarioName)
	if r.ScenarioName == "" {
		r.ScenarioName = DefaultScenarioName
	}
	if r.ReportInterval == 0 {
		r.ReportInterval = DefaultReportInterval
	}
	if r.StartTime.IsZero() {
		r.StartTime = now.UTC().Truncate(time.Second)
	}
	if len(r.VesselTypes) == 0 {
		r.VesselTypes = []model.VesselType{model.VesselTypePassenger}
	}
	return r
}

// Validate checks the request against limits. It does not resolve
// locations.
func (r GenerationRequest) Validate(limits Limits) error {
	n := r.Count()
	if n <= 0 {
		return fmt.Errorf("%w: vessel count must be positive, got %d", ErrValidation, n)
	}
	if limits.MaxVessels > 0 && n > limits.MaxVessels {
		return fmt.Errorf("%w: vessel count %d exceeds the maximum of %d", ErrValidation, n, limits.MaxVessels)
	}
	if len(r.Vessels) > n {
		return fmt.Errorf("%w: %d vessel specs for %d vessels", ErrValidation, len(r.Vessels), n)
	}
	if err := r.Timebase().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for i, t := range r.VesselTypes {
		if _, ok := t.Profile(); !ok {
			return fmt.Errorf("%w: vessel type %d is unknown", ErrValidation, i)
		}
	}
	seen := make(map[uint32]int)
	for i, v := range r.Vessels {
		if v.MMSI == 0 {
			continue
		}
		if !ValidMMSI(v.MMSI) {
			return fmt.Errorf("%w: vessel %d MMSI %d is not a nine-digit identity", ErrValidation, i, v.MMSI)
		}
		if j, dup := seen[v.MMSI]; dup {
			return fmt.Errorf("%w: vessels %d and %d share MMSI %d", ErrValidation, j, i, v.MMSI)
		}
		seen[v.MMSI] = i
	}
	steps := r.Timebase().Steps()
	if steps <= 0 {
		return fmt.Errorf("%w: schedule yields no reports", ErrValidation)
	}
	// Compared by division so n*steps cannot overflow.
	if limits.MaxTotalSamples > 0 && steps > limits.MaxTotalSamples/n {
		return fmt.Errorf("%w: request needs %d reports for each of %d vessels, limit is %d samples in total",
			ErrValidation, steps, n, limits.MaxTotalSamples)
	}
	return nil
}
