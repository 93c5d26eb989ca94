package observability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GeneratorCollector bundles the Prometheus metrics for scenario generation
// and the HTTP front end. It satisfies core.MetricsRecorder.
type GeneratorCollector struct {
	gatherer prometheus.Gatherer

	Scenarios          *prometheus.CounterVec
	VesselsSimulated   *prometheus.CounterVec
	Samples            prometheus.Counter
	GenerationDuration prometheus.Histogram

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewGeneratorCollector registers the generator metrics against reg,
// defaulting to the global Prometheus registry when nil. Registering twice
// against the same registry returns the already registered collectors.
func NewGeneratorCollector(reg prometheus.Registerer) (*GeneratorCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	scenarios, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scenarios_generated_total",
		Help: "Scenario generation requests, labeled by outcome.",
	}, []string{"outcome"}), "scenarios_generated_total")
	if err != nil {
		return nil, err
	}

	vessels, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vessels_simulated_total",
		Help: "Vessels simulated, labeled by vessel type.",
	}, []string{"vessel_type"}), "vessels_simulated_total")
	if err != nil {
		return nil, err
	}

	samples, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "track_samples_total",
		Help: "Track samples produced across all vessels.",
	}), "track_samples_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scenario_generation_duration_seconds",
		Help:    "Wall time spent generating a scenario.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}), "scenario_generation_duration_seconds")
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"method", "route"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &GeneratorCollector{
		gatherer:           gatherer,
		Scenarios:          scenarios,
		VesselsSimulated:   vessels,
		Samples:            samples,
		GenerationDuration: duration,
		HTTPRequests:       requests,
		HTTPDurations:      durations,
	}, nil
}

// ObserveScenario records the outcome of one Generate call. Sample counts
// are accumulated per vessel in ObserveVessel.
func (c *GeneratorCollector) ObserveScenario(outcome string, vessels, samples int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Scenarios.WithLabelValues(outcome).Inc()
	c.GenerationDuration.Observe(elapsed.Seconds())
}

// ObserveVessel records one simulated vessel and its sample count.
func (c *GeneratorCollector) ObserveVessel(vesselType string, samples int) {
	if c == nil {
		return
	}
	c.VesselsSimulated.WithLabelValues(vesselType).Inc()
	c.Samples.Add(float64(samples))
}

// ObserveHTTP records one handled HTTP request. route is the matched route
// pattern, not the raw path, to keep label cardinality bounded.
func (c *GeneratorCollector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDurations.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Gatherer returns the gatherer the collector was registered with.
func (c *GeneratorCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *GeneratorCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// register adds col to reg. If an equal collector is already registered it is
// returned instead, provided it has the same concrete type.
func register[T prometheus.Collector](reg prometheus.Registerer, col T, name string) (T, error) {
	if err := reg.Register(col); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			var zero T
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero T
		return zero, err
	}
	return col, nil
}
