package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReplayCollector exposes metrics for paced scenario replay.
type ReplayCollector struct {
	gatherer prometheus.Gatherer

	SentencesEmitted *prometheus.CounterVec
	StepsReplayed    prometheus.Counter
	StepLag          prometheus.Histogram
	Progress         prometheus.Gauge
}

// NewReplayCollector registers replay metrics against reg.
func NewReplayCollector(reg prometheus.Registerer) (*ReplayCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sentences, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "replay_sentences_total",
		Help: "Sentences written during replay, labeled by sentence kind.",
	}, []string{"kind"}), "replay_sentences_total")
	if err != nil {
		return nil, err
	}

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "replay_steps_total",
		Help: "Report steps replayed.",
	}), "replay_steps_total")
	if err != nil {
		return nil, err
	}

	lag, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "replay_step_lag_seconds",
		Help:    "Delay between the scheduled and actual emission of a replay step.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "replay_step_lag_seconds")
	if err != nil {
		return nil, err
	}

	progress, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "replay_progress_ratio",
		Help: "Fraction of the scenario replayed so far.",
	}), "replay_progress_ratio")
	if err != nil {
		return nil, err
	}

	return &ReplayCollector{
		gatherer:         gatherer,
		SentencesEmitted: sentences,
		StepsReplayed:    steps,
		StepLag:          lag,
		Progress:         progress,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ReplayCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler serves the replay metrics in the Prometheus text format.
func (c *ReplayCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveStep records one replayed step. step is zero-based.
func (c *ReplayCollector) ObserveStep(step, total int, lag time.Duration) {
	if c == nil {
		return
	}
	c.StepsReplayed.Inc()
	if lag < 0 {
		lag = 0
	}
	c.StepLag.Observe(lag.Seconds())
	c.SetProgress(float64(step+1) / float64(max(total, 1)))
}

// ObserveSentence counts one written sentence. kind is the NMEA address
// (e.g. "GPGGA", "AIVDM").
func (c *ReplayCollector) ObserveSentence(kind string) {
	if c == nil {
		return
	}
	c.SentencesEmitted.WithLabelValues(kind).Inc()
}

// SetProgress updates the progress gauge, clamped to [0, 1].
func (c *ReplayCollector) SetProgress(ratio float64) {
	if c == nil {
		return
	}
	c.Progress.Set(min(max(ratio, 0), 1))
}
