// Package config reads process configuration from the environment (and an
// optional .env file) and scenario requests from YAML or JSON documents.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
)

// ErrInvalidConfig is returned for malformed environment values.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	EnvHTTPAddr       = "TRACKGEN_HTTP_ADDR"
	EnvLocationsFile  = "TRACKGEN_LOCATIONS_FILE"
	EnvMaxVessels     = "TRACKGEN_MAX_VESSELS"
	EnvMaxSamples     = "TRACKGEN_MAX_SAMPLES"
	EnvWorkers        = "TRACKGEN_WORKERS"
	EnvReportInterval = "TRACKGEN_REPORT_INTERVAL"
	EnvSpeedNoise     = "TRACKGEN_SPEED_NOISE"
	EnvArrivalTolNm   = "TRACKGEN_ARRIVAL_TOLERANCE_NM"

	DefaultHTTPAddr = ":8080"
)

// Config is the process-wide configuration shared by the CLI and the HTTP
// server.
type Config struct {
	HTTPAddr string
	// LocationsFile names a YAML file of extra locations added to the
	// built-in table.
	LocationsFile string
	Limits        core.Limits
	// DefaultReportInterval applies to requests that leave the interval out.
	DefaultReportInterval time.Duration
	// SpeedNoise bounds the per-report speed perturbation as a fraction of
	// leg speed.
	SpeedNoise float64
	// ArrivalToleranceNm is how close to its destination a vessel must be
	// to report AT_ANCHOR.
	ArrivalToleranceNm float64

	Log     logging.Config
	Tracing observability.TracingConfig
}

// LoadDotEnv loads the given .env files (".env" when none are named) into
// the process environment without overriding variables that are already
// set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv builds a Config from TRACKGEN_* variables, falling back to the
// engine defaults.
func FromEnv() (Config, error) {
	limits := core.DefaultLimits()
	cfg := Config{
		HTTPAddr:              getEnv(EnvHTTPAddr, DefaultHTTPAddr),
		LocationsFile:         os.Getenv(EnvLocationsFile),
		Limits:                limits,
		DefaultReportInterval: core.DefaultReportInterval,
		SpeedNoise:            core.DefaultSpeedNoise,
		ArrivalToleranceNm:    core.DefaultArrivalToleranceNm,
		Log:                   logging.ConfigFromEnv(),
		Tracing:               observability.TracingConfigFromEnv(),
	}

	var err error
	if cfg.Limits.MaxVessels, err = positiveInt(EnvMaxVessels, limits.MaxVessels); err != nil {
		return Config{}, err
	}
	if cfg.Limits.MaxTotalSamples, err = positiveInt(EnvMaxSamples, limits.MaxTotalSamples); err != nil {
		return Config{}, err
	}
	if cfg.Limits.Workers, err = positiveInt(EnvWorkers, limits.Workers); err != nil {
		return Config{}, err
	}
	if raw := os.Getenv(EnvReportInterval); raw != "" {
		d, err := ParseInterval(raw)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvReportInterval, err)
		}
		cfg.DefaultReportInterval = d
	}
	if cfg.SpeedNoise, err = floatInRange(EnvSpeedNoise, cfg.SpeedNoise, 0, 1); err != nil {
		return Config{}, err
	}
	if cfg.ArrivalToleranceNm, err = floatInRange(EnvArrivalTolNm, cfg.ArrivalToleranceNm, 0, 100); err != nil {
		return Config{}, err
	}
	if cfg.ArrivalToleranceNm == 0 {
		return Config{}, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, EnvArrivalTolNm)
	}
	return cfg, nil
}

// MotionOptions applies SpeedNoise and ArrivalToleranceNm to route motion
// models.
func (c Config) MotionOptions() []core.MotionOption {
	return []core.MotionOption{
		core.WithSpeedNoise(c.SpeedNoise),
		core.WithArrivalTolerance(c.ArrivalToleranceNm),
	}
}

// LocationRegistry returns the built-in locations plus those from
// LocationsFile, if set.
func (c Config) LocationRegistry() (*kb.LocationRegistry, error) {
	if c.LocationsFile == "" {
		return kb.DefaultRegistry(), nil
	}
	f, err := os.Open(c.LocationsFile)
	if err != nil {
		return nil, fmt.Errorf("open locations file: %w", err)
	}
	defer f.Close()

	extra, err := kb.LoadLocations(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.LocationsFile, err)
	}
	return kb.NewLocationRegistry(append(kb.DefaultLocations(), extra...))
}

// ParseInterval accepts a Go duration ("90s", "5m") or a bare number of
// seconds.
func ParseInterval(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("interval must be positive, got %q", raw)
		}
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive, got %q", raw)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", ErrInvalidConfig, key, raw)
	}
	return n, nil
}

func floatInRange(key string, fallback, lo, hi float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < lo || f > hi {
		return 0, fmt.Errorf("%w: %s must be a number in [%g, %g], got %q", ErrInvalidConfig, key, lo, hi, raw)
	}
	return f, nil
}
