// Command trackgen generates synthetic vessel tracks and serves them over
// HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/config"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trackgen:", err)
		os.Exit(1)
	}
}

// cli holds state shared by every subcommand once the root pre-run has
// loaded configuration.
type cli struct {
	envFiles      []string
	logLevel      string
	logFormat     string
	locationsFile string

	cfg       config.Config
	log       logging.Logger
	locations *kb.LocationRegistry

	// clock is replaced in tests.
	clock timectrl.SimClock
}

func newRootCmd() *cobra.Command {
	app := &cli{clock: timectrl.SystemClock{}}

	root := &cobra.Command{
		Use:           "trackgen",
		Short:         "Synthetic vessel track generator (NMEA, AIS, JSON)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}
	root.PersistentFlags().StringSliceVar(&app.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().StringVar(&app.logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")
	root.PersistentFlags().StringVar(&app.locationsFile, "locations", "", "YAML file of extra locations (overrides "+config.EnvLocationsFile+")")

	root.AddCommand(app.generateCmd())
	root.AddCommand(app.replayCmd())
	root.AddCommand(app.serveCmd())
	root.AddCommand(app.locationsCmd())
	root.AddCommand(app.vesselTypesCmd())

	return root
}

func (a *cli) setup(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFiles...); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.locationsFile != "" {
		cfg.LocationsFile = a.locationsFile
	}
	cfg.Log.Output = cmd.ErrOrStderr()
	cfg.Tracing.Writer = cmd.ErrOrStderr()

	locations, err := cfg.LocationRegistry()
	if err != nil {
		return err
	}
	cfg.Tracing.Simulator = observability.SimulatorInfo{
		Command:        cmd.Name(),
		Locations:      locations.Len(),
		Routes:         kb.DefaultRouteCatalog().Len(),
		MaxVessels:     cfg.Limits.MaxVessels,
		MaxSamples:     cfg.Limits.MaxTotalSamples,
		Workers:        cfg.Limits.Workers,
		ReportInterval: cfg.DefaultReportInterval,
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log).With(logging.String("command", cmd.Name()))
	a.locations = locations
	return nil
}

func (a *cli) engine(metrics core.MetricsRecorder) *core.SimulationEngine {
	opts := []core.EngineOption{
		core.WithLogger(a.log),
		core.WithLimits(a.cfg.Limits),
		core.WithClock(a.clock),
		core.WithMotionOptions(a.cfg.MotionOptions()...),
	}
	if metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	return core.NewSimulationEngine(a.locations, opts...)
}
