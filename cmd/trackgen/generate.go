package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/nmea"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/wire"
	"github.com/signalsfoundry/vessel-track-simulator/internal/config"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// Output formats understood by generate.
const (
	formatJSON = "json"
	formatNMEA = "nmea"
	formatWire = "wire"
)

type generateFlags struct {
	request         string
	name            string
	vessels         int
	types           []string
	location        string
	destination     string
	durationHours   float64
	interval        string
	start           string
	seed            uint64
	allowStationary bool

	format string
	output string
	aivdm  bool
	static bool
	crlf   bool
}

func (a *cli) generateCmd() *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a scenario and write it as JSON, NMEA or protobuf wire data",
		Example: `  trackgen generate -n 3 -l Dublin -d Holyhead --duration 2 --format nmea
  trackgen generate -r scenario.yaml -o out.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runGenerate(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.request, "request", "r", "", "YAML or JSON request document; flags override its fields")
	fl.StringVar(&f.name, "name", "", "scenario name")
	fl.IntVarP(&f.vessels, "vessels", "n", 1, "number of vessels")
	fl.StringSliceVarP(&f.types, "types", "t", nil, "vessel types assigned round-robin (passenger, cargo, fishing, pilot, hsc)")
	fl.StringVarP(&f.location, "location", "l", "", "origin or operating area")
	fl.StringVarP(&f.destination, "destination", "d", "", "destination port")
	fl.Float64Var(&f.durationHours, "duration", 1, "scenario duration in hours")
	fl.StringVarP(&f.interval, "interval", "i", "", "report interval, seconds or a duration such as 30s (default from "+config.EnvReportInterval+")")
	fl.StringVar(&f.start, "start", "", "scenario start time, RFC 3339 (default now)")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed (default derived from the scenario name)")
	fl.BoolVar(&f.allowStationary, "allow-stationary", false, "anchor vessels whose route would be degenerate")

	fl.StringVarP(&f.format, "format", "f", formatJSON, "output format: json, nmea or wire (inferred from --output when unset)")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	fl.BoolVar(&f.aivdm, "aivdm", false, "nmea: add AIVDM type 1 position reports")
	fl.BoolVar(&f.static, "static", false, "nmea: add AIVDM type 5 static reports (implies --aivdm)")
	fl.BoolVar(&f.crlf, "crlf", false, "nmea: terminate sentences with CRLF")
	return cmd
}

func (a *cli) runGenerate(cmd *cobra.Command, f generateFlags) error {
	ctx := cmd.Context()
	format := f.format
	if !cmd.Flags().Changed("format") && f.output != "" {
		format = formatFromPath(f.output, format)
	}
	if err := checkFormat(format); err != nil {
		return err
	}

	req, err := a.buildRequest(cmd, f)
	if err != nil {
		return err
	}
	sc, err := a.engine(nil).Generate(ctx, req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		w = file
	}
	if err := writeScenario(w, sc, format, nmeaOptions(f)); err != nil {
		return err
	}
	a.log.Info(ctx, "scenario written",
		logging.ScenarioID(sc.ID),
		logging.String("format", format),
		logging.String("output", outputName(f.output)),
		logging.Vessels(len(sc.Vessels)),
		logging.Int("samples", sc.TotalSamples()),
	)
	return nil
}

// buildRequest starts from the request document, if any, and applies every
// flag the user set explicitly. Without a document the flag defaults apply.
func (a *cli) buildRequest(cmd *cobra.Command, f generateFlags) (core.GenerationRequest, error) {
	var doc config.RequestDocument
	fromFile := f.request != ""
	if fromFile {
		var err error
		if doc, err = config.LoadRequestFile(f.request); err != nil {
			return core.GenerationRequest{}, err
		}
	}
	set := func(name string) bool { return !fromFile || cmd.Flags().Changed(name) }

	if set("name") && f.name != "" {
		doc.ScenarioName = f.name
	}
	if set("vessels") {
		doc.VesselCount = f.vessels
	}
	if set("types") && len(f.types) > 0 {
		doc.VesselTypes = f.types
	}
	if set("location") && f.location != "" {
		doc.Location = f.location
	}
	if set("destination") && f.destination != "" {
		doc.Destination = f.destination
	}
	if set("duration") {
		doc.DurationHours = f.durationHours
	}
	if set("start") && f.start != "" {
		doc.StartTime = f.start
	}
	if set("seed") && f.seed != 0 {
		doc.Seed = f.seed
	}
	if set("allow-stationary") && f.allowStationary {
		doc.AllowStationary = true
	}
	if f.interval != "" {
		d, err := config.ParseInterval(f.interval)
		if err != nil {
			return core.GenerationRequest{}, fmt.Errorf("%w: --interval: %v", core.ErrValidation, err)
		}
		doc.ReportIntervalSeconds = d.Seconds()
	}
	return doc.ToRequest(a.cfg.DefaultReportInterval)
}

func nmeaOptions(f generateFlags) []nmea.Option {
	var opts []nmea.Option
	if f.aivdm {
		opts = append(opts, nmea.WithAIVDM())
	}
	if f.static {
		opts = append(opts, nmea.WithStaticReports())
	}
	if f.crlf {
		opts = append(opts, nmea.WithCRLF())
	}
	return opts
}

func writeScenario(w io.Writer, sc *model.Scenario, format string, opts []nmea.Option) error {
	switch format {
	case formatNMEA:
		return nmea.NewEncoder(w, opts...).WriteScenario(sc)
	case formatWire:
		if _, err := w.Write(wire.Marshal(sc)); err != nil {
			return fmt.Errorf("write wire: %w", err)
		}
		return nil
	default:
		return structured.Write(w, sc)
	}
}

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatNMEA, formatWire:
		return nil
	}
	return fmt.Errorf("unknown format %q: want json, nmea or wire", format)
}

func formatFromPath(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".nmea", ".txt", ".log":
		return formatNMEA
	case ".pb", ".bin", ".wire":
		return formatWire
	}
	return fallback
}

func outputName(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
