package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/nmea"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/wire"
	"github.com/signalsfoundry/vessel-track-simulator/internal/logging"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/model"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

type replayFlags struct {
	request     string
	mode        string
	speedup     float64
	output      string
	metricsAddr string
	aivdm       bool
	static      bool
	crlf        bool
}

func (a *cli) replayCmd() *cobra.Command {
	var f replayFlags
	cmd := &cobra.Command{
		Use:   "replay [scenario-file]",
		Short: "Replay a scenario as a paced NMEA feed",
		Long: `Replay writes the NMEA sentences of a scenario one report interval at a
time. The scenario is read from a JSON or wire file written by generate
("-" reads stdin), or generated on the fly from --request.`,
		Example: `  trackgen replay scenario.json --speedup 60
  trackgen replay --request ferry.yaml --mode accelerated --aivdm`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runReplay(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.request, "request", "r", "", "generate the scenario from this request document instead of reading one")
	fl.StringVar(&f.mode, "mode", "realtime", "pacing: realtime or accelerated")
	fl.Float64Var(&f.speedup, "speedup", 1, "realtime speed-up factor")
	fl.StringVarP(&f.output, "output", "o", "", "output file (default stdout)")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve replay metrics on this address while running")
	fl.BoolVar(&f.aivdm, "aivdm", false, "add AIVDM type 1 position reports")
	fl.BoolVar(&f.static, "static", false, "start with AIVDM type 5 static reports (implies --aivdm)")
	fl.BoolVar(&f.crlf, "crlf", false, "terminate sentences with CRLF")
	return cmd
}

func (a *cli) runReplay(cmd *cobra.Command, args []string, f replayFlags) error {
	mode, err := timectrl.ParseMode(f.mode)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	sc, err := a.loadReplayScenario(ctx, cmd, args, f.request)
	if err != nil {
		return err
	}

	collector, err := observability.NewReplayCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	if f.metricsAddr != "" {
		srv := serveMetrics(f.metricsAddr, collector.Handler(), a.log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
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

	r := &replayer{
		scenario: sc,
		counter:  &sentenceCounter{w: w, observe: collector.ObserveSentence},
		metrics:  collector,
		log:      a.log,
	}
	opts := nmeaOptions(generateFlags{aivdm: f.aivdm, static: f.static, crlf: f.crlf})
	return r.run(ctx, mode, f.speedup, opts)
}

func (a *cli) loadReplayScenario(ctx context.Context, cmd *cobra.Command, args []string, request string) (*model.Scenario, error) {
	switch {
	case request != "" && len(args) > 0:
		return nil, errors.New("give either a scenario file or --request, not both")
	case request != "":
		var f generateFlags
		f.request = request
		req, err := a.buildRequest(cmd, f)
		if err != nil {
			return nil, err
		}
		return a.engine(nil).Generate(ctx, req)
	case len(args) == 1:
		return readScenario(cmd.InOrStdin(), args[0])
	}
	return nil, errors.New("a scenario file or --request is required")
}

// readScenario loads a scenario written by generate. JSON documents start
// with '{'; anything else is treated as wire data.
func readScenario(stdin io.Reader, path string) (*model.Scenario, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return structured.Unmarshal(data)
	}
	return wire.Unmarshal(data)
}

type replayer struct {
	scenario *model.Scenario
	counter  *sentenceCounter
	metrics  *observability.ReplayCollector
	log      logging.Logger
}

func (r *replayer) run(ctx context.Context, mode timectrl.Mode, speedup float64, opts []nmea.Option) error {
	sc := r.scenario
	tb := timectrl.Timebase{Start: sc.StartTime, Interval: sc.ReportInterval, Duration: sc.Duration}
	tc := timectrl.NewTimeController(tb, mode, speedup)
	enc := nmea.NewEncoder(r.counter, opts...)
	total := tb.Steps()

	for _, v := range sc.Vessels {
		if err := enc.WriteVessel(v); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var began time.Time
	pace := tc.Pace()
	tc.AddListener(func(step int, _ time.Time) {
		if step == 0 {
			began = time.Now()
		}
		scheduled := began.Add(time.Duration(step) * pace)
		for _, v := range sc.Vessels {
			track := sc.Tracks[v.MMSI]
			if step >= len(track) {
				continue
			}
			if err := enc.WriteState(track[step]); err != nil {
				cancel(err)
				return
			}
		}
		r.metrics.ObserveStep(step, total, time.Since(scheduled))
	})

	r.log.Info(ctx, "replay started",
		logging.ScenarioID(sc.ID),
		logging.String("mode", mode.String()),
		logging.Duration("pace", pace),
		logging.Int("steps", total),
		logging.Vessels(len(sc.Vessels)),
	)
	err := tc.Run(ctx)
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	if errors.Is(err, context.Canceled) {
		r.log.Warn(context.Background(), "replay interrupted", logging.Int("step", tc.Step()))
		return nil
	}
	if err != nil {
		return err
	}
	r.log.Info(ctx, "replay finished",
		logging.Int("steps", total),
		logging.Int("sentences", r.counter.Count()),
	)
	return nil
}

// sentenceCounter forwards output to w and reports the address of every
// complete sentence written through it.
type sentenceCounter struct {
	w       io.Writer
	observe func(kind string)

	mu      sync.Mutex
	partial []byte
	count   int
}

func (c *sentenceCounter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partial = append(c.partial, p[:n]...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(c.partial[:i]), "\r")
		c.partial = c.partial[i+1:]
		if kind := sentenceKind(line); kind != "" {
			c.count++
			c.observe(kind)
		}
	}
	return n, err
}

// Count is the number of complete sentences written so far.
func (c *sentenceCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func sentenceKind(line string) string {
	if len(line) < 2 || (line[0] != '$' && line[0] != '!') {
		return ""
	}
	if i := strings.IndexByte(line, ','); i > 1 {
		return line[1:i]
	}
	return ""
}

func serveMetrics(addr string, handler http.Handler, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()
	log.Info(context.Background(), "serving replay metrics", logging.String("addr", addr))
	return srv
}
