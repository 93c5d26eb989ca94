package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/nmea"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/wire"
	"github.com/signalsfoundry/vessel-track-simulator/internal/config"
	"github.com/signalsfoundry/vessel-track-simulator/internal/httpapi"
	"github.com/signalsfoundry/vessel-track-simulator/internal/observability"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/timectrl"
)

const start = "2025-06-01T08:00:00Z"

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvHTTPAddr, config.EnvLocationsFile, config.EnvMaxVessels,
		config.EnvMaxSamples, config.EnvWorkers, config.EnvReportInterval,
		config.EnvSpeedNoise, config.EnvArrivalTolNm,
		"TRACKGEN_TRACING_ENABLED", "TRACKGEN_ENVIRONMENT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

// execute runs the CLI with args and returns what it wrote to stdout.
func execute(t *testing.T, args ...string) ([]byte, error) {
	t.Helper()
	isolateEnv(t)
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--env-file=" + filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.Bytes(), err
}

func TestGenerateJSONToStdout(t *testing.T) {
	out, err := execute(t, "generate",
		"-n", "2", "-l", "Dublin", "-d", "Holyhead",
		"--duration", "1", "--interval", "300", "--start", start, "--seed", "9")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	sc, err := structured.Unmarshal(out)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(sc.Vessels) != 2 || sc.Seed != 9 || sc.StartTime.Format(time.RFC3339) != start {
		t.Fatalf("scenario = %d vessels, seed %d, start %v", len(sc.Vessels), sc.Seed, sc.StartTime)
	}
	for _, v := range sc.Vessels {
		if n := len(sc.Tracks[v.MMSI]); n != 12 {
			t.Fatalf("vessel %d: %d samples, want 12", v.MMSI, n)
		}
	}
}

func TestGenerateIsReproducible(t *testing.T) {
	args := []string{"generate", "-n", "3", "-t", "cargo,fishing", "-l", "Rotterdam",
		"--duration", "2", "--start", start, "--seed", "42", "--format", "nmea"}
	first, err := execute(t, args...)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := execute(t, args...)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("same seed produced different output")
	}
}

func TestGenerateNMEAFileInfersFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.nmea")
	if _, err := execute(t, "generate", "-l", "Belfast", "-d", "Liverpool",
		"--duration", "1", "--interval", "10m", "--start", start, "--aivdm", "-o", path); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	counts := map[string]int{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields, err := nmea.Fields(sc.Text())
		if err != nil {
			t.Fatalf("bad sentence: %v", err)
		}
		counts[fields[0]]++
	}
	if counts["GPGGA"] != 6 || counts["GPRMC"] != 6 || counts["AIVDM"] != 6 {
		t.Fatalf("sentence counts = %v", counts)
	}
}

func TestGenerateRequestFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	reqPath := filepath.Join(dir, "request.yaml")
	doc := "scenario_name: harbour\nvessel_count: 3\nvessel_types: [pilot]\nlocation: Rotterdam\nduration_hours: 1\nstart_time: \"" + start + "\"\nseed: 5\n"
	if err := os.WriteFile(reqPath, []byte(doc), 0o600); err != nil {
		t.Fatalf("write request: %v", err)
	}
	outPath := filepath.Join(dir, "scenario.pb")
	if _, err := execute(t, "generate", "-r", reqPath, "-n", "1", "-o", outPath); err != nil {
		t.Fatalf("generate: %v", err)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	sc, err := wire.Unmarshal(data)
	if err != nil {
		t.Fatalf("wire.Unmarshal: %v", err)
	}
	if sc.Name != "harbour" || sc.Seed != 5 || len(sc.Vessels) != 1 {
		t.Fatalf("scenario = %q seed %d, %d vessels", sc.Name, sc.Seed, len(sc.Vessels))
	}
	if got := sc.Vessels[0].Type.String(); got != "PILOT_VESSEL" {
		t.Fatalf("vessel type = %s", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	if _, err := execute(t, "generate", "-l", "Dublin", "--format", "csv"); err == nil {
		t.Fatalf("expected unknown format error")
	}
	_, err := execute(t, "generate", "-l", "Atlantis")
	if !errors.Is(err, kb.ErrLocationNotFound) {
		t.Fatalf("err = %v, want ErrLocationNotFound", err)
	}
	if _, err := execute(t, "generate", "-l", "Dublin", "--interval", "soon"); err == nil {
		t.Fatalf("expected interval error")
	}
}

func TestReplayAccelerated(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "scenario.wire")
	if _, err := execute(t, "generate", "-n", "2", "-l", "Dublin", "-d", "Holyhead",
		"--duration", "1", "--start", start, "-o", scenarioPath); err != nil {
		t.Fatalf("generate: %v", err)
	}
	out, err := execute(t, "replay", scenarioPath, "--mode", "accelerated", "--aivdm", "--static")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	// Two static reports of two fragments, then 12 steps of GGA, RMC and
	// AIVDM for both vessels.
	if len(lines) != 4+12*2*3 {
		t.Fatalf("replay wrote %d lines", len(lines))
	}
	for _, l := range lines[:4] {
		if !strings.HasPrefix(l, "!AIVDM,2,") {
			t.Fatalf("expected static report first, got %q", l)
		}
	}
}

func TestReplayFromRequest(t *testing.T) {
	reqPath := filepath.Join(t.TempDir(), "req.json")
	body := `{"vessel_count": 1, "location": "Piraeus", "duration_hours": 0.5, "report_interval_seconds": 300, "start_time": "` + start + `"}`
	if err := os.WriteFile(reqPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write request: %v", err)
	}
	out, err := execute(t, "replay", "--request", reqPath, "--mode", "accelerated")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if n := strings.Count(string(out), "\n"); n != 6*2 {
		t.Fatalf("replay wrote %d lines, want 12", n)
	}

	if _, err := execute(t, "replay"); err == nil {
		t.Fatalf("replay without input should fail")
	}
	if _, err := execute(t, "replay", "--mode", "warp", reqPath); err == nil {
		t.Fatalf("replay with bad mode should fail")
	}
}

func TestSentenceCounter(t *testing.T) {
	collector, err := observability.NewReplayCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewReplayCollector: %v", err)
	}
	var buf bytes.Buffer
	c := &sentenceCounter{w: &buf, observe: collector.ObserveSentence}
	for _, chunk := range []string{"$GPGGA,1*00\r\n$GPR", "MC,2*00\n!AIVDM,1,1", ",,A,x,0*00\n", "garbage\n"} {
		if _, err := io.WriteString(c, chunk); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if c.Count() != 3 {
		t.Fatalf("count = %d, want 3", c.Count())
	}
	for _, kind := range []string{"GPGGA", "GPRMC", "AIVDM"} {
		if got := testutil.ToFloat64(collector.SentencesEmitted.WithLabelValues(kind)); got != 1 {
			t.Fatalf("%s sentences = %v", kind, got)
		}
	}
	if !strings.HasSuffix(buf.String(), "garbage\n") {
		t.Fatalf("output not forwarded: %q", buf.String())
	}
}

func TestLocationsAndVesselTypes(t *testing.T) {
	out, err := execute(t, "locations", "--kind", "port", "--region", "Irish Sea")
	if err != nil {
		t.Fatalf("locations: %v", err)
	}
	if !strings.Contains(string(out), "Dublin") || strings.Contains(string(out), "Rotterdam") {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	out, err = execute(t, "locations", "--json", "port of dublin")
	if err != nil {
		t.Fatalf("locations lookup: %v", err)
	}
	var view httpapi.LocationView
	if err := json.Unmarshal(out, &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Name != "Dublin" || view.Kind != "PORT" {
		t.Fatalf("lookup = %+v", view)
	}

	out, err = execute(t, "vessel-types")
	if err != nil {
		t.Fatalf("vessel-types: %v", err)
	}
	for _, name := range []string{"PASSENGER", "CARGO", "FISHING", "PILOT_VESSEL", "HIGH_SPEED_CRAFT"} {
		if !strings.Contains(string(out), name) {
			t.Fatalf("vessel-types output missing %s:\n%s", name, out)
		}
	}
}

func TestServeSmoke(t *testing.T) {
	isolateEnv(t)
	app := &cli{clock: timectrl.SystemClock{}}
	cmd := &cobra.Command{Use: "serve"}
	cmd.SetErr(io.Discard)
	if err := app.setup(cmd); err != nil {
		t.Fatalf("setup: %v", err)
	}
	sim := app.cfg.Tracing.Simulator
	if sim.Command != "serve" || sim.Locations != app.locations.Len() ||
		sim.Routes != kb.DefaultRouteCatalog().Len() || sim.MaxVessels != app.cfg.Limits.MaxVessels {
		t.Fatalf("tracing simulator info = %+v", sim)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.serve(ctx, ln, 5*time.Second)
	}()

	url := "http://" + ln.Addr().String() + "/api/health"
	var resp *http.Response
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err = http.Get(url)
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("serve did not stop")
	}
}
