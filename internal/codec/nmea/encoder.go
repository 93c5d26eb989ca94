package nmea

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/BertoldVdb/go-ais/aisnmea"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

type encoderOptions struct {
	lineEnding string
	aivdm      bool
	static     bool
	channel    byte
}

// Option configures an Encoder.
type Option func(*encoderOptions)

// WithCRLF terminates sentences with "\r\n" as NMEA 0183 prescribes on the
// wire. The default is "\n".
func WithCRLF() Option {
	return func(o *encoderOptions) { o.lineEnding = "\r\n" }
}

// WithAIVDM adds an AIS type 1 position report after each GGA/RMC pair.
func WithAIVDM() Option {
	return func(o *encoderOptions) { o.aivdm = true }
}

// WithStaticReports writes one AIS type 5 message per vessel ahead of the
// first reports. It implies WithAIVDM.
func WithStaticReports() Option {
	return func(o *encoderOptions) {
		o.aivdm = true
		o.static = true
	}
}

// WithChannel selects the AIS radio channel letter (default 'A').
func WithChannel(c byte) Option {
	return func(o *encoderOptions) { o.channel = c }
}

// Encoder writes newline-separated sentences to an io.Writer.
type Encoder struct {
	w    io.Writer
	opts encoderOptions
	// ais numbers multi-fragment messages across the stream.
	ais *aisnmea.NMEACodec
}

func NewEncoder(w io.Writer, opts ...Option) *Encoder {
	o := encoderOptions{lineEnding: "\n", channel: 'A'}
	for _, opt := range opts {
		opt(&o)
	}
	return &Encoder{w: w, opts: o, ais: newCodec()}
}

// Sentences returns the sentences for one report, without line endings.
func (e *Encoder) Sentences(s model.VesselState) []string {
	out := []string{GGA(s), RMC(s)}
	if e.opts.aivdm {
		out = append(out, encodePositionReport(e.ais, PositionReportFrom(s), e.opts.channel))
	}
	return out
}

// WriteState writes the sentences for one report.
func (e *Encoder) WriteState(s model.VesselState) error {
	return e.writeLines(e.w, e.Sentences(s))
}

// WriteVessel writes the static AIS message for v when enabled; otherwise
// it is a no-op.
func (e *Encoder) WriteVessel(v *model.Vessel) error {
	if !e.opts.static {
		return nil
	}
	return e.writeLines(e.w, e.staticLines(v))
}

func (e *Encoder) staticLines(v *model.Vessel) []string {
	dest := ""
	if v.Route != nil && !v.Route.Closed() {
		dest = v.Route.End().String()
	}
	return encodeStaticReport(e.ais, StaticReportFrom(v, dest), e.opts.channel)
}

// WriteScenario writes the whole scenario in time order: all vessels'
// reports for step 0 (ascending MMSI), then step 1, and so on.
func (e *Encoder) WriteScenario(sc *model.Scenario) error {
	bw := bufio.NewWriter(e.w)
	if e.opts.static {
		for _, v := range sc.Vessels {
			if err := e.writeLines(bw, e.staticLines(v)); err != nil {
				return err
			}
		}
	}
	steps := 0
	for _, v := range sc.Vessels {
		steps = max(steps, len(sc.Tracks[v.MMSI]))
	}
	for i := 0; i < steps; i++ {
		for _, v := range sc.Vessels {
			track := sc.Tracks[v.MMSI]
			if i >= len(track) {
				continue
			}
			if err := e.writeLines(bw, e.Sentences(track[i])); err != nil {
				return err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write nmea: %w", err)
	}
	return nil
}

func (e *Encoder) writeLines(w io.Writer, lines []string) error {
	for _, l := range lines {
		if _, err := io.WriteString(w, l+e.opts.lineEnding); err != nil {
			return fmt.Errorf("write nmea: %w", err)
		}
	}
	return nil
}

// Encode renders sc into a byte slice.
func Encode(sc *model.Scenario, opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf, opts...).WriteScenario(sc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
