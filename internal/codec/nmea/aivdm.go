package nmea

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	ais "github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

const (
	headingNotAvailable = 511
	secondNotAvailable  = 60
	rotNotAvailable     = -128
	sogMaxKnots         = 102.2
	epfdGPS             = 1
)

// PositionReport is the content of an AIS message type 1 (Class A position
// report).
type PositionReport struct {
	MMSI       uint32
	NavStatus  model.NavStatus
	SpeedKnots float64
	Latitude   float64
	Longitude  float64
	CourseDeg  float64
	// HeadingDeg is 511 when not available.
	HeadingDeg int
	// Second is the UTC second of the fix, 60 when not available.
	Second int
}

// PositionReportFrom builds a type 1 report from a track sample. The true
// heading is taken to be the course over ground.
func PositionReportFrom(s model.VesselState) PositionReport {
	return PositionReport{
		MMSI:       s.MMSI,
		NavStatus:  s.NavStatus,
		SpeedKnots: s.SpeedKnots,
		Latitude:   s.Position.Latitude,
		Longitude:  s.Position.Longitude,
		CourseDeg:  s.CourseDeg,
		HeadingDeg: int(math.Round(s.CourseDeg)) % 360,
		Second:     s.Position.Timestamp.UTC().Second(),
	}
}

func (r PositionReport) packet() ais.PositionReport {
	heading := r.HeadingDeg
	if heading < 0 || heading > 359 {
		heading = headingNotAvailable
	}
	second := r.Second
	if second < 0 || second > 59 {
		second = secondNotAvailable
	}
	return ais.PositionReport{
		Header:             ais.Header{MessageID: 1, UserID: r.MMSI},
		Valid:              true,
		NavigationalStatus: uint8(r.NavStatus) & 0xF,
		RateOfTurn:         rotNotAvailable,
		Sog:                ais.Field10(math.Min(math.Max(math.Round(r.SpeedKnots*10)/10, 0), sogMaxKnots)),
		Longitude:          ais.FieldLatLonFine(r.Longitude),
		Latitude:           ais.FieldLatLonFine(r.Latitude),
		Cog:                ais.Field10(math.Mod(math.Round(r.CourseDeg*10), 3600) / 10),
		TrueHeading:        uint16(heading),
		Timestamp:          uint8(second),
	}
}

func positionReportOf(p ais.PositionReport) PositionReport {
	return PositionReport{
		MMSI:       p.UserID,
		NavStatus:  model.NavStatus(p.NavigationalStatus),
		SpeedKnots: float64(p.Sog),
		Latitude:   float64(p.Latitude),
		Longitude:  float64(p.Longitude),
		CourseDeg:  float64(p.Cog),
		HeadingDeg: int(p.TrueHeading),
		Second:     int(p.Timestamp),
	}
}

// EncodePositionReport renders r as a single !AIVDM sentence on the given
// radio channel ('A' or 'B').
func EncodePositionReport(r PositionReport, channel byte) string {
	return encodePositionReport(newCodec(), r, channel)
}

func encodePositionReport(codec *aisnmea.NMEACodec, r PositionReport, channel byte) string {
	lines := codec.EncodeSentence(vdm(r.packet(), channel))
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}

// DecodePositionReport parses a single-fragment !AIVDM type 1, 2 or 3
// message.
func DecodePositionReport(sentence string) (PositionReport, error) {
	f, err := aivdmFields(sentence)
	if err != nil {
		return PositionReport{}, err
	}
	if f[1] != "1" {
		return PositionReport{}, fmt.Errorf("%w: multi-fragment message", ErrMalformed)
	}
	p, err := decodePacket([]string{sentence})
	if err != nil {
		return PositionReport{}, err
	}
	switch r := p.(type) {
	case ais.PositionReport:
		return positionReportOf(r), nil
	case *ais.PositionReport:
		return positionReportOf(*r), nil
	}
	return PositionReport{}, fmt.Errorf("%w: message type %d is not a position report", ErrMalformed, p.GetHeader().MessageID)
}

// StaticReport is the content of an AIS message type 5 (static and voyage
// related data).
type StaticReport struct {
	MMSI        uint32
	IMO         uint32
	CallSign    string
	Name        string
	ShipType    int
	LengthM     int
	WidthM      int
	DraughtM    float64
	Destination string
}

// StaticReportFrom builds a type 5 report for v. The GPS antenna is placed
// amidships.
func StaticReportFrom(v *model.Vessel, destination string) StaticReport {
	profile, _ := v.Type.Profile()
	return StaticReport{
		MMSI:        v.MMSI,
		Name:        v.Name,
		ShipType:    profile.AISShipType,
		LengthM:     v.Dimensions.LengthM,
		WidthM:      v.Dimensions.WidthM,
		DraughtM:    v.Dimensions.DraughtM,
		Destination: destination,
	}
}

func (r StaticReport) packet() ais.ShipStaticData {
	bow, port := r.LengthM/2, r.WidthM/2
	return ais.ShipStaticData{
		Header:    ais.Header{MessageID: 5, UserID: r.MMSI},
		Valid:     true,
		ImoNumber: r.IMO,
		CallSign:  aisText(r.CallSign, 7),
		Name:      aisText(r.Name, 20),
		Type:      uint8(clampInt(r.ShipType, 0, 255)),
		Dimension: ais.FieldDimension{
			A: uint16(clampInt(bow, 0, 511)),
			B: uint16(clampInt(r.LengthM-bow, 0, 511)),
			C: uint8(clampInt(port, 0, 63)),
			D: uint8(clampInt(r.WidthM-port, 0, 63)),
		},
		FixType: epfdGPS,
		// ETA not available.
		Eta:                  ais.FieldETA{Month: 0, Day: 0, Hour: 24, Minute: 60},
		MaximumStaticDraught: ais.Field10(math.Min(math.Round(r.DraughtM*10)/10, 25.5)),
		Destination:          aisText(r.Destination, 20),
	}
}

func staticReportOf(p ais.ShipStaticData) StaticReport {
	return StaticReport{
		MMSI:        p.UserID,
		IMO:         p.ImoNumber,
		CallSign:    trimText(p.CallSign),
		Name:        trimText(p.Name),
		ShipType:    int(p.Type),
		LengthM:     int(p.Dimension.A) + int(p.Dimension.B),
		WidthM:      int(p.Dimension.C) + int(p.Dimension.D),
		DraughtM:    math.Round(float64(p.MaximumStaticDraught)*10) / 10,
		Destination: trimText(p.Destination),
	}
}

// EncodeStaticReport renders r as a multi-fragment !AIVDM message.
func EncodeStaticReport(r StaticReport, channel byte) []string {
	return newCodec().EncodeSentence(vdm(r.packet(), channel))
}

func encodeStaticReport(codec *aisnmea.NMEACodec, r StaticReport, channel byte) []string {
	return codec.EncodeSentence(vdm(r.packet(), channel))
}

// DecodeStaticReport reassembles and parses the fragments of a type 5
// message, given in order.
func DecodeStaticReport(sentences []string) (StaticReport, error) {
	if len(sentences) == 0 {
		return StaticReport{}, fmt.Errorf("%w: no fragments", ErrMalformed)
	}
	for i, s := range sentences {
		f, err := aivdmFields(s)
		if err != nil {
			return StaticReport{}, fmt.Errorf("fragment %d: %w", i+1, err)
		}
		if f[1] != strconv.Itoa(len(sentences)) || f[2] != strconv.Itoa(i+1) {
			return StaticReport{}, fmt.Errorf("%w: fragment %s of %s out of order", ErrMalformed, f[2], f[1])
		}
	}
	p, err := decodePacket(sentences)
	if err != nil {
		return StaticReport{}, err
	}
	switch r := p.(type) {
	case ais.ShipStaticData:
		return staticReportOf(r), nil
	case *ais.ShipStaticData:
		return staticReportOf(*r), nil
	}
	return StaticReport{}, fmt.Errorf("%w: message type %d is not static data", ErrMalformed, p.GetHeader().MessageID)
}

func newCodec() *aisnmea.NMEACodec {
	return aisnmea.NMEACodecNew(ais.CodecNew(false, false))
}

func vdm(p ais.Packet, channel byte) aisnmea.VdmPacket {
	return aisnmea.VdmPacket{
		Channel:     channel,
		TalkerID:    "AI",
		MessageType: "VDM",
		Packet:      p,
	}
}

// decodePacket feeds the fragments of one message to a fresh codec and
// returns the packet completed by the last one.
func decodePacket(sentences []string) (ais.Packet, error) {
	codec := newCodec()
	var out *aisnmea.VdmPacket
	for _, s := range sentences {
		p, err := codec.ParseSentence(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p != nil {
			out = p
		}
	}
	if out == nil || out.Packet == nil {
		return nil, fmt.Errorf("%w: incomplete or undecodable AIS message", ErrMalformed)
	}
	return out.Packet, nil
}

func aivdmFields(sentence string) ([]string, error) {
	f, err := Fields(sentence)
	if err != nil {
		return nil, err
	}
	if len(f) != 7 || (f[0] != "AIVDM" && f[0] != "AIVDO") {
		return nil, fmt.Errorf("%w: not an AIVDM sentence", ErrMalformed)
	}
	return f, nil
}

// aisText upper-cases s, replaces characters outside the six-bit alphabet
// and truncates it to n characters.
func aisText(s string, n int) string {
	out := []byte(strings.ToUpper(s))
	for i, c := range out {
		if c < 32 || c >= 96 {
			out[i] = ' '
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return string(out)
}

func trimText(s string) string { return strings.TrimRight(s, "@ ") }

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
