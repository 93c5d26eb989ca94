// Package nmea renders vessel tracks as NMEA 0183 sentences.
//
// Every report becomes a $GPGGA fix followed by a $GPRMC sentence. The
// encoder can additionally emit AIS !AIVDM messages (see aivdm.go).
package nmea

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

var (
	// ErrMalformed is returned for sentences without the $/! start, the
	// *HH trailer or the expected fields.
	ErrMalformed = errors.New("malformed NMEA sentence")
	// ErrChecksum is returned when the trailer does not match the body.
	ErrChecksum = errors.New("NMEA checksum mismatch")
)

// Checksum is the XOR of every byte of body. body is the text between the
// start delimiter and the '*'.
func Checksum(body string) byte {
	var cs byte
	for i := 0; i < len(body); i++ {
		cs ^= body[i]
	}
	return cs
}

// Sentence frames body with the start delimiter and the checksum trailer.
func Sentence(start byte, body string) string {
	return fmt.Sprintf("%c%s*%02X", start, body, Checksum(body))
}

// Verify checks framing and checksum of one sentence. Trailing CR/LF is
// ignored.
func Verify(sentence string) error {
	_, err := split(sentence)
	return err
}

// Fields verifies sentence and returns its comma-separated fields, the
// first being the address (e.g. "GPGGA").
func Fields(sentence string) ([]string, error) {
	body, err := split(sentence)
	if err != nil {
		return nil, err
	}
	return strings.Split(body, ","), nil
}

func split(sentence string) (string, error) {
	s := strings.TrimRight(sentence, "\r\n")
	if len(s) < 4 || (s[0] != '$' && s[0] != '!') {
		return "", fmt.Errorf("%w: %q", ErrMalformed, sentence)
	}
	star := strings.LastIndexByte(s, '*')
	if star < 0 || len(s)-star != 3 {
		return "", fmt.Errorf("%w: missing checksum in %q", ErrMalformed, sentence)
	}
	body := s[1:star]
	want, err := strconv.ParseUint(s[star+1:], 16, 8)
	if err != nil {
		return "", fmt.Errorf("%w: checksum %q", ErrMalformed, s[star+1:])
	}
	if got := Checksum(body); byte(want) != got {
		return "", fmt.Errorf("%w: have %02X, computed %02X", ErrChecksum, want, got)
	}
	return body, nil
}

// FormatLatitude returns DDMM.MMMM and the hemisphere letter.
func FormatLatitude(lat float64) (string, string) {
	hemi := "N"
	if lat < 0 {
		hemi = "S"
	}
	return degMin(math.Abs(lat), 2), hemi
}

// FormatLongitude returns DDDMM.MMMM and the hemisphere letter.
func FormatLongitude(lon float64) (string, string) {
	hemi := "E"
	if lon < 0 {
		hemi = "W"
	}
	return degMin(math.Abs(lon), 3), hemi
}

// degMin rounds to 1/10000 minute before splitting, so a value just under a
// whole degree carries into the degrees instead of printing 60.0000.
func degMin(abs float64, width int) string {
	ticks := int64(math.Round(abs * 60 * 10000))
	deg := ticks / 600000
	rem := ticks % 600000
	return fmt.Sprintf("%0*d%02d.%04d", width, deg, rem/10000, rem%10000)
}

// FormatSpeed renders knots with one decimal.
func FormatSpeed(knots float64) string {
	return strconv.FormatFloat(knots, 'f', 1, 64)
}

// FormatCourse renders degrees with one decimal, folding 359.95 and up to
// "0.0".
func FormatCourse(deg float64) string {
	s := strconv.FormatFloat(deg, 'f', 1, 64)
	if s == "360.0" || s == "-0.0" {
		return "0.0"
	}
	return s
}

// FormatTime renders HHMMSS in UTC.
func FormatTime(t time.Time) string { return t.UTC().Format("150405") }

// FormatDate renders DDMMYY in UTC.
func FormatDate(t time.Time) string { return t.UTC().Format("020106") }

// GGA renders the GPS fix sentence for one report. Fix quality, satellite
// count, HDOP and altitudes are fixed values.
func GGA(s model.VesselState) string {
	lat, ns := FormatLatitude(s.Position.Latitude)
	lon, ew := FormatLongitude(s.Position.Longitude)
	body := fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,1,08,1.0,10.0,M,0.0,M,,",
		FormatTime(s.Position.Timestamp), lat, ns, lon, ew)
	return Sentence('$', body)
}

// RMC renders the recommended minimum sentence for one report.
func RMC(s model.VesselState) string {
	lat, ns := FormatLatitude(s.Position.Latitude)
	lon, ew := FormatLongitude(s.Position.Longitude)
	ts := s.Position.Timestamp
	body := fmt.Sprintf("GPRMC,%s,A,%s,%s,%s,%s,%s,%s,%s,,",
		FormatTime(ts), lat, ns, lon, ew,
		FormatSpeed(s.SpeedKnots), FormatCourse(s.CourseDeg), FormatDate(ts))
	return Sentence('$', body)
}

// Fix is the content of a parsed RMC sentence.
type Fix struct {
	Time       time.Time
	Latitude   float64
	Longitude  float64
	SpeedKnots float64
	CourseDeg  float64
}

// ParseRMC decodes a $GPRMC sentence written by RMC.
func ParseRMC(sentence string) (Fix, error) {
	f, err := Fields(sentence)
	if err != nil {
		return Fix{}, err
	}
	if len(f) < 10 || !strings.HasSuffix(f[0], "RMC") {
		return Fix{}, fmt.Errorf("%w: not an RMC sentence", ErrMalformed)
	}
	ts, err := time.Parse("020106150405", f[9]+f[1])
	if err != nil {
		return Fix{}, fmt.Errorf("%w: time: %v", ErrMalformed, err)
	}
	lat, err := parseDegMin(f[3], f[4], 2)
	if err != nil {
		return Fix{}, err
	}
	lon, err := parseDegMin(f[5], f[6], 3)
	if err != nil {
		return Fix{}, err
	}
	speed, err := strconv.ParseFloat(f[7], 64)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: speed: %v", ErrMalformed, err)
	}
	course, err := strconv.ParseFloat(f[8], 64)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: course: %v", ErrMalformed, err)
	}
	return Fix{Time: ts, Latitude: lat, Longitude: lon, SpeedKnots: speed, CourseDeg: course}, nil
}

func parseDegMin(v, hemi string, width int) (float64, error) {
	if len(v) < width+2 {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformed, v)
	}
	deg, err := strconv.Atoi(v[:width])
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformed, v)
	}
	mins, err := strconv.ParseFloat(v[width:], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrMalformed, v)
	}
	out := float64(deg) + mins/60
	switch hemi {
	case "S", "W":
		out = -out
	case "N", "E":
	default:
		return 0, fmt.Errorf("%w: hemisphere %q", ErrMalformed, hemi)
	}
	return out, nil
}
