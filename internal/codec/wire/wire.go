// Package wire is a compact binary snapshot of a scenario in protobuf wire
// format. Decoding restores every float bit-for-bit.
//
//	Scenario: 1 id, 2 name, 3 generated_at, 4 start_time (unix ns, sfixed64),
//	          5 duration, 6 interval (ns, varint), 7 seed (fixed64),
//	          8 vessel (repeated), 15 version
//	Vessel:   1 mmsi, 2 name, 3 type, 4 length, 5 width, 6 draught,
//	          7 route, 8 stationary, 9 anchorage, 10 sample (repeated)
//	Route:    1 type, 2 length_nm, 3 waypoint (repeated), 4 leg (repeated)
//	Leg:      1 distance_nm, 2 bearing_deg, 3 speed_knots, 4 role
//	Point:    1 lat, 2 lon
//	Sample:   1 lat, 2 lon, 3 timestamp, 4 speed, 5 course, 6 nav_status,
//	          7 leg_index, 8 progress
//
// Doubles are fixed64. Unknown fields are skipped.
package wire

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// Version is written into field 15 of every snapshot.
const Version = 1

// ErrInvalidSnapshot is returned for truncated or inconsistent input.
var ErrInvalidSnapshot = errors.New("invalid scenario snapshot")

// Marshal encodes sc. Vessels are written in slice order.
func Marshal(sc *model.Scenario) []byte {
	var b []byte
	b = appendString(b, 1, sc.ID)
	b = appendString(b, 2, sc.Name)
	b = appendTime(b, 3, sc.GeneratedAt)
	b = appendTime(b, 4, sc.StartTime)
	b = appendVarint(b, 5, uint64(sc.Duration))
	b = appendVarint(b, 6, uint64(sc.ReportInterval))
	b = protowire.AppendTag(b, 7, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, sc.Seed)
	for _, v := range sc.Vessels {
		b = appendMessage(b, 8, marshalVessel(v, sc.Tracks[v.MMSI]))
	}
	b = appendVarint(b, 15, Version)
	return b
}

func marshalVessel(v *model.Vessel, track []model.VesselState) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(v.MMSI))
	b = appendString(b, 2, v.Name)
	b = appendVarint(b, 3, uint64(v.Type))
	b = appendVarint(b, 4, uint64(v.Dimensions.LengthM))
	b = appendVarint(b, 5, uint64(v.Dimensions.WidthM))
	b = appendDouble(b, 6, v.Dimensions.DraughtM)
	if v.Route != nil {
		b = appendMessage(b, 7, marshalRoute(v.Route))
	}
	if v.Stationary {
		b = appendVarint(b, 8, 1)
		b = appendMessage(b, 9, marshalPoint(v.Anchorage))
	}
	for _, s := range track {
		b = appendMessage(b, 10, marshalSample(s))
	}
	if v.RouteName != "" {
		b = appendString(b, 11, v.RouteName)
	}
	return b
}

func marshalRoute(r *model.Route) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(r.Type))
	b = appendDouble(b, 2, r.LengthNm)
	for _, wp := range r.Waypoints {
		b = appendMessage(b, 3, marshalPoint(wp))
	}
	for _, leg := range r.Legs {
		var lb []byte
		lb = appendDouble(lb, 1, leg.DistanceNm)
		lb = appendDouble(lb, 2, leg.BearingDeg)
		lb = appendDouble(lb, 3, leg.SpeedKnots)
		lb = appendVarint(lb, 4, uint64(leg.Role))
		b = appendMessage(b, 4, lb)
	}
	return b
}

func marshalPoint(c model.Coordinates) []byte {
	b := appendDouble(nil, 1, c.Latitude)
	return appendDouble(b, 2, c.Longitude)
}

func marshalSample(s model.VesselState) []byte {
	var b []byte
	b = appendDouble(b, 1, s.Position.Latitude)
	b = appendDouble(b, 2, s.Position.Longitude)
	b = appendTime(b, 3, s.Position.Timestamp)
	b = appendDouble(b, 4, s.SpeedKnots)
	b = appendDouble(b, 5, s.CourseDeg)
	b = appendVarint(b, 6, uint64(s.NavStatus))
	b = appendVarint(b, 7, uint64(s.LegIndex))
	b = appendDouble(b, 8, s.Progress)
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, m []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m)
}

// appendTime writes t as unix nanoseconds; the zero time is omitted.
func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	if t.IsZero() {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, uint64(t.UnixNano()))
}

// Unmarshal decodes a snapshot written by Marshal. Vessels come back ordered
// by MMSI and timestamps in UTC.
func Unmarshal(data []byte) (*model.Scenario, error) {
	sc := &model.Scenario{Tracks: make(map[uint32][]model.VesselState)}
	var version uint64
	err := walk(data, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			sc.ID = string(f.bytes)
		case 2:
			sc.Name = string(f.bytes)
		case 3:
			sc.GeneratedAt = f.time()
		case 4:
			sc.StartTime = f.time()
		case 5:
			sc.Duration = time.Duration(f.varint)
		case 6:
			sc.ReportInterval = time.Duration(f.varint)
		case 7:
			sc.Seed = f.fixed
		case 8:
			v, track, err := unmarshalVessel(f.bytes)
			if err != nil {
				return err
			}
			if _, dup := sc.Tracks[v.MMSI]; dup {
				return fmt.Errorf("%w: duplicate vessel %d", ErrInvalidSnapshot, v.MMSI)
			}
			sc.Vessels = append(sc.Vessels, v)
			sc.Tracks[v.MMSI] = track
		case 15:
			version = f.varint
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrInvalidSnapshot, version, Version)
	}
	sort.Slice(sc.Vessels, func(i, j int) bool { return sc.Vessels[i].MMSI < sc.Vessels[j].MMSI })
	return sc, nil
}

func unmarshalVessel(data []byte) (*model.Vessel, []model.VesselState, error) {
	v := &model.Vessel{}
	var track []model.VesselState
	err := walk(data, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			v.MMSI = uint32(f.varint)
		case 2:
			v.Name = string(f.bytes)
		case 3:
			v.Type = model.VesselType(f.varint)
		case 4:
			v.Dimensions.LengthM = int(f.varint)
		case 5:
			v.Dimensions.WidthM = int(f.varint)
		case 6:
			v.Dimensions.DraughtM = f.double()
		case 7:
			r, err := unmarshalRoute(f.bytes)
			if err != nil {
				return err
			}
			v.Route = r
		case 8:
			v.Stationary = f.varint != 0
		case 9:
			c, err := unmarshalPoint(f.bytes)
			if err != nil {
				return err
			}
			v.Anchorage = c
		case 10:
			s, err := unmarshalSample(f.bytes)
			if err != nil {
				return err
			}
			track = append(track, s)
		case 11:
			v.RouteName = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	for i := range track {
		track[i].MMSI = v.MMSI
	}
	return v, track, nil
}

func unmarshalRoute(data []byte) (*model.Route, error) {
	r := &model.Route{}
	var legs []model.Leg
	err := walk(data, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			r.Type = model.RouteType(f.varint)
		case 2:
			r.LengthNm = f.double()
		case 3:
			c, err := unmarshalPoint(f.bytes)
			if err != nil {
				return err
			}
			r.Waypoints = append(r.Waypoints, c)
		case 4:
			var leg model.Leg
			err := walk(f.bytes, func(num protowire.Number, f field) error {
				switch num {
				case 1:
					leg.DistanceNm = f.double()
				case 2:
					leg.BearingDeg = f.double()
				case 3:
					leg.SpeedKnots = f.double()
				case 4:
					leg.Role = model.LegRole(f.varint)
				}
				return nil
			})
			if err != nil {
				return err
			}
			legs = append(legs, leg)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(r.Waypoints) < 2 || len(legs) != len(r.Waypoints)-1 {
		return nil, fmt.Errorf("%w: route has %d waypoints and %d legs", ErrInvalidSnapshot, len(r.Waypoints), len(legs))
	}
	for i := range legs {
		legs[i].From, legs[i].To = r.Waypoints[i], r.Waypoints[i+1]
	}
	r.Legs = legs
	return r, nil
}

func unmarshalPoint(data []byte) (model.Coordinates, error) {
	var c model.Coordinates
	err := walk(data, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			c.Latitude = f.double()
		case 2:
			c.Longitude = f.double()
		}
		return nil
	})
	return c, err
}

func unmarshalSample(data []byte) (model.VesselState, error) {
	var s model.VesselState
	err := walk(data, func(num protowire.Number, f field) error {
		switch num {
		case 1:
			s.Position.Latitude = f.double()
		case 2:
			s.Position.Longitude = f.double()
		case 3:
			s.Position.Timestamp = f.time()
		case 4:
			s.SpeedKnots = f.double()
		case 5:
			s.CourseDeg = f.double()
		case 6:
			s.NavStatus = model.NavStatus(f.varint)
		case 7:
			s.LegIndex = int(f.varint)
		case 8:
			s.Progress = f.double()
		}
		return nil
	})
	return s, err
}

// field holds one decoded value; which member is set depends on the wire
// type.
type field struct {
	varint uint64
	fixed  uint64
	bytes  []byte
}

func (f field) double() float64 { return math.Float64frombits(f.fixed) }

func (f field) time() time.Time { return time.Unix(0, int64(f.fixed)).UTC() }

// walk calls fn for every field in data. Groups and fixed32 values are
// skipped.
func walk(data []byte, fn func(protowire.Number, field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, protowire.ParseError(n))
		}
		data = data[n:]

		var f field
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(data)
		case protowire.Fixed64Type:
			f.fixed, n = protowire.ConsumeFixed64(data)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrInvalidSnapshot, protowire.ParseError(n))
			}
			data = data[n:]
			continue
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrInvalidSnapshot, num, protowire.ParseError(n))
		}
		data = data[n:]
		if err := fn(num, f); err != nil {
			return err
		}
	}
	return nil
}
