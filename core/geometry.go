package core

import (
	"math"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// EarthRadiusKm is the mean Earth radius used for all spherical
// calculations (kilometres).
const EarthRadiusKm = 6371.0

// EarthRadiusNm is EarthRadiusKm expressed in nautical miles.
const EarthRadiusNm = EarthRadiusKm / 1.852

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// Distance returns the great-circle distance between a and b in nautical
// miles using the haversine formula.
func Distance(a, b model.Coordinates) float64 {
	lat1 := a.Latitude * degToRad
	lat2 := b.Latitude * degToRad
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	if h > 1 {
		h = 1
	}
	return 2 * EarthRadiusNm * math.Asin(math.Sqrt(h))
}

// InitialBearing returns the initial great-circle bearing from a to b in
// degrees, normalised to [0, 360).
func InitialBearing(a, b model.Coordinates) float64 {
	lat1 := a.Latitude * degToRad
	lat2 := b.Latitude * degToRad
	dLon := (b.Longitude - a.Longitude) * degToRad

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeBearing(math.Atan2(y, x) * radToDeg)
}

// Destination solves the direct problem on a sphere: the point reached by
// travelling distanceNm from origin on the given initial bearing.
func Destination(origin model.Coordinates, bearingDeg, distanceNm float64) model.Coordinates {
	if distanceNm == 0 {
		return origin
	}
	delta := distanceNm / EarthRadiusNm
	theta := bearingDeg * degToRad
	lat1 := origin.Latitude * degToRad
	lon1 := origin.Longitude * degToRad

	sinLat2 := math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta)
	if sinLat2 > 1 {
		sinLat2 = 1
	} else if sinLat2 < -1 {
		sinLat2 = -1
	}
	lat2 := math.Asin(sinLat2)
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*sinLat2,
	)

	return model.Coordinates{
		Latitude:  lat2 * radToDeg,
		Longitude: normalizeLongitude(lon2 * radToDeg),
	}
}

// NormalizeBearing maps any angle in degrees onto [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	// -1e-15 + 360 rounds to exactly 360.
	if b >= 360 {
		b = 0
	}
	return b
}

// AngleDelta returns the signed shortest rotation from one bearing to
// another, in (-180, 180]. Positive values turn clockwise.
func AngleDelta(from, to float64) float64 {
	d := NormalizeBearing(to - from)
	if d > 180 {
		d -= 360
	}
	return d
}

// OffsetAbeam moves p sideways relative to the bearing: positive offsets go
// to starboard, negative ones to port.
func OffsetAbeam(p model.Coordinates, bearingDeg, offsetNm float64) model.Coordinates {
	if offsetNm == 0 {
		return p
	}
	if offsetNm > 0 {
		return Destination(p, NormalizeBearing(bearingDeg+90), offsetNm)
	}
	return Destination(p, NormalizeBearing(bearingDeg-90), -offsetNm)
}

func normalizeLongitude(lon float64) float64 {
	l := math.Mod(lon+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}
