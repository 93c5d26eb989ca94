package model

import (
	"fmt"
	"time"
)

// Coordinates is a point on the earth's surface in decimal degrees.
// Route waypoints are plain Coordinates; they carry no timestamp.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinates fall inside the latitude/longitude ranges.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinates) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude)
}

// Position is a timestamped fix.
type Position struct {
	Coordinates
	Timestamp time.Time
}
