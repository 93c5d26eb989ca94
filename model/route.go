package model

import (
	"fmt"
	"strings"
)

// RouteType selects the waypoint-generation algorithm.
type RouteType int

const (
	RouteTypeUnknown RouteType = iota
	RouteTypeDirectTransit
	RouteTypeCommercialLane
	RouteTypeFishingPattern
	RouteTypePatrolCircuit
)

// Closed reports whether routes of this type are loops (first == last waypoint).
func (t RouteType) Closed() bool {
	return t == RouteTypeFishingPattern || t == RouteTypePatrolCircuit
}

func (t RouteType) String() string {
	switch t {
	case RouteTypeDirectTransit:
		return "DIRECT_TRANSIT"
	case RouteTypeCommercialLane:
		return "COMMERCIAL_LANE"
	case RouteTypeFishingPattern:
		return "FISHING_PATTERN"
	case RouteTypePatrolCircuit:
		return "PATROL_CIRCUIT"
	default:
		return "UNKNOWN"
	}
}

// ParseRouteType is the inverse of String (case-insensitive).
func ParseRouteType(s string) (RouteType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DIRECT_TRANSIT":
		return RouteTypeDirectTransit, nil
	case "COMMERCIAL_LANE":
		return RouteTypeCommercialLane, nil
	case "FISHING_PATTERN":
		return RouteTypeFishingPattern, nil
	case "PATROL_CIRCUIT":
		return RouteTypePatrolCircuit, nil
	}
	return RouteTypeUnknown, fmt.Errorf("unknown route type %q", s)
}

// LegRole tags a leg with the activity the vessel performs on it.
type LegRole int

const (
	LegRoleTransit LegRole = iota
	LegRoleHarbourApproach
	LegRoleFishing
	LegRolePatrol
)

func (r LegRole) String() string {
	switch r {
	case LegRoleHarbourApproach:
		return "HARBOUR_APPROACH"
	case LegRoleFishing:
		return "FISHING"
	case LegRolePatrol:
		return "PATROL"
	default:
		return "TRANSIT"
	}
}

// Leg is the stretch between two consecutive waypoints.
type Leg struct {
	From       Coordinates
	To         Coordinates
	DistanceNm float64
	// BearingDeg is the initial great-circle bearing from From to To.
	BearingDeg float64
	SpeedKnots float64
	Role       LegRole
}

// Route is an ordered waypoint sequence with per-leg metadata.
// Invariants: len(Waypoints) >= 2, len(Legs) == len(Waypoints)-1, and
// closed routes repeat their first waypoint at the end.
type Route struct {
	Type      RouteType
	Waypoints []Coordinates
	Legs      []Leg
	LengthNm  float64
}

// Closed reports whether the route is a loop.
func (r *Route) Closed() bool {
	return r != nil && r.Type.Closed()
}

// Start returns the first waypoint.
func (r *Route) Start() Coordinates {
	return r.Waypoints[0]
}

// End returns the last waypoint.
func (r *Route) End() Coordinates {
	return r.Waypoints[len(r.Waypoints)-1]
}

// ParseLegRole is the inverse of LegRole.String (case-insensitive).
func ParseLegRole(s string) (LegRole, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "TRANSIT":
		return LegRoleTransit, nil
	case "HARBOUR_APPROACH", "HARBOR_APPROACH":
		return LegRoleHarbourApproach, nil
	case "FISHING":
		return LegRoleFishing, nil
	case "PATROL":
		return LegRolePatrol, nil
	}
	return LegRoleTransit, fmt.Errorf("unknown leg role %q", s)
}
