package model

import (
	"fmt"
	"strings"
)

// VesselType is the closed set of simulated vessel classes.
type VesselType int

const (
	VesselTypeUnknown VesselType = iota
	VesselTypePassenger
	VesselTypeCargo
	VesselTypeFishing
	VesselTypePilotVessel
	VesselTypeHighSpeedCraft
)

// VesselTypes lists the supported types in a stable order. Round-robin
// assignment in the scenario engine cycles through this order.
var VesselTypes = []VesselType{
	VesselTypePassenger,
	VesselTypeCargo,
	VesselTypeFishing,
	VesselTypePilotVessel,
	VesselTypeHighSpeedCraft,
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

// VesselProfile holds the per-type constants used by route building and
// motion simulation.
type VesselProfile struct {
	Description string

	CruiseSpeedKnots float64
	MaxSpeedKnots    float64
	// MaxTurnRateDegPerMin bounds how far the course may swing per minute.
	MaxTurnRateDegPerMin float64
	// AccelKnotsPerMin bounds how far the speed may change per minute.
	AccelKnotsPerMin float64

	LengthM  Range
	WidthM   Range
	DraughtM Range

	// NavStatuses is the set of plausible navigational statuses.
	NavStatuses []NavStatus
	RouteType   RouteType

	// AISShipType is the AIS "ship and cargo type" code.
	AISShipType int
	NamePool    []string
}

var vesselProfiles = map[VesselType]VesselProfile{
	VesselTypePassenger: {
		Description:          "Passenger ferries and cruise ships",
		CruiseSpeedKnots:     12,
		MaxSpeedKnots:        40,
		MaxTurnRateDegPerMin: 10,
		AccelKnotsPerMin:     1.5,
		LengthM:              Range{120, 200},
		WidthM:               Range{18, 28},
		DraughtM:             Range{4, 7},
		NavStatuses:          []NavStatus{NavStatusUnderWayUsingEngine, NavStatusAtAnchor, NavStatusRestrictedManoeuvrability, NavStatusMoored},
		RouteType:            RouteTypeDirectTransit,
		AISShipType:          60,
		NamePool:             []string{"CELTIC SEA", "IRISH ROVER", "EMERALD PRINCESS", "DUBLIN BAY", "WALES EXPRESS"},
	},
	VesselTypeCargo: {
		Description:          "Container ships and bulk carriers",
		CruiseSpeedKnots:     9,
		MaxSpeedKnots:        16,
		MaxTurnRateDegPerMin: 5,
		AccelKnotsPerMin:     0.5,
		LengthM:              Range{150, 300},
		WidthM:               Range{20, 40},
		DraughtM:             Range{8, 15},
		NavStatuses:          []NavStatus{NavStatusUnderWayUsingEngine, NavStatusAtAnchor, NavStatusRestrictedManoeuvrability, NavStatusConstrainedByDraught},
		RouteType:            RouteTypeCommercialLane,
		AISShipType:          70,
		NamePool:             []string{"ATLANTIC TRADER", "IRISH CARGO", "CELTIC CONTAINER", "MERCHANT VOYAGER", "SUPPLY MASTER"},
	},
	VesselTypeFishing: {
		Description:          "Commercial fishing vessels",
		CruiseSpeedKnots:     6,
		MaxSpeedKnots:        12,
		MaxTurnRateDegPerMin: 20,
		AccelKnotsPerMin:     1,
		LengthM:              Range{20, 80},
		WidthM:               Range{6, 15},
		DraughtM:             Range{2, 5},
		NavStatuses:          []NavStatus{NavStatusUnderWayUsingEngine, NavStatusAtAnchor, NavStatusFishing},
		RouteType:            RouteTypeFishingPattern,
		AISShipType:          30,
		NamePool:             []string{"NEPTUNE'S CATCH", "SEA HUNTER", "ATLANTIC FISHER", "IRISH PRIDE", "OCEAN HARVEST"},
	},
	VesselTypePilotVessel: {
		Description:          "Pilot boats and patrol vessels",
		CruiseSpeedKnots:     18,
		MaxSpeedKnots:        28,
		MaxTurnRateDegPerMin: 30,
		AccelKnotsPerMin:     3,
		LengthM:              Range{30, 100},
		WidthM:               Range{8, 18},
		DraughtM:             Range{2.5, 6},
		NavStatuses:          []NavStatus{NavStatusUnderWayUsingEngine, NavStatusAtAnchor, NavStatusRestrictedManoeuvrability},
		RouteType:            RouteTypePatrolCircuit,
		AISShipType:          50,
		NamePool:             []string{"COAST GUARD 1", "PATROL VESSEL", "GUARDIAN", "SEA WATCH", "MARITIME PATROL"},
	},
	VesselTypeHighSpeedCraft: {
		Description:          "Fast passenger boats and hydrofoils",
		CruiseSpeedKnots:     24,
		MaxSpeedKnots:        42,
		MaxTurnRateDegPerMin: 25,
		AccelKnotsPerMin:     4,
		LengthM:              Range{40, 80},
		WidthM:               Range{10, 20},
		DraughtM:             Range{1.5, 3.5},
		NavStatuses:          []NavStatus{NavStatusUnderWayUsingEngine, NavStatusAtAnchor},
		RouteType:            RouteTypeDirectTransit,
		AISShipType:          40,
		NamePool:             []string{"SPEED DEMON", "FAST CAT", "SWIFT CURRENT", "RAPID TRANSIT", "QUICK SILVER"},
	},
}

// Profile returns the constant table for the type. Unknown types get a zero
// profile with ok == false.
func (t VesselType) Profile() (VesselProfile, bool) {
	p, ok := vesselProfiles[t]
	return p, ok
}

// Allows reports whether status is plausible for this type.
func (t VesselType) Allows(status NavStatus) bool {
	p, ok := vesselProfiles[t]
	if !ok {
		return false
	}
	for _, s := range p.NavStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (t VesselType) String() string {
	switch t {
	case VesselTypePassenger:
		return "PASSENGER"
	case VesselTypeCargo:
		return "CARGO"
	case VesselTypeFishing:
		return "FISHING"
	case VesselTypePilotVessel:
		return "PILOT_VESSEL"
	case VesselTypeHighSpeedCraft:
		return "HIGH_SPEED_CRAFT"
	default:
		return "UNKNOWN"
	}
}

var vesselTypeAliases = map[string]VesselType{
	"passenger":        VesselTypePassenger,
	"ferry":            VesselTypePassenger,
	"cruise":           VesselTypePassenger,
	"liner":            VesselTypePassenger,
	"cargo":            VesselTypeCargo,
	"container":        VesselTypeCargo,
	"freight":          VesselTypeCargo,
	"bulk":             VesselTypeCargo,
	"tanker":           VesselTypeCargo,
	"fishing":          VesselTypeFishing,
	"trawler":          VesselTypeFishing,
	"seiner":           VesselTypeFishing,
	"pilot_vessel":     VesselTypePilotVessel,
	"pilot":            VesselTypePilotVessel,
	"patrol":           VesselTypePilotVessel,
	"coast_guard":      VesselTypePilotVessel,
	"high_speed_craft": VesselTypeHighSpeedCraft,
	"hsc":              VesselTypeHighSpeedCraft,
	"fast":             VesselTypeHighSpeedCraft,
	"hydrofoil":        VesselTypeHighSpeedCraft,
	"catamaran":        VesselTypeHighSpeedCraft,
}

// ParseVesselType maps a canonical name or a common alias onto a VesselType.
// Matching ignores case; spaces and dashes are treated as underscores.
func ParseVesselType(s string) (VesselType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if t, ok := vesselTypeAliases[key]; ok {
		return t, nil
	}
	return VesselTypeUnknown, fmt.Errorf("unknown vessel type %q", s)
}
