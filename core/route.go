package core

import (
	"fmt"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// NewRoute validates a waypoint sequence and derives per-leg distance and
// bearing. speeds carries one target speed per leg; roles may be nil, in
// which case every leg is a transit leg.
func NewRoute(routeType model.RouteType, waypoints []model.Coordinates, speeds []float64, roles []model.LegRole) (*model.Route, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("%w: route needs at least 2 waypoints, got %d", ErrValidation, len(waypoints))
	}
	legCount := len(waypoints) - 1
	if len(speeds) != legCount {
		return nil, fmt.Errorf("%w: route has %d legs but %d speeds", ErrValidation, legCount, len(speeds))
	}
	if roles != nil && len(roles) != legCount {
		return nil, fmt.Errorf("%w: route has %d legs but %d roles", ErrValidation, legCount, len(roles))
	}
	for i, wp := range waypoints {
		if !wp.Valid() {
			return nil, fmt.Errorf("%w: waypoint %d %v out of range", ErrValidation, i, wp)
		}
	}
	if routeType.Closed() && waypoints[0] != waypoints[legCount] {
		return nil, fmt.Errorf("%w: closed %s route must end at its first waypoint", ErrValidation, routeType)
	}

	route := &model.Route{
		Type:      routeType,
		Waypoints: append([]model.Coordinates(nil), waypoints...),
		Legs:      make([]model.Leg, 0, legCount),
	}
	for i := 0; i < legCount; i++ {
		if speeds[i] <= 0 {
			return nil, fmt.Errorf("%w: leg %d speed must be positive, got %v", ErrValidation, i, speeds[i])
		}
		from, to := waypoints[i], waypoints[i+1]
		leg := model.Leg{
			From:       from,
			To:         to,
			DistanceNm: Distance(from, to),
			BearingDeg: InitialBearing(from, to),
			SpeedKnots: speeds[i],
		}
		if roles != nil {
			leg.Role = roles[i]
		}
		route.LengthNm += leg.DistanceNm
		route.Legs = append(route.Legs, leg)
	}
	if route.LengthNm == 0 {
		return nil, fmt.Errorf("%w: %s route has zero length", ErrDegenerateRoute, routeType)
	}
	return route, nil
}

// TravelTimeHours is the time needed to sail every leg at its target speed.
func TravelTimeHours(r *model.Route) float64 {
	var h float64
	for _, leg := range r.Legs {
		if leg.DistanceNm > 0 {
			h += leg.DistanceNm / leg.SpeedKnots
		}
	}
	return h
}
