package core

import "github.com/signalsfoundry/vessel-track-simulator/model"

// DefaultArrivalToleranceNm is the distance from the terminal waypoint of an
// open route inside which a vessel reports itself at anchor.
const DefaultArrivalToleranceNm = 0.1

// deepDraughtM is the draught above which a cargo ship on its harbour
// approach reports CONSTRAINED_BY_DRAUGHT.
const deepDraughtM = 12.0

// StatusInput is everything NavStatusAt looks at. It is built fresh for
// every report, so the status never depends on earlier reports.
type StatusInput struct {
	VesselType model.VesselType
	RouteType  model.RouteType
	LegIndex   int
	LegRole    model.LegRole
	Progress   float64
	// RemainingNm is the distance still to sail on an open route.
	RemainingNm float64
	Arrived     bool
	DraughtM    float64

	ArrivalToleranceNm float64
}

// NavStatusAt derives the navigational status for one report.
func NavStatusAt(in StatusInput) model.NavStatus {
	status := rawNavStatus(in)
	if !in.VesselType.Allows(status) {
		return model.NavStatusUnderWayUsingEngine
	}
	return status
}

func rawNavStatus(in StatusInput) model.NavStatus {
	tol := in.ArrivalToleranceNm
	if tol <= 0 {
		tol = DefaultArrivalToleranceNm
	}
	if in.Arrived {
		return model.NavStatusAtAnchor
	}
	if !in.RouteType.Closed() && in.RemainingNm <= tol {
		return model.NavStatusAtAnchor
	}

	switch {
	case in.RouteType == model.RouteTypeFishingPattern || in.LegRole == model.LegRoleFishing:
		return model.NavStatusFishing
	case in.LegRole == model.LegRoleHarbourApproach && in.DraughtM >= deepDraughtM:
		return model.NavStatusConstrainedByDraught
	case in.RouteType == model.RouteTypePatrolCircuit,
		in.LegRole == model.LegRolePatrol,
		in.LegRole == model.LegRoleHarbourApproach:
		return model.NavStatusRestrictedManoeuvrability
	}
	return model.NavStatusUnderWayUsingEngine
}
