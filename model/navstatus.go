package model

import (
	"fmt"
	"strings"
)

// NavStatus is an AIS navigational status. The numeric values are the AIS
// status codes so they can be written straight into position reports.
type NavStatus int

const (
	NavStatusUnderWayUsingEngine       NavStatus = 0
	NavStatusAtAnchor                  NavStatus = 1
	NavStatusNotUnderCommand           NavStatus = 2
	NavStatusRestrictedManoeuvrability NavStatus = 3
	NavStatusConstrainedByDraught      NavStatus = 4
	NavStatusMoored                    NavStatus = 5
	NavStatusAground                   NavStatus = 6
	NavStatusFishing                   NavStatus = 7
	NavStatusUnderWaySailing           NavStatus = 8
	NavStatusNotDefined                NavStatus = 15
)

var navStatusNames = map[NavStatus]string{
	NavStatusUnderWayUsingEngine:       "UNDER_WAY_USING_ENGINE",
	NavStatusAtAnchor:                  "AT_ANCHOR",
	NavStatusNotUnderCommand:           "NOT_UNDER_COMMAND",
	NavStatusRestrictedManoeuvrability: "RESTRICTED_MANOEUVRABILITY",
	NavStatusConstrainedByDraught:      "CONSTRAINED_BY_DRAUGHT",
	NavStatusMoored:                    "MOORED",
	NavStatusAground:                   "AGROUND",
	NavStatusFishing:                   "FISHING",
	NavStatusUnderWaySailing:           "UNDER_WAY_SAILING",
	NavStatusNotDefined:                "NOT_DEFINED",
}

func (s NavStatus) String() string {
	if name, ok := navStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("NAV_STATUS_%d", int(s))
}

// ParseNavStatus is the inverse of String. The AIS spelling
// "ENGAGED_IN_FISHING" and the American "MANEUVERABILITY" are accepted too.
func ParseNavStatus(s string) (NavStatus, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	switch key {
	case "ENGAGED_IN_FISHING":
		return NavStatusFishing, nil
	case "RESTRICTED_MANEUVERABILITY":
		return NavStatusRestrictedManoeuvrability, nil
	}
	for status, name := range navStatusNames {
		if name == key {
			return status, nil
		}
	}
	return NavStatusNotDefined, fmt.Errorf("unknown navigational status %q", s)
}
