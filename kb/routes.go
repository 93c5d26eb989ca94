package kb

import (
	"fmt"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// NamedRoute is a well-known route. Open routes run from Origin to
// Destination. Loops (fishing grounds, patrol circuits) have no Destination
// and are centred on Origin.
type NamedRoute struct {
	Name        string
	Type        model.RouteType
	Origin      Location
	Destination *Location
}

// RouteCatalog holds named routes per route type in preference order. It
// is immutable and safe for concurrent use.
type RouteCatalog struct {
	byType map[model.RouteType][]NamedRoute
	names  map[string]struct{}
}

// NewRouteCatalog validates routes and groups them by type. Names must be
// unique and open routes need a destination.
func NewRouteCatalog(routes []NamedRoute) (*RouteCatalog, error) {
	c := &RouteCatalog{
		byType: make(map[model.RouteType][]NamedRoute),
		names:  make(map[string]struct{}, len(routes)),
	}
	for _, r := range routes {
		key := normalize(r.Name)
		if key == "" {
			return nil, fmt.Errorf("route of type %s has no name", r.Type)
		}
		if _, dup := c.names[key]; dup {
			return nil, fmt.Errorf("route %q is listed twice", r.Name)
		}
		if !r.Origin.Coordinates.Valid() {
			return nil, fmt.Errorf("route %q has invalid origin %v", r.Name, r.Origin.Coordinates)
		}
		if r.Type.Closed() && r.Destination != nil {
			return nil, fmt.Errorf("route %q: %s routes take no destination", r.Name, r.Type)
		}
		if !r.Type.Closed() && r.Destination == nil {
			return nil, fmt.Errorf("route %q: %s routes need a destination", r.Name, r.Type)
		}
		c.names[key] = struct{}{}
		c.byType[r.Type] = append(c.byType[r.Type], r)
	}
	return c, nil
}

// DefaultRouteCatalog returns the Irish Sea ferry, cargo, fishing and
// patrol routes.
func DefaultRouteCatalog() *RouteCatalog {
	reg := DefaultRegistry()
	at := func(name string) Location {
		loc, err := reg.Lookup(name)
		if err != nil {
			panic(err)
		}
		return loc
	}
	open := func(t model.RouteType, name, from, to string) NamedRoute {
		dest := at(to)
		return NamedRoute{Name: name, Type: t, Origin: at(from), Destination: &dest}
	}
	// Loops are given as the corners of their ground and centred between them.
	loop := func(t model.RouteType, name, region string, lat1, lon1, lat2, lon2 float64) NamedRoute {
		return NamedRoute{Name: name, Type: t, Origin: area(name, region, (lat1+lat2)/2, (lon1+lon2)/2)}
	}
	c, err := NewRouteCatalog([]NamedRoute{
		open(model.RouteTypeDirectTransit, "Dublin-Holyhead Ferry", "Dublin", "Holyhead"),
		open(model.RouteTypeDirectTransit, "Belfast-Liverpool Ferry", "Belfast", "Liverpool"),
		open(model.RouteTypeDirectTransit, "Cork-Swansea Ferry", "Cork", "Swansea"),
		open(model.RouteTypeDirectTransit, "Dublin-Isle of Man", "Dublin", "Isle of Man"),
		open(model.RouteTypeDirectTransit, "Holyhead-Dublin Ferry", "Holyhead", "Dublin"),
		open(model.RouteTypeDirectTransit, "Liverpool-Belfast Ferry", "Liverpool", "Belfast"),

		open(model.RouteTypeCommercialLane, "Dublin-Liverpool Cargo", "Dublin", "Liverpool"),
		open(model.RouteTypeCommercialLane, "Cork-Cardiff Cargo", "Cork", "Cardiff"),
		open(model.RouteTypeCommercialLane, "Belfast-Swansea Container", "Belfast", "Swansea"),
		open(model.RouteTypeCommercialLane, "Liverpool-Dublin Supply", "Liverpool", "Dublin"),

		loop(model.RouteTypeFishingPattern, "North Irish Sea Grounds", "Irish Sea", 53.7, -5.5, 53.9, -5.3),
		loop(model.RouteTypeFishingPattern, "Central Irish Sea Grounds", "Irish Sea", 52.5, -5.8, 52.7, -5.6),
		loop(model.RouteTypeFishingPattern, "Bristol Channel Grounds", "Bristol Channel", 51.8, -4.5, 52.0, -4.3),

		loop(model.RouteTypePatrolCircuit, "Dublin Bay Patrol", "Irish Sea", 53.4, -6.0, 53.6, -5.8),
		loop(model.RouteTypePatrolCircuit, "Anglesey Coast Patrol", "Irish Sea", 53.3, -4.4, 53.4, -4.2),
		loop(model.RouteTypePatrolCircuit, "Belfast Lough Patrol", "Irish Sea", 54.6, -5.8, 54.8, -5.6),
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Routes returns the routes of type t in preference order.
func (c *RouteCatalog) Routes(t model.RouteType) []NamedRoute {
	return append([]NamedRoute(nil), c.byType[t]...)
}

// Len is the number of routes in the catalogue.
func (c *RouteCatalog) Len() int { return len(c.names) }

// RoutePicker hands out catalogue routes for one scenario, preferring
// routes no earlier vessel has taken. It is not safe for concurrent use.
type RoutePicker struct {
	catalog *RouteCatalog
	used    map[string]int
}

// NewPicker starts a fresh selection over c.
func (c *RouteCatalog) NewPicker() *RoutePicker {
	return &RoutePicker{catalog: c, used: make(map[string]int)}
}

// Pick returns the first unused route of type t. Once every route of t has
// been taken, routes are reused in catalogue order, least used first. ok is
// false when the catalogue has no route of type t.
func (p *RoutePicker) Pick(t model.RouteType) (NamedRoute, bool) {
	routes := p.catalog.byType[t]
	if len(routes) == 0 {
		return NamedRoute{}, false
	}
	best := 0
	for i, r := range routes {
		if p.used[r.Name] < p.used[routes[best].Name] {
			best = i
		}
	}
	r := routes[best]
	p.used[r.Name]++
	return r, true
}
