package httpapi

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/nmea"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/structured"
	"github.com/signalsfoundry/vessel-track-simulator/internal/codec/wire"
	"github.com/signalsfoundry/vessel-track-simulator/internal/config"
	"github.com/signalsfoundry/vessel-track-simulator/kb"
	"github.com/signalsfoundry/vessel-track-simulator/model"
)

const (
	mimeNMEA = "text/plain; charset=utf-8"
	mimeWire = "application/x-protobuf"
)

// LocationView is the public JSON form of a registry entry.
type LocationView struct {
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	Latitude  float64  `json:"lat"`
	Longitude float64  `json:"lon"`
	Region    string   `json:"region,omitempty"`
	Country   string   `json:"country,omitempty"`
	Kind      string   `json:"kind"`
}

// NewLocationView converts a registry entry.
func NewLocationView(l kb.Location) LocationView {
	return LocationView{
		Name:      l.Name,
		Aliases:   l.Aliases,
		Latitude:  l.Coordinates.Latitude,
		Longitude: l.Coordinates.Longitude,
		Region:    l.Region,
		Country:   l.Country,
		Kind:      l.Kind.String(),
	}
}

// RangeView is an inclusive [min, max] range.
type RangeView struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// VesselTypeView is the public JSON form of a vessel type profile.
type VesselTypeView struct {
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	CruiseSpeedKnots float64   `json:"cruise_speed_knots"`
	MaxSpeedKnots    float64   `json:"max_speed_knots"`
	RouteType        string    `json:"route_type"`
	AISShipType      int       `json:"ais_ship_type"`
	LengthM          RangeView `json:"length_m"`
	WidthM           RangeView `json:"width_m"`
	DraughtM         RangeView `json:"draught_m"`
	NavStatuses      []string  `json:"navigational_statuses"`
}

// VesselTypeViews lists the vessel type catalogue in its public form.
func VesselTypeViews() []VesselTypeView {
	out := make([]VesselTypeView, 0, len(model.VesselTypes))
	for _, t := range model.VesselTypes {
		p, _ := t.Profile()
		statuses := make([]string, len(p.NavStatuses))
		for i, st := range p.NavStatuses {
			statuses[i] = st.String()
		}
		out = append(out, VesselTypeView{
			Name:             t.String(),
			Description:      p.Description,
			CruiseSpeedKnots: p.CruiseSpeedKnots,
			MaxSpeedKnots:    p.MaxSpeedKnots,
			RouteType:        p.RouteType.String(),
			AISShipType:      p.AISShipType,
			LengthM:          RangeView(p.LengthM),
			WidthM:           RangeView(p.WidthM),
			DraughtM:         RangeView(p.DraughtM),
			NavStatuses:      statuses,
		})
	}
	return out
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	now := s.opts.Now()
	return c.JSON(fiber.Map{
		"status":         "OK",
		"time":           now.Format("2006-01-02T15:04:05Z07:00"),
		"uptime_seconds": now.Sub(s.started).Seconds(),
	})
}

// handleLocations lists the registry, optionally filtered by ?region= and
// ?kind=.
func (s *Server) handleLocations(c *fiber.Ctx) error {
	region := strings.TrimSpace(c.Query("region"))
	var kind kb.LocationKind
	filterKind := false
	if raw := c.Query("kind"); raw != "" {
		k, err := kb.ParseLocationKind(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		kind, filterKind = k, true
	}

	views := []LocationView{}
	for _, l := range s.locations.List() {
		if region != "" && !strings.EqualFold(l.Region, region) && !strings.EqualFold(l.Name, region) {
			continue
		}
		if filterKind && l.Kind != kind {
			continue
		}
		views = append(views, NewLocationView(l))
	}
	return c.JSON(fiber.Map{
		"locations": views,
		"regions":   s.locations.Regions(),
		"count":     len(views),
	})
}

// handleLookup resolves a free-form place description (?q=).
func (s *Server) handleLookup(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
	}
	loc, err := s.locations.Lookup(q)
	if err != nil {
		return err
	}
	return c.JSON(NewLocationView(loc))
}

func (s *Server) handleVesselTypes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"vessel_types": VesselTypeViews()})
}

// handleGenerate accepts a request document (JSON, or YAML when the content
// type says so) and returns the scenario as ?format=json|nmea|wire.
func (s *Server) handleGenerate(c *fiber.Ctx) error {
	format := strings.ToLower(c.Query("format", "json"))
	switch format {
	case "json", "nmea", "wire":
	default:
		return fiber.NewError(fiber.StatusBadRequest, "format must be json, nmea or wire")
	}

	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "request body is empty")
	}
	docFormat := config.FormatJSON
	if ct := strings.ToLower(c.Get(fiber.HeaderContentType)); strings.Contains(ct, "yaml") {
		docFormat = config.FormatYAML
	}
	doc, err := config.ParseRequest(body, docFormat)
	if err != nil {
		return err
	}
	req, err := doc.ToRequest(s.opts.DefaultReportInterval)
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}
	sc, err := s.gen.Generate(ctx, req)
	if err != nil {
		return err
	}
	c.Set(HeaderScenarioID, sc.ID)

	switch format {
	case "nmea":
		var opts []nmea.Option
		if c.QueryBool("aivdm") {
			opts = append(opts, nmea.WithAIVDM())
		}
		if c.QueryBool("static") {
			opts = append(opts, nmea.WithStaticReports())
		}
		if c.QueryBool("crlf") {
			opts = append(opts, nmea.WithCRLF())
		}
		data, err := nmea.Encode(sc, opts...)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, mimeNMEA)
		return c.Send(data)
	case "wire":
		c.Set(fiber.HeaderContentType, mimeWire)
		return c.Send(wire.Marshal(sc))
	default:
		return c.JSON(structured.Encode(sc))
	}
}

var _ Generator = (*core.SimulationEngine)(nil)
var _ LocationCatalog = (*kb.LocationRegistry)(nil)
