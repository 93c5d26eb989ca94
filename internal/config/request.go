package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/vessel-track-simulator/core"
	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// RequestDocument is the file and HTTP form of a generation request.
type RequestDocument struct {
	ScenarioName          string           `yaml:"scenario_name" json:"scenario_name"`
	VesselCount           int              `yaml:"vessel_count" json:"vessel_count"`
	VesselTypes           []string         `yaml:"vessel_types" json:"vessel_types"`
	Vessels               []VesselDocument `yaml:"vessels" json:"vessels"`
	Location              string           `yaml:"location" json:"location"`
	Destination           string           `yaml:"destination" json:"destination"`
	DurationHours         float64          `yaml:"duration_hours" json:"duration_hours"`
	ReportIntervalSeconds float64          `yaml:"report_interval_seconds" json:"report_interval_seconds"`
	// StartTime is RFC 3339.
	StartTime       string `yaml:"start_time" json:"start_time"`
	Seed            uint64 `yaml:"seed" json:"seed"`
	AllowStationary bool   `yaml:"allow_stationary" json:"allow_stationary"`
}

// VesselDocument pins one vessel of a request.
type VesselDocument struct {
	Type        string `yaml:"type" json:"type"`
	Name        string `yaml:"name" json:"name"`
	MMSI        uint32 `yaml:"mmsi" json:"mmsi"`
	Origin      string `yaml:"origin" json:"origin"`
	Destination string `yaml:"destination" json:"destination"`
}

// Format is the encoding of a request document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// DetectFormat guesses the format from a file name, falling back to the
// content: documents starting with '{' are JSON.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return FormatJSON
	}
	return FormatYAML
}

// ParseRequest decodes a request document. Unknown keys are rejected.
func ParseRequest(data []byte, format Format) (RequestDocument, error) {
	var doc RequestDocument
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return RequestDocument{}, fmt.Errorf("%w: decode json request: %v", core.ErrValidation, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return RequestDocument{}, fmt.Errorf("%w: decode yaml request: %v", core.ErrValidation, err)
		}
	default:
		return RequestDocument{}, fmt.Errorf("%w: unsupported request format %q", core.ErrValidation, format)
	}
	return doc, nil
}

// LoadRequestFile reads and decodes a request document from path.
func LoadRequestFile(path string) (RequestDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RequestDocument{}, fmt.Errorf("read request: %w", err)
	}
	return ParseRequest(data, DetectFormat(path, data))
}

// ToRequest converts the document into an engine request. defaultInterval
// applies when the document has no report interval; zero leaves the engine
// default in place.
func (d RequestDocument) ToRequest(defaultInterval time.Duration) (core.GenerationRequest, error) {
	duration, err := durationOf(d.DurationHours, time.Hour, "duration_hours")
	if err != nil {
		return core.GenerationRequest{}, err
	}
	interval, err := durationOf(d.ReportIntervalSeconds, time.Second, "report_interval_seconds")
	if err != nil {
		return core.GenerationRequest{}, err
	}
	req := core.GenerationRequest{
		ScenarioName:    d.ScenarioName,
		VesselCount:     d.VesselCount,
		Location:        d.Location,
		Destination:     d.Destination,
		Duration:        duration,
		ReportInterval:  interval,
		Seed:            d.Seed,
		AllowStationary: d.AllowStationary,
	}
	if req.ReportInterval == 0 {
		req.ReportInterval = defaultInterval
	}
	for _, name := range d.VesselTypes {
		t, err := model.ParseVesselType(name)
		if err != nil {
			return core.GenerationRequest{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		req.VesselTypes = append(req.VesselTypes, t)
	}
	for i, v := range d.Vessels {
		spec := core.VesselSpec{
			Name:        v.Name,
			MMSI:        v.MMSI,
			Origin:      v.Origin,
			Destination: v.Destination,
		}
		if v.Type != "" {
			t, err := model.ParseVesselType(v.Type)
			if err != nil {
				return core.GenerationRequest{}, fmt.Errorf("%w: vessel %d: %v", core.ErrValidation, i, err)
			}
			spec.Type = t
		}
		req.Vessels = append(req.Vessels, spec)
	}
	if s := strings.TrimSpace(d.StartTime); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return core.GenerationRequest{}, fmt.Errorf("%w: start_time: %v", core.ErrValidation, err)
		}
		req.StartTime = t.UTC()
	}
	return req, nil
}

// durationOf converts v units into a Duration, rejecting values that do not
// fit in one.
func durationOf(v float64, unit time.Duration, field string) (time.Duration, error) {
	ns := math.Round(v * float64(unit))
	if math.IsNaN(ns) || math.Abs(ns) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s %v is out of range", core.ErrValidation, field, v)
	}
	return time.Duration(ns), nil
}
