package kb

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/vessel-track-simulator/model"
)

// ErrLocationNotFound is matched by every LocationNotFoundError.
var ErrLocationNotFound = errors.New("location not found")

// LocationNotFoundError names the query that could not be resolved.
type LocationNotFoundError struct {
	Query string
}

func (e *LocationNotFoundError) Error() string {
	return fmt.Sprintf("location not found: %q", e.Query)
}

// Is makes errors.Is(err, ErrLocationNotFound) hold.
func (e *LocationNotFoundError) Is(target error) bool {
	return target == ErrLocationNotFound
}

// LocationKind classifies registry entries.
type LocationKind int

const (
	KindPort LocationKind = iota
	KindArea
	KindRegion
)

func (k LocationKind) String() string {
	switch k {
	case KindArea:
		return "AREA"
	case KindRegion:
		return "REGION"
	default:
		return "PORT"
	}
}

// ParseLocationKind is the inverse of String (case-insensitive).
func ParseLocationKind(s string) (LocationKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "PORT":
		return KindPort, nil
	case "AREA":
		return KindArea, nil
	case "REGION":
		return KindRegion, nil
	}
	return KindPort, fmt.Errorf("unknown location kind %q", s)
}

// MarshalYAML writes the kind as its name.
func (k LocationKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// UnmarshalYAML accepts the kind name in any case.
func (k *LocationKind) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseLocationKind(node.Value)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Location is one named place.
type Location struct {
	Name        string
	Aliases     []string
	Coordinates model.Coordinates
	// Region is a broad sea area tag such as "Irish Sea".
	Region  string
	Country string
	Kind    LocationKind
}

// IsPort reports whether vessels berth at this location.
func (l Location) IsPort() bool { return l.Kind == KindPort }

// LocationRegistry is an immutable name -> location table. It is safe for
// concurrent use.
type LocationRegistry struct {
	locations []Location
	// exact maps canonical names verbatim.
	exact map[string]int
	// keys maps normalised names and aliases.
	keys map[string]int
	// byRegion maps a normalised region tag to the first location carrying it.
	byRegion map[string]int
	regions  []string
}

// NewLocationRegistry builds a registry. Names and aliases must be unique
// after normalisation and every entry must have valid coordinates.
func NewLocationRegistry(locations []Location) (*LocationRegistry, error) {
	r := &LocationRegistry{
		locations: make([]Location, 0, len(locations)),
		exact:     make(map[string]int, len(locations)),
		keys:      make(map[string]int, len(locations)*2),
		byRegion:  make(map[string]int),
	}
	for _, loc := range locations {
		if strings.TrimSpace(loc.Name) == "" {
			return nil, fmt.Errorf("location with coordinates %v has no name", loc.Coordinates)
		}
		if !loc.Coordinates.Valid() {
			return nil, fmt.Errorf("location %q has invalid coordinates %v", loc.Name, loc.Coordinates)
		}
		idx := len(r.locations)
		loc.Aliases = append([]string(nil), loc.Aliases...)
		r.locations = append(r.locations, loc)
		r.exact[loc.Name] = idx

		for _, key := range append([]string{loc.Name}, loc.Aliases...) {
			norm := normalize(key)
			if norm == "" {
				continue
			}
			if prev, exists := r.keys[norm]; exists && prev != idx {
				return nil, fmt.Errorf("location %q: name %q already used by %q", loc.Name, key, r.locations[prev].Name)
			}
			r.keys[norm] = idx
		}
		if region := normalize(loc.Region); region != "" {
			if _, seen := r.byRegion[region]; !seen {
				r.byRegion[region] = idx
				r.regions = append(r.regions, loc.Region)
			}
		}
	}
	return r, nil
}

// MustNewLocationRegistry is NewLocationRegistry for static tables.
func MustNewLocationRegistry(locations []Location) *LocationRegistry {
	r, err := NewLocationRegistry(locations)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns a registry over DefaultLocations.
func DefaultRegistry() *LocationRegistry {
	return MustNewLocationRegistry(DefaultLocations())
}

// Lookup resolves a place name. Resolution order: exact canonical name,
// then normalised name or alias, first as given and then with locative
// prefixes such as "port of" or "off the coast of" removed, then the
// longest name or alias found as whole words inside the query, then a
// region tag. Ties go to the entry listed first.
func (r *LocationRegistry) Lookup(query string) (Location, error) {
	if idx, ok := r.exact[query]; ok {
		return r.locations[idx], nil
	}
	norm := normalize(query)
	if idx, ok := r.keys[norm]; ok {
		return r.locations[idx], nil
	}
	norm = stripLocatives(norm)
	if norm == "" {
		return Location{}, &LocationNotFoundError{Query: query}
	}
	if idx, ok := r.keys[norm]; ok {
		return r.locations[idx], nil
	}

	padded := " " + norm + " "
	best, bestLen := -1, 0
	for key, idx := range r.keys {
		if len(key) < bestLen || !strings.Contains(padded, " "+key+" ") {
			continue
		}
		if len(key) > bestLen || idx < best {
			best, bestLen = idx, len(key)
		}
	}
	if best >= 0 {
		return r.locations[best], nil
	}

	best, bestLen = -1, 0
	for region, idx := range r.byRegion {
		if len(region) < bestLen || !strings.Contains(padded, " "+region+" ") {
			continue
		}
		if len(region) > bestLen || idx < best {
			best, bestLen = idx, len(region)
		}
	}
	if best >= 0 {
		return r.locations[best], nil
	}
	return Location{}, &LocationNotFoundError{Query: query}
}

// List returns a snapshot of all entries in table order.
func (r *LocationRegistry) List() []Location {
	res := make([]Location, len(r.locations))
	copy(res, r.locations)
	return res
}

// Regions returns the distinct region tags, sorted.
func (r *LocationRegistry) Regions() []string {
	res := append([]string(nil), r.regions...)
	sort.Strings(res)
	return res
}

// Len is the number of entries.
func (r *LocationRegistry) Len() int { return len(r.locations) }

type locationFile struct {
	Locations []locationEntry `yaml:"locations"`
}

type locationEntry struct {
	Name    string       `yaml:"name"`
	Aliases []string     `yaml:"aliases"`
	Lat     *float64     `yaml:"lat"`
	Lon     *float64     `yaml:"lon"`
	Region  string       `yaml:"region"`
	Country string       `yaml:"country"`
	Kind    LocationKind `yaml:"kind"`
}

// LoadLocations parses extra registry entries from YAML of the form
//
//	locations:
//	  - name: Galway
//	    aliases: [galway bay]
//	    lat: 53.2707
//	    lon: -9.0568
//	    region: Atlantic
//	    country: Ireland
//	    kind: port
func LoadLocations(rd io.Reader) ([]Location, error) {
	var file locationFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	out := make([]Location, 0, len(file.Locations))
	for i, e := range file.Locations {
		if e.Lat == nil || e.Lon == nil {
			return nil, fmt.Errorf("decode locations: entry %d (%q) needs lat and lon", i, e.Name)
		}
		out = append(out, Location{
			Name:        e.Name,
			Aliases:     e.Aliases,
			Coordinates: model.Coordinates{Latitude: *e.Lat, Longitude: *e.Lon},
			Region:      e.Region,
			Country:     e.Country,
			Kind:        e.Kind,
		})
	}
	return out, nil
}

var locativePrefixes = []string{
	"off the coast of ",
	"the coast of ",
	"coast of ",
	"the port of ",
	"port of ",
	"waters off ",
	"waters of ",
	"off ",
	"near ",
	"around ",
	"outside ",
	"in the ",
	"in ",
	"at ",
	"from ",
	"to ",
	"the ",
}

func stripLocatives(s string) string {
	for {
		trimmed := s
		for _, p := range locativePrefixes {
			if strings.HasPrefix(trimmed, p) {
				trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, p))
				break
			}
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", " ", "-", " ", ",", " ", ".", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
