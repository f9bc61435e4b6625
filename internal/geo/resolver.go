package geo

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrNotFound is returned when an FSA is absent from both the coordinate
// lookup and the override table. Callers must exclude such records from
// aggregation rather than defaulting the coordinate.
var ErrNotFound = eris.New("geo: fsa coordinate not found")

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64
	Lon float64
}

// DefaultOverrides carries manual coordinates for FSAs whose source entries
// are missing or wrong. The Nunavut FSAs have no population-weighted
// centroid in the national coordinate file.
var DefaultOverrides = map[string]Coordinate{
	"X0A": {Lat: 66.3200, Lon: -73.2822}, // Nunavut catch-all
	"X0X": {Lat: 63.7467, Lon: -68.5170}, // Iqaluit
}

// Resolver maps an FSA code to a coordinate. Overrides are upserted into
// the lookup once, at construction, so resolution is a single map read.
type Resolver struct {
	lookup map[string]Coordinate
}

// NewResolver builds a Resolver from a base lookup table and an override
// table. Overrides win over base entries; an override for an FSA absent
// from the base table adds it. The input maps are copied, so the Resolver
// is immutable after construction.
func NewResolver(lookup map[string]Coordinate, overrides map[string]Coordinate) *Resolver {
	merged := make(map[string]Coordinate, len(lookup)+len(overrides))
	for fsa, c := range lookup {
		merged[fsa] = c
	}

	var added, replaced int
	for fsa, c := range overrides {
		if _, ok := merged[fsa]; ok {
			replaced++
		} else {
			added++
		}
		merged[fsa] = c
	}

	if added+replaced > 0 {
		zap.L().Debug("geo: applied coordinate overrides",
			zap.Int("added", added),
			zap.Int("replaced", replaced),
		)
	}

	return &Resolver{lookup: merged}
}

// Resolve returns the coordinate for an FSA code, or ErrNotFound when the
// code is in neither the lookup nor the override table.
func (r *Resolver) Resolve(fsa string) (Coordinate, error) {
	c, ok := r.lookup[fsa]
	if !ok {
		return Coordinate{}, eris.Wrapf(ErrNotFound, "fsa %q", fsa)
	}
	return c, nil
}

// Len reports the number of resolvable FSAs.
func (r *Resolver) Len() int {
	return len(r.lookup)
}
