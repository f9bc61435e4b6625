package geo

import (
	"github.com/rotisserie/eris"
)

// ErrEmptyRegistry signals a configuration error: aggregation cannot run
// against zero centers and must abort before producing any output.
var ErrEmptyRegistry = eris.New("geo: center registry is empty")

// nearestToleranceKM is the distance window inside which two centers are
// considered equidistant and the tie is broken by center ID.
const nearestToleranceKM = 1e-6

// Center is a fixed-location DBS treatment center.
type Center struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	SiteID   int     `yaml:"site_id"`
	Province string  `yaml:"province"`
	Lat      float64 `yaml:"lat"`
	Lon      float64 `yaml:"lon"`
}

// Registry is the static set of centers for a run. It is built once and
// never mutated afterwards.
type Registry struct {
	centers  []Center
	bySiteID map[int]Center
	byID     map[string]Center
}

// NewRegistry validates and indexes a center list.
func NewRegistry(centers []Center) (*Registry, error) {
	if len(centers) == 0 {
		return nil, ErrEmptyRegistry
	}

	r := &Registry{
		centers:  make([]Center, len(centers)),
		bySiteID: make(map[int]Center, len(centers)),
		byID:     make(map[string]Center, len(centers)),
	}
	copy(r.centers, centers)

	for _, c := range centers {
		if c.ID == "" {
			return nil, eris.Errorf("geo: center %q has no id", c.Name)
		}
		if _, ok := r.byID[c.ID]; ok {
			return nil, eris.Errorf("geo: duplicate center id %q", c.ID)
		}
		r.byID[c.ID] = c
		if c.SiteID != 0 {
			r.bySiteID[c.SiteID] = c
		}
	}

	return r, nil
}

// Centers returns a copy of the registry contents.
func (r *Registry) Centers() []Center {
	out := make([]Center, len(r.centers))
	copy(out, r.centers)
	return out
}

// Len reports the number of registered centers.
func (r *Registry) Len() int {
	return len(r.centers)
}

// ByID looks up a center by its stable identifier.
func (r *Registry) ByID(id string) (Center, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// BySiteID looks up a center by the numeric site code carried in the
// patient database.
func (r *Registry) BySiteID(siteID int) (Center, bool) {
	c, ok := r.bySiteID[siteID]
	return c, ok
}

// Nearest returns the center closest to a coordinate and the distance to
// it in kilometers. A linear scan is sufficient at registry scale (~10
// centers); equidistant centers within nearestToleranceKM resolve to the
// lexicographically smaller ID so repeated runs assign identically.
func (r *Registry) Nearest(coord Coordinate) (Center, float64) {
	best := r.centers[0]
	bestKM := DistanceKM(coord.Lat, coord.Lon, best.Lat, best.Lon)

	for _, c := range r.centers[1:] {
		d := DistanceKM(coord.Lat, coord.Lon, c.Lat, c.Lon)
		switch {
		case d < bestKM-nearestToleranceKM:
			best, bestKM = c, d
		case d <= bestKM+nearestToleranceKM && c.ID < best.ID:
			best, bestKM = c, d
		}
	}

	return best, bestKM
}

// DefaultCenters is the production registry of the ten Canadian DBS
// centers with their patient-database site codes.
func DefaultCenters() []Center {
	return []Center{
		{ID: "halifax-qeii", Name: "QEII Health Sciences Centre, Halifax", SiteID: 12, Province: "NS", Lat: 44.6382, Lon: -63.5793},
		{ID: "ottawa-toh", Name: "Ottawa Hospital", SiteID: 13, Province: "ON", Lat: 45.4112, Lon: -75.6981},
		{ID: "london-lhsc", Name: "London Health Sciences Centre", SiteID: 14, Province: "ON", Lat: 43.0096, Lon: -81.2737},
		{ID: "toronto-western", Name: "Toronto Western Hospital", SiteID: 16, Province: "ON", Lat: 43.6532, Lon: -79.3832},
		{ID: "edmonton-uah", Name: "University of Alberta Hospital", SiteID: 17, Province: "AB", Lat: 53.5232, Lon: -113.5263},
		{ID: "calgary-foothills", Name: "Calgary Foothills Medical Centre", SiteID: 18, Province: "AB", Lat: 51.0643, Lon: -114.1325},
		{ID: "sherbrooke-chus", Name: "Centre Hospitalier Universitaire de Sherbrooke", SiteID: 19, Province: "QC", Lat: 45.3781, Lon: -71.9242},
		{ID: "montreal-chum", Name: "Centre Hospitalier de l'Université de Montréal", SiteID: 20, Province: "QC", Lat: 45.5089, Lon: -73.5617},
		{ID: "quebec-chu", Name: "CHU de Québec", SiteID: 21, Province: "QC", Lat: 46.7787, Lon: -71.2854},
		{ID: "saskatoon-ruh", Name: "Royal University Hospital, Saskatoon", SiteID: 22, Province: "SK", Lat: 52.1324, Lon: -106.6344},
	}
}
