// Package access implements the geographic access aggregation engine: it
// turns record-level patient data into one summary row per FSA, scores
// each area's composite vulnerability, and classifies the results into the
// ordinal bands every map and dashboard consumes.
package access

import (
	"github.com/ppa-research/access-cli/internal/geo"
)

// PatientRecord is one row of the record-level input. FSA is the only
// required field; everything else may be absent.
type PatientRecord struct {
	FSA string

	// SiteID is the authoritative treatment-center assignment from the
	// patient database (0 = absent). When present it is trusted over
	// nearest-by-distance.
	SiteID int

	// DistanceKM is the recorded driving distance to the assigned center.
	// Zero or negative means unknown; the aggregator recomputes it.
	DistanceKM float64

	// Coord is a record-level coordinate when the source supplies one;
	// nil means the FSA centroid is used.
	Coord *geo.Coordinate

	// Socioeconomic attributes. Pointers so that zero stays
	// distinguishable from absent.
	Income       *float64 // median household income, CAD
	Gini         *float64 // inequality index in [0,1]
	AncestryRate *float64 // Indigenous ancestry rate in [0,100]
}

// AreaSummary is the aggregate for one FSA. It is created by Aggregate,
// annotated by the vulnerability scorer and categorizer, and read-only
// afterwards.
type AreaSummary struct {
	FSA   string
	Coord geo.Coordinate

	PatientCount     int
	MeanDistanceKM   float64
	MedianDistanceKM float64
	MaxDistanceKM    float64

	// NearestCenterID/Name hold the mode of per-record center
	// assignments for the area.
	NearestCenterID   string
	NearestCenterName string

	MeanIncome       *float64
	MeanGini         *float64
	MeanAncestryRate *float64

	// VulnerabilityScore is the 0-100 weighted composite; Imputed marks
	// summaries where a missing component was filled with the dataset
	// median before normalization.
	VulnerabilityScore   float64
	VulnerabilityImputed bool

	// Barriers counts how many access barriers apply (0-4): distance
	// over 200 km, income under $60k, Gini over 0.35, ancestry over 10%.
	Barriers int

	DistanceBand      string
	VulnerabilityBand string
	AncestryBand      string

	// DroppedRecords counts this FSA's records excluded because no
	// coordinate could be resolved for them.
	DroppedRecords int
}

// Result is the output of a full aggregation run. Summaries are sorted by
// FSA so repeated runs over the same input are byte-identical downstream.
type Result struct {
	Summaries []AreaSummary

	// Conservation counters: InputRecords == AggregatedRecords + DroppedRecords.
	InputRecords      int
	AggregatedRecords int
	DroppedRecords    int

	// DroppedByFSA surfaces per-area drop counts, including FSAs that
	// produced no summary because every record was dropped.
	DroppedByFSA map[string]int

	// CenterPatients maps center ID to total assigned patients.
	CenterPatients map[string]int
}

// Summary returns the AreaSummary for an FSA, if present.
func (r *Result) Summary(fsa string) (*AreaSummary, bool) {
	for i := range r.Summaries {
		if r.Summaries[i].FSA == fsa {
			return &r.Summaries[i], true
		}
	}
	return nil, false
}
