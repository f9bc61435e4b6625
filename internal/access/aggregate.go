package access

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppa-research/access-cli/internal/geo"
)

// Aggregator groups patient records by FSA and produces one AreaSummary
// per area. It is a single synchronous pass over an in-memory slice; the
// group-by step is isolated in groupRecords so a streaming implementation
// could replace it without changing the contract.
type Aggregator struct {
	resolver *geo.Resolver
	registry *geo.Registry
}

// NewAggregator wires the aggregation pass. The registry must be non-empty;
// an empty registry aborts the run before any records are touched.
func NewAggregator(resolver *geo.Resolver, registry *geo.Registry) (*Aggregator, error) {
	if resolver == nil {
		return nil, eris.New("access: aggregator needs a coordinate resolver")
	}
	if registry == nil || registry.Len() == 0 {
		return nil, geo.ErrEmptyRegistry
	}
	return &Aggregator{resolver: resolver, registry: registry}, nil
}

// resolvedRecord is a usable record with its coordinate, per-record
// distance, and center assignment settled.
type resolvedRecord struct {
	rec        PatientRecord
	coord      geo.Coordinate
	distanceKM float64
	centerID   string
}

// Aggregate runs the full grouping pass. Records whose coordinate cannot
// be resolved (neither a record-level coordinate nor an FSA entry) are
// dropped and counted, never silently discarded and never defaulted.
func (a *Aggregator) Aggregate(records []PatientRecord) (*Result, error) {
	groups, dropped := a.groupRecords(records)

	result := &Result{
		InputRecords:   len(records),
		DroppedByFSA:   dropped,
		CenterPatients: make(map[string]int),
	}
	for _, n := range dropped {
		result.DroppedRecords += n
	}

	fsas := make([]string, 0, len(groups))
	for fsa := range groups {
		fsas = append(fsas, fsa)
	}
	sort.Strings(fsas)

	for _, fsa := range fsas {
		group := groups[fsa]
		summary := a.summarize(fsa, group)
		summary.DroppedRecords = dropped[fsa]
		result.Summaries = append(result.Summaries, summary)
		result.AggregatedRecords += summary.PatientCount

		for _, rr := range group {
			result.CenterPatients[rr.centerID]++
		}
	}

	if result.AggregatedRecords+result.DroppedRecords != result.InputRecords {
		// Conservation is an invariant of the pass itself, not input data.
		return nil, eris.Errorf("access: record conservation violated: %d aggregated + %d dropped != %d input",
			result.AggregatedRecords, result.DroppedRecords, result.InputRecords)
	}

	if result.DroppedRecords > 0 {
		zap.L().Warn("access: dropped records with unresolvable coordinates",
			zap.Int("dropped", result.DroppedRecords),
			zap.Int("input", result.InputRecords),
		)
	}

	return result, nil
}

// groupRecords resolves every record and groups the usable ones by FSA.
// The second return maps FSA to its drop count.
func (a *Aggregator) groupRecords(records []PatientRecord) (map[string][]resolvedRecord, map[string]int) {
	groups := make(map[string][]resolvedRecord)
	dropped := make(map[string]int)

	for _, rec := range records {
		coord, err := a.resolveCoord(rec)
		if err != nil {
			dropped[rec.FSA]++
			continue
		}

		rr := resolvedRecord{rec: rec, coord: coord}

		// Recorded driving distance wins when present; zero and blank
		// mean unknown and are recomputed from the coordinate.
		if rec.DistanceKM > 0 {
			rr.distanceKM = rec.DistanceKM
		} else {
			_, rr.distanceKM = a.registry.Nearest(coord)
		}

		// Authoritative assignment wins over proximity.
		if c, ok := a.registry.BySiteID(rec.SiteID); ok {
			rr.centerID = c.ID
		} else {
			c, _ := a.registry.Nearest(coord)
			rr.centerID = c.ID
		}

		groups[rec.FSA] = append(groups[rec.FSA], rr)
	}

	return groups, dropped
}

// resolveCoord returns the record's own coordinate when present, falling
// back to the FSA lookup.
func (a *Aggregator) resolveCoord(rec PatientRecord) (geo.Coordinate, error) {
	if rec.Coord != nil {
		return *rec.Coord, nil
	}
	return a.resolver.Resolve(rec.FSA)
}

// summarize collapses one FSA group into its AreaSummary.
func (a *Aggregator) summarize(fsa string, group []resolvedRecord) AreaSummary {
	summary := AreaSummary{
		FSA:          fsa,
		PatientCount: len(group),
	}

	// The area coordinate is the FSA centroid when resolvable, else the
	// first record-level coordinate (groups only exist for usable records).
	if c, err := a.resolver.Resolve(fsa); err == nil {
		summary.Coord = c
	} else {
		summary.Coord = group[0].coord
	}

	distances := make([]float64, 0, len(group))
	for _, rr := range group {
		distances = append(distances, rr.distanceKM)
	}
	summary.MeanDistanceKM = mean(distances)
	summary.MedianDistanceKM = median(distances)
	summary.MaxDistanceKM = max64(distances)

	summary.MeanIncome = meanPresent(group, func(r PatientRecord) *float64 { return r.Income })
	summary.MeanGini = meanPresent(group, func(r PatientRecord) *float64 { return r.Gini })
	summary.MeanAncestryRate = meanPresent(group, func(r PatientRecord) *float64 { return r.AncestryRate })

	summary.NearestCenterID = a.centerMode(group)
	if c, ok := a.registry.ByID(summary.NearestCenterID); ok {
		summary.NearestCenterName = c.Name
	}

	summary.Barriers = countBarriers(summary)

	return summary
}

// centerMode returns the most frequent center assignment in the group,
// ties broken by the lexicographically smaller center ID.
func (a *Aggregator) centerMode(group []resolvedRecord) string {
	counts := make(map[string]int)
	for _, rr := range group {
		counts[rr.centerID]++
	}

	var best string
	bestN := -1
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if counts[id] > bestN {
			best, bestN = id, counts[id]
		}
	}
	return best
}

// countBarriers counts the access barriers for an area: distance over
// 200 km, median income under $60k, Gini over 0.35, Indigenous ancestry
// over 10%. Missing fields never count as a barrier.
func countBarriers(s AreaSummary) int {
	barriers := 0
	if s.MeanDistanceKM > 200 {
		barriers++
	}
	if s.MeanIncome != nil && *s.MeanIncome < 60000 {
		barriers++
	}
	if s.MeanGini != nil && *s.MeanGini > 0.35 {
		barriers++
	}
	if s.MeanAncestryRate != nil && *s.MeanAncestryRate > 10 {
		barriers++
	}
	return barriers
}

// meanPresent averages a socioeconomic field over non-missing values,
// returning nil when every value in the group is missing so consumers can
// tell "no data" from zero.
func meanPresent(group []resolvedRecord, get func(PatientRecord) *float64) *float64 {
	var sum float64
	var n int
	for _, rr := range group {
		if v := get(rr.rec); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	m := sum / float64(n)
	return &m
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func max64(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
