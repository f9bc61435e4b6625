package access

import (
	"github.com/ppa-research/access-cli/internal/geo"
)

// Run executes the full aggregation pipeline: group records by FSA, score
// composite vulnerability over the whole collection, and annotate bands.
// The pass is deterministic; the same records and registry always produce
// the same Result.
func Run(records []PatientRecord, resolver *geo.Resolver, registry *geo.Registry, categorizer *Categorizer) (*Result, error) {
	agg, err := NewAggregator(resolver, registry)
	if err != nil {
		return nil, err
	}

	result, err := agg.Aggregate(records)
	if err != nil {
		return nil, err
	}

	result.Summaries = ScoreVulnerability(result.Summaries)

	if categorizer == nil {
		categorizer = NewCategorizer()
	}
	result.Summaries, err = categorizer.Annotate(result.Summaries)
	if err != nil {
		return nil, err
	}

	return result, nil
}
