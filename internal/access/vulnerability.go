package access

import (
	"sort"

	"go.uber.org/zap"
)

// Vulnerability weights. Distance dominates; income is inverted so lower
// income raises the score.
const (
	weightDistance = 0.50
	weightIncome   = 0.30
	weightGini     = 0.20

	// neutralComponent is the contribution of a degenerate component
	// (min == max across the dataset) on the 0-100 scale.
	neutralComponent = 50.0
)

// VulnerabilityWeights reports the fixed component weights, for run
// metadata and reports.
func VulnerabilityWeights() (distance, income, gini float64) {
	return weightDistance, weightIncome, weightGini
}

// ScoreVulnerability annotates every summary with its composite
// vulnerability score. Normalization bounds and imputation medians are
// computed once over the whole collection: scoring any subset against its
// own bounds would silently change the scale and make scores incomparable
// across areas.
func ScoreVulnerability(summaries []AreaSummary) []AreaSummary {
	if len(summaries) == 0 {
		return summaries
	}

	dist := component{}
	income := component{}
	gini := component{}

	for i := range summaries {
		dist.add(&summaries[i].MeanDistanceKM)
		income.add(summaries[i].MeanIncome)
		gini.add(summaries[i].MeanGini)
	}
	dist.finish()
	income.finish()
	gini.finish()

	var imputed int
	for i := range summaries {
		s := &summaries[i]

		d := dist.normalize(&s.MeanDistanceKM, false, &s.VulnerabilityImputed)
		inc := income.normalize(s.MeanIncome, true, &s.VulnerabilityImputed)
		g := gini.normalize(s.MeanGini, false, &s.VulnerabilityImputed)

		s.VulnerabilityScore = weightDistance*d + weightIncome*inc + weightGini*g
		if s.VulnerabilityImputed {
			imputed++
		}
	}

	if imputed > 0 {
		zap.L().Info("access: vulnerability scores used median imputation",
			zap.Int("areas", imputed),
			zap.Int("total", len(summaries)),
		)
	}

	return summaries
}

// component accumulates dataset-wide bounds and the imputation median for
// one vulnerability input.
type component struct {
	values []float64
	min    float64
	max    float64
	med    float64
}

func (c *component) add(v *float64) {
	if v != nil {
		c.values = append(c.values, *v)
	}
}

func (c *component) finish() {
	if len(c.values) == 0 {
		return
	}
	sorted := make([]float64, len(c.values))
	copy(sorted, c.values)
	sort.Float64s(sorted)

	c.min = sorted[0]
	c.max = sorted[len(sorted)-1]
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		c.med = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		c.med = sorted[mid]
	}
}

// normalize maps a value onto 0-100 within the dataset bounds. invert
// flips the scale (used for income: lower income → higher vulnerability).
// A nil value is imputed with the dataset median and flagged. A degenerate
// component contributes the neutral midpoint.
func (c *component) normalize(v *float64, invert bool, imputedFlag *bool) float64 {
	// No area carries this component at all: nothing to scale against.
	if len(c.values) == 0 {
		if imputedFlag != nil {
			*imputedFlag = true
		}
		return neutralComponent
	}

	val := c.med
	if v != nil {
		val = *v
	} else if imputedFlag != nil {
		*imputedFlag = true
	}

	if c.max == c.min {
		return neutralComponent
	}

	n := (val - c.min) / (c.max - c.min) * 100
	if invert {
		n = 100 - n
	}
	return n
}
