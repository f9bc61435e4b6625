package access

import (
	"math"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Metric names with a canonical threshold table.
const (
	MetricDistance      = "distance_km"
	MetricVulnerability = "vulnerability"
	MetricAncestry      = "ancestry_rate"
)

// Threshold is one (upper bound, label) pair of a table. The interval is
// half-open: [previous bound, UpperBound). A value equal to the bound
// belongs to the NEXT band.
type Threshold struct {
	UpperBound float64 `yaml:"upper_bound"`
	Label      string  `yaml:"label"`
}

// ThresholdTable is an ordered list of thresholds; the final entry should
// carry +Inf so the table covers every value.
type ThresholdTable []Threshold

// Band returns the label for a value. Values past every finite bound fall
// into the final, open-ended band.
func (t ThresholdTable) Band(value float64) string {
	for _, th := range t {
		if value < th.UpperBound {
			return th.Label
		}
	}
	return t[len(t)-1].Label
}

// Labels returns the ordered band labels of the table.
func (t ThresholdTable) Labels() []string {
	labels := make([]string, len(t))
	for i, th := range t {
		labels[i] = th.Label
	}
	return labels
}

// Canonical tables. The source visualizations each carried their own
// inconsistent copies of these cutoffs; they are defined exactly once here
// and every consumer, map or dashboard, reads the same values.
var (
	// DistanceThresholds bands mean distance to the assigned center, km.
	DistanceThresholds = ThresholdTable{
		{UpperBound: 50, Label: "Excellent"},
		{UpperBound: 100, Label: "Good"},
		{UpperBound: 200, Label: "Moderate"},
		{UpperBound: 400, Label: "Poor"},
		{UpperBound: math.Inf(1), Label: "Critical"},
	}

	// VulnerabilityThresholds bands the 0-100 composite score.
	VulnerabilityThresholds = ThresholdTable{
		{UpperBound: 15, Label: "Low"},
		{UpperBound: 30, Label: "Moderate"},
		{UpperBound: 50, Label: "Medium"},
		{UpperBound: 70, Label: "High"},
		{UpperBound: math.Inf(1), Label: "Extreme"},
	}

	// AncestryThresholds bands the Indigenous ancestry rate, percent.
	AncestryThresholds = ThresholdTable{
		{UpperBound: 5, Label: "Minimal"},
		{UpperBound: 15, Label: "Low"},
		{UpperBound: 30, Label: "Moderate"},
		{UpperBound: 50, Label: "High"},
		{UpperBound: math.Inf(1), Label: "Majority"},
	}
)

// Categorizer maps metric names to threshold tables.
type Categorizer struct {
	tables map[string]ThresholdTable
}

// NewCategorizer returns a categorizer over the canonical tables.
func NewCategorizer() *Categorizer {
	return &Categorizer{tables: map[string]ThresholdTable{
		MetricDistance:      DistanceThresholds,
		MetricVulnerability: VulnerabilityThresholds,
		MetricAncestry:      AncestryThresholds,
	}}
}

// WithTable replaces the table for one metric; cutoff changes are data
// edits, never call-site edits.
func (c *Categorizer) WithTable(metric string, table ThresholdTable) *Categorizer {
	c.tables[metric] = table
	return c
}

// LoadThresholds reads threshold table overrides from a YAML file keyed by
// metric name and returns a categorizer with them applied over the
// canonical tables. Tables missing a +Inf tail get one appended reusing
// the last label.
func LoadThresholds(path string) (*Categorizer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "access: read thresholds %s", path)
	}

	var tables map[string]ThresholdTable
	if err := yaml.Unmarshal(raw, &tables); err != nil {
		return nil, eris.Wrapf(err, "access: parse thresholds %s", path)
	}

	c := NewCategorizer()
	for metric, table := range tables {
		if len(table) == 0 {
			return nil, eris.Errorf("access: empty threshold table for metric %q", metric)
		}
		if last := table[len(table)-1]; !math.IsInf(last.UpperBound, 1) {
			table = append(table, Threshold{UpperBound: math.Inf(1), Label: last.Label})
		}
		c.WithTable(metric, table)
	}
	return c, nil
}

// Band classifies a value under the named metric's table.
func (c *Categorizer) Band(metric string, value float64) (string, error) {
	table, ok := c.tables[metric]
	if !ok {
		return "", eris.Errorf("access: no threshold table for metric %q", metric)
	}
	if len(table) == 0 {
		return "", eris.Errorf("access: empty threshold table for metric %q", metric)
	}
	return table.Band(value), nil
}

// Annotate fills the band fields on every summary. Ancestry gets a band
// only when the area has ancestry data at all.
func (c *Categorizer) Annotate(summaries []AreaSummary) ([]AreaSummary, error) {
	for i := range summaries {
		s := &summaries[i]

		band, err := c.Band(MetricDistance, s.MeanDistanceKM)
		if err != nil {
			return nil, err
		}
		s.DistanceBand = band

		band, err = c.Band(MetricVulnerability, s.VulnerabilityScore)
		if err != nil {
			return nil, err
		}
		s.VulnerabilityBand = band

		if s.MeanAncestryRate != nil {
			band, err = c.Band(MetricAncestry, *s.MeanAncestryRate)
			if err != nil {
				return nil, err
			}
			s.AncestryBand = band
		}
	}
	return summaries, nil
}
