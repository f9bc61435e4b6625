package access

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceBands(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "Excellent"},
		{49.9, "Excellent"},
		{50.0, "Good"}, // boundary belongs to the band starting at the bound
		{99.9, "Good"},
		{100.0, "Moderate"},
		{199.9, "Moderate"},
		{200.0, "Poor"},
		{399.9, "Poor"},
		{400.0, "Critical"},
		{2500.0, "Critical"},
	}

	c := NewCategorizer()
	for _, tt := range tests {
		band, err := c.Band(MetricDistance, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, band, "distance %.1f", tt.value)
	}
}

func TestVulnerabilityBands(t *testing.T) {
	tests := []struct {
		value    float64
		expected string
	}{
		{0, "Low"},
		{14.9, "Low"},
		{15.0, "Moderate"},
		{30.0, "Medium"},
		{50.0, "High"},
		{70.0, "Extreme"},
		{100.0, "Extreme"},
	}

	c := NewCategorizer()
	for _, tt := range tests {
		band, err := c.Band(MetricVulnerability, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, band, "score %.1f", tt.value)
	}
}

func TestAncestryBands(t *testing.T) {
	c := NewCategorizer()

	band, err := c.Band(MetricAncestry, 5.0)
	require.NoError(t, err)
	assert.Equal(t, "Low", band)

	band, err = c.Band(MetricAncestry, 72.5)
	require.NoError(t, err)
	assert.Equal(t, "Majority", band)
}

func TestBandUnknownMetric(t *testing.T) {
	c := NewCategorizer()
	_, err := c.Band("nope", 1.0)
	assert.Error(t, err)
}

func TestWithTableOverride(t *testing.T) {
	// Cutoffs are data: swapping a table changes behavior with no call
	// site involvement.
	c := NewCategorizer().WithTable(MetricDistance, ThresholdTable{
		{UpperBound: 200, Label: "Poor"},
		{UpperBound: math.Inf(1), Label: "Critical"},
	})

	band, err := c.Band(MetricDistance, 199.9)
	require.NoError(t, err)
	assert.Equal(t, "Poor", band)

	band, err = c.Band(MetricDistance, 200.0)
	require.NoError(t, err)
	assert.Equal(t, "Critical", band)
}

func TestAnnotate(t *testing.T) {
	summaries := []AreaSummary{
		{FSA: "A1A", MeanDistanceKM: 50.0, VulnerabilityScore: 12, MeanAncestryRate: fptr(31.0)},
		{FSA: "B2B", MeanDistanceKM: 620, VulnerabilityScore: 88},
	}

	annotated, err := NewCategorizer().Annotate(summaries)
	require.NoError(t, err)

	assert.Equal(t, "Good", annotated[0].DistanceBand)
	assert.Equal(t, "Low", annotated[0].VulnerabilityBand)
	assert.Equal(t, "High", annotated[0].AncestryBand)

	assert.Equal(t, "Critical", annotated[1].DistanceBand)
	assert.Equal(t, "Extreme", annotated[1].VulnerabilityBand)
	// No ancestry data, no ancestry band.
	assert.Equal(t, "", annotated[1].AncestryBand)
}

func TestLoadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
distance_km:
  - upper_bound: 50
    label: Good
  - upper_bound: 100
    label: Moderate
  - label: Critical
    upper_bound: .inf
`), 0o644))

	c, err := LoadThresholds(path)
	require.NoError(t, err)

	band, err := c.Band(MetricDistance, 50.0)
	require.NoError(t, err)
	assert.Equal(t, "Moderate", band)

	band, err = c.Band(MetricDistance, 5000.0)
	require.NoError(t, err)
	assert.Equal(t, "Critical", band)

	// Metrics the file is silent on keep the canonical tables.
	band, err = c.Band(MetricVulnerability, 80.0)
	require.NoError(t, err)
	assert.Equal(t, "Extreme", band)
}

func TestThresholdTableLabels(t *testing.T) {
	assert.Equal(t,
		[]string{"Excellent", "Good", "Moderate", "Poor", "Critical"},
		DistanceThresholds.Labels(),
	)
}
