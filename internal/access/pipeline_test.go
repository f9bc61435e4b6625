package access

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineRecords() []PatientRecord {
	return []PatientRecord{
		{FSA: "A1A", SiteID: 16, DistanceKM: 45, Income: fptr(80000), Gini: fptr(0.28), AncestryRate: fptr(2.0)},
		{FSA: "A1A", SiteID: 16, DistanceKM: 55, Income: fptr(64000), Gini: fptr(0.34), AncestryRate: fptr(6.0)},
		{FSA: "B2B", SiteID: 22, DistanceKM: 620, Income: fptr(52000), Gini: fptr(0.41), AncestryRate: fptr(28.0)},
		{FSA: "M5V", SiteID: 16, DistanceKM: 2, Income: fptr(95000)},
		{FSA: "Z9Z", SiteID: 16, DistanceKM: 100}, // unresolvable, dropped
	}
}

func TestRunEndToEnd(t *testing.T) {
	result, err := Run(pipelineRecords(), testResolver(), testRegistry(t), nil)
	require.NoError(t, err)

	require.Len(t, result.Summaries, 3)
	assert.Equal(t, 5, result.InputRecords)
	assert.Equal(t, 4, result.AggregatedRecords)
	assert.Equal(t, 1, result.DroppedRecords)

	for _, s := range result.Summaries {
		assert.NotEmpty(t, s.DistanceBand, s.FSA)
		assert.NotEmpty(t, s.VulnerabilityBand, s.FSA)
		assert.GreaterOrEqual(t, s.VulnerabilityScore, 0.0)
		assert.LessOrEqual(t, s.VulnerabilityScore, 100.0)
	}

	a1a, ok := result.Summary("A1A")
	require.True(t, ok)
	assert.Equal(t, "Good", a1a.DistanceBand)
	assert.Equal(t, "Minimal", a1a.AncestryBand)
	assert.False(t, a1a.VulnerabilityImputed)

	b2b, ok := result.Summary("B2B")
	require.True(t, ok)
	assert.Equal(t, "Critical", b2b.DistanceBand)
	// Remote, poor, unequal: every cut lands against it.
	assert.Equal(t, "Extreme", b2b.VulnerabilityBand)
	assert.Equal(t, 4, b2b.Barriers)

	// The area missing Gini data gets its component imputed and flagged;
	// with no ancestry data it also gets no ancestry band.
	m5v, ok := result.Summary("M5V")
	require.True(t, ok)
	assert.Equal(t, "", m5v.AncestryBand)
	assert.True(t, m5v.VulnerabilityImputed)
}

func TestRunDeterministic(t *testing.T) {
	first, err := Run(pipelineRecords(), testResolver(), testRegistry(t), nil)
	require.NoError(t, err)
	second, err := Run(pipelineRecords(), testResolver(), testRegistry(t), nil)
	require.NoError(t, err)

	var a, b bytes.Buffer
	require.NoError(t, Export(first).WriteCSV(&a))
	require.NoError(t, Export(second).WriteCSV(&b))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestRunNilCategorizer(t *testing.T) {
	result, err := Run(pipelineRecords()[:1], testResolver(), testRegistry(t), nil)
	require.NoError(t, err)
	require.Len(t, result.Summaries, 1)
	assert.Equal(t, "Excellent", result.Summaries[0].DistanceBand)
}
