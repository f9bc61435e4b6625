package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppa-research/access-cli/internal/access"
	"github.com/ppa-research/access-cli/internal/geo"
)

func TestRunResultCounters(t *testing.T) {
	result := &access.Result{
		Summaries: []access.AreaSummary{
			{FSA: "A1A", VulnerabilityImputed: true},
			{FSA: "B2B"},
		},
		InputRecords:      10,
		AggregatedRecords: 9,
		DroppedRecords:    1,
		DroppedByFSA:      map[string]int{"Z9Z": 1},
		CenterPatients:    map[string]int{"toronto-western": 6, "saskatoon-ruh": 3},
	}

	rr := runResult(result)
	assert.Equal(t, access.SchemaVersion, rr.SchemaVersion)
	assert.Equal(t, 10, rr.InputRecords)
	assert.Equal(t, 9, rr.AggregatedRecords)
	assert.Equal(t, 1, rr.DroppedRecords)
	assert.Equal(t, 2, rr.Areas)
	assert.Equal(t, 1, rr.ImputedAreas)
	assert.Equal(t, map[string]int{"toronto-western": 6, "saskatoon-ruh": 3}, rr.CenterPatients)
	assert.Equal(t, map[string]int{"Z9Z": 1}, rr.DroppedByFSA)
}

func TestFormatCenters(t *testing.T) {
	registry, err := geo.NewRegistry(geo.DefaultCenters())
	require.NoError(t, err)

	var buf bytes.Buffer
	formatCenters(&buf, registry.Centers())
	out := buf.String()

	assert.Contains(t, out, "toronto-western")
	assert.Contains(t, out, "Toronto Western Hospital")
	assert.Contains(t, out, "16")
}

func TestFormatCatchment(t *testing.T) {
	registry, err := geo.NewRegistry(geo.DefaultCenters())
	require.NoError(t, err)

	var buf bytes.Buffer
	formatCatchment(&buf, registry, map[string]int{
		"toronto-western": 42,
		"saskatoon-ruh":   7,
		"retired-site":    1,
	})
	out := buf.String()

	assert.Contains(t, out, "Toronto Western Hospital")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "Royal University Hospital")
	assert.Contains(t, out, "7")
	// A center missing from the registry still rows out by ID.
	assert.Contains(t, out, "retired-site")

	// Sorted by center ID.
	assert.Less(t, strings.Index(out, "retired-site"), strings.Index(out, "saskatoon-ruh"))
	assert.Less(t, strings.Index(out, "saskatoon-ruh"), strings.Index(out, "toronto-western"))
}

func TestFormatCatchment_Empty(t *testing.T) {
	registry, err := geo.NewRegistry(geo.DefaultCenters())
	require.NoError(t, err)

	var buf bytes.Buffer
	formatCatchment(&buf, registry, nil)
	assert.Empty(t, buf.String())
}
