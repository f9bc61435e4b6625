package access

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "test.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func patientHeader() []string {
	return []string{"FSA", "SiteID", "Driving Distance (km)", "median_household_income_2020", "gini_index", "indigenous_ancestry_rate"}
}

func TestReadPatients(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			patientHeader(),
			{"M5V", "16.0", "6.5", "85000", "0.42", "1.3"},
			{"X0A", "21", "1840.2", "", "", "62.5"},
		},
	})

	records, err := ReadPatients(path, "")
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "M5V", records[0].FSA)
	assert.Equal(t, 16, records[0].SiteID)
	assert.InDelta(t, 6.5, records[0].DistanceKM, 1e-9)
	require.NotNil(t, records[0].Income)
	assert.InDelta(t, 85000.0, *records[0].Income, 1e-9)
	require.NotNil(t, records[0].Gini)
	assert.InDelta(t, 0.42, *records[0].Gini, 1e-9)

	// Blank socioeconomic cells stay absent, not zero.
	assert.Equal(t, "X0A", records[1].FSA)
	assert.Nil(t, records[1].Income)
	assert.Nil(t, records[1].Gini)
	require.NotNil(t, records[1].AncestryRate)
	assert.InDelta(t, 62.5, *records[1].AncestryRate, 1e-9)
}

func TestReadPatients_AlternateHeaders(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"fsa", "siteid", "distance_km", "Median Household Income (2020)", "gini", "Indigenous Ancestry"},
			{"h3z", "20", "12.1", "61000", "0.35", "0.8"},
		},
	})

	records, err := ReadPatients(path, "")
	require.NoError(t, err)
	require.Len(t, records, 1)

	// FSA is uppercased on the way in.
	assert.Equal(t, "H3Z", records[0].FSA)
	assert.Equal(t, 20, records[0].SiteID)
	assert.InDelta(t, 12.1, records[0].DistanceKM, 1e-9)
	require.NotNil(t, records[0].Income)
	assert.InDelta(t, 61000.0, *records[0].Income, 1e-9)
}

func TestReadPatients_SkipsRowsWithoutFSA(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			patientHeader(),
			{"M5V", "16", "6.5", "85000", "0.42", "1.3"},
			{"", "16", "10.0", "70000", "0.40", "2.0"},
		},
	})

	records, err := ReadPatients(path, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "M5V", records[0].FSA)
}

func TestReadPatients_SheetName(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Summary": {{"notes"}},
		"Patients": {
			patientHeader(),
			{"K1A", "13", "8.0", "", "", ""},
		},
	})

	records, err := ReadPatients(path, "Patients")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "K1A", records[0].FSA)
	assert.Equal(t, 13, records[0].SiteID)
}

func TestReadPatients_NoFSAColumn(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"postal", "distance_km"},
			{"M5V", "6.5"},
		},
	})

	_, err := ReadPatients(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no FSA column")
}

func TestReadPatients_UnparseableFieldsLeftAbsent(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			patientHeader(),
			{"M5V", "n/a", "not-a-number", "unknown", "-", ""},
		},
	})

	records, err := ReadPatients(path, "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0, records[0].SiteID)
	assert.Zero(t, records[0].DistanceKM)
	assert.Nil(t, records[0].Income)
	assert.Nil(t, records[0].Gini)
	assert.Nil(t, records[0].AncestryRate)
}
