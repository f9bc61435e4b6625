package access

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppa-research/access-cli/internal/fetcher"
)

// patientColumns maps patient-database header spellings to canonical
// fields. The export has carried several spellings over the years.
var patientColumns = map[string]string{
	"fsa":                            "fsa",
	"siteid":                         "site_id",
	"driving distance (km)":          "distance",
	"distance_km":                    "distance",
	"median_household_income_2020":   "income",
	"median household income (2020)": "income",
	"gini_index":                     "gini",
	"gini":                           "gini",
	"indigenous_ancestry_rate":       "ancestry",
	"indigenous ancestry":            "ancestry",
}

// ReadPatients loads the patient database export and maps each row to a
// PatientRecord. Rows without an FSA are skipped and counted; every other
// field is optional and left absent when blank or unparseable.
func ReadPatients(path, sheetName string) ([]PatientRecord, error) {
	headerCh := make(chan []string, 1)
	rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{
		SheetName: sheetName,
		SkipRows:  1,
		HeaderCh:  headerCh,
	})
	if err != nil {
		return nil, err
	}

	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("access: patient file %s is empty", path)
	}

	idx := make(map[string]int)
	for i, col := range header {
		if canonical, ok := patientColumns[strings.ToLower(strings.TrimSpace(col))]; ok {
			idx[canonical] = i
		}
	}
	if _, ok := idx["fsa"]; !ok {
		return nil, eris.Errorf("access: patient file %s has no FSA column (header %v)", path, header)
	}

	records := make([]PatientRecord, 0, len(rows))
	var skipped int
	for _, row := range rows {
		fsa := strings.ToUpper(cell(row, idx, "fsa"))
		if fsa == "" {
			skipped++
			continue
		}

		rec := PatientRecord{FSA: fsa}

		// SiteIDs arrive as floats ("16.0") from the spreadsheet.
		if v, ok := parseFloat(cell(row, idx, "site_id")); ok {
			rec.SiteID = int(v)
		}
		if v, ok := parseFloat(cell(row, idx, "distance")); ok {
			rec.DistanceKM = v
		}
		rec.Income = parseOptional(cell(row, idx, "income"))
		rec.Gini = parseOptional(cell(row, idx, "gini"))
		rec.AncestryRate = parseOptional(cell(row, idx, "ancestry"))

		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Warn("access: skipped patient rows without an FSA",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return records, nil
}

func cell(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseOptional(s string) *float64 {
	v, ok := parseFloat(s)
	if !ok {
		return nil
	}
	return &v
}
