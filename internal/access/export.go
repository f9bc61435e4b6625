package access

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// SchemaVersion identifies the exported column set. Renaming a column or
// changing a value's semantics is a breaking change for every map and
// dashboard consumer and requires a bump here.
const SchemaVersion = "1"

// Columns is the canonical column order of the aggregate table.
var Columns = []string{
	"fsa",
	"latitude",
	"longitude",
	"patient_count",
	"mean_distance_km",
	"median_distance_km",
	"max_distance_km",
	"nearest_center",
	"median_income",
	"gini_index",
	"ancestry_rate",
	"vulnerability_score",
	"vulnerability_imputed",
	"distance_band",
	"vulnerability_band",
	"ancestry_band",
	"barriers",
	"dropped_records",
}

// Table is the in-memory form of the canonical aggregate table. Rows
// follow the Summaries order (sorted by FSA), so identical input produces
// byte-identical encodings.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Export builds the canonical table from an aggregation result.
func Export(result *Result) *Table {
	t := &Table{
		Columns: Columns,
		Rows:    make([][]string, 0, len(result.Summaries)),
	}

	for _, s := range result.Summaries {
		t.Rows = append(t.Rows, []string{
			s.FSA,
			formatCoord(s.Coord.Lat),
			formatCoord(s.Coord.Lon),
			strconv.Itoa(s.PatientCount),
			formatKM(s.MeanDistanceKM),
			formatKM(s.MedianDistanceKM),
			formatKM(s.MaxDistanceKM),
			s.NearestCenterName,
			formatOptional(s.MeanIncome, 2),
			formatOptional(s.MeanGini, 4),
			formatOptional(s.MeanAncestryRate, 1),
			strconv.FormatFloat(s.VulnerabilityScore, 'f', 1, 64),
			strconv.FormatBool(s.VulnerabilityImputed),
			s.DistanceBand,
			s.VulnerabilityBand,
			s.AncestryBand,
			strconv.Itoa(s.Barriers),
			strconv.Itoa(s.DroppedRecords),
		})
	}

	return t
}

// WriteCSV encodes the table as CSV with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return eris.Wrap(err, "access: write csv header")
	}
	for _, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "access: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "access: flush csv")
}

// WriteGeoJSON encodes the result as a FeatureCollection of area points
// for map consumers. Properties mirror the canonical columns; absent
// socioeconomic fields are omitted rather than zeroed.
func WriteGeoJSON(w io.Writer, result *Result) error {
	fc := &geojson.FeatureCollection{}

	for _, s := range result.Summaries {
		props := map[string]interface{}{
			"fsa":                   s.FSA,
			"patient_count":         s.PatientCount,
			"mean_distance_km":      round1(s.MeanDistanceKM),
			"median_distance_km":    round1(s.MedianDistanceKM),
			"max_distance_km":       round1(s.MaxDistanceKM),
			"nearest_center":        s.NearestCenterName,
			"vulnerability_score":   round1(s.VulnerabilityScore),
			"vulnerability_imputed": s.VulnerabilityImputed,
			"distance_band":         s.DistanceBand,
			"vulnerability_band":    s.VulnerabilityBand,
			"barriers":              s.Barriers,
			"dropped_records":       s.DroppedRecords,
			"schema_version":        SchemaVersion,
		}
		if s.MeanIncome != nil {
			props["median_income"] = *s.MeanIncome
		}
		if s.MeanGini != nil {
			props["gini_index"] = *s.MeanGini
		}
		if s.MeanAncestryRate != nil {
			props["ancestry_rate"] = *s.MeanAncestryRate
			props["ancestry_band"] = s.AncestryBand
		}

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         s.FSA,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{s.Coord.Lon, s.Coord.Lat}),
			Properties: props,
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(fc); err != nil {
		return eris.Wrap(err, "access: encode geojson")
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatKM(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
