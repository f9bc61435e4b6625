package geo

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppa-research/access-cli/internal/fetcher"
)

// lookupColumns maps the header spellings seen across coordinate extracts
// to canonical positions. Both the national file (fsa_code,
// pop_weighted_lat, pop_weighted_lon) and the aggregated file (FSA,
// latitude, longitude) are accepted.
var lookupColumns = map[string]string{
	"fsa":              "fsa",
	"fsa_code":         "fsa",
	"latitude":         "lat",
	"pop_weighted_lat": "lat",
	"longitude":        "lon",
	"pop_weighted_lon": "lon",
}

// LoadLookupCSV reads an FSA coordinate table from a CSV file. Rows with a
// blank FSA or unparseable coordinates are skipped and counted.
func LoadLookupCSV(ctx context.Context, path string) (map[string]Coordinate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open coordinate file %s", path)
	}
	defer func() { _ = f.Close() }()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})

	var header []string
	select {
	case header = <-headerCh:
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
		// Stream ended; the header, if any, is already buffered.
		select {
		case header = <-headerCh:
		default:
			return nil, eris.Errorf("geo: coordinate file %s is empty", path)
		}
	}

	fsaIdx, latIdx, lonIdx := -1, -1, -1
	for i, col := range header {
		switch lookupColumns[strings.ToLower(col)] {
		case "fsa":
			fsaIdx = i
		case "lat":
			latIdx = i
		case "lon":
			lonIdx = i
		}
	}
	if fsaIdx < 0 || latIdx < 0 || lonIdx < 0 {
		return nil, eris.Errorf("geo: coordinate file %s missing fsa/lat/lon columns (header %v)", path, header)
	}

	lookup := make(map[string]Coordinate)
	var skipped int
	for row := range rowCh {
		if len(row) <= fsaIdx || len(row) <= latIdx || len(row) <= lonIdx {
			skipped++
			continue
		}
		fsa := strings.ToUpper(row[fsaIdx])
		lat, latErr := strconv.ParseFloat(row[latIdx], 64)
		lon, lonErr := strconv.ParseFloat(row[lonIdx], 64)
		if fsa == "" || latErr != nil || lonErr != nil {
			skipped++
			continue
		}
		lookup[fsa] = Coordinate{Lat: lat, Lon: lon}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	if skipped > 0 {
		zap.L().Warn("geo: skipped malformed coordinate rows",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return lookup, nil
}

// LoadLookupShapefile builds an FSA coordinate table from a boundary
// shapefile, using the polygon centroid of each FSA. The attribute holding
// the FSA code is matched case-insensitively (CFSAUID in the StatCan
// boundary files).
func LoadLookupShapefile(path, fsaField string) (map[string]Coordinate, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	fsaIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, fsaField) {
			fsaIdx = i
		}
	}
	if fsaIdx < 0 {
		return nil, eris.Errorf("geo: shapefile %s has no %q attribute", path, fsaField)
	}

	lookup := make(map[string]Coordinate)
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		fsa := strings.ToUpper(strings.TrimSpace(strings.TrimRight(reader.Attribute(fsaIdx), "\x00")))
		if fsa == "" {
			skipped++
			continue
		}

		coord, ok := shapeCentroid(shape)
		if !ok {
			skipped++
			continue
		}
		lookup[fsa] = coord
	}

	if skipped > 0 {
		zap.L().Warn("geo: skipped shapefile records without usable geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}

	return lookup, nil
}

// shapeCentroid converts a shapefile geometry to go-geom and returns its
// planar centroid. Good enough at FSA scale; the pipeline prefers the
// population-weighted CSV when both sources are supplied.
func shapeCentroid(shape shp.Shape) (Coordinate, bool) {
	var g geom.T

	switch s := shape.(type) {
	case *shp.Point:
		return Coordinate{Lat: s.Y, Lon: s.X}, true
	case *shp.Polygon:
		g = polygonToMultiPolygon(s)
	default:
		return Coordinate{}, false
	}

	if g == nil {
		return Coordinate{}, false
	}

	c, err := xy.Centroid(g)
	if err != nil || len(c) < 2 {
		return Coordinate{}, false
	}
	return Coordinate{Lat: c[1], Lon: c[0]}, true
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) geom.T {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			continue
		}
		if err := mp.Push(poly); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// registryFile is the YAML shape of a center registry override file.
type registryFile struct {
	Centers []Center `yaml:"centers"`
}

// LoadRegistryYAML reads a center registry from a YAML file.
func LoadRegistryYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: read centers file %s", path)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, eris.Wrapf(err, "geo: parse centers file %s", path)
	}

	return NewRegistry(rf.Centers)
}
