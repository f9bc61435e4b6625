package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppa-research/access-cli/internal/access"
	"github.com/ppa-research/access-cli/internal/geo"
	"github.com/ppa-research/access-cli/internal/store"
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate patient records into the canonical area table",
	Long:  "Reads the patient workbook and FSA coordinate source, groups records by area, scores vulnerability, bands each metric, and writes the CSV and GeoJSON outputs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyAggregateFlags(cmd)
		if err := cfg.Validate("aggregate"); err != nil {
			return err
		}

		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		var (
			lookup  map[string]geo.Coordinate
			records []access.PatientRecord
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			lookup, err = loadLookup(gctx)
			return err
		})
		g.Go(func() error {
			var err error
			records, err = access.ReadPatients(cfg.Data.Patients, cfg.Data.PatientsTab)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		resolver := geo.NewResolver(lookup, geo.DefaultOverrides)

		categorizer := access.NewCategorizer()
		if cfg.Scoring.Thresholds != "" {
			categorizer, err = access.LoadThresholds(cfg.Scoring.Thresholds)
			if err != nil {
				return err
			}
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, store.RunParams{
			Patients:    cfg.Data.Patients,
			Coordinates: cfg.Data.Coordinates,
			Shapefile:   cfg.Data.Shapefile,
			Centers:     cfg.Data.Centers,
			LookupSize:  resolver.Len(),
			CenterCount: registry.Len(),
		})
		if err != nil {
			return err
		}

		result, err := access.Run(records, resolver, registry, categorizer)
		if err != nil {
			if failErr := st.FailRun(ctx, run.ID, err.Error()); failErr != nil {
				zap.L().Warn("record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := writeOutputs(result); err != nil {
			return err
		}

		if err := st.SaveAreas(ctx, run.ID, result.Summaries); err != nil {
			return err
		}
		if err := st.CompleteRun(ctx, run.ID, runResult(result)); err != nil {
			return err
		}

		fmt.Printf("run %s: %d records in, %d aggregated, %d dropped, %d areas\n",
			run.ID, result.InputRecords, result.AggregatedRecords,
			result.DroppedRecords, len(result.Summaries))
		formatCatchment(os.Stdout, registry, result.CenterPatients)
		return nil
	},
}

func init() {
	aggregateCmd.Flags().String("patients", "", "patient workbook (xlsx)")
	aggregateCmd.Flags().String("tab", "", "workbook sheet name (default: first sheet)")
	aggregateCmd.Flags().String("coords", "", "FSA coordinate CSV")
	aggregateCmd.Flags().String("shapefile", "", "FSA boundary shapefile (centroids)")
	aggregateCmd.Flags().String("centers", "", "treatment center registry YAML (default: built-in)")
	aggregateCmd.Flags().String("out", "", "output CSV path")
	aggregateCmd.Flags().String("geojson", "", "output GeoJSON path")
	rootCmd.AddCommand(aggregateCmd)
}

// applyAggregateFlags lets flags override the config file.
func applyAggregateFlags(cmd *cobra.Command) {
	for flag, target := range map[string]*string{
		"patients":  &cfg.Data.Patients,
		"tab":       &cfg.Data.PatientsTab,
		"coords":    &cfg.Data.Coordinates,
		"shapefile": &cfg.Data.Shapefile,
		"centers":   &cfg.Data.Centers,
		"out":       &cfg.Export.CSV,
		"geojson":   &cfg.Export.GeoJSON,
	} {
		if v, _ := cmd.Flags().GetString(flag); v != "" {
			*target = v
		}
	}
}

func loadRegistry() (*geo.Registry, error) {
	if cfg.Data.Centers != "" {
		return geo.LoadRegistryYAML(cfg.Data.Centers)
	}
	return geo.NewRegistry(geo.DefaultCenters())
}

func loadLookup(ctx context.Context) (map[string]geo.Coordinate, error) {
	if cfg.Data.Coordinates != "" {
		return geo.LoadLookupCSV(ctx, cfg.Data.Coordinates)
	}
	return geo.LoadLookupShapefile(cfg.Data.Shapefile, cfg.Data.FSAField)
}

func writeOutputs(result *access.Result) error {
	table := access.Export(result)

	csvFile, err := os.Create(cfg.Export.CSV)
	if err != nil {
		return eris.Wrapf(err, "create %s", cfg.Export.CSV)
	}
	defer csvFile.Close() //nolint:errcheck
	if err := table.WriteCSV(csvFile); err != nil {
		return err
	}
	zap.L().Info("wrote area table", zap.String("path", cfg.Export.CSV), zap.Int("rows", len(table.Rows)))

	if cfg.Export.GeoJSON == "" {
		return nil
	}
	gjFile, err := os.Create(cfg.Export.GeoJSON)
	if err != nil {
		return eris.Wrapf(err, "create %s", cfg.Export.GeoJSON)
	}
	defer gjFile.Close() //nolint:errcheck
	if err := access.WriteGeoJSON(gjFile, result); err != nil {
		return err
	}
	zap.L().Info("wrote geojson", zap.String("path", cfg.Export.GeoJSON))
	return nil
}

func runResult(result *access.Result) *store.RunResult {
	imputed := 0
	for _, s := range result.Summaries {
		if s.VulnerabilityImputed {
			imputed++
		}
	}
	return &store.RunResult{
		SchemaVersion:     access.SchemaVersion,
		InputRecords:      result.InputRecords,
		AggregatedRecords: result.AggregatedRecords,
		DroppedRecords:    result.DroppedRecords,
		Areas:             len(result.Summaries),
		ImputedAreas:      imputed,
		CenterPatients:    result.CenterPatients,
		DroppedByFSA:      result.DroppedByFSA,
	}
}
