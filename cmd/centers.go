package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppa-research/access-cli/internal/geo"
)

var centersCmd = &cobra.Command{
	Use:   "centers",
	Short: "Inspect the treatment center registry",
}

// -- centers list --

var centersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List treatment centers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if v, _ := cmd.Flags().GetString("centers"); v != "" {
			cfg.Data.Centers = v
		}
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		formatCenters(os.Stdout, registry.Centers())
		return nil
	},
}

// -- centers nearest --

var centersNearestCmd = &cobra.Command{
	Use:   "nearest <lat> <lon>",
	Short: "Show the nearest center to a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return eris.Wrapf(err, "parse latitude %q", args[0])
		}
		lon, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return eris.Wrapf(err, "parse longitude %q", args[1])
		}

		if v, _ := cmd.Flags().GetString("centers"); v != "" {
			cfg.Data.Centers = v
		}
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		center, km := registry.Nearest(geo.Coordinate{Lat: lat, Lon: lon})
		fmt.Printf("%s (%s, site %d): %.1f km\n", center.Name, center.Province, center.SiteID, km)
		return nil
	},
}

// -- centers catchment --

var centersCatchmentCmd = &cobra.Command{
	Use:   "catchment <run-id>",
	Short: "Show per-center patient totals for a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
			return err
		}
		if v, _ := cmd.Flags().GetString("centers"); v != "" {
			cfg.Data.Centers = v
		}
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "centers catchment")
		}
		if run.Result == nil || len(run.Result.CenterPatients) == 0 {
			fmt.Fprintln(os.Stderr, "No catchment totals recorded for this run.")
			return nil
		}

		formatCatchment(os.Stdout, registry, run.Result.CenterPatients)
		return nil
	},
}

func init() {
	centersCmd.PersistentFlags().String("centers", "", "treatment center registry YAML (default: built-in)")
	centersCmd.AddCommand(centersListCmd)
	centersCmd.AddCommand(centersNearestCmd)
	centersCmd.AddCommand(centersCatchmentCmd)
	rootCmd.AddCommand(centersCmd)
}

func formatCenters(out io.Writer, centers []geo.Center) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPROVINCE\tSITE\tLAT\tLON")
	_, _ = fmt.Fprintln(w, "--\t----\t--------\t----\t---\t---")
	for _, c := range centers {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%.4f\n",
			c.ID, c.Name, c.Province, c.SiteID, c.Lat, c.Lon)
	}
	_ = w.Flush()
}

// formatCatchment writes per-center patient totals, sorted by center ID.
// Centers absent from the registry (a run made with a different registry
// file) still get a row, with the name left blank.
func formatCatchment(out io.Writer, registry *geo.Registry, totals map[string]int) {
	if len(totals) == 0 {
		return
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CENTER\tNAME\tSITE\tPATIENTS")
	_, _ = fmt.Fprintln(w, "------\t----\t----\t--------")
	for _, id := range ids {
		name, site := "", ""
		if c, ok := registry.ByID(id); ok {
			name = c.Name
			site = strconv.Itoa(c.SiteID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", id, name, site, totals[id])
	}
	_ = w.Flush()
}
