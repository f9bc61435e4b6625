package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/ppa-research/access-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect aggregation run history",
	Long:  "Commands for listing and viewing persisted aggregation runs and their area tables.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List aggregation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
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

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: store.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
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
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs areas --

var runsAreasCmd = &cobra.Command{
	Use:   "areas <run-id>",
	Short: "List the persisted area table of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("runs"); err != nil {
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

		areas, err := st.ListAreas(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs areas")
		}

		if len(areas) == 0 {
			fmt.Fprintln(os.Stderr, "No areas found.")
			return nil
		}

		formatAreas(os.Stdout, areas)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsAreasCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tAREAS\tDROPPED\tCREATED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------\t-------\t--------")

	for _, r := range runs {
		dur := r.UpdatedAt.Sub(r.CreatedAt).Round(time.Second).String()

		areas, dropped := "", ""
		if r.Result != nil {
			areas = fmt.Sprintf("%d", r.Result.Areas)
			dropped = fmt.Sprintf("%d", r.Result.DroppedRecords)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			areas,
			dropped,
			r.CreatedAt.Format("2006-01-02 15:04"),
			dur,
		)
	}
	_ = w.Flush()
}

// formatAreas writes a tabular area listing to w.
func formatAreas(out io.Writer, areas []store.AreaRow) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FSA\tPATIENTS\tMEAN_KM\tSCORE\tDIST_BAND\tVULN_BAND\tBARRIERS")
	_, _ = fmt.Fprintln(w, "---\t--------\t-------\t-----\t---------\t---------\t--------")
	for _, a := range areas {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f\t%.1f\t%s\t%s\t%d\n",
			a.FSA, a.PatientCount, a.MeanDistanceKM, a.VulnerabilityScore,
			a.DistanceBand, a.VulnerabilityBand, a.Barriers)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID for tabular display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
