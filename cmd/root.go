package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppa-research/access-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "access-cli",
	Short: "Geospatial access aggregation for DBS treatment",
	Long:  "Aggregates patient records by forward sortation area, computes distance and vulnerability metrics against the national treatment center registry, and exports the canonical area table.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
