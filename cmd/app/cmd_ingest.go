package main

import (
	"fmt"

	"PriceLens/internal/di"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load the CSV file into the ClickHouse prices table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ing, cleanup, err := di.InitializeIngester(cfg)
		if err != nil {
			return fmt.Errorf("ingester initialization failed: %w", err)
		}
		defer cleanup()

		n, err := ing.Ingest(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("ingested %d rows into %s.%s\n", n, cfg.ClickHouse.Database, cfg.ClickHouse.Table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
