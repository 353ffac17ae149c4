package main

import (
	"fmt"
	"log"
	"os"

	"PriceLens/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "app",
	Short: "PriceLens stock price exploration and prediction",
	Long: `PriceLens loads historical daily prices, trains a linear regression and a
random forest on a shared preprocessor, and serves a dashboard for
exploration and single-row predictions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	log.Printf("env=%s source=%s models=%s", cfg.Environment, cfg.Data.Source, cfg.Models.Dir)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
