package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"PriceLens/internal/di"
	"PriceLens/internal/domain/models"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit the preprocessor and both models, then persist them",
	Long: `Train loads the configured price source, drops rows without a target,
splits 80/20 with the configured seed, and writes LinearRegression.gob,
RandomForest.gob, preprocessor.gob and training_report.json to models.dir.

Examples:
  app train
  app train -c config/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		trainer, cleanup, err := di.InitializeTrainer(cfg)
		if err != nil {
			return fmt.Errorf("trainer initialization failed: %w", err)
		}
		defer cleanup()

		rep, err := trainer.Train(cmd.Context())
		if err != nil {
			return err
		}
		printReport(rep)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func printReport(rep *models.TrainingReport) {
	fmt.Printf("run %s: %d rows (%d train, %d test, %d dropped), %d PCA components\n",
		rep.RunID, rep.Rows, rep.TrainRows, rep.TestRows, rep.DroppedRows, rep.Components)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tMSE\tRMSE\tMAE\tR2")
	for _, s := range rep.Scores {
		r2 := "n/a"
		if s.R2Defined {
			r2 = fmt.Sprintf("%.4f", s.R2)
		}
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%s\n", s.Model, s.MSE, s.RMSE, s.MAE, r2)
	}
	w.Flush()
}
