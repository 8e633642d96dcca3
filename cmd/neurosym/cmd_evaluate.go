package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurosym/internal/dataset"
	"neurosym/internal/store"
)

var (
	evalData       string
	evalCheckpoint string
	evalVersion    string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a stored checkpoint against a labeled CSV dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		ds, err := dataset.LoadCSV(evalData)
		if err != nil {
			return err
		}

		st, err := store.Open(evalCheckpoint)
		if err != nil {
			return err
		}
		defer st.Close()

		m, err := loadModel(st, evalVersion)
		if err != nil {
			return err
		}
		logger.Info("evaluating", zap.String("version", m.Version()), zap.Int("samples", ds.Features.Rows))

		report, err := m.Evaluate(ds.Features, ds.Labels)
		if err != nil {
			return err
		}

		fmt.Printf("accuracy:       %.4f\n", report.Accuracy)
		fmt.Printf("precision:      %.4f\n", report.Precision)
		fmt.Printf("recall:         %.4f\n", report.Recall)
		fmt.Printf("f1_score:       %.4f\n", report.F1Score)
		fmt.Printf("explainability: %.4f\n", report.ExplainabilityScore)
		fmt.Printf("robustness:     %.4f\n", report.RobustnessScore)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalData, "data", "d", "", "evaluation data CSV (features..., label)")
	evaluateCmd.Flags().StringVar(&evalCheckpoint, "checkpoint-db", "", "checkpoint database path")
	evaluateCmd.Flags().StringVar(&evalVersion, "version", "", "checkpoint version (default: latest)")
	_ = evaluateCmd.MarkFlagRequired("data")
	_ = evaluateCmd.MarkFlagRequired("checkpoint-db")
	rootCmd.AddCommand(evaluateCmd)
}
