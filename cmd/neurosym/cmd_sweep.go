package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurosym/internal/config"
	"neurosym/internal/dataset"
	"neurosym/internal/experiment"
	"neurosym/internal/store"
	"neurosym/internal/tracking"
)

var (
	sweepData        string
	sweepCheckpoint  string
	sweepConcurrency int
	sweepFraction    float64
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Train and compare fusion and reasoning variants on one dataset",
	Long: `Sweep splits the dataset, trains a small grid of configurations (both
fusion strategies, both reasoning engines) concurrently, records every run in
the tracking database, and saves the best model by F1 score.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ds, err := dataset.LoadCSV(sweepData)
		if err != nil {
			return err
		}
		train, test, err := ds.Split(sweepFraction)
		if err != nil {
			return err
		}

		var sink tracking.Sink = tracking.NopSink{}
		if cfg.Tracking.Enabled {
			s, err := tracking.NewSQLiteSink(cfg.Tracking.DatabasePath)
			if err != nil {
				return err
			}
			defer s.Close()
			sink = s
		}

		configs := sweepGrid(cfg, ds)
		logger.Info("starting sweep",
			zap.Int("configs", len(configs)),
			zap.Int("train_samples", train.Features.Rows),
			zap.Int("test_samples", test.Features.Rows))

		runner := experiment.NewRunner(sink, sweepConcurrency)
		runs, err := runner.Sweep(cmd.Context(), configs, train, test)
		if err != nil {
			return err
		}

		for _, run := range runs {
			if run.Err != nil {
				fmt.Printf("%-40s FAILED: %v\n", run.Name, run.Err)
				continue
			}
			fmt.Printf("%-40s acc=%.4f f1=%.4f robustness=%.4f\n",
				run.Name, run.Report.Accuracy, run.Report.F1Score, run.Report.RobustnessScore)
		}

		best, err := experiment.Best(runs)
		if err != nil {
			return err
		}
		fmt.Printf("best: %s (f1=%.4f)\n", best.Name, best.Report.F1Score)

		if sweepCheckpoint == "" {
			return nil
		}
		st, err := store.Open(sweepCheckpoint)
		if err != nil {
			return err
		}
		defer st.Close()
		version, err := st.Save(best.Model, best.Name)
		if err != nil {
			return err
		}
		fmt.Printf("saved checkpoint %s\n", version)
		return nil
	},
}

// sweepGrid derives the candidate configurations from the base config and the
// dataset shape. Attention fusion joins the grid only when the head count
// divides the fused width.
func sweepGrid(base config.Config, ds *dataset.Dataset) []config.Config {
	base.Model.InputSize = ds.Features.Cols
	base.Model.NumClasses = ds.NumClasses
	if len(base.Model.FeatureNames) == 0 {
		base.Model.FeatureNames = ds.FeatureNames
	}

	var configs []config.Config
	for _, fusionMethod := range []string{config.FusionLate, config.FusionAttention} {
		if fusionMethod == config.FusionAttention &&
			(base.Model.AttentionHeads <= 0 || base.FusedSize()%base.Model.AttentionHeads != 0) {
			continue
		}
		for _, engine := range []string{config.EngineStatic, config.EngineDatalog} {
			cfg := base
			cfg.Model.FusionMethod = fusionMethod
			cfg.Reasoning.Engine = engine
			configs = append(configs, cfg)
		}
	}
	return configs
}

func init() {
	sweepCmd.Flags().StringVarP(&sweepData, "data", "d", "", "data CSV (features..., label)")
	sweepCmd.Flags().StringVar(&sweepCheckpoint, "checkpoint-db", "", "checkpoint database for the best model")
	sweepCmd.Flags().IntVar(&sweepConcurrency, "concurrency", 2, "concurrent training runs (0 = unbounded)")
	sweepCmd.Flags().Float64Var(&sweepFraction, "train-fraction", 0.8, "fraction of rows used for training")
	_ = sweepCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(sweepCmd)
}
