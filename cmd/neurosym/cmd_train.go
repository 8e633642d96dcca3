package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neurosym/internal/dataset"
	"neurosym/internal/model"
	"neurosym/internal/store"
)

var (
	trainData       string
	trainCheckpoint string
	trainName       string
	trainRules      []string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier on a CSV dataset and save a checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ds, err := dataset.LoadCSV(trainData)
		if err != nil {
			return err
		}
		cfg.Model.InputSize = ds.Features.Cols
		cfg.Model.NumClasses = ds.NumClasses
		if len(cfg.Model.FeatureNames) == 0 {
			cfg.Model.FeatureNames = ds.FeatureNames
		}

		logger.Info("training classifier",
			zap.Int("samples", ds.Features.Rows),
			zap.Int("features", ds.Features.Cols),
			zap.Int("classes", ds.NumClasses),
			zap.String("fusion", cfg.Model.FusionMethod))

		m, err := model.New(cfg)
		if err != nil {
			return err
		}
		if len(trainRules) > 0 {
			if err := m.AddKnowledge(trainRules); err != nil {
				return fmt.Errorf("add rules: %w", err)
			}
		}

		if err := m.Fit(ds.Features, ds.Labels); err != nil {
			return err
		}
		logger.Info("training complete", zap.String("version", m.Version()))

		if trainCheckpoint == "" {
			return nil
		}
		st, err := store.Open(trainCheckpoint)
		if err != nil {
			return err
		}
		defer st.Close()

		version, err := st.Save(m, trainName)
		if err != nil {
			return err
		}
		fmt.Printf("saved checkpoint %s\n", version)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVarP(&trainData, "data", "d", "", "training data CSV (features..., label)")
	trainCmd.Flags().StringVar(&trainCheckpoint, "checkpoint-db", "", "checkpoint database path")
	trainCmd.Flags().StringVar(&trainName, "name", "model", "checkpoint name")
	trainCmd.Flags().StringArrayVar(&trainRules, "rule", nil, "symbolic rule to add before training (repeatable)")
	_ = trainCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(trainCmd)
}
