package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"neurosym/internal/dataset"
	"neurosym/internal/model"
	"neurosym/internal/store"
)

var (
	explainData       string
	explainCheckpoint string
	explainVersion    string
	explainJSON       bool
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain predictions for a CSV dataset",
	Long: `Explain loads a checkpoint and reports gradient-based feature importance
for the batch plus the symbolic rule trace for the first instance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}

		ds, err := dataset.LoadCSV(explainData)
		if err != nil {
			return err
		}

		st, err := store.Open(explainCheckpoint)
		if err != nil {
			return err
		}
		defer st.Close()

		m, err := loadModel(st, explainVersion)
		if err != nil {
			return err
		}

		expl, err := m.Explain(ds.Features)
		if err != nil {
			return err
		}

		if explainJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(expl)
		}

		fmt.Println(expl.Narrative)
		fmt.Printf("confidence: %.2f\n", expl.SymbolicReasoning.Confidence)
		fmt.Println("feature importance:")
		for i, name := range expl.NeuralImportance.FeatureNames {
			fmt.Printf("  %-24s %.6f\n", name, expl.NeuralImportance.ImportanceScores[i])
		}
		for _, step := range expl.SymbolicReasoning.ReasoningSteps {
			fmt.Printf("  step: %s\n", step)
		}
		return nil
	},
}

// loadModel fetches a checkpoint by version, or the latest when unset.
func loadModel(st *store.Store, version string) (*model.Classifier, error) {
	if version != "" {
		return st.Load(version)
	}
	return st.LoadLatest()
}

func init() {
	explainCmd.Flags().StringVarP(&explainData, "data", "d", "", "data CSV to explain (features..., label)")
	explainCmd.Flags().StringVar(&explainCheckpoint, "checkpoint-db", "", "checkpoint database path")
	explainCmd.Flags().StringVar(&explainVersion, "version", "", "checkpoint version (default: latest)")
	explainCmd.Flags().BoolVar(&explainJSON, "json", false, "emit the explanation as JSON")
	_ = explainCmd.MarkFlagRequired("data")
	_ = explainCmd.MarkFlagRequired("checkpoint-db")
	rootCmd.AddCommand(explainCmd)
}
