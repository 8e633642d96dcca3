package model

import (
	"context"
	"fmt"
	"strings"

	"neurosym/internal/logging"
	"neurosym/internal/reasoner"
	"neurosym/internal/tensor"
)

// NeuralImportance is the gradient-based feature attribution of a batch.
type NeuralImportance struct {
	Method           string    `json:"method"`
	FeatureNames     []string  `json:"feature_names"`
	ImportanceScores []float64 `json:"importance_scores"`
	MostImportant    string    `json:"most_important"`
}

// SymbolicReasoning is the rule-trace side of an explanation.
type SymbolicReasoning struct {
	Method         string   `json:"method"`
	RulesApplied   []string `json:"rules_applied"`
	ReasoningSteps []string `json:"reasoning_steps"`
	Confidence     float64  `json:"confidence"`
}

// Explanation combines gradient attribution with the symbolic rule trace.
type Explanation struct {
	NeuralImportance  NeuralImportance  `json:"neural_importance"`
	SymbolicReasoning SymbolicReasoning `json:"symbolic_reasoning"`
	Narrative         string            `json:"narrative"`
}

// Explain produces an explanation for a batch of instances. Neural
// importance is the mean absolute gradient of the summed encoder output with
// respect to each input feature, across the batch. The symbolic side queries
// the reasoner for the first instance only; batch-wide symbolic explanation
// is deliberately not computed.
func (c *Classifier) Explain(x *tensor.Matrix) (*Explanation, error) {
	if c.phase != PhaseTrained {
		return nil, &NotTrainedError{Op: "explain"}
	}
	if x.Cols != c.cfg.Model.InputSize {
		return nil, &DimensionMismatchError{Got: x.Cols, Want: c.cfg.Model.InputSize}
	}
	if x.Rows == 0 {
		return nil, fmt.Errorf("model: explain requires at least one instance")
	}

	timer := logging.StartTimer(logging.CategoryExplain, "explain")
	defer timer.Stop()

	grads, err := c.enc.InputGradients(x)
	if err != nil {
		return nil, fmt.Errorf("model: input gradients: %w", err)
	}
	scores := grads.ColMeanAbs()

	names := make([]string, x.Cols)
	for i := range names {
		names[i] = c.cfg.FeatureName(i)
	}
	top := 0
	for i, s := range scores {
		if s > scores[top] {
			top = i
		}
	}

	result, err := c.rsn.Reason(context.Background(), c.factsForRow(x.Row(0)), reasoner.QueryExplain)
	if err != nil {
		return nil, fmt.Errorf("model: symbolic explanation: %w", err)
	}

	rules := result.RulesApplied
	if rules == nil {
		rules = []string{}
	}

	return &Explanation{
		NeuralImportance: NeuralImportance{
			Method:           "gradient_importance",
			FeatureNames:     names,
			ImportanceScores: scores,
			MostImportant:    names[top],
		},
		SymbolicReasoning: SymbolicReasoning{
			Method:         "symbolic_rules",
			RulesApplied:   rules,
			ReasoningSteps: result.Steps,
			Confidence:     result.Confidence,
		},
		Narrative: fmt.Sprintf("Primary feature %s triggered rules: [%s]",
			names[top], strings.Join(rules, ", ")),
	}, nil
}
