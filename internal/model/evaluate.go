package model

import (
	"math/rand"

	"neurosym/internal/logging"
	"neurosym/internal/metrics"
	"neurosym/internal/tensor"
)

// robustnessSigma is the fixed standard deviation of the Gaussian input
// perturbation used for the robustness proxy.
const robustnessSigma = 0.01

// Report holds classification metrics plus the explainability and robustness
// proxies.
type Report struct {
	Accuracy            float64 `json:"accuracy"`
	Precision           float64 `json:"precision"`
	Recall              float64 `json:"recall"`
	F1Score             float64 `json:"f1_score"`
	ExplainabilityScore float64 `json:"explainability_score"`
	RobustnessScore     float64 `json:"robustness_score"`
}

// Evaluate computes weighted classification metrics over the labeled batch.
// The explainability score is the mean maximum predicted class probability, a
// confidence proxy rather than a calibration or fidelity metric. The
// robustness score is the fraction of predictions unchanged under Gaussian
// input noise and lies in [0, 1].
func (c *Classifier) Evaluate(x *tensor.Matrix, labels []int) (*Report, error) {
	if c.phase != PhaseTrained {
		return nil, &NotTrainedError{Op: "evaluate"}
	}

	timer := logging.StartTimer(logging.CategoryEval, "evaluate")
	defer timer.StopWithInfo()

	probs, err := c.PredictProbabilities(x)
	if err != nil {
		return nil, err
	}
	predicted := make([]int, probs.Rows)
	for i := range predicted {
		predicted[i] = argmax(probs.Row(i))
	}

	robustness, err := c.robustness(x, predicted, robustnessSigma)
	if err != nil {
		return nil, err
	}

	return &Report{
		Accuracy:            metrics.Accuracy(labels, predicted),
		Precision:           metrics.WeightedPrecision(labels, predicted),
		Recall:              metrics.WeightedRecall(labels, predicted),
		F1Score:             metrics.WeightedF1(labels, predicted),
		ExplainabilityScore: explainability(probs),
		RobustnessScore:     robustness,
	}, nil
}

// explainability is the mean of the per-row maximum predicted probability.
func explainability(probs *tensor.Matrix) float64 {
	if probs.Rows == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < probs.Rows; i++ {
		row := probs.Row(i)
		sum += row[argmax(row)]
	}
	return sum / float64(probs.Rows)
}

// robustness re-predicts on a noise-perturbed copy of the input and returns
// the fraction of unchanged predictions. The noise source is seeded from the
// model configuration, not the training RNG, so evaluating a frozen model
// stays side-effect-free and repeatable.
func (c *Classifier) robustness(x *tensor.Matrix, predicted []int, sigma float64) (float64, error) {
	if x.Rows == 0 {
		return 0, nil
	}

	noiseRng := rand.New(rand.NewSource(c.cfg.Model.Seed + 1))
	perturbed := x.Clone()
	if sigma > 0 {
		for i := range perturbed.Data {
			perturbed.Data[i] += noiseRng.NormFloat64() * sigma
		}
	}

	perturbedPred, err := c.Predict(perturbed)
	if err != nil {
		return 0, err
	}

	unchanged := 0
	for i, p := range predicted {
		if perturbedPred[i] == p {
			unchanged++
		}
	}
	return float64(unchanged) / float64(len(predicted)), nil
}
