// Package model implements the hybrid neuro-symbolic classifier: a neural
// feature encoder and a pluggable symbolic reasoner joined by a fusion
// strategy, with a training loop, explanation generator and evaluation
// engine on top.
//
// A Classifier provides no internal locking. Callers must serialize Fit
// against reads on the same instance; concurrent reads of a trained model are
// safe and side-effect-free. Distinct instances share no mutable state and
// may be trained concurrently without coordination.
package model

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"neurosym/internal/config"
	"neurosym/internal/encoder"
	"neurosym/internal/fusion"
	"neurosym/internal/logging"
	"neurosym/internal/reasoner"
	"neurosym/internal/tensor"
)

// Phase is the model lifecycle state.
type Phase int

const (
	PhaseConstructed Phase = iota
	PhaseTraining
	PhaseTrained
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseConstructed:
		return "constructed"
	case PhaseTraining:
		return "training"
	case PhaseTrained:
		return "trained"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classifier is the hybrid neuro-symbolic classification model.
type Classifier struct {
	cfg config.Config
	enc *encoder.Encoder
	fus fusion.Strategy
	rsn reasoner.Reasoner
	rng *rand.Rand
	opt *adam

	phase    Phase
	failure  *TrainingFailure
	version  string
	metadata map[string]string
}

// New constructs a classifier from configuration. The configuration is
// validated here: an unknown fusion method or an attention head count that
// does not divide the fused embedding width is a ConfigurationError.
func New(cfg config.Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	switch cfg.Model.FusionMethod {
	case config.FusionLate:
	case config.FusionAttention:
		if cfg.Model.AttentionHeads <= 0 || cfg.FusedSize()%cfg.Model.AttentionHeads != 0 {
			return nil, &ConfigurationError{
				Method:     cfg.Model.FusionMethod,
				Heads:      cfg.Model.AttentionHeads,
				FusedWidth: cfg.FusedSize(),
			}
		}
	default:
		return nil, &ConfigurationError{Method: cfg.Model.FusionMethod}
	}

	rng := rand.New(rand.NewSource(cfg.Model.Seed))

	enc, err := encoder.New(cfg.Model.InputSize, cfg.Model.HiddenLayers, cfg.Model.DropoutRate, rng)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	fus, err := fusion.New(cfg.Model.FusionMethod, fusion.Options{
		LatentSize:   cfg.LatentSize(),
		SymbolicSize: cfg.Reasoning.OutputSize,
		Hidden:       cfg.Model.FusionHidden,
		NumClasses:   cfg.Model.NumClasses,
		Heads:        cfg.Model.AttentionHeads,
		DropoutRate:  cfg.Model.DropoutRate,
	}, rng)
	if err != nil {
		return nil, &ConfigurationError{Reason: err.Error()}
	}

	rsn, err := reasoner.New(cfg.Reasoning)
	if err != nil {
		return nil, &ConfigurationError{Method: cfg.Reasoning.Engine, Reason: err.Error()}
	}

	c := &Classifier{
		cfg:      cfg,
		enc:      enc,
		fus:      fus,
		rsn:      rsn,
		rng:      rng,
		opt:      newAdam(cfg.Training.LearningRate),
		phase:    PhaseConstructed,
		version:  uuid.NewString(),
		metadata: make(map[string]string),
	}

	logging.Model("constructed classifier %s: input=%d classes=%d fusion=%s engine=%s",
		c.version, cfg.Model.InputSize, cfg.Model.NumClasses, cfg.Model.FusionMethod, cfg.Reasoning.Engine)
	return c, nil
}

// Phase returns the current lifecycle state.
func (c *Classifier) Phase() Phase { return c.phase }

// Trained reports whether the model has completed training.
func (c *Classifier) Trained() bool { return c.phase == PhaseTrained }

// Version returns the model version tag; it changes on every completed fit.
func (c *Classifier) Version() string { return c.version }

// Config returns a copy of the model configuration.
func (c *Classifier) Config() config.Config { return c.cfg }

// SetMetadata records a metadata entry. Metadata stays mutable after
// training; weights do not.
func (c *Classifier) SetMetadata(key, value string) { c.metadata[key] = value }

// Metadata returns the metadata map.
func (c *Classifier) Metadata() map[string]string { return c.metadata }

// AddKnowledge appends rules to the symbolic rule set. Valid in any state.
func (c *Classifier) AddKnowledge(rules []string) error {
	if err := c.rsn.AddKnowledge(rules); err != nil {
		return err
	}
	c.cfg.Reasoning.Rules = append(c.cfg.Reasoning.Rules, rules...)
	return nil
}

// Predict returns the predicted class label per row.
func (c *Classifier) Predict(x *tensor.Matrix) ([]int, error) {
	probs, err := c.PredictProbabilities(x)
	if err != nil {
		return nil, err
	}
	labels := make([]int, probs.Rows)
	for i := range labels {
		labels[i] = argmax(probs.Row(i))
	}
	return labels, nil
}

// PredictProbabilities returns the [batch, classes] class probability matrix.
// Rows sum to one within numerical tolerance.
func (c *Classifier) PredictProbabilities(x *tensor.Matrix) (*tensor.Matrix, error) {
	if c.phase != PhaseTrained {
		return nil, &NotTrainedError{Op: "predict"}
	}
	logits, err := c.forward(x, false)
	if err != nil {
		return nil, err
	}
	return logits.SoftmaxRows(), nil
}

// forward runs the full pipeline: encoder, reasoner (read-only), fusion.
func (c *Classifier) forward(x *tensor.Matrix, train bool) (*tensor.Matrix, error) {
	if x.Cols != c.cfg.Model.InputSize {
		return nil, &DimensionMismatchError{Got: x.Cols, Want: c.cfg.Model.InputSize}
	}

	mode := encoder.Eval
	if train {
		mode = encoder.Train
	}
	latent, err := c.enc.Forward(x, mode)
	if err != nil {
		return nil, fmt.Errorf("encoder forward: %w", err)
	}

	symbolic, err := c.symbolicBatch(x)
	if err != nil {
		return nil, fmt.Errorf("symbolic reasoning: %w", err)
	}

	logits, err := c.fus.Forward(latent, symbolic, train)
	if err != nil {
		return nil, fmt.Errorf("fusion forward: %w", err)
	}
	return logits, nil
}

// symbolicBatch issues one classify reasoning call per row and stacks the
// resulting vectors. Calls are sequential; a configured reasoning cache
// absorbs repeat instances across epochs.
func (c *Classifier) symbolicBatch(x *tensor.Matrix) (*tensor.Matrix, error) {
	ctx := context.Background()
	out := tensor.New(x.Rows, c.rsn.OutputSize())
	for i := 0; i < x.Rows; i++ {
		result, err := c.rsn.Reason(ctx, c.factsForRow(x.Row(i)), reasoner.QueryClassify)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		copy(out.Row(i), result.Vector)
	}
	return out, nil
}

// factsForRow builds the symbolic fact for one instance. With configured
// feature names each feature becomes a named entry; otherwise the raw vector
// is passed under a single key.
func (c *Classifier) factsForRow(row []float64) []reasoner.Fact {
	if len(c.cfg.Model.FeatureNames) > 0 {
		fact := make(reasoner.Fact, len(row))
		for i, v := range row {
			fact[c.cfg.FeatureName(i)] = v
		}
		return []reasoner.Fact{fact}
	}
	values := make([]float64, len(row))
	copy(values, row)
	return []reasoner.Fact{{"features": values}}
}

func argmax(row []float64) int {
	best := 0
	for i, v := range row {
		if v > row[best] {
			best = i
		}
	}
	return best
}
