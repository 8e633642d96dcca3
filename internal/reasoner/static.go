package reasoner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"neurosym/internal/logging"
)

// Static is the reference reasoning backend. It produces a deterministic
// embedding for classify queries (the fact fingerprint seeds the draw, so
// identical facts always yield identical vectors) and a canned two-rule trace
// with fixed confidence for explain queries. It carries rules but does not
// evaluate them; real deployments substitute the Datalog backend or their own
// implementation of the Reasoner interface.
type Static struct {
	outputSize int

	mu    sync.RWMutex
	rules []string
}

// NewStatic creates the static reference backend.
func NewStatic(outputSize int, rules []string) *Static {
	return &Static{
		outputSize: outputSize,
		rules:      append([]string(nil), rules...),
	}
}

// Reason implements Reasoner.
func (s *Static) Reason(ctx context.Context, facts []Fact, query string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch query {
	case QueryClassify:
		return Result{Vector: s.embed(facts)}, nil
	case QueryExplain:
		logging.ReasoningDebug("static explain over %d facts", len(facts))
		return Result{
			Vector:       s.embed(facts),
			RulesApplied: []string{"rule_1", "rule_2"},
			Steps:        []string{"Analyze features", "Apply rules", "Conclude"},
			Confidence:   0.85,
		}, nil
	default:
		return neutralResult(s.outputSize), nil
	}
}

// embed draws a unit-normal vector seeded by the fact fingerprint.
func (s *Static) embed(facts []Fact) []float64 {
	rng := rand.New(rand.NewSource(int64(fingerprint(facts))))
	vec := make([]float64, s.outputSize)
	for i := range vec {
		vec[i] = rng.NormFloat64()
	}
	return vec
}

// AddKnowledge implements Reasoner.
func (s *Static) AddKnowledge(rules []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rules...)
	logging.Reasoning("static backend: rule set grown to %d rules", len(s.rules))
	return nil
}

// ExplainReasoning implements Reasoner.
func (s *Static) ExplainReasoning(result Result) string {
	return fmt.Sprintf("Applied %d rules with %d steps", len(result.RulesApplied), len(result.Steps))
}

// OutputSize implements Reasoner.
func (s *Static) OutputSize() int { return s.outputSize }
