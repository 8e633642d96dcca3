package reasoner

import (
	"context"
	"testing"

	"neurosym/internal/config"
)

func TestNewSelectsBackend(t *testing.T) {
	r, err := New(config.ReasoningConfig{Engine: config.EngineStatic, OutputSize: 8})
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	if _, ok := r.(*Static); !ok {
		t.Fatalf("engine %q built %T, want *Static", config.EngineStatic, r)
	}

	r, err = New(config.ReasoningConfig{Engine: config.EngineStatic, OutputSize: 8, CacheSize: 16})
	if err != nil {
		t.Fatalf("cached static: %v", err)
	}
	if _, ok := r.(*Cached); !ok {
		t.Fatalf("cache size 16 built %T, want *Cached", r)
	}

	if _, err := New(config.ReasoningConfig{Engine: "oracle", OutputSize: 8}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestStaticClassifyDeterministic(t *testing.T) {
	s := NewStatic(16, nil)
	ctx := context.Background()
	facts := []Fact{{"temp": 0.7, "pressure": 1.2}}

	a, err := s.Reason(ctx, facts, QueryClassify)
	if err != nil {
		t.Fatalf("reason: %v", err)
	}
	if len(a.Vector) != 16 {
		t.Fatalf("vector size %d, want 16", len(a.Vector))
	}

	b, _ := s.Reason(ctx, []Fact{{"pressure": 1.2, "temp": 0.7}}, QueryClassify)
	for i := range a.Vector {
		if a.Vector[i] != b.Vector[i] {
			t.Fatalf("identical facts produced different vectors at %d", i)
		}
	}

	c, _ := s.Reason(ctx, []Fact{{"temp": 0.8, "pressure": 1.2}}, QueryClassify)
	same := true
	for i := range a.Vector {
		if a.Vector[i] != c.Vector[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different facts produced identical vectors")
	}
}

func TestStaticExplainTrace(t *testing.T) {
	s := NewStatic(8, nil)
	result, err := s.Reason(context.Background(), []Fact{{"x": 1.0}}, QueryExplain)
	if err != nil {
		t.Fatalf("reason: %v", err)
	}
	if len(result.RulesApplied) != 2 || result.RulesApplied[0] != "rule_1" {
		t.Fatalf("rules = %v", result.RulesApplied)
	}
	if len(result.Steps) != 3 {
		t.Fatalf("steps = %v", result.Steps)
	}
	if result.Confidence != 0.85 {
		t.Fatalf("confidence = %v, want 0.85", result.Confidence)
	}
	if got := s.ExplainReasoning(result); got != "Applied 2 rules with 3 steps" {
		t.Fatalf("summary = %q", got)
	}
}

func TestUnknownQueryNeutral(t *testing.T) {
	s := NewStatic(8, nil)
	result, err := s.Reason(context.Background(), []Fact{{"x": 1.0}}, "prove_theorem")
	if err != nil {
		t.Fatalf("unknown query must not error: %v", err)
	}
	if len(result.Vector) != 8 {
		t.Fatalf("vector size %d, want 8", len(result.Vector))
	}
	for i, v := range result.Vector {
		if v != 0 {
			t.Fatalf("vector[%d] = %v, want 0", i, v)
		}
	}
	if len(result.RulesApplied) != 0 || result.Confidence != 0 {
		t.Fatalf("neutral result carries trace: %+v", result)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStatic(8, nil)
	if _, err := s.Reason(ctx, []Fact{{"x": 1.0}}, QueryClassify); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFingerprintStability(t *testing.T) {
	a := fingerprint([]Fact{{"a": 1.0, "b": []float64{1, 2}}})
	b := fingerprint([]Fact{{"b": []float64{1, 2}, "a": 1.0}})
	if a != b {
		t.Fatal("fingerprint depends on key order")
	}
	c := fingerprint([]Fact{{"a": 1.0, "b": []float64{1, 3}}})
	if a == c {
		t.Fatal("fingerprint collision for different facts")
	}
}

func TestCachedHitsAndPurge(t *testing.T) {
	cached, err := NewCached(NewStatic(8, nil), 16)
	if err != nil {
		t.Fatalf("new cached: %v", err)
	}
	ctx := context.Background()
	facts := []Fact{{"x": 1.0}}

	first, _ := cached.Reason(ctx, facts, QueryClassify)
	second, _ := cached.Reason(ctx, facts, QueryClassify)
	for i := range first.Vector {
		if first.Vector[i] != second.Vector[i] {
			t.Fatal("cache returned a different result")
		}
	}
	hits, misses := cached.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("hits=%d misses=%d, want 1/1", hits, misses)
	}

	// Same facts under a different query miss separately.
	if _, err := cached.Reason(ctx, facts, QueryExplain); err != nil {
		t.Fatalf("explain: %v", err)
	}
	if _, misses = cached.Stats(); misses != 2 {
		t.Fatalf("misses=%d, want 2", misses)
	}

	if err := cached.AddKnowledge([]string{"r"}); err != nil {
		t.Fatalf("add knowledge: %v", err)
	}
	if _, err := cached.Reason(ctx, facts, QueryClassify); err != nil {
		t.Fatalf("reason after purge: %v", err)
	}
	if _, misses = cached.Stats(); misses != 3 {
		t.Fatalf("misses=%d after purge, want 3", misses)
	}
}
