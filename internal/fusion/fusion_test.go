package fusion

import (
	"math/rand"
	"strings"
	"testing"

	"neurosym/internal/config"
	"neurosym/internal/tensor"
)

func testOptions() Options {
	return Options{
		LatentSize:   4,
		SymbolicSize: 4,
		Hidden:       8,
		NumClasses:   3,
		Heads:        2,
		DropoutRate:  0,
	}
}

func randomMatrix(rows, cols int, seed int64) *tensor.Matrix {
	rng := rand.New(rand.NewSource(seed))
	m := tensor.New(rows, cols)
	for i := range m.Data {
		m.Data[i] = rng.NormFloat64()
	}
	return m
}

func TestNewUnknownMethod(t *testing.T) {
	_, err := New("majority_vote", testOptions(), rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected error for unknown fusion method")
	}
}

func TestAttentionHeadDivisibility(t *testing.T) {
	opts := testOptions()
	opts.Heads = 3 // fused width 8 is not divisible by 3
	_, err := New(config.FusionAttention, opts, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatal("expected error for indivisible head count")
	}
	if !strings.Contains(err.Error(), "do not evenly divide") {
		t.Fatalf("unhelpful error: %v", err)
	}

	opts.Heads = 0
	if _, err := New(config.FusionAttention, opts, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error for zero heads")
	}
}

func TestStrategies(t *testing.T) {
	for _, method := range []string{config.FusionLate, config.FusionAttention} {
		t.Run(method, func(t *testing.T) {
			s, err := New(method, testOptions(), rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			if s.Method() != method {
				t.Fatalf("method = %q, want %q", s.Method(), method)
			}

			latent := randomMatrix(5, 4, 2)
			symbolic := randomMatrix(5, 4, 3)

			logits, err := s.Forward(latent, symbolic, true)
			if err != nil {
				t.Fatalf("forward: %v", err)
			}
			if logits.Rows != 5 || logits.Cols != 3 {
				t.Fatalf("logits shape %dx%d, want 5x3", logits.Rows, logits.Cols)
			}
			if !logits.AllFinite() {
				t.Fatal("non-finite logits")
			}

			grads, gradLatent, err := s.Backward(randomMatrix(5, 3, 4))
			if err != nil {
				t.Fatalf("backward: %v", err)
			}
			params := s.Params()
			if len(grads) != len(params) {
				t.Fatalf("%d gradients for %d params", len(grads), len(params))
			}
			for i := range params {
				if grads[i].Rows != params[i].Rows || grads[i].Cols != params[i].Cols {
					t.Fatalf("grad %d shape %dx%d, param %dx%d",
						i, grads[i].Rows, grads[i].Cols, params[i].Rows, params[i].Cols)
				}
			}
			if gradLatent.Rows != 5 || gradLatent.Cols != 4 {
				t.Fatalf("latent gradient shape %dx%d, want 5x4", gradLatent.Rows, gradLatent.Cols)
			}
		})
	}
}

func TestForwardDeterministicOutsideTraining(t *testing.T) {
	s, _ := New(config.FusionLate, testOptions(), rand.New(rand.NewSource(1)))
	latent := randomMatrix(2, 4, 2)
	symbolic := randomMatrix(2, 4, 3)

	a, _ := s.Forward(latent, symbolic, false)
	a = a.Clone()
	b, _ := s.Forward(latent, symbolic, false)
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("inference forward not deterministic at %d", i)
		}
	}
}

func TestEvalForwardWritesNoCache(t *testing.T) {
	for _, method := range []string{config.FusionLate, config.FusionAttention} {
		t.Run(method, func(t *testing.T) {
			s, err := New(method, testOptions(), rand.New(rand.NewSource(1)))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			latent := randomMatrix(2, 4, 2)
			symbolic := randomMatrix(2, 4, 3)

			// A training pass fills the backward cache; subsequent eval
			// passes must leave it untouched.
			if _, err := s.Forward(latent, symbolic, true); err != nil {
				t.Fatalf("train forward: %v", err)
			}
			trainGrads, trainLatent, err := s.Backward(randomMatrix(2, 3, 4))
			if err != nil {
				t.Fatalf("backward: %v", err)
			}

			if _, err := s.Forward(randomMatrix(2, 4, 5), randomMatrix(2, 4, 6), false); err != nil {
				t.Fatalf("eval forward: %v", err)
			}
			evalGrads, evalLatent, err := s.Backward(randomMatrix(2, 3, 4))
			if err != nil {
				t.Fatalf("backward after eval: %v", err)
			}

			for i := range trainGrads {
				for j := range trainGrads[i].Data {
					if trainGrads[i].Data[j] != evalGrads[i].Data[j] {
						t.Fatal("eval forward overwrote the training cache")
					}
				}
			}
			for i := range trainLatent.Data {
				if trainLatent.Data[i] != evalLatent.Data[i] {
					t.Fatal("eval forward overwrote the training cache")
				}
			}
		})
	}
}

func TestAttentionQueryKeyGradientsAreZero(t *testing.T) {
	s, err := newAttention(testOptions(), rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := s.Forward(randomMatrix(3, 4, 2), randomMatrix(3, 4, 3), true); err != nil {
		t.Fatalf("forward: %v", err)
	}
	grads, _, err := s.Backward(randomMatrix(3, 3, 4))
	if err != nil {
		t.Fatalf("backward: %v", err)
	}
	// A single-token sequence gives the softmax nothing to weigh, so the
	// query and key projections receive no gradient.
	for _, g := range []*tensor.Matrix{grads[0], grads[1]} {
		for _, v := range g.Data {
			if v != 0 {
				t.Fatal("expected zero gradient for query/key projections")
			}
		}
	}
}
