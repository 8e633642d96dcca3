// Package reasoner provides the symbolic reasoning component of the hybrid
// classifier. A Reasoner turns per-instance facts into a fixed-size symbolic
// vector plus a rule trace. Backends are pluggable: a deterministic static
// embedding for reference use, and a Google Mangle Datalog engine for real
// forward-chaining deployments.
package reasoner

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"neurosym/internal/config"
)

// Queries understood by every backend. Anything else yields a neutral result.
const (
	QueryClassify = "classify"
	QueryExplain  = "explain_classification"
)

// Fact is a free-form key to value mapping describing one instance.
type Fact map[string]interface{}

// Result is the outcome of one reasoning call. Vector always has the
// configured output size, independent of input. Results handed out by a
// caching reasoner are shared; callers must treat them as read-only.
type Result struct {
	Vector       []float64 `json:"vector"`
	RulesApplied []string  `json:"rules_applied"`
	Steps        []string  `json:"steps"`
	Confidence   float64   `json:"confidence"`
}

// Reasoner is the capability interface for symbolic reasoning backends.
type Reasoner interface {
	// Reason evaluates the facts against the knowledge base. Unknown queries
	// return a neutral result, never an error.
	Reason(ctx context.Context, facts []Fact, query string) (Result, error)

	// AddKnowledge appends rules to the knowledge base.
	AddKnowledge(rules []string) error

	// ExplainReasoning renders a result as a human-readable summary.
	ExplainReasoning(result Result) string

	// OutputSize returns the fixed symbolic vector width.
	OutputSize() int
}

// New constructs a reasoner from configuration, selecting the backend by
// engine tag and wrapping it with an LRU cache when one is configured.
func New(cfg config.ReasoningConfig) (Reasoner, error) {
	var (
		inner Reasoner
		err   error
	)
	switch cfg.Engine {
	case config.EngineStatic, "":
		inner = NewStatic(cfg.OutputSize, cfg.Rules)
	case config.EngineDatalog:
		inner, err = NewDatalog(cfg.OutputSize, cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("reasoner: datalog backend: %w", err)
		}
	default:
		return nil, fmt.Errorf("reasoner: unknown engine %q", cfg.Engine)
	}

	if cfg.CacheSize > 0 {
		return NewCached(inner, cfg.CacheSize)
	}
	return inner, nil
}

// neutralResult is the defined response to unknown queries: zero vector,
// empty trace, zero confidence.
func neutralResult(size int) Result {
	return Result{Vector: make([]float64, size)}
}

// fingerprint produces a stable hash of a fact list. Map iteration order is
// neutralized by sorting keys; float64 values hash by bit pattern.
func fingerprint(facts []Fact) uint64 {
	h := fnv.New64a()
	for _, fact := range facts {
		keys := make([]string, 0, len(fact))
		for k := range fact {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "%s=", k)
			switch v := fact[k].(type) {
			case []float64:
				for _, f := range v {
					writeBits(h, f)
				}
			case float64:
				writeBits(h, v)
			default:
				fmt.Fprintf(h, "%v", v)
			}
			h.Write([]byte{';'})
		}
		h.Write([]byte{'|'})
	}
	return h.Sum64()
}

func writeBits(h interface{ Write([]byte) (int, error) }, f float64) {
	bits := math.Float64bits(f)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(bits >> (8 * i))
	}
	h.Write(buf[:])
}
