package reasoner

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"neurosym/internal/logging"
)

// featureDecl declares the base predicate that carries per-instance feature
// facts. Rules reference it as feature(Name, Value).
const featureDecl = "Decl feature(FeatureName, FeatureValue).\n"

// Datalog is a forward-chaining reasoning backend built on Google Mangle.
// Configured rules are Mangle clauses over the feature/2 base predicate; a
// reasoning call asserts the instance's facts, evaluates the program, and
// reads back which rule heads derived at least one fact. The symbolic vector
// folds per-head derivation counts into the configured width, so identical
// facts always produce identical results.
type Datalog struct {
	outputSize int

	mu          sync.RWMutex
	rules       []string
	programInfo *analysis.ProgramInfo
	predIndex   map[string]ast.PredicateSym
	ruleHeads   []string // sorted head predicate names, the trace universe
}

// NewDatalog creates a Datalog backend with the given initial rule set.
func NewDatalog(outputSize int, rules []string) (*Datalog, error) {
	d := &Datalog{
		outputSize: outputSize,
		rules:      append([]string(nil), rules...),
	}
	if err := d.rebuildProgram(); err != nil {
		return nil, err
	}
	return d, nil
}

// rebuildProgram reparses and reanalyzes the full rule set. Caller must hold
// the write lock (or be the constructor).
func (d *Datalog) rebuildProgram() error {
	var src strings.Builder
	src.WriteString(featureDecl)
	for _, rule := range d.rules {
		src.WriteString(strings.TrimSpace(rule))
		src.WriteString("\n")
	}

	unit, err := parse.Unit(bytes.NewReader([]byte(src.String())))
	if err != nil {
		return fmt.Errorf("parse rules: %w", err)
	}

	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analyze rules: %w", err)
	}

	predIndex := make(map[string]ast.PredicateSym, len(programInfo.Decls))
	for sym := range programInfo.Decls {
		predIndex[sym.Symbol] = sym
	}

	headSet := make(map[string]struct{})
	for _, clause := range programInfo.Rules {
		headSet[clause.Head.Predicate.Symbol] = struct{}{}
	}
	heads := make([]string, 0, len(headSet))
	for h := range headSet {
		heads = append(heads, h)
	}
	sort.Strings(heads)

	d.programInfo = programInfo
	d.predIndex = predIndex
	d.ruleHeads = heads

	logging.Reasoning("datalog backend: program rebuilt, %d rules, %d heads", len(d.rules), len(heads))
	return nil
}

// Reason implements Reasoner. Each call evaluates against a fresh fact store,
// so reasoning calls never observe each other's assertions.
func (d *Datalog) Reason(ctx context.Context, facts []Fact, query string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if query != QueryClassify && query != QueryExplain {
		return neutralResult(d.outputSize), nil
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	timer := logging.StartTimer(logging.CategoryReasoning, "datalog reason")
	defer timer.Stop()

	baseStore := factstore.NewSimpleInMemoryStore()
	store := factstore.NewConcurrentFactStore(baseStore)

	asserted := 0
	featureSym, haveFeature := d.predIndex["feature"]
	if haveFeature {
		for _, fact := range facts {
			keys := make([]string, 0, len(fact))
			for k := range fact {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				atoms, err := featureAtoms(featureSym, k, fact[k])
				if err != nil {
					return Result{}, fmt.Errorf("assert fact %q: %w", k, err)
				}
				for _, atom := range atoms {
					if store.Add(atom) {
						asserted++
					}
				}
			}
		}
	}

	if _, err := mengine.EvalProgramWithStats(d.programInfo, store); err != nil {
		return Result{}, fmt.Errorf("evaluate program: %w", err)
	}

	vec := make([]float64, d.outputSize)
	var fired []string
	derived := 0
	for i, head := range d.ruleHeads {
		sym, ok := d.predIndex[head]
		if !ok {
			continue
		}
		count := 0
		_ = store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			count++
			return nil
		})
		derived += count
		if count > 0 {
			fired = append(fired, head)
		}
		// Squash counts so a prolific rule cannot dominate the embedding.
		vec[i%d.outputSize] += math.Tanh(float64(count))
	}

	result := Result{
		Vector:       vec,
		RulesApplied: fired,
	}
	if len(d.ruleHeads) > 0 {
		result.Confidence = float64(len(fired)) / float64(len(d.ruleHeads))
	}
	if query == QueryExplain {
		result.Steps = []string{
			fmt.Sprintf("Asserted %d feature facts", asserted),
			fmt.Sprintf("Evaluated %d rules", len(d.rules)),
			fmt.Sprintf("Derived %d facts across %d heads", derived, len(fired)),
		}
	}
	return result, nil
}

// featureAtoms converts one fact entry into feature/2 atoms. Numeric slices
// expand into one atom per element with an indexed name.
func featureAtoms(sym ast.PredicateSym, key string, value interface{}) ([]ast.Atom, error) {
	switch v := value.(type) {
	case []float64:
		atoms := make([]ast.Atom, len(v))
		for i, f := range v {
			atoms[i] = ast.Atom{
				Predicate: sym,
				Args:      []ast.BaseTerm{ast.String(fmt.Sprintf("%s_%d", key, i)), ast.Float64(f)},
			}
		}
		return atoms, nil
	case float64:
		return []ast.Atom{{
			Predicate: sym,
			Args:      []ast.BaseTerm{ast.String(key), ast.Float64(v)},
		}}, nil
	case int:
		return []ast.Atom{{
			Predicate: sym,
			Args:      []ast.BaseTerm{ast.String(key), ast.Number(int64(v))},
		}}, nil
	case int64:
		return []ast.Atom{{
			Predicate: sym,
			Args:      []ast.BaseTerm{ast.String(key), ast.Number(v)},
		}}, nil
	case string:
		return []ast.Atom{{
			Predicate: sym,
			Args:      []ast.BaseTerm{ast.String(key), ast.String(v)},
		}}, nil
	case bool:
		term := ast.BaseTerm(ast.FalseConstant)
		if v {
			term = ast.TrueConstant
		}
		return []ast.Atom{{
			Predicate: sym,
			Args:      []ast.BaseTerm{ast.String(key), term},
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported fact value type %T", value)
	}
}

// AddKnowledge implements Reasoner. The rule set only ever grows.
func (d *Datalog) AddKnowledge(rules []string) error {
	if len(rules) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.rules
	d.rules = append(append([]string(nil), d.rules...), rules...)
	if err := d.rebuildProgram(); err != nil {
		d.rules = prev
		return fmt.Errorf("reasoner: add knowledge: %w", err)
	}
	return nil
}

// ExplainReasoning implements Reasoner.
func (d *Datalog) ExplainReasoning(result Result) string {
	if len(result.RulesApplied) == 0 {
		return "No rules fired"
	}
	return fmt.Sprintf("Fired %s with confidence %.2f",
		strings.Join(result.RulesApplied, ", "), result.Confidence)
}

// OutputSize implements Reasoner.
func (d *Datalog) OutputSize() int { return d.outputSize }
