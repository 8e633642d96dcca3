// Package experiment runs classifier configurations against a dataset and
// records the results through a tracking sink. Runs are independent (each
// model owns its parameters and RNG), so they execute concurrently.
package experiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"neurosym/internal/config"
	"neurosym/internal/dataset"
	"neurosym/internal/logging"
	"neurosym/internal/model"
	"neurosym/internal/tracking"
)

// Run is the outcome of one trained and evaluated configuration.
type Run struct {
	ID     string
	Name   string
	Config config.Config
	Report *model.Report
	Model  *model.Classifier
	Err    error
}

// Runner trains and evaluates a set of configurations.
type Runner struct {
	sink        tracking.Sink
	concurrency int
}

// NewRunner builds a runner. A nil sink disables tracking; concurrency <= 0
// means unbounded.
func NewRunner(sink tracking.Sink, concurrency int) *Runner {
	if sink == nil {
		sink = tracking.NopSink{}
	}
	return &Runner{sink: sink, concurrency: concurrency}
}

// Sweep trains every configuration on the train split and evaluates it on the
// test split. All runs are attempted; per-run failures are captured in the
// returned slice rather than aborting the sweep. Results come back in input
// order.
func (r *Runner) Sweep(ctx context.Context, configs []config.Config, train, test *dataset.Dataset) ([]Run, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("experiment: no configurations")
	}

	runs := make([]Run, len(configs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, cfg := range configs {
		i, cfg := i, cfg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				runs[i] = Run{ID: uuid.NewString(), Config: cfg, Err: err}
				mu.Unlock()
				return nil
			}
			run := r.execute(cfg, train, test)
			mu.Lock()
			runs[i] = run
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return runs, err
	}
	return runs, nil
}

// execute trains and evaluates a single configuration.
func (r *Runner) execute(cfg config.Config, train, test *dataset.Dataset) Run {
	run := Run{
		ID:     uuid.NewString(),
		Name:   describe(cfg),
		Config: cfg,
	}
	logging.Tracking("run %s starting: %s", run.ID, run.Name)

	if err := r.sink.StartRun(run.ID, run.Name); err != nil {
		run.Err = err
		return run
	}
	if err := r.sink.LogParams(run.ID, paramsOf(cfg)); err != nil {
		run.Err = err
		return run
	}

	m, err := model.New(cfg)
	if err != nil {
		run.Err = err
		return run
	}
	if err := m.Fit(train.Features, train.Labels); err != nil {
		run.Err = err
		return run
	}

	report, err := m.Evaluate(test.Features, test.Labels)
	if err != nil {
		run.Err = err
		return run
	}
	run.Report = report
	run.Model = m

	run.Err = r.sink.LogMetrics(run.ID, map[string]float64{
		"accuracy":       report.Accuracy,
		"precision":      report.Precision,
		"recall":         report.Recall,
		"f1_score":       report.F1Score,
		"explainability": report.ExplainabilityScore,
		"robustness":     report.RobustnessScore,
	})
	logging.Tracking("run %s finished: accuracy=%.4f f1=%.4f", run.ID, report.Accuracy, report.F1Score)
	return run
}

// Best returns the completed run with the highest F1 score, or an error when
// every run failed.
func Best(runs []Run) (Run, error) {
	best := -1
	for i, run := range runs {
		if run.Err != nil || run.Report == nil {
			continue
		}
		if best < 0 || run.Report.F1Score > runs[best].Report.F1Score {
			best = i
		}
	}
	if best < 0 {
		return Run{}, fmt.Errorf("experiment: all %d runs failed", len(runs))
	}
	return runs[best], nil
}

// describe builds a short human-readable run name from the varying knobs.
func describe(cfg config.Config) string {
	dims := make([]string, len(cfg.Model.HiddenLayers))
	for i, w := range cfg.Model.HiddenLayers {
		dims[i] = strconv.Itoa(w)
	}
	return fmt.Sprintf("%s/%s hidden=%s lr=%g",
		cfg.Model.FusionMethod, cfg.Reasoning.Engine, strings.Join(dims, "-"), cfg.Training.LearningRate)
}

// paramsOf flattens the tracked hyperparameters into the sink's string form.
func paramsOf(cfg config.Config) map[string]string {
	dims := make([]string, len(cfg.Model.HiddenLayers))
	for i, w := range cfg.Model.HiddenLayers {
		dims[i] = strconv.Itoa(w)
	}
	return map[string]string{
		"fusion_method":   cfg.Model.FusionMethod,
		"reasoning":       cfg.Reasoning.Engine,
		"hidden_layers":   strings.Join(dims, ","),
		"dropout_rate":    strconv.FormatFloat(cfg.Model.DropoutRate, 'g', -1, 64),
		"learning_rate":   strconv.FormatFloat(cfg.Training.LearningRate, 'g', -1, 64),
		"epochs":          strconv.Itoa(cfg.Training.Epochs),
		"batch_size":      strconv.Itoa(cfg.Training.BatchSize),
		"seed":            strconv.FormatInt(cfg.Model.Seed, 10),
		"symbolic_output": strconv.Itoa(cfg.Reasoning.OutputSize),
	}
}
