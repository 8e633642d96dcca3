// Package tracking records experiment runs: parameters, metrics and
// artifacts, keyed by run ID. The SQLite sink is the durable implementation;
// NopSink serves configurations with tracking disabled.
package tracking

// Sink receives experiment tracking events. Implementations must be safe for
// concurrent use by multiple experiment runs.
type Sink interface {
	// StartRun registers a run and returns nothing; the caller owns the run ID.
	StartRun(runID, name string) error
	// LogParams records string-valued hyperparameters for a run.
	LogParams(runID string, params map[string]string) error
	// LogMetrics records numeric results for a run.
	LogMetrics(runID string, metrics map[string]float64) error
	// LogArtifact records a named artifact path or payload reference.
	LogArtifact(runID, name, uri string) error
	Close() error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) StartRun(string, string) error               { return nil }
func (NopSink) LogParams(string, map[string]string) error   { return nil }
func (NopSink) LogMetrics(string, map[string]float64) error { return nil }
func (NopSink) LogArtifact(string, string, string) error    { return nil }
func (NopSink) Close() error                                { return nil }
