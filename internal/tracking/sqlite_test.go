package tracking

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSink(t *testing.T) *SQLiteSink {
	t.Helper()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func TestRunRoundTrip(t *testing.T) {
	sink := openSink(t)
	runID := uuid.NewString()

	require.NoError(t, sink.StartRun(runID, "late_fusion/static"))
	require.NoError(t, sink.LogParams(runID, map[string]string{
		"fusion_method": "late_fusion",
		"epochs":        "30",
	}))
	require.NoError(t, sink.LogMetrics(runID, map[string]float64{
		"accuracy": 0.92,
		"f1_score": 0.91,
	}))
	require.NoError(t, sink.LogArtifact(runID, "checkpoint", "file:///tmp/model.db"))

	params, err := sink.Params(runID)
	require.NoError(t, err)
	assert.Equal(t, "late_fusion", params["fusion_method"])
	assert.Equal(t, "30", params["epochs"])

	metrics, err := sink.Metrics(runID)
	require.NoError(t, err)
	assert.Equal(t, 0.92, metrics["accuracy"])
	assert.Equal(t, 0.91, metrics["f1_score"])

	runs, err := sink.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{runID}, runs)
}

func TestMetricOverwrite(t *testing.T) {
	sink := openSink(t)
	runID := uuid.NewString()
	require.NoError(t, sink.StartRun(runID, "run"))

	require.NoError(t, sink.LogMetrics(runID, map[string]float64{"accuracy": 0.5}))
	require.NoError(t, sink.LogMetrics(runID, map[string]float64{"accuracy": 0.8}))

	metrics, err := sink.Metrics(runID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, metrics["accuracy"])
}

func TestDuplicateRunRejected(t *testing.T) {
	sink := openSink(t)
	runID := uuid.NewString()
	require.NoError(t, sink.StartRun(runID, "first"))
	assert.Error(t, sink.StartRun(runID, "second"))
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	assert.NoError(t, sink.StartRun("id", "name"))
	assert.NoError(t, sink.LogParams("id", map[string]string{"k": "v"}))
	assert.NoError(t, sink.LogMetrics("id", map[string]float64{"k": 1}))
	assert.NoError(t, sink.LogArtifact("id", "n", "uri"))
	assert.NoError(t, sink.Close())
}
