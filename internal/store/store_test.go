package store

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"neurosym/internal/config"
	"neurosym/internal/model"
	"neurosym/internal/tensor"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Model.InputSize = 4
	cfg.Model.HiddenLayers = []int{8, 4}
	cfg.Model.NumClasses = 2
	cfg.Model.Seed = 7
	cfg.Training.Epochs = 10
	cfg.Training.BatchSize = 8
	cfg.Reasoning.OutputSize = 4
	return cfg
}

func trainedModel(t *testing.T, seed int64) *model.Classifier {
	t.Helper()
	cfg := testConfig()
	cfg.Model.Seed = seed

	m, err := model.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	rng := rand.New(rand.NewSource(seed))
	x := tensor.New(16, 4)
	labels := make([]int, 16)
	for i := range labels {
		for j := 0; j < 4; j++ {
			x.Set(i, j, rng.NormFloat64())
		}
		labels[i] = i % 2
	}
	if err := m.Fit(x, labels); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return m
}

func openStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st := openStore(t)
	m := trainedModel(t, 7)

	version, err := st.Save(m, "baseline")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if version != m.Version() {
		t.Fatalf("saved version %q, model version %q", version, m.Version())
	}

	loaded, err := st.Load(version)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	x := tensor.New(5, 4)
	rng := rand.New(rand.NewSource(99))
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64()
	}
	want, err := m.PredictProbabilities(x)
	if err != nil {
		t.Fatalf("probabilities: %v", err)
	}
	got, err := loaded.PredictProbabilities(x)
	if err != nil {
		t.Fatalf("loaded probabilities: %v", err)
	}
	for i := range want.Data {
		if got.Data[i] != want.Data[i] {
			t.Fatalf("loaded model differs at %d: %v vs %v", i, got.Data[i], want.Data[i])
		}
	}
}

func TestSaveUntrainedRefused(t *testing.T) {
	st := openStore(t)
	m, err := model.New(testConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var notTrained *model.NotTrainedError
	if _, err := st.Save(m, "untrained"); !errors.As(err, &notTrained) {
		t.Fatalf("save: %v, want NotTrainedError", err)
	}
}

func TestLoadMissing(t *testing.T) {
	st := openStore(t)
	if _, err := st.Load("no-such-version"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load: %v, want ErrNotFound", err)
	}
	if _, err := st.LoadLatest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("latest on empty store: %v, want ErrNotFound", err)
	}
}

func TestListAndLatest(t *testing.T) {
	st := openStore(t)

	first := trainedModel(t, 1)
	second := trainedModel(t, 2)
	if _, err := st.Save(first, "first"); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if _, err := st.Save(second, "second"); err != nil {
		t.Fatalf("save second: %v", err)
	}

	infos, err := st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("%d checkpoints, want 2", len(infos))
	}

	latest, err := st.LoadLatest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Version() != second.Version() {
		t.Fatalf("latest = %q, want %q", latest.Version(), second.Version())
	}
}

func TestDelete(t *testing.T) {
	st := openStore(t)
	m := trainedModel(t, 7)

	version, err := st.Save(m, "doomed")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.Delete(version); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Load(version); !errors.Is(err, ErrNotFound) {
		t.Fatalf("load deleted: %v, want ErrNotFound", err)
	}
	if err := st.Delete(version); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete: %v, want ErrNotFound", err)
	}
}
