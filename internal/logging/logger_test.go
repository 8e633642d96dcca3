package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func configure(t *testing.T, o Options) string {
	t.Helper()
	dir := t.TempDir()
	if err := Configure(dir, o); err != nil {
		t.Fatalf("configure: %v", err)
	}
	t.Cleanup(func() {
		CloseAll()
		_ = Configure("", Options{})
	})
	return dir
}

func readCategoryLog(t *testing.T, dir string, category Category) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "logs", "*_"+string(category)+".log"))
	if err != nil || len(matches) == 0 {
		t.Fatalf("no log file for %s (err=%v)", category, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return string(data)
}

func TestDisabledIsNoop(t *testing.T) {
	configure(t, Options{DebugMode: false})
	Model("should go nowhere")
	if IsCategoryEnabled(CategoryModel) {
		t.Fatal("category enabled with debug mode off")
	}
}

func TestCategoryFiles(t *testing.T) {
	dir := configure(t, Options{DebugMode: true, Level: "info"})

	Model("state transition: constructed -> training")
	Training("epoch 10/100, loss: 0.5312")

	if got := readCategoryLog(t, dir, CategoryModel); !strings.Contains(got, "state transition") {
		t.Fatalf("model log = %q", got)
	}
	if got := readCategoryLog(t, dir, CategoryTraining); !strings.Contains(got, "epoch 10/100") {
		t.Fatalf("training log = %q", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := configure(t, Options{DebugMode: true, Level: "warn"})

	logger := Get(CategoryEval)
	logger.Info("filtered out")
	logger.Warn("kept")

	got := readCategoryLog(t, dir, CategoryEval)
	if strings.Contains(got, "filtered out") {
		t.Fatal("info line written at warn level")
	}
	if !strings.Contains(got, "kept") {
		t.Fatalf("warn line missing: %q", got)
	}
}

func TestCategoryDisable(t *testing.T) {
	configure(t, Options{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{string(CategoryReasoning): false},
	})

	if IsCategoryEnabled(CategoryReasoning) {
		t.Fatal("disabled category reported enabled")
	}
	if !IsCategoryEnabled(CategoryModel) {
		t.Fatal("unlisted category should stay enabled")
	}
}

func TestJSONFormat(t *testing.T) {
	dir := configure(t, Options{DebugMode: true, Level: "info", JSONFormat: true})

	Eval("accuracy computed")

	got := readCategoryLog(t, dir, CategoryEval)
	if !strings.Contains(got, `"cat":"eval"`) || !strings.Contains(got, `"msg":"accuracy computed"`) {
		t.Fatalf("json log = %q", got)
	}
}

func TestTimer(t *testing.T) {
	dir := configure(t, Options{DebugMode: true, Level: "debug"})

	timer := StartTimer(CategoryExplain, "explain")
	if elapsed := timer.Stop(); elapsed < 0 {
		t.Fatalf("elapsed = %v", elapsed)
	}

	got := readCategoryLog(t, dir, CategoryExplain)
	if !strings.Contains(got, "explain completed in") {
		t.Fatalf("timer log = %q", got)
	}
}
