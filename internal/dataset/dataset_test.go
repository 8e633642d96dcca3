package dataset

import (
	"strings"
	"testing"
)

const sample = `age,income,label
25,50000,0
40,80000,1
31,62000,1
58,45000,0
`

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if ds.Features.Rows != 4 || ds.Features.Cols != 2 {
		t.Fatalf("features %dx%d, want 4x2", ds.Features.Rows, ds.Features.Cols)
	}
	if ds.Features.At(1, 1) != 80000 {
		t.Fatalf("feature value = %v, want 80000", ds.Features.At(1, 1))
	}
	if len(ds.FeatureNames) != 2 || ds.FeatureNames[0] != "age" || ds.FeatureNames[1] != "income" {
		t.Fatalf("feature names = %v", ds.FeatureNames)
	}
	if want := []int{0, 1, 1, 0}; len(ds.Labels) != 4 || ds.Labels[1] != want[1] {
		t.Fatalf("labels = %v, want %v", ds.Labels, want)
	}
	if ds.NumClasses != 2 {
		t.Fatalf("num classes = %d, want 2", ds.NumClasses)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"header only", "a,b,label\n"},
		{"single column", "label\n1\n"},
		{"bad feature", "a,label\nx,0\n"},
		{"bad label", "a,label\n1.5,yes\n"},
		{"negative label", "a,label\n1.5,-1\n"},
		{"ragged row", "a,b,label\n1,2,0\n1,0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Read(strings.NewReader(tc.data)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestSplit(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	train, test, err := ds.Split(0.75)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if train.Features.Rows != 3 || test.Features.Rows != 1 {
		t.Fatalf("split %d/%d, want 3/1", train.Features.Rows, test.Features.Rows)
	}
	if test.Features.At(0, 0) != 58 {
		t.Fatalf("test row = %v, want the last sample", test.Features.Row(0))
	}
	if train.NumClasses != 2 || test.NumClasses != 2 {
		t.Fatal("split lost class count")
	}

	if _, _, err := ds.Split(0); err == nil {
		t.Fatal("expected error for zero fraction")
	}
	if _, _, err := ds.Split(0.01); err == nil {
		t.Fatal("expected error for empty train partition")
	}
}
