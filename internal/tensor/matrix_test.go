package tensor

import (
	"math"
	"math/rand"
	"testing"
)

func TestMatMul(t *testing.T) {
	a, _ := FromSlice(2, 3, []float64{1, 2, 3, 4, 5, 6})
	b, _ := FromSlice(3, 2, []float64{7, 8, 9, 10, 11, 12})

	out := MatMul(a, b)
	want := []float64{58, 64, 139, 154}
	for i, v := range want {
		if out.Data[i] != v {
			t.Fatalf("matmul[%d] = %v, want %v", i, out.Data[i], v)
		}
	}
}

func TestMatMulShapeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on shape mismatch")
		}
	}()
	MatMul(New(2, 3), New(2, 3))
}

func TestTranspose(t *testing.T) {
	m, _ := FromSlice(2, 3, []float64{1, 2, 3, 4, 5, 6})
	mt := m.Transpose()
	if mt.Rows != 3 || mt.Cols != 2 {
		t.Fatalf("transpose shape %dx%d, want 3x2", mt.Rows, mt.Cols)
	}
	if mt.At(0, 1) != 4 || mt.At(2, 0) != 3 {
		t.Fatalf("transpose values wrong: %v", mt.Data)
	}
}

func TestConcatAndSliceCols(t *testing.T) {
	a, _ := FromSlice(2, 2, []float64{1, 2, 3, 4})
	b, _ := FromSlice(2, 1, []float64{5, 6})

	joined := Concat(a, b)
	if joined.Cols != 3 {
		t.Fatalf("concat cols = %d, want 3", joined.Cols)
	}
	if joined.At(0, 2) != 5 || joined.At(1, 2) != 6 {
		t.Fatalf("concat misplaced right block: %v", joined.Data)
	}

	left := joined.SliceCols(0, 2)
	for i, v := range a.Data {
		if left.Data[i] != v {
			t.Fatalf("slice[%d] = %v, want %v", i, left.Data[i], v)
		}
	}
}

func TestSoftmaxRowsSumToOne(t *testing.T) {
	m, _ := FromSlice(2, 3, []float64{1, 2, 3, 1000, 1001, 1002})
	probs := m.SoftmaxRows()
	for i := 0; i < probs.Rows; i++ {
		sum := 0.0
		for _, v := range probs.Row(i) {
			if v < 0 || v > 1 {
				t.Fatalf("probability %v outside [0, 1]", v)
			}
			sum += v
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v", i, sum)
		}
	}
	// Shifted logits give the same distribution.
	if math.Abs(probs.At(0, 0)-probs.At(1, 0)) > 1e-9 {
		t.Fatalf("softmax is not shift invariant: %v vs %v", probs.At(0, 0), probs.At(1, 0))
	}
}

func TestReLUAndMulElem(t *testing.T) {
	m, _ := FromSlice(1, 4, []float64{-1, 0, 2, -3})
	m.ReLU()
	want := []float64{0, 0, 2, 0}
	for i, v := range want {
		if m.Data[i] != v {
			t.Fatalf("relu[%d] = %v, want %v", i, m.Data[i], v)
		}
	}

	mask, _ := FromSlice(1, 4, []float64{2, 2, 2, 2})
	m.MulElem(mask)
	if m.Data[2] != 4 {
		t.Fatalf("mulelem = %v, want 4", m.Data[2])
	}
}

func TestXavierDeterministic(t *testing.T) {
	a := Xavier(4, 4, rand.New(rand.NewSource(42)))
	b := Xavier(4, 4, rand.New(rand.NewSource(42)))
	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("same seed produced different weights at %d", i)
		}
	}
	scale := math.Sqrt(2.0 / 8.0)
	for _, v := range a.Data {
		if math.Abs(v) > scale {
			t.Fatalf("weight %v outside xavier bound %v", v, scale)
		}
	}
}

func TestFromRowsRagged(t *testing.T) {
	if _, err := FromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatal("expected error for ragged rows")
	}
}

func TestColMeanAbs(t *testing.T) {
	m, _ := FromSlice(2, 2, []float64{-1, 2, 3, -4})
	means := m.ColMeanAbs()
	if means[0] != 2 || means[1] != 3 {
		t.Fatalf("colmeanabs = %v, want [2 3]", means)
	}
}

func TestAllFinite(t *testing.T) {
	m, _ := FromSlice(1, 2, []float64{1, 2})
	if !m.AllFinite() {
		t.Fatal("finite matrix reported non-finite")
	}
	m.Data[1] = math.NaN()
	if m.AllFinite() {
		t.Fatal("NaN not detected")
	}
	m.Data[1] = math.Inf(1)
	if m.AllFinite() {
		t.Fatal("Inf not detected")
	}
}
