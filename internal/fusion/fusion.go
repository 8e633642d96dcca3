// Package fusion combines the encoder's latent representation with the
// symbolic vector into class logits. Two strategies are supported:
// concatenation through a dense head (late fusion) and single-token
// multi-head self-attention over the concatenated vector (attention fusion).
package fusion

import (
	"fmt"
	"math/rand"

	"neurosym/internal/config"
	"neurosym/internal/tensor"
)

// Strategy is the polymorphic fusion interface. A training-mode Forward
// retains the cache Backward needs; eval-mode Forward writes no shared state.
// Backward returns parameter gradients aligned with Params() plus the
// gradient flowing back into the latent representation (the symbolic side is
// non-parametric, its gradient is discarded).
type Strategy interface {
	Forward(latent, symbolic *tensor.Matrix, train bool) (*tensor.Matrix, error)
	Backward(gradLogits *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix, error)
	Params() []*tensor.Matrix
	Method() string
}

// Options carries the architecture parameters shared by all strategies.
type Options struct {
	LatentSize   int
	SymbolicSize int
	Hidden       int
	NumClasses   int
	Heads        int
	DropoutRate  float64
}

// New constructs a fusion strategy by method tag. Unknown methods and an
// attention head count that does not divide the fused width are construction
// errors.
func New(method string, opts Options, rng *rand.Rand) (Strategy, error) {
	switch method {
	case config.FusionLate:
		return newLate(opts, rng), nil
	case config.FusionAttention:
		return newAttention(opts, rng)
	default:
		return nil, fmt.Errorf("fusion: unknown method %q", method)
	}
}

// outputHead is the dense classification head shared by both strategies:
// fused -> hidden (ReLU, dropout) -> logits.
type outputHead struct {
	w1, b1      *tensor.Matrix
	w2, b2      *tensor.Matrix
	dropoutRate float64
	rng         *rand.Rand

	in    *tensor.Matrix
	pre   *tensor.Matrix
	act   *tensor.Matrix
	mask  *tensor.Matrix
}

func newOutputHead(inSize, hidden, classes int, dropoutRate float64, rng *rand.Rand) *outputHead {
	return &outputHead{
		w1:          tensor.Xavier(inSize, hidden, rng),
		b1:          tensor.New(1, hidden),
		w2:          tensor.Xavier(hidden, classes, rng),
		b2:          tensor.New(1, classes),
		dropoutRate: dropoutRate,
		rng:         rng,
	}
}

// forward runs the head. The cache backward needs is written only on
// training passes; eval passes touch no shared state, so concurrent
// inference through one head is safe.
func (h *outputHead) forward(in *tensor.Matrix, train bool) *tensor.Matrix {
	z := tensor.MatMul(in, h.w1).AddRow(h.b1.Row(0))
	var pre *tensor.Matrix
	if train {
		pre = z.Clone()
	}

	act := z.ReLU()
	var mask *tensor.Matrix
	if train && h.dropoutRate > 0 {
		keep := 1.0 - h.dropoutRate
		mask = tensor.New(act.Rows, act.Cols)
		for i := range mask.Data {
			if h.rng.Float64() < keep {
				mask.Data[i] = 1.0 / keep
			}
		}
		act = act.MulElem(mask)
	}

	if train {
		h.in = in
		h.pre = pre
		h.act = act
		h.mask = mask
	}

	return tensor.MatMul(act, h.w2).AddRow(h.b2.Row(0))
}

// backward returns [dW1, db1, dW2, db2] and the gradient at the head input.
// Requires a preceding training-mode forward.
func (h *outputHead) backward(gradLogits *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix) {
	dw2 := tensor.MatMul(h.act.Transpose(), gradLogits)
	db2 := tensor.New(1, gradLogits.Cols)
	copy(db2.Data, gradLogits.ColSums())

	dact := tensor.MatMul(gradLogits, h.w2.Transpose())
	if h.mask != nil {
		dact.MulElem(h.mask)
	}
	for i, z := range h.pre.Data {
		if z <= 0 {
			dact.Data[i] = 0
		}
	}

	dw1 := tensor.MatMul(h.in.Transpose(), dact)
	db1 := tensor.New(1, dact.Cols)
	copy(db1.Data, dact.ColSums())

	din := tensor.MatMul(dact, h.w1.Transpose())
	return []*tensor.Matrix{dw1, db1, dw2, db2}, din
}

func (h *outputHead) params() []*tensor.Matrix {
	return []*tensor.Matrix{h.w1, h.b1, h.w2, h.b2}
}
