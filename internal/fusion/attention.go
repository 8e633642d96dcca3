package fusion

import (
	"fmt"
	"math/rand"

	"neurosym/internal/config"
	"neurosym/internal/logging"
	"neurosym/internal/tensor"
)

// Attention treats the concatenated latent + symbolic vector as a
// single-token sequence, applies multi-head self-attention over it, and
// projects the attended representation through the dense output head.
//
// With a single token the softmax over keys is identically one, so the
// attended value reduces to the value projection and the query/key
// projections receive no gradient. They are still parameters of the strategy
// (checkpoints keep them), matching the reference attention module's shape.
type Attention struct {
	latentSize   int
	symbolicSize int
	embedDim     int
	heads        int
	headDim      int

	wq, wk, wv, wo *tensor.Matrix
	head           *outputHead

	in       *tensor.Matrix
	attended *tensor.Matrix
}

func newAttention(opts Options, rng *rand.Rand) (*Attention, error) {
	embedDim := opts.LatentSize + opts.SymbolicSize
	if opts.Heads <= 0 {
		return nil, fmt.Errorf("fusion: attention head count must be positive, got %d", opts.Heads)
	}
	if embedDim%opts.Heads != 0 {
		return nil, fmt.Errorf("fusion: %d attention heads do not evenly divide fused width %d", opts.Heads, embedDim)
	}

	logging.Fusion("attention fusion: embed=%d heads=%d head_dim=%d", embedDim, opts.Heads, embedDim/opts.Heads)

	return &Attention{
		latentSize:   opts.LatentSize,
		symbolicSize: opts.SymbolicSize,
		embedDim:     embedDim,
		heads:        opts.Heads,
		headDim:      embedDim / opts.Heads,
		wq:           tensor.Xavier(embedDim, embedDim, rng),
		wk:           tensor.Xavier(embedDim, embedDim, rng),
		wv:           tensor.Xavier(embedDim, embedDim, rng),
		wo:           tensor.Xavier(embedDim, embedDim, rng),
		head:         newOutputHead(embedDim, opts.Hidden, opts.NumClasses, opts.DropoutRate, rng),
	}, nil
}

// Forward implements Strategy.
func (a *Attention) Forward(latent, symbolic *tensor.Matrix, train bool) (*tensor.Matrix, error) {
	x := tensor.Concat(latent, symbolic)

	// Per head the attention weight is softmax(q.k / sqrt(d)) over the
	// one-token sequence, which is exactly 1, so the attended representation
	// is the value projection and the query/key scores cancel out of the
	// forward pass entirely.
	attended := tensor.MatMul(x, a.wv)

	if train {
		a.in = x
		a.attended = attended
	}

	out := tensor.MatMul(attended, a.wo)
	return a.head.forward(out, train), nil
}

// Backward implements Strategy. Gradients for the query and key projections
// are zero (see type comment); they are emitted as zero matrices to keep
// Params alignment.
func (a *Attention) Backward(gradLogits *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix, error) {
	headGrads, dOut := a.head.backward(gradLogits)

	dwo := tensor.MatMul(a.attended.Transpose(), dOut)
	dAttended := tensor.MatMul(dOut, a.wo.Transpose())

	// attended == value projection for a single token
	dwv := tensor.MatMul(a.in.Transpose(), dAttended)
	dx := tensor.MatMul(dAttended, a.wv.Transpose())

	grads := []*tensor.Matrix{
		tensor.New(a.embedDim, a.embedDim), // dWq
		tensor.New(a.embedDim, a.embedDim), // dWk
		dwv,
		dwo,
	}
	grads = append(grads, headGrads...)

	return grads, dx.SliceCols(0, a.latentSize), nil
}

// Params implements Strategy.
func (a *Attention) Params() []*tensor.Matrix {
	return append([]*tensor.Matrix{a.wq, a.wk, a.wv, a.wo}, a.head.params()...)
}

// Method implements Strategy.
func (a *Attention) Method() string { return config.FusionAttention }
