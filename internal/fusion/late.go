package fusion

import (
	"math/rand"

	"neurosym/internal/config"
	"neurosym/internal/tensor"
)

// Late concatenates the latent and symbolic vectors and passes the result
// through the dense output head. Deterministic given fixed weights (dropout
// applies only in training).
type Late struct {
	latentSize   int
	symbolicSize int
	head         *outputHead
}

func newLate(opts Options, rng *rand.Rand) *Late {
	return &Late{
		latentSize:   opts.LatentSize,
		symbolicSize: opts.SymbolicSize,
		head:         newOutputHead(opts.LatentSize+opts.SymbolicSize, opts.Hidden, opts.NumClasses, opts.DropoutRate, rng),
	}
}

// Forward implements Strategy.
func (l *Late) Forward(latent, symbolic *tensor.Matrix, train bool) (*tensor.Matrix, error) {
	fused := tensor.Concat(latent, symbolic)
	return l.head.forward(fused, train), nil
}

// Backward implements Strategy.
func (l *Late) Backward(gradLogits *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix, error) {
	grads, dFused := l.head.backward(gradLogits)
	return grads, dFused.SliceCols(0, l.latentSize), nil
}

// Params implements Strategy.
func (l *Late) Params() []*tensor.Matrix { return l.head.params() }

// Method implements Strategy.
func (l *Late) Method() string { return config.FusionLate }
