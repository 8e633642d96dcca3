// Package encoder implements the neural feature encoder: a stack of affine
// transforms with ReLU activations and inverted dropout between layers,
// mapping raw feature vectors to a latent representation. Dropout is
// controlled by an explicit mode parameter, never ambient state: eval-mode
// forward passes are fully deterministic.
package encoder

import (
	"fmt"
	"math/rand"

	"neurosym/internal/tensor"
)

// Mode selects deterministic evaluation or stochastic training behavior.
type Mode int

const (
	// Eval disables dropout; forward passes are deterministic.
	Eval Mode = iota
	// Train applies a fresh dropout mask per call.
	Train
)

// Encoder is a multi-layer nonlinear transform. The layer stack is
// input -> hidden[0] -> ... -> hidden[n-1] -> hidden[n-1], every layer
// affine + ReLU, with dropout after every layer except the last.
type Encoder struct {
	inputSize   int
	outDims     []int
	dropoutRate float64
	rng         *rand.Rand

	weights []*tensor.Matrix // in x out per layer
	biases  []*tensor.Matrix // 1 x out per layer

	cache *forwardCache
}

type forwardCache struct {
	input       *tensor.Matrix
	preActs     []*tensor.Matrix // z per layer, before ReLU
	activations []*tensor.Matrix // a per layer, after ReLU and dropout
	masks       []*tensor.Matrix // inverted dropout masks, nil where not applied
}

// New constructs an encoder with Xavier-initialized weights drawn from rng.
func New(inputSize int, hiddenLayers []int, dropoutRate float64, rng *rand.Rand) (*Encoder, error) {
	if inputSize <= 0 {
		return nil, fmt.Errorf("encoder: input size must be positive, got %d", inputSize)
	}
	if len(hiddenLayers) == 0 {
		return nil, fmt.Errorf("encoder: at least one hidden layer required")
	}

	// The final layer maps the last hidden width onto itself so the latent
	// representation has a nonlinearity on top.
	outDims := append(append([]int(nil), hiddenLayers...), hiddenLayers[len(hiddenLayers)-1])

	e := &Encoder{
		inputSize:   inputSize,
		outDims:     outDims,
		dropoutRate: dropoutRate,
		rng:         rng,
	}

	inDim := inputSize
	for _, outDim := range outDims {
		e.weights = append(e.weights, tensor.Xavier(inDim, outDim, rng))
		e.biases = append(e.biases, tensor.New(1, outDim))
		inDim = outDim
	}
	return e, nil
}

// InputSize returns the expected feature width.
func (e *Encoder) InputSize() int { return e.inputSize }

// LatentSize returns the width of the latent representation.
func (e *Encoder) LatentSize() int { return e.outDims[len(e.outDims)-1] }

// Forward maps a [batch, inputSize] matrix to [batch, latentSize]. In Train
// mode a fresh dropout mask is drawn per call and the cache needed by
// Backward is retained until the next training-mode Forward. Eval passes
// write no shared state, so concurrent eval calls on one encoder are safe.
func (e *Encoder) Forward(x *tensor.Matrix, mode Mode) (*tensor.Matrix, error) {
	out, cache, err := e.forward(x, mode)
	if err != nil {
		return nil, err
	}
	if mode == Train {
		e.cache = cache
	}
	return out, nil
}

func (e *Encoder) forward(x *tensor.Matrix, mode Mode) (*tensor.Matrix, *forwardCache, error) {
	if x.Cols != e.inputSize {
		return nil, nil, fmt.Errorf("encoder: input width %d does not match configured %d", x.Cols, e.inputSize)
	}

	cache := &forwardCache{
		input:       x,
		preActs:     make([]*tensor.Matrix, len(e.weights)),
		activations: make([]*tensor.Matrix, len(e.weights)),
		masks:       make([]*tensor.Matrix, len(e.weights)),
	}

	act := x
	for i := range e.weights {
		z := tensor.MatMul(act, e.weights[i]).AddRow(e.biases[i].Row(0))
		cache.preActs[i] = z.Clone()

		act = z.ReLU()
		if mode == Train && e.dropoutRate > 0 && i < len(e.weights)-1 {
			mask := e.dropoutMask(act.Rows, act.Cols)
			act = act.MulElem(mask)
			cache.masks[i] = mask
		}
		cache.activations[i] = act
	}

	return act, cache, nil
}

// dropoutMask draws an inverted-dropout mask: kept units scale by 1/(1-p) so
// eval-mode activations need no rescaling.
func (e *Encoder) dropoutMask(rows, cols int) *tensor.Matrix {
	keep := 1.0 - e.dropoutRate
	mask := tensor.New(rows, cols)
	for i := range mask.Data {
		if e.rng.Float64() < keep {
			mask.Data[i] = 1.0 / keep
		}
	}
	return mask
}

// Backward propagates gradOut (dL/dlatent) through the stack, returning
// parameter gradients aligned with Params() and the gradient with respect to
// the input features. Requires a preceding training-mode Forward.
func (e *Encoder) Backward(gradOut *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix, error) {
	if e.cache == nil {
		return nil, nil, fmt.Errorf("encoder: Backward called before a training-mode Forward")
	}
	grads, gradInput := e.backprop(e.cache, gradOut)
	return grads, gradInput, nil
}

func (e *Encoder) backprop(cache *forwardCache, gradOut *tensor.Matrix) ([]*tensor.Matrix, *tensor.Matrix) {
	grads := make([]*tensor.Matrix, 2*len(e.weights))
	delta := gradOut.Clone()

	for i := len(e.weights) - 1; i >= 0; i-- {
		if mask := cache.masks[i]; mask != nil {
			delta.MulElem(mask)
		}
		// ReLU gate: gradient flows only where the pre-activation was positive.
		pre := cache.preActs[i]
		for j, z := range pre.Data {
			if z <= 0 {
				delta.Data[j] = 0
			}
		}

		prev := cache.input
		if i > 0 {
			prev = cache.activations[i-1]
		}
		grads[2*i] = tensor.MatMul(prev.Transpose(), delta)
		db := tensor.New(1, delta.Cols)
		copy(db.Data, delta.ColSums())
		grads[2*i+1] = db

		delta = tensor.MatMul(delta, e.weights[i].Transpose())
	}

	return grads, delta
}

// InputGradients computes d sum(latent) / d input in eval mode, the quantity
// behind gradient-based feature attribution. The pass uses a per-call cache,
// so concurrent calls on one encoder are safe.
func (e *Encoder) InputGradients(x *tensor.Matrix) (*tensor.Matrix, error) {
	latent, cache, err := e.forward(x, Eval)
	if err != nil {
		return nil, err
	}
	ones := tensor.New(latent.Rows, latent.Cols)
	for i := range ones.Data {
		ones.Data[i] = 1
	}
	_, gradInput := e.backprop(cache, ones)
	return gradInput, nil
}

// Params returns the learnable parameters in update order: W0, b0, W1, b1...
func (e *Encoder) Params() []*tensor.Matrix {
	params := make([]*tensor.Matrix, 0, 2*len(e.weights))
	for i := range e.weights {
		params = append(params, e.weights[i], e.biases[i])
	}
	return params
}
