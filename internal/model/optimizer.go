package model

import (
	"math"

	"neurosym/internal/tensor"
)

// adam is a standard Adam optimizer. Moment buffers are allocated lazily on
// the first step and persist across Fit calls, so an incremental fit resumes
// optimization rather than restarting it.
type adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64

	step int
	m    [][]float64
	v    [][]float64
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8}
}

// update applies one Adam step. params and grads must be aligned and keep a
// stable order and shape across calls.
func (a *adam) update(params, grads []*tensor.Matrix) {
	if a.m == nil {
		a.m = make([][]float64, len(params))
		a.v = make([][]float64, len(params))
		for i, p := range params {
			a.m[i] = make([]float64, len(p.Data))
			a.v[i] = make([]float64, len(p.Data))
		}
	}

	a.step++
	bc1 := 1 - math.Pow(a.beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.beta2, float64(a.step))

	for i, p := range params {
		g := grads[i].Data
		m := a.m[i]
		v := a.v[i]
		for j := range p.Data {
			m[j] = a.beta1*m[j] + (1-a.beta1)*g[j]
			v[j] = a.beta2*v[j] + (1-a.beta2)*g[j]*g[j]
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			p.Data[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}
