package model

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"neurosym/internal/logging"
	"neurosym/internal/tensor"
)

// Fit trains the encoder and fusion parameters with minibatch gradient
// descent. The reasoner participates in the forward pass but is
// non-parametric and untouched by backpropagation.
//
// Fit from the Trained state resumes optimization from the current weights.
// A non-finite loss aborts immediately: the model transitions to Failed and
// the TrainingFailure is returned; no silent continuation with corrupted
// weights.
func (c *Classifier) Fit(x *tensor.Matrix, labels []int) error {
	if x.Cols != c.cfg.Model.InputSize {
		return &DimensionMismatchError{Got: x.Cols, Want: c.cfg.Model.InputSize}
	}
	if len(labels) != x.Rows {
		return fmt.Errorf("model: %d labels for %d samples", len(labels), x.Rows)
	}
	for i, y := range labels {
		if y < 0 || y >= c.cfg.Model.NumClasses {
			return fmt.Errorf("model: label %d at index %d outside [0, %d)", y, i, c.cfg.Model.NumClasses)
		}
	}

	switch c.phase {
	case PhaseTraining:
		return fmt.Errorf("model: fit invoked while training; calls must be serialized")
	case PhaseFailed:
		if c.failure != nil {
			return fmt.Errorf("model: fit after failure: %w", c.failure)
		}
		return fmt.Errorf("model: fit after failure; reconstruct the model")
	}

	prev := c.phase
	c.phase = PhaseTraining
	logging.Model("state transition: %s -> training", prev)

	epochs := c.cfg.Training.Epochs
	batchSize := c.cfg.Training.BatchSize
	n := x.Rows

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for epoch := 0; epoch < epochs; epoch++ {
		// Fisher-Yates from the model's seeded source keeps training
		// reproducible for a fixed seed.
		for i := n - 1; i > 0; i-- {
			j := c.rng.Intn(i + 1)
			indices[i], indices[j] = indices[j], indices[i]
		}

		epochLoss := 0.0
		batches := 0
		for start := 0; start < n; start += batchSize {
			end := start + batchSize
			if end > n {
				end = n
			}
			bx, by := gatherBatch(x, labels, indices[start:end])

			logits, err := c.forward(bx, true)
			if err != nil {
				c.phase = PhaseFailed
				return fmt.Errorf("model: forward pass: %w", err)
			}

			probs := logits.SoftmaxRows()
			loss := crossEntropy(probs, by)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				c.failure = &TrainingFailure{Epoch: epoch, Batch: batches, Loss: loss}
				c.phase = PhaseFailed
				logging.Model("state transition: training -> failed (%v)", c.failure)
				return c.failure
			}

			// dL/dlogits for softmax cross-entropy, averaged over the batch.
			dLogits := probs.Clone()
			for i, y := range by {
				dLogits.Set(i, y, dLogits.At(i, y)-1)
			}
			dLogits.Scale(1 / float64(len(by)))

			fusGrads, dLatent, err := c.fus.Backward(dLogits)
			if err != nil {
				c.phase = PhaseFailed
				return fmt.Errorf("model: fusion backward: %w", err)
			}
			encGrads, _, err := c.enc.Backward(dLatent)
			if err != nil {
				c.phase = PhaseFailed
				return fmt.Errorf("model: encoder backward: %w", err)
			}

			params := append(c.enc.Params(), c.fus.Params()...)
			grads := append(encGrads, fusGrads...)
			c.opt.update(params, grads)

			epochLoss += loss
			batches++
		}

		if (epoch+1)%10 == 0 {
			logging.Training("epoch %d/%d, loss: %.4f", epoch+1, epochs, epochLoss/float64(batches))
		}
	}

	c.phase = PhaseTrained
	c.version = uuid.NewString()
	logging.Model("state transition: training -> trained, version %s", c.version)
	return nil
}

// gatherBatch copies the selected rows and labels into batch slices.
func gatherBatch(x *tensor.Matrix, labels []int, idx []int) (*tensor.Matrix, []int) {
	bx := tensor.New(len(idx), x.Cols)
	by := make([]int, len(idx))
	for i, src := range idx {
		copy(bx.Row(i), x.Row(src))
		by[i] = labels[src]
	}
	return bx, by
}

// crossEntropy is the mean negative log-likelihood of the true labels.
func crossEntropy(probs *tensor.Matrix, labels []int) float64 {
	const eps = 1e-12
	sum := 0.0
	for i, y := range labels {
		p := probs.At(i, y)
		if p < eps {
			p = eps
		}
		sum -= math.Log(p)
	}
	return sum / float64(len(labels))
}
