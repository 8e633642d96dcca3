package model

import "fmt"

// ConfigurationError reports an invalid model configuration at construction.
// Fatal; never retried automatically.
type ConfigurationError struct {
	Method     string // offending fusion method or engine tag, if any
	Heads      int    // attention head count, when relevant
	FusedWidth int    // latent + symbolic width, when relevant
	Reason     string
}

func (e *ConfigurationError) Error() string {
	if e.Heads > 0 && e.FusedWidth > 0 {
		return fmt.Sprintf("invalid configuration: %d attention heads do not divide fused width %d", e.Heads, e.FusedWidth)
	}
	if e.Method != "" {
		return fmt.Sprintf("invalid configuration: unknown method %q", e.Method)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// DimensionMismatchError reports an input whose feature width differs from
// the configured input dimension. Raised per call; the caller must correct
// the input.
type DimensionMismatchError struct {
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("input width %d does not match configured input dimension %d", e.Got, e.Want)
}

// NotTrainedError reports a read operation invoked before training completed.
type NotTrainedError struct {
	Op string
}

func (e *NotTrainedError) Error() string {
	return fmt.Sprintf("%s requires a trained model; call Fit first", e.Op)
}

// TrainingFailure reports a non-finite loss during training. The model is in
// the Failed state; reconstruct and retry with adjusted hyperparameters.
type TrainingFailure struct {
	Epoch int
	Batch int
	Loss  float64
}

func (e *TrainingFailure) Error() string {
	return fmt.Sprintf("training failed: non-finite loss %v at epoch %d batch %d", e.Loss, e.Epoch, e.Batch)
}
