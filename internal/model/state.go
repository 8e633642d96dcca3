package model

import (
	"encoding/gob"
	"fmt"
	"io"

	"neurosym/internal/config"
	"neurosym/internal/logging"
)

// ParamMatrix is the serialized form of one parameter matrix.
type ParamMatrix struct {
	Rows int
	Cols int
	Data []float64
}

// Snapshot is a self-contained serialized model: configuration, identity and
// every learnable parameter in Params order (encoder first, fusion second).
// The optimizer state is deliberately not captured; a fit after restore
// starts fresh moments.
type Snapshot struct {
	Version  string
	Config   config.Config
	Metadata map[string]string
	Params   []ParamMatrix
}

// Snapshot captures the trained model. Snapshotting an untrained model is
// refused since its weights carry no meaning worth persisting.
func (c *Classifier) Snapshot() (*Snapshot, error) {
	if c.phase != PhaseTrained {
		return nil, &NotTrainedError{Op: "snapshot"}
	}

	params := append(c.enc.Params(), c.fus.Params()...)
	out := make([]ParamMatrix, len(params))
	for i, p := range params {
		data := make([]float64, len(p.Data))
		copy(data, p.Data)
		out[i] = ParamMatrix{Rows: p.Rows, Cols: p.Cols, Data: data}
	}

	meta := make(map[string]string, len(c.metadata))
	for k, v := range c.metadata {
		meta[k] = v
	}

	return &Snapshot{
		Version:  c.version,
		Config:   c.cfg,
		Metadata: meta,
		Params:   out,
	}, nil
}

// FromSnapshot reconstructs a trained classifier from a snapshot. The
// architecture is rebuilt from the embedded configuration, then every
// parameter is overwritten with the serialized values, so predictions match
// the snapshotted model exactly.
func FromSnapshot(s *Snapshot) (*Classifier, error) {
	c, err := New(s.Config)
	if err != nil {
		return nil, fmt.Errorf("model: restore: %w", err)
	}

	params := append(c.enc.Params(), c.fus.Params()...)
	if len(params) != len(s.Params) {
		return nil, fmt.Errorf("model: restore: snapshot has %d parameter matrices, architecture expects %d",
			len(s.Params), len(params))
	}
	for i, p := range params {
		sp := s.Params[i]
		if sp.Rows != p.Rows || sp.Cols != p.Cols {
			return nil, fmt.Errorf("model: restore: parameter %d is %dx%d, architecture expects %dx%d",
				i, sp.Rows, sp.Cols, p.Rows, p.Cols)
		}
		copy(p.Data, sp.Data)
	}

	c.phase = PhaseTrained
	c.version = s.Version
	for k, v := range s.Metadata {
		c.metadata[k] = v
	}

	logging.Store("restored classifier %s from snapshot", c.version)
	return c, nil
}

// EncodeSnapshot writes the snapshot in gob form.
func EncodeSnapshot(w io.Writer, s *Snapshot) error {
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("model: encode snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot reads a gob-encoded snapshot.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("model: decode snapshot: %w", err)
	}
	return &s, nil
}
