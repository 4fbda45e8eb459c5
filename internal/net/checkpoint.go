package net

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/layer"
)

// snapshot is the gob wire format for a model checkpoint. Parameter and state
// slices are stored per layer in Layers() order.
type snapshot struct {
	Sizes      []int
	UseNorm    bool
	NumClasses int
	Params     [][]float64
	State      [][]float64
}

// Encode writes the model parameters and layer state to w using gob encoding.
func (m *Model) Encode(w io.Writer) error {
	layers := m.Layers()
	snap := snapshot{
		Sizes:      m.ae.Sizes(),
		UseNorm:    m.ae.UseNorm(),
		NumClasses: m.NumClasses(),
		Params:     make([][]float64, len(layers)),
		State:      make([][]float64, len(layers)),
	}
	for i, l := range layers {
		snap.Params[i] = l.Params()
		if s, ok := l.(layer.Stateful); ok {
			snap.State[i] = s.State()
		}
	}

	if err := gob.NewEncoder(w).Encode(snap); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	return nil
}

// Decode restores parameters and state from r into an already constructed
// model of matching shape. A mismatched architecture or parameter count is an
// error; nothing is written to the model until the snapshot fully validates.
func (m *Model) Decode(r io.Reader) error {
	var snap snapshot
	if err := gob.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}

	sizes := m.ae.Sizes()
	if len(snap.Sizes) != len(sizes) {
		return fmt.Errorf("checkpoint: layer count mismatch: snapshot %v, model %v", snap.Sizes, sizes)
	}
	for i := range sizes {
		if snap.Sizes[i] != sizes[i] {
			return fmt.Errorf("checkpoint: layer size mismatch at %d: snapshot %d, model %d", i, snap.Sizes[i], sizes[i])
		}
	}
	if snap.UseNorm != m.ae.UseNorm() {
		return fmt.Errorf("checkpoint: network variant mismatch")
	}
	if snap.NumClasses != m.NumClasses() {
		return fmt.Errorf("checkpoint: class count mismatch: snapshot %d, model %d", snap.NumClasses, m.NumClasses())
	}

	layers := m.Layers()
	if len(snap.Params) != len(layers) {
		return fmt.Errorf("checkpoint: parameter group count mismatch: snapshot %d, model %d", len(snap.Params), len(layers))
	}
	if len(snap.State) != len(layers) {
		return fmt.Errorf("checkpoint: state group count mismatch: snapshot %d, model %d", len(snap.State), len(layers))
	}
	for i, l := range layers {
		if len(snap.Params[i]) != len(l.Params()) {
			return fmt.Errorf("checkpoint: layer %d parameter count mismatch: snapshot %d, model %d",
				i, len(snap.Params[i]), len(l.Params()))
		}
	}

	for i, l := range layers {
		l.SetParams(snap.Params[i])
		if s, ok := l.(layer.Stateful); ok && len(snap.State[i]) > 0 {
			s.SetState(snap.State[i])
		}
	}
	return nil
}

// Save writes the model to a file.
func (m *Model) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return m.Encode(file)
}

// Load restores the model from a file. A missing or unreadable file is an
// error; there is no silent fallback to the current random initialization.
func (m *Model) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return m.Decode(file)
}
