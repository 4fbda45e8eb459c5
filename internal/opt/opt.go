// Package opt provides the stochastic gradient descent optimizer driving the
// composite model.
package opt

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/layer"
)

// Target is the training surface the optimizer drives: forward, backward and
// parameter access. net.Model satisfies it.
type Target interface {
	Compute(x *mat.Dense, targets []int) float64
	Backward()
	ClearGradients()
	Layers() []layer.Layer
}

// SGD updates parameters by stochastic gradient descent with optional
// momentum and weight decay. Velocity buffers are per-parameter state that
// survives a checkpoint round-trip.
type SGD struct {
	LearningRate float64
	Momentum     float64
	WeightDecay  float64

	velocity [][]float64
}

// NewSGD creates an SGD optimizer with the given learning rate and no
// momentum or weight decay.
func NewSGD(learningRate float64) *SGD {
	return &SGD{LearningRate: learningRate}
}

// Update runs one training step for a batch: gradients are zeroed first so
// nothing leaks from the previous minibatch, then forward, backward and an
// in-place parameter update. Returns the batch loss.
func (s *SGD) Update(m Target, x *mat.Dense, targets []int) float64 {
	m.ClearGradients()
	l := m.Compute(x, targets)
	m.Backward()

	layers := m.Layers()
	s.ensureVelocity(layers)
	for i, ly := range layers {
		params := ly.Params()
		if len(params) == 0 {
			continue
		}
		grads := ly.Gradients()
		v := s.velocity[i]
		for j := range params {
			g := grads[j]
			if s.WeightDecay > 0 {
				g += s.WeightDecay * params[j]
			}
			if s.Momentum > 0 {
				v[j] = s.Momentum*v[j] - s.LearningRate*g
				params[j] += v[j]
			} else {
				params[j] -= s.LearningRate * g
			}
		}
		ly.SetParams(params)
	}
	return l
}

func (s *SGD) ensureVelocity(layers []layer.Layer) {
	if len(s.velocity) != len(layers) {
		s.velocity = make([][]float64, len(layers))
	}
	for i, ly := range layers {
		if n := len(ly.Params()); len(s.velocity[i]) != n {
			s.velocity[i] = make([]float64, n)
		}
	}
}

// CheckCompat verifies that restored velocity buffers match the target's
// parameter shapes. Call after SetState/Decode and before the first Update.
func (s *SGD) CheckCompat(m Target) error {
	if len(s.velocity) == 0 {
		return nil
	}
	layers := m.Layers()
	if len(s.velocity) != len(layers) {
		return fmt.Errorf("opt: velocity group count %d does not match %d layers", len(s.velocity), len(layers))
	}
	for i, ly := range layers {
		if len(s.velocity[i]) != len(ly.Params()) {
			return fmt.Errorf("opt: layer %d velocity length %d does not match %d parameters",
				i, len(s.velocity[i]), len(ly.Params()))
		}
	}
	return nil
}

// State is the gob wire format for optimizer state.
type State struct {
	LearningRate float64
	Momentum     float64
	WeightDecay  float64
	Velocity     [][]float64
}

// State returns a snapshot of the optimizer configuration and velocity.
func (s *SGD) State() State {
	velocity := make([][]float64, len(s.velocity))
	for i, v := range s.velocity {
		velocity[i] = append([]float64(nil), v...)
	}
	return State{
		LearningRate: s.LearningRate,
		Momentum:     s.Momentum,
		WeightDecay:  s.WeightDecay,
		Velocity:     velocity,
	}
}

// SetState restores a snapshot produced by State.
func (s *SGD) SetState(state State) {
	s.LearningRate = state.LearningRate
	s.Momentum = state.Momentum
	s.WeightDecay = state.WeightDecay
	s.velocity = make([][]float64, len(state.Velocity))
	for i, v := range state.Velocity {
		s.velocity[i] = append([]float64(nil), v...)
	}
}

// Encode writes the optimizer state to w using gob encoding.
func (s *SGD) Encode(w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(s.State()); err != nil {
		return fmt.Errorf("failed to encode optimizer: %w", err)
	}
	return nil
}

// Decode restores the optimizer state from r.
func (s *SGD) Decode(r io.Reader) error {
	var state State
	if err := gob.NewDecoder(r).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode optimizer: %w", err)
	}
	s.SetState(state)
	return nil
}

// Save writes the optimizer state to a file.
func (s *SGD) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return s.Encode(file)
}

// Load restores the optimizer state from a file. A missing file is an error.
func (s *SGD) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return s.Decode(file)
}
