// Package net provides the autoencoder network, the composite loss model and
// checkpointing.
package net

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/activations"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/layer"
)

// Autoencoder is a symmetric encoder/decoder pair. The encoder maps the input
// dimension down to the latent dimension through the configured layer widths;
// the decoder mirrors the same widths in reverse with its own parameters.
type Autoencoder struct {
	sizes   []int
	useNorm bool
	enc     []layer.Layer
	dec     []layer.Layer
}

// NewAutoencoder builds an autoencoder from a layer-size sequence. The first
// element is the input feature dimension, the last is the latent dimension.
// With useNorm, a batch normalization stage is inserted between each linear
// transform and its nonlinearity.
func NewAutoencoder(sizes []int, useNorm bool, rng *rand.Rand) (*Autoencoder, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("net: layer size sequence needs at least 2 entries, got %d", len(sizes))
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, fmt.Errorf("net: layer size %d at position %d must be positive", s, i)
		}
	}
	if useNorm && len(sizes) == 2 {
		return nil, fmt.Errorf("net: normalization requires more than one layer")
	}

	a := &Autoencoder{
		sizes:   append([]int(nil), sizes...),
		useNorm: useNorm,
	}

	// Encoder: sizes[0] -> ... -> sizes[L-1]
	for i := 0; i < len(sizes)-1; i++ {
		a.enc = append(a.enc, stage(sizes[i], sizes[i+1], activations.ReLU{}, useNorm, rng)...)
	}

	// Decoder mirrors the widths in reverse. The final stage squashes the
	// reconstruction back into [0,1].
	for i := len(sizes) - 1; i > 0; i-- {
		var act activations.Activation = activations.ReLU{}
		if i == 1 {
			act = activations.Sigmoid{}
		}
		a.dec = append(a.dec, stage(sizes[i], sizes[i-1], act, useNorm, rng)...)
	}

	return a, nil
}

// stage builds one (linear -> optional norm -> nonlinearity) block.
func stage(in, out int, act activations.Activation, useNorm bool, rng *rand.Rand) []layer.Layer {
	if !useNorm {
		return []layer.Layer{layer.NewDense(in, out, act, rng)}
	}
	return []layer.Layer{
		layer.NewDense(in, out, activations.Identity{}, rng),
		layer.NewBatchNorm(out),
		layer.NewAct(out, act),
	}
}

// Encode maps an input batch [n x inSize] to a latent batch [n x latentSize].
func (a *Autoencoder) Encode(x *mat.Dense) *mat.Dense {
	curr := x
	for _, l := range a.enc {
		curr = l.Forward(curr)
	}
	return curr
}

// Decode maps a latent batch back to a reconstruction batch [n x inSize].
func (a *Autoencoder) Decode(z *mat.Dense) *mat.Dense {
	curr := z
	for _, l := range a.dec {
		curr = l.Forward(curr)
	}
	return curr
}

// EncodeBackward backpropagates a latent gradient through the encoder.
func (a *Autoencoder) EncodeBackward(grad *mat.Dense) *mat.Dense {
	curr := grad
	for i := len(a.enc) - 1; i >= 0; i-- {
		curr = a.enc[i].Backward(curr)
	}
	return curr
}

// DecodeBackward backpropagates a reconstruction gradient through the decoder,
// returning the gradient with respect to the latent batch.
func (a *Autoencoder) DecodeBackward(grad *mat.Dense) *mat.Dense {
	curr := grad
	for i := len(a.dec) - 1; i >= 0; i-- {
		curr = a.dec[i].Backward(curr)
	}
	return curr
}

// Layers returns encoder then decoder layers.
func (a *Autoencoder) Layers() []layer.Layer {
	layers := make([]layer.Layer, 0, len(a.enc)+len(a.dec))
	layers = append(layers, a.enc...)
	layers = append(layers, a.dec...)
	return layers
}

// SetTraining switches train/eval behaviour on layers that distinguish them.
func (a *Autoencoder) SetTraining(training bool) {
	for _, l := range a.Layers() {
		if t, ok := l.(layer.Trainable); ok {
			t.SetTraining(training)
		}
	}
}

// Sizes returns the configured layer-size sequence.
func (a *Autoencoder) Sizes() []int {
	return append([]int(nil), a.sizes...)
}

// UseNorm reports whether normalization stages are present.
func (a *Autoencoder) UseNorm() bool {
	return a.useNorm
}

// InSize returns the input feature dimension.
func (a *Autoencoder) InSize() int {
	return a.sizes[0]
}

// LatentSize returns the latent dimension.
func (a *Autoencoder) LatentSize() int {
	return a.sizes[len(a.sizes)-1]
}
