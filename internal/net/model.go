package net

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/activations"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/layer"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/loss"
)

// Model wraps an autoencoder with a classification head and computes the
// composite training loss: softmax cross-entropy on the head plus mean squared
// reconstruction error. Both terms are retrievable individually after every
// Compute call.
type Model struct {
	ae   *Autoencoder
	head *layer.Dense
	xent loss.SoftmaxCrossEntropy
	mse  loss.MSE

	// Retained between Compute and Backward
	input   *mat.Dense
	logits  *mat.Dense
	recon   *mat.Dense
	targets []int

	lastLoss float64
	lastCE   float64
	lastMSE  float64
}

// NewModel builds a composite model over an autoencoder with a latent-to-class
// head of the given width.
func NewModel(ae *Autoencoder, numClasses int, rng *rand.Rand) (*Model, error) {
	if ae == nil {
		return nil, fmt.Errorf("net: model requires an autoencoder")
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("net: class count must be positive, got %d", numClasses)
	}
	return &Model{
		ae:   ae,
		head: layer.NewDense(ae.LatentSize(), numClasses, activations.Identity{}, rng),
	}, nil
}

// Compute runs the full forward pass for a batch and its integer targets and
// returns the composite loss. Activations are retained for Backward.
func (m *Model) Compute(x *mat.Dense, targets []int) float64 {
	z := m.ae.Encode(x)
	m.input = x
	m.logits = m.head.Forward(z)
	m.recon = m.ae.Decode(z)
	m.targets = targets

	m.lastCE = m.xent.Forward(m.logits, targets)
	m.lastMSE = m.mse.Forward(m.recon, x)
	m.lastLoss = m.lastCE + m.lastMSE
	return m.lastLoss
}

// Backward backpropagates the composite loss from the last Compute call,
// accumulating gradients in every layer. The latent gradient is the sum of
// the head's contribution and the decoder's.
func (m *Model) Backward() {
	gradLogits := m.xent.Backward(m.logits, m.targets)
	gradRecon := m.mse.Backward(m.recon, m.input)

	gz := m.head.Backward(gradLogits)
	var total mat.Dense
	total.Add(gz, m.ae.DecodeBackward(gradRecon))
	m.ae.EncodeBackward(&total)
}

// Loss returns the composite loss from the last Compute call.
func (m *Model) Loss() float64 {
	return m.lastLoss
}

// CrossEntropy returns the classification term from the last Compute call.
func (m *Model) CrossEntropy() float64 {
	return m.lastCE
}

// MSE returns the reconstruction error from the last Compute call.
func (m *Model) MSE() float64 {
	return m.lastMSE
}

// Layers returns every trainable layer: encoder, decoder, then head.
func (m *Model) Layers() []layer.Layer {
	return append(m.ae.Layers(), m.head)
}

// ClearGradients zeroes gradient accumulators across all layers.
func (m *Model) ClearGradients() {
	for _, l := range m.Layers() {
		l.ClearGradients()
	}
}

// SetTraining switches train/eval behaviour across all layers.
func (m *Model) SetTraining(training bool) {
	m.ae.SetTraining(training)
}

// Autoencoder returns the wrapped encoder/decoder pair.
func (m *Model) Autoencoder() *Autoencoder {
	return m.ae
}

// NumClasses returns the width of the classification head.
func (m *Model) NumClasses() int {
	return m.head.OutSize()
}
