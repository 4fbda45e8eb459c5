// Package layer provides neural network layer implementations operating on
// minibatches. A batch is a gonum row matrix of shape [batchSize x features].
package layer

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/activations"
)

// Layer is a neural network layer.
type Layer interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(grad *mat.Dense) *mat.Dense
	Params() []float64
	SetParams([]float64)
	Gradients() []float64
	ClearGradients()
	InSize() int
	OutSize() int
}

// Trainable is implemented by layers that behave differently during training
// and evaluation.
type Trainable interface {
	SetTraining(training bool)
}

// Stateful is implemented by layers carrying non-trainable state that must
// survive a checkpoint round-trip (batch norm running statistics).
type Stateful interface {
	State() []float64
	SetState([]float64)
}

// ShapeError reports a mismatch between configured and observed dimensions.
type ShapeError struct {
	Op   string
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: dimension mismatch: want %d, got %d", e.Op, e.Want, e.Got)
}

// Dense is a fully connected layer over row batches.
// Weights have shape [in x out] so a forward pass is a single x*W product.
type Dense struct {
	weights *mat.Dense
	biases  []float64
	act     activations.Activation
	inSize  int
	outSize int

	// Saved during forward for gradient computation
	input  *mat.Dense
	preAct *mat.Dense

	// Gradient accumulators
	gradW *mat.Dense
	gradB []float64
}

// NewDense creates a dense layer with Xavier-initialized weights drawn from rng.
func NewDense(in, out int, act activations.Activation, rng *rand.Rand) *Dense {
	weights := make([]float64, in*out)
	scale := math.Sqrt(2.0 / (float64(in) + float64(out)))
	for i := range weights {
		weights[i] = rng.Float64()*2*scale - scale
	}
	biases := make([]float64, out)
	for i := range biases {
		biases[i] = rng.Float64()*0.2 - 0.1
	}

	return &Dense{
		weights: mat.NewDense(in, out, weights),
		biases:  biases,
		act:     act,
		inSize:  in,
		outSize: out,
		gradW:   mat.NewDense(in, out, nil),
		gradB:   make([]float64, out),
	}
}

// Forward computes act(x*W + b) for a batch x of shape [n x in].
// The input and pre-activations are retained for the backward pass.
func (d *Dense) Forward(x *mat.Dense) *mat.Dense {
	n, c := x.Dims()
	if c != d.inSize {
		panic(&ShapeError{Op: "Dense.Forward", Want: d.inSize, Got: c})
	}

	d.input = x
	pre := mat.NewDense(n, d.outSize, nil)
	pre.Mul(x, d.weights)
	out := mat.NewDense(n, d.outSize, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d.outSize; j++ {
			z := pre.At(i, j) + d.biases[j]
			pre.Set(i, j, z)
			out.Set(i, j, d.act.Activate(z))
		}
	}
	d.preAct = pre
	return out
}

// Backward accumulates weight and bias gradients from an upstream gradient of
// shape [n x out] and returns the gradient with respect to the input.
func (d *Dense) Backward(grad *mat.Dense) *mat.Dense {
	n, c := grad.Dims()
	if c != d.outSize {
		panic(&ShapeError{Op: "Dense.Backward", Want: d.outSize, Got: c})
	}

	// dz = grad * act'(preAct), elementwise
	dz := mat.NewDense(n, d.outSize, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d.outSize; j++ {
			dz.Set(i, j, grad.At(i, j)*d.act.Derivative(d.preAct.At(i, j)))
		}
	}

	// dW += x^T * dz, db += column sums of dz
	var dw mat.Dense
	dw.Mul(d.input.T(), dz)
	d.gradW.Add(d.gradW, &dw)
	for j := 0; j < d.outSize; j++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += dz.At(i, j)
		}
		d.gradB[j] += sum
	}

	// dx = dz * W^T
	dx := mat.NewDense(n, d.inSize, nil)
	dx.Mul(dz, d.weights.T())
	return dx
}

// Params returns weights and biases flattened into a single slice.
func (d *Dense) Params() []float64 {
	raw := d.weights.RawMatrix().Data
	params := make([]float64, 0, len(raw)+len(d.biases))
	params = append(params, raw...)
	params = append(params, d.biases...)
	return params
}

// SetParams updates weights and biases from a flattened slice.
func (d *Dense) SetParams(params []float64) {
	raw := d.weights.RawMatrix().Data
	if len(params) != len(raw)+len(d.biases) {
		panic(&ShapeError{Op: "Dense.SetParams", Want: len(raw) + len(d.biases), Got: len(params)})
	}
	copy(raw, params[:len(raw)])
	copy(d.biases, params[len(raw):])
}

// Gradients returns accumulated weight and bias gradients flattened.
func (d *Dense) Gradients() []float64 {
	raw := d.gradW.RawMatrix().Data
	gradients := make([]float64, 0, len(raw)+len(d.gradB))
	gradients = append(gradients, raw...)
	gradients = append(gradients, d.gradB...)
	return gradients
}

// ClearGradients zeroes the gradient accumulators. Must run before every
// optimizer update so one minibatch cannot leak into the next.
func (d *Dense) ClearGradients() {
	raw := d.gradW.RawMatrix().Data
	for i := range raw {
		raw[i] = 0
	}
	for i := range d.gradB {
		d.gradB[i] = 0
	}
}

// InSize returns the input size of the layer.
func (d *Dense) InSize() int {
	return d.inSize
}

// OutSize returns the output size of the layer.
func (d *Dense) OutSize() int {
	return d.outSize
}

// Activation returns the activation function used by this layer.
func (d *Dense) Activation() activations.Activation {
	return d.act
}
