package layer

import (
	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/activations"
)

// Act applies an elementwise activation as a standalone layer. Used when a
// normalization stage sits between the linear transform and the nonlinearity.
type Act struct {
	size  int
	act   activations.Activation
	input *mat.Dense
}

// NewAct creates an activation layer for the given feature size.
func NewAct(size int, act activations.Activation) *Act {
	return &Act{size: size, act: act}
}

// Forward applies the activation elementwise.
func (a *Act) Forward(x *mat.Dense) *mat.Dense {
	n, c := x.Dims()
	if c != a.size {
		panic(&ShapeError{Op: "Act.Forward", Want: a.size, Got: c})
	}
	a.input = x
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.act.Activate(x.At(i, j)))
		}
	}
	return out
}

// Backward multiplies the upstream gradient by the activation derivative.
func (a *Act) Backward(grad *mat.Dense) *mat.Dense {
	n, c := grad.Dims()
	if c != a.size {
		panic(&ShapeError{Op: "Act.Backward", Want: a.size, Got: c})
	}
	dx := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			dx.Set(i, j, grad.At(i, j)*a.act.Derivative(a.input.At(i, j)))
		}
	}
	return dx
}

// Params returns no parameters.
func (a *Act) Params() []float64 { return nil }

// SetParams is a no-op.
func (a *Act) SetParams(params []float64) {}

// Gradients returns no gradients.
func (a *Act) Gradients() []float64 { return nil }

// ClearGradients is a no-op.
func (a *Act) ClearGradients() {}

// InSize returns the feature size.
func (a *Act) InSize() int { return a.size }

// OutSize returns the feature size.
func (a *Act) OutSize() int { return a.size }
