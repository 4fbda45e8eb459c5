// Package layer provides unit tests for batch layers.
package layer

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/activations"
)

// TestDenseForwardShape tests output dimensions for a batch.
func TestDenseForwardShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(4, 3, activations.ReLU{}, rng)

	x := mat.NewDense(5, 4, nil)
	out := d.Forward(x)

	r, c := out.Dims()
	if r != 5 || c != 3 {
		t.Errorf("Forward dims = (%d, %d), want (5, 3)", r, c)
	}
}

// TestDenseForwardKnownValues tests x*W + b with hand-set parameters.
func TestDenseForwardKnownValues(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(2, 2, activations.Identity{}, rng)

	// W = [[1, 2], [3, 4]], b = [0.5, -0.5]
	d.SetParams([]float64{1, 2, 3, 4, 0.5, -0.5})

	x := mat.NewDense(1, 2, []float64{1, 1})
	out := d.Forward(x)

	want := []float64{1 + 3 + 0.5, 2 + 4 - 0.5}
	for j, w := range want {
		if math.Abs(out.At(0, j)-w) > 1e-12 {
			t.Errorf("out[0][%d] = %v, want %v", j, out.At(0, j), w)
		}
	}
}

// TestDenseForwardShapeMismatch tests that a wrong feature count panics.
func TestDenseForwardShapeMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(4, 3, activations.ReLU{}, rng)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for feature dimension mismatch")
		} else if _, ok := r.(*ShapeError); !ok {
			t.Errorf("Expected *ShapeError, got %T", r)
		}
	}()

	d.Forward(mat.NewDense(2, 5, nil))
}

// TestDenseBackwardGradients tests weight/bias gradients on a linear layer.
func TestDenseBackwardGradients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(2, 2, activations.Identity{}, rng)
	d.SetParams([]float64{1, 2, 3, 4, 0, 0})

	x := mat.NewDense(1, 2, []float64{2, -1})
	d.Forward(x)

	// Upstream gradient of ones: dW[i][j] = x[i], db[j] = 1
	grad := mat.NewDense(1, 2, []float64{1, 1})
	dx := d.Backward(grad)

	gradients := d.Gradients()
	wantW := []float64{2, 2, -1, -1}
	for i, w := range wantW {
		if math.Abs(gradients[i]-w) > 1e-12 {
			t.Errorf("gradW[%d] = %v, want %v", i, gradients[i], w)
		}
	}
	for i := 4; i < 6; i++ {
		if math.Abs(gradients[i]-1) > 1e-12 {
			t.Errorf("gradB[%d] = %v, want 1", i-4, gradients[i])
		}
	}

	// dx = grad * W^T = [1*1+1*2, 1*3+1*4]
	if math.Abs(dx.At(0, 0)-3) > 1e-12 || math.Abs(dx.At(0, 1)-7) > 1e-12 {
		t.Errorf("dx = [%v, %v], want [3, 7]", dx.At(0, 0), dx.At(0, 1))
	}
}

// TestDenseGradientAccumulation tests that gradients accumulate until cleared.
func TestDenseGradientAccumulation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(2, 1, activations.Identity{}, rng)
	d.SetParams([]float64{1, 1, 0})

	x := mat.NewDense(1, 2, []float64{1, 1})
	grad := mat.NewDense(1, 1, []float64{1})

	d.Forward(x)
	d.Backward(grad)
	d.Forward(x)
	d.Backward(grad)

	gradients := d.Gradients()
	if math.Abs(gradients[0]-2) > 1e-12 {
		t.Errorf("accumulated gradW[0] = %v, want 2", gradients[0])
	}

	d.ClearGradients()
	for i, g := range d.Gradients() {
		if g != 0 {
			t.Errorf("gradient[%d] = %v after clear, want 0", i, g)
		}
	}
}

// TestDenseParamsRoundTrip tests SetParams(Params()) identity.
func TestDenseParamsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	d := NewDense(3, 2, activations.Tanh{}, rng)

	params := d.Params()
	d.SetParams(params)
	after := d.Params()

	for i := range params {
		if params[i] != after[i] {
			t.Errorf("params[%d] changed: %v -> %v", i, params[i], after[i])
		}
	}
}

// TestDenseDeterministicInit tests that the same seed yields the same weights.
func TestDenseDeterministicInit(t *testing.T) {
	d1 := NewDense(4, 4, activations.ReLU{}, rand.New(rand.NewSource(99)))
	d2 := NewDense(4, 4, activations.ReLU{}, rand.New(rand.NewSource(99)))

	p1, p2 := d1.Params(), d2.Params()
	for i := range p1 {
		if p1[i] != p2[i] {
			t.Fatalf("params[%d] differ: %v vs %v", i, p1[i], p2[i])
		}
	}
}

// TestSelectDevice tests device resolution.
func TestSelectDevice(t *testing.T) {
	dev, err := Select(-1)
	if err != nil {
		t.Fatalf("Select(-1) error: %v", err)
	}
	if dev.Type() != CPU {
		t.Errorf("Select(-1) type = %v, want CPU", dev.Type())
	}

	if _, err := Select(0); err == nil {
		t.Error("Select(0) should fail on a build without accelerators")
	}
}
