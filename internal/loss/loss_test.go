// Package loss provides unit tests for batch loss functions.
package loss

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestSoftmaxCrossEntropyForward tests CE against hand-computed values.
func TestSoftmaxCrossEntropyForward(t *testing.T) {
	ce := SoftmaxCrossEntropy{}

	tests := []struct {
		name     string
		logits   []float64
		targets  []int
		rows     int
		cols     int
		expected float64
	}{
		// Uniform logits over 2 classes: -log(0.5)
		{"Uniform", []float64{0, 0}, []int{0}, 1, 2, math.Log(2)},
		// Two uniform rows: mean is still -log(0.5)
		{"UniformBatch", []float64{0, 0, 0, 0}, []int{0, 1}, 2, 2, math.Log(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logits := mat.NewDense(tt.rows, tt.cols, tt.logits)
			result := ce.Forward(logits, tt.targets)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Forward() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestSoftmaxCrossEntropyShiftInvariance tests that adding a constant to all
// logits does not change the loss.
func TestSoftmaxCrossEntropyShiftInvariance(t *testing.T) {
	ce := SoftmaxCrossEntropy{}

	a := mat.NewDense(1, 3, []float64{1, 2, 3})
	b := mat.NewDense(1, 3, []float64{1001, 1002, 1003})
	targets := []int{2}

	la := ce.Forward(a, targets)
	lb := ce.Forward(b, targets)
	if math.Abs(la-lb) > 1e-9 {
		t.Errorf("loss changed under logit shift: %v vs %v", la, lb)
	}
}

// TestSoftmaxCrossEntropyBackward tests that gradient rows sum to zero and
// point away from the target class.
func TestSoftmaxCrossEntropyBackward(t *testing.T) {
	ce := SoftmaxCrossEntropy{}

	logits := mat.NewDense(2, 3, []float64{
		0, 0, 0,
		1, 2, 3,
	})
	targets := []int{0, 2}
	grad := ce.Backward(logits, targets)

	for i := 0; i < 2; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += grad.At(i, j)
		}
		if math.Abs(sum) > 1e-9 {
			t.Errorf("row %d gradient sum = %v, want 0", i, sum)
		}
		if grad.At(i, targets[i]) >= 0 {
			t.Errorf("row %d target gradient = %v, want negative", i, grad.At(i, targets[i]))
		}
	}

	// Uniform softmax row: grad = (1/3 - onehot) / n
	want := (1.0/3 - 1) / 2
	if math.Abs(grad.At(0, 0)-want) > 1e-9 {
		t.Errorf("grad[0][0] = %v, want %v", grad.At(0, 0), want)
	}
}

// TestSoftmaxCrossEntropyTargetMismatch tests error handling.
func TestSoftmaxCrossEntropyTargetMismatch(t *testing.T) {
	ce := SoftmaxCrossEntropy{}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for target count mismatch")
		}
	}()

	ce.Forward(mat.NewDense(2, 2, nil), []int{0})
}

// TestMSEForward tests MSE against hand-computed values.
func TestMSEForward(t *testing.T) {
	mse := MSE{}

	tests := []struct {
		name     string
		pred     []float64
		target   []float64
		rows     int
		cols     int
		expected float64
	}{
		{"Perfect", []float64{1, 2, 3, 4}, []float64{1, 2, 3, 4}, 2, 2, 0},
		{"SingleError", []float64{1, 2}, []float64{1.5, 2}, 1, 2, 0.125},
		{"Batch", []float64{1, 0, 0, 1}, []float64{0, 0, 0, 0}, 2, 2, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := mat.NewDense(tt.rows, tt.cols, tt.pred)
			target := mat.NewDense(tt.rows, tt.cols, tt.target)
			result := mse.Forward(pred, target)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("Forward() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestMSEBackward tests the MSE gradient.
func TestMSEBackward(t *testing.T) {
	mse := MSE{}

	pred := mat.NewDense(1, 2, []float64{1, 2})
	target := mat.NewDense(1, 2, []float64{1.5, 2})
	grad := mse.Backward(pred, target)

	// factor = 2 / (1*2) = 1
	if math.Abs(grad.At(0, 0)-(-0.5)) > 1e-9 {
		t.Errorf("grad[0][0] = %v, want -0.5", grad.At(0, 0))
	}
	if math.Abs(grad.At(0, 1)) > 1e-9 {
		t.Errorf("grad[0][1] = %v, want 0", grad.At(0, 1))
	}
}

// TestMSEShapeMismatch tests error handling.
func TestMSEShapeMismatch(t *testing.T) {
	mse := MSE{}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for shape mismatch")
		}
	}()

	mse.Forward(mat.NewDense(1, 2, nil), mat.NewDense(2, 2, nil))
}
