// Package loss provides batch loss functions. Losses are means over the
// batch, matching inputs normalized to [0,1].
package loss

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SoftmaxCrossEntropy is classification cross-entropy over integer class
// targets. The softmax is applied internally for numerical stability.
type SoftmaxCrossEntropy struct{}

// Forward computes the mean negative log-likelihood of the target classes.
// logits has shape [n x classes], targets has length n.
func (s SoftmaxCrossEntropy) Forward(logits *mat.Dense, targets []int) float64 {
	n, classes := logits.Dims()
	if n != len(targets) {
		panic("SoftmaxCrossEntropy: batch size and target count differ")
	}

	var sum float64
	row := make([]float64, classes)
	for i := 0; i < n; i++ {
		mat.Row(row, i, logits)
		probs := softmax(row)
		t := targets[i]
		if t < 0 || t >= classes {
			panic("SoftmaxCrossEntropy: target class out of range")
		}
		sum -= math.Log(math.Max(probs[t], 1e-300))
	}
	return sum / float64(n)
}

// Backward computes the gradient (softmax - onehot) / n.
func (s SoftmaxCrossEntropy) Backward(logits *mat.Dense, targets []int) *mat.Dense {
	n, classes := logits.Dims()
	if n != len(targets) {
		panic("SoftmaxCrossEntropy: batch size and target count differ")
	}

	grad := mat.NewDense(n, classes, nil)
	row := make([]float64, classes)
	for i := 0; i < n; i++ {
		mat.Row(row, i, logits)
		probs := softmax(row)
		for j := 0; j < classes; j++ {
			g := probs[j]
			if j == targets[i] {
				g -= 1
			}
			grad.Set(i, j, g/float64(n))
		}
	}
	return grad
}

// MSE is mean squared error over every element of the batch.
type MSE struct{}

// Forward computes sum((pred - target)^2) / (n * features).
func (m MSE) Forward(pred, target *mat.Dense) float64 {
	n, c := pred.Dims()
	tn, tc := target.Dims()
	if n != tn || c != tc {
		panic("MSE: prediction and target must have same shape")
	}

	var sum float64
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			diff := pred.At(i, j) - target.At(i, j)
			sum += diff * diff
		}
	}
	return sum / float64(n*c)
}

// Backward computes the gradient 2 * (pred - target) / (n * features).
func (m MSE) Backward(pred, target *mat.Dense) *mat.Dense {
	n, c := pred.Dims()
	tn, tc := target.Dims()
	if n != tn || c != tc {
		panic("MSE: prediction and target must have same shape")
	}

	grad := mat.NewDense(n, c, nil)
	factor := 2.0 / float64(n*c)
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			grad.Set(i, j, factor*(pred.At(i, j)-target.At(i, j)))
		}
	}
	return grad
}

// softmax computes a numerically stable softmax of one row.
func softmax(logits []float64) []float64 {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	out := make([]float64, len(logits))
	for i, v := range logits {
		exp := math.Exp(v - maxLogit)
		out[i] = exp
		sum += exp
	}
	inv := 1.0 / sum
	for i := range out {
		out[i] *= inv
	}
	return out
}
