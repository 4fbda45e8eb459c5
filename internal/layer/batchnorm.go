package layer

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BatchNorm normalizes each feature over the batch dimension with learnable
// scale (gamma) and shift (beta). During evaluation it uses running statistics
// accumulated while training.
type BatchNorm struct {
	size     int
	eps      float64
	decay    float64
	training bool

	gamma []float64
	beta  []float64

	runningMean []float64
	runningVar  []float64

	// Saved during forward for the backward pass
	xhat   *mat.Dense
	invStd []float64

	gradGamma []float64
	gradBeta  []float64
}

// NewBatchNorm creates a batch normalization layer for the given feature size.
func NewBatchNorm(size int) *BatchNorm {
	b := &BatchNorm{
		size:        size,
		eps:         2e-5,
		decay:       0.9,
		training:    true,
		gamma:       make([]float64, size),
		beta:        make([]float64, size),
		runningMean: make([]float64, size),
		runningVar:  make([]float64, size),
		invStd:      make([]float64, size),
		gradGamma:   make([]float64, size),
		gradBeta:    make([]float64, size),
	}
	for i := 0; i < size; i++ {
		b.gamma[i] = 1
		b.runningVar[i] = 1
	}
	return b
}

// SetTraining switches between batch statistics and running statistics.
func (b *BatchNorm) SetTraining(training bool) {
	b.training = training
}

// Forward normalizes a batch of shape [n x size].
func (b *BatchNorm) Forward(x *mat.Dense) *mat.Dense {
	n, c := x.Dims()
	if c != b.size {
		panic(&ShapeError{Op: "BatchNorm.Forward", Want: b.size, Got: c})
	}

	out := mat.NewDense(n, c, nil)
	xhat := mat.NewDense(n, c, nil)
	col := make([]float64, n)

	for j := 0; j < c; j++ {
		mat.Col(col, j, x)

		var mean, variance float64
		if b.training {
			mean = floats.Sum(col) / float64(n)
			for _, v := range col {
				d := v - mean
				variance += d * d
			}
			variance /= float64(n)
			b.runningMean[j] = b.decay*b.runningMean[j] + (1-b.decay)*mean
			b.runningVar[j] = b.decay*b.runningVar[j] + (1-b.decay)*variance
		} else {
			mean = b.runningMean[j]
			variance = b.runningVar[j]
		}

		inv := 1 / math.Sqrt(variance+b.eps)
		b.invStd[j] = inv
		for i := 0; i < n; i++ {
			h := (col[i] - mean) * inv
			xhat.Set(i, j, h)
			out.Set(i, j, b.gamma[j]*h+b.beta[j])
		}
	}
	b.xhat = xhat
	return out
}

// Backward accumulates gamma/beta gradients and returns the input gradient.
func (b *BatchNorm) Backward(grad *mat.Dense) *mat.Dense {
	n, c := grad.Dims()
	if c != b.size {
		panic(&ShapeError{Op: "BatchNorm.Backward", Want: b.size, Got: c})
	}

	dx := mat.NewDense(n, c, nil)
	fn := float64(n)
	for j := 0; j < c; j++ {
		var sumDy, sumDyXhat float64
		for i := 0; i < n; i++ {
			dy := grad.At(i, j)
			sumDy += dy
			sumDyXhat += dy * b.xhat.At(i, j)
		}
		b.gradGamma[j] += sumDyXhat
		b.gradBeta[j] += sumDy

		scale := b.gamma[j] * b.invStd[j]
		if !b.training {
			// Running statistics are constants during evaluation.
			for i := 0; i < n; i++ {
				dx.Set(i, j, grad.At(i, j)*scale)
			}
			continue
		}
		for i := 0; i < n; i++ {
			v := fn*grad.At(i, j) - sumDy - b.xhat.At(i, j)*sumDyXhat
			dx.Set(i, j, scale*v/fn)
		}
	}
	return dx
}

// Params returns gamma and beta flattened.
func (b *BatchNorm) Params() []float64 {
	params := make([]float64, 0, 2*b.size)
	params = append(params, b.gamma...)
	params = append(params, b.beta...)
	return params
}

// SetParams updates gamma and beta from a flattened slice.
func (b *BatchNorm) SetParams(params []float64) {
	if len(params) != 2*b.size {
		panic(&ShapeError{Op: "BatchNorm.SetParams", Want: 2 * b.size, Got: len(params)})
	}
	copy(b.gamma, params[:b.size])
	copy(b.beta, params[b.size:])
}

// Gradients returns accumulated gamma and beta gradients flattened.
func (b *BatchNorm) Gradients() []float64 {
	gradients := make([]float64, 0, 2*b.size)
	gradients = append(gradients, b.gradGamma...)
	gradients = append(gradients, b.gradBeta...)
	return gradients
}

// ClearGradients zeroes the accumulated gradients.
func (b *BatchNorm) ClearGradients() {
	for i := range b.gradGamma {
		b.gradGamma[i] = 0
	}
	for i := range b.gradBeta {
		b.gradBeta[i] = 0
	}
}

// State returns the running statistics flattened (mean then variance).
func (b *BatchNorm) State() []float64 {
	state := make([]float64, 0, 2*b.size)
	state = append(state, b.runningMean...)
	state = append(state, b.runningVar...)
	return state
}

// SetState restores the running statistics from a flattened slice.
func (b *BatchNorm) SetState(state []float64) {
	if len(state) != 2*b.size {
		panic(&ShapeError{Op: "BatchNorm.SetState", Want: 2 * b.size, Got: len(state)})
	}
	copy(b.runningMean, state[:b.size])
	copy(b.runningVar, state[b.size:])
}

// InSize returns the feature size.
func (b *BatchNorm) InSize() int {
	return b.size
}

// OutSize returns the feature size.
func (b *BatchNorm) OutSize() int {
	return b.size
}
