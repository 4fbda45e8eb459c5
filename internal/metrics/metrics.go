// Package metrics accumulates per-epoch training statistics.
package metrics

import (
	"math"
	"time"
)

// Epoch accumulates batch-size-weighted loss and reconstruction error sums
// for one phase (train or test) of an epoch.
type Epoch struct {
	samples   int
	weighted  int
	lossSum   float64
	mseSum    float64
	nonFinite int
	start     time.Time
}

// Start returns an accumulator with the throughput clock running.
func Start() *Epoch {
	return &Epoch{start: time.Now()}
}

// Record adds one batch's mean loss and mean reconstruction error, weighted
// by the batch size. Batches with non-finite values are counted but excluded
// from the means so one bad batch cannot poison the epoch summary.
func (e *Epoch) Record(batchSize int, loss, mse float64) {
	e.samples += batchSize
	if math.IsNaN(loss) || math.IsInf(loss, 0) || math.IsNaN(mse) || math.IsInf(mse, 0) {
		e.nonFinite++
		return
	}
	e.weighted += batchSize
	e.lossSum += loss * float64(batchSize)
	e.mseSum += mse * float64(batchSize)
}

// Summary holds the aggregated results of one phase.
type Summary struct {
	MeanLoss   float64
	MeanMSE    float64
	Samples    int
	Throughput float64 // samples per second
	NonFinite  int     // batches with NaN/Inf values
}

// Finish computes the phase summary.
func (e *Epoch) Finish() Summary {
	s := Summary{
		Samples:   e.samples,
		NonFinite: e.nonFinite,
	}
	if e.weighted > 0 {
		s.MeanLoss = e.lossSum / float64(e.weighted)
		s.MeanMSE = e.mseSum / float64(e.weighted)
	}
	if elapsed := time.Since(e.start).Seconds(); elapsed > 0 {
		s.Throughput = float64(e.samples) / elapsed
	}
	return s
}
