// Package dataset provides the training data model: normalized sample
// matrices with integer labels, deterministic shuffling and batching.
package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dataset holds samples as a row matrix [n x features] with values normalized
// to [0,1] and one integer label per row.
type Dataset struct {
	Inputs *mat.Dense
	Labels []int
}

// Provider supplies a dataset. Implementations own loading and decoding.
type Provider interface {
	Load() (*Dataset, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() (*Dataset, error)

// Load calls f.
func (f ProviderFunc) Load() (*Dataset, error) { return f() }

// Len returns the number of samples.
func (d *Dataset) Len() int {
	if d.Inputs == nil {
		return 0
	}
	n, _ := d.Inputs.Dims()
	return n
}

// FeatureDim returns the number of features per sample.
func (d *Dataset) FeatureDim() int {
	if d.Inputs == nil {
		return 0
	}
	_, c := d.Inputs.Dims()
	return c
}

// Split divides the dataset at a fixed row: the first n rows become the
// training set, the remainder the test set.
func (d *Dataset) Split(n int) (train, test *Dataset, err error) {
	total := d.Len()
	if n <= 0 || n >= total {
		return nil, nil, fmt.Errorf("dataset: split point %d out of range (1..%d)", n, total-1)
	}
	if len(d.Labels) != total {
		return nil, nil, fmt.Errorf("dataset: %d labels for %d samples", len(d.Labels), total)
	}

	_, c := d.Inputs.Dims()
	train = &Dataset{
		Inputs: mat.DenseCopyOf(d.Inputs.Slice(0, n, 0, c)),
		Labels: append([]int(nil), d.Labels[:n]...),
	}
	test = &Dataset{
		Inputs: mat.DenseCopyOf(d.Inputs.Slice(n, total, 0, c)),
		Labels: append([]int(nil), d.Labels[n:]...),
	}
	return train, test, nil
}

// Permutation returns a fresh random ordering of n indices drawn from rng.
// Drawing a new permutation each epoch changes minibatch composition.
func Permutation(rng *rand.Rand, n int) []int {
	return rng.Perm(n)
}

// Range is a half-open [Start, End) slice of an index sequence.
type Range struct {
	Start int
	End   int
}

// Size returns the number of indices covered.
func (r Range) Size() int { return r.End - r.Start }

// Ranges partitions n indices into contiguous batches of batchSize. The final
// batch may be smaller; it is never dropped or padded.
func Ranges(n, batchSize int) []Range {
	if n <= 0 || batchSize <= 0 {
		return nil
	}
	ranges := make([]Range, 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		ranges = append(ranges, Range{Start: start, End: end})
	}
	return ranges
}

// Gather materializes the rows selected by indices into a batch matrix and
// label slice ready for the device.
func (d *Dataset) Gather(indices []int) (*mat.Dense, []int) {
	_, c := d.Inputs.Dims()
	batch := mat.NewDense(len(indices), c, nil)
	labels := make([]int, len(indices))
	row := make([]float64, c)
	for i, idx := range indices {
		mat.Row(row, idx, d.Inputs)
		batch.SetRow(i, row)
		labels[i] = d.Labels[idx]
	}
	return batch, labels
}
