// Package trainer runs the epoch loop: shuffled minibatch training, a
// sequential evaluation pass, reconstruction export and end-of-run snapshots.
package trainer

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/config"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/dataset"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/layer"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/metrics"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/net"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/opt"
)

// Options captures everything a training run needs beyond the config.
type Options struct {
	Config *config.Config
	Data   dataset.Provider

	// Holdout is the number of trailing samples reserved for evaluation.
	// Zero reserves one sixth of the dataset.
	Holdout int

	// Recon receives one test sample per epoch when save_images is set.
	Recon ReconstructionWriter
}

// EpochResult holds the train and test summaries of one epoch.
type EpochResult struct {
	Epoch int
	Train metrics.Summary
	Test  metrics.Summary
}

// Run executes the full training workload and returns per-epoch results.
func Run(opts Options) ([]EpochResult, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("trainer: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	if opts.Data == nil {
		return nil, errors.New("trainer: no dataset provider")
	}

	dev, err := layer.Select(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	log.Printf("device=%s", dev)

	ds, err := opts.Data.Load()
	if err != nil {
		return nil, fmt.Errorf("trainer: load dataset: %w", err)
	}
	if got := ds.FeatureDim(); got != cfg.LayerSizes[0] {
		return nil, fmt.Errorf("trainer: dataset has %d features, network expects %d",
			got, cfg.LayerSizes[0])
	}
	holdout := opts.Holdout
	if holdout <= 0 {
		holdout = ds.Len() / 6
	}
	train, test, err := ds.Split(ds.Len() - holdout)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	log.Printf("dataset train=%d test=%d features=%d", train.Len(), test.Len(), ds.FeatureDim())

	rng := rand.New(rand.NewSource(cfg.Seed))
	ae, err := net.NewAutoencoder(cfg.LayerSizes, cfg.Variant == "normalized", rng)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	model, err := net.NewModel(ae, cfg.NumClasses, rng)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}
	if cfg.InitModel != "" {
		log.Printf("load model from %s", cfg.InitModel)
		if err := model.Load(cfg.InitModel); err != nil {
			return nil, fmt.Errorf("trainer: %w", err)
		}
	}

	sgd := opt.NewSGD(cfg.LearningRate)
	sgd.Momentum = cfg.Momentum
	sgd.WeightDecay = cfg.WeightDecay
	if cfg.Resume != "" {
		log.Printf("load optimizer state from %s", cfg.Resume)
		if err := sgd.Load(cfg.Resume); err != nil {
			return nil, fmt.Errorf("trainer: %w", err)
		}
		if err := sgd.CheckCompat(model); err != nil {
			return nil, fmt.Errorf("trainer: %w", err)
		}
	}

	results := make([]EpochResult, 0, cfg.Epochs)
	testIdx := sequential(test.Len())

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		log.Printf("epoch %d", epoch)

		model.SetTraining(true)
		perm := dataset.Permutation(rng, train.Len())
		acc := metrics.Start()
		for _, r := range dataset.Ranges(train.Len(), cfg.BatchSize) {
			x, t := train.Gather(perm[r.Start:r.End])
			loss := sgd.Update(model, x, t)
			acc.Record(r.Size(), loss, model.MSE())
		}
		tr := acc.Finish()
		log.Printf("train mean loss=%.6f, MSE=%.6f, throughput=%.1f images/sec",
			tr.MeanLoss, tr.MeanMSE, tr.Throughput)
		if tr.NonFinite > 0 {
			log.Printf("warning: %d training batches produced non-finite loss", tr.NonFinite)
		}

		model.SetTraining(false)
		eval := metrics.Start()
		for i, r := range dataset.Ranges(test.Len(), cfg.BatchSize) {
			x, t := test.Gather(testIdx[r.Start:r.End])
			loss := model.Compute(x, t)
			eval.Record(r.Size(), loss, model.MSE())

			if i == 0 && cfg.SaveImages && opts.Recon != nil {
				if err := exportFirst(opts.Recon, epoch, ae, x); err != nil {
					log.Printf("warning: reconstruction export: %v", err)
				}
			}
		}
		te := eval.Finish()
		log.Printf("test  mean loss=%.6f, MSE=%.6f", te.MeanLoss, te.MeanMSE)
		if te.NonFinite > 0 {
			log.Printf("warning: %d test batches produced non-finite loss", te.NonFinite)
		}

		results = append(results, EpochResult{Epoch: epoch, Train: tr, Test: te})
	}

	if cfg.OutDir != "" {
		if err := saveSnapshots(cfg.OutDir, model, sgd); err != nil {
			return results, err
		}
	}
	return results, nil
}

// exportFirst reconstructs the first sample of the batch and hands both
// vectors to the writer.
func exportFirst(w ReconstructionWriter, epoch int, ae *net.Autoencoder, x *mat.Dense) error {
	y := ae.Decode(ae.Encode(x))
	_, c := x.Dims()
	original := make([]float64, c)
	recon := make([]float64, c)
	mat.Row(original, 0, x)
	mat.Row(recon, 0, y)
	return w.Write(epoch, original, recon)
}

func saveSnapshots(dir string, model *net.Model, sgd *opt.SGD) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	modelPath := filepath.Join(dir, "mlp.model")
	log.Printf("save the model to %s", modelPath)
	if err := model.Save(modelPath); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	statePath := filepath.Join(dir, "mlp.state")
	log.Printf("save the optimizer to %s", statePath)
	if err := sgd.Save(statePath); err != nil {
		return fmt.Errorf("trainer: %w", err)
	}
	return nil
}

func sequential(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
