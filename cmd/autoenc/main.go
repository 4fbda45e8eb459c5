// Command autoenc trains a classifying autoencoder on a CSV image dataset.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/FlavioCFOliveira/GoAutoencoder/internal/config"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/dataset"
	"github.com/FlavioCFOliveira/GoAutoencoder/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	dataPath := flag.String("data", "", "Path to CSV dataset")
	initModel := flag.String("m", "", "Initialize the model from given file")
	resume := flag.String("r", "", "Resume the optimization from snapshot")
	variant := flag.String("n", "", "Network type: plain or normalized")
	device := flag.Int("g", -1, "Device ID (negative value indicates CPU)")
	epochs := flag.Int("e", 0, "Number of epochs to learn")
	batchSize := flag.Int("b", 0, "Learning minibatch size")
	learningRate := flag.Float64("lr", 0, "SGD learning rate")
	momentum := flag.Float64("momentum", 0, "SGD momentum")
	weightDecay := flag.Float64("weight-decay", 0, "L2 weight decay")
	seed := flag.Int64("seed", 0, "PRNG seed")
	layers := flag.String("layers", "", "Comma separated layer sizes")
	classes := flag.Int("classes", 0, "Number of label classes")
	outDir := flag.String("out", "", "Directory for snapshots and images")
	saveImages := flag.Bool("save-images", false, "Export one reconstruction per epoch")
	holdout := flag.Int("holdout", 0, "Samples held out for evaluation (0 = one sixth)")
	header := flag.Bool("header", false, "Dataset CSV has a header row")

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	o := config.Overrides{
		DataPath:     *dataPath,
		InitModel:    *initModel,
		Resume:       *resume,
		Variant:      *variant,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *learningRate,
		Seed:         *seed,
		NumClasses:   *classes,
		OutDir:       *outDir,
	}
	// Distinguish explicitly set flags from their defaults.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "g":
			o.Device = device
		case "momentum":
			o.Momentum = momentum
		case "weight-decay":
			o.WeightDecay = weightDecay
		case "save-images":
			o.SaveImages = saveImages
		}
	})
	if *layers != "" {
		sizes, err := config.ParseLayerSizes(*layers)
		if err != nil {
			log.Fatalf("invalid -layers: %v", err)
		}
		o.LayerSizes = sizes
	}
	cfg.ApplyOverrides(o)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.DataPath == "" {
		log.Fatal("no dataset: set -data or data_path in the config")
	}

	log.Printf("Device: %d", cfg.Device)
	log.Printf("# Minibatch-size: %d", cfg.BatchSize)
	log.Printf("# epoch: %d", cfg.Epochs)
	log.Printf("Network type: %s", cfg.Variant)

	log.Printf("load dataset from %s", cfg.DataPath)
	provider := &dataset.CSVProvider{
		Path:      cfg.DataPath,
		LabelCol:  0,
		HasHeader: *header,
		Scale:     255,
	}

	opts := trainer.Options{
		Config:  cfg,
		Data:    provider,
		Holdout: *holdout,
	}
	if cfg.SaveImages {
		opts.Recon = &trainer.PNGWriter{Dir: filepath.Join(cfg.OutDir, "images")}
	}

	if _, err := trainer.Run(opts); err != nil {
		log.Fatalf("training failed: %v", err)
	}
}
