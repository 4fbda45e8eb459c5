// Package config holds the runtime configuration for a training run.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Default architecture and hyperparameters for MNIST-sized inputs.
var DefaultLayerSizes = []int{784, 1000, 500, 250, 30}

const (
	DefaultEpochs       = 20
	DefaultBatchSize    = 100
	DefaultLearningRate = 0.01
	DefaultNumClasses   = 10
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataPath     string  `yaml:"data_path"`
	InitModel    string  `yaml:"init_model"`
	Resume       string  `yaml:"resume"`
	Variant      string  `yaml:"variant"` // plain or normalized
	Device       int     `yaml:"device"`  // negative selects the CPU
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	Momentum     float64 `yaml:"momentum"`
	WeightDecay  float64 `yaml:"weight_decay"`
	Seed         int64   `yaml:"seed"`
	LayerSizes   []int   `yaml:"layer_sizes"`
	NumClasses   int     `yaml:"num_classes"`
	OutDir       string  `yaml:"out_dir"`
	SaveImages   bool    `yaml:"save_images"`
}

// Default returns a Config populated with the standard run settings.
func Default() *Config {
	return &Config{
		Variant:      "plain",
		Device:       -1,
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		LearningRate: DefaultLearningRate,
		Seed:         1,
		LayerSizes:   append([]int(nil), DefaultLayerSizes...),
		NumClasses:   DefaultNumClasses,
		OutDir:       ".",
	}
}

// Overrides captures CLI supplied values. Zero values leave the config
// field untouched, so only flags the user actually set take effect.
type Overrides struct {
	DataPath     string
	InitModel    string
	Resume       string
	Variant      string
	Device       *int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Momentum     *float64
	WeightDecay  *float64
	Seed         int64
	LayerSizes   []int
	NumClasses   int
	OutDir       string
	SaveImages   *bool
}

// Load reads and validates a Config from YAML, starting from defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any set override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataPath != "" {
		c.DataPath = o.DataPath
	}
	if o.InitModel != "" {
		c.InitModel = o.InitModel
	}
	if o.Resume != "" {
		c.Resume = o.Resume
	}
	if o.Variant != "" {
		c.Variant = o.Variant
	}
	if o.Device != nil {
		c.Device = *o.Device
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Momentum != nil {
		c.Momentum = *o.Momentum
	}
	if o.WeightDecay != nil {
		c.WeightDecay = *o.WeightDecay
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if len(o.LayerSizes) > 0 {
		c.LayerSizes = append([]int(nil), o.LayerSizes...)
	}
	if o.NumClasses > 0 {
		c.NumClasses = o.NumClasses
	}
	if o.OutDir != "" {
		c.OutDir = o.OutDir
	}
	if o.SaveImages != nil {
		c.SaveImages = *o.SaveImages
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Variant != "plain" && c.Variant != "normalized" {
		return fmt.Errorf("variant must be plain or normalized (got %q)", c.Variant)
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.Momentum < 0 || c.Momentum >= 1 {
		return fmt.Errorf("momentum must be in [0, 1) (got %g)", c.Momentum)
	}
	if c.WeightDecay < 0 {
		return fmt.Errorf("weight_decay must be >= 0 (got %g)", c.WeightDecay)
	}
	if len(c.LayerSizes) < 2 {
		return fmt.Errorf("layer_sizes needs at least input and latent (got %d)", len(c.LayerSizes))
	}
	for i, s := range c.LayerSizes {
		if s <= 0 {
			return fmt.Errorf("layer_sizes[%d] must be > 0 (got %d)", i, s)
		}
	}
	if c.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be > 0 (got %d)", c.NumClasses)
	}
	return nil
}

// ParseLayerSizes parses a comma separated list like "784,1000,500,250,30".
func ParseLayerSizes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("layer size %q: %w", p, err)
		}
		sizes = append(sizes, v)
	}
	return sizes, nil
}

func parseYAML(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: missing ':'", lineNo)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, "\"'")
		switch key {
		case "data_path":
			cfg.DataPath = value
		case "init_model":
			cfg.InitModel = value
		case "resume":
			cfg.Resume = value
		case "variant":
			cfg.Variant = value
		case "device":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: device: %w", lineNo, err)
			}
			cfg.Device = v
		case "epochs":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: epochs: %w", lineNo, err)
			}
			cfg.Epochs = v
		case "batch_size":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: batch_size: %w", lineNo, err)
			}
			cfg.BatchSize = v
		case "learning_rate":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: learning_rate: %w", lineNo, err)
			}
			cfg.LearningRate = v
		case "momentum":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: momentum: %w", lineNo, err)
			}
			cfg.Momentum = v
		case "weight_decay":
			v, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: weight_decay: %w", lineNo, err)
			}
			cfg.WeightDecay = v
		case "seed":
			v, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: seed: %w", lineNo, err)
			}
			cfg.Seed = v
		case "layer_sizes":
			sizes, err := ParseLayerSizes(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cfg.LayerSizes = sizes
		case "num_classes":
			v, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: num_classes: %w", lineNo, err)
			}
			cfg.NumClasses = v
		case "out_dir":
			cfg.OutDir = value
		case "save_images":
			v, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("line %d: save_images: %w", lineNo, err)
			}
			cfg.SaveImages = v
		default:
			return nil, fmt.Errorf("line %d: unknown key %s", lineNo, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}
