package trainer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
)

// ReconstructionWriter receives one sample per epoch: the original input and
// the network's reconstruction of it.
type ReconstructionWriter interface {
	Write(epoch int, original, reconstruction []float64) error
}

// PNGWriter renders the original and reconstructed vectors side by side as a
// grayscale PNG, one file per epoch. Inputs are treated as square images.
type PNGWriter struct {
	Dir string
}

// Write renders original and reconstruction into Dir/recon-epochNNN.png.
func (w *PNGWriter) Write(epoch int, original, reconstruction []float64) error {
	if len(original) != len(reconstruction) {
		return fmt.Errorf("export: original has %d values, reconstruction %d",
			len(original), len(reconstruction))
	}
	side := int(math.Sqrt(float64(len(original))))
	if side*side != len(original) {
		return fmt.Errorf("export: %d values is not a square image", len(original))
	}

	img := image.NewGray(image.Rect(0, 0, 2*side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.SetGray(x, y, color.Gray{Y: toPixel(original[y*side+x])})
			img.SetGray(side+x, y, color.Gray{Y: toPixel(reconstruction[y*side+x])})
		}
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("recon-epoch%03d.png", epoch))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("export: encode %s: %w", path, err)
	}
	return nil
}

// toPixel maps a unit-interval intensity to an 8-bit gray value, clamping
// out-of-range reconstructions.
func toPixel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
