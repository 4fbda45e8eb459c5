package trainer

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestPNGWriter(t *testing.T) {
	dir := t.TempDir()
	w := &PNGWriter{Dir: dir}

	original := []float64{0, 0.25, 0.5, 1}
	recon := []float64{0.1, 0.4, 0.9, 1.2}
	if err := w.Write(3, original, recon); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "recon-epoch003.png"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	// 2x2 input renders side by side as 4x2.
	if b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("image is %dx%d, want 4x2", b.Dx(), b.Dy())
	}
}

func TestPNGWriterRejectsBadShapes(t *testing.T) {
	w := &PNGWriter{Dir: t.TempDir()}
	if err := w.Write(1, []float64{0, 1}, []float64{0}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if err := w.Write(1, []float64{0, 1, 0}, []float64{0, 1, 0}); err == nil {
		t.Error("expected error for non-square input")
	}
}

func TestToPixelClamps(t *testing.T) {
	cases := []struct {
		in   float64
		want uint8
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 128},
		{1, 255},
		{1.7, 255},
	}
	for _, tc := range cases {
		if got := toPixel(tc.in); got != tc.want {
			t.Errorf("toPixel(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
