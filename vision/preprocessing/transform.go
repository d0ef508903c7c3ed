package preprocessing

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/vitlab/facevit/vision/dataset"
)

// Transform is the fixed per-sample pipeline: resize to a square resolution,
// convert to float32 tensor data, normalize with a scalar mean/std pair.
// It is a pure function of its input: no shared mutable state, and identical
// samples always produce bit-identical output.
type Transform struct {
	Size int     // target square resolution
	Mean float32 // normalization mean
	Std  float32 // normalization standard deviation
}

// Default returns the transform used for face fine-tuning: 64x64 input
// normalized to mean 0.5, std 0.5.
func Default() Transform {
	return Transform{Size: 64, Mean: 0.5, Std: 0.5}
}

// Apply resizes the sample to Size x Size with bilinear interpolation and
// returns normalized pixel data of length Size*Size.
func (t Transform) Apply(s *dataset.Sample) ([]float32, error) {
	if t.Size <= 0 {
		return nil, fmt.Errorf("transform size must be positive, got %d", t.Size)
	}
	if t.Std == 0 {
		return nil, fmt.Errorf("transform std must be non-zero")
	}
	if len(s.Pixels) != s.Width*s.Height {
		return nil, fmt.Errorf("sample has %d pixels for %dx%d image", len(s.Pixels), s.Width, s.Height)
	}

	src := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for i, p := range s.Pixels {
		v := p * 255.0
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		src.Pix[i] = uint8(v + 0.5)
	}

	dst := image.NewGray(image.Rect(0, 0, t.Size, t.Size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := make([]float32, t.Size*t.Size)
	for i, p := range dst.Pix {
		out[i] = (float32(p)/255.0 - t.Mean) / t.Std
	}
	return out, nil
}
