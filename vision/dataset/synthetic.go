package dataset

import (
	"fmt"
	"math"
)

// NewSynthetic builds a deterministic synthetic dataset for tests and
// benchmarks: samplesPerClass images per class, each a class-dependent
// sinusoidal pattern with a small per-sample phase shift. No randomness, so
// repeated construction yields bit-identical data.
func NewSynthetic(samplesPerClass, numClasses, size int) *FacesDataset {
	d := &FacesDataset{}
	for label := 0; label < numClasses; label++ {
		d.classNames = append(d.classNames, fmt.Sprintf("class_%d", label))
		freq := float64(label+1) * 2.0
		for s := 0; s < samplesPerClass; s++ {
			phase := float64(s) * 0.1
			pixels := make([]float32, size*size)
			for y := 0; y < size; y++ {
				for x := 0; x < size; x++ {
					v := 0.5 + 0.45*math.Sin(freq*float64(x+y)/float64(size)+phase)
					pixels[y*size+x] = float32(v)
				}
			}
			d.samples = append(d.samples, &Sample{
				Pixels: pixels,
				Width:  size,
				Height: size,
				Label:  label,
			})
		}
	}
	return d
}
