package dataset

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"

	_ "image/jpeg"
	_ "image/png"
)

// NewFacesDataset loads a face dataset from a directory tree where each
// subdirectory is one person and contains their face images. Classes with
// fewer than minPerClass images are dropped, and the surviving classes are
// relabeled to a dense 0..K-1 range in sorted name order. This mirrors the
// usual "minimum faces per person" fetch filter for small identity datasets.
func NewFacesDataset(root string, minPerClass int) (*FacesDataset, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset root %s: %w", root, err)
	}

	type class struct {
		name  string
		paths []string
	}

	var classes []class
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		var paths []string
		for _, ext := range []string{"*.jpg", "*.jpeg", "*.png"} {
			matches, err := filepath.Glob(filepath.Join(dir, ext))
			if err != nil {
				return nil, fmt.Errorf("failed to list images in %s: %w", dir, err)
			}
			paths = append(paths, matches...)
		}
		if len(paths) < minPerClass {
			continue
		}
		sort.Strings(paths)
		classes = append(classes, class{name: entry.Name(), paths: paths})
	}

	if len(classes) == 0 {
		return nil, fmt.Errorf("no classes with at least %d images found in %s", minPerClass, root)
	}

	sort.Slice(classes, func(i, j int) bool { return classes[i].name < classes[j].name })

	dataset := &FacesDataset{}
	for label, c := range classes {
		dataset.classNames = append(dataset.classNames, c.name)
		for _, path := range c.paths {
			sample, err := loadGrayscale(path, label)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", path, err)
			}
			dataset.samples = append(dataset.samples, sample)
		}
	}

	return dataset, nil
}

// loadGrayscale decodes an image file and converts it to a grayscale sample
// with pixel values in [0, 1].
func loadGrayscale(path string, label int) (*Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	pixels := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			gray := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			pixels[y*width+x] = float32(gray.Y) / 255.0
		}
	}

	return &Sample{
		Pixels: pixels,
		Width:  width,
		Height: height,
		Label:  label,
	}, nil
}
