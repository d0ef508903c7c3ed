package dataset

import (
	"fmt"
	"strings"
)

// Sample is a single grayscale image paired with its class label.
// Pixel values are row-major float32 in [0, 1]. Samples are immutable once
// loaded; the transform pipeline never writes back into them.
type Sample struct {
	Pixels []float32
	Width  int
	Height int
	Label  int
}

// FacesDataset is an in-memory collection of labeled grayscale face images.
// Labels are dense: 0..NumClasses()-1, indexing into ClassNames().
type FacesDataset struct {
	samples    []*Sample
	classNames []string
}

// Len returns the number of samples in the dataset.
func (d *FacesDataset) Len() int {
	return len(d.samples)
}

// GetItem returns the sample at the given index.
func (d *FacesDataset) GetItem(index int) (*Sample, error) {
	if index < 0 || index >= len(d.samples) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", index, len(d.samples))
	}
	return d.samples[index], nil
}

// NumClasses returns the number of identity classes.
func (d *FacesDataset) NumClasses() int {
	return len(d.classNames)
}

// ClassNames returns the list of class names, indexed by label.
func (d *FacesDataset) ClassNames() []string {
	return d.classNames
}

// Labels returns the label of every sample, in dataset order.
func (d *FacesDataset) Labels() []int {
	labels := make([]int, len(d.samples))
	for i, s := range d.samples {
		labels[i] = s.Label
	}
	return labels
}

// ClassDistribution returns the number of samples per class name.
func (d *FacesDataset) ClassDistribution() map[string]int {
	dist := make(map[string]int)
	for _, s := range d.samples {
		dist[d.classNames[s.Label]]++
	}
	return dist
}

// Subset creates a new dataset containing the samples at the given indices.
// Samples are shared, not copied.
func (d *FacesDataset) Subset(indices []int) *FacesDataset {
	subset := &FacesDataset{
		samples:    make([]*Sample, len(indices)),
		classNames: d.classNames,
	}
	for i, idx := range indices {
		subset.samples[i] = d.samples[idx]
	}
	return subset
}

// String returns a human-readable summary of the dataset.
func (d *FacesDataset) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FacesDataset: %d samples, %d classes\n", len(d.samples), len(d.classNames)))
	dist := d.ClassDistribution()
	for _, name := range d.classNames {
		sb.WriteString(fmt.Sprintf("  %s: %d samples\n", name, dist[name]))
	}
	return sb.String()
}
