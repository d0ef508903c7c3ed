package dataloader

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/vitlab/facevit/vision/dataset"
	"github.com/vitlab/facevit/vision/preprocessing"
)

// Dataset is the contract the loader consumes: an indexable, finite
// collection of raw samples. Transforms are applied lazily per access by the
// loader; the dataset itself only stores raw data.
type Dataset interface {
	Len() int
	GetItem(index int) (*dataset.Sample, error)
}

// DataLoader traverses a dataset in mini-batches. Each traversal covers the
// partition exactly once in a freshly shuffled order (when shuffling is
// enabled); the final batch of a traversal may be smaller than the configured
// batch size. Reset starts a new traversal.
type DataLoader struct {
	dataset   Dataset
	batchSize int
	shuffle   bool
	transform preprocessing.Transform
	indices   []int
	position  int
	mu        sync.Mutex

	// Buffer reuse across batches.
	imageBuffer []float32
	labelBuffer []int32
}

// Config holds configuration for a DataLoader.
type Config struct {
	BatchSize int
	Shuffle   bool
	Transform preprocessing.Transform
}

// NewDataLoader creates a data loader over the given dataset.
func NewDataLoader(ds Dataset, config Config) (*DataLoader, error) {
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}
	if config.Shuffle {
		rand.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	return &DataLoader{
		dataset:   ds,
		batchSize: config.BatchSize,
		shuffle:   config.Shuffle,
		transform: config.Transform,
		indices:   indices,
	}, nil
}

// Reset starts a new traversal, reshuffling the visit order when shuffling
// is enabled.
func (dl *DataLoader) Reset() {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	dl.position = 0
	if dl.shuffle {
		rand.Shuffle(len(dl.indices), func(i, j int) {
			dl.indices[i], dl.indices[j] = dl.indices[j], dl.indices[i]
		})
	}
}

// NextBatch returns the next batch of transformed images and labels.
// images holds n contiguous transformed samples of Size*Size values each;
// labels holds the n matching class labels. n is 0 once the traversal is
// exhausted. Any dataset or transform failure aborts the batch.
//
// The returned slices alias internal buffers and are only valid until the
// next NextBatch call.
func (dl *DataLoader) NextBatch() (images []float32, labels []int32, n int, err error) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	remaining := len(dl.indices) - dl.position
	if remaining <= 0 {
		return nil, nil, 0, nil
	}

	batchSize := dl.batchSize
	if remaining < batchSize {
		batchSize = remaining
	}

	pixelsPerImage := dl.transform.Size * dl.transform.Size
	requiredImageSize := batchSize * pixelsPerImage
	if len(dl.imageBuffer) < requiredImageSize {
		dl.imageBuffer = make([]float32, requiredImageSize)
	}
	if len(dl.labelBuffer) < batchSize {
		dl.labelBuffer = make([]int32, batchSize)
	}
	images = dl.imageBuffer[:requiredImageSize]
	labels = dl.labelBuffer[:batchSize]

	for i := 0; i < batchSize; i++ {
		idx := dl.indices[dl.position]
		sample, err := dl.dataset.GetItem(idx)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to fetch sample %d: %w", idx, err)
		}

		transformed, err := dl.transform.Apply(sample)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to transform sample %d: %w", idx, err)
		}

		copy(images[i*pixelsPerImage:(i+1)*pixelsPerImage], transformed)
		labels[i] = int32(sample.Label)
		dl.position++
	}

	return images, labels, batchSize, nil
}

// Progress returns the current position within the traversal and the total
// number of samples.
func (dl *DataLoader) Progress() (current, total int) {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.position, len(dl.indices)
}

// BatchSize returns the configured maximum batch size.
func (dl *DataLoader) BatchSize() int { return dl.batchSize }

// NumBatches returns the number of batches in one full traversal.
func (dl *DataLoader) NumBatches() int {
	return (len(dl.indices) + dl.batchSize - 1) / dl.batchSize
}
