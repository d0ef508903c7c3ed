package vit

import "fmt"

// Config holds the Vision Transformer architecture hyperparameters.
// All values are fixed at model construction and immutable thereafter.
type Config struct {
	ImageSize  int // input resolution (square)
	PatchSize  int // side length of one square patch token
	NumClasses int // identity classes
	EmbedDim   int // embedding dimension
	NumHeads   int // attention heads per block
	Depth      int // number of encoder blocks
	MLPDim     int // feed-forward hidden width
	Channels   int // input channels (1 for grayscale)
}

// DefaultConfig returns the configuration used for face fine-tuning:
// 64x64 grayscale input, 8x8 patches, 7 identity classes.
func DefaultConfig() Config {
	return Config{
		ImageSize:  64,
		PatchSize:  8,
		NumClasses: 7,
		EmbedDim:   128,
		NumHeads:   8,
		Depth:      6,
		MLPDim:     256,
		Channels:   1,
	}
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	if c.ImageSize <= 0 || c.PatchSize <= 0 || c.NumClasses <= 1 ||
		c.EmbedDim <= 0 || c.NumHeads <= 0 || c.Depth <= 0 ||
		c.MLPDim <= 0 || c.Channels <= 0 {
		return fmt.Errorf("all config dimensions must be positive (need at least 2 classes): %+v", c)
	}
	if c.ImageSize%c.PatchSize != 0 {
		return fmt.Errorf("image size %d not divisible by patch size %d", c.ImageSize, c.PatchSize)
	}
	if c.EmbedDim%c.NumHeads != 0 {
		return fmt.Errorf("embed dim %d not divisible by head count %d", c.EmbedDim, c.NumHeads)
	}
	return nil
}

// NumPatches returns the number of patch tokens per image.
func (c Config) NumPatches() int {
	side := c.ImageSize / c.PatchSize
	return side * side
}

// PatchDim returns the flattened length of one patch.
func (c Config) PatchDim() int {
	return c.Channels * c.PatchSize * c.PatchSize
}

// SeqLen returns the encoder sequence length: all patches plus the class
// token.
func (c Config) SeqLen() int {
	return c.NumPatches() + 1
}

// NumPixels returns the expected length of a transformed input image.
func (c Config) NumPixels() int {
	return c.Channels * c.ImageSize * c.ImageSize
}
