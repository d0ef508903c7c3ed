// Package vit implements a Vision Transformer classifier: images are cut
// into fixed-size square patches, linearly embedded, prefixed with a learned
// class token, and run through a stack of pre-norm self-attention encoder
// blocks. The class token's final representation feeds a linear head that
// produces per-class logits.
package vit

import (
	"fmt"
	"math"

	"github.com/vitlab/facevit/tensor"
)

// Model is a trainable Vision Transformer. Parameters are exclusively owned
// by the training process; the model is not safe for concurrent use.
type Model struct {
	cfg Config

	patchProj *tensor.Tensor // (patchDim, embedDim)
	patchBias *tensor.Tensor // (embedDim)
	clsToken  *tensor.Tensor // (1, embedDim)
	posEmbed  *tensor.Tensor // (seqLen, embedDim)
	blocks    []*block
	lnFinal   *layerNorm
	head      *tensor.Tensor // (embedDim, numClasses)
	headBias  *tensor.Tensor // (numClasses)
}

type block struct {
	ln1  *layerNorm
	attn *attention
	ln2  *layerNorm
	mlp  *mlp
}

type mlp struct {
	w1, b1 *tensor.Tensor // (embedDim, mlpDim), (mlpDim)
	w2, b2 *tensor.Tensor // (mlpDim, embedDim), (embedDim)
}

type layerNorm struct {
	eps         float64
	gamma, beta *tensor.Tensor
}

// New constructs a model with freshly initialized parameters.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model config: %w", err)
	}

	m := &Model{
		cfg:       cfg,
		patchProj: scaledRand(math.Sqrt(2.0/float64(cfg.PatchDim())), cfg.PatchDim(), cfg.EmbedDim),
		patchBias: tensor.New(cfg.EmbedDim),
		clsToken:  scaledRand(0.02, 1, cfg.EmbedDim),
		posEmbed:  scaledRand(0.02, cfg.SeqLen(), cfg.EmbedDim),
		lnFinal:   newLayerNorm(cfg.EmbedDim),
		head:      scaledRand(math.Sqrt(2.0/float64(cfg.EmbedDim)), cfg.EmbedDim, cfg.NumClasses),
		headBias:  tensor.New(cfg.NumClasses),
	}
	for i := 0; i < cfg.Depth; i++ {
		m.blocks = append(m.blocks, newBlock(cfg))
	}
	return m, nil
}

func scaledRand(scale float64, shape ...int) *tensor.Tensor {
	t := tensor.NewRand(shape...)
	for i, v := range t.Data() {
		t.Data()[i] = v * scale
	}
	return t
}

func newBlock(cfg Config) *block {
	return &block{
		ln1:  newLayerNorm(cfg.EmbedDim),
		attn: newAttention(cfg.EmbedDim, cfg.NumHeads),
		ln2:  newLayerNorm(cfg.EmbedDim),
		mlp: &mlp{
			w1: scaledRand(math.Sqrt(2.0/float64(cfg.EmbedDim)), cfg.EmbedDim, cfg.MLPDim),
			b1: tensor.New(cfg.MLPDim),
			w2: scaledRand(math.Sqrt(2.0/float64(cfg.MLPDim)), cfg.MLPDim, cfg.EmbedDim),
			b2: tensor.New(cfg.EmbedDim),
		},
	}
}

func newLayerNorm(dim int) *layerNorm {
	ln := &layerNorm{
		eps:   1e-5,
		gamma: tensor.New(dim),
		beta:  tensor.New(dim),
	}
	for i := range ln.gamma.Data() {
		ln.gamma.Data()[i] = 1.0
	}
	return ln
}

// Config returns the model's architecture configuration.
func (m *Model) Config() Config { return m.cfg }

// forward runs the encoder. When cache is non-nil, activations needed for
// the backward pass are recorded into it.
func (m *Model) forward(image []float32, cache *Cache) (*tensor.Tensor, error) {
	if len(image) != m.cfg.NumPixels() {
		return nil, fmt.Errorf("image has %d values, model expects %d", len(image), m.cfg.NumPixels())
	}

	patches := m.patchify(image)
	x := tensor.AddBias(tensor.MatMul(patches, m.patchProj), m.patchBias)

	// Prepend the class token and add position embeddings.
	seqLen, embed := m.cfg.SeqLen(), m.cfg.EmbedDim
	seq := tensor.New(seqLen, embed)
	copy(seq.Data()[:embed], m.clsToken.Data())
	copy(seq.Data()[embed:], x.Data())
	seq = tensor.Add(seq, m.posEmbed)

	if cache != nil {
		cache.patches = patches
		cache.embedded = seq.Clone()
		cache.blocks = make([]*blockCache, len(m.blocks))
	}

	for i, b := range m.blocks {
		var bc *blockCache
		if cache != nil {
			bc = &blockCache{}
			cache.blocks[i] = bc
		}
		seq = b.forward(seq, bc)
	}

	if cache != nil {
		cache.lnFinalIn = seq.Clone()
	}
	normed := m.lnFinal.forward(seq)

	// Classify from the class token's representation only.
	cls := tensor.New(1, embed)
	copy(cls.Data(), normed.Data()[:embed])
	if cache != nil {
		cache.clsRow = cls.Clone()
	}

	logits := tensor.AddBias(tensor.MatMul(cls, m.head), m.headBias)
	return logits, nil
}

// Forward computes class logits for one transformed image.
// The result has shape (1, NumClasses).
func (m *Model) Forward(image []float32) (*tensor.Tensor, error) {
	return m.forward(image, nil)
}

// ForwardWithCache computes logits while recording the activations required
// by Backward.
func (m *Model) ForwardWithCache(image []float32) (*tensor.Tensor, *Cache, error) {
	cache := &Cache{}
	logits, err := m.forward(image, cache)
	if err != nil {
		return nil, nil, err
	}
	return logits, cache, nil
}

// TrainForward computes logits and returns a closure that backpropagates a
// logit gradient through the model, accumulating parameter gradients.
func (m *Model) TrainForward(image []float32) (*tensor.Tensor, func(*tensor.Tensor), error) {
	logits, cache, err := m.ForwardWithCache(image)
	if err != nil {
		return nil, nil, err
	}
	return logits, func(gradLogits *tensor.Tensor) {
		m.backward(gradLogits, cache)
	}, nil
}

// patchify cuts a CHW image into flattened patch rows: (numPatches, patchDim).
func (m *Model) patchify(image []float32) *tensor.Tensor {
	size := m.cfg.ImageSize
	patch := m.cfg.PatchSize
	channels := m.cfg.Channels
	side := size / patch

	out := tensor.New(m.cfg.NumPatches(), m.cfg.PatchDim())
	for py := 0; py < side; py++ {
		for px := 0; px < side; px++ {
			row := py*side + px
			i := 0
			for c := 0; c < channels; c++ {
				for y := 0; y < patch; y++ {
					srcY := py*patch + y
					for x := 0; x < patch; x++ {
						srcX := px*patch + x
						out.Set(float64(image[c*size*size+srcY*size+srcX]), row, i)
						i++
					}
				}
			}
		}
	}
	return out
}

func (b *block) forward(x *tensor.Tensor, bc *blockCache) *tensor.Tensor {
	if bc != nil {
		bc.input = x.Clone()
	}

	// Pre-norm attention with residual.
	ln1Out := b.ln1.forward(x)
	var ac *attnCache
	if bc != nil {
		ac = &attnCache{}
		bc.attn = ac
	}
	attnOut := b.attn.forward(ln1Out, ac)
	x = tensor.Add(x, attnOut)

	if bc != nil {
		bc.afterAttn = x.Clone()
	}

	// Pre-norm MLP with residual.
	ln2Out := b.ln2.forward(x)
	var mc *mlpCache
	if bc != nil {
		mc = &mlpCache{}
		bc.mlp = mc
	}
	mlpOut := b.mlp.forward(ln2Out, mc)
	return tensor.Add(x, mlpOut)
}

func (f *mlp) forward(x *tensor.Tensor, mc *mlpCache) *tensor.Tensor {
	pre := tensor.AddBias(tensor.MatMul(x, f.w1), f.b1)
	hidden := tensor.GELU(pre)
	if mc != nil {
		mc.input = x.Clone()
		mc.pre = pre.Clone()
		mc.hidden = hidden.Clone()
	}
	return tensor.AddBias(tensor.MatMul(hidden, f.w2), f.b2)
}

func (ln *layerNorm) forward(x *tensor.Tensor) *tensor.Tensor {
	rows, features := x.Dim(0), x.Dim(1)
	out := tensor.New(rows, features)
	n := float64(features)

	for r := 0; r < rows; r++ {
		row := x.Data()[r*features : (r+1)*features]

		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= n

		variance := 0.0
		for _, v := range row {
			d := v - mean
			variance += d * d
		}
		variance /= n
		std := math.Sqrt(variance + ln.eps)

		outRow := out.Data()[r*features : (r+1)*features]
		for f, v := range row {
			outRow[f] = ln.gamma.Data()[f]*(v-mean)/std + ln.beta.Data()[f]
		}
	}
	return out
}
