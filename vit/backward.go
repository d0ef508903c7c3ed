package vit

import (
	"github.com/vitlab/facevit/tensor"
)

// Cache stores the activations from one forward pass that the backward pass
// needs. Training memory cost is dominated by these caches.
type Cache struct {
	patches   *tensor.Tensor // (numPatches, patchDim)
	embedded  *tensor.Tensor // sequence after class token + position embed
	blocks    []*blockCache
	lnFinalIn *tensor.Tensor
	clsRow    *tensor.Tensor // (1, embedDim) class-token row after final norm
}

type blockCache struct {
	input     *tensor.Tensor // block input
	attn      *attnCache
	afterAttn *tensor.Tensor // input + attention output
	mlp       *mlpCache
}

type attnCache struct {
	input       *tensor.Tensor
	q, k, v     *tensor.Tensor
	headWeights []*tensor.Tensor
	context     *tensor.Tensor
}

type mlpCache struct {
	input  *tensor.Tensor
	pre    *tensor.Tensor // before GELU
	hidden *tensor.Tensor // after GELU
}

// backward propagates the logit gradient through the whole model,
// accumulating gradients into every parameter's grad buffer.
func (m *Model) backward(gradLogits *tensor.Tensor, cache *Cache) {
	seqLen, embed := m.cfg.SeqLen(), m.cfg.EmbedDim

	// Head: logits = cls @ head + headBias.
	gradCls, gradHead := tensor.MatMulBackward(cache.clsRow, m.head, gradLogits)
	m.head.AccumulateGrad(gradHead)
	for j, g := range gradLogits.Data() {
		m.headBias.Grad()[j] += g
	}

	// Only the class-token row receives gradient from the head.
	gradNormed := tensor.New(seqLen, embed)
	copy(gradNormed.Data()[:embed], gradCls.Data())

	gradX, gradGamma, gradBeta := tensor.LayerNormBackward(
		cache.lnFinalIn, m.lnFinal.gamma, gradNormed, m.lnFinal.eps)
	m.lnFinal.gamma.AccumulateGrad(gradGamma)
	m.lnFinal.beta.AccumulateGrad(gradBeta)

	for i := len(m.blocks) - 1; i >= 0; i-- {
		gradX = m.blocks[i].backward(gradX, cache.blocks[i])
	}

	// Position embeddings: added directly to the sequence.
	m.posEmbed.AccumulateGrad(gradX)

	// Class token: row 0 of the sequence.
	for d := 0; d < embed; d++ {
		m.clsToken.Grad()[d] += gradX.Data()[d]
	}

	// Patch embedding: rows 1.. came from patches @ patchProj + patchBias.
	gradPatchEmb := tensor.New(m.cfg.NumPatches(), embed)
	copy(gradPatchEmb.Data(), gradX.Data()[embed:])

	_, gradProj := tensor.MatMulBackward(cache.patches, m.patchProj, gradPatchEmb)
	m.patchProj.AccumulateGrad(gradProj)
	for i, g := range gradPatchEmb.Data() {
		m.patchBias.Grad()[i%embed] += g
	}
}

func (b *block) backward(gradOut *tensor.Tensor, bc *blockCache) *tensor.Tensor {
	// out = afterAttn + mlp(ln2(afterAttn))
	gradMLPIn := b.mlp.backward(gradOut, bc.mlp)
	gradAfter, gradGamma2, gradBeta2 := tensor.LayerNormBackward(
		bc.afterAttn, b.ln2.gamma, gradMLPIn, b.ln2.eps)
	b.ln2.gamma.AccumulateGrad(gradGamma2)
	b.ln2.beta.AccumulateGrad(gradBeta2)

	gradX := tensor.Add(gradOut, gradAfter)

	// afterAttn = input + attn(ln1(input))
	gradAttnIn := b.attn.backward(gradX, bc.attn)
	gradInput, gradGamma1, gradBeta1 := tensor.LayerNormBackward(
		bc.input, b.ln1.gamma, gradAttnIn, b.ln1.eps)
	b.ln1.gamma.AccumulateGrad(gradGamma1)
	b.ln1.beta.AccumulateGrad(gradBeta1)

	return tensor.Add(gradX, gradInput)
}

func (f *mlp) backward(gradOut *tensor.Tensor, mc *mlpCache) *tensor.Tensor {
	mlpDim := f.b1.Dim(0)
	embed := f.b2.Dim(0)

	// out = hidden @ w2 + b2
	gradHidden, gradW2 := tensor.MatMulBackward(mc.hidden, f.w2, gradOut)
	f.w2.AccumulateGrad(gradW2)
	for i, g := range gradOut.Data() {
		f.b2.Grad()[i%embed] += g
	}

	// hidden = GELU(pre)
	gradPre := tensor.GELUBackward(mc.pre, gradHidden)

	// pre = x @ w1 + b1
	gradInput, gradW1 := tensor.MatMulBackward(mc.input, f.w1, gradPre)
	f.w1.AccumulateGrad(gradW1)
	for i, g := range gradPre.Data() {
		f.b1.Grad()[i%mlpDim] += g
	}

	return gradInput
}
