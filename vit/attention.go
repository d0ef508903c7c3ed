package vit

import (
	"math"

	"github.com/vitlab/facevit/tensor"
)

// attention is bidirectional multi-head self-attention. Unlike a language
// model there is no causal mask: every patch token attends to every other.
type attention struct {
	embedDim int
	numHeads int
	headDim  int

	wq, wk, wv, wo *tensor.Tensor // (embedDim, embedDim)
}

func newAttention(embedDim, numHeads int) *attention {
	scale := math.Sqrt(2.0 / float64(embedDim))
	return &attention{
		embedDim: embedDim,
		numHeads: numHeads,
		headDim:  embedDim / numHeads,
		wq:       scaledRand(scale, embedDim, embedDim),
		wk:       scaledRand(scale, embedDim, embedDim),
		wv:       scaledRand(scale, embedDim, embedDim),
		wo:       scaledRand(scale, embedDim, embedDim),
	}
}

// forward computes self-attention for x of shape (seqLen, embedDim).
// When ac is non-nil, the projections and per-head attention weights are
// cached for the backward pass.
func (a *attention) forward(x *tensor.Tensor, ac *attnCache) *tensor.Tensor {
	seqLen := x.Dim(0)

	q := tensor.MatMul(x, a.wq)
	k := tensor.MatMul(x, a.wk)
	v := tensor.MatMul(x, a.wv)

	if ac != nil {
		ac.input = x.Clone()
		ac.q, ac.k, ac.v = q, k, v
		ac.headWeights = make([]*tensor.Tensor, a.numHeads)
	}

	scale := 1.0 / math.Sqrt(float64(a.headDim))
	context := tensor.New(seqLen, a.embedDim)

	for h := 0; h < a.numHeads; h++ {
		qh := a.sliceHead(q, h)
		kh := a.sliceHead(k, h)
		vh := a.sliceHead(v, h)

		scores := tensor.Scale(tensor.MatMul(qh, tensor.Transpose(kh)), scale)
		weights := tensor.Softmax(scores)
		if ac != nil {
			ac.headWeights[h] = weights
		}

		ctx := tensor.MatMul(weights, vh)
		a.placeHead(context, ctx, h)
	}

	if ac != nil {
		ac.context = context.Clone()
	}
	return tensor.MatMul(context, a.wo)
}

// backward propagates a gradient through the attention layer, accumulating
// weight gradients and returning the gradient with respect to the input.
func (a *attention) backward(gradOut *tensor.Tensor, ac *attnCache) *tensor.Tensor {
	seqLen := ac.input.Dim(0)
	scale := 1.0 / math.Sqrt(float64(a.headDim))

	gradContext, gradWo := tensor.MatMulBackward(ac.context, a.wo, gradOut)
	a.wo.AccumulateGrad(gradWo)

	gradQ := tensor.New(seqLen, a.embedDim)
	gradK := tensor.New(seqLen, a.embedDim)
	gradV := tensor.New(seqLen, a.embedDim)

	for h := 0; h < a.numHeads; h++ {
		qh := a.sliceHead(ac.q, h)
		kh := a.sliceHead(ac.k, h)
		vh := a.sliceHead(ac.v, h)
		weights := ac.headWeights[h]
		gradCtx := a.sliceHead(gradContext, h)

		// context = weights @ V
		gradWeights, gradVh := tensor.MatMulBackward(weights, vh, gradCtx)

		// weights = softmax(scores), scores = scale * Q @ K^T
		gradScores := tensor.SoftmaxBackward(weights, gradWeights)
		gradScores = tensor.Scale(gradScores, scale)

		gradQh, gradKT := tensor.MatMulBackward(qh, tensor.Transpose(kh), gradScores)
		gradKh := tensor.Transpose(gradKT)

		a.placeHead(gradQ, gradQh, h)
		a.placeHead(gradK, gradKh, h)
		a.placeHead(gradV, gradVh, h)
	}

	// All three projections share the same input; gradients add.
	gradInput := tensor.New(seqLen, a.embedDim)

	gradInputQ, gradWq := tensor.MatMulBackward(ac.input, a.wq, gradQ)
	a.wq.AccumulateGrad(gradWq)
	gradInput = tensor.Add(gradInput, gradInputQ)

	gradInputK, gradWk := tensor.MatMulBackward(ac.input, a.wk, gradK)
	a.wk.AccumulateGrad(gradWk)
	gradInput = tensor.Add(gradInput, gradInputK)

	gradInputV, gradWv := tensor.MatMulBackward(ac.input, a.wv, gradV)
	a.wv.AccumulateGrad(gradWv)
	gradInput = tensor.Add(gradInput, gradInputV)

	return gradInput
}

// sliceHead extracts head h's columns: (seqLen, embedDim) -> (seqLen, headDim).
func (a *attention) sliceHead(t *tensor.Tensor, h int) *tensor.Tensor {
	seqLen := t.Dim(0)
	out := tensor.New(seqLen, a.headDim)
	off := h * a.headDim
	for i := 0; i < seqLen; i++ {
		copy(out.Data()[i*a.headDim:(i+1)*a.headDim],
			t.Data()[i*a.embedDim+off:i*a.embedDim+off+a.headDim])
	}
	return out
}

// placeHead writes a (seqLen, headDim) tensor into head h's columns of dst.
func (a *attention) placeHead(dst, src *tensor.Tensor, h int) {
	seqLen := src.Dim(0)
	off := h * a.headDim
	for i := 0; i < seqLen; i++ {
		copy(dst.Data()[i*a.embedDim+off:i*a.embedDim+off+a.headDim],
			src.Data()[i*a.headDim:(i+1)*a.headDim])
	}
}
