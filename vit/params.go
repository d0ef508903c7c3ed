package vit

import (
	"fmt"

	"github.com/vitlab/facevit/tensor"
)

// NamedParam pairs a trainable tensor with its checkpoint name.
type NamedParam struct {
	Name   string
	Tensor *tensor.Tensor
}

// Parameters returns all trainable tensors in a stable order. The optimizer
// relies on this order staying fixed for the lifetime of the model.
func (m *Model) Parameters() []*tensor.Tensor {
	named := m.NamedParameters()
	params := make([]*tensor.Tensor, len(named))
	for i, p := range named {
		params[i] = p.Tensor
	}
	return params
}

// NamedParameters returns all trainable tensors with stable names, in the
// same order as Parameters. The names are the checkpoint schema.
func (m *Model) NamedParameters() []NamedParam {
	params := []NamedParam{
		{"patch_embed.weight", m.patchProj},
		{"patch_embed.bias", m.patchBias},
		{"cls_token", m.clsToken},
		{"pos_embed", m.posEmbed},
	}
	for i, b := range m.blocks {
		prefix := fmt.Sprintf("blocks.%d", i)
		params = append(params,
			NamedParam{prefix + ".ln1.weight", b.ln1.gamma},
			NamedParam{prefix + ".ln1.bias", b.ln1.beta},
			NamedParam{prefix + ".attn.wq", b.attn.wq},
			NamedParam{prefix + ".attn.wk", b.attn.wk},
			NamedParam{prefix + ".attn.wv", b.attn.wv},
			NamedParam{prefix + ".attn.wo", b.attn.wo},
			NamedParam{prefix + ".ln2.weight", b.ln2.gamma},
			NamedParam{prefix + ".ln2.bias", b.ln2.beta},
			NamedParam{prefix + ".mlp.w1", b.mlp.w1},
			NamedParam{prefix + ".mlp.b1", b.mlp.b1},
			NamedParam{prefix + ".mlp.w2", b.mlp.w2},
			NamedParam{prefix + ".mlp.b2", b.mlp.b2},
		)
	}
	params = append(params,
		NamedParam{"norm.weight", m.lnFinal.gamma},
		NamedParam{"norm.bias", m.lnFinal.beta},
		NamedParam{"head.weight", m.head},
		NamedParam{"head.bias", m.headBias},
	)
	return params
}

// NumParameters returns the total trainable parameter count.
func (m *Model) NumParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.Size()
	}
	return total
}
