package vit

import (
	"math"
	"testing"

	"github.com/vitlab/facevit/tensor"
)

func tinyConfig() Config {
	return Config{
		ImageSize:  8,
		PatchSize:  4,
		NumClasses: 3,
		EmbedDim:   8,
		NumHeads:   2,
		Depth:      1,
		MLPDim:     16,
		Channels:   1,
	}
}

func tinyImage(cfg Config) []float32 {
	img := make([]float32, cfg.NumPixels())
	for i := range img {
		img[i] = float32(math.Sin(float64(i) * 0.37))
	}
	return img
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(c *Config) {}, false},
		{"PatchNotDividing", func(c *Config) { c.PatchSize = 5 }, true},
		{"HeadsNotDividing", func(c *Config) { c.NumHeads = 3 }, true},
		{"OneClass", func(c *Config) { c.NumClasses = 1 }, true},
		{"ZeroDepth", func(c *Config) { c.Depth = 0 }, true},
		{"ZeroChannels", func(c *Config) { c.Channels = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDerived(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.NumPatches(); got != 64 {
		t.Errorf("NumPatches() = %d, want 64", got)
	}
	if got := cfg.PatchDim(); got != 64 {
		t.Errorf("PatchDim() = %d, want 64", got)
	}
	if got := cfg.SeqLen(); got != 65 {
		t.Errorf("SeqLen() = %d, want 65", got)
	}
	if got := cfg.NumPixels(); got != 64*64 {
		t.Errorf("NumPixels() = %d, want %d", got, 64*64)
	}
}

func TestForwardShape(t *testing.T) {
	cfg := tinyConfig()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logits, err := m.Forward(tinyImage(cfg))
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	shape := logits.Shape()
	if shape[0] != 1 || shape[1] != cfg.NumClasses {
		t.Errorf("logits shape %v, want [1 %d]", shape, cfg.NumClasses)
	}
	for _, v := range logits.Data() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("logits contain non-finite value %v", v)
		}
	}
}

func TestForwardRejectsWrongSize(t *testing.T) {
	m, err := New(tinyConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := m.Forward(make([]float32, 10)); err == nil {
		t.Error("expected error for wrong input size")
	}
}

func TestForwardDeterministic(t *testing.T) {
	cfg := tinyConfig()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	img := tinyImage(cfg)

	a, err := m.Forward(img)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	b, err := m.Forward(img)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	for i := range a.Data() {
		if a.Data()[i] != b.Data()[i] {
			t.Fatalf("repeated forward differs at logit %d", i)
		}
	}
}

func TestPatchify(t *testing.T) {
	cfg := tinyConfig()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Pixel value encodes its position, so patch contents are checkable.
	img := make([]float32, cfg.NumPixels())
	for i := range img {
		img[i] = float32(i)
	}

	patches := m.patchify(img)
	if patches.Dim(0) != 4 || patches.Dim(1) != 16 {
		t.Fatalf("patches shape %v, want [4 16]", patches.Shape())
	}

	// Patch 1 is the top-right 4x4 block: rows 0..3, columns 4..7.
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := float64(y*8 + 4 + x)
			if got := patches.At(1, y*4+x); got != want {
				t.Errorf("patch 1 element (%d,%d) = %v, want %v", y, x, got, want)
			}
		}
	}
}

func TestNamedParametersStable(t *testing.T) {
	m, err := New(tinyConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	named := m.NamedParameters()
	seen := make(map[string]bool)
	for _, p := range named {
		if seen[p.Name] {
			t.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
	}

	params := m.Parameters()
	if len(params) != len(named) {
		t.Fatalf("Parameters/NamedParameters length mismatch: %d vs %d", len(params), len(named))
	}
	for i := range params {
		if params[i] != named[i].Tensor {
			t.Errorf("parameter order mismatch at %d (%s)", i, named[i].Name)
		}
	}
}

// crossEntropy is a local reference loss for the gradient check.
func crossEntropy(logits *tensor.Tensor, target int) float64 {
	row := logits.Data()
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	sum := 0.0
	for _, v := range row {
		sum += math.Exp(v - maxVal)
	}
	return maxVal + math.Log(sum) - row[target]
}

// TestBackwardGradientCheck verifies the full-model backward pass against
// central-difference numerical gradients on a tiny configuration.
func TestBackwardGradientCheck(t *testing.T) {
	if testing.Short() {
		t.Skip("gradient check is slow")
	}

	cfg := tinyConfig()
	m, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	img := tinyImage(cfg)
	const target = 1

	logits, backward, err := m.TrainForward(img)
	if err != nil {
		t.Fatalf("TrainForward failed: %v", err)
	}

	// gradLogits = softmax(logits) - onehot(target)
	probs := tensor.Softmax(logits)
	gradLogits := probs.Clone()
	gradLogits.Data()[target] -= 1.0
	backward(gradLogits)

	loss := func() float64 {
		out, err := m.Forward(img)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		return crossEntropy(out, target)
	}

	const h = 1e-5
	for _, p := range m.NamedParameters() {
		data := p.Tensor.Data()
		grad := p.Tensor.Grad()
		// Check a stride of elements per tensor to keep runtime modest.
		stride := len(data)/8 + 1
		for i := 0; i < len(data); i += stride {
			orig := data[i]
			data[i] = orig + h
			plus := loss()
			data[i] = orig - h
			minus := loss()
			data[i] = orig

			numeric := (plus - minus) / (2 * h)
			tol := 1e-4 + 1e-3*math.Abs(numeric)
			if math.Abs(grad[i]-numeric) > tol {
				t.Errorf("%s[%d]: analytic %v vs numeric %v", p.Name, i, grad[i], numeric)
			}
		}
	}
}
