package checkpoints

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/vitlab/facevit/vit"
)

func tinyConfig() vit.Config {
	return vit.Config{
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

func testImage(cfg vit.Config) []float32 {
	image := make([]float32, cfg.NumPixels())
	for i := range image {
		image[i] = float32(i%7)/7.0 - 0.5
	}
	return image
}

func TestCheckpointRoundTrip(t *testing.T) {
	model, err := vit.New(tinyConfig())
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "ckpt.json")
	if err := FromModel(model, 7, 0.8571).Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Config != model.Config() {
		t.Errorf("config = %+v, want %+v", loaded.Config, model.Config())
	}
	if loaded.TrainingState.Epoch != 7 || loaded.TrainingState.BestAccuracy != 0.8571 {
		t.Errorf("training state = %+v", loaded.TrainingState)
	}
	if loaded.Metadata.Framework != "facevit" {
		t.Errorf("framework = %q, want facevit", loaded.Metadata.Framework)
	}
	if len(loaded.Weights) != len(model.NamedParameters()) {
		t.Errorf("got %d weights, want %d", len(loaded.Weights), len(model.NamedParameters()))
	}
}

func TestRestoreReproducesOutputs(t *testing.T) {
	cfg := tinyConfig()
	source, err := vit.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "ckpt.json")
	if err := FromModel(source, 0, 0.5).Save(path); err != nil {
		t.Fatal(err)
	}

	restored, ckpt, err := LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if ckpt.TrainingState.BestAccuracy != 0.5 {
		t.Errorf("BestAccuracy = %v, want 0.5", ckpt.TrainingState.BestAccuracy)
	}

	image := testImage(cfg)
	want, err := source.Forward(image)
	if err != nil {
		t.Fatal(err)
	}
	got, err := restored.Forward(image)
	if err != nil {
		t.Fatal(err)
	}
	for i := range want.Data() {
		if math.Abs(got.Data()[i]-want.Data()[i]) > 1e-12 {
			t.Fatalf("logit %d = %v after restore, want %v", i, got.Data()[i], want.Data()[i])
		}
	}
}

func TestCheckpointIsSnapshot(t *testing.T) {
	model, err := vit.New(tinyConfig())
	if err != nil {
		t.Fatal(err)
	}

	ckpt := FromModel(model, 0, 0)
	before := ckpt.Weights[0].Data[0]

	// Mutating the live model must not change the snapshot.
	model.Parameters()[0].Data()[0] += 42
	if ckpt.Weights[0].Data[0] != before {
		t.Error("checkpoint weights alias live model parameters")
	}
}

func TestRestoreShapeMismatch(t *testing.T) {
	model, err := vit.New(tinyConfig())
	if err != nil {
		t.Fatal(err)
	}
	ckpt := FromModel(model, 0, 0)
	ckpt.Weights[0].Shape = []int{1, 1}
	ckpt.Weights[0].Data = []float64{0}

	if err := ckpt.Restore(model); err == nil {
		t.Error("expected shape mismatch error")
	}
}

func TestRestoreMissingWeight(t *testing.T) {
	model, err := vit.New(tinyConfig())
	if err != nil {
		t.Fatal(err)
	}
	ckpt := FromModel(model, 0, 0)
	ckpt.Weights = ckpt.Weights[1:]

	if err := ckpt.Restore(model); err == nil {
		t.Error("expected missing weight error")
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed file")
	}
}

func TestSaverFilenames(t *testing.T) {
	model, err := vit.New(tinyConfig())
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "ckpts")
	saver, err := NewSaver(dir, model)
	if err != nil {
		t.Fatalf("NewSaver failed: %v", err)
	}

	if err := saver.SaveBest(3, 0.75); err != nil {
		t.Fatalf("SaveBest failed: %v", err)
	}
	if _, err := os.Stat(BestPath(dir, 3, 0.75)); err != nil {
		t.Errorf("best checkpoint not at expected path: %v", err)
	}

	if err := saver.SaveFinal(); err != nil {
		t.Fatalf("SaveFinal failed: %v", err)
	}
	final, err := Load(FinalPath(dir))
	if err != nil {
		t.Fatalf("final checkpoint unreadable: %v", err)
	}
	if final.TrainingState.Epoch != 3 || final.TrainingState.BestAccuracy != 0.75 {
		t.Errorf("final training state = %+v, want epoch 3 acc 0.75", final.TrainingState)
	}
}
