// Package checkpoints persists model state to disk as JSON and restores it
// into a freshly constructed model.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/vitlab/facevit/vit"
)

// Checkpoint represents a complete model state: architecture configuration,
// weights, and training metadata.
type Checkpoint struct {
	Config  vit.Config     `json:"config"`
	Weights []WeightTensor `json:"weights"`

	TrainingState TrainingState `json:"training_state"`

	Metadata Metadata `json:"metadata"`
}

// WeightTensor represents one named model parameter with its data.
type WeightTensor struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// TrainingState captures the training progress at save time.
type TrainingState struct {
	Epoch        int     `json:"epoch"`
	BestAccuracy float64 `json:"best_accuracy"`
}

// Metadata identifies the producing framework and save time.
type Metadata struct {
	Framework string `json:"framework"`
	Version   string `json:"version"`
	CreatedAt string `json:"created_at"`
}

// FromModel snapshots a model into a checkpoint. Weight data is copied, so
// later training steps do not mutate the checkpoint.
func FromModel(model *vit.Model, epoch int, bestAccuracy float64) *Checkpoint {
	params := model.NamedParameters()
	weights := make([]WeightTensor, len(params))
	for i, p := range params {
		data := make([]float64, p.Tensor.Size())
		copy(data, p.Tensor.Data())
		shape := make([]int, len(p.Tensor.Shape()))
		copy(shape, p.Tensor.Shape())
		weights[i] = WeightTensor{Name: p.Name, Shape: shape, Data: data}
	}

	return &Checkpoint{
		Config:  model.Config(),
		Weights: weights,
		TrainingState: TrainingState{
			Epoch:        epoch,
			BestAccuracy: bestAccuracy,
		},
		Metadata: Metadata{
			Framework: "facevit",
			Version:   "1.0",
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// Save writes the checkpoint to path as indented JSON.
func (c *Checkpoint) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint from path.
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &c, nil
}

// Restore copies the checkpoint weights into the model. Every model
// parameter must have a matching checkpoint weight with identical shape.
func (c *Checkpoint) Restore(model *vit.Model) error {
	byName := make(map[string]*WeightTensor, len(c.Weights))
	for i := range c.Weights {
		byName[c.Weights[i].Name] = &c.Weights[i]
	}

	for _, p := range model.NamedParameters() {
		w, ok := byName[p.Name]
		if !ok {
			return fmt.Errorf("checkpoint is missing weight %q", p.Name)
		}
		if !shapesEqual(w.Shape, p.Tensor.Shape()) {
			return fmt.Errorf("weight %q has shape %v, model expects %v", p.Name, w.Shape, p.Tensor.Shape())
		}
		if len(w.Data) != p.Tensor.Size() {
			return fmt.Errorf("weight %q has %d values, model expects %d", p.Name, len(w.Data), p.Tensor.Size())
		}
		copy(p.Tensor.Data(), w.Data)
	}
	return nil
}

// LoadModel reads a checkpoint and builds a model from its stored
// configuration and weights.
func LoadModel(path string) (*vit.Model, *Checkpoint, error) {
	c, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	model, err := vit.New(c.Config)
	if err != nil {
		return nil, nil, fmt.Errorf("checkpoint has invalid model config: %w", err)
	}
	if err := c.Restore(model); err != nil {
		return nil, nil, err
	}
	return model, c, nil
}

func shapesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
