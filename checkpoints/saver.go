package checkpoints

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vitlab/facevit/vit"
)

// Saver writes best-model and final-model checkpoints for one model into a
// directory. Best checkpoints carry the epoch and accuracy in the filename;
// the final checkpoint has a fixed name and is overwritten on each run.
type Saver struct {
	dir   string
	model *vit.Model

	lastEpoch    int
	bestAccuracy float64
}

// NewSaver creates the checkpoint directory if needed and returns a saver
// for the model.
func NewSaver(dir string, model *vit.Model) (*Saver, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Saver{dir: dir, model: model, bestAccuracy: -1}, nil
}

// SaveBest writes a snapshot for a new best validation accuracy.
func (s *Saver) SaveBest(epoch int, accuracy float64) error {
	s.lastEpoch = epoch
	s.bestAccuracy = accuracy

	name := fmt.Sprintf("facevit_epoch%03d_acc%.4f.json", epoch, accuracy)
	return FromModel(s.model, epoch, accuracy).Save(filepath.Join(s.dir, name))
}

// SaveFinal writes the end-of-run snapshot regardless of accuracy.
func (s *Saver) SaveFinal() error {
	return FromModel(s.model, s.lastEpoch, s.bestAccuracy).Save(filepath.Join(s.dir, "facevit_final.json"))
}

// BestPath returns the filename SaveBest would use for the given result.
func BestPath(dir string, epoch int, accuracy float64) string {
	return filepath.Join(dir, fmt.Sprintf("facevit_epoch%03d_acc%.4f.json", epoch, accuracy))
}

// FinalPath returns the filename SaveFinal uses.
func FinalPath(dir string) string {
	return filepath.Join(dir, "facevit_final.json")
}
