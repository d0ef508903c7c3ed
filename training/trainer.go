// Package training implements the fine-tuning loop: batched gradient descent
// over a training partition with periodic forward-only validation, best-model
// checkpointing, and loss-curve plotting.
package training

import (
	"fmt"

	"github.com/vitlab/facevit/optimizer"
	"github.com/vitlab/facevit/tensor"
	"github.com/vitlab/facevit/vision/dataloader"
)

// TrainableModel is the capability set the trainer needs from a classifier:
// forward-only inference, forward with a backpropagation closure, and access
// to the trainable parameters for the optimizer.
type TrainableModel interface {
	Forward(image []float32) (*tensor.Tensor, error)
	TrainForward(image []float32) (*tensor.Tensor, func(*tensor.Tensor), error)
	Parameters() []*tensor.Tensor
}

// CheckpointWriter persists model snapshots. SaveBest is called exactly when
// validation accuracy strictly improves; SaveFinal once, after the last epoch.
type CheckpointWriter interface {
	SaveBest(epoch int, accuracy float64) error
	SaveFinal() error
}

// Config holds the fixed training hyperparameters.
type Config struct {
	Epochs             int
	ValidationInterval int
	LearningRate       float64
	PlotPath           string // loss-curve PNG path; empty disables plotting
}

// DefaultConfig returns the face fine-tuning settings: 100 epochs,
// validation every 5 epochs, learning rate 3e-5.
func DefaultConfig() Config {
	return Config{
		Epochs:             100,
		ValidationInterval: 5,
		LearningRate:       3e-5,
	}
}

// Trainer drives the training loop. Any error during an epoch, a validation
// pass, or a checkpoint write aborts the run; there is no retry and no
// resumption from a partial run.
type Trainer struct {
	model TrainableModel
	opt   optimizer.Optimizer
	train *dataloader.DataLoader
	test  *dataloader.DataLoader
	saver CheckpointWriter // nil disables checkpointing
	cfg   Config

	history      *History
	bestAccuracy float64
}

// NewTrainer creates a trainer. saver may be nil to disable checkpointing.
func NewTrainer(model TrainableModel, opt optimizer.Optimizer, train, test *dataloader.DataLoader,
	saver CheckpointWriter, cfg Config) (*Trainer, error) {
	if model == nil || opt == nil || train == nil || test == nil {
		return nil, fmt.Errorf("model, optimizer, and loaders are required")
	}
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("epoch count must be positive, got %d", cfg.Epochs)
	}
	if cfg.ValidationInterval <= 0 {
		return nil, fmt.Errorf("validation interval must be positive, got %d", cfg.ValidationInterval)
	}
	if cfg.LearningRate < 0 {
		return nil, fmt.Errorf("learning rate must be non-negative, got %v", cfg.LearningRate)
	}
	return &Trainer{
		model:        model,
		opt:          opt,
		train:        train,
		test:         test,
		saver:        saver,
		cfg:          cfg,
		history:      NewHistory(),
		bestAccuracy: -1, // the first validation pass always improves on this
	}, nil
}

// History returns the accumulated loss and accuracy curves.
func (t *Trainer) History() *History { return t.history }

// BestAccuracy returns the best validation accuracy seen so far, or -1
// before the first validation pass.
func (t *Trainer) BestAccuracy() float64 { return t.bestAccuracy }

// Run executes the full training schedule: every epoch trains over one
// shuffled traversal; epochs whose index is a multiple of the validation
// interval (including epoch 0) also run a validation pass and checkpoint on
// strict accuracy improvement. After the last epoch the final model state is
// persisted unconditionally and the loss curves are rendered.
func (t *Trainer) Run() error {
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		trainLoss, trainAcc, err := t.runEpoch()
		if err != nil {
			return fmt.Errorf("epoch %d failed: %w", epoch, err)
		}
		t.history.RecordEpoch(trainLoss, trainAcc)
		fmt.Printf("epoch %3d/%d | train loss %.4f | train acc %.4f\n",
			epoch, t.cfg.Epochs, trainLoss, trainAcc)

		if epoch%t.cfg.ValidationInterval != 0 {
			continue
		}

		valLoss, valAcc, _, err := Evaluate(t.model, t.test)
		if err != nil {
			return fmt.Errorf("validation at epoch %d failed: %w", epoch, err)
		}
		t.history.RecordValidation(epoch, valLoss, valAcc)
		fmt.Printf("epoch %3d/%d | test loss %.4f | test acc %.4f\n",
			epoch, t.cfg.Epochs, valLoss, valAcc)

		if valAcc > t.bestAccuracy {
			t.bestAccuracy = valAcc
			if t.saver != nil {
				if err := t.saver.SaveBest(epoch, valAcc); err != nil {
					return fmt.Errorf("failed to checkpoint at epoch %d: %w", epoch, err)
				}
			}
		}
	}

	if t.saver != nil {
		if err := t.saver.SaveFinal(); err != nil {
			return fmt.Errorf("failed to write final checkpoint: %w", err)
		}
	}

	if t.cfg.PlotPath != "" {
		if err := RenderLossCurves(t.history, t.cfg.PlotPath); err != nil {
			return err
		}
	}
	return nil
}

// runEpoch trains over one shuffled traversal and returns the running mean
// loss and accuracy. Both are means of per-batch means: each batch counts
// equally regardless of size, so an undersized final batch is slightly
// overweighted.
func (t *Trainer) runEpoch() (loss, accuracy float64, err error) {
	t.train.Reset()
	params := t.model.Parameters()

	totalLoss, totalAcc := 0.0, 0.0
	batches := 0

	for {
		images, labels, n, err := t.train.NextBatch()
		if err != nil {
			return 0, 0, err
		}
		if n == 0 {
			break
		}

		pixels := len(images) / n
		t.opt.ZeroGrad(params)

		var batchLogits *tensor.Tensor
		backwards := make([]func(*tensor.Tensor), n)
		for i := 0; i < n; i++ {
			logits, backward, err := t.model.TrainForward(images[i*pixels : (i+1)*pixels])
			if err != nil {
				return 0, 0, err
			}
			if batchLogits == nil {
				batchLogits = tensor.New(n, logits.Dim(1))
			}
			classes := batchLogits.Dim(1)
			copy(batchLogits.Data()[i*classes:(i+1)*classes], logits.Data())
			backwards[i] = backward
		}

		targets := labels[:n]
		totalLoss += CrossEntropy(batchLogits, targets)
		totalAcc += Accuracy(batchLogits, targets)
		batches++

		classes := batchLogits.Dim(1)
		gradLogits := CrossEntropyBackward(batchLogits, targets)
		for i := 0; i < n; i++ {
			row := tensor.New(1, classes)
			copy(row.Data(), gradLogits.Data()[i*classes:(i+1)*classes])
			backwards[i](row)
		}

		t.opt.Step(params, t.cfg.LearningRate)
	}

	if batches == 0 {
		return 0, 0, fmt.Errorf("training loader produced no batches")
	}
	return totalLoss / float64(batches), totalAcc / float64(batches), nil
}

// Evaluate runs one forward-only traversal of the loader and returns the
// mean loss, mean accuracy (both means of per-batch means), and the
// confusion matrix of all predictions.
func Evaluate(model TrainableModel, loader *dataloader.DataLoader) (loss, accuracy float64, cm *ConfusionMatrix, err error) {
	loader.Reset()

	totalLoss, totalAcc := 0.0, 0.0
	batches := 0

	for {
		images, labels, n, err := loader.NextBatch()
		if err != nil {
			return 0, 0, nil, err
		}
		if n == 0 {
			break
		}

		pixels := len(images) / n
		var batchLogits *tensor.Tensor
		for i := 0; i < n; i++ {
			logits, err := model.Forward(images[i*pixels : (i+1)*pixels])
			if err != nil {
				return 0, 0, nil, err
			}
			if batchLogits == nil {
				batchLogits = tensor.New(n, logits.Dim(1))
				if cm == nil {
					cm = NewConfusionMatrix(logits.Dim(1))
				}
			}
			classes := batchLogits.Dim(1)
			copy(batchLogits.Data()[i*classes:(i+1)*classes], logits.Data())
		}

		targets := labels[:n]
		totalLoss += CrossEntropy(batchLogits, targets)
		totalAcc += Accuracy(batchLogits, targets)
		for i, pred := range Predictions(batchLogits) {
			cm.Add(int(targets[i]), pred)
		}
		batches++
	}

	if batches == 0 {
		return 0, 0, nil, fmt.Errorf("loader produced no batches")
	}
	return totalLoss / float64(batches), totalAcc / float64(batches), cm, nil
}
