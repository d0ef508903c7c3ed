// Command facetrain fine-tunes a Vision Transformer on a directory of face
// images, one subdirectory per person. It reports training progress, writes
// best and final checkpoints, and renders the loss curves to a PNG.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/vitlab/facevit/checkpoints"
	"github.com/vitlab/facevit/optimizer"
	"github.com/vitlab/facevit/training"
	"github.com/vitlab/facevit/vision/dataloader"
	"github.com/vitlab/facevit/vision/dataset"
	"github.com/vitlab/facevit/vision/preprocessing"
	"github.com/vitlab/facevit/vit"
)

const (
	batchSize    = 32
	testFraction = 0.25
)

func main() {
	dataDir := flag.String("data-dir", "data/faces", "directory with one subdirectory of images per person")
	minPerClass := flag.Int("min-per-class", 70, "drop classes with fewer images than this")
	checkpointDir := flag.String("checkpoint-dir", "checkpoints", "directory for model checkpoints")
	plotPath := flag.String("plot", "loss.png", "output path for the loss-curve plot")
	flag.Parse()

	faces, err := dataset.NewFacesDataset(*dataDir, *minPerClass)
	if err != nil {
		log.Fatalf("Failed to load dataset: %v", err)
	}
	fmt.Printf("Loaded %d images across %d classes from %s\n", faces.Len(), faces.NumClasses(), *dataDir)
	dist := faces.ClassDistribution()
	for _, name := range faces.ClassNames() {
		fmt.Printf("  %s: %d images\n", name, dist[name])
	}

	trainSet, testSet, err := dataset.StratifiedSplit(faces, testFraction)
	if err != nil {
		log.Fatalf("Failed to split dataset: %v", err)
	}
	fmt.Printf("Split: %d train / %d test\n", trainSet.Len(), testSet.Len())

	transform := preprocessing.Default()
	trainLoader, err := dataloader.NewDataLoader(trainSet, dataloader.Config{
		BatchSize: batchSize,
		Shuffle:   true,
		Transform: transform,
	})
	if err != nil {
		log.Fatalf("Failed to create train loader: %v", err)
	}
	testLoader, err := dataloader.NewDataLoader(testSet, dataloader.Config{
		BatchSize: batchSize,
		Shuffle:   false,
		Transform: transform,
	})
	if err != nil {
		log.Fatalf("Failed to create test loader: %v", err)
	}

	cfg := vit.DefaultConfig()
	cfg.NumClasses = faces.NumClasses()
	model, err := vit.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build model: %v", err)
	}
	fmt.Printf("Model: %d parameters\n", model.NumParameters())

	opt := optimizer.NewAdam(model.Parameters(), optimizer.DefaultAdamConfig())
	saver, err := checkpoints.NewSaver(*checkpointDir, model)
	if err != nil {
		log.Fatalf("Failed to create checkpoint saver: %v", err)
	}

	trainCfg := training.DefaultConfig()
	trainCfg.PlotPath = *plotPath
	trainer, err := training.NewTrainer(model, opt, trainLoader, testLoader, saver, trainCfg)
	if err != nil {
		log.Fatalf("Failed to create trainer: %v", err)
	}
	if err := trainer.Run(); err != nil {
		log.Fatalf("Training failed: %v", err)
	}

	fmt.Printf("Best validation accuracy: %.4f\n", trainer.BestAccuracy())

	_, _, cm, err := training.Evaluate(model, testLoader)
	if err != nil {
		log.Fatalf("Final evaluation failed: %v", err)
	}
	fmt.Println(cm)
	fmt.Printf("Checkpoints written to %s, loss curves to %s\n", *checkpointDir, *plotPath)
}
