// Package slurmcnn wires vision datasets into normalized, augmented, batched
// train/test loaders.
//
// The pipeline is: resolve the dataset name against the catalog, stream once
// over the raw training images to compute per-channel normalization
// statistics, then build the train loader (random crop with padding, random
// horizontal flip, tensor conversion, normalization, shuffled) and the test
// loader (tensor conversion and normalization only, in storage order).
package slurmcnn

import (
	"math/rand"
	"time"

	"github.com/gomlx/gomlx/ml/data"
	"github.com/gomlx/gomlx/ml/train"
	"github.com/pkg/errors"

	"github.com/suyunov6/slurm-cnn/datasets"
	"github.com/suyunov6/slurm-cnn/transforms"
)

// CropPadding is the number of black pixels added on every side of a training
// image before the random crop back to the original size.
const CropPadding = 4

// LoadDataset builds the train and test loaders for the named dataset,
// downloading its source files under root if missing.
//
// The dataset name is matched ignoring case and spaces; an unknown name fails
// with the closest catalog names as suggestions. The train loader is
// shuffled and, when numWorkers > 0, wrapped in a parallel prefetcher with
// that many workers. The test loader is left sequential, so its batch order
// is deterministic across runs.
//
// Both loaders yield image batches shaped `[batch, height, width, 3]`
// (Float32) and Int64 label batches shaped `[batch]`, ending each epoch with
// io.EOF.
func LoadDataset(name, root string, batchSize, numWorkers int) (trainDS, testDS train.Dataset, err error) {
	spec, err := datasets.Resolve(name)
	if err != nil {
		return nil, nil, err
	}

	// Statistics pass over the raw (un-normalized, unshuffled) training
	// images.
	probe, err := spec.Builder(root, &datasets.Config{
		Split:     datasets.Train,
		Download:  true,
		BatchSize: batchSize,
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "building %s statistics dataset", spec.Name)
	}
	stats, err := datasets.ComputeStats(probe)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "computing %s statistics", spec.Name)
	}
	normalization, err := transforms.NewNormalization(stats.Mean, stats.StdDev)
	if err != nil {
		return nil, nil, err
	}

	seed := time.Now().UTC().UnixNano()
	shuffle := rand.New(rand.NewSource(seed))
	trainSet, err := spec.Builder(root, &datasets.Config{
		Split:         datasets.Train,
		Download:      true,
		BatchSize:     batchSize,
		Shuffle:       shuffle,
		Augment:       TrainAugmentation(stats, rand.New(rand.NewSource(seed+1))),
		Normalization: normalization,
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "building %s train dataset", spec.Name)
	}
	testSet, err := spec.Builder(root, &datasets.Config{
		Split:         datasets.Test,
		Download:      true,
		BatchSize:     batchSize,
		Normalization: normalization,
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "building %s test dataset", spec.Name)
	}

	trainDS, testDS = trainSet, testSet
	if numWorkers > 0 {
		// The parallel wrapper does not preserve yield order, so only the
		// train loader is wrapped.
		trainDS = data.CustomParallel(trainSet).Parallelism(numWorkers).Buffer(numWorkers).Start()
	}
	return trainDS, testDS, nil
}

// TrainAugmentation is the image-space augmentation applied to training
// images: a random crop back to the recorded size after padding with
// CropPadding pixels, followed by a random horizontal flip.
func TrainAugmentation(stats datasets.Stats, rng *rand.Rand) transforms.Transform {
	return transforms.Compose{
		transforms.NewRandomCrop(stats.Height, stats.Width, CropPadding, rng),
		transforms.NewRandomHorizontalFlip(rng),
	}
}
