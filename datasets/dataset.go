package datasets

import (
	"fmt"
	"image"
	"io"
	"math/rand"
	"sync"

	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	timage "github.com/gomlx/gomlx/types/tensors/images"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"

	"github.com/suyunov6/slurm-cnn/transforms"
)

// Split selects the train or test partition of a dataset.
type Split int

const (
	Train Split = iota
	Test
)

// String implements fmt.Stringer.
func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Test:
		return "test"
	}
	return fmt.Sprintf("Split(%d)", int(s))
}

// Config holds the per-split construction options of a catalog dataset.
type Config struct {
	// Split selects the train or test partition.
	Split Split

	// Download fetches the source files if they are missing under the root
	// directory. A download failure is returned unmodified to the caller.
	Download bool

	// BatchSize of the yielded batches. The last batch of an epoch may be
	// smaller. It must be set to a positive value.
	BatchSize int

	// Shuffle, when set, yields examples in a random order, reshuffled at
	// every epoch. When nil, examples are yielded in storage order.
	Shuffle *rand.Rand

	// Augment, when set, is applied to each image before tensor conversion.
	Augment transforms.Transform

	// Normalization, when set, is applied to each yielded batch tensor.
	Normalization *transforms.Normalization

	// DType of the yielded image tensors. Defaults to Float32.
	DType dtypes.DType
}

func (cfg *Config) dtype() dtypes.DType {
	if cfg.DType == dtypes.InvalidDType {
		return dtypes.Float32
	}
	return cfg.DType
}

// Dataset is an in-memory image classification dataset: decoded images plus
// integer labels, batched and optionally shuffled, with the configured
// transforms applied lazily at yield time.
//
// It implements train.Dataset, so it can be fed to train.Loop or wrapped in
// data.CustomParallel for prefetching.
type Dataset struct {
	name   string
	images []image.Image
	labels []int64

	augment       transforms.Transform
	normalization *transforms.Normalization
	toTensor      *timage.ToTensorConfig
	batchSize     int

	// mu serializes the sampling state below.
	mu       sync.Mutex
	shuffle  *rand.Rand
	indices  []int
	position int
}

var _ train.Dataset = (*Dataset)(nil)

// NewDataset creates a Dataset from already-decoded images and labels. All
// images must have the same size. It is used by the catalog builders, and is
// handy for tests with small synthetic datasets provided inline.
func NewDataset(name string, images []image.Image, labels []int64, cfg *Config) (*Dataset, error) {
	if len(images) == 0 {
		return nil, errors.Errorf("dataset %q has no images", name)
	}
	if len(images) != len(labels) {
		return nil, errors.Errorf("dataset %q has %d images but %d labels", name, len(images), len(labels))
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.Errorf("dataset %q: batch size must be positive, got %d", name, cfg.BatchSize)
	}
	ds := &Dataset{
		name:          name,
		images:        images,
		labels:        labels,
		augment:       cfg.Augment,
		normalization: cfg.Normalization,
		toTensor:      timage.ToTensor(cfg.dtype()),
		batchSize:     cfg.BatchSize,
		shuffle:       cfg.Shuffle,
	}
	ds.resetIndices()
	return ds, nil
}

// Name implements train.Dataset.
func (ds *Dataset) Name() string { return ds.name }

// NumExamples in the dataset.
func (ds *Dataset) NumExamples() int { return len(ds.images) }

// Reset implements train.Dataset: it restarts the epoch, reshuffling the
// example order if a shuffle rng was configured.
func (ds *Dataset) Reset() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.resetIndices()
}

func (ds *Dataset) resetIndices() {
	if ds.shuffle != nil {
		ds.indices = ds.shuffle.Perm(len(ds.images))
	} else {
		ds.indices = ds.indices[:0]
		for i := range ds.images {
			ds.indices = append(ds.indices, i)
		}
	}
	ds.position = 0
}

// Yield implements train.Dataset. It returns:
//
//   - spec: the Dataset itself.
//   - inputs: one tensor with the images batch, shaped
//     `[batch_size, height, width, 3]`.
//   - labels: one Int64 tensor shaped `[batch_size]`.
//
// The last batch of an epoch may be smaller than the configured batch size
// and is returned together with io.EOF. The next Yield starts a new epoch.
func (ds *Dataset) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.position >= len(ds.indices) {
		ds.resetIndices()
	}
	start := ds.position
	end := start + ds.batchSize
	if end >= len(ds.indices) {
		end = len(ds.indices)
		err = io.EOF
	}
	ds.position = end
	selected := ds.indices[start:end]

	batch := make([]image.Image, 0, len(selected))
	for _, idx := range selected {
		img := ds.images[idx]
		if ds.augment != nil {
			img = ds.augment.Apply(img)
		}
		batch = append(batch, img)
	}
	imagesT := ds.toTensor.Batch(batch)
	if ds.normalization != nil {
		if normErr := ds.normalization.ApplyBatch(imagesT); normErr != nil {
			return nil, nil, nil, errors.WithMessagef(normErr, "normalizing batch of dataset %q", ds.name)
		}
	}
	labelsT := tensors.FromFlatDataAndDimensions(Select(ds.labels, selected), len(selected))
	return ds, []*tensors.Tensor{imagesT}, []*tensors.Tensor{labelsT}, err
}

// Select returns the items at the given indices. Out-of-range indices are
// skipped.
func Select[T any, I constraints.Integer](items []T, idx []I) []T {
	selected := make([]T, 0, len(idx))
	nItems := len(items)
	for _, i := range idx {
		if i >= 0 && i < I(nItems) {
			selected = append(selected, items[i])
		}
	}
	return selected
}
