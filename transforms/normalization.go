package transforms

import (
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// Normalization shifts and scales every channel of an image batch:
// `(x - mean[c]) / stddev[c]`, with the channel axis last (NHWC, the layout
// produced by images.ToTensor).
type Normalization struct {
	mean, stddev []float64
}

// NewNormalization creates a per-channel Normalization from the given mean and
// standard deviation vectors. Zero standard deviations are replaced by one, so
// constant channels normalize to zero instead of ±Inf.
func NewNormalization(mean, stddev []float64) (*Normalization, error) {
	if len(mean) == 0 || len(mean) != len(stddev) {
		return nil, errors.Errorf("mean and stddev must be non-empty and of the same length, got %d and %d",
			len(mean), len(stddev))
	}
	n := &Normalization{
		mean:   append([]float64(nil), mean...),
		stddev: make([]float64, len(stddev)),
	}
	for c, s := range stddev {
		if s < 0 {
			return nil, errors.Errorf("stddev[%d] is negative (%g)", c, s)
		}
		if s == 0 {
			s = 1
		}
		n.stddev[c] = s
	}
	return n, nil
}

// NumChannels returns the number of channels this normalization was built for.
func (n *Normalization) NumChannels() int { return len(n.mean) }

// ApplyBatch normalizes in place a batch of images shaped
// `[batch, height, width, channels]`.
func (n *Normalization) ApplyBatch(t *tensors.Tensor) error {
	shape := t.Shape()
	if shape.Rank() != 4 {
		return errors.Errorf("expected batch shaped [batch, height, width, channels], got %s", shape)
	}
	if channels := shape.Dimensions[3]; channels != len(n.mean) {
		return errors.Errorf("normalization configured for %d channels, batch has %d (shape %s)",
			len(n.mean), channels, shape)
	}
	switch shape.DType {
	case dtypes.Float32:
		normalizeFlat[float32](n, t)
	case dtypes.Float64:
		normalizeFlat[float64](n, t)
	default:
		return errors.Errorf("normalization only supports Float32 or Float64 batches, got %s", shape.DType)
	}
	return nil
}

func normalizeFlat[T float32 | float64](n *Normalization, t *tensors.Tensor) {
	channels := len(n.mean)
	tensors.MutableFlatData(t, func(flat []T) {
		for i := range flat {
			c := i % channels
			flat[i] = (flat[i] - T(n.mean[c])) / T(n.stddev[c])
		}
	})
}
