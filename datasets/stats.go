package datasets

import (
	"io"

	"github.com/gomlx/gomlx/ml/train"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Stats holds the per-channel statistics and the fixed spatial size of a
// dataset, computed by ComputeStats. They parameterize the normalization and
// crop transforms of the training pipeline.
type Stats struct {
	// Mean and StdDev per channel.
	Mean, StdDev []float64

	// Height and Width of the images, recorded from the first batch.
	Height, Width int
}

// NumChannels returns the number of channels the statistics were computed
// over.
func (s Stats) NumChannels() int { return len(s.Mean) }

// ComputeStats streams once over ds, which must yield raw (un-normalized)
// image batches shaped `[batch, height, width, channels]`, and returns the
// per-channel mean and standard deviation plus the spatial size of the first
// batch. Later batches are assumed to have the same spatial size.
//
// The standard deviation is the batch-size-weighted average of the per-batch
// sample standard deviations, not the pooled standard deviation over the
// whole dataset.
func ComputeStats(ds train.Dataset) (Stats, error) {
	var stats Stats
	var meanSum, stdSum []float64
	var scratch []float64
	numSamples := 0

	for batchNum := 0; ; batchNum++ {
		_, inputs, _, err := ds.Yield()
		lastBatch := err == io.EOF
		if err != nil && !lastBatch {
			return Stats{}, errors.WithMessagef(err, "while reading batch #%d of dataset %q", batchNum, ds.Name())
		}
		if len(inputs) == 0 {
			if lastBatch {
				break
			}
			return Stats{}, errors.Errorf("dataset %q yielded no inputs in batch #%d", ds.Name(), batchNum)
		}
		batch := inputs[0]
		shape := batch.Shape()
		if shape.Rank() != 4 {
			return Stats{}, errors.Errorf("expected batches shaped [batch, height, width, channels], got %s", shape)
		}
		batchSize := shape.Dimensions[0]
		channels := shape.Dimensions[3]
		if meanSum == nil {
			stats.Height = shape.Dimensions[1]
			stats.Width = shape.Dimensions[2]
			meanSum = make([]float64, channels)
			stdSum = make([]float64, channels)
			scratch = make([]float64, 0, batchSize*stats.Height*stats.Width)
		} else if channels != len(meanSum) {
			return Stats{}, errors.Errorf("batch #%d of dataset %q has %d channels, previous batches had %d",
				batchNum, ds.Name(), channels, len(meanSum))
		}
		switch shape.DType {
		case dtypes.Float32:
			scratch = accumulateChannelStats[float32](batch, channels, batchSize, scratch, meanSum, stdSum)
		case dtypes.Float64:
			scratch = accumulateChannelStats[float64](batch, channels, batchSize, scratch, meanSum, stdSum)
		default:
			return Stats{}, errors.Errorf("ComputeStats only supports Float32 or Float64 batches, got %s", shape.DType)
		}
		numSamples += batchSize
		if lastBatch {
			break
		}
	}
	if numSamples == 0 {
		return Stats{}, errors.Errorf("dataset %q yielded no examples", ds.Name())
	}
	stats.Mean, stats.StdDev = meanSum, stdSum
	for c := range stats.Mean {
		stats.Mean[c] /= float64(numSamples)
		stats.StdDev[c] /= float64(numSamples)
	}
	return stats, nil
}

// accumulateChannelStats adds this batch's per-channel mean and sample
// standard deviation, weighted by the batch size, into meanSum and stdSum.
// Channel values are gathered into scratch (returned so the capacity is
// reused across batches).
func accumulateChannelStats[T float32 | float64](
	batch *tensors.Tensor, channels, batchSize int,
	scratch, meanSum, stdSum []float64) []float64 {
	tensors.ConstFlatData(batch, func(flat []T) {
		for c := 0; c < channels; c++ {
			scratch = scratch[:0]
			for i := c; i < len(flat); i += channels {
				scratch = append(scratch, float64(flat[i]))
			}
			mean, stdDev := stat.MeanStdDev(scratch, nil)
			if len(scratch) < 2 {
				// A single value has no sample deviation.
				stdDev = 0
			}
			meanSum[c] += mean * float64(batchSize)
			stdSum[c] += stdDev * float64(batchSize)
		}
	})
	return scratch
}
