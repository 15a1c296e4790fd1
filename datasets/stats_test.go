package datasets

import (
	"image/color"
	"io"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// batchStream is a train.Dataset yielding a fixed sequence of image batches.
type batchStream struct {
	batches []*tensors.Tensor
	pos     int
}

func (ds *batchStream) Name() string { return "batch-stream" }
func (ds *batchStream) Reset()       { ds.pos = 0 }

func (ds *batchStream) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if ds.pos >= len(ds.batches) {
		return nil, nil, nil, io.EOF
	}
	batch := ds.batches[ds.pos]
	ds.pos++
	return ds, []*tensors.Tensor{batch}, nil, nil
}

// constantBatch builds a batch shaped [batchSize, 2, 2, 3] where channel c
// holds values[c] everywhere.
func constantBatch(batchSize int, values [3]float32) *tensors.Tensor {
	flat := make([]float32, batchSize*2*2*3)
	for i := range flat {
		flat[i] = values[i%3]
	}
	return tensors.FromFlatDataAndDimensions(flat, batchSize, 2, 2, 3)
}

func TestComputeStatsConstant(t *testing.T) {
	// A dataset of identical uniform images: mean is the pixel value, the
	// standard deviation is zero.
	images, labels := newTestData(10)
	uniform := imaging.New(8, 6, color.NRGBA{R: 102, G: 51, B: 255, A: 0xFF})
	for i := range images {
		images[i] = uniform
	}
	ds, err := NewDataset("constant", images, labels, &Config{BatchSize: 4})
	require.NoError(t, err)

	stats, err := ComputeStats(ds)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Height)
	assert.Equal(t, 8, stats.Width)
	require.Equal(t, 3, stats.NumChannels())
	for c, want := range []float64{102.0 / 255.0, 51.0 / 255.0, 1.0} {
		assert.InDelta(t, want, stats.Mean[c], 1e-6)
		assert.InDelta(t, 0, stats.StdDev[c], 1e-9)
	}
}

func TestComputeStatsWeightedMean(t *testing.T) {
	// Batches of 3 and 5 examples with per-batch means m1 and m2: the
	// aggregate mean must be (3*m1 + 5*m2) / 8, per channel.
	ds := &batchStream{batches: []*tensors.Tensor{
		constantBatch(3, [3]float32{0.1, 0.2, 0.3}),
		constantBatch(5, [3]float32{0.5, 0.6, 0.7}),
	}}
	stats, err := ComputeStats(ds)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Height)
	assert.Equal(t, 2, stats.Width)
	for c, m := range [][2]float64{{0.1, 0.5}, {0.2, 0.6}, {0.3, 0.7}} {
		want := (3*m[0] + 5*m[1]) / 8
		assert.InDeltaf(t, want, stats.Mean[c], 1e-6, "channel %d", c)
		assert.InDeltaf(t, 0, stats.StdDev[c], 1e-9, "channel %d", c)
	}
}

func TestComputeStatsAveragesBatchStdDevs(t *testing.T) {
	// Batch 1 (3 examples): channel values alternate 0 and 2, so its sample
	// standard deviation is sqrt(12/11). Batch 2 (5 examples) is constant.
	// The aggregate is the batch-size-weighted average of the per-batch
	// standard deviations, not the pooled value.
	flat := make([]float32, 3*2*2*3)
	for i := range flat {
		if (i/3)%2 == 0 {
			flat[i] = 2
		}
	}
	ds := &batchStream{batches: []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions(flat, 3, 2, 2, 3),
		constantBatch(5, [3]float32{1, 1, 1}),
	}}
	stats, err := ComputeStats(ds)
	require.NoError(t, err)
	wantStd := 3 * math.Sqrt(12.0/11.0) / 8
	for c := 0; c < 3; c++ {
		assert.InDeltaf(t, wantStd, stats.StdDev[c], 1e-6, "channel %d", c)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	_, err := ComputeStats(&batchStream{})
	assert.Error(t, err)
}
