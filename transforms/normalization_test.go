package transforms

import (
	"testing"

	"github.com/gomlx/gomlx/types/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// channelBatch builds a [2, 2, 2, 3] batch where channel c holds values[c]
// everywhere.
func channelBatch(values [3]float32) *tensors.Tensor {
	flat := make([]float32, 2*2*2*3)
	for i := range flat {
		flat[i] = values[i%3]
	}
	return tensors.FromFlatDataAndDimensions(flat, 2, 2, 2, 3)
}

func TestNormalizationApplyBatch(t *testing.T) {
	n, err := NewNormalization([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, 3, n.NumChannels())

	batch := channelBatch([3]float32{2, 4, 6})
	require.NoError(t, n.ApplyBatch(batch))
	for i, v := range tensors.CopyFlatData[float32](batch) {
		assert.InDeltaf(t, 1.0, v, 1e-6, "element %d", i)
	}
}

func TestNormalizationZeroStdDev(t *testing.T) {
	// Zero standard deviations are replaced by one, so constant channels
	// normalize to zero instead of ±Inf.
	n, err := NewNormalization([]float64{0.5, 0.5, 0.5}, []float64{0, 0.5, 0})
	require.NoError(t, err)

	batch := channelBatch([3]float32{0.5, 1.0, 1.5})
	require.NoError(t, n.ApplyBatch(batch))
	flat := tensors.CopyFlatData[float32](batch)
	assert.InDelta(t, 0.0, flat[0], 1e-6)
	assert.InDelta(t, 1.0, flat[1], 1e-6)
	assert.InDelta(t, 1.0, flat[2], 1e-6)
}

func TestNormalizationValidation(t *testing.T) {
	_, err := NewNormalization(nil, nil)
	assert.Error(t, err)
	_, err = NewNormalization([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
	_, err = NewNormalization([]float64{1}, []float64{-1})
	assert.Error(t, err)

	n, err := NewNormalization([]float64{0, 0, 0}, []float64{1, 1, 1})
	require.NoError(t, err)
	// Wrong rank.
	assert.Error(t, n.ApplyBatch(tensors.FromFlatDataAndDimensions([]float32{1, 2, 3}, 3)))
	// Wrong number of channels.
	assert.Error(t, n.ApplyBatch(tensors.FromFlatDataAndDimensions(make([]float32, 8), 2, 2, 2, 1)))
	// Non-float dtype.
	assert.Error(t, n.ApplyBatch(tensors.FromFlatDataAndDimensions(make([]int32, 12), 1, 2, 2, 3)))
}
