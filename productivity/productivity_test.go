package productivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnstratifiedDegeneratesToOneBin(t *testing.T) {
	table := NewUnstratified(3)
	require.Equal(t, 3, table.NumSlices())
	require.Equal(t, 1, table.NumBins())

	for s := 0; s < 3; s++ {
		assert.Equal(t, -1.0, table.AngleStart(s, 0))
		assert.Equal(t, 1.0, table.AngleEnd(s, 0))
		assert.Equal(t, 1.0, table.MaxProductivity(s, 0))
		assert.Equal(t, 2.0, table.AngleSize(s, 0))
	}
}

func TestNewStratifiedPartitionsFullRange(t *testing.T) {
	table := NewStratified(2, 4, func(sliceIdx int, start, end float64) float64 {
		return 0.5
	})

	require.Equal(t, 2, table.NumSlices())
	require.Equal(t, 4, table.NumBins())

	assert.Equal(t, -1.0, table.AngleStart(0, 0))
	assert.Equal(t, 1.0, table.AngleEnd(0, 3))

	var total float64
	for a := 0; a < 4; a++ {
		total += table.AngleSize(0, a)
		assert.Equal(t, 0.5, table.MaxProductivity(0, a))
	}
	assert.InDelta(t, 2.0, total, 1e-12)
}

func TestStratifiedBinsAreContiguous(t *testing.T) {
	table := NewStratified(1, 5, func(int, float64, float64) float64 { return 1 })
	for a := 0; a < 4; a++ {
		assert.Equal(t, table.AngleEnd(0, a), table.AngleStart(0, a+1))
	}
}

func TestSampleAngleStaysWithinBin(t *testing.T) {
	table := NewStratified(1, 2, func(int, float64, float64) float64 { return 1 })
	for _, u := range []float64{0, 0.25, 0.5, 0.75, 0.999} {
		v := table.SampleAngle(0, 0, u)
		assert.GreaterOrEqual(t, v, table.AngleStart(0, 0))
		assert.LessOrEqual(t, v, table.AngleEnd(0, 0))
	}
}
