package feature

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceSelfIsZero(t *testing.T) {
	v := []float64{0.1, -0.4, 2.5, 0}
	assert.Equal(t, 0.0, Distance(v, v))
}

func TestDistanceSymmetry(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	b := []float64{-0.5, 0.25, 9, 1.5}
	assert.Equal(t, Distance(a, b), Distance(b, a))
}

func TestDistanceKnownValue(t *testing.T) {
	a := []float64{0, 0}
	b := []float64{3, 4}
	assert.InDelta(t, 5.0, Distance(a, b), 1e-12)
}

func TestDistanceEmptyInputIsInf(t *testing.T) {
	assert.True(t, math.IsInf(Distance(nil, []float64{1}), 1))
	assert.True(t, math.IsInf(Distance([]float64{1}, nil), 1))
	assert.True(t, math.IsInf(Distance(nil, nil), 1))
}

func TestDistanceLengthMismatchUsesSharedPrefix(t *testing.T) {
	a := []float64{1, 1, 100, 100}
	b := []float64{1, 1}
	d := Distance(a, b)
	require.False(t, math.IsInf(d, 1))
	require.False(t, math.IsNaN(d))
	assert.Equal(t, 0.0, d)
	assert.Equal(t, d, Distance(b, a))
}

func TestCoerceDropsNonNumerics(t *testing.T) {
	v := Coerce([]any{1.5, "bogus", nil, true, 2.0})
	assert.Equal(t, []float64{1.5, 0, 0, 0, 2.0}, v)
}

func TestCoerceEmpty(t *testing.T) {
	assert.Nil(t, Coerce(nil))
	assert.Nil(t, Coerce([]any{}))
}

func TestCentroidMeansElementwise(t *testing.T) {
	c := Centroid([][]float64{
		{0, 2, 4},
		{2, 4, 6},
	})
	assert.Equal(t, []float64{1, 3, 5}, c)
}

func TestCentroidSingleVector(t *testing.T) {
	v := []float64{0.5, 0.25}
	assert.Equal(t, v, Centroid([][]float64{v}))
}

func TestDispersionSingleSampleIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Dispersion([][]float64{{1, 2, 3}}))
	assert.Equal(t, 0.0, Dispersion(nil))
}

func TestDispersionIdenticalSamplesIsZero(t *testing.T) {
	v := []float64{0.3, -0.7, 1.1}
	assert.Equal(t, 0.0, Dispersion([][]float64{v, v, v}))
}

func TestDispersionAveragesPerDimensionVariance(t *testing.T) {
	// dim0: values {0,2} around mean 1 -> variance 1
	// dim1: values {0,4} around mean 2 -> variance 4
	d := Dispersion([][]float64{
		{0, 0},
		{2, 4},
	})
	assert.InDelta(t, 2.5, d, 1e-12)
}

func TestDispersionGrowsWithNoise(t *testing.T) {
	steady := [][]float64{{1, 1}, {1.01, 0.99}}
	noisy := [][]float64{{1, 1}, {3, -2}}
	assert.Less(t, Dispersion(steady), Dispersion(noisy))
}
