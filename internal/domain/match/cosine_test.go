package match

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

func TestCosine_Identical(t *testing.T) {
	vecs := [][]float32{
		{1, 0},
		{0.3, -0.7, 2.5},
		{1e-3, 1e-3, 1e-3, 1e-3},
		{-4, 9, 11, 0.5, 3},
	}
	for _, v := range vecs {
		sim, err := Cosine(v, v)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 1e-9, "cosine(v, v) for %v", v)
	}
}

func TestCosine_Orthogonal(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-12)

	sim, err = Cosine([]float32{1, 1, 0}, []float32{-1, 1, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-12)
}

func TestCosine_Opposite(t *testing.T) {
	sim, err := Cosine([]float32{1, 2, 3}, []float32{-1, -2, -3})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestCosine_MagnitudeIndependent(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{10, 20, 30}
	sim, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosine_KnownValue(t *testing.T) {
	// cos(45deg)
	sim, err := Cosine([]float32{1, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2/2, sim, 1e-7)
}

func TestCosine_ZeroMagnitude(t *testing.T) {
	sim, err := Cosine([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	sim, err = Cosine([]float32{1, 1}, []float32{0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)

	sim, err = Cosine(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 0, 0}, []float32{1, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrVectorDimMismatch))

	var dme *domain.DimensionMismatchError
	require.True(t, errors.As(err, &dme))
	assert.Equal(t, 3, dme.Want)
	assert.Equal(t, 2, dme.Got)
}

func TestCosine_StaysInRange(t *testing.T) {
	a := []float32{0.1, 0.1, 0.1}
	sim, err := Cosine(a, []float32{0.1, 0.1, 0.1})
	require.NoError(t, err)
	assert.LessOrEqual(t, sim, 1.0)
	assert.GreaterOrEqual(t, sim, -1.0)
}
