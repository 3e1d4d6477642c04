package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75, 0, 42}
	blob := Encode(in)
	require.Len(t, blob, len(in)*4)

	out, err := Decode(blob)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeEmptyIsNil(t *testing.T) {
	require.Nil(t, Encode(nil))
	out, err := Decode(nil)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestDecodeRejectsTruncatedBlob(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestCosineSelfSimilarity(t *testing.T) {
	v := []float32{0.3, -0.7, 1.2, 0.01}
	require.InDelta(t, 1.0, Cosine(v, v), 1e-6)
}

func TestCosineBounds(t *testing.T) {
	pairs := [][2][]float32{
		{{1, 0}, {0, 1}},
		{{1, 1}, {-1, -1}},
		{{0.5, 0.25, -3}, {2, -1, 0.125}},
		{{1e-8, 1e-8}, {1e8, -1e8}},
	}
	for _, p := range pairs {
		s := Cosine(p[0], p[1])
		require.LessOrEqual(t, s, 1.0+1e-9)
		require.GreaterOrEqual(t, s, -1.0-1e-9)
	}
	require.InDelta(t, -1.0, Cosine([]float32{1, 1}, []float32{-1, -1}), 1e-6)
}

func TestCosineZeroNormScoresZero(t *testing.T) {
	require.Equal(t, 0.0, Cosine([]float32{0, 0, 0}, []float32{1, 2, 3}))
	require.Equal(t, 0.0, Cosine([]float32{1, 2, 3}, []float32{0, 0, 0}))
	require.Equal(t, 0.0, Cosine(nil, nil))
}

func TestCosineDimensionMismatchScoresZero(t *testing.T) {
	require.Equal(t, 0.0, Cosine([]float32{1, 2}, []float32{1, 2, 3}))
}

func TestCosineOrthogonal(t *testing.T) {
	require.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	require.False(t, math.IsNaN(Cosine([]float32{1, 0}, []float32{0, 1})))
}
