package match

import (
	"math"

	"github.com/kailas-cloud/vecmatch/internal/domain"
)

// Cosine returns dot(a,b) / (|a| * |b|), accumulated in float64.
// Vectors of different length yield ErrVectorDimMismatch.
// A zero-magnitude vector on either side yields similarity 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDimensionMismatch(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors slightly past the bounds.
	return math.Max(-1, math.Min(1, sim)), nil
}
