package knowledge

import "math"

// Cosine returns the cosine similarity of two vectors, in [-1, 1]. Vectors
// of mismatched dimension and vectors with zero magnitude compare as 0
// rather than erroring, so one malformed embedding cannot fail a whole
// query scan.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(magA) * math.Sqrt(magB)))
}
