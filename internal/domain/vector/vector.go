// Package vector holds the small pieces of embedding-space math shared by
// the clustering engine: cosine similarity, centroids, normalization.
package vector

import "math"

// Dot returns the dot product of a and b. Panics are avoided by treating
// mismatched lengths as truncation to the shorter vector.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Norm returns the Euclidean norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b, clamped to [-1, 1].
// Zero vectors yield 0.
func Cosine(a, b []float32) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := Dot(a, b) / (na * nb)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// CosineDistance returns 1 - Cosine(a, b), in [0, 2].
func CosineDistance(a, b []float32) float64 {
	return 1 - Cosine(a, b)
}

// Normalize returns a unit-length copy of v. Zero vectors are returned as-is.
func Normalize(v []float32) []float32 {
	n := Norm(v)
	out := make([]float32, len(v))
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Centroid returns the renormalized mean of the given vectors.
// Returns nil for an empty input.
func Centroid(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	sum := make([]float64, dim)
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}
	mean := make([]float32, dim)
	inv := 1.0 / float64(len(vecs))
	for i, s := range sum {
		mean[i] = float32(s * inv)
	}
	return Normalize(mean)
}

// MeanPairwiseCosine returns the average cosine similarity over all
// unordered pairs, clamped to [0, 1]. By convention a single vector
// (no pairs) scores 1.0.
func MeanPairwiseCosine(vecs [][]float32) float64 {
	n := len(vecs)
	if n <= 1 {
		return 1.0
	}
	var sum float64
	var pairs int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += Cosine(vecs[i], vecs[j])
			pairs++
		}
	}
	avg := sum / float64(pairs)
	if avg < 0 {
		return 0
	}
	if avg > 1 {
		return 1
	}
	return avg
}
