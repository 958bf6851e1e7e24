// Package vecmath holds the float32 vector helpers shared by the index,
// the interest composer and the diversity reranker. Cosine similarity is
// the only metric used anywhere in the pipeline.
package vecmath

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a
// zero copy.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Dot returns the inner product of a and b over their common length.
func Dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Cosine returns the cosine similarity of a and b, or 0 if either is zero.
func Cosine(a, b []float32) float64 {
	na, nb := Norm(a), Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return Dot(a, b) / (na * nb)
}

// AddScaled adds w*src into dst in place.
func AddScaled(dst, src []float32, w float64) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] += float32(w * float64(src[i]))
	}
}

// Zero returns a zero vector of dimension dim.
func Zero(dim int) []float32 {
	return make([]float32, dim)
}
