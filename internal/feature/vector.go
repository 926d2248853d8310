// Package feature holds the pure vector math under identity matching:
// the distance engine, the multi-frame stability filter and the coercion
// boundary that turns loosely-typed kiosk payloads into numeric vectors.
package feature

import "math"

// Dim is the dimensionality of an enrolled face feature vector.
const Dim = 128

// Coerce converts a decoded JSON array into a numeric vector. Non-numeric
// elements (strings, nulls, booleans, nested values) become 0 rather than
// failing, so distance computation stays total no matter what a kiosk sends.
func Coerce(raw []any) []float64 {
	if len(raw) == 0 {
		return nil
	}
	v := make([]float64, len(raw))
	for i, e := range raw {
		switch n := e.(type) {
		case float64:
			v[i] = n
		case float32:
			v[i] = float64(n)
		case int:
			v[i] = float64(n)
		case int64:
			v[i] = float64(n)
		default:
			v[i] = 0
		}
	}
	return v
}

// Distance returns the Euclidean distance between two vectors, computed over
// the shared prefix min(len(a), len(b)); mismatched lengths never fail. An
// empty side yields +Inf so a degenerate candidate can never win a match.
func Distance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return math.Inf(1)
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Centroid returns the elementwise mean of the given vectors. Inputs are
// assumed to share one dimensionality per call (frames of one capture
// attempt); shorter vectors contribute zeros beyond their length.
func Centroid(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := 0
	for _, v := range vectors {
		if len(v) > dim {
			dim = len(v)
		}
	}
	if dim == 0 {
		return nil
	}
	c := make([]float64, dim)
	for _, v := range vectors {
		for i, x := range v {
			c[i] += x
		}
	}
	n := float64(len(vectors))
	for i := range c {
		c[i] /= n
	}
	return c
}

// Dispersion returns the mean, over dimensions, of the per-dimension variance
// across the given vectors. A single vector trivially disperses to 0. The
// caller decides whether the value exceeds its configured ceiling; a noisy
// capture (movement, lighting, faces swapping in frame) shows up as high
// dispersion regardless of how close any single frame lands to an enrollment.
func Dispersion(vectors [][]float64) float64 {
	if len(vectors) < 2 {
		return 0
	}
	c := Centroid(vectors)
	if len(c) == 0 {
		return 0
	}
	n := float64(len(vectors))
	var total float64
	for i := range c {
		var sq float64
		for _, v := range vectors {
			var x float64
			if i < len(v) {
				x = v[i]
			}
			d := x - c[i]
			sq += d * d
		}
		total += sq / n
	}
	return total / float64(len(c))
}
