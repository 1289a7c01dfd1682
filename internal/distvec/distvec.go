// Package distvec implements the squared-L2 distance kernel the query
// engine is built on. Every vector the engine ever touches is stored
// at the fixed stride Aligned, padded with zero lanes past Dims; the
// padding never contributes to the sum.
package distvec

// Dims is the logical dimensionality of every point. Other
// dimensionalities are not supported anywhere in this module.
const Dims = 100

// Aligned is the per-point stride in float32 lanes. 112 = the next
// multiple of 16 lanes (64 bytes at float32) at or above Dims, giving
// the accumulation loop below a trailing run of zero lanes instead of
// a ragged tail.
const Aligned = 112

// SquaredL2 returns sum((a[i]-b[i])^2) over the first Aligned lanes of
// a and b. Callers must pass slices of length >= Aligned; lanes
// [Dims:Aligned] must be zero in both operands, contributing zero to
// the sum by construction.
func SquaredL2(a, b []float32) float32 {
	var sum float32
	// Unrolled by 4 so the compiler can keep independent accumulation
	// chains; at Aligned=112 this divides evenly with zero remainder.
	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= Aligned; i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < Aligned; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum + s0 + s1 + s2 + s3
}
