// Package pointset implements the Point Range and Subset Point Range
// abstractions: a read-only, aligned view over N vectors, and an
// index-remapped view over a subset of them.
package pointset

import "github.com/sigmod24/hybridann/internal/distvec"

// Range is a contiguous buffer of N vectors, each stored at stride
// distvec.Aligned float32 lanes with distvec.Dims logical dimensions
// and the trailing lanes zeroed.
type Range struct {
	data []float32
	n    int
}

// NewRange allocates a zeroed Range for n points.
func NewRange(n int) *Range {
	return &Range{data: make([]float32, n*distvec.Aligned), n: n}
}

// NewRangeFromAligned wraps an already-aligned buffer of length
// n*distvec.Aligned without copying.
func NewRangeFromAligned(data []float32, n int) *Range {
	if len(data) != n*distvec.Aligned {
		panic("pointset: aligned buffer has wrong length")
	}
	return &Range{data: data, n: n}
}

// Size returns the number of points.
func (r *Range) Size() int { return r.n }

// Dims returns the logical vector dimensionality.
func (r *Range) Dims() int { return distvec.Dims }

// AlignedDims returns the per-point storage stride.
func (r *Range) AlignedDims() int { return distvec.Aligned }

// At returns the aligned slice for global index i. The returned slice
// aliases the Range's backing buffer; callers must not retain it past
// the Range's lifetime if the Range may be mutated (build code never
// mutates after load).
func (r *Range) At(i int) []float32 {
	off := i * distvec.Aligned
	return r.data[off : off+distvec.Aligned]
}

// Set copies vec (length >= distvec.Dims) into point i, zero-padding
// the remaining aligned lanes.
func (r *Range) Set(i int, vec []float32) {
	dst := r.At(i)
	copy(dst, vec[:distvec.Dims])
	for j := distvec.Dims; j < distvec.Aligned; j++ {
		dst[j] = 0
	}
}

// Dist returns the squared-L2 distance between global points i and j.
func (r *Range) Dist(i, j int) float32 {
	return distvec.SquaredL2(r.At(i), r.At(j))
}

// DistTo returns the squared-L2 distance between global point i and an
// external aligned query vector q.
func (r *Range) DistTo(i int, q []float32) float32 {
	return distvec.SquaredL2(r.At(i), q)
}

// Subset is an ordered view over a Range: indexing it with a local
// index i yields the vector at global index G[i]. A Subset may own its
// index slice (built by a constructor that copies) or borrow one from
// a caller-controlled slice that is guaranteed to outlive it.
type Subset struct {
	Base *Range
	G    []uint32 // local -> global
}

// NewSubsetCopy builds a Subset owning a copy of global.
func NewSubsetCopy(base *Range, global []uint32) *Subset {
	g := make([]uint32, len(global))
	copy(g, global)
	return &Subset{Base: base, G: g}
}

// NewSubsetBorrowed builds a Subset that aliases global without
// copying. The caller must guarantee global is not mutated or freed
// while the Subset is alive.
func NewSubsetBorrowed(base *Range, global []uint32) *Subset {
	return &Subset{Base: base, G: global}
}

// Size returns the number of points in the subset.
func (s *Subset) Size() int { return len(s.G) }

// Dims returns the logical vector dimensionality.
func (s *Subset) Dims() int { return s.Base.Dims() }

// AlignedDims returns the per-point storage stride.
func (s *Subset) AlignedDims() int { return s.Base.AlignedDims() }

// RealIndex maps a local index back to its global index.
func (s *Subset) RealIndex(local int) uint32 { return s.G[local] }

// At returns the aligned slice for local index i.
func (s *Subset) At(local int) []float32 {
	return s.Base.At(int(s.G[local]))
}

// Dist returns the squared-L2 distance between local points i and j.
func (s *Subset) Dist(i, j int) float32 {
	return s.Base.Dist(int(s.G[i]), int(s.G[j]))
}

// DistTo returns the squared-L2 distance between local point i and an
// external aligned query vector q.
func (s *Subset) DistTo(i int, q []float32) float32 {
	return s.Base.DistTo(int(s.G[i]), q)
}
