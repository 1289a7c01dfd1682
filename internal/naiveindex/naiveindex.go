// Package naiveindex implements the exhaustive, timestamp-sorted
// partition index used for small labels and narrow windows where a
// graph isn't worth building.
package naiveindex

import (
	"sort"
	"sync"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/internal/pointset"
)

// Index owns a Subset Point Range whose global index order is sorted
// ascending by timestamp, plus the matching sorted timestamps.
type Index struct {
	Points     *pointset.Subset
	Timestamps []float32 // Timestamps[i] is the timestamp of Points.At(i); ascending
}

// Fit builds a Index over the global indices in idx, using ts (global
// timestamp array) to sort idx ascending by timestamp. base is the
// full Point Range the subset is drawn from.
func Fit(base *pointset.Range, ts []float32, idx []uint32) *Index {
	order := append([]uint32(nil), idx...)
	sort.Slice(order, func(i, j int) bool {
		return ts[order[i]] < ts[order[j]]
	})

	sortedTS := make([]float32, len(order))
	for i, g := range order {
		sortedTS[i] = ts[g]
	}

	return &Index{
		Points:     pointset.NewSubsetCopy(base, order),
		Timestamps: sortedTS,
	}
}

// Size returns the number of points owned by the index.
func (n *Index) Size() int { return n.Points.Size() }

// Dims returns the logical vector dimensionality.
func (n *Index) Dims() int { return n.Points.Dims() }

// AlignedDims returns the per-point storage stride.
func (n *Index) AlignedDims() int { return n.Points.AlignedDims() }

type scored struct {
	dist  float32
	local int
}

// Knn scans every owned point and returns the global ids of the k
// closest to q, ascending by distance (ties broken by lower local
// index, i.e. by ascending timestamp order).
func (n *Index) Knn(q []float32, k int) []uint32 {
	return n.indexRangeKnn(q, k, 0, n.Points.Size())
}

// RangeKnn binary-searches the sorted timestamps for [tLo, tHi], then
// exhaustively scans that slice. Returns hybriderr.InsufficientRangeError
// if fewer than k points fall in range.
func (n *Index) RangeKnn(q []float32, tLo, tHi float32, k int) ([]uint32, error) {
	start, end := n.rangeIndices(tLo, tHi)
	if end-start < k {
		return nil, hybriderr.NewInsufficientRangeError(end-start, k)
	}
	return n.indexRangeKnn(q, k, start, end), nil
}

// rangeIndices returns the half-open [start, end) slice of local
// indices whose timestamps lie in [tLo, tHi].
func (n *Index) rangeIndices(tLo, tHi float32) (int, int) {
	start := sort.Search(len(n.Timestamps), func(i int) bool { return n.Timestamps[i] >= tLo })
	end := sort.Search(len(n.Timestamps), func(i int) bool { return n.Timestamps[i] > tHi })
	return start, end
}

// indexRangeKnn linear-scans local indices [start, end), computing
// (dist, local) pairs, sorting fully, and returning the global ids of
// the k smallest.
func (n *Index) indexRangeKnn(q []float32, k, start, end int) []uint32 {
	count := end - start
	pairs := make([]scored, count)
	for i := 0; i < count; i++ {
		local := start + i
		pairs[i] = scored{dist: distvec.SquaredL2(n.Points.At(local), q), local: local}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].dist != pairs[j].dist {
			return pairs[i].dist < pairs[j].dist
		}
		return pairs[i].local < pairs[j].local
	})

	if k > len(pairs) {
		k = len(pairs)
	}
	out := make([]uint32, k)
	for i := 0; i < k; i++ {
		out[i] = n.Points.RealIndex(pairs[i].local)
	}
	return out
}

// BatchKnn runs Knn independently on each query in qs, writing k
// results per query into out at out[i*k:(i+1)*k]. When parallel is
// true the per-query work is distributed across goroutines.
func (n *Index) BatchKnn(qs [][]float32, out []uint32, k int, parallel bool) {
	run := func(i int) {
		copy(out[i*k:(i+1)*k], n.Knn(qs[i], k))
	}
	if !parallel {
		for i := range qs {
			run(i)
		}
		return
	}
	var wg sync.WaitGroup
	for i := range qs {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(i)
		}()
	}
	wg.Wait()
}
