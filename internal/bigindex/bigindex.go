// Package bigindex implements the Big Index: a Naive Index plus a
// Vamana graph over the same subset, answering range queries with an
// overretrieval policy that widens the graph search when the requested
// time window is narrow relative to the subset.
package bigindex

import (
	"sync"

	"github.com/sigmod24/hybridann/internal/graph"
	"github.com/sigmod24/hybridann/internal/naiveindex"
	"github.com/sigmod24/hybridann/internal/obswarn"
	"github.com/sigmod24/hybridann/internal/pointset"
	"github.com/sigmod24/hybridann/internal/vamana"
)

// Index wraps a Naive Index with a Vamana graph over the same subset.
type Index struct {
	Naive *naiveindex.Index
	Graph *graph.Graph
	Entry int // local id of the graph's fixed search entry point

	DefaultQP                QueryParams
	ExhaustiveFallbackCutoff float64 // normalized timestamp-width threshold
}

// QueryParams is vamana.QueryParams; the big index's range policy
// rewrites its K and Limit fields for overretrieval.
type QueryParams = vamana.QueryParams

// Fit builds a Big Index: delegates to naiveindex.Fit for the
// timestamp-sorted subset, then builds a Vamana graph over it.
func Fit(base *pointset.Range, ts []float32, idx []uint32, bp vamana.BuildParams, qp QueryParams, exhaustiveFallbackCutoff float64) *Index {
	naive := naiveindex.Fit(base, ts, idx)
	g, entry := vamana.Build(naive.Points, bp)
	return &Index{
		Naive:                    naive,
		Graph:                    g,
		Entry:                    entry,
		DefaultQP:                qp,
		ExhaustiveFallbackCutoff: exhaustiveFallbackCutoff,
	}
}

// Size returns the number of points owned by the index.
func (b *Index) Size() int { return b.Naive.Size() }

// Dims returns the logical vector dimensionality.
func (b *Index) Dims() int { return b.Naive.Dims() }

// AlignedDims returns the per-point storage stride.
func (b *Index) AlignedDims() int { return b.Naive.AlignedDims() }

// Knn runs beam search with the index's default query params and maps
// local ids back to global ids.
func (b *Index) Knn(q []float32, k int) []uint32 {
	qp := b.DefaultQP
	qp.K = k
	results, _ := vamana.Search(q, b.Graph, b.Naive.Points, b.Entry, qp)
	out := make([]uint32, len(results))
	for i, r := range results {
		out[i] = b.Naive.Points.RealIndex(r.ID)
	}
	return out
}

// RangeKnn implements the big index's range policy: below the
// exhaustive-fallback-cutoff normalized width, delegate to the Naive
// Index; otherwise overretrieve via beam search (qp.K := qp.Beam,
// qp.Limit := limit/time_range) and post-filter by timestamp.
func (b *Index) RangeKnn(q []float32, tLo, tHi float32, k int) []uint32 {
	timeRange := float64(tHi - tLo)

	if timeRange < b.ExhaustiveFallbackCutoff {
		out, err := b.Naive.RangeKnn(q, tLo, tHi, k)
		if err != nil {
			obswarn.Warnf("big index range_knn exhaustive fallback: %v", err)
			return nil
		}
		return out
	}

	return b.overretrieve(q, tLo, tHi, k, timeRange, true)
}

// OverretrievalRangeKnn is the overretrieval path without the
// exhaustive-fallback check, used by the windowed range hierarchy,
// which has already decided the window is well matched to the query
// width.
func (b *Index) OverretrievalRangeKnn(q []float32, tLo, tHi float32, k int) []uint32 {
	return b.overretrieve(q, tLo, tHi, k, 1.0, false)
}

func (b *Index) overretrieve(q []float32, tLo, tHi float32, k int, timeRange float64, scaleLimit bool) []uint32 {
	qp := b.DefaultQP
	qp.K = qp.Beam
	if scaleLimit && timeRange > 0 {
		qp.Limit = int(float64(qp.Limit) / timeRange)
	}

	results, _ := vamana.Search(q, b.Graph, b.Naive.Points, b.Entry, qp)

	out := make([]uint32, 0, k)
	for _, r := range results {
		if len(out) >= k {
			break
		}
		local := r.ID
		ts := b.Naive.Timestamps[local]
		if ts >= tLo && ts <= tHi {
			out = append(out, b.Naive.Points.RealIndex(local))
		}
	}
	if len(out) < k {
		obswarn.Warnf("big index overretrieval range_knn: found %d/%d points in range [%v,%v]", len(out), k, tLo, tHi)
	}
	return out
}

// BatchKnn runs Knn on each query in qs independently, writing k
// results per query into out. When parallel is true, work is
// distributed across goroutines.
func (b *Index) BatchKnn(qs [][]float32, out []uint32, k int, parallel bool) {
	run := func(i int) {
		copy(out[i*k:(i+1)*k], b.Knn(qs[i], k))
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
