// Package dispatcher implements the per-label / per-kind query router:
// it owns the per-label categorical indices, the windowed range
// hierarchy, and one global Big Index, and answers a sorted batch of
// queries by fanning each kind out to the right substrate in
// parallel.
package dispatcher

import (
	"sort"
	"sync"

	"github.com/sigmod24/hybridann/internal/bigindex"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/internal/naiveindex"
	"github.com/sigmod24/hybridann/internal/obswarn"
	"github.com/sigmod24/hybridann/internal/pointset"
	"github.com/sigmod24/hybridann/internal/rangehier"
	"github.com/sigmod24/hybridann/internal/vamana"
)

// Index is the tagged-variant interface shared by {Naive, Big}: a thin
// common surface stored by the Dispatcher without extra heap
// indirection beyond the already-allocated concrete value.
type Index interface {
	Size() int
	Dims() int
	AlignedDims() int
	Knn(q []float32, k int) []uint32
	RangeKnn(q []float32, tLo, tHi float32, k int) []uint32
	BatchKnn(qs [][]float32, out []uint32, k int, parallel bool)
}

// naiveAdapter satisfies Index for a *naiveindex.Index, downgrading
// naiveindex.RangeKnn's InsufficientRange error to a logged warning
// plus a short (possibly empty) result slice. This keeps range-query
// failure handling uniform across every substrate the dispatcher
// talks to: warn and zero-fill trailing slots rather than fail the
// whole batch, whether the underlying index is Naive or Big.
type naiveAdapter struct{ idx *naiveindex.Index }

func (a naiveAdapter) Size() int        { return a.idx.Size() }
func (a naiveAdapter) Dims() int        { return a.idx.Dims() }
func (a naiveAdapter) AlignedDims() int { return a.idx.AlignedDims() }
func (a naiveAdapter) Knn(q []float32, k int) []uint32 { return a.idx.Knn(q, k) }
func (a naiveAdapter) BatchKnn(qs [][]float32, out []uint32, k int, parallel bool) {
	a.idx.BatchKnn(qs, out, k, parallel)
}
func (a naiveAdapter) RangeKnn(q []float32, tLo, tHi float32, k int) []uint32 {
	out, err := a.idx.RangeKnn(q, tLo, tHi, k)
	if err != nil {
		obswarn.Warnf("naive index range_knn: %v", err)
		return nil
	}
	return out
}

// Params bundles the build- and query-time tunables threaded through
// every constructor.
type Params struct {
	Build                    vamana.BuildParams
	Query                    bigindex.QueryParams
	Cutoff                   int     // label/window Big-vs-Naive threshold
	ExhaustiveFallbackCutoff float64 // normalized timestamp-width threshold
}

// Dispatcher owns every built index and routes queries to them.
type Dispatcher struct {
	Points     *pointset.Range
	Labels     []uint32
	Timestamps []float32

	Categorical []Index // indexed by label value, [0, maxLabel]
	Global      *bigindex.Index
	Hierarchy   *rangehier.Hierarchy

	params Params
}

// Build loads points/labels/timestamps and constructs every index:
// the per-label categorical indices, the windowed range hierarchy,
// and the global Big Index.
func Build(points *pointset.Range, labels []uint32, timestamps []float32, params Params) (*Dispatcher, error) {
	n := points.Size()
	if len(labels) != n || len(timestamps) != n {
		return nil, hybriderr.NewFormatError("labels/timestamps length mismatch with point count %d", n)
	}

	d := &Dispatcher{
		Points:     points,
		Labels:     labels,
		Timestamps: timestamps,
		params:     params,
	}

	if err := d.buildCategorical(); err != nil {
		return nil, err
	}

	sortedMap := sortedTimestampOrder(timestamps)

	d.Hierarchy = rangehier.Build(points, timestamps, sortedMap, params.Build, params.Query, params.ExhaustiveFallbackCutoff, params.Cutoff)
	d.Global = bigindex.Fit(points, timestamps, sortedMap, params.Build, params.Query, params.ExhaustiveFallbackCutoff)

	return d, nil
}

// buildCategorical buckets point indices by label, then builds a Big
// or Naive index per label depending on |points with that label| vs
// Cutoff. Iterates labels over the inclusive range [0, maxLabel].
func (d *Dispatcher) buildCategorical() error {
	n := d.Points.Size()
	if n == 0 {
		return nil
	}

	maxLabel := uint32(0)
	for _, l := range d.Labels {
		if l > maxLabel {
			maxLabel = l
		}
	}

	buckets := make([][]uint32, maxLabel+1)
	for i := 0; i < n; i++ {
		l := d.Labels[i]
		buckets[l] = append(buckets[l], uint32(i))
	}

	d.Categorical = make([]Index, maxLabel+1)

	var wg sync.WaitGroup
	for l := uint32(0); l <= maxLabel; l++ {
		bucket := buckets[l]
		if len(bucket) == 0 {
			continue
		}
		l := l
		wg.Add(1)
		go func() {
			defer wg.Done()
			if len(bucket) > d.params.Cutoff {
				d.Categorical[l] = bigindex.Fit(d.Points, d.Timestamps, bucket, d.params.Build, d.params.Query, d.params.ExhaustiveFallbackCutoff)
			} else {
				d.Categorical[l] = naiveAdapter{idx: naiveindex.Fit(d.Points, d.Timestamps, bucket)}
			}
		}()
	}
	wg.Wait()
	return nil
}

func sortedTimestampOrder(ts []float32) []uint32 {
	order := make([]uint32, len(ts))
	for i := range order {
		order[i] = uint32(i)
	}
	sort.Slice(order, func(i, j int) bool { return ts[order[i]] < ts[order[j]] })
	return order
}

// Query is one parsed query record.
type Query struct {
	Kind          uint32
	Label         uint32
	TLo, THi      float32
	Vector        []float32
	OriginalIndex uint32
}

// RunBatch answers a batch of queries: sort by (kind, label, t_lo,
// t_hi, id), then dispatch each kind's contiguous block in parallel
// to its substrate. Results are written into
// out[q.OriginalIndex*k : (q.OriginalIndex+1)*k] for every query, so
// no two queries ever race on the same stripe.
func (d *Dispatcher) RunBatch(queries []Query, k int) ([]uint32, error) {
	if err := d.validate(queries); err != nil {
		return nil, err
	}

	sorted := append([]Query(nil), queries...)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if a.TLo != b.TLo {
			return a.TLo < b.TLo
		}
		if a.THi != b.THi {
			return a.THi < b.THi
		}
		return a.OriginalIndex < b.OriginalIndex
	})

	out := make([]uint32, len(queries)*k)

	groups := groupByKind(sorted)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() { defer wg.Done(); d.dispatchKind0(groups[0], out, k) }()
	go func() { defer wg.Done(); d.dispatchKind1(groups[1], out, k) }()
	go func() { defer wg.Done(); d.dispatchKind2(groups[2], out, k) }()
	go func() { defer wg.Done(); d.dispatchKind3(groups[3], out, k) }()
	wg.Wait()

	return out, nil
}

func groupByKind(sorted []Query) [4][]Query {
	var groups [4][]Query
	for _, q := range sorted {
		groups[q.Kind] = append(groups[q.Kind], q)
	}
	return groups
}

func (d *Dispatcher) validate(queries []Query) error {
	for _, q := range queries {
		if q.Kind > 3 {
			return hybriderr.NewFormatError("invalid query kind %d", q.Kind)
		}
		if q.Kind == 1 || q.Kind == 3 {
			if int(q.Label) >= len(d.Categorical) || d.Categorical[q.Label] == nil {
				return hybriderr.NewFormatError("unknown label %d", q.Label)
			}
		}
	}
	return nil
}

// dispatchKind0 answers unfiltered top-k via the global Big Index's
// batch_knn.
func (d *Dispatcher) dispatchKind0(qs []Query, out []uint32, k int) {
	if len(qs) == 0 {
		return
	}
	vecs := vectorsOf(qs)
	tmp := make([]uint32, len(qs)*k)
	d.Global.BatchKnn(vecs, tmp, k, true)
	scatter(qs, tmp, out, k)
}

// dispatchKind1 answers label-equality-filtered top-k, grouping by
// label for cache locality, then calling each label's batch_knn.
func (d *Dispatcher) dispatchKind1(qs []Query, out []uint32, k int) {
	if len(qs) == 0 {
		return
	}
	var wg sync.WaitGroup
	start := 0
	for start < len(qs) {
		end := start + 1
		for end < len(qs) && qs[end].Label == qs[start].Label {
			end++
		}
		label := qs[start].Label
		block := qs[start:end]
		wg.Add(1)
		go func() {
			defer wg.Done()
			vecs := vectorsOf(block)
			tmp := make([]uint32, len(block)*k)
			d.Categorical[label].BatchKnn(vecs, tmp, k, true)
			scatter(block, tmp, out, k)
		}()
		start = end
	}
	wg.Wait()
}

// dispatchKind2 answers timestamp-range-filtered top-k through the
// windowed range hierarchy. Each query maps to exactly one covering
// window; queries are fanned out in parallel, one goroutine per
// query, rather than pre-grouped into window buckets -- functionally
// identical to bucket-then-dispatch since RangeKnn itself performs
// the (cheap) window lookup.
func (d *Dispatcher) dispatchKind2(qs []Query, out []uint32, k int) {
	if len(qs) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, q := range qs {
		q := q
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := d.Hierarchy.RangeKnn(q.Vector, q.TLo, q.THi, k)
			writeOne(res, out, q.OriginalIndex, k)
		}()
	}
	wg.Wait()
}

// dispatchKind3 answers label-AND-range-filtered top-k via each
// label's own range_knn.
func (d *Dispatcher) dispatchKind3(qs []Query, out []uint32, k int) {
	if len(qs) == 0 {
		return
	}
	var wg sync.WaitGroup
	for _, q := range qs {
		q := q
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := d.Categorical[q.Label].RangeKnn(q.Vector, q.TLo, q.THi, k)
			writeOne(res, out, q.OriginalIndex, k)
		}()
	}
	wg.Wait()
}

func vectorsOf(qs []Query) [][]float32 {
	vecs := make([][]float32, len(qs))
	for i, q := range qs {
		vecs[i] = q.Vector
	}
	return vecs
}

// scatter copies tmp[i*k:(i+1)*k] (the i-th query's contiguous batch
// result) into out at the corresponding original-index stripe.
func scatter(qs []Query, tmp []uint32, out []uint32, k int) {
	for i, q := range qs {
		writeOne(tmp[i*k:(i+1)*k], out, q.OriginalIndex, k)
	}
}

// writeOne copies res (which may be shorter than k on a warned,
// partially-filled range query) into out's k-sized stripe for
// originalIndex. Trailing slots beyond len(res) are left zero.
func writeOne(res []uint32, out []uint32, originalIndex uint32, k int) {
	base := int(originalIndex) * k
	copy(out[base:base+k], res)
}
