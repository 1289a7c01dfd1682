// Package rangehier implements the windowed range hierarchy: a dyadic
// tree of overlapping Big Indices over timestamp-sorted points, used
// to answer range-filtered queries at arbitrary selectivity while
// keeping each window's graph selective enough for cheap
// overretrieval.
package rangehier

import (
	"math"
	"sync"

	"github.com/sigmod24/hybridann/internal/bigindex"
	"github.com/sigmod24/hybridann/internal/naiveindex"
	"github.com/sigmod24/hybridann/internal/obswarn"
	"github.com/sigmod24/hybridann/internal/pointset"
	"github.com/sigmod24/hybridann/internal/vamana"
)

// Level holds the 2*2^L-1 overlapping Big Index windows at level L.
type Level struct {
	Windows []*bigindex.Index
}

// Hierarchy is the full dyadic window tree plus the root Naive Index
// used for the absolute-width exhaustive sub-branch.
type Hierarchy struct {
	Levels []Level
	Root   *naiveindex.Index
	N      int
	Cutoff int
}

// Build constructs the hierarchy over base using global timestamps ts
// and sortedMap (global indices in ascending-timestamp order, i.e.
// the dispatcher's timestamp sort). Level L is built while N/2^L >
// cutoff. Window construction within a level runs in parallel.
func Build(base *pointset.Range, ts []float32, sortedMap []uint32, bp vamana.BuildParams, qp bigindex.QueryParams, exhaustiveFallbackCutoff float64, cutoff int) *Hierarchy {
	n := len(sortedMap)
	h := &Hierarchy{Root: naiveindex.Fit(base, ts, sortedMap), N: n, Cutoff: cutoff}

	const maxLevels = 24
	for level := 0; level < maxLevels; level++ {
		if n>>uint(level) <= cutoff {
			break
		}
		h.Levels = append(h.Levels, buildLevel(base, ts, sortedMap, level, bp, qp, exhaustiveFallbackCutoff))
	}
	return h
}

func buildLevel(base *pointset.Range, ts []float32, sortedMap []uint32, level int, bp vamana.BuildParams, qp bigindex.QueryParams, exhaustiveFallbackCutoff float64) Level {
	n := len(sortedMap)
	numWindows := 2*(1<<uint(level)) - 1
	windows := make([]*bigindex.Index, numWindows)

	var wg sync.WaitGroup
	for j := 0; j < numWindows; j++ {
		j := j
		wg.Add(1)
		go func() {
			defer wg.Done()
			start, end := windowBounds(n, level, j)
			slice := sortedMap[start:end]
			windows[j] = bigindex.Fit(base, ts, slice, bp, qp, exhaustiveFallbackCutoff)
		}()
	}
	wg.Wait()

	return Level{Windows: windows}
}

// windowBounds returns the half-open [start, end) slice of sortedMap
// covered by window j at level: level L has windows of width 1/2^L of
// the population, placed at offsets j/(2*2^L).
func windowBounds(n, level, j int) (int, int) {
	halfSlot := float64(n) / float64(2*(int(1)<<uint(level)))
	start := int(math.Floor(float64(j) * halfSlot))
	end := int(math.Floor(float64(j+2) * halfSlot))
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// RangeKnn maps (tLo, tHi) to a covering window and calls its Big
// Index's overretrieval range_knn. Queries with absolute width <=
// Cutoff/N are routed to the root Naive index instead (the exhaustive
// sub-branch).
func (h *Hierarchy) RangeKnn(q []float32, tLo, tHi float32, k int) []uint32 {
	w := float64(tHi - tLo)

	if h.N > 0 && w <= float64(h.Cutoff)/float64(h.N) {
		out, err := h.Root.RangeKnn(q, tLo, tHi, k)
		if err != nil {
			obswarn.Warnf("range hierarchy exhaustive sub-branch: %v", err)
			return nil
		}
		return out
	}

	level, window := h.mapQuery(tLo, w)
	if level < 0 {
		out, err := h.Root.RangeKnn(q, tLo, tHi, k)
		if err != nil {
			obswarn.Warnf("range hierarchy root fallback: %v", err)
			return nil
		}
		return out
	}
	return h.Levels[level].Windows[window].OverretrievalRangeKnn(q, tLo, tHi, k)
}

// mapQuery returns the (level, window) indices covering a range of
// normalized width w starting at tLo. Returns level = -1 if no level
// has been built (small dataset).
func (h *Hierarchy) mapQuery(tLo float32, w float64) (int, int) {
	if len(h.Levels) == 0 {
		return -1, -1
	}

	level := 0
	if w < 0.375 {
		level = int(math.Floor(math.Log2(0.375/w))) + 1
	}
	if level > len(h.Levels)-1 {
		level = len(h.Levels) - 1
	}

	numWindows := 2*(1<<uint(level)) - 1
	j := int(math.Floor(float64(2*(int(1)<<uint(level))) * float64(tLo)))
	if j > numWindows-1 {
		j = numWindows - 1
	}
	if j < 0 {
		j = 0
	}
	return level, j
}
