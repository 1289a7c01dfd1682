package vamana

import (
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/graph"
)

// BuildParams controls graph construction.
type BuildParams struct {
	R          int     // max out-degree
	L          int     // build-time beam width
	Alpha      float64 // robust-prune relaxation, second pass
	Seed       int64   // deterministic build order
	Workers    int     // parallel insertion workers; 0 = runtime.GOMAXPROCS
}

// buildSearchParams derives the beam-search knobs used while gathering
// each vertex's candidate pool during a build pass.
func buildSearchParams(p BuildParams) QueryParams {
	return QueryParams{
		K:           p.L,
		Beam:        p.L,
		Cut:         1.2,
		Limit:       p.L * 64,
		DegreeLimit: p.R * 4,
	}
}

// Build constructs a Vamana graph over points: two randomized-order
// insertion passes of beam-search-then-robust-prune, followed by a
// symmetrization pass that guarantees every edge is bidirectional. It
// also returns the approximate medoid chosen as the graph's fixed
// search entry point.
//
// Build is deterministic given a fixed Seed; parallel insertion uses
// per-vertex locking (graph.Graph.Lock/Unlock) to serialize concurrent
// neighbor-list mutation.
func Build(points Accessor, p BuildParams) (*graph.Graph, int) {
	n := points.Size()
	g := graph.New(n, p.R)
	if n == 0 {
		return g, 0
	}
	if n == 1 {
		return g, 0
	}

	medoid := findMedoid(points, p.Seed)

	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	for pass := 0; pass < 2; pass++ {
		alpha := 1.0
		if pass == 1 {
			alpha = p.Alpha
			if alpha < 1.0 {
				alpha = 1.0
			}
		}
		order := rng.Perm(n)
		insertPass(g, points, order, medoid, alpha, p, workers)
	}

	symmetrize(g, points, p.Alpha, p.R)
	return g, medoid
}

func insertPass(g *graph.Graph, points Accessor, order []int, medoid int, alpha float64, p BuildParams, workers int) {
	qp := buildSearchParams(p)

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for v := range jobs {
				candidates, _ := Search(points.At(v), g, points, medoid, qp)
				pruned := robustPrune(points, v, candidatesExcluding(candidates, v), alpha, p.R)

				ids := make([]uint32, len(pruned))
				for i, c := range pruned {
					ids[i] = uint32(c.ID)
				}
				g.Lock(v)
				g.SetNeighbors(v, ids)
				g.Unlock(v)

				for _, c := range pruned {
					addReverseEdge(g, points, c.ID, v, alpha, p.R)
				}
			}
		}()
	}
	for _, v := range order {
		jobs <- v
	}
	close(jobs)
	wg.Wait()
}

func candidatesExcluding(results []Result, self int) []Result {
	out := results[:0:0]
	for _, r := range results {
		if r.ID != self {
			out = append(out, r)
		}
	}
	return out
}

// robustPrune implements the alpha-rule: accept candidate c if for
// every already-accepted c', alpha*dist(c,c') > dist(v,c). Candidates
// are considered in ascending distance-to-v order so the closest
// points are preferred.
func robustPrune(points Accessor, v int, candidates []Result, alpha float64, r int) []Result {
	sorted := append([]Result(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Dist != sorted[j].Dist {
			return sorted[i].Dist < sorted[j].Dist
		}
		return sorted[i].ID < sorted[j].ID
	})

	accepted := make([]Result, 0, r)
	for _, c := range sorted {
		if len(accepted) >= r {
			break
		}
		if c.ID == v {
			continue
		}
		occluded := false
		for _, a := range accepted {
			d := distvec.SquaredL2(points.At(c.ID), points.At(a.ID))
			if alpha*float64(d) <= float64(c.Dist) {
				occluded = true
				break
			}
		}
		if !occluded {
			accepted = append(accepted, c)
		}
	}
	return accepted
}

// addReverseEdge adds v to fromID's neighbor list, pruning fromID's
// list back down to r if it overflows.
func addReverseEdge(g *graph.Graph, points Accessor, fromID, v int, alpha float64, r int) {
	if fromID == v {
		return
	}
	g.Lock(fromID)
	defer g.Unlock(fromID)

	if g.HasNeighbor(fromID, uint32(v)) {
		return
	}

	current := g.Neighbors(fromID)
	merged := make([]uint32, len(current), len(current)+1)
	copy(merged, current)
	merged = append(merged, uint32(v))

	if len(merged) <= r {
		g.SetNeighbors(fromID, merged)
		return
	}

	candidates := make([]Result, len(merged))
	for i, id := range merged {
		candidates[i] = Result{ID: int(id), Dist: distvec.SquaredL2(points.At(fromID), points.At(int(id)))}
	}
	pruned := robustPrune(points, fromID, candidates, alpha, r)
	ids := make([]uint32, len(pruned))
	for i, c := range pruned {
		ids[i] = uint32(c.ID)
	}
	g.SetNeighbors(fromID, ids)
}

// symmetrize guarantees every edge is bidirectional: for every v and
// every neighbor u of v, u gets v added back (with the same degree-
// bounded pruning as addReverseEdge) if it is missing. That pruning
// can drop other edges, so a final sweep removes every edge whose
// reverse edge is still absent.
func symmetrize(g *graph.Graph, points Accessor, alpha float64, r int) {
	n := g.N()
	for v := 0; v < n; v++ {
		for _, u := range append([]uint32(nil), g.Neighbors(v)...) {
			addReverseEdge(g, points, int(u), v, alpha, r)
		}
	}
	for v := 0; v < n; v++ {
		kept := make([]uint32, 0, g.Degree(v))
		for _, u := range g.Neighbors(v) {
			if g.HasNeighbor(int(u), uint32(v)) {
				kept = append(kept, u)
			}
		}
		g.SetNeighbors(v, kept)
	}
}

// findMedoid approximates the global distance-sum minimizer by
// averaging each point's distance to a fixed-size random sample.
func findMedoid(points Accessor, seed int64) int {
	n := points.Size()
	rng := rand.New(rand.NewSource(seed))

	sampleSize := n
	if sampleSize > 1000 {
		sampleSize = 1000
	}
	samples := make([]int, sampleSize)
	for i := range samples {
		samples[i] = rng.Intn(n)
	}

	best := 0
	bestAvg := float32(math.Inf(1))
	for i := 0; i < n; i++ {
		var total float32
		for _, s := range samples {
			total += distvec.SquaredL2(points.At(i), points.At(s))
		}
		avg := total / float32(sampleSize)
		if avg < bestAvg {
			bestAvg = avg
			best = i
		}
	}
	return best
}
