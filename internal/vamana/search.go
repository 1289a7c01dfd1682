// Package vamana implements the Vamana proximity-graph builder and its
// beam search: a single in-memory degree-bounded graph built with a
// two-pass robust-prune schedule, searched with a bounded frontier.
package vamana

import (
	"sort"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/graph"
)

// Accessor is the minimal vector-lookup surface Search and Build need;
// satisfied by both pointset.Range and pointset.Subset.
type Accessor interface {
	Size() int
	At(i int) []float32
}

// QueryParams are the pluggable beam-search knobs.
type QueryParams struct {
	K           int     // results to return
	Beam        int     // frontier capacity
	Cut         float64 // relaxation factor for frontier admission/termination
	Limit       int     // max total distance comparisons
	DegreeLimit int     // max neighbors fanned out per expansion
}

// Result is one beam-search hit: a local vertex id and its distance to
// the query.
type Result struct {
	ID   int
	Dist float32
}

type candidate struct {
	id       int
	dist     float32
	expanded bool
}

// Search runs greedy beam search over g starting from local vertex
// entry, returning the top qp.K results ascending by distance (ties
// broken by lower local id) and the number of distance comparisons
// performed.
func Search(q []float32, g *graph.Graph, points Accessor, entry int, qp QueryParams) ([]Result, int) {
	if qp.Beam < qp.K {
		qp.Beam = qp.K
	}

	visited := make(map[int]bool, qp.Beam*2)
	frontier := make([]candidate, 0, qp.Beam+1)
	comparisons := 0

	insert := func(id int, dist float32) {
		pos := sort.Search(len(frontier), func(i int) bool {
			if frontier[i].dist != dist {
				return frontier[i].dist > dist
			}
			return frontier[i].id > id
		})
		frontier = append(frontier, candidate{})
		copy(frontier[pos+1:], frontier[pos:])
		frontier[pos] = candidate{id: id, dist: dist}
		if len(frontier) > qp.Beam {
			frontier = frontier[:qp.Beam]
		}
	}

	entryDist := distvec.SquaredL2(q, points.At(entry))
	visited[entry] = true
	insert(entry, entryDist)
	comparisons++

	for comparisons < qp.Limit {
		// closest unexpanded candidate; frontier is sorted ascending.
		idx := -1
		for i := range frontier {
			if !frontier[i].expanded {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}

		kk := qp.K
		if kk > len(frontier) {
			kk = len(frontier)
		}
		if kk > 0 && float64(frontier[idx].dist) > qp.Cut*float64(frontier[kk-1].dist) {
			break
		}

		v := frontier[idx].id
		frontier[idx].expanded = true

		neighbors := g.Neighbors(v)
		limit := qp.DegreeLimit
		if limit <= 0 || limit > len(neighbors) {
			limit = len(neighbors)
		}

		for _, nb := range neighbors[:limit] {
			nid := int(nb)
			if visited[nid] {
				continue
			}
			visited[nid] = true

			if comparisons >= qp.Limit {
				break
			}
			d := distvec.SquaredL2(q, points.At(nid))
			comparisons++

			if len(frontier) < qp.Beam {
				insert(nid, d)
				continue
			}
			worst := frontier[len(frontier)-1].dist
			if d < worst || float64(d) <= qp.Cut*float64(worst) {
				insert(nid, d)
			}
		}
	}

	n := qp.K
	if n > len(frontier) {
		n = len(frontier)
	}
	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{ID: frontier[i].id, Dist: frontier[i].dist}
	}
	return results, comparisons
}
