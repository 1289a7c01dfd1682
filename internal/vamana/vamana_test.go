package vamana

import (
	"math/rand"
	"testing"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/pointset"
)

func generateRandomPoints(n int, seed int64) *pointset.Range {
	rng := rand.New(rand.NewSource(seed))
	r := pointset.NewRange(n)
	for i := 0; i < n; i++ {
		v := make([]float32, distvec.Dims)
		for j := range v {
			v[j] = rng.Float32()
		}
		r.Set(i, v)
	}
	return r
}

func bruteForceKNN(points *pointset.Range, q []float32, k int) []Result {
	n := points.Size()
	all := make([]Result, n)
	for i := 0; i < n; i++ {
		all[i] = Result{ID: i, Dist: distvec.SquaredL2(points.At(i), q)}
	}
	// simple selection sort of the first k, good enough for small test n
	for i := 0; i < k && i < n; i++ {
		min := i
		for j := i + 1; j < n; j++ {
			if all[j].Dist < all[min].Dist {
				min = j
			}
		}
		all[i], all[min] = all[min], all[i]
	}
	if k > n {
		k = n
	}
	return all[:k]
}

func defaultBuildParams() BuildParams {
	return BuildParams{R: 16, L: 40, Alpha: 1.175, Seed: 42}
}

func defaultQueryParams(k int) QueryParams {
	return QueryParams{K: k, Beam: 64, Cut: 1.35, Limit: 100000, DegreeLimit: 32}
}

func TestBuildProducesDegreeBoundedSymmetricGraph(t *testing.T) {
	points := generateRandomPoints(200, 1)
	g, _ := Build(points, defaultBuildParams())

	for v := 0; v < g.N(); v++ {
		neighbors := g.Neighbors(v)
		if len(neighbors) > g.R() {
			t.Fatalf("vertex %d has degree %d > R=%d", v, len(neighbors), g.R())
		}
		seen := map[uint32]bool{}
		for _, u := range neighbors {
			if int(u) == v {
				t.Fatalf("vertex %d has self-loop", v)
			}
			if seen[u] {
				t.Fatalf("vertex %d has duplicate neighbor %d", v, u)
			}
			seen[u] = true
			// symmetry
			if !g.HasNeighbor(int(u), uint32(v)) {
				t.Fatalf("edge %d->%d is not bidirectional after build", v, u)
			}
		}
	}
}

func TestSearchFindsExactSelf(t *testing.T) {
	points := generateRandomPoints(300, 2)
	g, _ := Build(points, defaultBuildParams())

	q := append([]float32(nil), points.At(0)...)
	results, _ := Search(q, g, points, 0, defaultQueryParams(5))

	if len(results) == 0 || results[0].ID != 0 || results[0].Dist != 0 {
		t.Fatalf("expected self as nearest neighbor, got %+v", results)
	}
}

func TestSearchResultsSortedAscendingByDistance(t *testing.T) {
	points := generateRandomPoints(300, 3)
	g, _ := Build(points, defaultBuildParams())

	q := make([]float32, distvec.Aligned)
	copy(q, points.At(7))
	results, _ := Search(q, g, points, 0, defaultQueryParams(20))

	for i := 1; i < len(results); i++ {
		if results[i].Dist < results[i-1].Dist {
			t.Fatalf("results not sorted ascending at index %d: %+v", i, results)
		}
	}
}

func TestSearchRecallReasonableAgainstBruteForce(t *testing.T) {
	points := generateRandomPoints(500, 4)
	g, _ := Build(points, defaultBuildParams())

	const k = 10
	hits := 0
	trials := 20
	for t0 := 0; t0 < trials; t0++ {
		q := make([]float32, distvec.Aligned)
		copy(q, points.At(t0*5))

		got, _ := Search(q, g, points, 0, defaultQueryParams(k))
		want := bruteForceKNN(points, q, k)

		wantSet := make(map[int]bool, len(want))
		for _, r := range want {
			wantSet[r.ID] = true
		}
		for _, r := range got {
			if wantSet[r.ID] {
				hits++
			}
		}
	}

	recall := float64(hits) / float64(trials*k)
	if recall < 0.7 {
		t.Fatalf("recall too low for a small well-connected graph: %f", recall)
	}
}

func TestLowerBeamNeverImprovesRecall(t *testing.T) {
	points := generateRandomPoints(500, 5)
	g, _ := Build(points, defaultBuildParams())

	const k = 10
	measure := func(beam int) float64 {
		hits := 0
		trials := 15
		for t0 := 0; t0 < trials; t0++ {
			q := make([]float32, distvec.Aligned)
			copy(q, points.At(t0*7))
			qp := defaultQueryParams(k)
			qp.Beam = beam
			got, _ := Search(q, g, points, 0, qp)
			want := bruteForceKNN(points, q, k)
			wantSet := make(map[int]bool, len(want))
			for _, r := range want {
				wantSet[r.ID] = true
			}
			for _, r := range got {
				if wantSet[r.ID] {
					hits++
				}
			}
		}
		return float64(hits) / float64(trials*k)
	}

	lowBeam := measure(15)
	highBeam := measure(200)
	if lowBeam > highBeam+0.05 {
		t.Fatalf("lowering beam unexpectedly improved recall: low=%f high=%f", lowBeam, highBeam)
	}
}

func TestBuildDeterministicGivenSeed(t *testing.T) {
	points := generateRandomPoints(120, 9)
	g1, _ := Build(points, defaultBuildParams())
	g2, _ := Build(points, defaultBuildParams())

	for v := 0; v < g1.N(); v++ {
		n1 := g1.Neighbors(v)
		n2 := g2.Neighbors(v)
		if len(n1) != len(n2) {
			t.Fatalf("vertex %d degree differs across identical-seed builds: %d vs %d", v, len(n1), len(n2))
		}
	}
}
