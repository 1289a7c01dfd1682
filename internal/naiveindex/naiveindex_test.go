package naiveindex

import (
	"errors"
	"testing"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/internal/pointset"
)

// fivePointFixture builds a small worked dataset: 5 points in 2-d
// padded to 100 dims, labels [0,0,1,1,0], timestamps
// [0.1, 0.3, 0.5, 0.7, 0.9].
func fivePointFixture(t *testing.T) (*pointset.Range, []float32) {
	t.Helper()
	base := pointset.NewRange(5)
	pts := [][2]float32{{0, 0}, {1, 0}, {0, 1}, {10, 10}, {5, 5}}
	for i, p := range pts {
		v := make([]float32, distvec.Dims)
		v[0], v[1] = p[0], p[1]
		base.Set(i, v)
	}
	ts := []float32{0.1, 0.3, 0.5, 0.7, 0.9}
	return base, ts
}

func vec(x, y float32) []float32 {
	v := make([]float32, distvec.Aligned)
	v[0], v[1] = x, y
	return v
}

func TestNaiveIndexFitSortsByTimestamp(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 2, 3, 4})

	for i := 1; i < len(idx.Timestamps); i++ {
		if idx.Timestamps[i-1] > idx.Timestamps[i] {
			t.Fatalf("timestamps not sorted ascending: %v", idx.Timestamps)
		}
	}
}

func TestKindZeroUnfilteredTopK(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 2, 3, 4})

	got := idx.Knn(vec(0, 0), 3)
	want := []uint32{0, 1, 2}
	if !equalIDs(got, want) {
		t.Fatalf("kind-0 query: got %v, want %v", got, want)
	}
}

func TestKindOneLabelFilteredTopK(t *testing.T) {
	base, ts := fivePointFixture(t)
	// label 0 is points {0,1,4}
	idx := Fit(base, ts, []uint32{0, 1, 4})

	got := idx.Knn(vec(1, 1), 3)
	want := []uint32{1, 0, 4}
	if !equalIDs(got, want) {
		t.Fatalf("kind-1 query: got %v, want %v", got, want)
	}
}

func TestKindThreeLabelAndRangeFilteredTopK(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 4}) // label 0

	got, err := idx.RangeKnn(vec(0, 0), 0.0, 0.4, 3)
	if err == nil {
		if len(got) < 2 || got[0] != 0 || got[1] != 1 {
			t.Fatalf("kind-3 query: got %v, want prefix [0 1]", got)
		}
	} else if !errors.Is(err, hybriderr.ErrInsufficientRange) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRangeKnnInsufficientRangeFails(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 2, 3, 4})

	_, err := idx.RangeKnn(vec(10, 10), 0.6, 1.0, 3)
	if !errors.Is(err, hybriderr.ErrInsufficientRange) {
		t.Fatalf("expected InsufficientRange, got %v", err)
	}
}

func TestRangeKnnZeroWidthExactTimestamp(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 2, 3, 4})

	_, err := idx.RangeKnn(vec(0, 0), 0.5, 0.5, 1)
	if err != nil {
		t.Fatalf("zero-width range at an existing timestamp should succeed for k<=matches: %v", err)
	}
}

func TestBatchKnnParallelMatchesSequential(t *testing.T) {
	base, ts := fivePointFixture(t)
	idx := Fit(base, ts, []uint32{0, 1, 2, 3, 4})

	qs := [][]float32{vec(0, 0), vec(10, 10), vec(5, 5)}
	k := 2

	seq := make([]uint32, len(qs)*k)
	idx.BatchKnn(qs, seq, k, false)

	par := make([]uint32, len(qs)*k)
	idx.BatchKnn(qs, par, k, true)

	if !equalIDs(seq, par) {
		t.Fatalf("parallel batch_knn diverged from sequential: %v vs %v", par, seq)
	}
}

func equalIDs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
