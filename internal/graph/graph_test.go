package graph

import (
	"sync"
	"testing"
)

func TestSetNeighborsAndDegree(t *testing.T) {
	g := New(4, 2)

	g.SetNeighbors(0, []uint32{1, 2})
	if got := g.Degree(0); got != 2 {
		t.Fatalf("Degree(0) = %d, want 2", got)
	}
	neigh := g.Neighbors(0)
	if len(neigh) != 2 || neigh[0] != 1 || neigh[1] != 2 {
		t.Fatalf("Neighbors(0) = %v, want [1 2]", neigh)
	}
}

func TestSetNeighborsTruncatesToR(t *testing.T) {
	g := New(4, 2)
	g.SetNeighbors(0, []uint32{1, 2, 3})
	if got := g.Degree(0); got != 2 {
		t.Fatalf("Degree(0) = %d, want 2 (truncated)", got)
	}
}

func TestNoSelfLoopInvariantHeldByCaller(t *testing.T) {
	// graph.Graph itself does not enforce "no self loops" or "unique
	// neighbors" -- those are build-time invariants enforced by the
	// Vamana builder. This test just checks the storage layer is a
	// faithful passthrough.
	g := New(2, 4)
	g.SetNeighbors(0, []uint32{0, 0, 1})
	if got := g.Degree(0); got != 3 {
		t.Fatalf("Degree(0) = %d, want 3", got)
	}
}

func TestConcurrentLockedUpdates(t *testing.T) {
	g := New(1, 64)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		i := uint32(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Lock(0)
			defer g.Unlock(0)
			cur := append([]uint32{}, g.Neighbors(0)...)
			cur = append(cur, i)
			g.SetNeighbors(0, cur)
		}()
	}
	wg.Wait()

	if got := g.Degree(0); got != 64 {
		t.Fatalf("Degree(0) = %d, want 64 after 64 locked appends", got)
	}
	seen := make(map[uint32]bool)
	for _, id := range g.Neighbors(0) {
		if seen[id] {
			t.Fatalf("duplicate neighbor id %d", id)
		}
		seen[id] = true
	}
}
