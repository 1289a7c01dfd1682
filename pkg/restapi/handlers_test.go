package restapi

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sigmod24/hybridann/internal/bigindex"
	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/pointset"
	"github.com/sigmod24/hybridann/internal/vamana"
)

func testDispatcher(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()
	n, numLabels := 300, 3
	rng := rand.New(rand.NewSource(42))
	base := pointset.NewRange(n)
	labels := make([]uint32, n)
	ts := make([]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, distvec.Dims)
		for j := range v {
			v[j] = rng.Float32()
		}
		base.Set(i, v)
		labels[i] = uint32(rng.Intn(numLabels))
		ts[i] = rng.Float32()
	}

	params := dispatcher.Params{
		Build:                    vamana.BuildParams{R: 12, L: 24, Alpha: 1.175, Seed: 9},
		Query:                    bigindex.QueryParams{K: 5, Beam: 30, Cut: 1.35, Limit: 20000, DegreeLimit: 24},
		Cutoff:                   30,
		ExhaustiveFallbackCutoff: 0.25,
	}

	d, err := dispatcher.Build(base, labels, ts, params)
	if err != nil {
		t.Fatalf("dispatcher.Build failed: %v", err)
	}
	return d
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(testDispatcher(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.HealthCheck(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestQueryHandlerReturnsResults(t *testing.T) {
	h := NewHandler(testDispatcher(t), nil)

	vec := make([]float32, distvec.Dims)
	for i := range vec {
		vec[i] = float32(i) * 0.001
	}

	body, _ := json.Marshal(queryRequest{
		K: 5,
		Queries: []queryRecord{
			{Kind: 0, Vector: vec},
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Results) != 1 || len(resp.Results[0]) != 5 {
		t.Fatalf("unexpected results shape: %+v", resp.Results)
	}
}

func TestQueryHandlerRejectsBadVectorLength(t *testing.T) {
	h := NewHandler(testDispatcher(t), nil)

	body, _ := json.Marshal(queryRequest{
		K:       5,
		Queries: []queryRecord{{Kind: 0, Vector: []float32{1, 2, 3}}},
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/query", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestQueryHandlerRejectsGet(t *testing.T) {
	h := NewHandler(testDispatcher(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
	rr := httptest.NewRecorder()
	h.Query(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
