package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sigmod24/hybridann/internal/distvec"
	"github.com/sigmod24/hybridann/internal/dispatcher"
	"github.com/sigmod24/hybridann/internal/hybriderr"
	"github.com/sigmod24/hybridann/pkg/obs"
)

// Handler answers HTTP requests against a fixed Dispatcher.
type Handler struct {
	dispatcher *dispatcher.Dispatcher
	metrics    *obs.Metrics
}

// NewHandler wraps d for HTTP serving, recording metrics if non-nil.
func NewHandler(d *dispatcher.Dispatcher, metrics *obs.Metrics) *Handler {
	return &Handler{dispatcher: d, metrics: metrics}
}

// HealthCheck handles GET /healthz.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// queryRequest is the JSON body accepted by POST /v1/query.
type queryRequest struct {
	Queries []queryRecord `json:"queries"`
	K       int           `json:"k"`
}

type queryRecord struct {
	Kind   uint32    `json:"kind"`
	Label  uint32    `json:"label"`
	TLo    float32   `json:"t_lo"`
	THi    float32   `json:"t_hi"`
	Vector []float32 `json:"vector"`
}

type queryResponse struct {
	Results [][]uint32 `json:"results"`
}

// Query handles POST /v1/query: a JSON batch of query records answered
// against the server's pre-built dispatcher.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.recordError("decode")
		writeError(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.K <= 0 {
		req.K = 100
	}

	queries := make([]dispatcher.Query, len(req.Queries))
	for i, q := range req.Queries {
		if len(q.Vector) != distvec.Dims {
			h.recordError("vector_length")
			writeError(w, fmt.Sprintf("query %d: vector must have %d dimensions", i, distvec.Dims), http.StatusBadRequest)
			return
		}
		vec := make([]float32, distvec.Aligned)
		copy(vec, q.Vector)
		queries[i] = dispatcher.Query{
			Kind:          q.Kind,
			Label:         q.Label,
			TLo:           q.TLo,
			THi:           q.THi,
			Vector:        vec,
			OriginalIndex: uint32(i),
		}
	}

	out, err := h.dispatcher.RunBatch(queries, req.K)
	if err != nil {
		h.recordError("dispatch")
		status := http.StatusInternalServerError
		if hybriderr.Code(err) == hybriderr.ExitUsage {
			status = http.StatusBadRequest
		}
		writeError(w, err.Error(), status)
		return
	}

	results := make([][]uint32, len(queries))
	for i := range queries {
		results[i] = out[i*req.K : (i+1)*req.K]
	}

	if h.metrics != nil {
		for _, q := range req.Queries {
			h.metrics.RecordQuery(fmt.Sprintf("%d", q.Kind), time.Since(start)/time.Duration(len(req.Queries)+1), req.K)
		}
	}

	writeJSON(w, queryResponse{Results: results}, http.StatusOK)
}

func (h *Handler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordQueryError(kind)
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{"error": message, "status": statusCode})
}
