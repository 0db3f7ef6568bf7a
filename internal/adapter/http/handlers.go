// Package http exposes the flowpulse API: event ingestion and read-side
// views of memory, error groups, records, and execution stats.
package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/avely-dev/flowpulse/internal/adapter/ws"
	"github.com/avely-dev/flowpulse/internal/domain/event"
	"github.com/avely-dev/flowpulse/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Pipeline *service.PipelineService
	Hub      *ws.Hub
}

// HandleIngestEvent accepts a raw workflow event and runs it through the
// pipeline synchronously, returning the terminal record.
func (h *Handlers) HandleIngestEvent(w http.ResponseWriter, r *http.Request) {
	raw, ok := readJSON[event.Raw](w, r)
	if !ok {
		return
	}
	if raw.EventType == "" {
		writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	// Clients that retry a delivery send Idempotency-Key; otherwise each
	// request is a fresh delivery.
	deliveryID := r.Header.Get("Idempotency-Key")
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	rec, err := h.Pipeline.Process(r.Context(), raw, deliveryID)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

// HandleListMemory returns the per-type aggregate snapshots.
func (h *Handlers) HandleListMemory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.Memory().Snapshots())
}

// HandleGetMemory returns the aggregate snapshot for a single event type.
func (h *Handlers) HandleGetMemory(w http.ResponseWriter, r *http.Request) {
	t := urlParam(r, "type")
	snap, ok := h.Pipeline.Memory().SnapshotFor(event.Type(t))
	if !ok {
		writeError(w, http.StatusNotFound, "no events of type "+t)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleListErrors returns error aggregates grouped by signature.
func (h *Handlers) HandleListErrors(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.Memory().SignatureSnapshots())
}

// HandleStats returns cumulative execution statistics.
func (h *Handlers) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := h.Pipeline.Stats()
	resp := map[string]any{
		"executions": stats,
		"recent":     h.Pipeline.RecentExecutions(20),
	}
	if h.Hub != nil {
		resp["ws_connections"] = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleListRecords returns the most recent terminal records. The optional
// limit query parameter caps the count.
func (h *Handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, h.Pipeline.Records(limit))
}
