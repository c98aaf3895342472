package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"sitedocs-ai/internal/contextutil"
	"sitedocs-ai/internal/ingest"
)

// Ingester runs the document ingestion pipeline. Implemented by
// ingest.Pipeline.
type Ingester interface {
	IngestAll(ctx context.Context) (*ingest.Result, error)
}

// IngestHandler handles HTTP requests to (re)ingest the document tree.
type IngestHandler struct {
	ingester Ingester
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(ingester Ingester) *IngestHandler {
	return &IngestHandler{ingester: ingester}
}

// ServeHTTP handles HTTP requests to ingest documents.
//
// Runs synchronously: the response carries the per-document counters
// once the whole tree has been walked. Unchanged documents are skipped
// by content hash, so re-running after small edits is cheap.
//
// swagger:route POST /api/ingest ingest
//
// # Ingest the configured document tree
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Ingestion counters
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	result, err := h.ingester.IngestAll(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Ingestion failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
