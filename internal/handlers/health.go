package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"sitedocs-ai/internal/contextutil"
	"sitedocs-ai/internal/storage"
	"sitedocs-ai/internal/vectorstore"
)

// IndexChecker exposes the vector store introspection the health check
// needs. Implemented by vectorstore.QdrantStore.
type IndexChecker interface {
	CollectionExists(ctx context.Context, collection string) (bool, error)
	GetCollectionInfo(ctx context.Context, collection string) (*vectorstore.CollectionInfo, error)
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	vectorStore        IndexChecker
	docStore           storage.DocumentStore
	db                 *sql.DB
	collection         string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(vectorStore IndexChecker, docStore storage.DocumentStore, db *sql.DB, collection string) *HealthHandler {
	return &HealthHandler{
		vectorStore:        vectorStore,
		docStore:           docStore,
		db:                 db,
		collection:         collection,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthStats reports index size. Best-effort: a failed count is
// logged and omitted without flipping the health status.
//
// swagger:model HealthStats
type HealthStats struct {
	// Documents is the number of ingested documents.
	Documents int `json:"documents"`

	// ChunksIndexed is the number of points in the vector collection.
	ChunksIndexed int `json:"chunks_indexed"`
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Index size counters (present when the index is reachable)
	Stats *HealthStats `json:"stats,omitempty"`

	// List of issues (only present when unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks. Returns 200 OK
// when the vector store and database are reachable, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	vectorStoreOK := h.checkVectorStore(checkCtx, logger)
	if vectorStoreOK {
		checks["vector_store"] = "ok"
	} else {
		checks["vector_store"] = "error"
		issues = append(issues, "vector_store_unavailable")
	}

	if h.db != nil {
		if err := h.db.PingContext(checkCtx); err != nil {
			logger.WarnContext(ctx, "database health check failed", "error", err)
			checks["database"] = "error"
			issues = append(issues, "database_unavailable")
		} else {
			checks["database"] = "ok"
		}
	}

	var stats *HealthStats
	if vectorStoreOK {
		stats = h.collectStats(checkCtx, logger)
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Stats:     stats,
	}
	if len(issues) > 0 {
		response.Issues = issues
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.ErrorContext(ctx, "failed to encode health response", "error", err)
	}
}

func (h *HealthHandler) checkVectorStore(ctx context.Context, logger *slog.Logger) bool {
	exists, err := h.vectorStore.CollectionExists(ctx, h.collection)
	if err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		return false
	}
	if !exists {
		logger.WarnContext(ctx, "vector store collection does not exist", "collection", h.collection)
		return false
	}
	return true
}

func (h *HealthHandler) collectStats(ctx context.Context, logger *slog.Logger) *HealthStats {
	stats := &HealthStats{}

	if info, err := h.vectorStore.GetCollectionInfo(ctx, h.collection); err != nil {
		logger.WarnContext(ctx, "failed to get collection info", "error", err)
	} else {
		stats.ChunksIndexed = info.PointsCount
	}

	if h.docStore != nil {
		if count, err := h.docStore.Count(ctx); err != nil {
			logger.WarnContext(ctx, "failed to count documents", "error", err)
		} else {
			stats.Documents = count
		}
	}

	return stats
}
