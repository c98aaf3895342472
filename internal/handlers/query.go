package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"sitedocs-ai/internal/contextutil"
	"sitedocs-ai/internal/rag"
)

// maxQuestionLength bounds the accepted question size.
const maxQuestionLength = 2000

// QueryPipeline answers questions. Implemented by rag.Pipeline.
type QueryPipeline interface {
	Query(ctx context.Context, question string) (*rag.QueryResult, error)
}

// QueryHandler handles HTTP requests for document queries.
type QueryHandler struct {
	pipeline QueryPipeline
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(pipeline QueryPipeline) *QueryHandler {
	return &QueryHandler{pipeline: pipeline}
}

// QueryRequest represents the HTTP request payload for queries.
//
// swagger:model QueryRequest
type QueryRequest struct {
	Question string `json:"question"`
}

// QueryMetadata carries diagnostic information alongside the answer.
//
// swagger:model QueryMetadata
type QueryMetadata struct {
	// QueryType is the classifier verdict: DOC, DATA, HYBRID or REFUSE.
	QueryType string `json:"query_type"`

	// MatchedKeywords are the rule-table entries that drove classification.
	MatchedKeywords []string `json:"matched_keywords,omitempty"`

	// ChunksRetrieved is the number of evidence chunks considered.
	ChunksRetrieved int `json:"chunks_retrieved"`

	// DurationMs is the total query time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// QueryResponse represents the HTTP response payload for queries.
//
// swagger:model QueryResponse
type QueryResponse struct {
	// Success is true whenever a well-formed answer was produced,
	// including guarded fallbacks.
	Success bool `json:"success"`

	// The answer text, or the fixed fallback/refusal message.
	Answer string `json:"answer"`

	// Sources cited in the answer, resolved against retrieved evidence.
	Sources []rag.Source `json:"sources"`

	// Blocked indicates a guard or refusal forced the answer.
	Blocked bool `json:"blocked"`

	// Flags name which checks forced the fallback, if any.
	Flags []string `json:"flags,omitempty"`

	Metadata QueryMetadata `json:"metadata"`
}

// ServeHTTP handles HTTP requests for document queries.
//
// swagger:route POST /api/query query
//
// # Ask a question about the ingested documents
//
// Classifies the question, retrieves matching document chunks and
// generates a cited answer. Questions the system cannot support with
// evidence receive the fixed fallback message rather than a guess.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Answer with sources and metadata
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Bad request (missing or oversized question)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		logger.WarnContext(ctx, "empty question in request")
		writeError(w, http.StatusBadRequest, "Question is required")
		return
	}
	if len(req.Question) > maxQuestionLength {
		logger.WarnContext(ctx, "question too long", "length", len(req.Question))
		writeError(w, http.StatusBadRequest, "Question is too long")
		return
	}

	result, err := h.pipeline.Query(ctx, req.Question)
	if err != nil {
		logger.ErrorContext(ctx, "query pipeline error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to process query")
		return
	}

	resp := QueryResponse{
		Success: true,
		Answer:  result.Answer.Text,
		Sources: result.Answer.Sources,
		Blocked: result.Answer.Blocked,
		Flags:   result.Answer.Flags,
		Metadata: QueryMetadata{
			QueryType:       string(result.Classification.Type),
			MatchedKeywords: result.Classification.MatchedKeywords,
			ChunksRetrieved: result.ChunksRetrieved,
			DurationMs:      result.Duration.Milliseconds(),
		},
	}
	if resp.Sources == nil {
		resp.Sources = []rag.Source{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
