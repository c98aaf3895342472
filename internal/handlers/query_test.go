package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sitedocs-ai/internal/docparse"
	"sitedocs-ai/internal/rag"
)

type fakePipeline struct {
	result   *rag.QueryResult
	err      error
	question string
}

func (f *fakePipeline) Query(_ context.Context, question string) (*rag.QueryResult, error) {
	f.question = question
	return f.result, f.err
}

func answeredResult() *rag.QueryResult {
	return &rag.QueryResult{
		Answer: rag.Answer{
			Text: "The minimum trench depth is 1.2 meters. [Source: groundworks.pdf]",
			Sources: []rag.Source{
				{Document: "groundworks.pdf", Locator: docparse.Locator{Page: 3}.String(), Section: "Trenching"},
			},
		},
		Classification:  rag.Classification{Type: rag.TypeDoc},
		ChunksRetrieved: 1,
		Duration:        42 * time.Millisecond,
	}
}

func TestQueryHandler(t *testing.T) {
	pipeline := &fakePipeline{result: answeredResult()}
	handler := NewQueryHandler(pipeline)

	body := `{"question": "What is the minimum trench depth?"}`
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	if pipeline.question != "What is the minimum trench depth?" {
		t.Errorf("pipeline received question %q", pipeline.question)
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if !strings.Contains(resp.Answer, "1.2 meters") {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].Document != "groundworks.pdf" {
		t.Errorf("Sources = %v", resp.Sources)
	}
	if resp.Metadata.QueryType != "DOC" {
		t.Errorf("Metadata.QueryType = %s, want DOC", resp.Metadata.QueryType)
	}
	if resp.Metadata.ChunksRetrieved != 1 {
		t.Errorf("Metadata.ChunksRetrieved = %d, want 1", resp.Metadata.ChunksRetrieved)
	}
	if resp.Metadata.DurationMs != 42 {
		t.Errorf("Metadata.DurationMs = %d, want 42", resp.Metadata.DurationMs)
	}
}

func TestQueryHandler_BlockedAnswer(t *testing.T) {
	pipeline := &fakePipeline{result: &rag.QueryResult{
		Answer: rag.Answer{
			Text:    rag.FallbackAnswer,
			Sources: []rag.Source{},
			Blocked: true,
			Flags:   []string{rag.FlagLowScore},
		},
		Classification: rag.Classification{Type: rag.TypeDoc},
	}}
	handler := NewQueryHandler(pipeline)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "anything"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: guarded fallbacks are valid answers", rec.Code)
	}

	var resp QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Blocked {
		t.Error("Blocked = false, want true")
	}
	if resp.Answer != rag.FallbackAnswer {
		t.Errorf("Answer = %q, want the fallback message", resp.Answer)
	}
	if len(resp.Flags) != 1 || resp.Flags[0] != rag.FlagLowScore {
		t.Errorf("Flags = %v", resp.Flags)
	}
}

func TestQueryHandler_BadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{
			name:   "wrong method",
			method: http.MethodGet,
			body:   "",
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "malformed body",
			method: http.MethodPost,
			body:   "{not json",
			status: http.StatusBadRequest,
		},
		{
			name:   "missing question",
			method: http.MethodPost,
			body:   `{"question": "   "}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "oversized question",
			method: http.MethodPost,
			body:   `{"question": "` + strings.Repeat("x", maxQuestionLength+1) + `"}`,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewQueryHandler(&fakePipeline{result: answeredResult()})
			req := httptest.NewRequest(tt.method, "/api/query", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestQueryHandler_PipelineError(t *testing.T) {
	handler := NewQueryHandler(&fakePipeline{err: errors.New("boom")})

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question": "q"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
