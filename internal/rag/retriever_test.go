package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"

	"sitedocs-ai/internal/storage"
	storage_mocks "sitedocs-ai/internal/storage/mocks"
	"sitedocs-ai/internal/vectorstore"
	vector_mocks "sitedocs-ai/internal/vectorstore/mocks"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vec
	}
	return out, nil
}

func storedChunk(id string, page int, text string) *storage.ChunkRecord {
	return &storage.ChunkRecord{
		ID:         id,
		DocumentID: "doc-1",
		Text:       text,
		Locator:    fmt.Sprintf(`{"page":%d}`, page),
	}
}

func docMeta() map[string]any {
	return map[string]any{
		"document_id":   "doc-1",
		"document_name": "groundworks.pdf",
		"document_path": "specs/groundworks.pdf",
	}
}

func TestRetrieve_RanksAndTruncates(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	var hits []vectorstore.SearchResult
	for i := 1; i <= 5; i++ {
		hits = append(hits, vectorstore.SearchResult{
			ID:      fmt.Sprintf("chunk-%d", i),
			Score:   0.5 + float32(i)*0.08,
			Payload: docMeta(),
		})
	}
	store.EXPECT().
		Search(gomock.Any(), "documents", gomock.Any(), 10).
		Return(hits, nil)
	chunks.EXPECT().
		GetByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*storage.ChunkRecord, error) {
			var n int
			fmt.Sscanf(id, "chunk-%d", &n)
			return storedChunk(id, n, "chunk text"), nil
		}).
		AnyTimes()

	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, store, chunks, RetrieverConfig{
		Collection:          "documents",
		SimilarityThreshold: 0.5,
		VectorTopK:          10,
		MaxResults:          3,
	})

	got, err := r.Retrieve(context.Background(), "trench depth")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("results not sorted by descending score: %v then %v", got[i-1].Score, got[i].Score)
		}
	}
	if got[0].ChunkID != "chunk-5" {
		t.Errorf("top result = %s, want chunk-5", got[0].ChunkID)
	}
	if got[0].DocumentName != "groundworks.pdf" {
		t.Errorf("DocumentName = %s, want groundworks.pdf", got[0].DocumentName)
	}
}

func TestRetrieve_FiltersBelowThreshold(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	store.EXPECT().
		Search(gomock.Any(), "documents", gomock.Any(), 10).
		Return([]vectorstore.SearchResult{
			{ID: "chunk-high", Score: 0.9, Payload: docMeta()},
			{ID: "chunk-low", Score: 0.3, Payload: docMeta()},
		}, nil)
	// Only the hit above the threshold is ever fetched.
	chunks.EXPECT().
		GetByID(gomock.Any(), "chunk-high").
		Return(storedChunk("chunk-high", 1, "chunk text"), nil)

	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, store, chunks, RetrieverConfig{
		Collection:          "documents",
		SimilarityThreshold: 0.7,
	})

	got, err := r.Retrieve(context.Background(), "trench depth")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 || got[0].ChunkID != "chunk-high" {
		t.Errorf("got %v, want only chunk-high", got)
	}
}

func TestRetrieve_DedupesByDocumentLocation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	store.EXPECT().
		Search(gomock.Any(), "documents", gomock.Any(), 10).
		Return([]vectorstore.SearchResult{
			{ID: "chunk-a", Score: 0.9, Payload: docMeta()},
			{ID: "chunk-b", Score: 0.8, Payload: docMeta()},
		}, nil)
	chunks.EXPECT().
		GetByID(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id string) (*storage.ChunkRecord, error) {
			// Both chunks come from page 2 of the same document.
			return storedChunk(id, 2, "chunk text"), nil
		}).
		Times(2)

	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, store, chunks, RetrieverConfig{
		Collection:          "documents",
		SimilarityThreshold: 0.5,
	})

	got, err := r.Retrieve(context.Background(), "trench depth")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d results, want 1 after dedup", len(got))
	}
	if got[0].ChunkID != "chunk-a" || got[0].Score != 0.9 {
		t.Errorf("kept %s (%v), want the higher-scoring chunk-a", got[0].ChunkID, got[0].Score)
	}
}

func TestRetrieve_LexicalFindsExactIdentifiers(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	// Vector similarity finds nothing for the part number.
	store.EXPECT().
		Search(gomock.Any(), "documents", gomock.Any(), 10).
		Return(nil, nil)

	var gotTerms []string
	chunks.EXPECT().
		SearchKeyword(gomock.Any(), gomock.Any(), 20).
		DoAndReturn(func(_ context.Context, keywords []string, _ int) ([]*storage.ChunkWithDocument, error) {
			gotTerms = keywords
			return []*storage.ChunkWithDocument{{
				ChunkRecord: storage.ChunkRecord{
					ID:         "chunk-bom",
					DocumentID: "doc-2",
					Text:       "Part AB-1234 torque spec is 45 Nm.",
					Locator:    `{"sheet":"BOM","row":4}`,
				},
				DocumentName: "bom.xlsx",
				DocumentPath: "procurement/bom.xlsx",
			}}, nil
		})

	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, store, chunks, RetrieverConfig{
		Collection:          "documents",
		SimilarityThreshold: 0.7,
		LexicalSearch:       true,
	})

	got, err := r.Retrieve(context.Background(), "What is the torque for part AB-1234?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}

	found := false
	for _, term := range gotTerms {
		if term == "ab-1234" {
			found = true
		}
	}
	if !found {
		t.Errorf("lexical terms %v missing hyphenated identifier ab-1234", gotTerms)
	}

	if len(got) != 1 {
		t.Fatalf("got %d results, want 1", len(got))
	}
	if got[0].Score != 1.0 {
		t.Errorf("Score = %v, want 1.0 when every query term matches", got[0].Score)
	}
	if got[0].Locator.Sheet != "BOM" {
		t.Errorf("Locator.Sheet = %q, want BOM", got[0].Locator.Sheet)
	}
}

func TestRetrieve_LexicalFailureDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	store.EXPECT().
		Search(gomock.Any(), "documents", gomock.Any(), 10).
		Return([]vectorstore.SearchResult{
			{ID: "chunk-1", Score: 0.9, Payload: docMeta()},
		}, nil)
	chunks.EXPECT().
		GetByID(gomock.Any(), "chunk-1").
		Return(storedChunk("chunk-1", 1, "trench depth 1.2 m"), nil)
	chunks.EXPECT().
		SearchKeyword(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("sqlite busy"))

	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, store, chunks, RetrieverConfig{
		Collection:          "documents",
		SimilarityThreshold: 0.7,
		LexicalSearch:       true,
	})

	got, err := r.Retrieve(context.Background(), "trench depth")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d results, want the vector hit despite lexical failure", len(got))
	}
}

func TestRetrieve_EmbedErrorFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := vector_mocks.NewMockVectorStore(ctrl)
	chunks := storage_mocks.NewMockChunkStore(ctrl)

	r := NewRetriever(&fakeEmbedder{err: errors.New("embeddings down")}, store, chunks, RetrieverConfig{
		Collection: "documents",
	})

	if _, err := r.Retrieve(context.Background(), "trench depth"); err == nil {
		t.Error("expected error when the question cannot be embedded")
	}
}
