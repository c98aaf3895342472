package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks sitedocs-ai/internal/vectorstore VectorStore

import "context"

// Point is one indexed chunk embedding plus its payload metadata. The
// point id is the chunk id, which makes upserts idempotent across
// re-ingestion.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchResult is a similarity hit. ID is the chunk id of the matched
// point and Score the cosine similarity in [0, 1].
type SearchResult struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// VectorStore is the index behind semantic retrieval.
type VectorStore interface {
	// Upsert inserts or replaces points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k nearest points to the query vector.
	Search(ctx context.Context, collection string, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by chunk id.
	Delete(ctx context.Context, collection string, ids []string) error
}
