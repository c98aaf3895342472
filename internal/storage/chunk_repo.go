package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chunk_store.go -package=mocks sitedocs-ai/internal/storage ChunkStore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ChunkStore defines the interface for chunk storage operations.
type ChunkStore interface {
	// Insert inserts a single chunk into the database.
	// The chunk.ID must be set (UUID) before calling this method.
	Insert(ctx context.Context, chunk *ChunkRecord) error
	// DeleteByDocument deletes all chunks for a given document ID.
	DeleteByDocument(ctx context.Context, documentID string) error
	// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
	ListIDsByDocument(ctx context.Context, documentID string) ([]string, error)
	// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
	GetByID(ctx context.Context, id string) (*ChunkRecord, error)
	// SearchKeyword returns chunks whose text contains any of the given
	// keywords, joined with their document path and name.
	SearchKeyword(ctx context.Context, keywords []string, limit int) ([]*ChunkWithDocument, error)
}

// ChunkRepo provides methods for chunk operations.
// It implements the ChunkStore interface.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// Insert inserts a single chunk into the database.
// The chunk.ID must be set (UUID) before calling this method.
func (r *ChunkRepo) Insert(ctx context.Context, chunk *ChunkRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chunks (id, document_id, chunk_index, section_path, granularity, token_count, is_atomic, locator, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		chunk.ID, chunk.DocumentID, chunk.ChunkIndex, chunk.SectionPath, chunk.Granularity,
		chunk.TokenCount, chunk.IsAtomic, chunk.Locator, chunk.Text,
	)
	if err != nil {
		return fmt.Errorf("failed to insert chunk: %w", err)
	}
	return nil
}

// DeleteByDocument deletes all chunks for a given document ID.
// Used when re-ingesting a document to remove old chunks before inserting new ones.
func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks by document: %w", err)
	}
	return nil
}

// ListIDsByDocument returns all chunk IDs for a document, ordered by chunk_index.
// Returns an empty slice if no chunks exist (not an error).
// Used to get Qdrant point IDs for deletion before re-ingesting.
func (r *ChunkRepo) ListIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM chunks WHERE document_id = ? ORDER BY chunk_index",
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk IDs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan chunk ID: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ids, nil
}

// GetByID gets a chunk by its ID. Returns ErrNotFound if not found.
func (r *ChunkRepo) GetByID(ctx context.Context, id string) (*ChunkRecord, error) {
	var chunk ChunkRecord
	err := r.db.QueryRowContext(ctx,
		`SELECT id, document_id, chunk_index, section_path, granularity, token_count, is_atomic, locator, text
		 FROM chunks WHERE id = ?`,
		id,
	).Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.SectionPath, &chunk.Granularity,
		&chunk.TokenCount, &chunk.IsAtomic, &chunk.Locator, &chunk.Text)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}

	return &chunk, nil
}

// SearchKeyword returns chunks whose text contains any of the given
// keywords (case-insensitive), joined with document identity. Relevance
// ranking happens in the retriever; this only narrows the candidate set.
func (r *ChunkRepo) SearchKeyword(ctx context.Context, keywords []string, limit int) ([]*ChunkWithDocument, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	conditions := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)+1)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		conditions = append(conditions, "c.text LIKE ? COLLATE NOCASE")
		args = append(args, "%"+kw+"%")
	}
	if len(conditions) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	query := fmt.Sprintf(
		`SELECT c.id, c.document_id, c.chunk_index, c.section_path, c.granularity, c.token_count, c.is_atomic, c.locator, c.text,
		        d.path, d.name
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE %s
		 LIMIT ?`,
		strings.Join(conditions, " OR "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var results []*ChunkWithDocument
	for rows.Next() {
		var c ChunkWithDocument
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.SectionPath, &c.Granularity,
			&c.TokenCount, &c.IsAtomic, &c.Locator, &c.Text, &c.DocumentPath, &c.DocumentName); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		results = append(results, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return results, nil
}
