package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks sitedocs-ai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// GetByPath gets a document by its relative path.
	// Returns nil and ErrNotFound if not found.
	GetByPath(ctx context.Context, path string) (*DocumentRecord, error)
	// Upsert inserts a new document or updates an existing one. The
	// document ID must be set by the caller; it is derived from the path
	// and stays stable across re-ingestion.
	Upsert(ctx context.Context, doc *DocumentRecord) error
	// Count returns the number of document records.
	Count(ctx context.Context) (int, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// GetByPath gets a document by its relative path.
// Returns nil and ErrNotFound if not found.
func (r *DocumentRepo) GetByPath(ctx context.Context, path string) (*DocumentRecord, error) {
	var doc DocumentRecord
	var updatedAtStr string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, path, name, kind, status, pdf_kind, hash, chunk_count, updated_at FROM documents WHERE path = ?",
		path,
	).Scan(&doc.ID, &doc.Path, &doc.Name, &doc.Kind, &doc.Status, &doc.PDFKind, &doc.Hash, &doc.ChunkCount, &updatedAtStr)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}

	doc.UpdatedAt, err = time.Parse("2006-01-02 15:04:05", updatedAtStr)
	if err != nil {
		// SQLite may render timestamps in RFC3339 depending on how they
		// were written.
		doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse updated_at timestamp: %w", err)
		}
	}

	return &doc, nil
}

// Upsert inserts a new document or updates an existing one, keyed by path.
func (r *DocumentRepo) Upsert(ctx context.Context, doc *DocumentRecord) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID must be set before upsert")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, path, name, kind, status, pdf_kind, hash, chunk_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (path) DO UPDATE SET
		 name = excluded.name, kind = excluded.kind, status = excluded.status,
		 pdf_kind = excluded.pdf_kind, hash = excluded.hash,
		 chunk_count = excluded.chunk_count, updated_at = CURRENT_TIMESTAMP`,
		doc.ID, doc.Path, doc.Name, doc.Kind, doc.Status, doc.PDFKind, doc.Hash, doc.ChunkCount,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	return nil
}

// Count returns the number of document records.
func (r *DocumentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
