package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sitedocs-ai/internal/chunker"
	"sitedocs-ai/internal/contextutil"
	"sitedocs-ai/internal/docparse"
	"sitedocs-ai/internal/storage"
	"sitedocs-ai/internal/vectorstore"
)

// Outcome classifies what happened to a single document during ingestion.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
)

// Result summarizes an ingestion run.
type Result struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Pipeline orchestrates document ingestion into SQLite and Qdrant.
type Pipeline struct {
	root        string
	parser      *docparse.Parser
	chunker     *chunker.Chunker
	docRepo     storage.DocumentStore
	chunkRepo   storage.ChunkStore
	embedder    *BatchEmbedder
	vectorStore vectorstore.VectorStore
	collection  string
	concurrency int
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	root string,
	docRepo storage.DocumentStore,
	chunkRepo storage.ChunkStore,
	embedder *BatchEmbedder,
	vectorStore vectorstore.VectorStore,
	collection string,
	concurrency int,
) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		root:        root,
		parser:      docparse.New(),
		chunker:     chunker.New(chunker.Options{}),
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		embedder:    embedder,
		vectorStore: vectorStore,
		collection:  collection,
		concurrency: concurrency,
	}
}

// DocumentID derives a stable document identity from its relative path.
func DocumentID(relPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(relPath)).String()
}

// IngestAll scans the documents root and ingests every supported file
// with bounded concurrency. Individual failures are counted, logged and
// isolated from the rest of the run.
func (p *Pipeline) IngestAll(ctx context.Context) (*Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := ScanDocuments(ctx, p.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan documents: %w", err)
	}

	logger.InfoContext(ctx, "starting ingestion", "total_files", len(files))

	result := &Result{Total: len(files)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, file := range files {
		file := file
		g.Go(func() error {
			outcome, err := p.IngestDocument(gctx, file)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				logger.ErrorContext(gctx, "failed to ingest document", "rel_path", file.RelPath, "error", err)
			case outcome == OutcomeSkipped:
				result.Skipped++
			default:
				result.Processed++
			}
			// Per-document errors never abort the group. Only context
			// cancellation does.
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	logger.InfoContext(ctx, "ingestion completed",
		"total", result.Total, "processed", result.Processed,
		"failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// IngestDocument ingests a single file: parse, chunk, embed and index.
// An unchanged file (same content hash) is skipped entirely.
func (p *Pipeline) IngestDocument(ctx context.Context, file ScannedFile) (Outcome, error) {
	logger := contextutil.LoggerFromContext(ctx)

	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", file.AbsPath, err)
	}

	hash := sha256.Sum256(content)
	hashHex := fmt.Sprintf("%x", hash)

	existing, err := p.docRepo.GetByPath(ctx, file.RelPath)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == hashHex {
		logger.DebugContext(ctx, "skipping unchanged file", "rel_path", file.RelPath, "hash", hashHex)
		return OutcomeSkipped, nil
	}

	parsed, err := p.parser.Parse(content, file.Kind)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", file.RelPath, err)
	}

	docID := DocumentID(file.RelPath)
	record := &storage.DocumentRecord{
		ID:      docID,
		Path:    file.RelPath,
		Name:    filepath.Base(file.RelPath),
		Kind:    string(file.Kind),
		Status:  string(parsed.Status),
		PDFKind: parsed.PDFKind,
		Hash:    hashHex,
	}

	// Old chunks go first so a re-ingested document never holds stale
	// entries alongside new ones.
	if existing != nil {
		if err := p.removeChunks(ctx, docID); err != nil {
			return "", err
		}
	}

	if parsed.Status == docparse.StatusNoText {
		// Recorded but empty: the document shows up in counts and its
		// NO_TEXT status is queryable, it just contributes no chunks.
		if err := p.docRepo.Upsert(ctx, record); err != nil {
			return "", fmt.Errorf("failed to upsert document: %w", err)
		}
		logger.WarnContext(ctx, "document has no extractable text", "rel_path", file.RelPath, "pdf_kind", parsed.PDFKind)
		return OutcomeProcessed, nil
	}

	chunks := p.chunker.Chunk(docID, parsed)
	record.ChunkCount = len(chunks)

	if err := p.docRepo.Upsert(ctx, record); err != nil {
		return "", fmt.Errorf("failed to upsert document: %w", err)
	}

	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "rel_path", file.RelPath)
		return OutcomeProcessed, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}

	vectors, embedFailed, err := p.embedder.EmbedAll(ctx, texts)
	if err != nil {
		return "", fmt.Errorf("embedding aborted: %w", err)
	}
	if embedFailed > 0 {
		logger.WarnContext(ctx, "some chunks not embedded, keyword search only",
			"rel_path", file.RelPath, "missing", embedFailed)
	}

	var points []vectorstore.Point
	for i, ch := range chunks {
		locatorJSON, err := json.Marshal(ch.Locator)
		if err != nil {
			return "", fmt.Errorf("failed to encode locator: %w", err)
		}

		chunkRecord := &storage.ChunkRecord{
			ID:          ch.ID,
			DocumentID:  docID,
			ChunkIndex:  ch.Index,
			SectionPath: ch.SectionPath,
			Granularity: string(ch.Granularity),
			TokenCount:  ch.TokenCount,
			IsAtomic:    ch.IsAtomic,
			Locator:     string(locatorJSON),
			Text:        ch.Text,
		}
		if err := p.chunkRepo.Insert(ctx, chunkRecord); err != nil {
			return "", fmt.Errorf("failed to insert chunk: %w", err)
		}

		// Chunks without a vector stay in SQLite for keyword search but
		// never reach Qdrant.
		if vectors[i] == nil {
			continue
		}
		points = append(points, vectorstore.Point{
			ID:      ch.ID,
			Vector:  vectors[i],
			Payload: map[string]any{
				"document_id":   docID,
				"document_path": file.RelPath,
				"document_name": record.Name,
				"file_kind":     string(file.Kind),
				"section_path":  ch.SectionPath,
				"chunk_index":   ch.Index,
				"is_atomic":     ch.IsAtomic,
				"locator":       string(locatorJSON),
			},
		})
	}

	if len(points) > 0 {
		if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
			return "", fmt.Errorf("failed to upsert vectors: %w", err)
		}
	}

	logger.InfoContext(ctx, "ingested document", "rel_path", file.RelPath, "chunks", len(chunks))
	return OutcomeProcessed, nil
}

func (p *Pipeline) removeChunks(ctx context.Context, docID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	oldIDs, err := p.chunkRepo.ListIDsByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to list old chunk IDs: %w", err)
	}
	if len(oldIDs) == 0 {
		return nil
	}

	if err := p.vectorStore.Delete(ctx, p.collection, oldIDs); err != nil {
		// New points overwrite by ID anyway, so this only leaves orphans
		// when chunk boundaries moved.
		logger.WarnContext(ctx, "failed to delete old chunks from vector store", "error", err, "count", len(oldIDs))
	}

	if err := p.chunkRepo.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return nil
}
