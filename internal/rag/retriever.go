package rag

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"sitedocs-ai/internal/contextutil"
	"sitedocs-ai/internal/docparse"
	"sitedocs-ai/internal/storage"
	"sitedocs-ai/internal/vectorstore"
)

// Embedder generates embedding vectors for texts.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// RetrieverConfig bounds the candidate sets and the final evidence list.
type RetrieverConfig struct {
	Collection          string
	SimilarityThreshold float32
	VectorTopK          int
	MaxResults          int
	LexicalSearch       bool
}

// Retriever merges vector and lexical search into a ranked, deduplicated
// evidence list.
type Retriever struct {
	embedder    Embedder
	vectorStore vectorstore.VectorStore
	chunkRepo   storage.ChunkStore
	cfg         RetrieverConfig
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, vectorStore vectorstore.VectorStore, chunkRepo storage.ChunkStore, cfg RetrieverConfig) *Retriever {
	if cfg.VectorTopK <= 0 {
		cfg.VectorTopK = 10
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Retriever{
		embedder:    embedder,
		vectorStore: vectorStore,
		chunkRepo:   chunkRepo,
		cfg:         cfg,
	}
}

// Retrieve returns at most MaxResults evidence chunks for a question,
// sorted by descending score with at most one chunk per document
// location.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Evidence, error) {
	logger := contextutil.LoggerFromContext(ctx)

	byChunk := make(map[string]Evidence)

	vectorHits, err := r.vectorSearch(ctx, question)
	if err != nil {
		return nil, err
	}
	for _, ev := range vectorHits {
		byChunk[ev.ChunkID] = ev
	}

	if r.cfg.LexicalSearch {
		lexicalHits, err := r.lexicalSearch(ctx, question)
		if err != nil {
			// The lexical path is an enhancement over vector search, so a
			// failure degrades rather than aborts.
			logger.WarnContext(ctx, "lexical search failed", "error", err)
		}
		for _, ev := range lexicalHits {
			if existing, ok := byChunk[ev.ChunkID]; ok {
				if ev.Score > existing.Score {
					byChunk[ev.ChunkID] = ev
				}
				continue
			}
			byChunk[ev.ChunkID] = ev
		}
	}

	merged := make([]Evidence, 0, len(byChunk))
	for _, ev := range byChunk {
		merged = append(merged, ev)
	}

	// Descending by score; chunk id breaks ties so ranking is stable
	// across runs.
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ChunkID < merged[j].ChunkID
	})

	// One chunk per (document, location): the highest-scoring chunk of a
	// page or sheet represents it.
	seen := make(map[string]bool)
	deduped := make([]Evidence, 0, len(merged))
	for _, ev := range merged {
		key := ev.DocumentID + "|" + ev.Locator.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, ev)
	}

	if len(deduped) > r.cfg.MaxResults {
		deduped = deduped[:r.cfg.MaxResults]
	}

	logger.InfoContext(ctx, "retrieval completed",
		"vector_hits", len(vectorHits), "merged", len(merged), "returned", len(deduped))
	return deduped, nil
}

func (r *Retriever) vectorSearch(ctx context.Context, question string) ([]Evidence, error) {
	embeddings, err := r.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for question")
	}

	results, err := r.vectorStore.Search(ctx, r.cfg.Collection, embeddings[0], r.cfg.VectorTopK)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	logger := contextutil.LoggerFromContext(ctx)
	evidence := make([]Evidence, 0, len(results))
	for _, result := range results {
		if result.Score < r.cfg.SimilarityThreshold {
			continue
		}

		chunk, err := r.chunkRepo.GetByID(ctx, result.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				logger.WarnContext(ctx, "vector hit has no stored chunk", "chunk_id", result.ID)
				continue
			}
			return nil, fmt.Errorf("failed to fetch chunk text: %w", err)
		}

		docID, _ := result.Payload["document_id"].(string)
		docName, _ := result.Payload["document_name"].(string)
		docPath, _ := result.Payload["document_path"].(string)

		evidence = append(evidence, Evidence{
			ChunkID:      chunk.ID,
			DocumentID:   docID,
			DocumentName: docName,
			DocumentPath: docPath,
			Text:         chunk.Text,
			SectionPath:  chunk.SectionPath,
			Locator:      decodeLocator(chunk.Locator),
			Score:        result.Score,
			IsAtomic:     chunk.IsAtomic,
		})
	}
	return evidence, nil
}

// lexicalSearch finds chunks by exact term containment. It exists for
// queries vector similarity under-serves, like part numbers. The score
// is the fraction of distinct query terms present in the chunk.
func (r *Retriever) lexicalSearch(ctx context.Context, question string) ([]Evidence, error) {
	terms := lexicalTerms(question)
	if len(terms) == 0 {
		return nil, nil
	}

	hits, err := r.chunkRepo.SearchKeyword(ctx, terms, r.cfg.VectorTopK*2)
	if err != nil {
		return nil, err
	}

	evidence := make([]Evidence, 0, len(hits))
	for _, hit := range hits {
		lowerText := strings.ToLower(hit.Text)
		matched := 0
		for _, term := range terms {
			if strings.Contains(lowerText, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		evidence = append(evidence, Evidence{
			ChunkID:      hit.ID,
			DocumentID:   hit.DocumentID,
			DocumentName: hit.DocumentName,
			DocumentPath: hit.DocumentPath,
			Text:         hit.Text,
			SectionPath:  hit.SectionPath,
			Locator:      decodeLocator(hit.Locator),
			Score:        float32(matched) / float32(len(terms)),
			IsAtomic:     hit.IsAtomic,
		})
	}
	return evidence, nil
}

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "what": {}, "which": {}, "with": {},
}

// lexicalTerms tokenizes a question into lowercase search terms,
// dropping stopwords and short tokens. Hyphenated identifiers like
// part numbers survive intact.
func lexicalTerms(question string) []string {
	var builder strings.Builder
	builder.Grow(len(question))
	for _, r := range strings.ToLower(question) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	var terms []string
	for _, token := range strings.Fields(builder.String()) {
		token = strings.Trim(token, "-")
		if len(token) < 3 {
			continue
		}
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}

func decodeLocator(encoded string) docparse.Locator {
	var loc docparse.Locator
	if encoded == "" {
		return loc
	}
	// A malformed locator degrades to an unresolvable one, which the
	// pre-guard then rejects.
	_ = json.Unmarshal([]byte(encoded), &loc)
	return loc
}
