package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"sitedocs-ai/internal/config"
	"sitedocs-ai/internal/http"
	"sitedocs-ai/internal/ingest"
	"sitedocs-ai/internal/llm"
	"sitedocs-ai/internal/rag"
	"sitedocs-ai/internal/storage"
	"sitedocs-ai/internal/vectorstore"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about construction-site documents using
// retrieval-augmented generation over an ingested document tree.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: SiteDocs AI API
//   description: |
//     Question answering over ingested construction-site documents (PDF
//     specifications, spreadsheets, Word documents). Answers are built
//     strictly from indexed document chunks and always cite sources.
//   version: 1.0.0
// schemes:
//   - http
// consumes:
//   - application/json
// produces:
//   - application/json

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create ingestion pipeline
	batchEmbedder := ingest.NewBatchEmbedder(embedder, cfg.EmbeddingBatchSize, cfg.EmbeddingRate)
	ingestPipeline := ingest.NewPipeline(
		cfg.DocumentsDir,
		docRepo,
		chunkRepo,
		batchEmbedder,
		vectorStore,
		cfg.QdrantCollection,
		cfg.IngestConcurrency,
	)

	// Classifier and guard rule tables, optionally overlaid from a file
	rules := rag.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = rag.LoadRules(cfg.RulesPath)
		if err != nil {
			log.Fatalf("Failed to load rules: %v", err)
		}
		slog.Info("Rule tables loaded", "path", cfg.RulesPath)
	}

	// Create query pipeline
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)
	retriever := rag.NewRetriever(embedder, vectorStore, chunkRepo, rag.RetrieverConfig{
		Collection:          cfg.QdrantCollection,
		SimilarityThreshold: cfg.SimilarityThreshold,
		VectorTopK:          cfg.VectorTopK,
		MaxResults:          cfg.MaxResults,
		LexicalSearch:       cfg.LexicalSearch,
	})
	generator := rag.NewGenerator(llmClient, cfg.LLMMaxTokens)
	queryPipeline := rag.NewPipeline(rules, retriever, generator, nil, cfg.SimilarityThreshold)
	slog.Info("Query pipeline initialized")

	// Create router with dependencies
	deps := &http.Deps{
		QueryPipeline: queryPipeline,
		Ingester:      ingestPipeline,
		VectorStore:   vectorStore,
		DocumentStore: docRepo,
		DB:            db,
		Collection:    cfg.QdrantCollection,
	}
	router := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
