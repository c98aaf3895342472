package http

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sitedocs-ai/internal/handlers"
	"sitedocs-ai/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	QueryPipeline handlers.QueryPipeline
	Ingester      handlers.Ingester
	VectorStore   handlers.IndexChecker
	DocumentStore storage.DocumentStore
	DB            *sql.DB
	Collection    string
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.QueryPipeline)
	ingestHandler := handlers.NewIngestHandler(deps.Ingester)
	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.DocumentStore, deps.DB, deps.Collection)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodPost, "/ingest", ingestHandler)
		r.Method(http.MethodGet, "/health", healthHandler)
	})

	return r
}
