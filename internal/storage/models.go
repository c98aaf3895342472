package storage

import "time"

// DocumentRecord represents an ingested source document in the database.
type DocumentRecord struct {
	ID   string // UUID derived from path
	Path string // Relative path from the documents root
	Name string // Base file name, used in citations
	Kind string // File kind: pdf, spreadsheet, word, markdown, html
	// Status is OK or NO_TEXT. NO_TEXT documents are recorded but carry
	// no chunks.
	Status     string
	PDFKind    string // text, scanned or drawing; empty for non-PDF
	Hash       string // SHA256 hex string of file content
	ChunkCount int
	UpdatedAt  time.Time
}

// ChunkRecord represents a chunk of document text, indexed for search.
type ChunkRecord struct {
	ID          string // UUID (same as Qdrant point ID)
	DocumentID  string // Foreign key to documents.id
	ChunkIndex  int    // Index within document (starts at 0)
	SectionPath string // Format: "Heading1 > Heading2"
	Granularity string // fine or section
	TokenCount  int
	IsAtomic    bool
	Locator     string // JSON-encoded source locator
	Text        string
}

// ChunkWithDocument joins a chunk with the identifying fields of its
// document, for keyword search results.
type ChunkWithDocument struct {
	ChunkRecord
	DocumentPath string
	DocumentName string
}
