// Package rag implements the guarded query pipeline: classify,
// retrieve, guard, generate, guard again, format sources. Answers are
// built strictly from ingested document chunks; anything unsupported by
// evidence resolves to a fixed fallback message.
package rag

import "sitedocs-ai/internal/docparse"

// QueryType is the classifier's verdict on what a question asks for.
type QueryType string

const (
	// TypeDoc asks for facts recorded in ingested documents.
	TypeDoc QueryType = "DOC"
	// TypeData asks for live progress or counts from the system of record.
	TypeData QueryType = "DATA"
	// TypeHybrid needs both document facts and live data.
	TypeHybrid QueryType = "HYBRID"
	// TypeRefuse implies an approval, compliance or design-preference
	// judgment. Refused before any retrieval cost is incurred.
	TypeRefuse QueryType = "REFUSE"
)

// Classification is the ephemeral result of classifying one question.
type Classification struct {
	Type            QueryType `json:"type"`
	MatchedKeywords []string  `json:"matchedKeywords"`
}

// Evidence is one retrieved chunk with everything needed for prompting
// and citation.
type Evidence struct {
	ChunkID      string
	DocumentID   string
	DocumentName string
	DocumentPath string
	Text         string
	SectionPath  string
	Locator      docparse.Locator
	Score        float32
	IsAtomic     bool
}

// Source is a citation attached to an answer.
type Source struct {
	Document string `json:"document"`
	Locator  string `json:"locator,omitempty"`
	Section  string `json:"section,omitempty"`
}

// Answer is the terminal artifact of one query.
type Answer struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
	Blocked bool     `json:"blocked"`
	Flags   []string `json:"flags,omitempty"`
}

// GuardResult reports a guard stage's verdict. Produced twice per
// query, never persisted beyond the request.
type GuardResult struct {
	Passed         bool
	Flags          []string
	FallbackReason string
}
