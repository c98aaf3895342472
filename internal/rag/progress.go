package rag

import "context"

// ProgressSource supplies a textual summary of live progress records
// for DATA and HYBRID questions. The query pipeline works without one;
// a nil source simply leaves those questions to the document path.
type ProgressSource interface {
	// Summary returns a formatted snapshot of the progress records,
	// suitable for inclusion as prompt context.
	Summary(ctx context.Context) (string, error)
}

// progressSourceName labels progress data in prompts and citations.
const progressSourceName = "Progress Records"
