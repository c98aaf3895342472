package rag

import (
	"context"
	"time"

	"sitedocs-ai/internal/contextutil"
)

// pipelineState enumerates the stages of the query state machine. Every
// terminal outcome (refusal, guarded fallback, formatted answer) is
// reached by an explicit transition, never by fallthrough.
type pipelineState int

const (
	stateClassify pipelineState = iota
	stateRetrieve
	stateGuardPre
	stateGenerate
	stateGuardPost
	stateFormat
	stateFallback
	stateRefuse
	stateDone
)

// QueryResult is the full outcome of one query, including the metadata
// the API layer reports alongside the answer.
type QueryResult struct {
	Answer          Answer
	Classification  Classification
	ChunksRetrieved int
	Duration        time.Duration
}

// Pipeline runs the guarded query flow:
// CLASSIFY -> RETRIEVE -> GUARD_PRE -> GENERATE -> GUARD_POST -> FORMAT,
// with guard failures branching to FALLBACK.
type Pipeline struct {
	rules     *Rules
	retriever *Retriever
	generator *Generator
	progress  ProgressSource
	threshold float32
}

// NewPipeline creates a query pipeline. progress may be nil; DATA
// questions then degrade to the document path.
func NewPipeline(rules *Rules, retriever *Retriever, generator *Generator, progress ProgressSource, threshold float32) *Pipeline {
	return &Pipeline{
		rules:     rules,
		retriever: retriever,
		generator: generator,
		progress:  progress,
		threshold: threshold,
	}
}

// Query answers a question. Guard failures, retrieval failures and
// model errors all resolve to a well-formed fallback Answer; the error
// return is always nil today and exists for future transport layers.
func (p *Pipeline) Query(ctx context.Context, question string) (*QueryResult, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	result := &QueryResult{}
	var (
		evidence []Evidence
		raw      string
		flags    []string
		reason   string
	)

	st := stateClassify
	for st != stateDone {
		switch st {

		case stateClassify:
			result.Classification = Classify(question, p.rules)
			logger.InfoContext(ctx, "query classified",
				"type", result.Classification.Type,
				"matched", result.Classification.MatchedKeywords)
			if result.Classification.Type == TypeRefuse {
				st = stateRefuse
				break
			}
			if result.Classification.Type == TypeData && p.progress != nil {
				// Pure data questions skip document retrieval entirely.
				evidence = nil
				if ev, ok := p.progressEvidence(ctx); ok {
					evidence = append(evidence, ev)
					st = stateGenerate
					break
				}
				flags = append(flags, FlagRetrievalError)
				reason = "progress records unavailable"
				st = stateFallback
				break
			}
			st = stateRetrieve

		case stateRetrieve:
			var err error
			evidence, err = p.retriever.Retrieve(ctx, question)
			if err != nil {
				logger.ErrorContext(ctx, "retrieval failed", "error", err)
				flags = append(flags, FlagRetrievalError)
				reason = "retrieval failed"
				st = stateFallback
				break
			}
			result.ChunksRetrieved = len(evidence)
			st = stateGuardPre

		case stateGuardPre:
			guard := PreGuard(question, evidence, p.threshold, p.rules)
			if !guard.Passed {
				logger.InfoContext(ctx, "pre-guard rejected query",
					"flags", guard.Flags, "reason", guard.FallbackReason)
				flags = append(flags, guard.Flags...)
				reason = guard.FallbackReason
				st = stateFallback
				break
			}
			if result.Classification.Type == TypeHybrid && p.progress != nil {
				// Progress context joins only after document evidence passed
				// the guard; it carries no document locator of its own.
				if ev, ok := p.progressEvidence(ctx); ok {
					evidence = append(evidence, ev)
				}
			}
			st = stateGenerate

		case stateGenerate:
			var err error
			raw, err = p.generator.Generate(ctx, question, evidence, "")
			if err != nil {
				logger.ErrorContext(ctx, "generation failed", "error", err)
				flags = append(flags, FlagLLMError)
				reason = "language model unavailable"
				st = stateFallback
				break
			}
			st = stateGuardPost

		case stateGuardPost:
			guard := PostGuard(raw, p.rules)
			if !guard.Passed {
				logger.InfoContext(ctx, "post-guard rejected answer",
					"flags", guard.Flags, "reason", guard.FallbackReason)
				flags = append(flags, guard.Flags...)
				reason = guard.FallbackReason
				st = stateFallback
				break
			}
			st = stateFormat

		case stateFormat:
			result.Answer = Answer{
				Text:    raw,
				Sources: FormatSources(raw, evidence),
			}
			st = stateDone

		case stateFallback:
			logger.InfoContext(ctx, "query resolved to fallback", "flags", flags, "reason", reason)
			result.Answer = Answer{
				Text:    FallbackAnswer,
				Sources: []Source{},
				Blocked: true,
				Flags:   flags,
			}
			st = stateDone

		case stateRefuse:
			result.Answer = Answer{
				Text:    RefusalAnswer,
				Sources: []Source{},
				Blocked: true,
				Flags:   []string{FlagRefused},
			}
			st = stateDone
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// progressEvidence wraps the live progress summary as a citable
// evidence block.
func (p *Pipeline) progressEvidence(ctx context.Context) (Evidence, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	summary, err := p.progress.Summary(ctx)
	if err != nil || summary == "" {
		logger.WarnContext(ctx, "progress source unavailable", "error", err)
		return Evidence{}, false
	}
	return Evidence{
		ChunkID:      "progress",
		DocumentID:   "progress",
		DocumentName: progressSourceName,
		Text:         summary,
	}, true
}
