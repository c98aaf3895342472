package rag

import (
	"context"
	"fmt"
	"strings"

	"sitedocs-ai/internal/llm"
)

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_chat_client.go -package=mocks sitedocs-ai/internal/rag ChatClient

// ChatClient sends chat completion requests.
type ChatClient interface {
	ChatWithMessages(ctx context.Context, messages []llm.Message, params llm.ChatParams) (string, error)
}

// systemPrompt is fixed across all generation calls. The model may only
// restate evidence, must cite it, and must fall back explicitly when
// the evidence is insufficient.
const systemPrompt = `You are a technical assistant for construction project documentation.

CRITICAL RULES:
1. Use ONLY information from the provided document excerpts.
2. If the information is not in the excerpts, respond exactly: "` + FallbackAnswer + `"
3. Do NOT use external knowledge and do NOT make assumptions or guesses.
4. Cite every fact with the source marker of the excerpt it came from, e.g. [Source: document name].
5. Do NOT judge whether anything is approved, compliant or acceptable.
6. Be precise and technical.`

// Generator produces answers from a question plus evidence.
type Generator struct {
	client    ChatClient
	maxTokens int
}

// NewGenerator creates a Generator with a bounded output length.
func NewGenerator(client ChatClient, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Generator{client: client, maxTokens: maxTokens}
}

// Generate calls the language model at temperature zero with the
// question and tagged evidence. The error is only a transport/service
// failure; the pipeline maps it to a guarded fallback, not a crash.
func (g *Generator) Generate(ctx context.Context, question string, evidence []Evidence, extraContext string) (string, error) {
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: buildUserPrompt(question, evidence, extraContext)},
	}

	answer, err := g.client.ChatWithMessages(ctx, messages, llm.ChatParams{
		MaxTokens:   g.maxTokens,
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	return answer, nil
}

// buildUserPrompt formats the question plus each evidence chunk tagged
// with document name, locator and section.
func buildUserPrompt(question string, evidence []Evidence, extraContext string) string {
	var b strings.Builder
	b.WriteString("QUESTION:\n")
	b.WriteString(question)
	b.WriteString("\n\nRELEVANT DOCUMENT EXCERPTS:\n\n")

	for _, ev := range evidence {
		b.WriteString(FormatSourceTag(ev))
		b.WriteString("\n")
		b.WriteString(ev.Text)
		b.WriteString("\n\n---\n\n")
	}

	if extraContext != "" {
		b.WriteString(extraContext)
		b.WriteString("\n\n---\n\n")
	}

	b.WriteString("Answer the question using ONLY the information above. Cite each fact with its [Source: ...] marker.")
	return b.String()
}

// FormatSourceTag renders the citation tag prepended to an evidence
// chunk, e.g. "[Source: spec.pdf | Page 3 | Trenching > Depth]".
func FormatSourceTag(ev Evidence) string {
	parts := []string{ev.DocumentName}
	if loc := ev.Locator.String(); loc != "" {
		parts = append(parts, loc)
	}
	if ev.SectionPath != "" {
		parts = append(parts, ev.SectionPath)
	}
	return "[Source: " + strings.Join(parts, " | ") + "]"
}
