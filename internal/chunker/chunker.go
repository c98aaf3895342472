// Package chunker groups structural elements into bounded-size chunks
// that respect section boundaries and never split a table. When a
// document has no detectable structure it falls back to fixed-size
// word windows with overlap.
package chunker

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sitedocs-ai/internal/docparse"
)

// Granularity selects the token budget chunks are built against.
type Granularity string

const (
	// GranularityFine targets 200-300 token chunks.
	GranularityFine Granularity = "fine"
	// GranularitySection targets 500-700 token chunks.
	GranularitySection Granularity = "section"
)

// Chunk is a bounded unit of document text stored and retrieved as a whole.
// Identity is derived from document and position, so re-ingesting an
// unchanged document yields identical chunk ids.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int
	Text        string
	SectionPath string
	Granularity Granularity
	TokenCount  int
	// IsAtomic chunks (tables) bypass size budgets and overlap logic.
	IsAtomic bool
	Locator  docparse.Locator
}

type budget struct {
	min, max int
}

var budgets = map[Granularity]budget{
	GranularityFine:    {min: 80, max: 300},
	GranularitySection: {min: 200, max: 700},
}

const (
	windowTokens  = 250
	windowOverlap = 50
)

// Options configures a Chunker.
type Options struct {
	Granularity Granularity
}

// Chunker builds chunks from parsed documents.
type Chunker struct {
	granularity Granularity
	budget      budget
}

// New creates a Chunker. An unset granularity defaults to fine.
func New(opts Options) *Chunker {
	g := opts.Granularity
	if g == "" {
		g = GranularityFine
	}
	return &Chunker{granularity: g, budget: budgets[g]}
}

// Chunk converts a parse result into chunks for one document. The
// section-aware strategy is used whenever the parser found structure;
// otherwise the text is re-joined and windowed.
func (c *Chunker) Chunk(documentID string, result *docparse.Result) []Chunk {
	if result == nil || result.Status == docparse.StatusNoText {
		return nil
	}
	if hasStructure(result) {
		return c.chunkStructured(documentID, result)
	}
	return c.chunkWindowed(documentID, result)
}

// hasStructure reports whether section-aware chunking applies: any
// heading, table or self-contained row counts as structure.
func hasStructure(result *docparse.Result) bool {
	if len(result.Tables) > 0 {
		return true
	}
	for _, el := range result.Elements {
		if el.Kind == docparse.KindHeading || el.SelfContained {
			return true
		}
	}
	return false
}

func (c *Chunker) chunkStructured(documentID string, result *docparse.Result) []Chunk {
	var chunks []Chunk

	// Accumulation buffer. Section path and locator are captured when the
	// buffer starts so merged-forward content keeps its origin.
	var (
		parts      []string
		partTokens int
		bufSection string
		bufLocator docparse.Locator
		bufStarted bool
	)

	emit := func(text string, section string, loc docparse.Locator, atomic bool, granularity Granularity) {
		index := len(chunks)
		chunks = append(chunks, Chunk{
			ID:          ChunkID(documentID, index, loc),
			DocumentID:  documentID,
			Index:       index,
			Text:        text,
			SectionPath: section,
			Granularity: granularity,
			TokenCount:  CountTokens(text),
			IsAtomic:    atomic,
			Locator:     loc,
		})
	}

	reset := func() {
		parts = parts[:0]
		partTokens = 0
		bufStarted = false
	}

	// flush emits the buffer. When force is false and the buffer is below
	// the minimum floor it is kept and merged forward instead.
	flush := func(force bool) {
		if len(parts) == 0 {
			return
		}
		if !force && partTokens < c.budget.min {
			return
		}
		emit(strings.Join(parts, "\n"), bufSection, bufLocator, false, c.granularity)
		reset()
	}

	addText := func(text string, el docparse.Element) {
		tokens := CountTokens(text)
		if bufStarted && partTokens+tokens > c.budget.max {
			flush(true)
		}
		if !bufStarted {
			bufSection = sectionPathString(el.SectionPath)
			bufLocator = el.Locator
			bufStarted = true
		}
		parts = append(parts, text)
		partTokens += tokens
	}

	// add buffers an element. An element that alone overruns the max
	// budget is split at sentence boundaries first; every piece then
	// flows through the buffer so a small trailing piece still merges
	// with what follows.
	add := func(el docparse.Element) {
		if CountTokens(el.Text) > c.budget.max {
			for _, piece := range splitText(el.Text, c.budget.max) {
				addText(piece, el)
			}
			return
		}
		addText(el.Text, el)
	}

	for _, el := range result.Elements {
		switch {
		case el.Kind == docparse.KindHeading:
			// Section boundary: flush unless the buffer is under the floor,
			// in which case it merges into the new section's first chunk.
			flush(false)

		case el.Kind == docparse.KindTableRef:
			// Tables are atomic: nothing merges into them, so the pending
			// buffer is emitted even when small.
			flush(true)
			table := &result.Tables[el.TableIndex]
			emit(table.Text(), sectionPathString(el.SectionPath), el.Locator, true, GranularitySection)

		case el.SelfContained:
			flush(true)
			emit(el.Text, sectionPathString(el.SectionPath), el.Locator, false, GranularityFine)

		default:
			add(el)
		}
	}
	flush(true) // document end: emit whatever remains

	return chunks
}

// chunkWindowed slides a fixed-size word window with word-aligned
// overlap over the document text. Each window carries the locator of
// the element contributing its first word, so citations for multi-page
// documents point at the right page.
func (c *Chunker) chunkWindowed(documentID string, result *docparse.Result) []Chunk {
	var words []string
	var wordLoc []docparse.Locator
	var carry docparse.Locator
	for _, el := range result.Elements {
		if el.Text == "" {
			continue
		}
		if el.Locator.Resolvable() {
			carry = el.Locator
		}
		for _, w := range strings.Fields(el.Text) {
			words = append(words, w)
			wordLoc = append(wordLoc, carry)
		}
	}
	if len(words) == 0 {
		return nil
	}

	var chunks []Chunk
	step := windowTokens - windowOverlap
	for start := 0; start < len(words); start += step {
		end := start + windowTokens
		if end > len(words) {
			end = len(words)
		}
		loc := wordLoc[start]
		text := strings.Join(words[start:end], " ")
		index := len(chunks)
		chunks = append(chunks, Chunk{
			ID:          ChunkID(documentID, index, loc),
			DocumentID:  documentID,
			Index:       index,
			Text:        text,
			Granularity: GranularityFine,
			TokenCount:  end - start,
			Locator:     loc,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// splitText breaks text exceeding the max budget into pieces of at
// most max tokens, preferring sentence boundaries. A single sentence
// longer than the budget is hard-split on word boundaries.
func splitText(text string, max int) []string {
	var pieces []string
	var buf []string
	bufTokens := 0

	emit := func() {
		if len(buf) > 0 {
			pieces = append(pieces, strings.Join(buf, " "))
			buf = buf[:0]
			bufTokens = 0
		}
	}

	for _, sentence := range splitSentences(text) {
		tokens := CountTokens(sentence)
		if tokens > max {
			emit()
			words := strings.Fields(sentence)
			for start := 0; start < len(words); start += max {
				end := start + max
				if end > len(words) {
					end = len(words)
				}
				pieces = append(pieces, strings.Join(words[start:end], " "))
			}
			continue
		}
		if bufTokens+tokens > max {
			emit()
		}
		buf = append(buf, sentence)
		bufTokens += tokens
	}
	emit()
	return pieces
}

func splitSentences(text string) []string {
	var sentences []string
	for _, part := range strings.SplitAfter(text, ". ") {
		if part = strings.TrimSpace(part); part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// CountTokens estimates token count by word count. The embedding and
// generation models tokenize slightly differently; whole words are the
// stable middle ground both budgets are tuned against.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// ChunkID derives a deterministic chunk identity from document,
// position and locator, keeping re-ingestion idempotent.
func ChunkID(documentID string, index int, loc docparse.Locator) string {
	name := documentID + "|" + strconv.Itoa(index) + "|" + loc.Key()
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func sectionPathString(path []string) string {
	return strings.Join(path, " > ")
}
