package docparse

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FileKind identifies the declared format of a document buffer.
type FileKind string

const (
	KindPDF         FileKind = "pdf"
	KindSpreadsheet FileKind = "spreadsheet"
	KindWord        FileKind = "word"
	KindMarkdown    FileKind = "markdown"
	KindHTML        FileKind = "html"
	KindUnknown     FileKind = "unknown"
)

// KindForPath maps a file extension to a FileKind.
func KindForPath(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".xlsx", ".xls":
		return KindSpreadsheet
	case ".docx":
		return KindWord
	case ".md", ".markdown":
		return KindMarkdown
	case ".html", ".htm":
		return KindHTML
	default:
		return KindUnknown
	}
}

// Status reports the outcome of parsing a document buffer.
type Status string

const (
	// StatusOK means structural elements were extracted.
	StatusOK Status = "OK"
	// StatusNoText means the document carried no extractable text
	// (e.g. a page-image-only PDF). The document is flagged, not rejected.
	StatusNoText Status = "NO_TEXT"
)

// ElementKind is the structural type of a parsed element.
type ElementKind string

const (
	KindHeading   ElementKind = "heading"
	KindParagraph ElementKind = "paragraph"
	KindListItem  ElementKind = "list_item"
	// KindTableRef is a placeholder in the element stream for a table that
	// was stripped out and parsed separately. The chunker resolves it back
	// into a single atomic chunk.
	KindTableRef ElementKind = "table_ref"
)

// Locator identifies exactly where an element's text originated:
// a page, a sheet (optionally with a row), or a named section.
type Locator struct {
	Page    int    `json:"page,omitempty"`
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row,omitempty"`
	Section string `json:"section,omitempty"`
}

// Resolvable reports whether the locator points anywhere at all.
func (l Locator) Resolvable() bool {
	return l.Page > 0 || l.Sheet != "" || l.Section != ""
}

// Key returns a stable string used for retrieval deduplication. Chunks
// from the same page (or sheet) of a document share a key.
func (l Locator) Key() string {
	if l.Sheet != "" {
		return "sheet:" + l.Sheet
	}
	if l.Page > 0 {
		return fmt.Sprintf("page:%d", l.Page)
	}
	if l.Section != "" {
		return "section:" + l.Section
	}
	return ""
}

// String renders the locator for citations, e.g. "Page 3" or "Sheet: BOM, Row 2".
func (l Locator) String() string {
	switch {
	case l.Sheet != "" && l.Row > 0:
		return fmt.Sprintf("Sheet: %s, Row %d", l.Sheet, l.Row)
	case l.Sheet != "":
		return "Sheet: " + l.Sheet
	case l.Page > 0:
		return fmt.Sprintf("Page %d", l.Page)
	case l.Section != "":
		return "Section: " + l.Section
	default:
		return ""
	}
}

// Element is one ordered structural unit of a parsed document.
type Element struct {
	Kind ElementKind
	Text string
	// Level is the heading level (1-based) and is only set for headings.
	Level int
	// SectionPath is the full heading lineage active at this element.
	SectionPath []string
	Locator     Locator
	// TableIndex points into Result.Tables when Kind == KindTableRef.
	TableIndex int
	// SelfContained marks units that must become exactly one chunk
	// (spreadsheet rows), bypassing size accumulation.
	SelfContained bool
}

// Table is a complete table extracted as an atomic, non-splittable unit.
// Extraction is never partial: a table that cannot be fully parsed into
// rows is dropped entirely rather than emitted truncated.
type Table struct {
	Headers     []string
	Rows        [][]string
	RowCount    int
	ColumnCount int
	// Title is a best-effort caption taken from the immediately preceding
	// heading or paragraph.
	Title      string
	EntityTags []string
	Units      []string
	Locator    Locator
}

// Text renders the table as structured key-value rows for embedding.
func (t *Table) Text() string {
	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteString("\n")
	}
	for _, row := range t.Rows {
		parts := make([]string, 0, len(row))
		for i, cell := range row {
			if cell == "" {
				continue
			}
			header := fmt.Sprintf("Column_%d", i+1)
			if i < len(t.Headers) && t.Headers[i] != "" {
				header = t.Headers[i]
			}
			parts = append(parts, header+": "+cell)
		}
		if len(parts) > 0 {
			b.WriteString(strings.Join(parts, ", "))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Result is the output of parsing one document buffer.
type Result struct {
	Status   Status
	Elements []Element
	Tables   []Table
	// PDFKind classifies PDF text density: "text", "drawing" or "scanned".
	// Empty for non-PDF documents.
	PDFKind string
}
