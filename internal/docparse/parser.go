// Package docparse converts raw document buffers into ordered structural
// elements (headings, paragraphs, list items) plus atomic tables. It
// performs no layout or image understanding; a document with no
// extractable text is flagged NO_TEXT, never rejected.
package docparse

import "fmt"

// Parser converts a document buffer of a declared kind into a Result.
type Parser struct {
	markdown *markdownParser
}

// New creates a Parser.
func New() *Parser {
	return &Parser{markdown: newMarkdownParser()}
}

// Parse parses a document buffer according to its declared kind.
func (p *Parser) Parse(content []byte, kind FileKind) (*Result, error) {
	switch kind {
	case KindMarkdown:
		return p.markdown.Parse(content)
	case KindHTML:
		return parseHTML(content, p.markdown)
	case KindPDF:
		return parsePDF(content)
	case KindSpreadsheet:
		return parseSpreadsheet(content)
	case KindWord:
		return parseWord(content)
	default:
		return nil, fmt.Errorf("unsupported file kind: %s", kind)
	}
}
