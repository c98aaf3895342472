package docparse

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownParser parses markdown content into structural elements using
// the goldmark AST. Tables are stripped from the element stream and
// re-emitted separately as atomic units behind table_ref placeholders.
type markdownParser struct {
	parser goldmark.Markdown
}

func newMarkdownParser() *markdownParser {
	return &markdownParser{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

type headingInfo struct {
	level int
	text  string
}

func (p *markdownParser) Parse(content []byte) (*Result, error) {
	result := &Result{Status: StatusOK}
	if len(content) == 0 {
		result.Status = StatusNoText
		return result, nil
	}

	reader := text.NewReader(content)
	doc := p.parser.Parser().Parse(reader)

	var headingStack []headingInfo
	var lastTitleCandidate string

	sectionPath := func() []string {
		path := make([]string, len(headingStack))
		for i, h := range headingStack {
			path[i] = h.text
		}
		return path
	}
	locator := func() Locator {
		if len(headingStack) == 0 {
			return Locator{}
		}
		return Locator{Section: headingStack[len(headingStack)-1].text}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			level := node.Level
			for len(headingStack) > 0 && headingStack[len(headingStack)-1].level >= level {
				headingStack = headingStack[:len(headingStack)-1]
			}
			headingText := extractNodeText(node, content)
			headingStack = append(headingStack, headingInfo{level: level, text: headingText})
			lastTitleCandidate = headingText

			result.Elements = append(result.Elements, Element{
				Kind:        KindHeading,
				Text:        headingText,
				Level:       level,
				SectionPath: sectionPath(),
				Locator:     locator(),
			})
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			itemText := extractNodeText(node, content)
			if itemText != "" {
				result.Elements = append(result.Elements, Element{
					Kind:        KindListItem,
					Text:        itemText,
					SectionPath: sectionPath(),
					Locator:     locator(),
				})
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			paraText := extractNodeText(node, content)
			if paraText != "" {
				result.Elements = append(result.Elements, Element{
					Kind:        KindParagraph,
					Text:        paraText,
					SectionPath: sectionPath(),
					Locator:     locator(),
				})
				lastTitleCandidate = paraText
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			codeText := extractCodeBlockText(n, content)
			if codeText != "" {
				result.Elements = append(result.Elements, Element{
					Kind:        KindParagraph,
					Text:        codeText,
					SectionPath: sectionPath(),
					Locator:     locator(),
				})
			}
			return ast.WalkSkipChildren, nil
		}

		// The table extension registers its own node kinds; match them by
		// kind name so the import surface stays on the core ast package.
		if n.Kind().String() == "Table" {
			grid := collectTableGrid(n, content)
			if table := ExtractTable(grid, lastTitleCandidate, locator()); table != nil {
				result.Tables = append(result.Tables, *table)
				result.Elements = append(result.Elements, Element{
					Kind:        KindTableRef,
					SectionPath: sectionPath(),
					Locator:     locator(),
					TableIndex:  len(result.Tables) - 1,
				})
			}
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})

	if len(result.Elements) == 0 && len(result.Tables) == 0 {
		result.Status = StatusNoText
	}
	return result, nil
}

// collectTableGrid flattens a goldmark table node into a cell grid.
// The header row (TableHeader) comes first, then each TableRow.
func collectTableGrid(tableNode ast.Node, content []byte) [][]string {
	var grid [][]string
	for row := tableNode.FirstChild(); row != nil; row = row.NextSibling() {
		kind := row.Kind().String()
		if kind != "TableHeader" && kind != "TableRow" {
			continue
		}
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, extractNodeText(cell, content))
		}
		grid = append(grid, cells)
	}
	return grid
}

// extractNodeText extracts the plain text content of a node and its children.
func extractNodeText(n ast.Node, content []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteString(" ")
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}

func extractCodeBlockText(n ast.Node, content []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(content))
	}
	return strings.TrimSpace(b.String())
}
