package docparse

import (
	"regexp"
	"strings"
)

var (
	numberedHeadingPattern = regexp.MustCompile(`^\d+(\.\d+)*\s+[A-Z]`)
	multiSpaceSplit        = regexp.MustCompile(`\s{2,}`)
)

// textStructure accumulates structural elements from plain text fed one
// block (typically one page) at a time. Section context carries across
// blocks so a heading on page 2 still scopes paragraphs on page 3.
type textStructure struct {
	currentSection string
	lastTitle      string
}

// feed parses one block of plain text into headings, paragraphs and
// tables, appending to result. loc identifies where the block came from.
func (s *textStructure) feed(block string, loc Locator, result *Result) {
	lines := strings.Split(block, "\n")

	var para []string
	flushPara := func() {
		if len(para) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(para, " "))
		para = para[:0]
		if text == "" {
			return
		}
		result.Elements = append(result.Elements, Element{
			Kind:        KindParagraph,
			Text:        text,
			SectionPath: s.sectionPath(),
			Locator:     s.withSection(loc),
		})
		s.lastTitle = text
	}

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])

		if line == "" {
			flushPara()
			continue
		}

		// A run of column-separated lines is a table candidate.
		if isTabularLine(line) {
			end := i
			for end < len(lines) && isTabularLine(strings.TrimSpace(lines[end])) {
				end++
			}
			if end-i >= 2 {
				flushPara()
				grid := make([][]string, 0, end-i)
				for _, raw := range lines[i:end] {
					grid = append(grid, splitColumns(strings.TrimSpace(raw)))
				}
				if table := ExtractTable(grid, s.lastTitle, s.withSection(loc)); table != nil {
					result.Tables = append(result.Tables, *table)
					result.Elements = append(result.Elements, Element{
						Kind:        KindTableRef,
						SectionPath: s.sectionPath(),
						Locator:     s.withSection(loc),
						TableIndex:  len(result.Tables) - 1,
					})
				}
				i = end - 1
				continue
			}
		}

		if isHeadingLine(line) {
			flushPara()
			s.currentSection = line
			s.lastTitle = line
			result.Elements = append(result.Elements, Element{
				Kind:        KindHeading,
				Text:        line,
				Level:       1,
				SectionPath: s.sectionPath(),
				Locator:     s.withSection(loc),
			})
			continue
		}

		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") {
			flushPara()
			result.Elements = append(result.Elements, Element{
				Kind:        KindListItem,
				Text:        strings.TrimSpace(line[1:]),
				SectionPath: s.sectionPath(),
				Locator:     s.withSection(loc),
			})
			continue
		}

		para = append(para, line)
	}
	flushPara()
}

func (s *textStructure) sectionPath() []string {
	if s.currentSection == "" {
		return nil
	}
	return []string{s.currentSection}
}

func (s *textStructure) withSection(loc Locator) Locator {
	if loc.Section == "" {
		loc.Section = s.currentSection
	}
	return loc
}

// isHeadingLine applies the heading heuristics for unstructured text:
// short all-caps lines and numbered section titles.
func isHeadingLine(line string) bool {
	if len(line) < 4 || len(line) > 100 {
		return false
	}
	if numberedHeadingPattern.MatchString(line) {
		return true
	}
	upper := strings.ToUpper(line)
	if line != upper {
		return false
	}
	// Require at least one letter so "2024-01" is not a heading.
	return strings.IndexFunc(line, func(r rune) bool {
		return r >= 'A' && r <= 'Z'
	}) >= 0
}

func isTabularLine(line string) bool {
	if strings.Count(line, "|") >= 2 {
		return true
	}
	return len(multiSpaceSplit.Split(line, -1)) >= 3
}

func splitColumns(line string) []string {
	if strings.Count(line, "|") >= 2 {
		parts := strings.Split(strings.Trim(line, "|"), "|")
		cells := make([]string, 0, len(parts))
		for _, p := range parts {
			cells = append(cells, strings.TrimSpace(p))
		}
		return cells
	}
	return multiSpaceSplit.Split(line, -1)
}
