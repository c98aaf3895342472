package docparse

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// OOXML is zipped XML, so the stdlib covers it: word/document.xml holds
// the body as an ordered stream of paragraphs and tables.

type wordParagraph struct {
	Style struct {
		Val string `xml:"val,attr"`
	} `xml:"pPr>pStyle"`
	Texts []string `xml:"r>t"`
}

func (p *wordParagraph) text() string {
	return strings.TrimSpace(strings.Join(p.Texts, ""))
}

type wordTable struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []wordParagraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

// parseWord parses a .docx buffer into structural elements. Headings are
// detected by paragraph style first, then by the all-caps and
// numbered-section heuristics shared with plain text parsing.
func parseWord(content []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	var docXML []byte
	for _, file := range zr.File {
		if file.Name == "word/document.xml" {
			rc, err := file.Open()
			if err != nil {
				return nil, fmt.Errorf("failed to open document.xml: %w", err)
			}
			docXML, err = io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return nil, fmt.Errorf("failed to read document.xml: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return nil, fmt.Errorf("docx archive has no word/document.xml")
	}

	result := &Result{Status: StatusOK}
	var headingStack []headingInfo
	var lastTitle string

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

	dec := xml.NewDecoder(bytes.NewReader(docXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document.xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "p":
			var para wordParagraph
			if err := dec.DecodeElement(&para, &start); err != nil {
				return nil, fmt.Errorf("failed to decode paragraph: %w", err)
			}
			text := para.text()
			if text == "" {
				continue
			}

			if level, isHeading := wordHeadingLevel(&para, text); isHeading {
				for len(headingStack) > 0 && headingStack[len(headingStack)-1].level >= level {
					headingStack = headingStack[:len(headingStack)-1]
				}
				headingStack = append(headingStack, headingInfo{level: level, text: text})
				lastTitle = text
				result.Elements = append(result.Elements, Element{
					Kind:        KindHeading,
					Text:        text,
					Level:       level,
					SectionPath: sectionPath(),
					Locator:     locator(),
				})
				continue
			}

			kind := KindParagraph
			if strings.EqualFold(para.Style.Val, "ListParagraph") {
				kind = KindListItem
			} else {
				lastTitle = text
			}
			result.Elements = append(result.Elements, Element{
				Kind:        kind,
				Text:        text,
				SectionPath: sectionPath(),
				Locator:     locator(),
			})

		case "tbl":
			var tbl wordTable
			if err := dec.DecodeElement(&tbl, &start); err != nil {
				return nil, fmt.Errorf("failed to decode table: %w", err)
			}
			grid := make([][]string, 0, len(tbl.Rows))
			for _, row := range tbl.Rows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					var parts []string
					for _, p := range cell.Paragraphs {
						if t := p.text(); t != "" {
							parts = append(parts, t)
						}
					}
					cells = append(cells, strings.Join(parts, " "))
				}
				grid = append(grid, cells)
			}
			if table := ExtractTable(grid, lastTitle, locator()); table != nil {
				result.Tables = append(result.Tables, *table)
				result.Elements = append(result.Elements, Element{
					Kind:        KindTableRef,
					SectionPath: sectionPath(),
					Locator:     locator(),
					TableIndex:  len(result.Tables) - 1,
				})
			}
		}
	}

	if len(result.Elements) == 0 && len(result.Tables) == 0 {
		result.Status = StatusNoText
	}
	return result, nil
}

func wordHeadingLevel(para *wordParagraph, text string) (int, bool) {
	style := para.Style.Val
	if strings.HasPrefix(style, "Heading") {
		level := 1
		if n := strings.TrimPrefix(style, "Heading"); n != "" {
			if n[0] >= '1' && n[0] <= '9' {
				level = int(n[0] - '0')
			}
		}
		return level, true
	}
	if isHeadingLine(text) {
		return 1, true
	}
	return 0, false
}
