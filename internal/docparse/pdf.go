package docparse

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const minTextPageChars = 200

// pdfTextToken matches either a string literal or a positioning operator
// in a page content stream. Literals carry the text; the operators mark
// line advances.
var pdfTextToken = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)|(T\*|TD|Td)`)

// parsePDF extracts per-page text with pdfcpu and runs the plain-text
// structural heuristics over each page. pdfcpu works on files, so the
// buffer goes through a temp file first.
func parsePDF(content []byte) (*Result, error) {
	tempDir, err := os.MkdirTemp("", "sitedocs-pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "doc.pdf")
	if err := os.WriteFile(tempFile, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write temp PDF file: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(tempDir, "pages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction dir: %w", err)
	}

	pageTexts := make(map[int]string)
	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err == nil {
		files, _ := os.ReadDir(outDir)
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(outDir, file.Name()))
			if err != nil {
				continue
			}
			var pageNum int
			if _, err := fmt.Sscanf(file.Name(), "page_%d", &pageNum); err != nil {
				if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err != nil {
					continue
				}
			}
			pageTexts[pageNum] = decodeContentStream(string(raw))
		}
	}

	result := &Result{Status: StatusOK}
	structure := &textStructure{}
	textPages := 0

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := cleanText(pageTexts[pageNum])
		if len(text) >= minTextPageChars {
			textPages++
		}
		if text == "" {
			continue
		}
		structure.feed(text, Locator{Page: pageNum}, result)
	}

	// Classify text density the way the ingestion reports expect:
	// mostly-text, mostly-image (scanned) or mixed drawing sheets.
	switch {
	case pageCount == 0:
		result.PDFKind = "scanned"
	case float64(textPages)/float64(pageCount) > 0.8:
		result.PDFKind = "text"
	case float64(textPages)/float64(pageCount) < 0.2:
		result.PDFKind = "scanned"
	default:
		result.PDFKind = "drawing"
	}

	if len(result.Elements) == 0 && len(result.Tables) == 0 {
		result.Status = StatusNoText
	}
	return result, nil
}

// decodeContentStream pulls the text shown by Tj/TJ operators out of a
// raw page content stream. Best effort: text encoded via CID font maps
// is not recovered, which is what flags scanned or vector-only pages.
func decodeContentStream(stream string) string {
	if stream == "" {
		return ""
	}

	var b strings.Builder
	for _, m := range pdfTextToken.FindAllStringSubmatch(stream, -1) {
		if m[2] != "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString(unescapePDFString(m[1]))
	}
	return b.String()
}

func unescapePDFString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case '(', ')', '\\':
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// cleanText trims line edges and collapses blank-line runs. Interior
// space runs are kept: they are the column separators the table
// heuristics look for.
func cleanText(text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	blanks := 0
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			blanks++
			if blanks > 1 {
				continue
			}
		} else {
			blanks = 0
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
