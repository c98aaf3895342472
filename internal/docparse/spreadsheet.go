package docparse

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// parseSpreadsheet reads a workbook and emits each data row as a
// self-contained structural unit of "Header: value" text. Each sheet is
// a section; the header row is row 1, so data rows start at 2.
func parseSpreadsheet(content []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	result := &Result{Status: StatusOK}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}

		headers := make([]string, len(rows[0]))
		for i, h := range rows[0] {
			h = strings.TrimSpace(h)
			if h == "" {
				h = fmt.Sprintf("Column_%d", i+1)
			}
			headers[i] = h
		}

		sectionPath := []string{sheet}
		result.Elements = append(result.Elements, Element{
			Kind:        KindHeading,
			Text:        sheet,
			Level:       1,
			SectionPath: sectionPath,
			Locator:     Locator{Sheet: sheet},
		})

		// The sheet is also recorded as a table so its headers, entity
		// tags and units stay queryable as one unit.
		if table := ExtractTable(rows, sheet, Locator{Sheet: sheet}); table != nil {
			result.Tables = append(result.Tables, *table)
		}

		for rowIdx, row := range rows[1:] {
			var parts []string
			for colIdx, cell := range row {
				cell = strings.TrimSpace(cell)
				if cell == "" {
					continue
				}
				header := fmt.Sprintf("Column_%d", colIdx+1)
				if colIdx < len(headers) {
					header = headers[colIdx]
				}
				parts = append(parts, header+": "+cell)
			}
			if len(parts) == 0 {
				continue
			}
			result.Elements = append(result.Elements, Element{
				Kind:          KindParagraph,
				Text:          strings.Join(parts, ", "),
				SectionPath:   sectionPath,
				Locator:       Locator{Sheet: sheet, Row: rowIdx + 2, Section: sheet},
				SelfContained: true,
			})
		}
	}

	if len(result.Elements) == 0 {
		result.Status = StatusNoText
	}
	return result, nil
}
