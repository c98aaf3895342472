package docparse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// entityTagPatterns maps a semantic tag to the keywords that imply it.
// Tags are matched over header, title and cell text and stored on the
// table chunk for retrieval filtering. Additive data, not code.
var entityTagPatterns = map[string][]string{
	"capacity":      {"capacity", "kwp", "mwp", "kva", "mva", "rating"},
	"voltage":       {"voltage", "volt", "kv", "vdc", "vac"},
	"temperature":   {"temperature", "temp", "celsius", "ambient", "thermal"},
	"current":       {"current", "ampere", "amp", "isc", "imp"},
	"cable":         {"cable", "conductor", "cross-section", "wiring", "trench"},
	"configuration": {"configuration", "config", "layout", "string", "arrangement"},
}

// Units are recognized either directly after a number ("600 V", "4mm2")
// or parenthesized in a header ("Depth (cm)").
var (
	numericUnitPattern = regexp.MustCompile(`(?i)\d+(?:[.,]\d+)?\s*(mm2|mm²|mm|cm|km|kwh|kwp|mwp|kw|mw|kva|mva|kv|v|ka|a|°c|m)\b`)
	parenUnitPattern   = regexp.MustCompile(`(?i)\(\s*(mm2|mm²|mm|cm|km|kwh|kwp|mwp|kw|mw|kva|mva|kv|v|ka|a|°c|m|pcs|units?|strings?)\s*\)`)
)

// ExtractTable turns a raw cell grid into a Table. The first row is
// taken as the header row; blank header cells are synthesized as
// "Column_N". Returns nil when the grid cannot be parsed into at least
// one complete data row: malformed tables are dropped whole, never
// emitted truncated.
func ExtractTable(grid [][]string, title string, loc Locator) *Table {
	if len(grid) < 2 {
		return nil
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}
	columns := len(headers)
	if columns == 0 {
		return nil
	}

	rows := make([][]string, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		// A row wider than the header cannot be aligned to it; that is a
		// structural parse failure for the whole table.
		if len(raw) > columns {
			return nil
		}
		row := make([]string, columns)
		empty := true
		for i := range raw {
			row[i] = strings.TrimSpace(raw[i])
			if row[i] != "" {
				empty = false
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil
	}

	t := &Table{
		Headers:     headers,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: columns,
		Title:       strings.TrimSpace(title),
		Locator:     loc,
	}
	t.EntityTags = entityTags(t)
	t.Units = units(t)
	return t
}

func entityTags(t *Table) []string {
	haystack := strings.ToLower(t.Title + " " + strings.Join(t.Headers, " ") + " " + flattenRows(t.Rows))

	var tags []string
	for tag, keywords := range entityTagPatterns {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

func units(t *Table) []string {
	haystack := t.Title + " " + strings.Join(t.Headers, " ") + " " + flattenRows(t.Rows)

	seen := make(map[string]struct{})
	var out []string
	collect := func(matches [][]string) {
		for _, m := range matches {
			u := strings.ToLower(m[1])
			if u == "mm²" {
				u = "mm2"
			}
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			out = append(out, u)
		}
	}
	collect(numericUnitPattern.FindAllStringSubmatch(haystack, -1))
	collect(parenUnitPattern.FindAllStringSubmatch(haystack, -1))
	sort.Strings(out)
	return out
}

func flattenRows(rows [][]string) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(strings.Join(row, " "))
		b.WriteString(" ")
	}
	return b.String()
}
