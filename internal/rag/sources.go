package rag

import (
	"regexp"
	"strings"
)

// sourceMarkerPattern matches citation markers emitted by the model.
// Only the document name (the first |-separated field) identifies the
// evidence; locator and section are restored from the evidence itself.
var sourceMarkerPattern = regexp.MustCompile(`\[Source:\s*([^\]|]+)(?:\|[^\]]*)?\]`)

// FormatSources resolves the answer's citation markers against the
// evidence that was actually provided. A cited document that matches no
// evidence is dropped: sources are proven, never inferred.
func FormatSources(answer string, evidence []Evidence) []Source {
	matches := sourceMarkerPattern.FindAllStringSubmatch(answer, -1)
	if len(matches) == 0 {
		return []Source{}
	}

	seen := make(map[string]bool)
	sources := make([]Source, 0, len(matches))

	for _, match := range matches {
		cited := strings.TrimSpace(match[1])
		for _, ev := range evidence {
			if !strings.EqualFold(cited, ev.DocumentName) {
				continue
			}
			key := ev.DocumentID + "|" + ev.Locator.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, Source{
				Document: ev.DocumentName,
				Locator:  ev.Locator.String(),
				Section:  ev.SectionPath,
			})
		}
	}

	return sources
}
