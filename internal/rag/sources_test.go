package rag

import (
	"testing"

	"sitedocs-ai/internal/docparse"
)

func TestFormatSources(t *testing.T) {
	evidence := []Evidence{
		{
			ChunkID:      "chunk-1",
			DocumentID:   "doc-1",
			DocumentName: "groundworks.pdf",
			SectionPath:  "Trenching",
			Locator:      docparse.Locator{Page: 3},
		},
		{
			ChunkID:      "chunk-2",
			DocumentID:   "doc-2",
			DocumentName: "bom.xlsx",
			Locator:      docparse.Locator{Sheet: "BOM", Row: 2},
		},
	}

	tests := []struct {
		name   string
		answer string
		want   []Source
	}{
		{
			name:   "single marker resolved against evidence",
			answer: "Depth is 1.2 m. [Source: groundworks.pdf]",
			want: []Source{
				{Document: "groundworks.pdf", Locator: "Page 3", Section: "Trenching"},
			},
		},
		{
			name:   "marker with locator fields matches on name alone",
			answer: "Depth is 1.2 m. [Source: groundworks.pdf | Page 3 | Trenching]",
			want: []Source{
				{Document: "groundworks.pdf", Locator: "Page 3", Section: "Trenching"},
			},
		},
		{
			name:   "document name matches case-insensitively",
			answer: "See [Source: GROUNDWORKS.PDF].",
			want: []Source{
				{Document: "groundworks.pdf", Locator: "Page 3", Section: "Trenching"},
			},
		},
		{
			name:   "duplicate citations collapse to one source",
			answer: "Depth [Source: groundworks.pdf]. Width [Source: groundworks.pdf].",
			want: []Source{
				{Document: "groundworks.pdf", Locator: "Page 3", Section: "Trenching"},
			},
		},
		{
			name:   "multiple documents in citation order",
			answer: "Qty per [Source: bom.xlsx], depth per [Source: groundworks.pdf].",
			want: []Source{
				{Document: "bom.xlsx", Locator: "Sheet: BOM, Row 2"},
				{Document: "groundworks.pdf", Locator: "Page 3", Section: "Trenching"},
			},
		},
		{
			name:   "citation of an unknown document is dropped",
			answer: "Per [Source: imaginary.pdf], the depth is 2 m.",
			want:   []Source{},
		},
		{
			name:   "no markers",
			answer: "The depth is 1.2 meters.",
			want:   []Source{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatSources(tt.answer, evidence)
			if got == nil {
				t.Fatal("FormatSources() = nil, want non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("FormatSources() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("source[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
