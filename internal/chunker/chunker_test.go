package chunker

import (
	"fmt"
	"strings"
	"testing"

	"sitedocs-ai/internal/docparse"
)

func paragraph(words int, section string, loc docparse.Locator) docparse.Element {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = fmt.Sprintf("word%d", i)
	}
	return docparse.Element{
		Kind:        docparse.KindParagraph,
		Text:        strings.Join(parts, " "),
		SectionPath: []string{section},
		Locator:     loc,
	}
}

func heading(text string, level int) docparse.Element {
	return docparse.Element{
		Kind:        docparse.KindHeading,
		Text:        text,
		Level:       level,
		SectionPath: []string{text},
		Locator:     docparse.Locator{Section: text},
	}
}

func TestChunkIDsAreDeterministic(t *testing.T) {
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			heading("Overview", 1),
			paragraph(120, "Overview", docparse.Locator{Page: 1}),
			paragraph(120, "Overview", docparse.Locator{Page: 2}),
		},
	}

	c := New(Options{})
	first := c.Chunk("doc-1", result)
	second := c.Chunk("doc-1", result)

	if len(first) == 0 {
		t.Fatal("expected chunks, got none")
	}
	if len(first) != len(second) {
		t.Fatalf("chunk count changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d: id changed between runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	other := c.Chunk("doc-2", result)
	if other[0].ID == first[0].ID {
		t.Error("different documents produced the same chunk id")
	}
}

func TestTableStaysAtomic(t *testing.T) {
	rows := make([][]string, 80)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("DC-%03d", i), "5000", "installed"}
	}
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Tables: []docparse.Table{{
			Headers:     []string{"Item", "Qty", "Status"},
			Rows:        rows,
			RowCount:    len(rows),
			ColumnCount: 3,
			Locator:     docparse.Locator{Page: 4},
		}},
		Elements: []docparse.Element{
			heading("Materials", 1),
			{Kind: docparse.KindTableRef, SectionPath: []string{"Materials"}, Locator: docparse.Locator{Page: 4}},
		},
	}

	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 1 {
		t.Fatalf("expected table to become exactly one chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if !got.IsAtomic {
		t.Error("table chunk not marked atomic")
	}
	if got.TokenCount <= budgets[GranularityFine].max {
		t.Errorf("test table should exceed the fine budget to prove the bypass, got %d tokens", got.TokenCount)
	}
	if n := strings.Count(got.Text, "Item:"); n != len(rows) {
		t.Errorf("table chunk holds %d rows, want %d", n, len(rows))
	}
}

func TestSelfContainedRowsBecomeOwnChunks(t *testing.T) {
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			heading("BOM", 1),
			{
				Kind:          docparse.KindParagraph,
				Text:          "Item: DC-001, Qty: 5000, Status: pending",
				SectionPath:   []string{"BOM"},
				Locator:       docparse.Locator{Sheet: "BOM", Row: 2, Section: "BOM"},
				SelfContained: true,
			},
			{
				Kind:          docparse.KindParagraph,
				Text:          "Item: DC-002, Qty: 1200, Status: installed",
				SectionPath:   []string{"BOM"},
				Locator:       docparse.Locator{Sheet: "BOM", Row: 3, Section: "BOM"},
				SelfContained: true,
			},
		},
	}

	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per row, got %d", len(chunks))
	}
	if chunks[0].Text != "Item: DC-001, Qty: 5000, Status: pending" {
		t.Errorf("row text altered: %q", chunks[0].Text)
	}
	if chunks[0].Locator.Row != 2 || chunks[1].Locator.Row != 3 {
		t.Errorf("row locators lost: %+v / %+v", chunks[0].Locator, chunks[1].Locator)
	}
}

func TestBudgetsHold(t *testing.T) {
	tests := []struct {
		name        string
		granularity Granularity
	}{
		{name: "fine", granularity: GranularityFine},
		{name: "section", granularity: GranularitySection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := &docparse.Result{Status: docparse.StatusOK}
			result.Elements = append(result.Elements, heading("Spec", 1))
			for i := 0; i < 30; i++ {
				result.Elements = append(result.Elements, paragraph(60, "Spec", docparse.Locator{Page: i/5 + 1}))
			}

			chunks := New(Options{Granularity: tt.granularity}).Chunk("doc-1", result)
			if len(chunks) < 2 {
				t.Fatalf("expected multiple chunks, got %d", len(chunks))
			}
			b := budgets[tt.granularity]
			for i, ch := range chunks {
				if ch.TokenCount > b.max {
					t.Errorf("chunk %d exceeds budget: %d > %d", i, ch.TokenCount, b.max)
				}
				if i < len(chunks)-1 && ch.TokenCount < b.min {
					t.Errorf("non-final chunk %d below floor: %d < %d", i, ch.TokenCount, b.min)
				}
			}
		})
	}
}

func TestOversizedParagraphSplits(t *testing.T) {
	b := budgets[GranularityFine]

	t.Run("no sentence boundaries", func(t *testing.T) {
		result := &docparse.Result{
			Status: docparse.StatusOK,
			Elements: []docparse.Element{
				heading("Spec", 1),
				paragraph(450, "Spec", docparse.Locator{Page: 1}),
				paragraph(150, "Spec", docparse.Locator{Page: 2}),
			},
		}

		chunks := New(Options{}).Chunk("doc-1", result)
		if len(chunks) < 2 {
			t.Fatalf("oversized paragraph not split, got %d chunks", len(chunks))
		}
		total := 0
		for i, ch := range chunks {
			if ch.TokenCount > b.max {
				t.Errorf("chunk %d exceeds budget: %d > %d", i, ch.TokenCount, b.max)
			}
			total += ch.TokenCount
		}
		if total != 600 {
			t.Errorf("split lost words: %d tokens total, want 600", total)
		}
	})

	t.Run("splits on sentence boundaries", func(t *testing.T) {
		var sentences []string
		for i := 0; i < 30; i++ {
			sentences = append(sentences, fmt.Sprintf("Sentence %d holds exactly fifteen words of trench depth and backfill requirements for review %d.", i, i))
		}
		result := &docparse.Result{
			Status: docparse.StatusOK,
			Elements: []docparse.Element{
				heading("Spec", 1),
				{
					Kind:        docparse.KindParagraph,
					Text:        strings.Join(sentences, " "),
					SectionPath: []string{"Spec"},
					Locator:     docparse.Locator{Page: 1},
				},
			},
		}

		chunks := New(Options{}).Chunk("doc-1", result)
		if len(chunks) < 2 {
			t.Fatalf("oversized paragraph not split, got %d chunks", len(chunks))
		}
		for i, ch := range chunks {
			if ch.TokenCount > b.max {
				t.Errorf("chunk %d exceeds budget: %d > %d", i, ch.TokenCount, b.max)
			}
			if !strings.HasSuffix(ch.Text, ".") {
				t.Errorf("chunk %d does not end at a sentence boundary: %q", i, ch.Text[len(ch.Text)-20:])
			}
		}
	})
}

func TestSmallSectionMergesForward(t *testing.T) {
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			heading("Notes", 1),
			paragraph(10, "Notes", docparse.Locator{Page: 1}),
			heading("Details", 1),
			paragraph(150, "Details", docparse.Locator{Page: 2}),
		},
	}

	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 1 {
		t.Fatalf("expected the short section to merge forward into one chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "word9") {
		t.Error("merged chunk lost the short section's text")
	}
	if chunks[0].SectionPath != "Notes" {
		t.Errorf("merged chunk should keep its origin section, got %q", chunks[0].SectionPath)
	}
}

func TestShortFinalChunkAllowed(t *testing.T) {
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			heading("Tail", 1),
			paragraph(20, "Tail", docparse.Locator{Page: 1}),
		},
	}
	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 1 {
		t.Fatalf("expected one trailing chunk, got %d", len(chunks))
	}
	if chunks[0].TokenCount >= budgets[GranularityFine].min {
		t.Fatal("test setup should produce a below-floor trailing chunk")
	}
}

func TestWindowFallback(t *testing.T) {
	words := make([]string, 600)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			{Kind: docparse.KindParagraph, Text: strings.Join(words, " "), Locator: docparse.Locator{Page: 1}},
		},
	}

	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 3 {
		t.Fatalf("600 words at window 250 step 200 should yield 3 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks[:len(chunks)-1] {
		if ch.TokenCount != windowTokens {
			t.Errorf("window %d: got %d tokens, want %d", i, ch.TokenCount, windowTokens)
		}
	}

	// Overlap is word aligned: the last 50 words of one window open the next.
	first := strings.Fields(chunks[0].Text)
	second := strings.Fields(chunks[1].Text)
	if first[len(first)-windowOverlap] != second[0] {
		t.Errorf("overlap misaligned: %q vs %q", first[len(first)-windowOverlap], second[0])
	}
}

func TestWindowFallback_LocatorsTrackPages(t *testing.T) {
	result := &docparse.Result{
		Status: docparse.StatusOK,
		Elements: []docparse.Element{
			paragraph(200, "", docparse.Locator{Page: 1}),
			paragraph(200, "", docparse.Locator{Page: 2}),
		},
	}

	chunks := New(Options{}).Chunk("doc-1", result)
	if len(chunks) != 2 {
		t.Fatalf("400 words at window 250 step 200 should yield 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Locator.Page != 1 {
		t.Errorf("first window locator = %+v, want page 1", chunks[0].Locator)
	}
	// The second window starts at word 200, the first word of page 2.
	if chunks[1].Locator.Page != 2 {
		t.Errorf("second window locator = %+v, want page 2", chunks[1].Locator)
	}
}

func TestNoTextYieldsNoChunks(t *testing.T) {
	chunks := New(Options{}).Chunk("doc-1", &docparse.Result{Status: docparse.StatusNoText})
	if chunks != nil {
		t.Fatalf("NO_TEXT document produced %d chunks", len(chunks))
	}
}
