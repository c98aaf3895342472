package rag

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	if len(rules.RefuseKeywords) == 0 {
		t.Error("expected built-in refuse keywords")
	}
	if len(rules.refuseRegexps) != len(rules.RefusePatterns) {
		t.Errorf("compiled %d refuse patterns, want %d", len(rules.refuseRegexps), len(rules.RefusePatterns))
	}
	if _, ok := rules.guardStopwords["what"]; !ok {
		t.Error("expected 'what' in compiled guard stopwords")
	}
}

func TestLoadRules_Overlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	content := `{"data_keywords": ["burndown"], "hedging_phrases": ["sort of"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() error = %v", err)
	}

	if len(rules.DataKeywords) != 1 || rules.DataKeywords[0] != "burndown" {
		t.Errorf("DataKeywords = %v, want overlay [burndown]", rules.DataKeywords)
	}
	if len(rules.HedgingPhrases) != 1 || rules.HedgingPhrases[0] != "sort of" {
		t.Errorf("HedgingPhrases = %v, want overlay [sort of]", rules.HedgingPhrases)
	}
	// Lists absent from the file keep their defaults.
	if len(rules.RefuseKeywords) == 0 {
		t.Error("RefuseKeywords should keep defaults when not overlaid")
	}
	if len(rules.refuseRegexps) == 0 {
		t.Error("refuse patterns should be recompiled after overlay")
	}
}

func TestLoadRules_InvalidPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	content := `{"refuse_patterns": ["(["]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRules(path); err == nil {
		t.Error("expected error for invalid refuse pattern")
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing rules file")
	}
}
