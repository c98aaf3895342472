package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Rules holds the flat keyword and phrase tables driving the classifier
// and both guards. New rules are data, not code: a JSON file can
// overlay any of the lists at startup.
type Rules struct {
	// Classifier tables. Keywords match case-insensitively as
	// substrings; patterns are regular expressions.
	DataKeywords   []string `json:"data_keywords"`
	DocKeywords    []string `json:"doc_keywords"`
	RefuseKeywords []string `json:"refuse_keywords"`
	RefusePatterns []string `json:"refuse_patterns"`

	// Pre-guard keyword extraction. Deliberately a separate vocabulary
	// from the classifier tables and the retriever's lexical stopwords.
	GuardStopwords []string `json:"guard_stopwords"`

	// Post-guard phrase lists.
	HedgingPhrases  []string `json:"hedging_phrases"`
	ApprovalPhrases []string `json:"approval_phrases"`

	refuseRegexps  []*regexp.Regexp
	guardStopwords map[string]struct{}
}

// DefaultRules returns the built-in rule tables.
func DefaultRules() *Rules {
	r := &Rules{
		DataKeywords: []string{
			"progress", "completed so far", "remaining", "percentage",
			"how many", "installed to date", "so far", "to date",
			"current status", "current count", "this week", "today",
		},
		DocKeywords: []string{
			"spec", "specification", "drawing", "document", "datasheet",
			"requirement", "per the", "according to", "manual", "standard",
		},
		RefuseKeywords: []string{
			"approve", "approval", "sign off", "sign-off", "compliant",
			"compliance", "certified", "certify", "recommend", "acceptable",
			"better design", "good enough",
		},
		RefusePatterns: []string{
			`(?i)^should\s+we\b`,
			`(?i)^can\s+we\s+(approve|accept|certify)\b`,
			`(?i)\bis\s+(it|this)\s+(safe|compliant|acceptable|approved)\b`,
			`(?i)\bdo\s+you\s+(recommend|approve|prefer)\b`,
		},
		GuardStopwords: []string{
			"what", "which", "where", "when", "does", "have", "this",
			"that", "with", "from", "about", "there", "their", "them",
			"minimum", "maximum", "value", "tell",
		},
		HedgingPhrases: []string{
			"probably", "might", "i think", "i believe", "perhaps",
			"possibly", "it seems", "presumably", "i assume", "my guess",
			"most likely",
		},
		ApprovalPhrases: []string{
			"meets standards", "meets the standards", "approved",
			"certified", "compliant with", "meets code", "is acceptable",
			"meets the requirements", "signed off",
		},
	}
	if err := r.compile(); err != nil {
		// Built-in patterns are constants; a failure here is a programming error.
		panic(err)
	}
	return r
}

// LoadRules reads a JSON rules file and overlays any non-empty lists
// onto the defaults.
func LoadRules(path string) (*Rules, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var overlay Rules
	if err := json.Unmarshal(content, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	r := DefaultRules()
	if len(overlay.DataKeywords) > 0 {
		r.DataKeywords = overlay.DataKeywords
	}
	if len(overlay.DocKeywords) > 0 {
		r.DocKeywords = overlay.DocKeywords
	}
	if len(overlay.RefuseKeywords) > 0 {
		r.RefuseKeywords = overlay.RefuseKeywords
	}
	if len(overlay.RefusePatterns) > 0 {
		r.RefusePatterns = overlay.RefusePatterns
	}
	if len(overlay.GuardStopwords) > 0 {
		r.GuardStopwords = overlay.GuardStopwords
	}
	if len(overlay.HedgingPhrases) > 0 {
		r.HedgingPhrases = overlay.HedgingPhrases
	}
	if len(overlay.ApprovalPhrases) > 0 {
		r.ApprovalPhrases = overlay.ApprovalPhrases
	}

	if err := r.compile(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Rules) compile() error {
	r.refuseRegexps = r.refuseRegexps[:0]
	for _, pattern := range r.RefusePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return fmt.Errorf("invalid refuse pattern %q: %w", pattern, err)
		}
		r.refuseRegexps = append(r.refuseRegexps, re)
	}

	r.guardStopwords = make(map[string]struct{}, len(r.GuardStopwords))
	for _, word := range r.GuardStopwords {
		r.guardStopwords[strings.ToLower(word)] = struct{}{}
	}
	return nil
}
