package rag

import "strings"

// FallbackAnswer is the canonical "not found" message. Every guarded
// failure path resolves to it; internal error detail never reaches the
// caller as an answer.
const FallbackAnswer = "I cannot find this information in the provided documents/records."

// RefusalAnswer is returned for questions classified REFUSE.
const RefusalAnswer = "This question asks for an approval, compliance or design judgment, which this assistant does not provide. Please consult the responsible engineer."

// Guard flags.
const (
	FlagNoEvidence       = "NO_EVIDENCE"
	FlagLowScore         = "LOW_SCORE"
	FlagNoKeywordOverlap = "NO_KEYWORD_OVERLAP"
	FlagMissingLocator   = "MISSING_LOCATOR"
	FlagMissingCitation  = "MISSING_CITATION"
	FlagHedging          = "HEDGING"
	FlagApprovalLanguage = "APPROVAL_LANGUAGE"
	FlagLLMError         = "LLM_ERROR"
	FlagRetrievalError   = "RETRIEVAL_ERROR"
	FlagRefused          = "REFUSED"
)

// PreGuard validates retrieved evidence before any generation call is
// made. Checks run in order and short-circuit on the first failure.
// This is the primary cost-control and hallucination-prevention gate.
func PreGuard(question string, evidence []Evidence, threshold float32, rules *Rules) GuardResult {
	if len(evidence) == 0 {
		return GuardResult{
			Flags:          []string{FlagNoEvidence},
			FallbackReason: "no relevant chunks retrieved",
		}
	}

	// Evidence arrives sorted by descending score.
	if evidence[0].Score < threshold {
		return GuardResult{
			Flags:          []string{FlagLowScore},
			FallbackReason: "best evidence below similarity threshold",
		}
	}

	keywords := guardKeywords(question, rules)
	if len(keywords) > 0 && !anyKeywordInEvidence(keywords, evidence) {
		return GuardResult{
			Flags:          []string{FlagNoKeywordOverlap},
			FallbackReason: "question keywords absent from retrieved evidence",
		}
	}

	for _, ev := range evidence {
		if !ev.Locator.Resolvable() {
			return GuardResult{
				Flags:          []string{FlagMissingLocator},
				FallbackReason: "evidence chunk without a resolvable source locator",
			}
		}
	}

	return GuardResult{Passed: true}
}

// PostGuard validates generated text: a source marker must be present
// unless the text is the canonical fallback, and speculative or
// approval language is forbidden. All violations are collected; any of
// them discards the generated text.
func PostGuard(answer string, rules *Rules) GuardResult {
	trimmed := strings.TrimSpace(answer)
	if trimmed == FallbackAnswer {
		// The model declaring "not found" is a valid guarded outcome, not
		// a violation. Only the exact fallback is exempt: an answer that
		// merely embeds the sentence still gets every check.
		return GuardResult{Passed: true}
	}

	var flags []string
	if !strings.Contains(trimmed, "[Source:") {
		flags = append(flags, FlagMissingCitation)
	}

	lower := strings.ToLower(trimmed)
	for _, phrase := range rules.HedgingPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			flags = append(flags, FlagHedging)
			break
		}
	}
	for _, phrase := range rules.ApprovalPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			flags = append(flags, FlagApprovalLanguage)
			break
		}
	}

	if len(flags) > 0 {
		return GuardResult{
			Flags:          flags,
			FallbackReason: "generated answer violated " + strings.Join(flags, ","),
		}
	}
	return GuardResult{Passed: true}
}

// guardKeywords extracts the significant question words checked for
// overlap with evidence: longer than 3 characters, stop-words removed.
func guardKeywords(question string, rules *Rules) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(question)) {
		token = strings.Trim(token, ".,?!:;\"'()")
		if len(token) <= 3 {
			continue
		}
		if _, isStop := rules.guardStopwords[token]; isStop {
			continue
		}
		keywords = append(keywords, token)
	}
	return keywords
}

func anyKeywordInEvidence(keywords []string, evidence []Evidence) bool {
	for _, ev := range evidence {
		haystack := strings.ToLower(ev.Text + " " + ev.SectionPath)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				return true
			}
		}
	}
	return false
}
