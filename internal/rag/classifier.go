package rag

import "strings"

// Classify maps a question to a QueryType using the rule tables alone.
// No model call is made; classification runs before any retrieval cost.
func Classify(question string, rules *Rules) Classification {
	lower := strings.ToLower(question)

	// Refusal wins over everything else.
	var matched []string
	for _, kw := range rules.RefuseKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}
	for i, re := range rules.refuseRegexps {
		if re.MatchString(question) {
			matched = append(matched, rules.RefusePatterns[i])
		}
	}
	if len(matched) > 0 {
		return Classification{Type: TypeRefuse, MatchedKeywords: matched}
	}

	var dataMatched, docMatched []string
	for _, kw := range rules.DataKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			dataMatched = append(dataMatched, kw)
		}
	}
	for _, kw := range rules.DocKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			docMatched = append(docMatched, kw)
		}
	}

	switch {
	case len(dataMatched) > 0 && len(docMatched) > 0:
		return Classification{Type: TypeHybrid, MatchedKeywords: append(dataMatched, docMatched...)}
	case len(dataMatched) > 0:
		return Classification{Type: TypeData, MatchedKeywords: dataMatched}
	default:
		// Document lookup is the default: a question with no signals is
		// still answered from the ingested documents.
		return Classification{Type: TypeDoc, MatchedKeywords: docMatched}
	}
}
