package algo

import (
	"strings"
	"unicode"

	"github.com/huangsam/leadscore/schema"
)

// ContainsKeyword reports whether text contains keyword, ignoring case.
func ContainsKeyword(text, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), kw)
}

// ContainsWord reports whether keyword appears in text as a whole word,
// ignoring case. A keyword with spaces or punctuation is matched as a substring.
func ContainsWord(text, keyword string) bool {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return false
	}
	lower := strings.ToLower(text)
	if !isWord(kw) {
		return strings.Contains(lower, kw)
	}
	for _, tok := range strings.FieldsFunc(lower, isSeparator) {
		if tok == kw {
			return true
		}
	}
	return false
}

// FirstKeyword returns the first keyword from keywords found in text using
// the given match mode.
func FirstKeyword(text string, keywords []string, match schema.KeywordMatch) (string, bool) {
	contains := ContainsKeyword
	if match == schema.WordMatch {
		contains = ContainsWord
	}
	for _, kw := range keywords {
		if contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func isWord(s string) bool {
	return strings.IndexFunc(s, isSeparator) < 0
}
