package utils

import (
	"strings"
)

// SuggestionFilter drops case-insensitive duplicates while merging candidate
// lists. It is not safe for concurrent use.
type SuggestionFilter struct {
	seenWords map[string]bool
}

// NewSuggestionFilter creates a filter that also rejects the given words.
func NewSuggestionFilter(exclude ...string) *SuggestionFilter {
	seenWords := make(map[string]bool, len(exclude))
	for _, w := range exclude {
		seenWords[strings.ToLower(w)] = true
	}
	return &SuggestionFilter{seenWords: seenWords}
}

// ShouldInclude reports whether word is new, and marks it seen.
func (f *SuggestionFilter) ShouldInclude(word string) bool {
	lowerWord := strings.ToLower(word)
	if f.seenWords[lowerWord] {
		return false
	}
	f.seenWords[lowerWord] = true
	return true
}
