package utils

import (
	"unicode"
)

// IsOnlyNumbers checks if a string consists entirely of numeric digits
func IsOnlyNumbers(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// IsWordInput reports whether s looks like a word worth learning: letters
// plus inner apostrophes or hyphens, and not one letter repeated.
func IsWordInput(s string) bool {
	if len(s) == 0 || IsOnlyNumbers(s) {
		return false
	}
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			continue
		}
		if (r == '\'' || r == '-') && i > 0 && i < len(runes)-1 {
			continue
		}
		return false
	}
	return !IsRepetitive(s)
}

// IsRepetitive checks for one character repeated 3+ times (e.g. "aaa").
func IsRepetitive(s string) bool {
	runes := []rune(s)
	if len(runes) <= 2 {
		return false
	}
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// LettersOnly lowercases s and drops everything that is not a letter.
func LettersOnly(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}
