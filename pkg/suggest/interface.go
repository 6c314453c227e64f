// Package suggest generates the candidate words a swipe is scored against.
package suggest

// CandidateSource produces candidate words for a swiped key sequence.
type CandidateSource interface {
	// Candidates returns words plausibly intended by keys, most frequent first.
	Candidates(keys []rune, pathLength float32) []string

	// AddWord adds a word with its frequency to the vocabulary
	AddWord(word string, frequency int)

	// Stats returns statistics about the loaded vocabulary
	Stats() map[string]int
}
