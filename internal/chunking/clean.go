package chunking

import (
	"strings"
	"unicode"
)

// cleanText normalises whitespace and strips control characters.
// Runs of whitespace collapse to a single space and the result is
// trimmed. Non-printable runes other than whitespace are dropped.
func cleanText(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		case unicode.IsControl(r):
			// dropped
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}

// alnumRatio returns the share of alphanumeric runes in the text.
// An empty string has ratio 0.
func alnumRatio(text string) float64 {
	if text == "" {
		return 0
	}

	total := 0
	alnum := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}

	return float64(alnum) / float64(total)
}
