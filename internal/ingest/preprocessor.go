package ingest

import (
	"strings"
	"unicode"
)

// keepPunct is the punctuation retained during normalization; everything that
// is not a letter, digit, whitespace, or one of these is stripped as an
// extraction artifact.
const keepPunct = `.,;:!?-()[]"'/`

// Normalize cleans extracted document text: strips disallowed characters,
// collapses runs of spaces and tabs, collapses runs of newlines, and drops
// lines shorter than minLineLen (treated as extraction artifacts).
func Normalize(text string, minLineLen int) string {
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	wasNewline := false
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			if !wasNewline {
				b.WriteByte('\n')
				wasNewline = true
			}
			wasSpace = false
		case unicode.IsSpace(r):
			if !wasSpace && !wasNewline {
				b.WriteByte(' ')
				wasSpace = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || strings.ContainsRune(keepPunct, r):
			b.WriteRune(r)
			wasSpace = false
			wasNewline = false
		default:
			// dropped
		}
	}

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if len(line) >= minLineLen {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
