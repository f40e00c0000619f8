package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/pkg/utils"
)

const (
	maxAnswerSentences = 3
	minSentenceLen     = 20
	snippetFallbackLen = 500
)

// composeResponse builds an extractive answer from the top retrieved passage:
// the sentences most relevant to the query, attributed to their source
// document. With no results it returns a guidance message instead.
func composeResponse(query string, results []*models.RetrievalResult) string {
	if len(results) == 0 {
		return "I don't have specific information about that in the uploaded manuals. " +
			"Upload the relevant documentation and ask again."
	}

	top := results[0]
	filename := "unknown"
	if name, ok := top.Metadata[models.MetaKeyFilename].(string); ok && name != "" {
		filename = name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Based on the information from %q:\n\n", filename)
	b.WriteString(relevantSentences(top.Text, query))
	fmt.Fprintf(&b, "\n\nSource: %s", filename)
	return b.String()
}

// relevantSentences returns the sentences of text that share the most words
// with the query, best first, capped at maxAnswerSentences. When no sentence
// overlaps the query, the head of the passage is returned instead.
func relevantSentences(text, query string) string {
	queryWords := strings.Fields(strings.ToLower(query))

	type scored struct {
		sentence string
		score    int
	}
	var candidates []scored
	for _, sentence := range strings.Split(text, ".") {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) < minSentenceLen {
			continue
		}
		lower := strings.ToLower(sentence)
		score := 0
		for _, w := range queryWords {
			if strings.Contains(lower, w) {
				score++
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{sentence: sentence, score: score})
		}
	}
	if len(candidates) == 0 {
		return utils.Truncate(text, snippetFallbackLen)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > maxAnswerSentences {
		candidates = candidates[:maxAnswerSentences]
	}
	sentences := make([]string, len(candidates))
	for i, c := range candidates {
		sentences[i] = c.sentence
	}
	return strings.Join(sentences, ". ") + "."
}
