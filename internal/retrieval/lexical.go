package retrieval

import (
	"sort"
	"strings"

	"github.com/hyperjump/kiban/internal/models"
)

// Lexical scoring weights. Exact token matches count double, a verbatim phrase
// hit earns a flat bonus, and the sum is normalized by query length so short
// queries do not dominate.
const (
	exactMatchWeight = 2.0
	phraseBonus      = 0.5
)

// lexicalSearch scores every chunk by word overlap with the query.
// Scoring: (exact*2 + partial + phrase bonus) / (query word count + 1),
// where exact counts query words equal to a chunk token and partial counts
// query words appearing inside a chunk token. Chunks at or below the
// threshold are discarded. Sort is stable: ties keep document insertion and
// chunk order.
func (r *Retriever) lexicalSearch(docs []*models.Document, query string, topK int) []*models.RetrievalResult {
	queryLower := strings.ToLower(query)
	queryWords := uniqueWords(queryLower)
	if len(queryWords) == 0 {
		return nil
	}

	var results []*models.RetrievalResult
	for _, doc := range docs {
		for i := range doc.Chunks {
			chunk := &doc.Chunks[i]
			chunkLower := strings.ToLower(chunk.Text)
			tokens := strings.Fields(chunkLower)

			exact, partial := 0, 0
			for _, qw := range queryWords {
				matchedExact, matchedPartial := false, false
				for _, tok := range tokens {
					if tok == qw {
						matchedExact = true
						matchedPartial = true
						break
					}
					if strings.Contains(tok, qw) {
						matchedPartial = true
					}
				}
				if matchedExact {
					exact++
				}
				if matchedPartial {
					partial++
				}
			}

			score := float64(exact)*exactMatchWeight + float64(partial)
			if strings.Contains(chunkLower, queryLower) {
				score += phraseBonus
			}
			score /= float64(len(queryWords) + 1)

			if score > r.cfg.LexicalThreshold {
				results = append(results, &models.RetrievalResult{
					Text:       chunk.Text,
					Score:      score,
					Metadata:   doc.Metadata,
					DocumentID: doc.ID,
					ChunkIndex: chunk.Index,
				})
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// uniqueWords returns the distinct whitespace-separated words of s, in order.
func uniqueWords(s string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range strings.Fields(s) {
		if !seen[w] {
			seen[w] = true
			words = append(words, w)
		}
	}
	return words
}
