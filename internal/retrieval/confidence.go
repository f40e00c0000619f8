package retrieval

import (
	"math"
	"strings"

	"github.com/hyperjump/kiban/internal/config"
	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/pkg/utils"
)

// interrogatives are the question markers that earn the phrasing bonus:
// questions are easier to ground against manual passages than bare keywords.
var interrogatives = []string{"how", "what", "where", "when", "why", "which"}

// ConfidenceScorer derives a bounded confidence value from a retrieval result
// set. Scoring is a pure function of its inputs: identical query and results
// always yield the identical value.
type ConfidenceScorer struct {
	cfg *config.ConfidenceConfig
}

// NewConfidenceScorer creates a scorer with the given tuning parameters.
func NewConfidenceScorer(cfg *config.ConfidenceConfig) *ConfidenceScorer {
	return &ConfidenceScorer{cfg: cfg}
}

// Score returns a confidence in [floor, max]. No results yields the floor
// (answer would come from general knowledge only). Otherwise the top result's
// score is boosted by a corroboration bonus per additional result (capped)
// and a small bonus for question-phrased queries, then clamped and rounded to
// two decimals.
func (s *ConfidenceScorer) Score(query string, results []*models.RetrievalResult) float64 {
	if len(results) == 0 {
		return s.cfg.Floor
	}

	confidence := results[0].Score
	confidence += math.Min(float64(len(results))*s.cfg.PerResultBonus, s.cfg.CorroborationCap)
	if isQuestion(query) {
		confidence += s.cfg.QuestionBonus
	}
	return utils.Round2(math.Min(confidence, s.cfg.Max))
}

// isQuestion reports whether the query is phrased as a question.
func isQuestion(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if strings.HasSuffix(q, "?") {
		return true
	}
	for _, w := range strings.Fields(q) {
		for _, marker := range interrogatives {
			if w == marker {
				return true
			}
		}
	}
	return false
}
