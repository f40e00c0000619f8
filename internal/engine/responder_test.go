package engine

import (
	"strings"
	"testing"

	"github.com/hyperjump/kiban/internal/models"
)

func TestComposeResponse_NoResults(t *testing.T) {
	got := composeResponse("spindle speed", nil)
	if !strings.Contains(got, "don't have specific information") {
		t.Errorf("no-results message = %q", got)
	}
}

func TestComposeResponse_CitesSource(t *testing.T) {
	results := []*models.RetrievalResult{
		{
			Text:     "The spindle speed is 10000 RPM under normal load. Replace filters weekly to keep airflow stable.",
			Score:    0.9,
			Metadata: map[string]interface{}{models.MetaKeyFilename: "m1.txt"},
		},
	}
	got := composeResponse("spindle speed", results)
	if !strings.Contains(got, "Source: m1.txt") {
		t.Errorf("response should cite m1.txt: %q", got)
	}
	if !strings.Contains(got, "spindle speed is 10000 RPM") {
		t.Errorf("response should include the matching sentence: %q", got)
	}
}

func TestRelevantSentences_PrefersQueryWords(t *testing.T) {
	text := "The machine has a green enclosure panel. The spindle speed is 10000 RPM under load. Operators must wear ear protection at all times."
	got := relevantSentences(text, "spindle speed")
	if !strings.Contains(got, "spindle speed") {
		t.Errorf("selected sentences = %q, want the spindle sentence first", got)
	}
	if !strings.HasPrefix(got, "The spindle speed") {
		t.Errorf("best-matching sentence should lead: %q", got)
	}
}

func TestRelevantSentences_FallbackTruncates(t *testing.T) {
	// No sentence reaches the minimum length, so the raw text is truncated.
	text := "short. tiny. small."
	got := relevantSentences(text, "anything")
	if got == "" {
		t.Error("fallback should return truncated text, not empty")
	}
}
