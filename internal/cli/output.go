// Package cli provides CLI output formatting for Kiban.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/kiban/internal/engine"
	"github.com/hyperjump/kiban/internal/models"
	"github.com/hyperjump/kiban/pkg/utils"
)

// OutputFormat selects how results are rendered.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes a search response to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (%s mode, confidence %.2f)\n\n",
		len(response.Results), response.QueryTime, response.Mode, response.Confidence)
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Document: %d | Chunk: %d\n",
			i+1, result.Score, result.DocumentID, result.ChunkIndex)
		if name, ok := result.Metadata[models.MetaKeyFilename].(string); ok && name != "" {
			fmt.Fprintf(w, "File: %s\n", name)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Text, 200))
	}
	return nil
}

// WriteAnswer writes a chat answer to w in the given format.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintf(w, "\n%s\n\nConfidence: %.2f | Sources: %d\n",
		answer.Response, answer.Confidence, len(answer.Sources))
	return nil
}

// WriteStatus writes an engine status summary to w in the given format.
func WriteStatus(w io.Writer, status *engine.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	fmt.Fprintf(w, "Documents: %d\nChunks: %d\nMode: %s\nEmbedding available: %v\nStore size: %d bytes\n",
		status.Documents, status.Chunks, status.Mode, status.EmbeddingAvailable, status.StoreSizeBytes)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
