// Package models defines core data structures for documents, chunks, and retrieval results.
package models

import "time"

// Chunk is a contiguous slice of a document's normalized text, the retrieval granularity.
// Vector is nil when no embedder was available at ingestion time.
type Chunk struct {
	Text   string    `json:"text"`
	Index  int       `json:"index"`
	Vector []float32 `json:"vector,omitempty"`
}

// Document is one ingested source (a manual, a spreadsheet export, etc.).
// Documents are immutable once created; replacement happens wholesale, keyed by filename.
type Document struct {
	ID        int                    `json:"id"`
	Text      string                 `json:"text"`
	Chunks    []Chunk                `json:"chunks"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// Derived metadata keys set by the ingestion orchestrator.
const (
	MetaKeyFilename    = "filename"
	MetaKeyWordCount   = "word_count"
	MetaKeyCharCount   = "char_count"
	MetaKeyChunkCount  = "chunk_count"
	MetaKeyProcessedAt = "processed_at"
)

// Filename returns the document's filename from metadata, or "unknown".
func (d *Document) Filename() string {
	if d.Metadata != nil {
		if name, ok := d.Metadata[MetaKeyFilename].(string); ok && name != "" {
			return name
		}
	}
	return "unknown"
}

// VectorCount returns the number of chunks carrying an embedding vector.
func (d *Document) VectorCount() int {
	n := 0
	for i := range d.Chunks {
		if d.Chunks[i].Vector != nil {
			n++
		}
	}
	return n
}
