package models

// RetrievalResult is a single retrieved chunk with its relevance score and provenance.
// Scores are cosine similarity (0-1) on the vector path; the lexical path's scores
// are unbounded weighted match counts and are only comparable within one search.
type RetrievalResult struct {
	Text       string                 `json:"text"`
	Score      float64                `json:"score"`
	Metadata   map[string]interface{} `json:"metadata"`
	DocumentID int                    `json:"document_id"`
	ChunkIndex int                    `json:"chunk_index"`
}

// SearchResponse is the envelope returned by the search endpoint.
type SearchResponse struct {
	Query      string             `json:"query"`
	Results    []*RetrievalResult `json:"results"`
	Confidence float64            `json:"confidence"`
	Mode       string             `json:"mode"`
	QueryTime  int64              `json:"query_time_ms"`
}

// Answer is the grounded response envelope handed to the generation collaborator
// (and, with the built-in extractive responder, returned by the chat endpoint).
type Answer struct {
	Response   string             `json:"response"`
	Confidence float64            `json:"confidence"`
	Sources    []*RetrievalResult `json:"sources"`
	SessionID  string             `json:"session_id,omitempty"`
}

// ClearStats reports what a clear operation removed.
type ClearStats struct {
	DocumentsRemoved int `json:"documents_removed"`
	ChunksRemoved    int `json:"chunks_removed"`
}
