// Package ingest provides text normalization and chunking for document ingestion.
package ingest

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits normalized text into overlapping character-window chunks,
// preferring sentence or paragraph boundaries near the window end.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap (in bytes).
func NewChunker(size, overlap int) *Chunker {
	return &Chunker{size: size, overlap: overlap}
}

// Chunk splits text into overlapping chunks. Text no longer than the window
// size is returned as a single chunk. Before cutting at the hard window
// boundary, the cut point moves back to the nearest sentence terminator, or
// failing that the nearest paragraph break, provided it lies past the window
// midpoint. Cut points never split a multi-byte rune. Chunks are trimmed;
// empty chunks are dropped.
func (c *Chunker) Chunk(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.size
		if end < len(text) {
			end = runeStart(text, end)
			window := text[start:end]
			if dot := strings.LastIndexByte(window, '.'); dot > c.size/2 {
				end = start + dot + 1
			} else if nl := strings.LastIndexByte(window, '\n'); nl > c.size/2 {
				end = start + nl
			}
		} else {
			end = len(text)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := runeStart(text, end-c.overlap)
		// Forward progress must hold even when overlap >= size.
		if next <= start {
			next = end
			if next <= start {
				_, n := utf8.DecodeRuneInString(text[start:])
				next = start + n
			}
		}
		start = next
	}
	return chunks
}

// runeStart walks i back to the start of the rune it falls inside, so slicing
// at the returned offset never splits a multi-byte encoding.
func runeStart(text string, i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(text) {
		return len(text)
	}
	for i > 0 && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}
