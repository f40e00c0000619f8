// Package extract converts uploaded manual files into plain text ready for
// ingestion.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type extractFunc func(content []byte) (string, error)

// extractors maps lowercase file extensions to their extraction routine.
var extractors = map[string]extractFunc{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".xlsx": extractExcel,
	".csv":  extractCSV,
	".txt":  extractPlain,
	".md":   extractPlain,
}

// Supported reports whether ext (with leading dot, any case) has a dedicated
// extraction routine.
func Supported(ext string) bool {
	_, ok := extractors[strings.ToLower(ext)]
	return ok
}

// Extensions returns the supported file extensions, with leading dots.
func Extensions() []string {
	exts := make([]string, 0, len(extractors))
	for ext := range extractors {
		exts = append(exts, ext)
	}
	return exts
}

// ExtractFile reads the file at path and returns its text content. The
// routine is chosen by extension; unknown extensions are treated as plain
// text so bare manuals without a suffix still ingest.
func ExtractFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return Extract(content, filepath.Ext(path))
}

// Extract converts content to plain text using the routine for ext.
// ext includes the leading dot, e.g. ".pdf".
func Extract(content []byte, ext string) (string, error) {
	if fn, ok := extractors[strings.ToLower(ext)]; ok {
		return fn(content)
	}
	return extractPlain(content)
}
