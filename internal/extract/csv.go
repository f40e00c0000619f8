package extract

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// extractCSV joins each record with tabs, one record per line.
func extractCSV(content []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse CSV: %w", err)
	}
	lines := make([]string, len(records))
	for i, record := range records {
		lines[i] = strings.Join(record, "\t")
	}
	return strings.Join(lines, "\n"), nil
}
