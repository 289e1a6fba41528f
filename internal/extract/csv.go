package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor flattens tabular data into labeled rows. Each data row becomes
// one "header: cell, header: cell" line so the text stays meaningful when a
// question references a column by name.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return "", nil
	}

	// First row is headers.
	headers := records[0]

	var b strings.Builder
	b.WriteString("Headers: " + strings.Join(headers, ", ") + "\n")
	for _, row := range records[1:] {
		for j, cell := range row {
			if j < len(headers) {
				b.WriteString(headers[j] + ": " + cell)
			} else {
				b.WriteString(cell)
			}
			if j < len(row)-1 {
				b.WriteString(", ")
			}
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}
