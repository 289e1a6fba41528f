package extract

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// TextExtractor passes plain text through, collapsing runs of blank lines.
type TextExtractor struct{}

func (t *TextExtractor) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var buf strings.Builder
	blank := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			blank = true
			continue
		}
		if buf.Len() > 0 {
			if blank {
				buf.WriteString("\n\n")
			} else {
				buf.WriteString("\n")
			}
		}
		buf.WriteString(line)
		blank = false
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
