package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PPTXExtractor walks a .pptx archive slide by slide and concatenates the
// text of every text-bearing shape, one shape per line. Shapes without text
// (pictures, charts) are skipped silently.
type PPTXExtractor struct{}

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

func (p *PPTXExtractor) Extract(ctx context.Context, r io.Reader, filename string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pptx: %w", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pptx archive: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := slidePathRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var buf strings.Builder
	for _, s := range slides {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		rc, err := s.file.Open()
		if err != nil {
			return "", fmt.Errorf("open slide %d: %w", s.num, err)
		}
		err = slideText(rc, &buf)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("parse slide %d: %w", s.num, err)
		}
	}
	return buf.String(), nil
}

// slideText streams one slide's XML and appends the text of each shape plus a
// trailing newline. Paragraph boundaries within a shape become newlines, the
// same flattening python-pptx style readers apply.
func slideText(r io.Reader, buf *strings.Builder) error {
	dec := xml.NewDecoder(r)

	var shape strings.Builder
	inShape := 0
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp", "txBody":
				if t.Name.Local == "sp" {
					inShape++
				}
			case "t":
				inText = true
			}
		case xml.CharData:
			if inText {
				shape.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inShape > 0 && shape.Len() > 0 && !strings.HasSuffix(shape.String(), "\n") {
					shape.WriteString("\n")
				}
			case "sp":
				if inShape > 0 {
					inShape--
				}
				if text := strings.TrimSpace(shape.String()); text != "" {
					buf.WriteString(text)
					buf.WriteString("\n")
				}
				shape.Reset()
			}
		}
	}
	return nil
}
