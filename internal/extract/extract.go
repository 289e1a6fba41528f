package extract

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Kind is a closed set of media kinds the service can extract text from.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF
	KindPresentation
	KindImage
	KindDOCX
	KindCSV
	KindMarkdown
	KindHTML
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindPresentation:
		return "presentation"
	case KindImage:
		return "image"
	case KindDOCX:
		return "docx"
	case KindCSV:
		return "csv"
	case KindMarkdown:
		return "markdown"
	case KindHTML:
		return "html"
	case KindText:
		return "text"
	}
	return "unsupported"
}

// ErrUnsupportedKind marks an input whose media kind the service cannot
// handle. Callers must distinguish it from an extraction that succeeded with
// empty text.
var ErrUnsupportedKind = errors.New("unsupported file kind")

// Extractor converts raw document bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, filename string) (string, error)
}

// DetectKind classifies an upload by file extension, falling back to the
// declared content type for extensionless uploads.
func DetectKind(filename, contentType string) Kind {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return KindPDF
	case ".pptx":
		return KindPresentation
	case ".png", ".jpg", ".jpeg":
		return KindImage
	case ".docx":
		return KindDOCX
	case ".csv":
		return KindCSV
	case ".md", ".markdown":
		return KindMarkdown
	case ".html", ".htm":
		return KindHTML
	case ".txt":
		return KindText
	}

	ct := strings.ToLower(contentType)
	switch {
	case ct == "application/pdf":
		return KindPDF
	case ct == "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return KindPresentation
	case strings.HasPrefix(ct, "image/"):
		return KindImage
	case ct == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return KindDOCX
	case ct == "text/csv":
		return KindCSV
	case ct == "text/markdown":
		return KindMarkdown
	case ct == "text/html":
		return KindHTML
	case strings.HasPrefix(ct, "text/"):
		return KindText
	}
	return KindUnsupported
}

// Service dispatches extraction over the closed kind set.
type Service struct {
	ocr *OCRClient
}

func NewService(ocr *OCRClient) *Service {
	return &Service{ocr: ocr}
}

// Extract converts the upload into plain text. It returns ErrUnsupportedKind
// for kinds outside the closed set; any other error means the input itself
// could not be processed and the file should be reported, not the batch
// aborted.
func (s *Service) Extract(ctx context.Context, r io.Reader, filename string, kind Kind) (string, error) {
	ex, err := s.forKind(kind)
	if err != nil {
		return "", err
	}
	return ex.Extract(ctx, r, filename)
}

func (s *Service) forKind(kind Kind) (Extractor, error) {
	switch kind {
	case KindPDF:
		return &PDFExtractor{}, nil
	case KindPresentation:
		return &PPTXExtractor{}, nil
	case KindImage:
		return &ImageExtractor{OCR: s.ocr}, nil
	case KindDOCX:
		return &DOCXExtractor{}, nil
	case KindCSV:
		return &CSVExtractor{}, nil
	case KindMarkdown:
		return &MarkdownExtractor{}, nil
	case KindHTML:
		return &HTMLExtractor{}, nil
	case KindText:
		return &TextExtractor{}, nil
	}
	return nil, ErrUnsupportedKind
}
