package extract

import (
	"context"
	"strings"
	"testing"
)

func TestTextExtractor_PreservesParagraphBreaks(t *testing.T) {
	input := "First line.\nSecond line.\n\n\nNew paragraph."
	e := &TextExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First line.\nSecond line.\n\nNew paragraph."
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestTextExtractor_WhitespaceOnlyLinesAreBlank(t *testing.T) {
	e := &TextExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader("a\n   \nb"), "ws.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "a\n\nb" {
		t.Errorf("got %q", text)
	}
}

func TestTextExtractor_EmptyInput(t *testing.T) {
	e := &TextExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty result, got %q", text)
	}
}
