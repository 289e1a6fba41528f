package extract

import (
	"context"
	"strings"
	"testing"
)

func TestCSVExtractor_LabelsCellsWithHeaders(t *testing.T) {
	in := "name,capital\nFrance,Paris\nJapan,Tokyo\n"

	e := &CSVExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(in), "capitals.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Headers: name, capital\nname: France, capital: Paris\nname: Japan, capital: Tokyo\n"
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestCSVExtractor_RaggedRows(t *testing.T) {
	// Rows longer than the header row keep their trailing cells unlabeled;
	// shorter rows are fine too.
	in := "a,b\n1,2,3\n4\n"

	e := &CSVExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(in), "ragged.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Headers: a, b\na: 1, b: 2, 3\na: 4\n"
	if text != want {
		t.Errorf("expected %q, got %q", want, text)
	}
}

func TestCSVExtractor_LazyQuotes(t *testing.T) {
	in := "note\nsaid \"hi\" there\n"

	e := &CSVExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(in), "quotes.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, `"hi"`) {
		t.Errorf("bare quotes should survive extraction, got %q", text)
	}
}

func TestCSVExtractor_EmptyInput(t *testing.T) {
	e := &CSVExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(""), "empty.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}
