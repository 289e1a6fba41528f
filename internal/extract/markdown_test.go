package extract

import (
	"context"
	"strings"
	"testing"
)

func TestMarkdownExtractor_FlattensHeadingsAndBody(t *testing.T) {
	input := "# Photosynthesis\n\nPlants convert light into energy.\n\n## Inputs\n\nWater and carbon dioxide."
	e := &MarkdownExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(input), "bio.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"Photosynthesis", "Plants convert light into energy.", "Inputs", "Water and carbon dioxide."} {
		if !strings.Contains(text, want) {
			t.Errorf("expected output to contain %q, got %q", want, text)
		}
	}
	// Markup itself must not survive.
	if strings.Contains(text, "#") {
		t.Errorf("heading markers leaked into output: %q", text)
	}
}

func TestMarkdownExtractor_NoDuplicatedParagraphText(t *testing.T) {
	input := "Only sentence here."
	e := &MarkdownExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(input), "one.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(text, "Only sentence here."); got != 1 {
		t.Errorf("paragraph text appears %d times: %q", got, text)
	}
}

func TestMarkdownExtractor_ListItems(t *testing.T) {
	input := "- mitochondria\n- chloroplast"
	e := &MarkdownExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(input), "list.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "mitochondria") || !strings.Contains(text, "chloroplast") {
		t.Errorf("list items missing from output: %q", text)
	}
}

func TestMarkdownExtractor_Empty(t *testing.T) {
	e := &MarkdownExtractor{}
	text, err := e.Extract(context.Background(), strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty result, got %q", text)
	}
}
