package ingest

import (
	"strings"
	"testing"
)

func TestContentTypeFromExtension(t *testing.T) {
	cases := []struct {
		ext  string
		want ContentType
	}{
		{".md", TypeMarkdown},
		{"markdown", TypeMarkdown},
		{".HTML", TypeHTML},
		{"htm", TypeHTML},
		{".pdf", TypePDF},
		{".txt", TypePlainText},
		{"", TypePlainText},
		{".docx", TypePlainText},
	}
	for _, tc := range cases {
		if got := ContentTypeFromExtension(tc.ext); got != tc.want {
			t.Errorf("ContentTypeFromExtension(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}

func TestDefaultExtractorsCoverAllTypes(t *testing.T) {
	extractors := DefaultExtractors()
	for _, ct := range []ContentType{TypePlainText, TypeMarkdown, TypeHTML, TypePDF} {
		if extractors[ct] == nil {
			t.Errorf("no extractor registered for %q", ct)
		}
	}
}

func TestPlainTextExtractor(t *testing.T) {
	got, err := PlainTextExtractor{}.Extract([]byte("hello\nworld"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello\nworld" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdownExtractorStripsFormatting(t *testing.T) {
	src := "# Title\n\nSome **bold** and *italic* text with `code`.\n\n- first item\n- second item\n"
	got, err := NewMarkdownExtractor().Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	for _, marker := range []string{"#", "**", "*", "`", "- "} {
		if strings.Contains(got, marker) {
			t.Errorf("output still contains markup %q: %q", marker, got)
		}
	}
	for _, want := range []string{"Title", "Some bold and italic text with code.", "first item", "second item"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestMarkdownExtractorKeepsCodeBlockContent(t *testing.T) {
	src := "before\n\n```\nx := 1\n```\n\nafter\n"
	got, err := NewMarkdownExtractor().Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, want := range []string{"before", "x := 1", "after"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "```") {
		t.Errorf("output still contains fence: %q", got)
	}
}

func TestMarkdownExtractorCollapsesBlankLines(t *testing.T) {
	src := "one\n\n\n\n\ntwo\n"
	got, err := NewMarkdownExtractor().Extract([]byte(src))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("blank lines not collapsed: %q", got)
	}
}
