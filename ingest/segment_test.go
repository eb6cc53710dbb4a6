package ingest

import (
	"testing"
)

func TestSegmentBasicSentences(t *testing.T) {
	seg := NewSegmenter()
	got := seg.Segment("A. B. C.")

	want := []string{"A.", "B.", "C."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i, s := range got {
		if s.Text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, s.Text, want[i])
		}
	}
}

func TestSegmentExactOffsets(t *testing.T) {
	seg := NewSegmenter()
	text := "First sentence here. Second one follows!  Third?"
	for i, s := range seg.Segment(text) {
		if text[s.Start:s.End] != s.Text {
			t.Errorf("sentence %d: source span %q != text %q", i, text[s.Start:s.End], s.Text)
		}
	}
}

func TestSegmentAbbreviationsAreNotBoundaries(t *testing.T) {
	seg := NewSegmenter()
	got := seg.Segment("Dr. Smith met Mr. Jones. They talked.")

	want := []string{"Dr. Smith met Mr. Jones.", "They talked."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i, s := range got {
		if s.Text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, s.Text, want[i])
		}
	}
}

func TestSegmentDecimalsAreNotBoundaries(t *testing.T) {
	seg := NewSegmenter()
	got := seg.Segment("Pi is 3.14 roughly. It costs $1.50 today.")

	want := []string{"Pi is 3.14 roughly.", "It costs $1.50 today."}
	if len(got) != len(want) {
		t.Fatalf("got %d sentences, want %d: %v", len(got), len(want), got)
	}
	for i, s := range got {
		if s.Text != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, s.Text, want[i])
		}
	}
}

func TestSegmentLowercaseContinuation(t *testing.T) {
	// Punctuation followed by a lowercase word does not end the sentence.
	seg := NewSegmenter()
	got := seg.Segment("ver. two shipped. Done.")
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
	if got[0].Text != "ver. two shipped." {
		t.Errorf("first sentence = %q", got[0].Text)
	}
}

func TestSegmentCJKPunctuation(t *testing.T) {
	seg := NewSegmenter()
	text := "これは文です。これも文です！"
	got := seg.Segment(text)
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
	for i, s := range got {
		if text[s.Start:s.End] != s.Text {
			t.Errorf("sentence %d: source span %q != text %q", i, text[s.Start:s.End], s.Text)
		}
	}
}

func TestSegmentNewlineBoundary(t *testing.T) {
	seg := NewSegmenter()
	got := seg.Segment("One line.\nnext line.")
	if len(got) != 2 {
		t.Fatalf("got %d sentences, want 2: %v", len(got), got)
	}
	if got[0].Text != "One line." || got[1].Text != "next line." {
		t.Errorf("sentences = %q, %q", got[0].Text, got[1].Text)
	}
}

func TestSegmentEmptyAndWhitespace(t *testing.T) {
	seg := NewSegmenter()
	if got := seg.Segment(""); got != nil {
		t.Errorf("empty text: got %v, want nil", got)
	}
	if got := seg.Segment("   \n\t "); got != nil {
		t.Errorf("whitespace text: got %v, want nil", got)
	}
}

func TestSegmentNoTerminalPunctuation(t *testing.T) {
	seg := NewSegmenter()
	got := seg.Segment("no punctuation at all")
	if len(got) != 1 {
		t.Fatalf("got %d sentences, want 1: %v", len(got), got)
	}
	if got[0].Text != "no punctuation at all" {
		t.Errorf("sentence = %q", got[0].Text)
	}
}
