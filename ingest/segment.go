package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"

	ragged "github.com/raggedlab/ragged"
)

// Segmenter is a rule-based sentence boundary detector. It handles ASCII
// sentence punctuation (.!?) with abbreviation and decimal-number awareness,
// plus CJK sentence-ending punctuation (。！？). Returned offsets are exact
// byte offsets into the source text, trimmed past surrounding whitespace.
type Segmenter struct{}

var _ ragged.SentenceSegmenter = Segmenter{}

// NewSegmenter creates a Segmenter.
func NewSegmenter() Segmenter { return Segmenter{} }

// Segment splits text into ordered sentences with exact source offsets.
// Whitespace-only spans are dropped.
func (Segmenter) Segment(text string) []ragged.Sentence {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	boundaries := append(findSentenceBoundaries(text), len(text))

	var sentences []ragged.Sentence
	prev := 0
	for _, b := range boundaries {
		if b <= prev {
			continue
		}
		start, end := trimOffsets(text, prev, b)
		if start < end {
			sentences = append(sentences, ragged.Sentence{
				Text:  text[start:end],
				Start: start,
				End:   end,
			})
		}
		prev = b
	}
	return sentences
}

// trimOffsets narrows [start,end) past leading and trailing whitespace so the
// offsets stay exact against the source text.
func trimOffsets(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation checks if the text ending at position dotPos (the '.')
// is a common abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	// Walk backward to find the start of the word before the dot.
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prevByte := text[dotPos-1]
	nextByte := text[dotPos+1]
	return prevByte >= '0' && prevByte <= '9' && nextByte >= '0' && nextByte <= '9'
}

// findSentenceBoundaries returns increasing byte positions at which the text
// can be split into sentences. The end of the text is not included; callers
// append it.
func findSentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	// Byte offset of each rune position.
	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		// CJK sentence-ending punctuation is always a boundary.
		if r == '。' || r == '！' || r == '？' {
			boundaries = append(boundaries, byteOffsets[i+1])
			continue
		}

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		dotBytePos := byteOffsets[i]

		// Skip decimal numbers like 3.14.
		if r == '.' && isDecimalDot(text, dotBytePos) {
			continue
		}

		// Skip abbreviations like Mr., Dr., etc.
		if r == '.' && isAbbreviation(text, dotBytePos) {
			continue
		}

		// Need whitespace after the punctuation to end a sentence.
		if i+1 < n && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			if runes[i+1] == '\n' {
				boundaries = append(boundaries, byteOffsets[i+1])
			} else if i+2 < n && unicode.IsUpper(runes[i+2]) {
				boundaries = append(boundaries, byteOffsets[i+2])
			} else if i+2 >= n {
				boundaries = append(boundaries, byteOffsets[n])
			}
		}
	}
	return boundaries
}
