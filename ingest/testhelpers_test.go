package ingest

import (
	"fmt"
	"strings"
)

// wordCodec tokenizes on whitespace; each distinct word gets a stable id.
// Decode joins words with single spaces, so encode→decode round-trips
// single-spaced text exactly.
type wordCodec struct {
	words []string
	index map[string]int
}

func newWordCodec() *wordCodec {
	return &wordCodec{index: make(map[string]int)}
}

func (c *wordCodec) Encode(text string) ([]int, error) {
	fields := strings.Fields(text)
	ids := make([]int, 0, len(fields))
	for _, w := range fields {
		id, ok := c.index[w]
		if !ok {
			id = len(c.words)
			c.index[w] = id
			c.words = append(c.words, w)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *wordCodec) Decode(ids []int) (string, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(c.words) {
			return "", fmt.Errorf("unknown token id %d", id)
		}
		parts[i] = c.words[id]
	}
	return strings.Join(parts, " "), nil
}

func (c *wordCodec) Count(text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// fixedCounter reports the same token count for every text.
type fixedCounter struct{ n int }

func (f fixedCounter) Encode(string) ([]int, error)  { return nil, fmt.Errorf("not implemented") }
func (f fixedCounter) Decode([]int) (string, error)  { return "", fmt.Errorf("not implemented") }
func (f fixedCounter) Count(string) (int, error)     { return f.n, nil }
