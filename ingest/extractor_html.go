package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"
)

// HTMLExtractor extracts the readable article text from an HTML document,
// dropping navigation, scripts, and boilerplate.
type HTMLExtractor struct{}

var _ Extractor = HTMLExtractor{}

var localURL = &url.URL{Scheme: "file", Path: "/"}

func (HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), localURL)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return article.TextContent, nil
}
