// Package extract turns raw regulatory sources (PDF files, HTML files, web
// pages) into normalized text plus structural metadata, and runs the
// pattern-based signal and concept heuristics over that text.
package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// Metadata carries document-level metadata reported by an extractor.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
}

// Statistics carries content counters reported by an extractor.
type Statistics struct {
	PageCount      int `json:"page_count,omitempty"`
	PagesProcessed int `json:"pages_processed,omitempty"`
	WordCount      int `json:"word_count"`
	CharCount      int `json:"char_count"`
	TableCount     int `json:"table_count,omitempty"`
	LinkCount      int `json:"link_count,omitempty"`
	HeadingCount   int `json:"heading_count,omitempty"`
}

// Table is a structural table extracted from a document.
type Table struct {
	Index int        `json:"index"`
	Rows  [][]string `json:"rows"`
}

// Heading is a structural heading extracted from a document.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Link is an outbound link collected from an HTML document.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Content is the normalized extraction result handed to the ingestion
// orchestrator. Warnings signal degraded extraction (page cap hit, skipped
// pages); they never fail the extraction as a whole.
type Content struct {
	Text       string     `json:"text_content"`
	Metadata   Metadata   `json:"metadata"`
	Statistics Statistics `json:"statistics"`
	Tables     []Table    `json:"tables,omitempty"`
	Headings   []Heading  `json:"headings,omitempty"`
	Links      []Link     `json:"links,omitempty"`
	Warnings   []string   `json:"warnings,omitempty"`
}

// Extractor produces normalized content from a source locator.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, locator string) (*Content, error)
}

// Factory routes a locator to the extractor that handles it. Routing is a
// pure function of the locator shape (URL scheme or file extension) and never
// inspects content.
type Factory struct {
	pdf  *PDFExtractor
	html *HTMLExtractor
}

// NewFactory builds a Factory over the two concrete extractors.
func NewFactory(pdf *PDFExtractor, html *HTMLExtractor) *Factory {
	return &Factory{pdf: pdf, html: html}
}

// ForLocator selects the extractor for the locator, or fails with
// ErrUnsupportedSource before any I/O happens.
func (f *Factory) ForLocator(locator string) (Extractor, error) {
	if IsURL(locator) {
		return f.html, nil
	}
	lower := strings.ToLower(locator)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return f.pdf, nil
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return f.html, nil
	}
	return nil, eris.Wrapf(model.ErrUnsupportedSource, "no extractor for %q", locator)
}

// IsURL reports whether the locator is a fetchable http(s) URL.
func IsURL(locator string) bool {
	return strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://")
}
