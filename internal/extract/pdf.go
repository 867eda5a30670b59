package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// DefaultMaxPDFPages bounds how many pages a single extraction will read.
const DefaultMaxPDFPages = 200

// PDFExtractor reads local PDF files. Extraction is capped at MaxPages;
// hitting the cap degrades to partial extraction with a warning. Per-page
// read errors are swallowed with a warning: the extraction succeeds as long
// as at least one page yields text.
type PDFExtractor struct {
	MaxPages int
}

// NewPDFExtractor creates a PDFExtractor with the default page cap.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{MaxPages: DefaultMaxPDFPages}
}

func (e *PDFExtractor) Name() string { return "pdf" }

// Extract reads the PDF at path and returns its normalized text and page
// statistics.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*Content, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(model.ErrNotFound, "pdf: %s", path)
		}
		return nil, eris.Wrapf(err, "pdf: stat %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, eris.Wrapf(model.ErrUnsupportedSource, "pdf: %s is not a .pdf file", path)
	}

	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pdf: open %s", path)
	}
	defer func() { _ = file.Close() }()

	content := &Content{}

	maxPages := e.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPDFPages
	}

	totalPages := reader.NumPage()
	pagesToProcess := totalPages
	if totalPages > maxPages {
		pagesToProcess = maxPages
		content.Warnings = append(content.Warnings,
			fmt.Sprintf("large document (%d pages), partial extraction of first %d", totalPages, maxPages))
		zap.L().Warn("pdf: page cap reached, partial extraction",
			zap.String("path", path),
			zap.Int("pages", totalPages),
			zap.Int("cap", maxPages),
		)
	}

	var b strings.Builder
	for i := 1; i <= pagesToProcess; i++ {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "pdf: extraction canceled")
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			content.Warnings = append(content.Warnings, fmt.Sprintf("page %d: %v", i, err))
			zap.L().Warn("pdf: page extraction failed, skipping",
				zap.String("path", path), zap.Int("page", i), zap.Error(err))
			continue
		}
		cleaned := normalizeWhitespace(strings.ReplaceAll(text, "\x00", ""))
		if cleaned != "" {
			b.WriteString(cleaned)
			b.WriteString("\n")
		}
	}

	content.Text = b.String()
	content.Statistics = Statistics{
		PageCount:      totalPages,
		PagesProcessed: pagesToProcess,
		WordCount:      len(strings.Fields(content.Text)),
		CharCount:      len(content.Text),
	}

	zap.L().Info("pdf: extracted",
		zap.String("path", path),
		zap.Int("pages", pagesToProcess),
		zap.Int("words", content.Statistics.WordCount),
	)
	return content, nil
}

// normalizeWhitespace collapses runs of whitespace within each line and
// drops blank lines, keeping line structure for title detection.
func normalizeWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
