// Package ingest coordinates extraction, signal mining and persistence for
// single documents and batch manifests.
package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/solvencykit/scrkb-cli/internal/extract"
	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

// DefaultMaxFileSizeMB is the file size above which ingestion warns about
// possible partial extraction.
const DefaultMaxFileSizeMB = 50

const sourceNameMax = 20

// Overrides carries caller-supplied metadata that always wins over the
// extraction heuristics.
type Overrides struct {
	Title           string
	URL             string
	Language        string
	Reliability     *float64
	PublicationDate *time.Time
}

// Result reports the outcome of one document ingestion. Success reflects the
// document write only; concept persistence is best-effort.
type Result struct {
	Success    bool     `json:"success"`
	DocumentID string   `json:"document_id,omitempty"`
	Title      string   `json:"title,omitempty"`
	Articles   []string `json:"articles,omitempty"`
	Concepts   int      `json:"concepts"`
	Warnings   []string `json:"warnings,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Orchestrator runs the ingestion pipeline: extractor selection, content
// hashing, signal extraction, document upsert and concept mining.
type Orchestrator struct {
	store         store.Store
	factory       *extract.Factory
	miner         *extract.ConceptMiner
	maxFileSizeMB int64
}

// NewOrchestrator wires an Orchestrator over the given store and extractor
// factory. maxFileSizeMB <= 0 selects the default warning threshold.
func NewOrchestrator(s store.Store, factory *extract.Factory, maxFileSizeMB int64) *Orchestrator {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = DefaultMaxFileSizeMB
	}
	return &Orchestrator{
		store:         s,
		factory:       factory,
		miner:         extract.NewConceptMiner(),
		maxFileSizeMB: maxFileSizeMB,
	}
}

// AddDocument ingests a single document. Extraction and store failures are
// folded into the Result; the returned error is reserved for invariant
// violations such as an out-of-range reliability override.
func (o *Orchestrator) AddDocument(ctx context.Context, locator string, docType model.DocType, modules []model.SCRModule, ov Overrides) (*Result, error) {
	result := &Result{}
	log := zap.L().With(zap.String("locator", locator), zap.String("doc_type", string(docType)))

	if !extract.IsURL(locator) {
		info, err := os.Stat(locator)
		if err != nil {
			result.Reason = fmt.Sprintf("source not found: %s", locator)
			log.Warn("ingest: local source missing")
			return result, nil
		}
		if sizeMB := info.Size() / (1 << 20); sizeMB > o.maxFileSizeMB {
			warning := fmt.Sprintf("large file (%dMB), partial extraction possible", sizeMB)
			result.Warnings = append(result.Warnings, warning)
			log.Warn("ingest: large source file", zap.Int64("size_mb", sizeMB))
		}
	}

	extractor, err := o.factory.ForLocator(locator)
	if err != nil {
		result.Reason = fmt.Sprintf("unsupported source: %s", locator)
		log.Warn("ingest: no extractor for locator", zap.Error(err))
		return result, nil
	}

	content, err := extractor.Extract(ctx, locator)
	if err != nil {
		result.Reason = fmt.Sprintf("extraction failed: %v", err)
		log.Warn("ingest: extraction failed", zap.Error(err))
		return result, nil
	}
	result.Warnings = append(result.Warnings, content.Warnings...)

	if strings.TrimSpace(content.Text) == "" {
		result.Reason = "extraction produced no text"
		log.Warn("ingest: no text content extracted")
		return result, nil
	}

	// MD5 is used for change detection and id derivation, not security.
	sum := md5.Sum([]byte(content.Text))
	contentHash := hex.EncodeToString(sum[:])

	articles := extract.ExtractArticles(content.Text)

	sourceName := sanitizeSourceName(locator)
	docID := fmt.Sprintf("%s_%s_%s", docType, sourceName, contentHash[:8])

	title := ov.Title
	if title == "" {
		title = extract.FallbackTitle(content.Metadata.Title, content.Text, genericTitle(locator, sourceName))
	}

	reliability := extract.ReliabilityScore(docType, content.Text)
	if ov.Reliability != nil {
		reliability = *ov.Reliability
	}

	doc, err := model.NewDocument(docID, title, docType, modules, reliability)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: build document for %s", locator)
	}

	if extract.IsURL(locator) {
		doc.URL = locator
	} else {
		doc.FilePath = locator
		doc.URL = ov.URL
	}
	doc.PublicationDate = ov.PublicationDate
	doc.ContentHash = contentHash
	for _, article := range articles {
		doc.AddRegulatoryArticle(article)
	}

	language := ov.Language
	if language == "" {
		language = extract.DetectLanguage(content.Text)
	}
	doc.SetLanguage(language)

	doc.Metadata = buildMetadata(content)

	if err := o.store.UpsertDocument(ctx, doc); err != nil {
		result.Reason = fmt.Sprintf("store write failed: %v", err)
		log.Error("ingest: document write failed", zap.String("document_id", docID), zap.Error(err))
		return result, nil
	}

	result.Success = true
	result.DocumentID = docID
	result.Title = title
	result.Articles = articles
	result.Concepts = o.persistConcepts(ctx, doc, content.Text)

	log.Info("ingest: document stored",
		zap.String("document_id", docID),
		zap.Int("articles", len(articles)),
		zap.Int("concepts", result.Concepts),
	)
	return result, nil
}

// persistConcepts mines and stores concepts for a freshly written document.
// Failures are logged per concept and never affect the document write.
func (o *Orchestrator) persistConcepts(ctx context.Context, doc *model.Document, text string) int {
	stored := 0
	for _, cand := range o.miner.Mine(text, doc.SCRModules) {
		concept, err := model.NewConcept(cand.Name, cand.Module, cand.Definition, cand.Confidence)
		if err != nil {
			zap.L().Warn("ingest: skipping invalid concept candidate",
				zap.String("concept", cand.Name), zap.Error(err))
			continue
		}
		concept.Formula = cand.Formula
		concept.RegulatoryArticle = cand.Article
		concept.SourceDocumentID = doc.ID

		if _, err := o.store.InsertConcept(ctx, concept); err != nil {
			zap.L().Warn("ingest: concept write failed",
				zap.String("concept", cand.Name),
				zap.String("document_id", doc.ID),
				zap.Error(err))
			continue
		}
		stored++
	}
	return stored
}

func buildMetadata(content *extract.Content) map[string]any {
	metadata := map[string]any{
		"word_count":   content.Statistics.WordCount,
		"char_count":   content.Statistics.CharCount,
		"processed_at": time.Now().UTC().Format(time.RFC3339),
	}
	if content.Statistics.PageCount > 0 {
		metadata["page_count"] = content.Statistics.PageCount
		metadata["pages_processed"] = content.Statistics.PagesProcessed
	}
	if content.Statistics.TableCount > 0 {
		metadata["table_count"] = content.Statistics.TableCount
	}
	if content.Statistics.HeadingCount > 0 {
		metadata["heading_count"] = content.Statistics.HeadingCount
	}
	if content.Statistics.LinkCount > 0 {
		metadata["link_count"] = content.Statistics.LinkCount
	}
	if kws := extract.ExtractKeywords(content.Text); len(kws) > 0 {
		metadata["keywords"] = kws
	}
	if content.Metadata.Description != "" {
		metadata["description"] = content.Metadata.Description
	}
	return metadata
}

// sanitizeSourceName derives the id component from the locator: the host
// without "www." for URLs (dots replaced by underscores), the file stem for
// local paths, both capped at 20 characters.
func sanitizeSourceName(locator string) string {
	if extract.IsURL(locator) {
		parsed, err := url.Parse(locator)
		if err != nil || parsed.Host == "" {
			return truncate("unknown_host", sourceNameMax)
		}
		host := strings.TrimPrefix(parsed.Host, "www.")
		return truncate(strings.ReplaceAll(host, ".", "_"), sourceNameMax)
	}
	stem := strings.TrimSuffix(filepath.Base(locator), filepath.Ext(locator))
	return truncate(stem, sourceNameMax)
}

func genericTitle(locator, sourceName string) string {
	if extract.IsURL(locator) {
		return "Web document - " + sourceName
	}
	return "Document - " + sourceName
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
