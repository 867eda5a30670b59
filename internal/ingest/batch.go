package ingest

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// ManifestEntry is one document in a batch manifest.
type ManifestEntry struct {
	Locator         string   `yaml:"locator"`
	DocType         string   `yaml:"doc_type"`
	SCRModules      []string `yaml:"scr_modules"`
	Title           string   `yaml:"title,omitempty"`
	URL             string   `yaml:"url,omitempty"`
	Language        string   `yaml:"language,omitempty"`
	Reliability     *float64 `yaml:"reliability,omitempty"`
	PublicationDate string   `yaml:"publication_date,omitempty"`
}

// Manifest is a YAML batch description.
type Manifest struct {
	Documents []ManifestEntry `yaml:"documents"`
}

// batchItem is a manifest entry with its enums already validated.
type batchItem struct {
	locator   string
	docType   model.DocType
	modules   []model.SCRModule
	overrides Overrides
}

// ItemResult pairs a locator with its ingestion outcome.
type ItemResult struct {
	Locator string `json:"locator"`
	Result  Result `json:"result"`
}

// Report summarizes a batch run.
type Report struct {
	ID        string       `json:"id"`
	StartedAt time.Time    `json:"started_at"`
	Duration  string       `json:"duration"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// LoadManifest reads and validates a YAML batch manifest. Enum values are
// validated up front so typos fail fast instead of surfacing as per-document
// ingestion failures.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read manifest %s", path)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, eris.Wrapf(err, "batch: parse manifest %s", path)
	}
	if len(manifest.Documents) == 0 {
		return nil, eris.Errorf("batch: manifest %s lists no documents", path)
	}

	for i, entry := range manifest.Documents {
		if entry.Locator == "" {
			return nil, eris.Errorf("batch: document %d has no locator", i+1)
		}
		if _, err := model.ParseDocType(entry.DocType); err != nil {
			return nil, eris.Wrapf(err, "batch: document %d (%s)", i+1, entry.Locator)
		}
		if len(entry.SCRModules) == 0 {
			return nil, eris.Errorf("batch: document %d (%s) lists no scr modules", i+1, entry.Locator)
		}
		for _, m := range entry.SCRModules {
			if _, err := model.ParseModule(m); err != nil {
				return nil, eris.Wrapf(err, "batch: document %d (%s)", i+1, entry.Locator)
			}
		}
		if entry.PublicationDate != "" {
			if _, err := time.Parse("2006-01-02", entry.PublicationDate); err != nil {
				return nil, eris.Wrapf(err, "batch: document %d (%s) publication_date", i+1, entry.Locator)
			}
		}
	}
	return &manifest, nil
}

// RunBatch processes manifest entries strictly in order, one at a time. Every
// entry gets a result; an individual failure never aborts the batch.
func (o *Orchestrator) RunBatch(ctx context.Context, manifest *Manifest) (*Report, error) {
	items := make([]batchItem, 0, len(manifest.Documents))
	for _, entry := range manifest.Documents {
		item, err := entry.toItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	report := &Report{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Total:     len(items),
	}

	zap.L().Info("batch: starting", zap.String("report_id", report.ID), zap.Int("total", report.Total))

	for i, item := range items {
		zap.L().Info("batch: processing document",
			zap.Int("index", i+1), zap.Int("total", report.Total), zap.String("locator", item.locator))

		result, err := o.AddDocument(ctx, item.locator, item.docType, item.modules, item.overrides)
		if err != nil {
			result = &Result{Reason: err.Error()}
			zap.L().Error("batch: document rejected", zap.String("locator", item.locator), zap.Error(err))
		}

		if result.Success {
			report.Succeeded++
		} else {
			report.Failed++
		}
		report.Items = append(report.Items, ItemResult{Locator: item.locator, Result: *result})
	}

	report.Duration = time.Since(report.StartedAt).Round(time.Millisecond).String()
	zap.L().Info("batch: finished",
		zap.String("report_id", report.ID),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (e ManifestEntry) toItem() (batchItem, error) {
	docType, err := model.ParseDocType(e.DocType)
	if err != nil {
		return batchItem{}, eris.Wrapf(err, "batch: %s", e.Locator)
	}

	modules := make([]model.SCRModule, 0, len(e.SCRModules))
	for _, m := range e.SCRModules {
		module, err := model.ParseModule(m)
		if err != nil {
			return batchItem{}, eris.Wrapf(err, "batch: %s", e.Locator)
		}
		modules = append(modules, module)
	}

	ov := Overrides{
		Title:       e.Title,
		URL:         e.URL,
		Language:    e.Language,
		Reliability: e.Reliability,
	}
	if e.PublicationDate != "" {
		t, err := time.Parse("2006-01-02", e.PublicationDate)
		if err != nil {
			return batchItem{}, eris.Wrapf(err, "batch: %s publication_date", e.Locator)
		}
		ov.PublicationDate = &t
	}

	return batchItem{locator: e.Locator, docType: docType, modules: modules, overrides: ov}, nil
}
