// Package export flattens the knowledge store into portable files. Export is
// read-only: it never mutates store state.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat converts a raw string into a Format, failing fast on unknown
// values.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON, FormatCSV, FormatYAML, FormatXLSX:
		return Format(strings.ToLower(s)), nil
	}
	return "", eris.Errorf("unsupported export format: %q", s)
}

// Snapshot is the flattened view of the store written by every format.
type Snapshot struct {
	Metadata  SnapshotMeta       `json:"metadata" yaml:"metadata"`
	Documents []model.Document   `json:"documents" yaml:"documents"`
	Concepts  []model.SCRConcept `json:"concepts" yaml:"concepts"`
}

// SnapshotMeta describes when and from what the snapshot was taken.
type SnapshotMeta struct {
	ExportDate     time.Time `json:"export_date" yaml:"export_date"`
	TotalDocuments int       `json:"total_documents" yaml:"total_documents"`
	TotalConcepts  int       `json:"total_concepts" yaml:"total_concepts"`
}

// Exporter reads the full store contents and writes them in one of the
// supported formats.
type Exporter struct {
	store store.Store
}

func NewExporter(s store.Store) *Exporter {
	return &Exporter{store: s}
}

// Snapshot collects every document and concept by scanning all modules.
// Documents tagged with several modules appear once.
func (e *Exporter) Snapshot(ctx context.Context) (*Snapshot, error) {
	seen := make(map[string]bool)
	var docs []model.Document
	var concepts []model.SCRConcept

	for _, module := range model.AllModules() {
		moduleDocs, err := e.store.GetDocumentsByModule(ctx, module, 0)
		if err != nil {
			return nil, eris.Wrapf(err, "export: documents for module %s", module)
		}
		for _, doc := range moduleDocs {
			if seen[doc.ID] {
				continue
			}
			seen[doc.ID] = true
			docs = append(docs, doc)
		}

		moduleConcepts, err := e.store.GetConceptsByModule(ctx, module)
		if err != nil {
			return nil, eris.Wrapf(err, "export: concepts for module %s", module)
		}
		concepts = append(concepts, moduleConcepts...)
	}

	return &Snapshot{
		Metadata: SnapshotMeta{
			ExportDate:     time.Now().UTC(),
			TotalDocuments: len(docs),
			TotalConcepts:  len(concepts),
		},
		Documents: docs,
		Concepts:  concepts,
	}, nil
}

// Export writes the store snapshot to path in the given format. CSV splits
// into two files next to path; the other formats write a single file.
func (e *Exporter) Export(ctx context.Context, path string, format Format) error {
	snapshot, err := e.Snapshot(ctx)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create directory %s", dir)
		}
	}

	switch format {
	case FormatJSON:
		err = writeJSON(path, snapshot)
	case FormatYAML:
		err = writeYAML(path, snapshot)
	case FormatCSV:
		err = writeCSV(path, snapshot)
	case FormatXLSX:
		err = writeXLSX(path, snapshot)
	default:
		return eris.Errorf("unsupported export format: %q", format)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export: written",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("documents", snapshot.Metadata.TotalDocuments),
		zap.Int("concepts", snapshot.Metadata.TotalConcepts),
	)
	return nil
}

func writeJSON(path string, snapshot *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snapshot); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

func writeYAML(path string, snapshot *Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(snapshot); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return nil
}

var documentHeader = []string{
	"id", "title", "doc_type", "scr_modules", "regulatory_articles",
	"language", "reliability_score", "url", "file_path", "publication_date",
}

var conceptHeader = []string{
	"id", "concept_name", "scr_module", "definition", "formula",
	"regulatory_article", "source_document_id", "confidence_score",
}

func documentRow(doc model.Document) []string {
	modules := make([]string, len(doc.SCRModules))
	for i, m := range doc.SCRModules {
		modules[i] = string(m)
	}
	pubDate := ""
	if doc.PublicationDate != nil {
		pubDate = doc.PublicationDate.Format("2006-01-02")
	}
	return []string{
		doc.ID, doc.Title, string(doc.DocType),
		strings.Join(modules, ";"), strings.Join(doc.RegulatoryArticles, ";"),
		doc.Language, strconv.FormatFloat(doc.ReliabilityScore, 'f', -1, 64),
		doc.URL, doc.FilePath, pubDate,
	}
}

func conceptRow(c model.SCRConcept) []string {
	return []string{
		strconv.FormatInt(c.ID, 10), c.ConceptName, string(c.SCRModule),
		c.Definition, c.Formula, c.RegulatoryArticle, c.SourceDocumentID,
		strconv.FormatFloat(c.ConfidenceScore, 'f', -1, 64),
	}
}

// writeCSV writes two files: <path>.documents.csv and <path>.concepts.csv,
// where <path> has its extension stripped first.
func writeCSV(path string, snapshot *Snapshot) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))

	docRows := make([][]string, 0, len(snapshot.Documents))
	for _, doc := range snapshot.Documents {
		docRows = append(docRows, documentRow(doc))
	}
	if err := writeCSVFile(base+".documents.csv", documentHeader, docRows); err != nil {
		return err
	}

	conceptRows := make([][]string, 0, len(snapshot.Concepts))
	for _, c := range snapshot.Concepts {
		conceptRows = append(conceptRows, conceptRow(c))
	}
	return writeCSVFile(base+".concepts.csv", conceptHeader, conceptRows)
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "export: write header %s", path)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "export: write row %s", path)
		}
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "export: flush %s", path)
}

func writeXLSX(path string, snapshot *Snapshot) error {
	f := xlsx.NewFile()

	docSheet, err := f.AddSheet("Documents")
	if err != nil {
		return eris.Wrap(err, "export: add documents sheet")
	}
	addRow(docSheet, documentHeader)
	for _, doc := range snapshot.Documents {
		addRow(docSheet, documentRow(doc))
	}

	conceptSheet, err := f.AddSheet("Concepts")
	if err != nil {
		return eris.Wrap(err, "export: add concepts sheet")
	}
	addRow(conceptSheet, conceptHeader)
	for _, c := range snapshot.Concepts {
		addRow(conceptSheet, conceptRow(c))
	}

	metaSheet, err := f.AddSheet("Metadata")
	if err != nil {
		return eris.Wrap(err, "export: add metadata sheet")
	}
	addRow(metaSheet, []string{"export_date", snapshot.Metadata.ExportDate.Format(time.RFC3339)})
	addRow(metaSheet, []string{"total_documents", fmt.Sprintf("%d", snapshot.Metadata.TotalDocuments)})
	addRow(metaSheet, []string{"total_concepts", fmt.Sprintf("%d", snapshot.Metadata.TotalConcepts)})

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells []string) {
	row := sheet.AddRow()
	for _, cell := range cells {
		row.AddCell().SetString(cell)
	}
}
