package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

func newPopulatedStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(ctx))

	spread, err := model.NewDocument("regulation_eu_eurlex_aaaa1111",
		"Delegated Regulation spread module", model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, 0.95)
	require.NoError(t, err)
	spread.RegulatoryArticles = []string{"175", "176"}
	require.NoError(t, s.UpsertDocument(ctx, spread))

	// tagged with two modules, must appear once in the snapshot
	multi, err := model.NewDocument("directive_eurlex_bbbb2222",
		"Solvency II framework directive", model.DocTypeDirective,
		[]model.SCRModule{model.ModuleSpread, model.ModuleInterestRate}, 0.9)
	require.NoError(t, err)
	require.NoError(t, s.UpsertDocument(ctx, multi))

	concept, err := model.NewConcept("SCR spread", model.ModuleSpread,
		"capital charge for credit spread widening", model.DefaultConfidence)
	require.NoError(t, err)
	concept.Formula = "MV * F_up(rating, duration)"
	concept.SourceDocumentID = spread.ID
	_, err = s.InsertConcept(ctx, concept)
	require.NoError(t, err)

	return s
}

func TestParseFormat(t *testing.T) {
	for _, raw := range []string{"json", "CSV", "yaml", "xlsx"} {
		_, err := ParseFormat(raw)
		assert.NoError(t, err, raw)
	}

	_, err := ParseFormat("parquet")
	assert.Error(t, err)
}

func TestExporter_Snapshot_DeduplicatesDocuments(t *testing.T) {
	s := newPopulatedStore(t)
	e := NewExporter(s)

	snapshot, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snapshot.Metadata.TotalDocuments)
	assert.Equal(t, 1, snapshot.Metadata.TotalConcepts)
	assert.Len(t, snapshot.Documents, 2)

	ids := map[string]int{}
	for _, doc := range snapshot.Documents {
		ids[doc.ID]++
	}
	assert.Equal(t, 1, ids["directive_eurlex_bbbb2222"])
}

func TestExporter_Export_JSON(t *testing.T) {
	s := newPopulatedStore(t)
	e := NewExporter(s)

	path := filepath.Join(t.TempDir(), "kb.json")
	require.NoError(t, e.Export(context.Background(), path, FormatJSON))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Snapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, 2, got.Metadata.TotalDocuments)
	assert.Len(t, got.Documents, 2)
	require.Len(t, got.Concepts, 1)
	assert.Equal(t, "SCR spread", got.Concepts[0].ConceptName)
	assert.Equal(t, "MV * F_up(rating, duration)", got.Concepts[0].Formula)
}

func TestExporter_Export_YAML(t *testing.T) {
	s := newPopulatedStore(t)
	e := NewExporter(s)

	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, e.Export(context.Background(), path, FormatYAML))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &got))
	meta, ok := got["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, meta["total_documents"])
	assert.Equal(t, 1, meta["total_concepts"])
}

func TestExporter_Export_CSV_WritesTwoFiles(t *testing.T) {
	s := newPopulatedStore(t)
	e := NewExporter(s)

	dir := t.TempDir()
	path := filepath.Join(dir, "kb.csv")
	require.NoError(t, e.Export(context.Background(), path, FormatCSV))

	docFile, err := os.Open(filepath.Join(dir, "kb.documents.csv"))
	require.NoError(t, err)
	defer docFile.Close()
	docRows, err := csv.NewReader(docFile).ReadAll()
	require.NoError(t, err)
	require.Len(t, docRows, 3)
	assert.Equal(t, documentHeader, docRows[0])

	conceptFile, err := os.Open(filepath.Join(dir, "kb.concepts.csv"))
	require.NoError(t, err)
	defer conceptFile.Close()
	conceptRows, err := csv.NewReader(conceptFile).ReadAll()
	require.NoError(t, err)
	require.Len(t, conceptRows, 2)
	assert.Equal(t, "SCR spread", conceptRows[1][1])
	assert.Equal(t, "spread", conceptRows[1][2])
}

func TestExporter_Export_XLSX(t *testing.T) {
	s := newPopulatedStore(t)
	e := NewExporter(s)

	path := filepath.Join(t.TempDir(), "kb.xlsx")
	require.NoError(t, e.Export(context.Background(), path, FormatXLSX))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)

	docs := f.Sheet["Documents"]
	require.NotNil(t, docs)
	assert.Len(t, docs.Rows, 3)

	concepts := f.Sheet["Concepts"]
	require.NotNil(t, concepts)
	require.Len(t, concepts.Rows, 2)
	assert.Equal(t, "SCR spread", concepts.Rows[1].Cells[1].String())
}

func TestDocumentRow_FormatsOptionalFields(t *testing.T) {
	doc, err := model.NewDocument("regulation_eu_eurlex_cccc3333", "Row test",
		model.DocTypeRegulationEU, []model.SCRModule{model.ModuleSpread, model.ModuleEquity}, 0.85)
	require.NoError(t, err)
	doc.RegulatoryArticles = []string{"45", "180"}

	row := documentRow(*doc)
	require.Len(t, row, len(documentHeader))
	assert.Equal(t, "spread;equity", row[3])
	assert.Equal(t, "45;180", row[4])
	assert.Equal(t, "0.85", row[6])
	assert.Equal(t, "", row[9])
}
