package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/extract"
	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

const fixturePage = `<!DOCTYPE html>
<html lang="en">
<head><title>Delegated Regulation on the spread risk submodule</title></head>
<body>
<h1>Spread risk</h1>
<p>Article 176 sets the capital requirement for bonds. See also Article 180 and Art. 45.</p>
<p>The shock is SCR_spread = MV * F_up(rating, duration) under the standard formula.</p>
<p>The insurance regulation adopted by the european commission covers solvency requirements.</p>
</body>
</html>`

func newTestPipeline(t *testing.T) (*Orchestrator, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	factory := extract.NewFactory(extract.NewPDFExtractor(), extract.NewHTMLExtractor(100, 10))
	return NewOrchestrator(s, factory, 0), s
}

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(fixturePage), 0o644))
	return path
}

func TestAddDocument(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	path := writeFixture(t, t.TempDir(), "delegated_regulation.html")

	result, err := orch.AddDocument(ctx, path, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	require.True(t, result.Success, result.Reason)

	assert.True(t, strings.HasPrefix(result.DocumentID, "regulation_eu_delegated_regulation_"), result.DocumentID)
	// stem capped at 20 chars, hash suffix at 8
	parts := strings.Split(result.DocumentID, "_")
	assert.Len(t, parts[len(parts)-1], 8)

	assert.Equal(t, []string{"45", "176", "180"}, result.Articles)
	assert.Equal(t, 1, result.Concepts)

	doc, err := s.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Delegated Regulation on the spread risk submodule", doc.Title)
	assert.Equal(t, "en", doc.Language)
	assert.Equal(t, path, doc.FilePath)
	assert.Len(t, doc.ContentHash, 32)
	assert.Greater(t, doc.Metadata["word_count"], float64(0))
	assert.Contains(t, doc.Metadata["keywords"], "spread")

	concepts, err := s.GetConceptsByModule(ctx, model.ModuleSpread)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Equal(t, result.DocumentID, concepts[0].SourceDocumentID)
	assert.NotEmpty(t, concepts[0].Formula)
}

func TestAddDocument_ReingestReplaces(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	path := writeFixture(t, t.TempDir(), "reg.html")

	first, err := orch.AddDocument(ctx, path, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	require.True(t, first.Success)

	firstDoc, err := s.GetDocument(ctx, first.DocumentID)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	second, err := orch.AddDocument(ctx, path, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.Equal(t, first.DocumentID, second.DocumentID)

	secondDoc, err := s.GetDocument(ctx, second.DocumentID)
	require.NoError(t, err)
	assert.True(t, secondDoc.LastUpdated.After(firstDoc.LastUpdated))

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDocuments)
}

func TestAddDocument_DistinctSourcesDistinctIDs(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	pathA := writeFixture(t, dir, "version_a.html")
	pathB := writeFixture(t, dir, "version_b.html")

	a, err := orch.AddDocument(ctx, pathA, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	b, err := orch.AddDocument(ctx, pathB, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)

	require.True(t, a.Success)
	require.True(t, b.Success)
	assert.NotEqual(t, a.DocumentID, b.DocumentID)

	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDocuments)
}

func TestAddDocument_MissingFile(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	result, err := orch.AddDocument(ctx, filepath.Join(t.TempDir(), "absent.html"),
		model.DocTypeRegulationEU, []model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "source not found")

	// store untouched
	stats, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDocuments)
}

func TestAddDocument_UnsupportedSource(t *testing.T) {
	orch, _ := newTestPipeline(t)

	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	result, err := orch.AddDocument(context.Background(), path,
		model.DocTypeRegulationEU, []model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "unsupported source")
}

func TestAddDocument_EmptyContent(t *testing.T) {
	orch, _ := newTestPipeline(t)

	path := filepath.Join(t.TempDir(), "empty.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body></body></html>"), 0o644))

	result, err := orch.AddDocument(context.Background(), path,
		model.DocTypeRegulationEU, []model.SCRModule{model.ModuleSpread}, Overrides{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Reason, "no text")
}

func TestAddDocument_OverridesWin(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	path := writeFixture(t, t.TempDir(), "reg.html")
	reliability := 0.42
	pub := time.Date(2015, 1, 17, 0, 0, 0, 0, time.UTC)

	result, err := orch.AddDocument(ctx, path, model.DocTypeInternalDoc,
		[]model.SCRModule{model.ModuleSpread}, Overrides{
			Title:           "Curated title",
			Language:        "fr",
			Reliability:     &reliability,
			PublicationDate: &pub,
		})
	require.NoError(t, err)
	require.True(t, result.Success)

	doc, err := s.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Curated title", doc.Title)
	assert.Equal(t, "fr", doc.Language)
	assert.Equal(t, 0.42, doc.ReliabilityScore)
	require.NotNil(t, doc.PublicationDate)
	assert.True(t, doc.PublicationDate.Equal(pub))
}

func TestAddDocument_InvalidReliabilityOverride(t *testing.T) {
	orch, _ := newTestPipeline(t)

	path := writeFixture(t, t.TempDir(), "reg.html")
	bad := 1.5

	_, err := orch.AddDocument(context.Background(), path, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, Overrides{Reliability: &bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAddDocument_ConceptFanOut(t *testing.T) {
	orch, s := newTestPipeline(t)
	ctx := context.Background()

	path := writeFixture(t, t.TempDir(), "reg.html")

	result, err := orch.AddDocument(ctx, path, model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread, model.ModuleEquity}, Overrides{})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 2, result.Concepts)

	spread, err := s.GetConceptsByModule(ctx, model.ModuleSpread)
	require.NoError(t, err)
	equity, err := s.GetConceptsByModule(ctx, model.ModuleEquity)
	require.NoError(t, err)
	require.Len(t, spread, 1)
	require.Len(t, equity, 1)
	assert.Equal(t, spread[0].SourceDocumentID, equity[0].SourceDocumentID)
	assert.Equal(t, spread[0].ConceptName, equity[0].ConceptName)
}

func TestSanitizeSourceName(t *testing.T) {
	cases := []struct {
		name    string
		locator string
		want    string
	}{
		{"url strips www", "https://www.eiopa.europa.eu/guidelines", "eiopa_europa_eu"},
		{"url caps at 20", "https://a-very-long-subdomain.example.com/x", "a-very-long-subdomai"},
		{"file stem", "/data/delegated_reg.pdf", "delegated_reg"},
		{"file stem caps at 20", "/data/a_very_long_document_name.pdf", "a_very_long_document"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, sanitizeSourceName(tc.locator))
		})
	}
}
