package prompt

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "kb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestGenerator_Generate_EmptyStore(t *testing.T) {
	g := NewGenerator(newTestStore(t))
	cfg := model.NewPromptConfig(model.ProviderClaudeSonnet, model.LevelExpert, model.ModuleSpread)

	result, err := g.Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Contains(t, result.Prompt, "Sources à rechercher")
	assert.Contains(t, result.Prompt, "Règlement délégué (UE) 2015/35")
	assert.Contains(t, result.Prompt, "Facteurs de stress par notation de crédit")
	assert.Contains(t, result.Prompt, "SCR de spread (risque de crédit)")
	assert.Contains(t, result.Prompt, "3000 mots")
	assert.NotContains(t, result.Prompt, "{scr_module_name}")

	assert.Equal(t, 0, result.Metadata.RelevantDocuments)
	assert.Equal(t, 0, result.Metadata.AvailableConcepts)
	assert.Empty(t, result.Metadata.TopSources)
	assert.Contains(t, result.Recommendations,
		"Peu de sources disponibles: considérez ajouter des documents réglementaires")
}

func TestGenerator_Generate_UsesStoredDocumentsAndConcepts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc, err := model.NewDocument("regulation_eu_eurlex_aaaa1111",
		"Delegated Regulation spread risk", model.DocTypeRegulationEU,
		[]model.SCRModule{model.ModuleSpread}, 0.95)
	require.NoError(t, err)
	doc.RegulatoryArticles = []string{"175", "176", "180", "181"}
	doc.URL = "https://eur-lex.europa.eu/reg/2015/35"
	require.NoError(t, s.UpsertDocument(ctx, doc))

	concept, err := model.NewConcept("facteur de choc", model.ModuleSpread,
		"pourcentage appliqué à la valeur de marché", model.DefaultConfidence)
	require.NoError(t, err)
	_, err = s.InsertConcept(ctx, concept)
	require.NoError(t, err)

	g := NewGenerator(s)
	cfg := model.NewPromptConfig(model.ProviderClaudeSonnet, model.LevelExpert, model.ModuleSpread)

	result, err := g.Generate(ctx, cfg)
	require.NoError(t, err)

	assert.Contains(t, result.Prompt, "Sources prioritaires identifiées")
	assert.Contains(t, result.Prompt, "Delegated Regulation spread risk")
	assert.Contains(t, result.Prompt, "Articles: 175, 176, 180")
	assert.NotContains(t, result.Prompt, "181")
	assert.Contains(t, result.Prompt, "https://eur-lex.europa.eu/reg/2015/35")
	assert.Contains(t, result.Prompt, "**facteur de choc** : pourcentage appliqué à la valeur de marché")

	assert.Equal(t, 1, result.Metadata.RelevantDocuments)
	assert.Equal(t, 1, result.Metadata.AvailableConcepts)
	require.Len(t, result.Metadata.TopSources, 1)
	assert.Equal(t, "regulation_eu", result.Metadata.TopSources[0].DocType)
	assert.Equal(t, []string{"175", "176", "180"}, result.Metadata.TopSources[0].Articles)
}

func TestGenerator_Generate_NormalizesConfig(t *testing.T) {
	g := NewGenerator(newTestStore(t))
	cfg := model.NewPromptConfig(model.ProviderGPT4, model.LevelExpert, model.ModuleEquity)
	cfg.MaxLength = 50

	result, err := g.Generate(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, model.MinPromptLength, result.Config.MaxLength)
	assert.Contains(t, result.Prompt, "500 words")
}

func TestGenerator_Generate_QualityIndicators(t *testing.T) {
	g := NewGenerator(newTestStore(t))
	cfg := model.NewPromptConfig(model.ProviderClaudeSonnet, model.LevelExpert, model.ModuleSpread)

	result, err := g.Generate(context.Background(), cfg)
	require.NoError(t, err)

	q := result.Metadata.Quality
	assert.True(t, q.HasRegulatoryReferences)
	assert.True(t, q.HasFormulas)
	assert.True(t, q.HasExamples)
	assert.InDelta(t, 0.8, q.StructureScore, 0.001)
	assert.Greater(t, result.QualityScore, 0.5)

	words := len(strings.Fields(result.Prompt))
	assert.Equal(t, words, result.Metadata.PromptWords)
	assert.InDelta(t, float64(words)*1.3, result.Metadata.EstimatedTokens, 0.001)
}

func TestComplexityScore(t *testing.T) {
	base := model.NewPromptConfig(model.ProviderClaudeSonnet, model.LevelJunior, model.ModuleSpread)
	base.IncludeFormulas = false
	base.IncludeExamples = false
	base.MaxLength = 2500

	// 0.2*0.4 + 0.5*0.2 = 0.18
	assert.InDelta(t, 0.18, complexityScore(base, 0), 0.001)

	full := model.NewPromptConfig(model.ProviderClaudeSonnet, model.LevelRegulationSpecialist, model.ModuleSpread)
	full.MaxLength = 10000

	// 1.0*0.4 + 0.2 + 0.1 + 0.1 + 0.2, capped at 1.0
	assert.InDelta(t, 1.0, complexityScore(full, 20), 0.001)
}

func TestStructureScore(t *testing.T) {
	assert.InDelta(t, 0.0, structureScore("plain text"), 0.001)
	assert.InDelta(t, 0.3, structureScore("Introduction, formule et calcul"), 0.001)
	assert.InDelta(t, 0.1, structureScore("SYNTHÈSE"), 0.001)
}

func TestUsageRecommendations_ManySources(t *testing.T) {
	cfg := model.NewPromptConfig(model.ProviderGeminiPro, model.LevelJunior, model.ModuleEquity)
	meta := Metadata{
		RelevantDocuments: 7,
		Quality:           QualityIndicators{HasFormulas: true, HasExamples: true},
	}

	recs := usageRecommendations(cfg, meta)
	assert.Contains(t, recs, "Nombreuses sources disponibles: prompt très contextualisé")
	assert.Contains(t, recs, "Niveau junior: n'hésitez pas à demander des clarifications supplémentaires")
	assert.Contains(t, recs, "Attention aux évolutions du dampener (±17% vs ±10%)")
	assert.NotContains(t, recs, "Demandez explicitement des formules si nécessaire")
}
