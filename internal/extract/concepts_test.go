package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

func TestConceptMiner(t *testing.T) {
	miner := NewConceptMiner()

	t.Run("label pattern with article window", func(t *testing.T) {
		text := "Under Article 176, the facteur de risque : applied to the market value of the bond exposure."
		candidates := miner.Mine(text, []model.SCRModule{model.ModuleSpread})
		require.Len(t, candidates, 1)
		assert.Equal(t, "facteur de risque", candidates[0].Name)
		assert.Equal(t, model.ModuleSpread, candidates[0].Module)
		assert.Equal(t, "176", candidates[0].Article)
		assert.Empty(t, candidates[0].Formula)
		assert.InDelta(t, model.DefaultConfidence, candidates[0].Confidence, 1e-9)
	})

	t.Run("formula pattern keeps formula", func(t *testing.T) {
		text := "The capital charge is SCR_spread = MV * F_up(rating, duration)"
		candidates := miner.Mine(text, []model.SCRModule{model.ModuleSpread})
		require.Len(t, candidates, 1)
		assert.Equal(t, "SCR spread", candidates[0].Name)
		assert.Equal(t, "MV * F_up(rating, duration)", candidates[0].Formula)
	})

	t.Run("lowercase formula matches", func(t *testing.T) {
		text := "On note scr_marche = somme des chocs pondérés par corrélation"
		candidates := miner.Mine(text, []model.SCRModule{model.ModuleMarketGlobal})
		require.Len(t, candidates, 1)
		assert.Equal(t, "SCR marche", candidates[0].Name)
		assert.Equal(t, "somme des chocs pondérés par corrélation", candidates[0].Formula)
	})

	t.Run("fans out across modules", func(t *testing.T) {
		text := "Duration modifiée : mesure de la sensibilité du prix aux taux."
		candidates := miner.Mine(text, []model.SCRModule{model.ModuleSpread, model.ModuleInterestRate})
		require.Len(t, candidates, 2)
		assert.Equal(t, model.ModuleSpread, candidates[0].Module)
		assert.Equal(t, model.ModuleInterestRate, candidates[1].Module)
		assert.Equal(t, candidates[0].Name, candidates[1].Name)
	})

	t.Run("rejects markup in matches", func(t *testing.T) {
		text := "stress factor : <span>ten percent of</span> value"
		assert.Empty(t, miner.Mine(text, []model.SCRModule{model.ModuleEquity}))
	})

	t.Run("rejects short definitions", func(t *testing.T) {
		assert.Empty(t, miner.Mine("rating : AAA", []model.SCRModule{model.ModuleSpread}))
	})

	t.Run("no modules yields nothing", func(t *testing.T) {
		text := "facteur de risque : applied to the exposure value of the position"
		assert.Empty(t, miner.Mine(text, nil))
	})
}
