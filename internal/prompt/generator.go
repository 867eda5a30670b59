package prompt

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/solvencykit/scrkb-cli/internal/model"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

const (
	maxSourceDocs    = 5
	maxTopSources    = 3
	tokensPerWord    = 1.3
	minStoreConcepts = 5
)

// SourceRef summarizes a document cited by a generated prompt.
type SourceRef struct {
	Title       string   `json:"title"`
	DocType     string   `json:"type"`
	Reliability float64  `json:"reliability"`
	Articles    []string `json:"articles"`
}

// QualityIndicators are cheap textual checks over the rendered prompt.
type QualityIndicators struct {
	HasRegulatoryReferences bool    `json:"has_regulatory_references"`
	HasFormulas             bool    `json:"has_formulas"`
	HasExamples             bool    `json:"has_examples"`
	StructureScore          float64 `json:"structure_score"`
}

// Metadata describes a generated prompt and the store context behind it.
type Metadata struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	PromptChars       int               `json:"prompt_length_chars"`
	PromptWords       int               `json:"prompt_length_words"`
	EstimatedTokens   float64           `json:"estimated_tokens"`
	ComplexityScore   float64           `json:"complexity_score"`
	RelevantDocuments int               `json:"relevant_documents"`
	AvailableConcepts int               `json:"available_concepts"`
	TopSources        []SourceRef       `json:"top_sources"`
	Quality           QualityIndicators `json:"quality_indicators"`
}

// Result is a rendered prompt with its metadata, quality score, and usage
// recommendations.
type Result struct {
	Prompt          string             `json:"prompt"`
	Config          model.PromptConfig `json:"config"`
	Metadata        Metadata           `json:"metadata"`
	Recommendations []string           `json:"usage_recommendations"`
	QualityScore    float64            `json:"quality_score"`
}

// Generator assembles prompts from the template library and the store.
// Store access is read-only.
type Generator struct {
	store   store.Store
	library *Library
}

func NewGenerator(s store.Store) *Generator {
	return &Generator{store: s, library: NewLibrary()}
}

// Library exposes the underlying template library for inspection.
func (g *Generator) Library() *Library {
	return g.library
}

// Generate renders the prompt for cfg, enriched with the module's documents
// and concepts. Out-of-range config fields clamp before use.
func (g *Generator) Generate(ctx context.Context, cfg model.PromptConfig) (*Result, error) {
	cfg.Normalize()

	zap.L().Info("prompt: generating",
		zap.String("provider", string(cfg.AIProvider)),
		zap.String("module", string(cfg.SCRModule)),
		zap.String("level", string(cfg.ExpertiseLevel)),
	)

	docs, err := g.store.GetDocumentsByModule(ctx, cfg.SCRModule, 0)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: documents for module %s", cfg.SCRModule)
	}
	concepts, err := g.store.GetConceptsByModule(ctx, cfg.SCRModule)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: concepts for module %s", cfg.SCRModule)
	}

	tmpl := g.library.Get(cfg.AIProvider, cfg.ExpertiseLevel)
	if tmpl == nil {
		return nil, eris.Errorf("prompt: no template for %s/%s", cfg.AIProvider, cfg.ExpertiseLevel)
	}

	vars := g.contextData(cfg, docs, concepts)
	if missing := tmpl.MissingVariables(vars); len(missing) > 0 {
		return nil, eris.Errorf("prompt: template %s missing variables %v", tmpl.Name, missing)
	}
	rendered := tmpl.Render(vars)

	meta := buildMetadata(cfg, rendered, docs, concepts)
	result := &Result{
		Prompt:          rendered,
		Config:          cfg,
		Metadata:        meta,
		Recommendations: usageRecommendations(cfg, meta),
		QualityScore:    qualityScore(rendered, meta),
	}

	zap.L().Info("prompt: generated",
		zap.Int("chars", meta.PromptChars),
		zap.Float64("quality", result.QualityScore),
	)
	return result, nil
}

func (g *Generator) contextData(cfg model.PromptConfig, docs []model.Document, concepts []model.SCRConcept) map[string]string {
	return map[string]string{
		"experience_years":       "15",
		"specialization":         fmt.Sprintf("modélisation des risques de %s", cfg.SCRModule),
		"scr_module_name":        moduleFrenchName(cfg.SCRModule),
		"regulatory_sources":     formatRegulatorySources(docs),
		"key_concepts":           formatKeyConcepts(cfg.SCRModule, concepts),
		"structure_requirements": structureRequirements(cfg.ExpertiseLevel),
		"concrete_examples":      moduleExamples(cfg.SCRModule),
		"quality_requirements":   qualityRequirements(cfg.AIProvider),
		"word_count":             strconv.Itoa(cfg.MaxLength),
	}
}

func buildMetadata(cfg model.PromptConfig, rendered string, docs []model.Document, concepts []model.SCRConcept) Metadata {
	words := len(strings.Fields(rendered))

	top := make([]SourceRef, 0, maxTopSources)
	for i, doc := range docs {
		if i >= maxTopSources {
			break
		}
		articles := doc.RegulatoryArticles
		if len(articles) > 3 {
			articles = articles[:3]
		}
		top = append(top, SourceRef{
			Title:       doc.Title,
			DocType:     string(doc.DocType),
			Reliability: doc.ReliabilityScore,
			Articles:    articles,
		})
	}

	return Metadata{
		GeneratedAt:       time.Now().UTC(),
		PromptChars:       len(rendered),
		PromptWords:       words,
		EstimatedTokens:   float64(words) * tokensPerWord,
		ComplexityScore:   complexityScore(cfg, len(docs)),
		RelevantDocuments: len(docs),
		AvailableConcepts: len(concepts),
		TopSources:        top,
		Quality: QualityIndicators{
			HasRegulatoryReferences: hasNumericToken(rendered),
			HasFormulas:             strings.Contains(rendered, "SCR") && (strings.Contains(rendered, "=") || strings.Contains(rendered, "×")),
			HasExamples:             strings.Contains(strings.ToLower(rendered), "exemple") || strings.Contains(strings.ToLower(rendered), "example"),
			StructureScore:          structureScore(rendered),
		},
	}
}

// complexityScore grades the generation in [0,1] from the audience level,
// the requested length, the enabled options, and the available documents.
func complexityScore(cfg model.PromptConfig, docCount int) float64 {
	levelScores := map[model.ExpertiseLevel]float64{
		model.LevelJunior:               0.2,
		model.LevelConfirmed:            0.5,
		model.LevelExpert:               0.8,
		model.LevelRegulationSpecialist: 1.0,
	}
	levelScore := 0.5
	if s, ok := levelScores[cfg.ExpertiseLevel]; ok {
		levelScore = s
	}

	score := levelScore * 0.4
	score += min(float64(cfg.MaxLength)/5000, 1.0) * 0.2
	if cfg.IncludeFormulas {
		score += 0.1
	}
	if cfg.IncludeExamples {
		score += 0.1
	}
	score += min(float64(docCount)/10, 1.0) * 0.2

	return min(score, 1.0)
}

var structureIndicators = []string{
	"synthèse", "introduction", "méthodologie", "formule", "calcul",
	"exemple", "règlement", "article", "référence", "conclusion",
}

func structureScore(rendered string) float64 {
	lower := strings.ToLower(rendered)
	found := 0
	for _, indicator := range structureIndicators {
		if strings.Contains(lower, indicator) {
			found++
		}
	}
	return float64(found) / float64(len(structureIndicators))
}

func hasNumericToken(rendered string) bool {
	for _, token := range strings.Fields(rendered) {
		allDigits := len(token) > 0
		for _, r := range token {
			if !unicode.IsDigit(r) {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	return false
}

func qualityScore(rendered string, meta Metadata) float64 {
	score := 0.0

	length := len(rendered)
	switch {
	case length >= 1000 && length <= 5000:
		score += 0.3
	case length > 500:
		score += 0.1
	}

	if meta.Quality.HasRegulatoryReferences {
		score += 0.2
	}
	if meta.Quality.HasFormulas {
		score += 0.2
	}
	if meta.Quality.HasExamples {
		score += 0.1
	}
	score += meta.Quality.StructureScore * 0.2

	return min(score, 1.0)
}

func usageRecommendations(cfg model.PromptConfig, meta Metadata) []string {
	var recs []string

	providerRecs := map[model.AIProvider][]string{
		model.ProviderClaudeSonnet: {
			"Claude Sonnet excelle pour ce type de prompt technique",
			"Utilisez le contexte étendu pour inclure des documents sources",
			"Demandez des clarifications si les formules sont complexes",
		},
		model.ProviderClaudeOpus: {
			"Claude Opus excelle pour ce type de prompt technique",
			"Utilisez le contexte étendu pour inclure des documents sources",
			"Demandez des clarifications si les formules sont complexes",
		},
		model.ProviderGPT4: {
			"GPT-4 excellent pour la structuration technique",
			"Spécifiez le format de sortie désiré",
			"Validez les calculs numériques indépendamment",
		},
		model.ProviderGPT4Turbo: {
			"GPT-4 excellent pour la structuration technique",
			"Spécifiez le format de sortie désiré",
			"Validez les calculs numériques indépendamment",
		},
		model.ProviderGeminiPro: {
			"Gemini Pro bon pour l'approche pédagogique",
			"Exploitez sa créativité pour les exemples",
			"Vérifiez la précision des références réglementaires",
		},
	}
	recs = append(recs, providerRecs[cfg.AIProvider]...)

	switch cfg.ExpertiseLevel {
	case model.LevelExpert, model.LevelRegulationSpecialist:
		recs = append(recs, "Niveau expert: vérifiez les références réglementaires avec les sources officielles")
	case model.LevelJunior:
		recs = append(recs, "Niveau junior: n'hésitez pas à demander des clarifications supplémentaires")
	}

	moduleRecs := map[model.SCRModule][]string{
		model.ModuleSpread: {
			"Vérifiez les facteurs de stress avec les dernières révisions 2025",
			"Validez les exemples de calcul avec différentes notations",
		},
		model.ModuleEquity: {
			"Attention aux évolutions du dampener (±17% vs ±10%)",
			"Vérifiez les critères LTEI mis à jour",
		},
		model.ModuleInterestRate: {
			"Nouvelles corrélations spread/taux (25% vs 50%)",
			"Considérez les mesures transitoires en cours",
		},
	}
	recs = append(recs, moduleRecs[cfg.SCRModule]...)

	if meta.RelevantDocuments == 0 {
		recs = append(recs, "Peu de sources disponibles: considérez ajouter des documents réglementaires")
	} else if meta.RelevantDocuments > 5 {
		recs = append(recs, "Nombreuses sources disponibles: prompt très contextualisé")
	}

	if !meta.Quality.HasFormulas {
		recs = append(recs, "Demandez explicitement des formules si nécessaire")
	}
	if !meta.Quality.HasExamples {
		recs = append(recs, "Demandez des exemples chiffrés pour plus de clarté")
	}

	return recs
}

func formatRegulatorySources(docs []model.Document) string {
	if len(docs) == 0 {
		return "### Sources à rechercher :\n- Règlement délégué (UE) 2015/35\n- Guidelines EIOPA pertinentes"
	}

	lines := []string{"### Sources prioritaires identifiées :"}
	for i, doc := range docs {
		if i >= maxSourceDocs {
			break
		}
		line := fmt.Sprintf("%d. **%s**", i+1, doc.Title)
		if len(doc.RegulatoryArticles) > 0 {
			articles := doc.RegulatoryArticles
			if len(articles) > 3 {
				articles = articles[:3]
			}
			line += fmt.Sprintf(" (Articles: %s)", strings.Join(articles, ", "))
		}
		line += fmt.Sprintf(" (Fiabilité: %.1f/1.0)", doc.ReliabilityScore)
		if doc.URL != "" {
			line += fmt.Sprintf("\n   - URL: %s", doc.URL)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// formatKeyConcepts lists store concepts first and tops up with the
// module's built-in concept list when the store holds fewer than five.
func formatKeyConcepts(module model.SCRModule, concepts []model.SCRConcept) string {
	var lines []string
	for _, c := range concepts {
		lines = append(lines, fmt.Sprintf("**%s** : %s", c.ConceptName, c.Definition))
	}

	if len(lines) < minStoreConcepts {
		defaults := defaultConcepts[module]
		if len(defaults) == 0 {
			defaults = []string{"Concepts à définir"}
		}
		budget := 8 - len(lines)
		for i, c := range defaults {
			if i >= budget {
				break
			}
			lines = append(lines, "- "+c)
		}
	}
	return strings.Join(lines, "\n")
}

var defaultConcepts = map[model.SCRModule][]string{
	model.ModuleSpread: {
		"Facteurs de stress par notation de crédit (AAA à Non noté)",
		"Duration modifiée et calcul de sensibilité aux spreads",
		"Traitement des obligations non notées (choc 30bp × duration)",
		"Corrélations avec autres modules (taux, actions)",
		"Exemptions souveraines et règles d'application",
		"Formule SCR_spread = SCR_bonds + SCR_securitisation + SCR_cd",
		"Grille des facteurs par notation et duration",
		"Règles de plafonnement (100% de la valeur)",
	},
	model.ModuleInterestRate: {
		"Chocs de taux haussier et baissier",
		"Courbe des taux sans risque et extrapolation",
		"Duration et convexité des passifs",
		"Effet d'absorption par les provisions techniques",
		"Corrélations avec module spread (50% → 25%)",
		"Traitement des instruments dérivés de taux",
	},
	model.ModuleEquity: {
		"Classification Type I (39%) et Type II (49%)",
		"Ajustement symétrique (dampener ±17%)",
		"Actions de long terme (LTEI) - traitement favorisé",
		"Participations dans institutions financières",
		"Duration-based equity sub-module",
		"Critères d'éligibilité et conditions",
	},
	model.ModuleConcentration: {
		"Seuils de concentration par émetteur",
		"Facteurs de granularité",
		"Traitement des expositions souveraines",
		"Calcul des excès de concentration",
		"Diversification géographique et sectorielle",
	},
	model.ModuleCurrency: {
		"Chocs de change par devise (25% standard)",
		"Corrélations entre devises",
		"Matching currency des actifs/passifs",
		"Exemptions pour devises locales",
		"Traitement des dérivés de change",
	},
}

func structureRequirements(level model.ExpertiseLevel) string {
	switch level {
	case model.LevelExpert, model.LevelRegulationSpecialist:
		return expertStructure
	case model.LevelJunior:
		return juniorStructure
	default:
		return confirmedStructure
	}
}

const expertStructure = `### 1. SYNTHÈSE EXÉCUTIVE (150 mots max)
- Objectif réglementaire et périmètre d'application
- Impact typique sur le ratio de solvabilité
- Points d'attention critiques

### 2. CADRE RÉGLEMENTAIRE DE RÉFÉRENCE
- Articles du Règlement délégué (numéros précis)
- Directive mère et références pertinentes
- Guidelines EIOPA et standards techniques
- Évolutions récentes et futures

### 3. MÉTHODOLOGIE DE CALCUL DÉTAILLÉE
- Formule principale avec notation rigoureuse
- Paramètres et variables (définitions précises)
- Algorithme de calcul étape par étape
- Cas particuliers et exceptions

### 4. ASPECTS OPÉRATIONNELS
- Données requises et sources
- Fréquence de calcul et mise à jour
- Contrôles de cohérence et validation
- Interface avec autres modules SCR

### 5. EXEMPLES CHIFFRÉS CONCRETS
- Au moins 2 exemples détaillés
- Calculs pas à pas avec résultats
- Cas réalistes d'assureur français

### 6. INTERACTIONS ET CORRÉLATIONS
- Matrice de corrélation avec autres risques
- Effet de diversification
- Absorption par le passif

### 7. ÉVOLUTIONS RÉGLEMENTAIRES
- Révisions 2019 et 2025-2026
- Impact estimé des changements
- Calendrier d'application`

const confirmedStructure = `### 1. Introduction et Objectifs
- Contexte réglementaire du module
- Objectif de couverture du risque

### 2. Formule de Calcul
- Formule principale
- Définition des variables
- Paramètres clés

### 3. Données et Paramètres
- Inputs nécessaires
- Sources de données
- Fréquence de mise à jour

### 4. Exemples Pratiques
- Cas d'application concrets
- Calculs détaillés

### 5. Points d'Attention
- Difficultés d'implémentation
- Contrôles à effectuer
- Interactions avec autres modules`

const juniorStructure = `### 1. Présentation Générale
- Qu'est-ce que ce module SCR ?
- Pourquoi est-il important ?

### 2. Méthode de Calcul Simplifiée
- Formule de base
- Étapes principales

### 3. Exemple Simple
- Cas concret avec chiffres
- Calcul étape par étape

### 4. Points Clés à Retenir
- Éléments essentiels
- Erreurs à éviter`

var moduleExampleText = map[model.SCRModule]string{
	model.ModuleSpread: `#### Exemple 1 : Obligation Corporate BBB
- **Exposition** : 100M€ d'obligations Renault 2030
- **Caractéristiques** : Notation BBB, duration modifiée 6,5 ans
- **Calcul** : Stress = 6,5 × 2,5% = 16,25%
- **SCR** : 100M€ × 16,25% = 16,25M€
- **Impact net** : après corrélations et absorption passif

#### Exemple 2 : Portefeuille diversifié
- **Composition** : 60% AAA (200M€), 30% BBB (100M€), 10% non noté (33M€)
- **Calcul par tranche** avec facteurs respectifs
- **Agrégation** : effet de diversification limité
- **SCR total** : formule quadratique avec corrélations`,

	model.ModuleEquity: `#### Exemple 1 : Actions européennes Type I
- **Portefeuille** : 500M€ d'actions CAC 40
- **Choc de base** : 39% (avant ajustements)
- **Ajustement symétrique** : +5% (market conditions)
- **Choc final** : 39% + 5% = 44%
- **SCR** : 500M€ × 44% = 220M€`,

	model.ModuleInterestRate: `#### Exemple 1 : Portefeuille obligations souveraines
- **Duration moyenne** : 8,2 ans
- **Choc haussier** : selon courbe réglementaire
- **Choc baissier** : plancher à 0% (si applicable)
- **Impact sur provisions** : calcul différentiel
- **SCR final** : max(choc hausse, choc baisse)`,
}

func moduleExamples(module model.SCRModule) string {
	if text, ok := moduleExampleText[module]; ok {
		return text
	}
	return `#### À définir selon le module spécifique
- Exemple concret avec données réalistes
- Calcul détaillé étape par étape
- Résultats commentés et contextualisés`
}

const baseQualityRequirements = `### Format et Style
- **Langue** : français professionnel, niveau expert
- **Formules** : notation mathématique claire (LaTeX si complexe)
- **Références** : numéros d'articles précis, pas de paraphrase
- **Structure** : titres courts, paragraphes denses

### Précision Technique
- **Chiffres exacts** : facteurs officiels, pas d'approximation
- **Cohérence** : liens entre sections, renvois internes
- **Sources** : citations directes des textes réglementaires
- **Exemples** : calculs vérifiables et représentatifs`

var providerQualityRequirements = map[model.AIProvider]string{
	model.ProviderClaudeSonnet: `

### Spécificités Claude
- **Raisonnement** : étapes logiques détaillées, analyse structurée
- **Contexte** : utilisation optimale du contexte étendu
- **Nuances** : gestion des cas particuliers et exceptions
- **Synthèse** : capacité à condenser l'information essentielle`,

	model.ProviderGPT4: `

### Spécificités GPT-4
- **Précision** : formulations exactes et non ambiguës
- **Structure** : organisation claire avec numérotation
- **Exemples** : applications pratiques détaillées
- **Références** : citations exactes et vérifiables`,

	model.ProviderGeminiPro: `

### Spécificités Gemini
- **Créativité** : approches pédagogiques variées
- **Multiformat** : tableaux, listes, diagrammes textuels
- **Comparaisons** : mises en perspective avec autres modules
- **Synthèse** : résumés exécutifs percutants`,
}

func qualityRequirements(provider model.AIProvider) string {
	switch provider {
	case model.ProviderClaudeOpus:
		provider = model.ProviderClaudeSonnet
	case model.ProviderGPT4Turbo:
		provider = model.ProviderGPT4
	}
	return baseQualityRequirements + providerQualityRequirements[provider]
}

var moduleFrenchNames = map[model.SCRModule]string{
	model.ModuleSpread:        "SCR de spread (risque de crédit)",
	model.ModuleInterestRate:  "SCR de taux d'intérêt",
	model.ModuleEquity:        "SCR actions",
	model.ModuleCurrency:      "SCR de change",
	model.ModuleConcentration: "SCR de concentration",
	model.ModuleMarketGlobal:  "SCR de marché global",
	model.ModuleCounterparty:  "SCR de contrepartie",
	model.ModuleOperational:   "SCR opérationnel",
	model.ModuleLife:          "SCR vie",
	model.ModuleNonLife:       "SCR non-vie",
}

func moduleFrenchName(module model.SCRModule) string {
	if name, ok := moduleFrenchNames[module]; ok {
		return name
	}
	return "SCR " + string(module)
}
