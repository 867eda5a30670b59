// Package prompt renders provider-specific prompt templates enriched with
// documents and concepts read from the knowledge store.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// Template is a named prompt skeleton with {variable} placeholders.
type Template struct {
	Name      string
	Content   string
	Variables []string
}

// Render substitutes every declared variable present in vars. Undeclared
// keys in vars are ignored; declared variables absent from vars stay as
// literal placeholders.
func (t *Template) Render(vars map[string]string) string {
	rendered := t.Content
	for _, name := range t.Variables {
		if value, ok := vars[name]; ok {
			rendered = strings.ReplaceAll(rendered, "{"+name+"}", value)
		}
	}
	return rendered
}

// MissingVariables lists declared variables without a binding in vars.
func (t *Template) MissingVariables(vars map[string]string) []string {
	var missing []string
	for _, name := range t.Variables {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Library holds the registered templates keyed by "<provider>_<level>".
type Library struct {
	templates map[string]*Template
}

// NewLibrary builds a library preloaded with the default templates.
func NewLibrary() *Library {
	l := &Library{templates: make(map[string]*Template)}
	for _, t := range defaultTemplates() {
		l.Add(t)
	}
	return l
}

// Add registers a template under its name, replacing any previous entry.
func (l *Library) Add(t *Template) {
	l.templates[t.Name] = t
}

// List returns the registered template names sorted.
func (l *Library) List() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get resolves the template for a provider and expertise level. It falls
// back to the provider's expert then confirmed template, and finally to the
// Claude Sonnet expert template, which is always registered.
func (l *Library) Get(provider model.AIProvider, level model.ExpertiseLevel) *Template {
	keys := []string{
		templateKey(provider, level),
		fmt.Sprintf("%s_%s", provider, model.LevelExpert),
		fmt.Sprintf("%s_%s", provider, model.LevelConfirmed),
		templateKey(model.ProviderClaudeSonnet, model.LevelExpert),
	}
	for _, key := range keys {
		if t, ok := l.templates[key]; ok {
			return t
		}
	}
	return nil
}

func templateKey(provider model.AIProvider, level model.ExpertiseLevel) string {
	return fmt.Sprintf("%s_%s", provider, level)
}

func defaultTemplates() []*Template {
	claudeExpert := &Template{
		Name: templateKey(model.ProviderClaudeSonnet, model.LevelExpert),
		Content: `# CONTEXTE & EXPERTISE
Tu es un actuaire expert en Solvabilité 2 avec {experience_years}+ années d'expérience dans le calcul des SCR.
Ta spécialité : {specialization}. Tu maîtrises parfaitement le Règlement délégué (UE) 2015/35 et ses évolutions récentes.

# MISSION
Créer une fiche technique professionnelle ultra-complète sur le **calcul du {scr_module_name}** sous Solvabilité 2,
destinée à des actuaires confirmés pour usage interne en compagnie d'assurance.

# SOURCES RÉGLEMENTAIRES PRIORITAIRES
{regulatory_sources}

# CONCEPTS CLÉS À COUVRIR
{key_concepts}

# STRUCTURE OBLIGATOIRE
{structure_requirements}

# EXEMPLES CONCRETS REQUIS
{concrete_examples}

# EXIGENCES DE QUALITÉ CRITIQUE
{quality_requirements}

**RENDU ATTENDU :** Document de {word_count} mots, niveau référence technique interne,
directement utilisable pour implémentation et audit réglementaire.`,
		Variables: []string{
			"experience_years", "specialization", "scr_module_name",
			"regulatory_sources", "key_concepts", "structure_requirements",
			"concrete_examples", "quality_requirements", "word_count",
		},
	}

	claudeConfirmed := &Template{
		Name: templateKey(model.ProviderClaudeSonnet, model.LevelConfirmed),
		Content: `# EXPERT SOLVABILITÉ 2
Tu es un actuaire spécialisé en Solvabilité 2 avec une expertise approfondie en {scr_module_name}.

# OBJECTIF
Rédiger un guide technique détaillé sur le **{scr_module_name}** pour des actuaires confirmés.

# SOURCES À UTILISER
{regulatory_sources}

# POINTS CLÉS À TRAITER
{key_concepts}

# STRUCTURE DEMANDÉE
{structure_requirements}

# EXEMPLES PRATIQUES
{concrete_examples}

# CRITÈRES DE QUALITÉ
- Formules mathématiques précises
- Références réglementaires exactes
- Exemples chiffrés réalistes
- Niveau technique approprié

**Livrable :** Guide de {word_count} mots maximum, prêt pour utilisation opérationnelle.`,
		Variables: []string{
			"scr_module_name", "regulatory_sources", "key_concepts",
			"structure_requirements", "concrete_examples", "word_count",
		},
	}

	gpt4Expert := &Template{
		Name: templateKey(model.ProviderGPT4, model.LevelExpert),
		Content: `You are a Solvency II actuary with deep expertise in {scr_module_name} risk calculations.

OBJECTIVE: Create a comprehensive technical guide for {scr_module_name} SCR calculation.

TARGET AUDIENCE: Expert actuaries in insurance companies.

REGULATORY FRAMEWORK:
{regulatory_sources}

KEY REQUIREMENTS:
1. Mathematical formulas with precise notation
2. Regulatory article references
3. Practical examples with calculations
4. Implementation guidance

STRUCTURE:
{structure_requirements}

EXAMPLES:
{concrete_examples}

QUALITY STANDARDS:
{quality_requirements}

OUTPUT: {word_count} words technical document, ready for professional use.`,
		Variables: []string{
			"scr_module_name", "regulatory_sources", "structure_requirements",
			"concrete_examples", "quality_requirements", "word_count",
		},
	}

	geminiConfirmed := &Template{
		Name: templateKey(model.ProviderGeminiPro, model.LevelConfirmed),
		Content: `# Assistant Expert en Réglementation Solvabilité 2

**Spécialisation :** {scr_module_name}

## Mission
Créer un document technique sur le calcul du {scr_module_name} sous Solvabilité 2.

## Public cible
Actuaires confirmés en assurance

## Sources réglementaires
{regulatory_sources}

## Concepts essentiels
{key_concepts}

## Plan à suivre
{structure_requirements}

## Exemples attendus
{concrete_examples}

## Format final
Document technique de {word_count} mots avec formules, exemples et références.`,
		Variables: []string{
			"scr_module_name", "regulatory_sources", "key_concepts",
			"structure_requirements", "concrete_examples", "word_count",
		},
	}

	// opus and turbo reuse their family's templates under their own keys
	claudeOpusExpert := *claudeExpert
	claudeOpusExpert.Name = templateKey(model.ProviderClaudeOpus, model.LevelExpert)
	gpt4TurboExpert := *gpt4Expert
	gpt4TurboExpert.Name = templateKey(model.ProviderGPT4Turbo, model.LevelExpert)

	return []*Template{
		claudeExpert, claudeConfirmed, gpt4Expert, geminiConfirmed,
		&claudeOpusExpert, &gpt4TurboExpert,
	}
}
