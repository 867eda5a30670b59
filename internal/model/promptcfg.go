package model

import "github.com/rotisserie/eris"

// AIProvider identifies the target model family for a generated prompt.
type AIProvider string

const (
	ProviderClaudeSonnet AIProvider = "claude-sonnet-4"
	ProviderClaudeOpus   AIProvider = "claude-opus-4"
	ProviderGPT4         AIProvider = "gpt-4"
	ProviderGPT4Turbo    AIProvider = "gpt-4-turbo"
	ProviderGeminiPro    AIProvider = "gemini-pro"
)

// AllProviders lists the supported AI providers.
func AllProviders() []AIProvider {
	return []AIProvider{
		ProviderClaudeSonnet,
		ProviderClaudeOpus,
		ProviderGPT4,
		ProviderGPT4Turbo,
		ProviderGeminiPro,
	}
}

// ParseProvider converts a raw string into an AIProvider.
func ParseProvider(s string) (AIProvider, error) {
	for _, p := range AllProviders() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", eris.Errorf("unsupported ai provider: %q", s)
}

// ExpertiseLevel grades the intended audience of a generated prompt.
type ExpertiseLevel string

const (
	LevelJunior               ExpertiseLevel = "junior"
	LevelConfirmed            ExpertiseLevel = "confirmed"
	LevelExpert               ExpertiseLevel = "expert"
	LevelRegulationSpecialist ExpertiseLevel = "regulation_specialist"
)

// AllLevels lists the supported expertise levels.
func AllLevels() []ExpertiseLevel {
	return []ExpertiseLevel{LevelJunior, LevelConfirmed, LevelExpert, LevelRegulationSpecialist}
}

// ParseLevel converts a raw string into an ExpertiseLevel.
func ParseLevel(s string) (ExpertiseLevel, error) {
	for _, l := range AllLevels() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", eris.Errorf("unsupported expertise level: %q", s)
}

// Prompt length and depth bounds. Out-of-range values clamp instead of
// failing.
const (
	MinPromptLength       = 500
	MaxPromptLength       = 10000
	DefaultPromptLength   = 3000
	DefaultTechnicalDepth = 3
)

// PromptConfig carries the knobs for prompt generation. Numeric fields clamp
// to their bounds at construction; enum-shaped string fields fall back to
// their defaults.
type PromptConfig struct {
	AIProvider            AIProvider     `json:"ai_provider"`
	ExpertiseLevel        ExpertiseLevel `json:"expertise_level"`
	SCRModule             SCRModule      `json:"scr_module"`
	Language              string         `json:"language"`
	OutputFormat          string         `json:"output_format"`
	IncludeExamples       bool           `json:"include_examples"`
	IncludeFormulas       bool           `json:"include_formulas"`
	IncludeRegulatoryRefs bool           `json:"include_regulatory_refs"`
	MaxLength             int            `json:"max_length"`
	CustomRequirements    []string       `json:"custom_requirements,omitempty"`
	ContextLevel          string         `json:"context_level"`
	TechnicalDepth        int            `json:"technical_depth"`
}

// NewPromptConfig builds a PromptConfig with defaults applied and numeric
// fields clamped to their valid ranges.
func NewPromptConfig(provider AIProvider, level ExpertiseLevel, module SCRModule) PromptConfig {
	return PromptConfig{
		AIProvider:            provider,
		ExpertiseLevel:        level,
		SCRModule:             module,
		Language:              DefaultLanguage,
		OutputFormat:          "technical_sheet",
		IncludeExamples:       true,
		IncludeFormulas:       true,
		IncludeRegulatoryRefs: true,
		MaxLength:             DefaultPromptLength,
		ContextLevel:          "high",
		TechnicalDepth:        DefaultTechnicalDepth,
	}
}

// Normalize clamps out-of-range fields to their bounds. Clamping, not
// rejection, is the contract for these knobs.
func (c *PromptConfig) Normalize() {
	if c.TechnicalDepth < 1 || c.TechnicalDepth > 5 {
		c.TechnicalDepth = DefaultTechnicalDepth
	}
	switch c.ContextLevel {
	case "low", "medium", "high":
	default:
		c.ContextLevel = "high"
	}
	if c.MaxLength < MinPromptLength {
		c.MaxLength = MinPromptLength
	} else if c.MaxLength > MaxPromptLength {
		c.MaxLength = MaxPromptLength
	}
}

// ComplexityScore estimates prompt complexity in [0,1] from the expertise
// level, technical depth, context level, and enabled options.
func (c PromptConfig) ComplexityScore() float64 {
	levelScores := map[ExpertiseLevel]float64{
		LevelJunior:               0.2,
		LevelConfirmed:            0.5,
		LevelExpert:               0.8,
		LevelRegulationSpecialist: 1.0,
	}
	score := 0.5
	if s, ok := levelScores[c.ExpertiseLevel]; ok {
		score = s
	}
	score *= 0.4

	score += float64(c.TechnicalDepth) / 5 * 0.3

	contextScores := map[string]float64{"low": 0.2, "medium": 0.5, "high": 0.8}
	cs := 0.5
	if s, ok := contextScores[c.ContextLevel]; ok {
		cs = s
	}
	score += cs * 0.2

	if c.IncludeFormulas {
		score += 0.05
	}
	if c.IncludeExamples {
		score += 0.03
	}
	if len(c.CustomRequirements) > 0 {
		score += 0.02
	}

	if score > 1 {
		score = 1
	}
	return score
}
