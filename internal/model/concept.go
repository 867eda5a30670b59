package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultConfidence is the confidence score assigned to mined concepts when
// the miner has no stronger signal.
const DefaultConfidence = 0.8

// SCRConcept is a mined definitional fragment (formula, factor, duration
// rule, shock parameter) tied to a single SCR module. The integer id is
// assigned by the store on insert, never by the caller. The source document
// reference is a weak link: the store does not enforce it.
type SCRConcept struct {
	ID                int64     `json:"id,omitempty" yaml:"id,omitempty"`
	ConceptName       string    `json:"concept_name" yaml:"concept_name"`
	SCRModule         SCRModule `json:"scr_module" yaml:"scr_module"`
	Definition        string    `json:"definition" yaml:"definition"`
	Formula           string    `json:"formula,omitempty" yaml:"formula,omitempty"`
	RegulatoryArticle string    `json:"regulatory_article,omitempty" yaml:"regulatory_article,omitempty"`
	SourceDocumentID  string    `json:"source_document_id,omitempty" yaml:"source_document_id,omitempty"`
	Examples          []string  `json:"examples" yaml:"examples"`
	ConfidenceScore   float64   `json:"confidence_score" yaml:"confidence_score"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
}

// NewConcept validates and constructs an SCRConcept. The name must be at
// least 3 characters after trimming and the confidence score must lie in
// [0,1]; violations are construction errors.
func NewConcept(name string, module SCRModule, definition string, confidence float64) (*SCRConcept, error) {
	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return nil, eris.Wrapf(ErrValidation, "concept_name %q shorter than 3 characters", name)
	}
	if confidence < 0 || confidence > 1 {
		return nil, eris.Wrapf(ErrValidation, "confidence_score %.3f outside [0,1]", confidence)
	}

	return &SCRConcept{
		ConceptName:     name,
		SCRModule:       module,
		Definition:      definition,
		Examples:        []string{},
		ConfidenceScore: confidence,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// AddExample appends a trimmed example if non-empty and not already present.
func (c *SCRConcept) AddExample(example string) {
	example = strings.TrimSpace(example)
	if example == "" {
		return
	}
	for _, e := range c.Examples {
		if e == example {
			return
		}
	}
	c.Examples = append(c.Examples, example)
}
