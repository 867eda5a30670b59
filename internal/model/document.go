package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// SupportedLanguages are the 2-letter codes a Document may carry. Anything
// else coerces to DefaultLanguage at construction time instead of failing.
var SupportedLanguages = []string{"fr", "en", "de", "es", "it"}

// DefaultLanguage is the fallback for unsupported language codes.
const DefaultLanguage = "fr"

// Document is a regulatory or informational source held in the knowledge
// store. Identity is the derived id (doc type + sanitized source name + hash
// prefix); re-ingesting identical content from the same source replaces the
// prior record.
type Document struct {
	ID                 string         `json:"id" yaml:"id"`
	Title              string         `json:"title" yaml:"title"`
	DocType            DocType        `json:"doc_type" yaml:"doc_type"`
	URL                string         `json:"url,omitempty" yaml:"url,omitempty"`
	FilePath           string         `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	PublicationDate    *time.Time     `json:"publication_date,omitempty" yaml:"publication_date,omitempty"`
	RegulatoryArticles []string       `json:"regulatory_articles" yaml:"regulatory_articles"`
	SCRModules         []SCRModule    `json:"scr_modules" yaml:"scr_modules"`
	Language           string         `json:"language" yaml:"language"`
	ReliabilityScore   float64        `json:"reliability_score" yaml:"reliability_score"`
	ContentHash        string         `json:"content_hash" yaml:"content_hash"`
	LastUpdated        time.Time      `json:"last_updated" yaml:"last_updated"`
	Metadata           map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// NewDocument validates and constructs a Document. The reliability score must
// lie in [0,1] and at least one SCR module must be tagged; an unsupported
// language code silently coerces to the default rather than failing.
func NewDocument(id, title string, docType DocType, modules []SCRModule, reliability float64) (*Document, error) {
	if id == "" {
		return nil, eris.Wrap(ErrValidation, "document id is empty")
	}
	if reliability < 0 || reliability > 1 {
		return nil, eris.Wrapf(ErrValidation, "reliability_score %.3f outside [0,1]", reliability)
	}
	if len(modules) == 0 {
		return nil, eris.Wrap(ErrValidation, "document must be tagged with at least one scr module")
	}

	d := &Document{
		ID:                 id,
		Title:              title,
		DocType:            docType,
		RegulatoryArticles: []string{},
		SCRModules:         append([]SCRModule(nil), modules...),
		Language:           DefaultLanguage,
		ReliabilityScore:   reliability,
		LastUpdated:        time.Now().UTC(),
		Metadata:           map[string]any{},
	}
	return d, nil
}

// SetLanguage applies a language code, coercing unsupported values to the
// default. The coercion is deliberate legacy behavior, not an error path.
func (d *Document) SetLanguage(code string) {
	for _, l := range SupportedLanguages {
		if l == code {
			d.Language = code
			return
		}
	}
	d.Language = DefaultLanguage
}

// AddRegulatoryArticle appends an article identifier if not already present.
func (d *Document) AddRegulatoryArticle(article string) {
	for _, a := range d.RegulatoryArticles {
		if a == article {
			return
		}
	}
	d.RegulatoryArticles = append(d.RegulatoryArticles, article)
}

// HasModule reports whether the document is tagged with the given module.
func (d *Document) HasModule(m SCRModule) bool {
	for _, mod := range d.SCRModules {
		if mod == m {
			return true
		}
	}
	return false
}
