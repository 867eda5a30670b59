package store

import (
	"context"
	"sort"
	"strings"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// DocumentFilter specifies criteria for searching documents.
type DocumentFilter struct {
	DocTypes       []model.DocType `json:"doc_types,omitempty"`
	MinReliability float64         `json:"min_reliability,omitempty"`
	Query          string          `json:"query,omitempty"`
	Limit          int             `json:"limit,omitempty"`
}

// Store defines the persistence interface for the knowledge base.
type Store interface {
	// Documents
	UpsertDocument(ctx context.Context, doc *model.Document) error
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	GetDocumentsByModule(ctx context.Context, module model.SCRModule, limit int) ([]model.Document, error)
	SearchDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error)

	// Concepts
	InsertConcept(ctx context.Context, concept *model.SCRConcept) (int64, error)
	GetConceptsByModule(ctx context.Context, module model.SCRModule) ([]model.SCRConcept, error)

	// Aggregates
	Statistics(ctx context.Context) (*model.Statistics, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// likePattern builds the containment pattern for the module-membership
// query. Matching the JSON-quoted token keeps "life" from matching rows
// tagged only with "non_life".
func likePattern(module model.SCRModule) string {
	return `%"` + string(module) + `"%`
}

// filterDocuments applies a DocumentFilter in memory and sorts the result by
// reliability descending then title. Backends share it so search semantics
// stay identical across drivers.
func filterDocuments(docs []model.Document, filter DocumentFilter) []model.Document {
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	var out []model.Document
	for _, doc := range docs {
		if len(filter.DocTypes) > 0 && !containsType(filter.DocTypes, doc.DocType) {
			continue
		}
		if doc.ReliabilityScore < filter.MinReliability {
			continue
		}
		if query != "" && !matchesQuery(doc, query) {
			continue
		}
		out = append(out, doc)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ReliabilityScore != out[j].ReliabilityScore {
			return out[i].ReliabilityScore > out[j].ReliabilityScore
		}
		return out[i].Title < out[j].Title
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

func containsType(types []model.DocType, t model.DocType) bool {
	for _, dt := range types {
		if dt == t {
			return true
		}
	}
	return false
}

func matchesQuery(doc model.Document, query string) bool {
	if strings.Contains(strings.ToLower(doc.Title), query) {
		return true
	}
	for _, article := range doc.RegulatoryArticles {
		if strings.Contains(strings.ToLower(article), query) {
			return true
		}
	}
	return false
}
