package model

import "time"

// Statistics summarizes the knowledge store. A document tagged with several
// modules counts once per module in DocumentsByModule.
type Statistics struct {
	TotalDocuments    int            `json:"total_documents"`
	TotalConcepts     int            `json:"total_concepts"`
	DocumentsByType   map[string]int `json:"documents_by_type"`
	DocumentsByModule map[string]int `json:"documents_by_module"`
	ConceptsByModule  map[string]int `json:"concepts_by_module"`
	LastUpdate        time.Time      `json:"last_update"`
}
