package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/solvencykit/scrkb-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=OFF",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL,
	doc_type            TEXT NOT NULL,
	url                 TEXT,
	file_path           TEXT,
	publication_date    TIMESTAMP,
	regulatory_articles TEXT NOT NULL DEFAULT '[]',
	scr_modules         TEXT NOT NULL DEFAULT '[]',
	language            TEXT NOT NULL DEFAULT 'fr',
	reliability_score   REAL NOT NULL DEFAULT 0.8,
	content_hash        TEXT,
	metadata            TEXT,
	last_updated        TIMESTAMP NOT NULL,
	created_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scr_concepts (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	concept_name       TEXT NOT NULL,
	scr_module         TEXT NOT NULL,
	definition         TEXT,
	formula            TEXT,
	regulatory_article TEXT,
	source_document_id TEXT REFERENCES documents(id),
	examples           TEXT,
	confidence_score   REAL NOT NULL DEFAULT 0.8,
	created_at         TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	ai_provider      TEXT NOT NULL,
	expertise_level  TEXT NOT NULL,
	scr_module       TEXT NOT NULL,
	template_content TEXT NOT NULL,
	variables        TEXT,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_module ON documents(scr_modules);
CREATE INDEX IF NOT EXISTS idx_concepts_module ON scr_concepts(scr_module);
CREATE INDEX IF NOT EXISTS idx_concepts_document ON scr_concepts(source_document_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc *model.Document) error {
	articlesJSON, err := json.Marshal(doc.RegulatoryArticles)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal regulatory articles")
	}
	modulesJSON, err := json.Marshal(doc.SCRModules)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scr modules")
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	var pubDate any
	if doc.PublicationDate != nil {
		pubDate = doc.PublicationDate.UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (id, title, doc_type, url, file_path, publication_date,
		  regulatory_articles, scr_modules, language, reliability_score,
		  content_hash, metadata, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, string(doc.DocType), doc.URL, doc.FilePath, pubDate,
		string(articlesJSON), string(modulesJSON), doc.Language, doc.ReliabilityScore,
		doc.ContentHash, string(metadataJSON), doc.LastUpdated.UTC(),
	)
	if err != nil {
		return eris.Wrapf(model.ErrStoreWrite, "sqlite: upsert document %s: %v", doc.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		documentColumns+` FROM documents WHERE id = ?`, id,
	)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "document %s", id)
	}
	return doc, err
}

func (s *SQLiteStore) GetDocumentsByModule(ctx context.Context, module model.SCRModule, limit int) ([]model.Document, error) {
	query := documentColumns + ` FROM documents
		 WHERE scr_modules LIKE ?
		 ORDER BY reliability_score DESC, publication_date DESC`
	args := []any{likePattern(module)}

	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: documents by module %s", module)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "sqlite: documents by module iterate")
}

func (s *SQLiteStore) SearchDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, documentColumns+` FROM documents`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: search documents iterate")
	}
	return filterDocuments(docs, filter), nil
}

func (s *SQLiteStore) InsertConcept(ctx context.Context, concept *model.SCRConcept) (int64, error) {
	examplesJSON, err := json.Marshal(concept.Examples)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: marshal examples")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scr_concepts
		 (concept_name, scr_module, definition, formula, regulatory_article,
		  source_document_id, examples, confidence_score, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		concept.ConceptName, string(concept.SCRModule), concept.Definition,
		concept.Formula, concept.RegulatoryArticle, concept.SourceDocumentID,
		string(examplesJSON), concept.ConfidenceScore, concept.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, eris.Wrapf(model.ErrStoreWrite, "sqlite: insert concept %s: %v", concept.ConceptName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: concept id")
	}
	return id, nil
}

func (s *SQLiteStore) GetConceptsByModule(ctx context.Context, module model.SCRModule) ([]model.SCRConcept, error) {
	rows, err := s.db.QueryContext(ctx,
		conceptColumns+` FROM scr_concepts WHERE scr_module = ? ORDER BY concept_name`,
		string(module),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: concepts by module %s", module)
	}
	defer rows.Close()

	var concepts []model.SCRConcept
	for rows.Next() {
		c, err := scanConcept(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, *c)
	}
	return concepts, eris.Wrap(rows.Err(), "sqlite: concepts by module iterate")
}

func (s *SQLiteStore) Statistics(ctx context.Context) (*model.Statistics, error) {
	stats := &model.Statistics{
		DocumentsByType:   map[string]int{},
		DocumentsByModule: map[string]int{},
		ConceptsByModule:  map[string]int{},
		LastUpdate:        time.Now().UTC(),
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, eris.Wrap(err, "sqlite: count documents")
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scr_concepts`).Scan(&stats.TotalConcepts); err != nil {
		return nil, eris.Wrap(err, "sqlite: count concepts")
	}

	typeRows, err := s.db.QueryContext(ctx, `SELECT doc_type, COUNT(*) FROM documents GROUP BY doc_type`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: documents by type")
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var docType string
		var count int
		if err := typeRows.Scan(&docType, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan type count")
		}
		stats.DocumentsByType[docType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: documents by type iterate")
	}

	// A document counts once per module it is tagged with, so the module
	// sets are unpacked in memory rather than grouped in SQL.
	moduleRows, err := s.db.QueryContext(ctx, `SELECT scr_modules FROM documents`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: documents by module")
	}
	defer moduleRows.Close()
	for moduleRows.Next() {
		var modulesJSON string
		if err := moduleRows.Scan(&modulesJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan module set")
		}
		var modules []string
		if err := json.Unmarshal([]byte(modulesJSON), &modules); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal module set")
		}
		for _, m := range modules {
			stats.DocumentsByModule[m]++
		}
	}
	if err := moduleRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: documents by module iterate")
	}

	conceptRows, err := s.db.QueryContext(ctx, `SELECT scr_module, COUNT(*) FROM scr_concepts GROUP BY scr_module`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: concepts by module")
	}
	defer conceptRows.Close()
	for conceptRows.Next() {
		var module string
		var count int
		if err := conceptRows.Scan(&module, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan concept count")
		}
		stats.ConceptsByModule[module] = count
	}
	return stats, eris.Wrap(conceptRows.Err(), "sqlite: concepts by module iterate")
}

// scanning helpers shared by the single-row and multi-row read paths

const documentColumns = `SELECT id, title, doc_type, url, file_path, publication_date,
	regulatory_articles, scr_modules, language, reliability_score,
	content_hash, metadata, last_updated`

const conceptColumns = `SELECT id, concept_name, scr_module, definition, formula,
	regulatory_article, source_document_id, examples, confidence_score, created_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable) (*model.Document, error) {
	var d model.Document
	var docType string
	var url, filePath, contentHash, metadataJSON sql.NullString
	var articlesJSON, modulesJSON string
	var pubDate sql.NullTime

	err := row.Scan(&d.ID, &d.Title, &docType, &url, &filePath, &pubDate,
		&articlesJSON, &modulesJSON, &d.Language, &d.ReliabilityScore,
		&contentHash, &metadataJSON, &d.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan document")
	}

	d.DocType = model.DocType(docType)
	d.URL = url.String
	d.FilePath = filePath.String
	d.ContentHash = contentHash.String
	if pubDate.Valid {
		t := pubDate.Time
		d.PublicationDate = &t
	}
	if err := json.Unmarshal([]byte(articlesJSON), &d.RegulatoryArticles); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal regulatory articles")
	}
	if err := json.Unmarshal([]byte(modulesJSON), &d.SCRModules); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal scr modules")
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &d.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	return &d, nil
}

func scanConcept(row scannable) (*model.SCRConcept, error) {
	var c model.SCRConcept
	var module string
	var definition, formula, article, sourceID, examplesJSON sql.NullString

	err := row.Scan(&c.ID, &c.ConceptName, &module, &definition, &formula,
		&article, &sourceID, &examplesJSON, &c.ConfidenceScore, &c.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan concept")
	}

	c.SCRModule = model.SCRModule(module)
	c.Definition = definition.String
	c.Formula = formula.String
	c.RegulatoryArticle = article.String
	c.SourceDocumentID = sourceID.String
	if examplesJSON.Valid && examplesJSON.String != "" {
		if err := json.Unmarshal([]byte(examplesJSON.String), &c.Examples); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal examples")
		}
	}
	return &c, nil
}
