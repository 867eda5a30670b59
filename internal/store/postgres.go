package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/solvencykit/scrkb-cli/internal/db"
	"github.com/solvencykit/scrkb-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"upsert_document": `INSERT INTO documents
		 (id, title, doc_type, url, file_path, publication_date,
		  regulatory_articles, scr_modules, language, reliability_score,
		  content_hash, metadata, last_updated)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		   title = $2, doc_type = $3, url = $4, file_path = $5,
		   publication_date = $6, regulatory_articles = $7, scr_modules = $8,
		   language = $9, reliability_score = $10, content_hash = $11,
		   metadata = $12, last_updated = $13`,
	"get_document": `SELECT id, title, doc_type, url, file_path, publication_date,
		 regulatory_articles, scr_modules, language, reliability_score,
		 content_hash, metadata, last_updated FROM documents WHERE id = $1`,
	"insert_concept": `INSERT INTO scr_concepts
		 (concept_name, scr_module, definition, formula, regulatory_article,
		  source_document_id, examples, confidence_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL,
	doc_type            TEXT NOT NULL,
	url                 TEXT,
	file_path           TEXT,
	publication_date    TIMESTAMPTZ,
	regulatory_articles JSONB NOT NULL DEFAULT '[]',
	scr_modules         JSONB NOT NULL DEFAULT '[]',
	language            TEXT NOT NULL DEFAULT 'fr',
	reliability_score   DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	content_hash        TEXT,
	metadata            JSONB,
	last_updated        TIMESTAMPTZ NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scr_concepts (
	id                 BIGSERIAL PRIMARY KEY,
	concept_name       TEXT NOT NULL,
	scr_module         TEXT NOT NULL,
	definition         TEXT,
	formula            TEXT,
	regulatory_article TEXT,
	source_document_id TEXT,
	examples           JSONB,
	confidence_score   DOUBLE PRECISION NOT NULL DEFAULT 0.8,
	created_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS prompt_templates (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	ai_provider      TEXT NOT NULL,
	expertise_level  TEXT NOT NULL,
	scr_module       TEXT NOT NULL,
	template_content TEXT NOT NULL,
	variables        JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type);
CREATE INDEX IF NOT EXISTS idx_concepts_module ON scr_concepts(scr_module);
CREATE INDEX IF NOT EXISTS idx_concepts_document ON scr_concepts(source_document_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertDocument(ctx context.Context, doc *model.Document) error {
	articlesJSON, err := json.Marshal(doc.RegulatoryArticles)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal regulatory articles")
	}
	modulesJSON, err := json.Marshal(doc.SCRModules)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scr modules")
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	var pubDate *time.Time
	if doc.PublicationDate != nil {
		t := doc.PublicationDate.UTC()
		pubDate = &t
	}

	_, err = s.pool.Exec(ctx, preparedStatements["upsert_document"],
		doc.ID, doc.Title, string(doc.DocType), doc.URL, doc.FilePath, pubDate,
		articlesJSON, modulesJSON, doc.Language, doc.ReliabilityScore,
		doc.ContentHash, metadataJSON, doc.LastUpdated.UTC(),
	)
	if err != nil {
		return eris.Wrapf(model.ErrStoreWrite, "postgres: upsert document %s: %v", doc.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_document"], id)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "document %s", id)
	}
	return doc, err
}

func (s *PostgresStore) GetDocumentsByModule(ctx context.Context, module model.SCRModule, limit int) ([]model.Document, error) {
	query := `SELECT id, title, doc_type, url, file_path, publication_date,
		 regulatory_articles, scr_modules, language, reliability_score,
		 content_hash, metadata, last_updated FROM documents
		 WHERE scr_modules::text LIKE $1
		 ORDER BY reliability_score DESC, publication_date DESC NULLS LAST`
	args := []any{likePattern(module)}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: documents by module %s", module)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres: documents by module iterate")
}

func (s *PostgresStore) SearchDocuments(ctx context.Context, filter DocumentFilter) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, doc_type, url, file_path, publication_date,
		 regulatory_articles, scr_modules, language, reliability_score,
		 content_hash, metadata, last_updated FROM documents`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: search documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: search documents iterate")
	}
	return filterDocuments(docs, filter), nil
}

func (s *PostgresStore) InsertConcept(ctx context.Context, concept *model.SCRConcept) (int64, error) {
	examplesJSON, err := json.Marshal(concept.Examples)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: marshal examples")
	}

	var id int64
	err = s.pool.QueryRow(ctx, preparedStatements["insert_concept"],
		concept.ConceptName, string(concept.SCRModule), concept.Definition,
		concept.Formula, concept.RegulatoryArticle, concept.SourceDocumentID,
		examplesJSON, concept.ConfidenceScore, concept.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(model.ErrStoreWrite, "postgres: insert concept %s: %v", concept.ConceptName, err)
	}
	return id, nil
}

func (s *PostgresStore) GetConceptsByModule(ctx context.Context, module model.SCRModule) ([]model.SCRConcept, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, concept_name, scr_module, definition, formula,
		 regulatory_article, source_document_id, examples, confidence_score, created_at
		 FROM scr_concepts WHERE scr_module = $1 ORDER BY concept_name`,
		string(module),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: concepts by module %s", module)
	}
	defer rows.Close()

	var concepts []model.SCRConcept
	for rows.Next() {
		var c model.SCRConcept
		var module string
		var definition, formula, article, sourceID *string
		var examplesJSON []byte

		if err := rows.Scan(&c.ID, &c.ConceptName, &module, &definition, &formula,
			&article, &sourceID, &examplesJSON, &c.ConfidenceScore, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan concept")
		}
		c.SCRModule = model.SCRModule(module)
		c.Definition = deref(definition)
		c.Formula = deref(formula)
		c.RegulatoryArticle = deref(article)
		c.SourceDocumentID = deref(sourceID)
		if len(examplesJSON) > 0 {
			if err := json.Unmarshal(examplesJSON, &c.Examples); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal examples")
			}
		}
		concepts = append(concepts, c)
	}
	return concepts, eris.Wrap(rows.Err(), "postgres: concepts by module iterate")
}

func (s *PostgresStore) Statistics(ctx context.Context) (*model.Statistics, error) {
	stats := &model.Statistics{
		DocumentsByType:   map[string]int{},
		DocumentsByModule: map[string]int{},
		ConceptsByModule:  map[string]int{},
		LastUpdate:        time.Now().UTC(),
	}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, eris.Wrap(err, "postgres: count documents")
	}
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scr_concepts`).Scan(&stats.TotalConcepts); err != nil {
		return nil, eris.Wrap(err, "postgres: count concepts")
	}

	typeRows, err := s.pool.Query(ctx, `SELECT doc_type, COUNT(*) FROM documents GROUP BY doc_type`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: documents by type")
	}
	defer typeRows.Close()
	for typeRows.Next() {
		var docType string
		var count int
		if err := typeRows.Scan(&docType, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan type count")
		}
		stats.DocumentsByType[docType] = count
	}
	if err := typeRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: documents by type iterate")
	}

	moduleRows, err := s.pool.Query(ctx, `SELECT scr_modules FROM documents`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: documents by module")
	}
	defer moduleRows.Close()
	for moduleRows.Next() {
		var modulesJSON []byte
		if err := moduleRows.Scan(&modulesJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan module set")
		}
		var modules []string
		if err := json.Unmarshal(modulesJSON, &modules); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal module set")
		}
		for _, m := range modules {
			stats.DocumentsByModule[m]++
		}
	}
	if err := moduleRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: documents by module iterate")
	}

	conceptRows, err := s.pool.Query(ctx, `SELECT scr_module, COUNT(*) FROM scr_concepts GROUP BY scr_module`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: concepts by module")
	}
	defer conceptRows.Close()
	for conceptRows.Next() {
		var module string
		var count int
		if err := conceptRows.Scan(&module, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan concept count")
		}
		stats.ConceptsByModule[module] = count
	}
	return stats, eris.Wrap(conceptRows.Err(), "postgres: concepts by module iterate")
}

func scanPgDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var docType string
	var url, filePath, contentHash *string
	var pubDate *time.Time
	var articlesJSON, modulesJSON, metadataJSON []byte

	err := row.Scan(&d.ID, &d.Title, &docType, &url, &filePath, &pubDate,
		&articlesJSON, &modulesJSON, &d.Language, &d.ReliabilityScore,
		&contentHash, &metadataJSON, &d.LastUpdated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan document")
	}

	d.DocType = model.DocType(docType)
	d.URL = deref(url)
	d.FilePath = deref(filePath)
	d.ContentHash = deref(contentHash)
	d.PublicationDate = pubDate
	if err := json.Unmarshal(articlesJSON, &d.RegulatoryArticles); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal regulatory articles")
	}
	if err := json.Unmarshal(modulesJSON, &d.SCRModules); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal scr modules")
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &d.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
