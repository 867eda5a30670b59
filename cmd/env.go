package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/solvencykit/scrkb-cli/internal/extract"
	"github.com/solvencykit/scrkb-cli/internal/ingest"
	"github.com/solvencykit/scrkb-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: int32(cfg.Store.MaxConns),
			MinConns: int32(cfg.Store.MinConns),
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// ingestEnv bundles everything an ingestion command needs.
type ingestEnv struct {
	Store        store.Store
	Orchestrator *ingest.Orchestrator
}

func (e *ingestEnv) Close() {
	_ = e.Store.Close()
}

func initIngest(ctx context.Context) (*ingestEnv, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	pdf := extract.NewPDFExtractor()
	pdf.MaxPages = cfg.Extract.MaxPDFPages
	html := extract.NewHTMLExtractor(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst)
	factory := extract.NewFactory(pdf, html)

	return &ingestEnv{
		Store:        st,
		Orchestrator: ingest.NewOrchestrator(st, factory, cfg.Extract.MaxFileSizeMB),
	}, nil
}
