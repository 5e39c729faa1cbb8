package application

import (
	"context"
	"fmt"
	"io"

	"sistemaAcademico/access"
	"sistemaAcademico/assignment"
	"sistemaAcademico/auth"
	"sistemaAcademico/config"
	"sistemaAcademico/directory"
	"sistemaAcademico/evaluation"
	"sistemaAcademico/logger"
	"sistemaAcademico/registry"
	"sistemaAcademico/store"
)

// Application wires the configured store backend into the domain services.
// The services are invoked in-process by whatever presentation layer hosts
// this backend; nothing here listens on the network.
type Application struct {
	Store       store.TabularStore
	Gate        *auth.Gate
	Access      *access.Ledger
	Assignments *assignment.Service
	Evaluation  *evaluation.Service
	Registry    *registry.Service
	Directory   *directory.Service

	logr   *logger.Logger
	closer io.Closer
}

func NewApplication() *Application {
	return &Application{}
}

func (app *Application) Configure(cfg *config.Config, logr *logger.Logger) error {
	app.logr = logr

	st, closer, err := openStore(&cfg.Store)
	if err != nil {
		return err
	}
	app.Store = st
	app.closer = closer

	for table, header := range store.DefaultHeaders {
		if err := st.CreateTable(table, header); err != nil {
			app.Close()
			return fmt.Errorf("bootstrap table %s: %w", table, err)
		}
	}

	app.Gate = auth.NewGate(st, logr)
	app.Access = access.NewLedger(st, logr)
	app.Assignments = assignment.NewService(st, logr)
	app.Evaluation = evaluation.NewService(st, app.Assignments, logr)
	app.Registry = registry.NewService(st, app.Access, logr)
	app.Directory = directory.NewService(st, logr)

	logr.Infof("application configured with %s store", cfg.Store.Backend)
	return nil
}

func (app *Application) Run(ctx context.Context) {
	<-ctx.Done()
}

func (app *Application) Close() {
	if app.closer != nil {
		_ = app.closer.Close()
	}
}

func openStore(cfg *config.StoreConfig) (store.TabularStore, io.Closer, error) {
	switch cfg.Backend {
	case "memory", "":
		return store.NewMemory(), nil, nil
	case "postgres":
		pg, err := store.OpenPostgres(cfg.PostgresURI)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	case "bolt":
		b, err := store.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
