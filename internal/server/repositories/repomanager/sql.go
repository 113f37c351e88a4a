package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/eventhub/internal/dbx"
	"github.com/dmitrijs2005/eventhub/internal/server/migrations"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/events"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/registrations"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/verifications"
)

// SQLStore keeps state in PostgreSQL or SQLite through database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dbx.Dialect
	// mu is the store-wide write lock; every Update holds it for the whole
	// transaction.
	mu sync.Mutex
}

// NewSQLStore wraps an open database. The schema is expected to be
// migrated already; see RunMigrations.
func NewSQLStore(db *sql.DB, dialect dbx.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// OpenSQLStore connects to driver ("postgres" or "sqlite") at dsn, applies
// migrations and returns the ready store.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect, err := dbx.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sqlOpen(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dbx.SQLite {
		// One connection: SQLite allows a single writer and a pool of
		// connections to an in-memory database would each see their own.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return NewSQLStore(db, dialect), nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

var gooseMu sync.Mutex

// RunMigrations sets up goose with the embedded migrations and brings the
// schema up to date.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	// goose keeps its base FS and dialect in package globals.
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(dialect.GooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

type sqlRepos struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

func (r sqlRepos) Users() users.Repository {
	return users.NewSQLRepository(r.db, r.dialect)
}

func (r sqlRepos) Events() events.Repository {
	return events.NewSQLRepository(r.db, r.dialect)
}

func (r sqlRepos) Registrations() registrations.Repository {
	return registrations.NewSQLRepository(r.db, r.dialect)
}

func (r sqlRepos) Verifications() verifications.Repository {
	return verifications.NewSQLRepository(r.db, r.dialect)
}

func (s *SQLStore) viewOptions() *sql.TxOptions {
	if s.dialect == dbx.Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// View runs fn inside a read transaction so that every query of fn reads
// the same snapshot.
func (s *SQLStore) View(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	return dbx.WithTx(ctx, s.db, s.viewOptions(), func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, sqlRepos{db: dbx.ReadOnly(tx), dialect: s.dialect})
	})
}

func (s *SQLStore) Update(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, sqlRepos{db: tx, dialect: s.dialect})
	})
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
