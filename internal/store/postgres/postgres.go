// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateFormat(ctx context.Context, f *model.Format) error {
	return queryCreateFormat(ctx, s.db, f)
}

func (s *PostgresStore) GetFormat(ctx context.Context, id, ownerID string) (*model.Format, error) {
	return queryGetFormat(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) ListFormats(ctx context.Context, filter model.FormatFilter) ([]*model.Format, int, error) {
	return queryListFormats(ctx, s.db, filter)
}

func (s *PostgresStore) UpdateFormat(ctx context.Context, f *model.Format) error {
	return queryUpdateFormat(ctx, s.db, f)
}

func (s *PostgresStore) SoftDeleteFormat(ctx context.Context, id, ownerID string) error {
	return querySoftDeleteFormat(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) CreateInstance(ctx context.Context, inst *model.Instance) error {
	return queryCreateInstance(ctx, s.db, inst)
}

func (s *PostgresStore) GetInstance(ctx context.Context, id, ownerID string) (*model.Instance, error) {
	return queryGetInstance(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) ListInstances(ctx context.Context, ownerID string) ([]*model.Instance, error) {
	return queryListInstances(ctx, s.db, ownerID)
}

func (s *PostgresStore) DeleteInstance(ctx context.Context, id, ownerID string) error {
	return queryDeleteInstance(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) UpsertDeployment(ctx context.Context, d *model.Deployment) error {
	return queryUpsertDeployment(ctx, s.db, d)
}

func (s *PostgresStore) GetDeployment(ctx context.Context, id, ownerID string) (*model.Deployment, error) {
	return queryGetDeployment(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) ListDeployments(ctx context.Context, filter model.DeploymentFilter) ([]*model.DeploymentStatus, error) {
	return queryListDeployments(ctx, s.db, filter)
}

func (s *PostgresStore) DeleteDeployment(ctx context.Context, id, ownerID string) error {
	return queryDeleteDeployment(ctx, s.db, id, ownerID)
}

func (s *PostgresStore) ExportFormats(ctx context.Context) ([]*model.Format, error) {
	return queryExportFormats(ctx, s.db)
}

func (s *PostgresStore) ExportDeployments(ctx context.Context) ([]*model.Deployment, error) {
	return queryExportDeployments(ctx, s.db)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) CreateFormat(ctx context.Context, f *model.Format) error {
	return queryCreateFormat(ctx, s.tx, f)
}

// GetFormat inside a transaction takes a row lock so a read-modify-write
// sequence cannot interleave with another writer's.
func (s *txStore) GetFormat(ctx context.Context, id, ownerID string) (*model.Format, error) {
	return queryGetFormatForUpdate(ctx, s.tx, id, ownerID)
}

func (s *txStore) ListFormats(ctx context.Context, filter model.FormatFilter) ([]*model.Format, int, error) {
	return queryListFormats(ctx, s.tx, filter)
}

func (s *txStore) UpdateFormat(ctx context.Context, f *model.Format) error {
	return queryUpdateFormat(ctx, s.tx, f)
}

func (s *txStore) SoftDeleteFormat(ctx context.Context, id, ownerID string) error {
	return querySoftDeleteFormat(ctx, s.tx, id, ownerID)
}

func (s *txStore) CreateInstance(ctx context.Context, inst *model.Instance) error {
	return queryCreateInstance(ctx, s.tx, inst)
}

func (s *txStore) GetInstance(ctx context.Context, id, ownerID string) (*model.Instance, error) {
	return queryGetInstance(ctx, s.tx, id, ownerID)
}

func (s *txStore) ListInstances(ctx context.Context, ownerID string) ([]*model.Instance, error) {
	return queryListInstances(ctx, s.tx, ownerID)
}

func (s *txStore) DeleteInstance(ctx context.Context, id, ownerID string) error {
	return queryDeleteInstance(ctx, s.tx, id, ownerID)
}

func (s *txStore) UpsertDeployment(ctx context.Context, d *model.Deployment) error {
	return queryUpsertDeployment(ctx, s.tx, d)
}

func (s *txStore) GetDeployment(ctx context.Context, id, ownerID string) (*model.Deployment, error) {
	return queryGetDeployment(ctx, s.tx, id, ownerID)
}

func (s *txStore) ListDeployments(ctx context.Context, filter model.DeploymentFilter) ([]*model.DeploymentStatus, error) {
	return queryListDeployments(ctx, s.tx, filter)
}

func (s *txStore) DeleteDeployment(ctx context.Context, id, ownerID string) error {
	return queryDeleteDeployment(ctx, s.tx, id, ownerID)
}

func (s *txStore) ExportFormats(ctx context.Context) ([]*model.Format, error) {
	return queryExportFormats(ctx, s.tx)
}

func (s *txStore) ExportDeployments(ctx context.Context) ([]*model.Deployment, error) {
	return queryExportDeployments(ctx, s.tx)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
