// Package store defines the persistence interface for formats,
// instances, and the deployment ledger.
package store

import (
	"context"
	"errors"

	"github.com/groblegark/formsync/internal/model"
)

// ErrConflict is returned when a write collides with an existing row,
// such as two live formats sharing a name for the same service.
var ErrConflict = errors.New("conflict with existing record")

// Store is the persistence interface. Not-found lookups return
// sql.ErrNoRows so callers can map them to HTTP 404 uniformly.
//
// All read and write methods are owner-scoped: a caller only ever sees
// rows whose owner_id matches, and a missing row is indistinguishable
// from a row owned by someone else.
type Store interface {
	// Formats
	CreateFormat(ctx context.Context, f *model.Format) error
	GetFormat(ctx context.Context, id, ownerID string) (*model.Format, error)
	ListFormats(ctx context.Context, filter model.FormatFilter) ([]*model.Format, int, error)
	UpdateFormat(ctx context.Context, f *model.Format) error
	SoftDeleteFormat(ctx context.Context, id, ownerID string) error

	// Instances
	CreateInstance(ctx context.Context, inst *model.Instance) error
	GetInstance(ctx context.Context, id, ownerID string) (*model.Instance, error)
	ListInstances(ctx context.Context, ownerID string) ([]*model.Instance, error)
	DeleteInstance(ctx context.Context, id, ownerID string) error

	// Deployment ledger
	UpsertDeployment(ctx context.Context, d *model.Deployment) error
	GetDeployment(ctx context.Context, id, ownerID string) (*model.Deployment, error)
	ListDeployments(ctx context.Context, filter model.DeploymentFilter) ([]*model.DeploymentStatus, error)
	DeleteDeployment(ctx context.Context, id, ownerID string) error

	// Export reads every row regardless of owner. Only the snapshot
	// exporter uses these; HTTP handlers must never call them.
	ExportFormats(ctx context.Context) ([]*model.Format, error)
	ExportDeployments(ctx context.Context) ([]*model.Deployment, error)

	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	Close() error
}
