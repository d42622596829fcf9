// Package client provides a Go client for the formsync HTTP API.
package client

import (
	"context"

	"github.com/groblegark/formsync/internal/engine"
	"github.com/groblegark/formsync/internal/model"
)

// CreateFormatRequest holds parameters for creating a format.
type CreateFormatRequest struct {
	Name                string                `json:"name"`
	Service             string                `json:"service"`
	IncludeWhenRenaming bool                  `json:"include_when_renaming"`
	Specifications      []model.Specification `json:"specifications"`
}

// UpdateFormatRequest holds a partial format update. Nil fields are left
// unchanged; submitting Specifications bumps the format version.
type UpdateFormatRequest struct {
	Name                *string               `json:"name,omitempty"`
	IncludeWhenRenaming *bool                 `json:"include_when_renaming,omitempty"`
	Specifications      []model.Specification `json:"specifications,omitempty"`
}

// ListFormatsRequest holds filters for listing formats.
type ListFormatsRequest struct {
	Service string
	Search  string
	Limit   int
	Offset  int
}

// ListFormatsResponse is the paginated format listing.
type ListFormatsResponse struct {
	Formats []*model.Format `json:"formats"`
	Total   int             `json:"total"`
}

// CreateInstanceRequest holds parameters for registering an instance.
type CreateInstanceRequest struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	APIKey  string `json:"api_key"`
	Service string `json:"service"`
}

// ListDeploymentsRequest holds filters for listing ledger entries.
type ListDeploymentsRequest struct {
	InstanceID string
	Service    string
}

// Client is the interface for talking to a formsync server.
type Client interface {
	CreateFormat(ctx context.Context, req *CreateFormatRequest) (*model.Format, error)
	GetFormat(ctx context.Context, id string) (*model.Format, error)
	ListFormats(ctx context.Context, req *ListFormatsRequest) (*ListFormatsResponse, error)
	UpdateFormat(ctx context.Context, id string, req *UpdateFormatRequest) (*model.Format, error)
	DeleteFormat(ctx context.Context, id string) error

	CreateInstance(ctx context.Context, req *CreateInstanceRequest) (*model.Instance, error)
	GetInstance(ctx context.Context, id string) (*model.Instance, error)
	ListInstances(ctx context.Context) ([]*model.Instance, error)
	DeleteInstance(ctx context.Context, id string) error

	Deploy(ctx context.Context, instanceID string, formatIDs []string) (*engine.BatchResult, error)
	ListDeployments(ctx context.Context, req *ListDeploymentsRequest) ([]*model.DeploymentStatus, error)
	ListUpdates(ctx context.Context, req *ListDeploymentsRequest) ([]*model.DeploymentStatus, error)
	Untrack(ctx context.Context, deploymentID string) error

	Health(ctx context.Context) (string, error)
	Close() error
}
