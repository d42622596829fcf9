package model

import (
	"encoding/json"
	"time"
)

// Deployment is the ledger entry recording what version of a format is
// currently believed deployed to an instance. There is at most one entry per
// (instance, format) pair; redeployments overwrite version, snapshot,
// remote id, and timestamp together.
type Deployment struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	FormatID        string          `json:"format_id"`
	InstanceID      string          `json:"instance_id"`
	RemoteID        int64           `json:"remote_id"`
	DeployedVersion int             `json:"deployed_version"`
	DeployedSpecs   json.RawMessage `json:"deployed_specs,omitempty"`
	DeployedAt      time.Time       `json:"deployed_at"`
}

// DeploymentStatus is a ledger entry joined with the live format state.
// NeedsUpdate is derived at read time, never stored: it is true when the
// format's live version exceeds the deployed version and the format has not
// been tombstoned. A tombstoned format is no longer deployable, so its
// entries report false regardless of version skew.
type DeploymentStatus struct {
	Deployment
	FormatName  string      `json:"format_name"`
	Service     ServiceKind `json:"service"`
	LiveVersion int         `json:"live_version"`
	NeedsUpdate bool        `json:"needs_update"`
}
