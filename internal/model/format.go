package model

import (
	"encoding/json"
	"time"
)

// ServiceKind identifies which media manager flavor an instance or format
// targets. A format can only be deployed to an instance of the same kind.
type ServiceKind string

const (
	ServiceRadarr ServiceKind = "radarr"
	ServiceSonarr ServiceKind = "sonarr"
)

// String returns the string representation of the service kind.
func (k ServiceKind) String() string {
	return string(k)
}

// IsValid checks whether the service kind is a known value.
func (k ServiceKind) IsValid() bool {
	switch k {
	case ServiceRadarr, ServiceSonarr:
		return true
	}
	return false
}

// Specification is one matching rule within a format. The shape of Fields is
// defined by Implementation and is treated as opaque JSON here; the remote
// API defines the per-implementation field schemas.
type Specification struct {
	Name           string          `json:"name"`
	Implementation string          `json:"implementation"`
	Negate         bool            `json:"negate"`
	Required       bool            `json:"required"`
	Fields         json.RawMessage `json:"fields,omitempty"`
}

// Format is a locally authored, versioned custom format. Version starts at 1
// and increments only when the specifications are resubmitted (see
// ApplyFormatPatch). Deletion is a tombstone so deployment ledger rows can
// keep referencing the format.
type Format struct {
	ID                  string          `json:"id"`
	OwnerID             string          `json:"owner_id"`
	Name                string          `json:"name"`
	Service             ServiceKind     `json:"service"`
	IncludeWhenRenaming bool            `json:"include_when_renaming"`
	Specifications      []Specification `json:"specifications"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	DeletedAt           *time.Time      `json:"deleted_at,omitempty"`
}

// FormatPatch holds a partial update to a format. Nil pointer fields mean
// "don't change"; a nil Specifications slice means the specifications were
// not submitted at all.
type FormatPatch struct {
	Name                *string         `json:"name,omitempty"`
	IncludeWhenRenaming *bool           `json:"include_when_renaming,omitempty"`
	Specifications      []Specification `json:"specifications,omitempty"`
}

// ApplyFormatPatch applies a partial update to f and reports whether the
// version counter was bumped. Any submitted specifications bump the version
// by exactly 1, whether or not the content actually changed: the policy is
// content-blind and trusts the caller not to resend unchanged rule sets.
// Name and rename-flag edits never touch the version.
func ApplyFormatPatch(f *Format, p FormatPatch) bool {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.IncludeWhenRenaming != nil {
		f.IncludeWhenRenaming = *p.IncludeWhenRenaming
	}

	bumped := false
	if p.Specifications != nil {
		f.Specifications = p.Specifications
		f.Version++
		bumped = true
	}

	f.UpdatedAt = time.Now().UTC()
	return bumped
}
