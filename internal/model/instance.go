package model

import "time"

// Instance is a remote media-manager deployment target owned by one user.
// The API key is stored server-side and never returned to clients verbatim
// by list/get handlers (they blank it).
type Instance struct {
	ID        string      `json:"id"`
	OwnerID   string      `json:"owner_id"`
	Label     string      `json:"label"`
	URL       string      `json:"url"`
	APIKey    string      `json:"api_key,omitempty"`
	Service   ServiceKind `json:"service"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
