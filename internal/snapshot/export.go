// Package snapshot exports the full catalog (formats and the deployment
// ledger, all owners, tombstones included) as JSONL for off-site backup.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/groblegark/formsync/internal/store"
)

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version         string    `json:"version"`
	Type            string    `json:"type"`
	Timestamp       time.Time `json:"timestamp"`
	FormatCount     int       `json:"format_count"`
	DeploymentCount int       `json:"deployment_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ExportJSONL writes every format and ledger entry from the store as JSONL
// to w, sorted by ID for stable diffs between snapshots.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	formats, err := s.ExportFormats(ctx)
	if err != nil {
		return fmt.Errorf("export formats: %w", err)
	}
	sort.Slice(formats, func(i, j int) bool {
		return formats[i].ID < formats[j].ID
	})

	deployments, err := s.ExportDeployments(ctx)
	if err != nil {
		return fmt.Errorf("export deployments: %w", err)
	}
	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].ID < deployments[j].ID
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:         "1",
		Type:            "header",
		Timestamp:       time.Now().UTC(),
		FormatCount:     len(formats),
		DeploymentCount: len(deployments),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, f := range formats {
		if err := enc.Encode(record{Type: "format", Data: f}); err != nil {
			return fmt.Errorf("encode format %s: %w", f.ID, err)
		}
	}

	for _, d := range deployments {
		if err := enc.Encode(record{Type: "deployment", Data: d}); err != nil {
			return fmt.Errorf("encode deployment %s: %w", d.ID, err)
		}
	}

	return nil
}
