package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

// exportStore stubs the two export methods; everything else is unused.
type exportStore struct {
	store.Store
	formats     []*model.Format
	deployments []*model.Deployment
}

func (s *exportStore) ExportFormats(ctx context.Context) ([]*model.Format, error) {
	return s.formats, nil
}

func (s *exportStore) ExportDeployments(ctx context.Context) ([]*model.Deployment, error) {
	return s.deployments, nil
}

func TestExportJSONL(t *testing.T) {
	now := time.Now().UTC()
	deleted := now.Add(-time.Hour)
	st := &exportStore{
		formats: []*model.Format{
			{ID: "cf-b", OwnerID: "bob", Name: "DV Block", Service: model.ServiceRadarr, Version: 2, DeletedAt: &deleted},
			{ID: "cf-a", OwnerID: "alice", Name: "HDR Boost", Service: model.ServiceRadarr, Version: 1},
		},
		deployments: []*model.Deployment{
			{ID: "dp-1", OwnerID: "alice", FormatID: "cf-a", InstanceID: "in-1", DeployedVersion: 1},
		},
	}

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf); err != nil {
		t.Fatalf("ExportJSONL: %v", err)
	}

	scanner := bufio.NewScanner(&buf)

	// Header line.
	if !scanner.Scan() {
		t.Fatal("missing header line")
	}
	var h header
	if err := json.Unmarshal(scanner.Bytes(), &h); err != nil {
		t.Fatalf("decode header: %v", err)
	}
	if h.Version != "1" || h.Type != "header" {
		t.Errorf("header = %+v", h)
	}
	if h.FormatCount != 2 || h.DeploymentCount != 1 {
		t.Errorf("counts = %d/%d, want 2/1", h.FormatCount, h.DeploymentCount)
	}

	// Records, sorted by ID: cf-a before cf-b, then dp-1.
	var types []string
	var firstFormatID string
	for scanner.Scan() {
		var rec struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode record: %v", err)
		}
		types = append(types, rec.Type)
		if rec.Type == "format" && firstFormatID == "" {
			var f model.Format
			json.Unmarshal(rec.Data, &f)
			firstFormatID = f.ID
		}
	}
	if len(types) != 3 || types[0] != "format" || types[1] != "format" || types[2] != "deployment" {
		t.Errorf("record types = %v", types)
	}
	if firstFormatID != "cf-a" {
		t.Errorf("first format = %s, want cf-a (sorted)", firstFormatID)
	}
}

// memDest collects writes for scheduler tests.
type memDest struct {
	mu     sync.Mutex
	writes int
}

func (d *memDest) Write(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes++
	return nil
}

func (d *memDest) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes
}

func TestScheduler_RunsImmediatelyAndStops(t *testing.T) {
	st := &exportStore{}
	dest := &memDest{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := NewScheduler(st, []Destination{dest}, time.Hour, logger)
	s.Start()

	deadline := time.After(2 * time.Second)
	for dest.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("initial snapshot never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	s.Stop()
	if dest.count() != 1 {
		t.Errorf("writes = %d, want 1 (hour-long interval)", dest.count())
	}
}
