package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/groblegark/formsync/internal/arr"
	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

// fakeStore implements the store.Store methods the engine touches; the rest
// panic to catch unexpected calls.
type fakeStore struct {
	store.Store

	mu          sync.Mutex
	instances   map[string]*model.Instance
	formats     map[string]*model.Format
	deployments []*model.Deployment
	upsertErrOn string // format id whose ledger write should fail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		instances: make(map[string]*model.Instance),
		formats:   make(map[string]*model.Format),
	}
}

func (s *fakeStore) GetInstance(ctx context.Context, id, ownerID string) (*model.Instance, error) {
	inst, ok := s.instances[id]
	if !ok || inst.OwnerID != ownerID {
		return nil, sql.ErrNoRows
	}
	return inst, nil
}

func (s *fakeStore) ListFormats(ctx context.Context, filter model.FormatFilter) ([]*model.Format, int, error) {
	var out []*model.Format
	for _, id := range filter.IDs {
		f, ok := s.formats[id]
		if !ok || f.OwnerID != filter.OwnerID || f.DeletedAt != nil {
			continue
		}
		out = append(out, f)
	}
	return out, len(out), nil
}

func (s *fakeStore) UpsertDeployment(ctx context.Context, d *model.Deployment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.FormatID == s.upsertErrOn {
		return errors.New("ledger write failed")
	}
	for i, existing := range s.deployments {
		if existing.InstanceID == d.InstanceID && existing.FormatID == d.FormatID {
			d.ID = existing.ID
			s.deployments[i] = d
			return nil
		}
	}
	d.DeployedAt = time.Now()
	s.deployments = append(s.deployments, d)
	return nil
}

// fakeClient implements arr.Client in memory.
type fakeClient struct {
	mu       sync.Mutex
	existing []arr.RemoteFormat
	nextID   int64
	failOn   string // format name whose remote write should fail
	creates  int
	updates  int
	lists    int
}

func (c *fakeClient) ListCustomFormats(ctx context.Context) ([]arr.RemoteFormat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists++
	return slices.Clone(c.existing), nil
}

func (c *fakeClient) CreateCustomFormat(ctx context.Context, f arr.RemoteFormat) (arr.RemoteFormat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Name == c.failOn {
		return arr.RemoteFormat{}, errors.New("remote rejected format")
	}
	c.creates++
	c.nextID++
	f.ID = c.nextID
	c.existing = append(c.existing, f)
	return f, nil
}

func (c *fakeClient) UpdateCustomFormat(ctx context.Context, f arr.RemoteFormat) (arr.RemoteFormat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f.Name == c.failOn {
		return arr.RemoteFormat{}, errors.New("remote rejected format")
	}
	c.updates++
	return f, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine(st *fakeStore, client *fakeClient) *Engine {
	return New(st, &events.NoopPublisher{},
		func(*model.Instance) arr.Client { return client },
		4, testLogger())
}

func seed(st *fakeStore) {
	st.instances["in-1"] = &model.Instance{
		ID: "in-1", OwnerID: "alice", Label: "main", URL: "http://radarr:7878",
		APIKey: "k", Service: model.ServiceRadarr,
	}
	st.formats["cf-a"] = &model.Format{
		ID: "cf-a", OwnerID: "alice", Name: "HDR Boost", Service: model.ServiceRadarr,
		Version: 2, Specifications: []model.Specification{
			{Name: "hdr", Implementation: "ReleaseTitleSpecification", Fields: json.RawMessage(`{"value":"HDR"}`)},
		},
	}
	st.formats["cf-b"] = &model.Format{
		ID: "cf-b", OwnerID: "alice", Name: "DV Block", Service: model.ServiceRadarr,
		Version: 1, Specifications: []model.Specification{
			{Name: "dv", Implementation: "ReleaseTitleSpecification", Negate: true, Fields: json.RawMessage(`{"value":"DV"}`)},
		},
	}
}

func TestDeployBatch_CreateAndUpdate(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{
		existing: []arr.RemoteFormat{{ID: 7, Name: "HDR Boost"}},
	}
	e := testEngine(st, client)

	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a", "cf-b"})
	if err != nil {
		t.Fatalf("DeployBatch: %v", err)
	}

	// cf-a ("HDR Boost") exists remotely by name and is updated; cf-b
	// ("DV Block") is created. Result buckets carry the format names.
	if !slices.Equal(result.Updated, []string{"HDR Boost"}) {
		t.Errorf("Updated = %v, want [HDR Boost]", result.Updated)
	}
	if !slices.Equal(result.Created, []string{"DV Block"}) {
		t.Errorf("Created = %v, want [DV Block]", result.Created)
	}
	if len(result.Failed) != 0 {
		t.Errorf("Failed = %v, want empty", result.Failed)
	}
	if client.lists != 1 {
		t.Errorf("remote listed %d times, want 1", client.lists)
	}
	if client.creates != 1 || client.updates != 1 {
		t.Errorf("creates=%d updates=%d, want 1/1", client.creates, client.updates)
	}

	if len(st.deployments) != 2 {
		t.Fatalf("got %d ledger entries, want 2", len(st.deployments))
	}
	for _, d := range st.deployments {
		if d.FormatID == "cf-a" {
			if d.RemoteID != 7 || d.DeployedVersion != 2 {
				t.Errorf("cf-a ledger entry: %+v", d)
			}
		}
	}
}

func TestDeployBatch_NameMatchIsCaseInsensitive(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{
		existing: []arr.RemoteFormat{{ID: 7, Name: "hdr boost"}},
	}
	e := testEngine(st, client)

	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a"})
	if err != nil {
		t.Fatalf("DeployBatch: %v", err)
	}
	if len(result.Updated) != 1 || client.updates != 1 {
		t.Errorf("expected case-insensitive name match to update, got %+v", result)
	}
}

func TestDeployBatch_PartialFailure(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{failOn: "DV Block"}
	e := testEngine(st, client)

	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a", "cf-b"})
	if err != nil {
		t.Fatalf("DeployBatch: %v", err)
	}

	if !slices.Equal(result.Created, []string{"HDR Boost"}) {
		t.Errorf("Created = %v, want [HDR Boost]", result.Created)
	}
	if len(result.Failed) != 1 || result.Failed[0].FormatID != "cf-b" {
		t.Fatalf("Failed = %+v, want one entry for cf-b", result.Failed)
	}
	if result.Failed[0].Name != "DV Block" {
		t.Errorf("Failed[0].Name = %q, want DV Block", result.Failed[0].Name)
	}
	if result.Failed[0].Error == "" {
		t.Error("failure should carry the error message")
	}

	// Only the successful item gets a ledger entry.
	if len(st.deployments) != 1 || st.deployments[0].FormatID != "cf-a" {
		t.Errorf("ledger entries: %+v", st.deployments)
	}
}

func TestDeployBatch_LedgerFailureIsItemFailure(t *testing.T) {
	st := newFakeStore()
	seed(st)
	st.upsertErrOn = "cf-a"
	client := &fakeClient{}
	e := testEngine(st, client)

	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a"})
	if err != nil {
		t.Fatalf("DeployBatch: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].FormatID != "cf-a" {
		t.Fatalf("Failed = %+v", result.Failed)
	}
	// The remote write went through before the ledger failed.
	if client.creates != 1 {
		t.Errorf("remote creates = %d, want 1", client.creates)
	}
}

func TestDeployBatch_ServiceMismatchRejectsWholeBatch(t *testing.T) {
	st := newFakeStore()
	seed(st)
	st.formats["cf-c"] = &model.Format{
		ID: "cf-c", OwnerID: "alice", Name: "Anime Tier", Service: model.ServiceSonarr,
		Version: 1, Specifications: []model.Specification{
			{Name: "s", Implementation: "X"},
		},
	}
	client := &fakeClient{}
	e := testEngine(st, client)

	_, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a", "cf-c"})

	var mismatch *ServiceMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected ServiceMismatchError, got %v", err)
	}
	if mismatch.FormatName != "Anime Tier" {
		t.Errorf("FormatName = %q", mismatch.FormatName)
	}

	// Guard failures happen before any network call or ledger write.
	if client.lists != 0 || client.creates != 0 || client.updates != 0 {
		t.Errorf("remote touched on guard failure: %+v", client)
	}
	if len(st.deployments) != 0 {
		t.Errorf("ledger touched on guard failure: %+v", st.deployments)
	}
}

func TestDeployBatch_MissingFormat(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{}
	e := testEngine(st, client)

	_, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a", "cf-nope"})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "format" {
		t.Fatalf("expected format NotFoundError, got %v", err)
	}
	if client.lists != 0 {
		t.Error("remote touched on guard failure")
	}
}

func TestDeployBatch_InstanceNotOwned(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{}
	e := testEngine(st, client)

	_, err := e.DeployBatch(context.Background(), "bob", "in-1", []string{"cf-a"})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "instance" {
		t.Fatalf("expected instance NotFoundError, got %v", err)
	}
}

func TestDeployBatch_TombstonedFormatNotFound(t *testing.T) {
	st := newFakeStore()
	seed(st)
	now := time.Now()
	st.formats["cf-a"].DeletedAt = &now
	client := &fakeClient{}
	e := testEngine(st, client)

	_, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a"})

	var notFound *NotFoundError
	if !errors.As(err, &notFound) || notFound.Resource != "format" {
		t.Fatalf("expected format NotFoundError, got %v", err)
	}
}

func TestDeployBatch_RedeployUpsertsSameLedgerEntry(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{}
	e := testEngine(st, client)

	if _, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a"}); err != nil {
		t.Fatalf("first deploy: %v", err)
	}
	firstID := st.deployments[0].ID

	// Version moves, then redeploy.
	st.formats["cf-a"].Version = 3
	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a"})
	if err != nil {
		t.Fatalf("second deploy: %v", err)
	}
	if len(result.Updated) != 1 {
		t.Errorf("redeploy should be an update: %+v", result)
	}
	if len(st.deployments) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(st.deployments))
	}
	if st.deployments[0].ID != firstID || st.deployments[0].DeployedVersion != 3 {
		t.Errorf("ledger entry not upserted in place: %+v", st.deployments[0])
	}
}

func TestDeployBatch_DuplicateIDsDeduped(t *testing.T) {
	st := newFakeStore()
	seed(st)
	client := &fakeClient{}
	e := testEngine(st, client)

	result, err := e.DeployBatch(context.Background(), "alice", "in-1", []string{"cf-a", "cf-a", "cf-a"})
	if err != nil {
		t.Fatalf("DeployBatch: %v", err)
	}
	if len(result.Created) != 1 || client.creates != 1 {
		t.Errorf("duplicates not deduped: %+v, creates=%d", result, client.creates)
	}
}
