// Package engine reconciles locally authored formats against remote
// instances: it pushes format content to the remote API and records what was
// pushed in the deployment ledger.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/groblegark/formsync/internal/arr"
	"github.com/groblegark/formsync/internal/events"
	"github.com/groblegark/formsync/internal/idgen"
	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

// NotFoundError reports that a referenced resource does not exist for the
// calling owner. Unowned and absent resources are deliberately
// indistinguishable.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ServiceMismatchError reports a format whose service kind does not match
// the target instance. The whole batch is rejected before any network call.
type ServiceMismatchError struct {
	FormatName      string
	FormatService   model.ServiceKind
	InstanceService model.ServiceKind
}

func (e *ServiceMismatchError) Error() string {
	return fmt.Sprintf("format %q targets %s but instance is %s",
		e.FormatName, e.FormatService, e.InstanceService)
}

// ItemFailure records one format that could not be deployed.
type ItemFailure struct {
	FormatID string `json:"format_id"`
	Name     string `json:"name"`
	Error    string `json:"error"`
}

// BatchResult is the outcome of one deploy batch. A batch that passes the
// pre-flight guards always returns a result: individual items may fail
// without failing the batch. Created and Updated carry format names, the
// identity the remote API itself keys on.
type BatchResult struct {
	Created []string      `json:"created"`
	Updated []string      `json:"updated"`
	Failed  []ItemFailure `json:"failed"`
}

// Deployer is the deployment surface the HTTP layer depends on.
type Deployer interface {
	DeployBatch(ctx context.Context, ownerID, instanceID string, formatIDs []string) (*BatchResult, error)
}

// Engine implements Deployer against a store and per-instance remote clients.
type Engine struct {
	store       store.Store
	publisher   events.Publisher
	clientFor   func(*model.Instance) arr.Client
	concurrency int
	logger      *slog.Logger
}

var _ Deployer = (*Engine)(nil)

// New creates an engine. clientFor may be nil, in which case real HTTP
// clients are built from instance records.
func New(st store.Store, pub events.Publisher, clientFor func(*model.Instance) arr.Client, concurrency int, logger *slog.Logger) *Engine {
	if clientFor == nil {
		clientFor = arr.ForInstance
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		store:       st,
		publisher:   pub,
		clientFor:   clientFor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// DeployBatch pushes the given formats to one instance.
//
// Guards run before any network traffic: the instance and every format must
// exist for the owner, and every format's service kind must match the
// instance. A guard failure rejects the whole batch.
//
// Past the guards, each format is deployed independently: the remote's
// current formats are listed once, then each local format is created or
// updated by name match and its ledger entry upserted. A failure on one item
// never aborts the others. Once remote writes begin, caller cancellation is
// ignored so the ledger cannot miss a write that already happened remotely.
func (e *Engine) DeployBatch(ctx context.Context, ownerID, instanceID string, formatIDs []string) (*BatchResult, error) {
	inst, err := e.store.GetInstance(ctx, instanceID, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "instance"}
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}

	ids := dedupe(formatIDs)
	formats, _, err := e.store.ListFormats(ctx, model.FormatFilter{
		OwnerID: ownerID,
		IDs:     ids,
	})
	if err != nil {
		return nil, fmt.Errorf("list formats: %w", err)
	}
	if len(formats) != len(ids) {
		return nil, &NotFoundError{Resource: "format"}
	}

	for _, f := range formats {
		if f.Service != inst.Service {
			return nil, &ServiceMismatchError{
				FormatName:      f.Name,
				FormatService:   f.Service,
				InstanceService: inst.Service,
			}
		}
	}

	client := e.clientFor(inst)

	remote, err := client.ListCustomFormats(ctx)
	if err != nil {
		return nil, fmt.Errorf("list remote formats: %w", err)
	}
	byName := indexByName(remote)

	// Remote writes and their ledger records must complete even if the
	// caller goes away mid-batch.
	detached := context.WithoutCancel(ctx)

	var (
		mu     sync.Mutex
		result BatchResult
	)

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, f := range formats {
		g.Go(func() error {
			created, err := e.deployOne(detached, client, byName, f, inst)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed = append(result.Failed, ItemFailure{
					FormatID: f.ID,
					Name:     f.Name,
					Error:    err.Error(),
				})
			case created:
				result.Created = append(result.Created, f.Name)
			default:
				result.Updated = append(result.Updated, f.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(result.Created)
	sort.Strings(result.Updated)
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].FormatID < result.Failed[j].FormatID
	})

	e.publishCompleted(detached, instanceID, &result)

	return &result, nil
}

// deployOne pushes one format and records the ledger entry. It reports
// whether the remote format was created (as opposed to updated).
func (e *Engine) deployOne(ctx context.Context, client arr.Client, byName map[string]arr.RemoteFormat, f *model.Format, inst *model.Instance) (bool, error) {
	payload, err := arr.BuildRemoteFormat(f)
	if err != nil {
		return false, err
	}

	var (
		pushed  arr.RemoteFormat
		created bool
	)
	if existing, ok := byName[strings.ToLower(f.Name)]; ok {
		payload.ID = existing.ID
		pushed, err = client.UpdateCustomFormat(ctx, payload)
	} else {
		pushed, err = client.CreateCustomFormat(ctx, payload)
		created = true
	}
	if err != nil {
		return false, err
	}

	specs, err := json.Marshal(f.Specifications)
	if err != nil {
		return false, fmt.Errorf("encode deployed specs: %w", err)
	}

	id, err := idgen.Generate(idgen.DeploymentPrefix)
	if err != nil {
		return false, err
	}

	// The remote write already happened; a ledger failure leaves the entry
	// stale until the next deploy upserts over it.
	dep := &model.Deployment{
		ID:              id,
		OwnerID:         f.OwnerID,
		FormatID:        f.ID,
		InstanceID:      inst.ID,
		RemoteID:        pushed.ID,
		DeployedVersion: f.Version,
		DeployedSpecs:   specs,
	}
	if err := e.store.UpsertDeployment(ctx, dep); err != nil {
		return false, fmt.Errorf("record deployment: %w", err)
	}

	e.logger.Info("format deployed",
		"format_id", f.ID,
		"instance_id", inst.ID,
		"remote_id", pushed.ID,
		"version", f.Version,
		"created", created,
	)
	return created, nil
}

func (e *Engine) publishCompleted(ctx context.Context, instanceID string, result *BatchResult) {
	failed := make([]string, 0, len(result.Failed))
	for _, f := range result.Failed {
		failed = append(failed, f.Name)
	}
	err := e.publisher.Publish(ctx, events.TopicDeployCompleted, events.DeployCompleted{
		InstanceID: instanceID,
		Created:    result.Created,
		Updated:    result.Updated,
		Failed:     failed,
	})
	if err != nil {
		e.logger.Warn("failed to publish deploy event", "error", err)
	}
}

// indexByName maps remote formats by lowercased name. When the remote holds
// duplicate names the last one listed wins.
func indexByName(remote []arr.RemoteFormat) map[string]arr.RemoteFormat {
	byName := make(map[string]arr.RemoteFormat, len(remote))
	for _, rf := range remote {
		byName[strings.ToLower(rf.Name)] = rf
	}
	return byName
}

// dedupe removes duplicate ids, keeping first-seen order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
