package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/groblegark/formsync/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanFormat scans a single row into a model.Format.
// The row must contain columns in the order defined by formatColumns.
func scanFormat(row scannable) (*model.Format, error) {
	var f model.Format
	var (
		service   string
		specs     []byte
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&service,
		&f.IncludeWhenRenaming,
		&specs,
		&f.Version,
		&f.CreatedAt,
		&f.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	f.Service = model.ServiceKind(service)
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &f.Specifications); err != nil {
			return nil, fmt.Errorf("decode specifications: %w", err)
		}
	}

	return &f, nil
}

// scanFormatWithTotal scans a row that has a leading total_count column
// followed by the standard format columns. Used by queryListFormats with
// COUNT(*) OVER().
func scanFormatWithTotal(row scannable) (*model.Format, int, error) {
	var total int
	var f model.Format
	var (
		service   string
		specs     []byte
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&total,
		&f.ID,
		&f.OwnerID,
		&f.Name,
		&service,
		&f.IncludeWhenRenaming,
		&specs,
		&f.Version,
		&f.CreatedAt,
		&f.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	f.Service = model.ServiceKind(service)
	if deletedAt.Valid {
		t := deletedAt.Time
		f.DeletedAt = &t
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &f.Specifications); err != nil {
			return nil, 0, fmt.Errorf("decode specifications: %w", err)
		}
	}

	return &f, total, nil
}

// scanInstance scans a single row into a model.Instance.
func scanInstance(row scannable) (*model.Instance, error) {
	var inst model.Instance
	var service string
	err := row.Scan(
		&inst.ID,
		&inst.OwnerID,
		&inst.Label,
		&inst.URL,
		&inst.APIKey,
		&service,
		&inst.CreatedAt,
		&inst.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inst.Service = model.ServiceKind(service)
	return &inst, nil
}

// scanInstances scans multiple rows into a slice of model.Instance pointers.
func scanInstances(rows *sql.Rows) ([]*model.Instance, error) {
	var instances []*model.Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return instances, nil
}

// scanDeployment scans a single row into a model.Deployment.
func scanDeployment(row scannable) (*model.Deployment, error) {
	var d model.Deployment
	var specs []byte
	err := row.Scan(
		&d.ID,
		&d.OwnerID,
		&d.FormatID,
		&d.InstanceID,
		&d.RemoteID,
		&d.DeployedVersion,
		&specs,
		&d.DeployedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(specs) > 0 {
		d.DeployedSpecs = json.RawMessage(specs)
	}
	return &d, nil
}

// scanDeploymentStatus scans a ledger row joined with the live format columns
// (name, service, version) and the computed needs_update flag.
func scanDeploymentStatus(row scannable) (*model.DeploymentStatus, error) {
	var st model.DeploymentStatus
	var (
		specs   []byte
		service string
	)
	err := row.Scan(
		&st.ID,
		&st.OwnerID,
		&st.FormatID,
		&st.InstanceID,
		&st.RemoteID,
		&st.DeployedVersion,
		&specs,
		&st.DeployedAt,
		&st.FormatName,
		&service,
		&st.LiveVersion,
		&st.NeedsUpdate,
	)
	if err != nil {
		return nil, err
	}
	st.Service = model.ServiceKind(service)
	if len(specs) > 0 {
		st.DeployedSpecs = json.RawMessage(specs)
	}
	return &st, nil
}

// nullTimePtr converts a *time.Time to a sql.NullTime.
func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}

// specsBytes marshals a specification list for a JSONB column. An empty list
// is stored as an empty JSON array rather than NULL so scans round-trip.
func specsBytes(specs []model.Specification) ([]byte, error) {
	if specs == nil {
		specs = []model.Specification{}
	}
	b, err := json.Marshal(specs)
	if err != nil {
		return nil, fmt.Errorf("encode specifications: %w", err)
	}
	return b, nil
}
