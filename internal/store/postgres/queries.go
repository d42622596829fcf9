package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/store"
)

// formatColumns is the column list used for SELECT statements on the formats table.
const formatColumns = `id, owner_id, name, service, include_when_renaming,
	specifications, version, created_at, updated_at, deleted_at`

// instanceColumns is the column list used for SELECT statements on the instances table.
const instanceColumns = `id, owner_id, label, url, api_key, service, created_at, updated_at`

// deploymentColumns is the column list used for SELECT statements on the deployments table.
const deploymentColumns = `id, owner_id, format_id, instance_id, remote_id,
	deployed_version, deployed_specs, deployed_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapConflict translates a unique-violation error into store.ErrConflict.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return store.ErrConflict
	}
	return err
}

func queryCreateFormat(ctx context.Context, db executor, f *model.Format) error {
	specs, err := specsBytes(f.Specifications)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO formats (
			id, owner_id, name, service, include_when_renaming,
			specifications, version, created_at, updated_at, deleted_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10
		)`,
		f.ID,
		f.OwnerID,
		f.Name,
		string(f.Service),
		f.IncludeWhenRenaming,
		specs,
		f.Version,
		f.CreatedAt,
		f.UpdatedAt,
		nullTimePtr(f.DeletedAt),
	)
	return mapConflict(err)
}

func queryGetFormat(ctx context.Context, db executor, id, ownerID string) (*model.Format, error) {
	return getFormat(ctx, db, id, ownerID, false)
}

// queryGetFormatForUpdate locks the row until the enclosing transaction ends,
// so concurrent read-modify-write sequences on one format serialize.
func queryGetFormatForUpdate(ctx context.Context, db executor, id, ownerID string) (*model.Format, error) {
	return getFormat(ctx, db, id, ownerID, true)
}

func getFormat(ctx context.Context, db executor, id, ownerID string, forUpdate bool) (*model.Format, error) {
	query := `
		SELECT ` + formatColumns + `
		FROM formats
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`
	if forUpdate {
		query += `
		FOR UPDATE`
	}
	row := db.QueryRowContext(ctx, query, id, ownerID)
	return scanFormat(row)
}

func queryListFormats(ctx context.Context, db executor, filter model.FormatFilter) ([]*model.Format, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	whereClauses = append(whereClauses, "owner_id = "+nextArg())
	args = append(args, filter.OwnerID)

	if !filter.IncludeDeleted {
		whereClauses = append(whereClauses, "deleted_at IS NULL")
	}

	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			placeholders[i] = nextArg()
			args = append(args, id)
		}
		whereClauses = append(whereClauses, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	if filter.Service != "" {
		whereClauses = append(whereClauses, "service = "+nextArg())
		args = append(args, string(filter.Service))
	}

	if filter.Search != "" {
		p := nextArg()
		whereClauses = append(whereClauses, fmt.Sprintf("name ILIKE '%%' || %s || '%%'", p))
		args = append(args, filter.Search)
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + formatColumns +
		" FROM formats WHERE " + strings.Join(whereClauses, " AND ") +
		" ORDER BY name ASC"

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list formats: %w", err)
	}
	defer rows.Close()

	var formats []*model.Format
	var total int
	for rows.Next() {
		f, t, err := scanFormatWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan formats: %w", err)
		}
		total = t
		formats = append(formats, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan formats: %w", err)
	}

	return formats, total, nil
}

func queryUpdateFormat(ctx context.Context, db executor, f *model.Format) error {
	specs, err := specsBytes(f.Specifications)
	if err != nil {
		return err
	}
	err = db.QueryRowContext(ctx, `
		UPDATE formats SET
			name = $3,
			include_when_renaming = $4,
			specifications = $5,
			version = $6,
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
		RETURNING updated_at`,
		f.ID,
		f.OwnerID,
		f.Name,
		f.IncludeWhenRenaming,
		specs,
		f.Version,
	).Scan(&f.UpdatedAt)
	return mapConflict(err)
}

func querySoftDeleteFormat(ctx context.Context, db executor, id, ownerID string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE formats
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryCreateInstance(ctx context.Context, db executor, inst *model.Instance) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO instances (
			id, owner_id, label, url, api_key, service, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)`,
		inst.ID,
		inst.OwnerID,
		inst.Label,
		inst.URL,
		inst.APIKey,
		string(inst.Service),
		inst.CreatedAt,
		inst.UpdatedAt,
	)
	return mapConflict(err)
}

func queryGetInstance(ctx context.Context, db executor, id, ownerID string) (*model.Instance, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	return scanInstance(row)
}

func queryListInstances(ctx context.Context, db executor, ownerID string) ([]*model.Instance, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+instanceColumns+`
		FROM instances
		WHERE owner_id = $1
		ORDER BY label ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInstances(rows)
}

func queryDeleteInstance(ctx context.Context, db executor, id, ownerID string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM instances
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryUpsertDeployment(ctx context.Context, db executor, d *model.Deployment) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO deployments (
			id, owner_id, format_id, instance_id, remote_id,
			deployed_version, deployed_specs, deployed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, NOW()
		)
		ON CONFLICT (instance_id, format_id) DO UPDATE SET
			remote_id = EXCLUDED.remote_id,
			deployed_version = EXCLUDED.deployed_version,
			deployed_specs = EXCLUDED.deployed_specs,
			deployed_at = NOW()
		RETURNING id, deployed_at`,
		d.ID,
		d.OwnerID,
		d.FormatID,
		d.InstanceID,
		d.RemoteID,
		d.DeployedVersion,
		jsonbBytes(d.DeployedSpecs),
	).Scan(&d.ID, &d.DeployedAt)
}

func queryGetDeployment(ctx context.Context, db executor, id, ownerID string) (*model.Deployment, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+deploymentColumns+`
		FROM deployments
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	return scanDeployment(row)
}

func queryListDeployments(ctx context.Context, db executor, filter model.DeploymentFilter) ([]*model.DeploymentStatus, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	whereClauses = append(whereClauses, "d.owner_id = "+nextArg())
	args = append(args, filter.OwnerID)

	if filter.InstanceID != "" {
		whereClauses = append(whereClauses, "d.instance_id = "+nextArg())
		args = append(args, filter.InstanceID)
	}

	if filter.Service != "" {
		whereClauses = append(whereClauses, "f.service = "+nextArg())
		args = append(args, string(filter.Service))
	}

	// Drift is derived at read time: a format tombstone disables the flag
	// regardless of version skew.
	needsUpdateExpr := "(f.deleted_at IS NULL AND f.version > d.deployed_version)"
	if filter.OnlyNeedsUpdate {
		whereClauses = append(whereClauses, needsUpdateExpr)
	}

	query := `
		SELECT ` + prefixedDeploymentColumns + `,
			f.name, f.service, f.version,
			` + needsUpdateExpr + ` AS needs_update
		FROM deployments d
		JOIN formats f ON f.id = d.format_id
		WHERE ` + strings.Join(whereClauses, " AND ") + `
		ORDER BY d.deployed_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var statuses []*model.DeploymentStatus
	for rows.Next() {
		st, err := scanDeploymentStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployments: %w", err)
		}
		statuses = append(statuses, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan deployments: %w", err)
	}

	return statuses, nil
}

const prefixedDeploymentColumns = `d.id, d.owner_id, d.format_id, d.instance_id, d.remote_id,
			d.deployed_version, d.deployed_specs, d.deployed_at`

func queryDeleteDeployment(ctx context.Context, db executor, id, ownerID string) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM deployments
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func queryExportFormats(ctx context.Context, db executor) ([]*model.Format, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+formatColumns+`
		FROM formats
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var formats []*model.Format
	for rows.Next() {
		f, err := scanFormat(rows)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, rows.Err()
}

func queryExportDeployments(ctx context.Context, db executor) ([]*model.Deployment, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+deploymentColumns+`
		FROM deployments
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deployments []*model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}
