package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"issue-service/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OfficialRepository struct {
	db *sql.DB
}

func NewOfficialRepository(db *sql.DB) *OfficialRepository {
	return &OfficialRepository{db: db}
}

const officialColumns = `
	id, name, designation, department, email, phone, authority_id, jurisdiction,
	categories, is_active, response_time, resolution_rate, created_at, updated_at
`

// ListActiveByCategory returns active officials serving the category in
// creation order.
func (r *OfficialRepository) ListActiveByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+officialColumns+`
		FROM officials
		WHERE is_active AND $1 = ANY(categories)
		ORDER BY created_at, id
		LIMIT $2
	`, categoryID, limit)
	if err != nil {
		return nil, err
	}
	return scanOfficials(rows)
}

// Suggest ranks active officials for a category by response time, then
// resolution rate.
func (r *OfficialRepository) Suggest(ctx context.Context, categoryID uuid.UUID, limit int) ([]model.Official, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+officialColumns+`
		FROM officials
		WHERE is_active AND $1 = ANY(categories)
		ORDER BY response_time ASC, resolution_rate DESC, created_at
		LIMIT $2
	`, categoryID, limit)
	if err != nil {
		return nil, err
	}
	return scanOfficials(rows)
}

func (r *OfficialRepository) List(ctx context.Context, f model.OfficialFilter) ([]model.Official, int, error) {
	var conds []string
	var args []interface{}
	if f.ActiveOnly {
		conds = append(conds, "is_active")
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conds = append(conds, fmt.Sprintf("$%d = ANY(categories)", len(args)))
	}
	if f.Department != "" {
		args = append(args, f.Department)
		conds = append(conds, fmt.Sprintf("department = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM officials `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM officials %s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, officialColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	officials, err := scanOfficials(rows)
	return officials, total, err
}

func (r *OfficialRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Official, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+officialColumns+` FROM officials WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	officials, err := scanOfficials(rows)
	if err != nil {
		return nil, err
	}
	if len(officials) == 0 {
		return nil, ErrNotFound
	}
	return &officials[0], nil
}

func (r *OfficialRepository) Create(ctx context.Context, o *model.Official) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO officials (id, name, designation, department, email, phone, authority_id,
			jurisdiction, categories, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, o.ID, o.Name, o.Designation, o.Department, o.Email, o.Phone, o.AuthorityID,
		o.Jurisdiction, pq.Array(uuidStrings(o.Categories)), o.IsActive, o.CreatedAt, o.UpdatedAt)
	return translate(err)
}

func (r *OfficialRepository) Update(ctx context.Context, o *model.Official) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE officials
		SET name = $2, designation = $3, department = $4, email = $5, phone = $6,
			authority_id = $7, jurisdiction = $8, categories = $9, is_active = $10, updated_at = $11
		WHERE id = $1
	`, o.ID, o.Name, o.Designation, o.Department, o.Email, o.Phone, o.AuthorityID,
		o.Jurisdiction, pq.Array(uuidStrings(o.Categories)), o.IsActive, o.UpdatedAt)
	return affected(res, err)
}

func (r *OfficialRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE officials SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return affected(res, err)
}

// RefreshMetrics recomputes the rolling metrics of the given officials from
// the issues assigned to them: mean hours to resolution and the percentage
// of assigned issues that reached resolved or later.
func (r *OfficialRepository) RefreshMetrics(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE officials o
		SET response_time = COALESCE(m.avg_hours, 0),
			resolution_rate = COALESCE(m.rate, 0),
			updated_at = NOW()
		FROM (
			SELECT t.official_id,
				AVG(EXTRACT(EPOCH FROM (i.resolved_at - i.created_at)) / 3600)
					FILTER (WHERE i.resolved_at IS NOT NULL) AS avg_hours,
				100.0 * COUNT(*) FILTER (WHERE i.status IN ('resolved', 'verified', 'closed'))
					/ NULLIF(COUNT(*), 0) AS rate
			FROM unnest($1::uuid[]) AS t(official_id)
			LEFT JOIN issues i ON t.official_id = ANY(i.assigned_officials)
			GROUP BY t.official_id
		) m
		WHERE o.id = m.official_id
	`, pq.Array(uuidStrings(ids)))
	return err
}

func scanOfficials(rows *sql.Rows) ([]model.Official, error) {
	defer rows.Close()

	officials := []model.Official{}
	for rows.Next() {
		var o model.Official
		var authorityID uuid.NullUUID
		var categories []string
		err := rows.Scan(&o.ID, &o.Name, &o.Designation, &o.Department, &o.Email, &o.Phone,
			&authorityID, &o.Jurisdiction, pq.Array(&categories), &o.IsActive,
			&o.ResponseTime, &o.ResolutionRate, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if authorityID.Valid {
			id := authorityID.UUID
			o.AuthorityID = &id
		}
		o.Categories = parseUUIDs(categories)
		officials = append(officials, o)
	}
	return officials, rows.Err()
}
