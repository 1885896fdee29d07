package repository

import (
	"context"
	"database/sql"

	"issue-service/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type AuthorityRepository struct {
	db *sql.DB
}

func NewAuthorityRepository(db *sql.DB) *AuthorityRepository {
	return &AuthorityRepository{db: db}
}

const authoritySelect = `
	SELECT a.id, a.level, a.description, a.notes, a.is_active, a.created_at, a.updated_at,
		COALESCE((SELECT array_agg(category_id) FROM authority_categories WHERE authority_id = a.id), '{}'),
		COALESCE((SELECT array_agg(subcategory_id) FROM authority_subcategories WHERE authority_id = a.id), '{}')
	FROM authorities a
`

// FindByLevel looks an authority up by its unique role name.
func (r *AuthorityRepository) FindByLevel(ctx context.Context, level string) (*model.Authority, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, authoritySelect+` WHERE a.level = $1`, level))
}

func (r *AuthorityRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Authority, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, authoritySelect+` WHERE a.id = $1`, id))
}

// List returns authorities, optionally only those linked to a subcategory.
func (r *AuthorityRepository) List(ctx context.Context, subcategoryID *uuid.UUID) ([]model.Authority, error) {
	query := authoritySelect + ` ORDER BY a.level`
	args := []interface{}{}
	if subcategoryID != nil {
		query = authoritySelect + `
			JOIN authority_subcategories s ON s.authority_id = a.id
			WHERE s.subcategory_id = $1
			ORDER BY a.level`
		args = append(args, *subcategoryID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	authorities := []model.Authority{}
	for rows.Next() {
		a, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		authorities = append(authorities, *a)
	}
	return authorities, rows.Err()
}

// Create inserts the authority and its links. A taken level yields ErrDuplicate.
func (r *AuthorityRepository) Create(ctx context.Context, a *model.Authority) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO authorities (id, level, description, notes, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.ID, a.Level, a.Description, a.Notes, a.IsActive, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		for _, id := range a.CategoryIDs {
			if err := linkCategory(ctx, tx, a.ID, id); err != nil {
				return err
			}
		}
		for _, id := range a.SubcategoryIDs {
			if err := linkSubcategory(ctx, tx, a.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update rewrites the authority and its category links. Subcategory links
// are replaced only when replaceSubcategories is set, so links added by
// routing survive edits that do not mention them.
func (r *AuthorityRepository) Update(ctx context.Context, a *model.Authority, replaceSubcategories bool) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE authorities
			SET level = $2, description = $3, notes = $4, is_active = $5, updated_at = $6
			WHERE id = $1
		`, a.ID, a.Level, a.Description, a.Notes, a.IsActive, a.UpdatedAt)
		if err := affected(res, err); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM authority_categories WHERE authority_id = $1`, a.ID); err != nil {
			return err
		}
		for _, id := range a.CategoryIDs {
			if err := linkCategory(ctx, tx, a.ID, id); err != nil {
				return err
			}
		}
		if !replaceSubcategories {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM authority_subcategories WHERE authority_id = $1`, a.ID); err != nil {
			return err
		}
		for _, id := range a.SubcategoryIDs {
			if err := linkSubcategory(ctx, tx, a.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AuthorityRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE authorities SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return affected(res, err)
}

// Link binds the authority to a category and subcategory; existing links are kept.
func (r *AuthorityRepository) Link(ctx context.Context, authorityID, categoryID, subcategoryID uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := linkCategory(ctx, tx, authorityID, categoryID); err != nil {
			return err
		}
		return linkSubcategory(ctx, tx, authorityID, subcategoryID)
	})
}

func linkCategory(ctx context.Context, tx *sql.Tx, authorityID, categoryID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO authority_categories (authority_id, category_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, authorityID, categoryID)
	return translate(err)
}

func linkSubcategory(ctx context.Context, tx *sql.Tx, authorityID, subcategoryID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO authority_subcategories (authority_id, subcategory_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, authorityID, subcategoryID)
	return translate(err)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *AuthorityRepository) scanOne(row rowScanner) (*model.Authority, error) {
	var a model.Authority
	var cats, subs []string
	err := row.Scan(&a.ID, &a.Level, &a.Description, &a.Notes, &a.IsActive, &a.CreatedAt, &a.UpdatedAt,
		pq.Array(&cats), pq.Array(&subs))
	if err != nil {
		return nil, translate(err)
	}
	a.CategoryIDs = parseUUIDs(cats)
	a.SubcategoryIDs = parseUUIDs(subs)
	return &a, nil
}

func parseUUIDs(in []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		if id, err := uuid.Parse(s); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func uuidStrings(in []uuid.UUID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = id.String()
	}
	return out
}
