package repository

import (
	"context"
	"database/sql"

	"issue-service/internal/model"

	"github.com/google/uuid"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListCategories returns categories with their subcategories attached,
// ordered by name.
func (r *CategoryRepository) ListCategories(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, icon, color, is_active, created_at, updated_at
		FROM categories
		WHERE ($1 = FALSE OR is_active)
		ORDER BY name
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Subcategories = []model.Subcategory{}
		index[c.ID] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	subs, err := r.querySubcategories(ctx, `WHERE ($1 = FALSE OR is_active)`, activeOnly)
	if err != nil {
		return nil, err
	}
	for _, s := range subs {
		if i, ok := index[s.CategoryID]; ok {
			categories[i].Subcategories = append(categories[i].Subcategories, s)
		}
	}
	return categories, nil
}

func (r *CategoryRepository) GetCategory(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, icon, color, is_active, created_at, updated_at
		FROM categories WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}

	c.Subcategories, err = r.querySubcategories(ctx, `WHERE category_id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CategoryRepository) CreateCategory(ctx context.Context, c *model.Category) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, description, icon, color, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.Name, c.Description, c.Icon, c.Color, c.IsActive, c.CreatedAt, c.UpdatedAt)
	return translate(err)
}

func (r *CategoryRepository) UpdateCategory(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories
		SET name = $2, description = $3, icon = $4, color = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`, c.ID, c.Name, c.Description, c.Icon, c.Color, c.IsActive, c.UpdatedAt)
	return affected(res, err)
}

// DeactivateCategory hides a category and its subcategories from new issues.
func (r *CategoryRepository) DeactivateCategory(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE categories SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
		if err := affected(res, err); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE subcategories SET is_active = FALSE, updated_at = NOW() WHERE category_id = $1`, id)
		return err
	})
}

func (r *CategoryRepository) GetSubcategory(ctx context.Context, id uuid.UUID) (*model.Subcategory, error) {
	subs, err := r.querySubcategories(ctx, `WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	return &subs[0], nil
}

func (r *CategoryRepository) CreateSubcategory(ctx context.Context, s *model.Subcategory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subcategories (id, category_id, name, description, authority_types, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.CategoryID, s.Name, s.Description, s.AuthorityTypes, s.IsActive, s.CreatedAt, s.UpdatedAt)
	return translate(err)
}

func (r *CategoryRepository) UpdateSubcategory(ctx context.Context, s *model.Subcategory) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subcategories
		SET name = $2, description = $3, authority_types = $4, is_active = $5, updated_at = $6
		WHERE id = $1
	`, s.ID, s.Name, s.Description, s.AuthorityTypes, s.IsActive, s.UpdatedAt)
	return affected(res, err)
}

func (r *CategoryRepository) DeactivateSubcategory(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `UPDATE subcategories SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return affected(res, err)
}

func (r *CategoryRepository) querySubcategories(ctx context.Context, where string, args ...interface{}) ([]model.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, name, description, authority_types, is_active, created_at, updated_at
		FROM subcategories `+where+`
		ORDER BY name
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []model.Subcategory{}
	for rows.Next() {
		var s model.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description, &s.AuthorityTypes, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func affected(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
