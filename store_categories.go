package corpsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const categoryColumns = `c.id, c.slug, c.name_en, c.name_ar, c.description_en, c.description_ar, c.created_at, c.updated_at`

// ListCategories returns all categories ordered by English name, each with
// its post count. When publishedOnly is set only published posts count.
func (s *Store) ListCategories(ctx context.Context, publishedOnly bool) ([]Category, error) {
	join := `LEFT JOIN posts p ON p.category_id = c.id`
	if publishedOnly {
		join += ` AND p.published = 1`
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+`, COUNT(p.id)
		FROM categories c `+join+`
		GROUP BY c.id ORDER BY c.name_en COLLATE NOCASE, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		var created, updated string
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name.EN, &c.Name.AR, &c.Description.EN, &c.Description.AR,
			&created, &updated, &c.PostCount); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(created)
		c.UpdatedAt = parseTime(updated)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.id = ?`, id))
}

// GetCategoryBySlug returns a category by slug.
func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	return scanCategory(s.db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories c WHERE c.slug = ?`, slug))
}

// CreateCategory inserts c. A taken slug yields ErrConflict.
func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	t := now()
	c.CreatedAt, c.UpdatedAt = t, t
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories
		(slug, name_en, name_ar, description_en, description_ar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Slug, c.Name.EN, c.Name.AR, c.Description.EN, c.Description.AR, formatTime(t), formatTime(t))
	if isUniqueViolation(err) {
		return fmt.Errorf("category slug %q already exists: %w", c.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCategory overwrites the category with c.ID.
func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = now()
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET slug = ?, name_en = ?, name_ar = ?,
		description_en = ?, description_ar = ?, updated_at = ? WHERE id = ?`,
		c.Slug, c.Name.EN, c.Name.AR, c.Description.EN, c.Description.AR, formatTime(c.UpdatedAt), c.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("category slug %q already exists: %w", c.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	existing, err := s.GetCategory(ctx, c.ID)
	if err != nil {
		return err
	}
	c.CreatedAt = existing.CreatedAt
	return nil
}

// DeleteCategory removes a category. It refuses with ErrConflict while any
// post still references it.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE category_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("category has %d posts: %w", n, ErrConflict)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func scanCategory(sc scanner) (Category, error) {
	var c Category
	var created, updated string
	err := sc.Scan(&c.ID, &c.Slug, &c.Name.EN, &c.Name.AR, &c.Description.EN, &c.Description.AR, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Category{}, ErrNotFound
	}
	if err != nil {
		return Category{}, err
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}
