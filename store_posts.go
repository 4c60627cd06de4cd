package corpsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/eringen/corpsite/i18n"
)

// PostFilter narrows ListPosts. Zero values mean "no filter".
type PostFilter struct {
	PublishedOnly bool
	DraftsOnly    bool
	CategoryID    int64
	CategorySlug  string
	Tag           string
	Query         string // matched against titles and excerpts in both languages
	Limit         int
	Offset        int
}

const postColumns = `p.id, p.slug, p.title_en, p.title_ar, p.excerpt_en, p.excerpt_ar,
	p.content_en, p.content_ar, p.cover_image, p.category_id, p.author, p.tags, p.published,
	p.published_at, p.meta_title_en, p.meta_title_ar, p.meta_description_en, p.meta_description_ar,
	p.keywords, p.created_at, p.updated_at, c.slug, c.name_en, c.name_ar`

const postFrom = `FROM posts p LEFT JOIN categories c ON c.id = p.category_id`

// ListPosts returns posts matching f, newest first, and the total number of
// matches ignoring Limit and Offset.
func (s *Store) ListPosts(ctx context.Context, f PostFilter) ([]BlogPost, int, error) {
	var where []string
	var args []any
	if f.PublishedOnly {
		where = append(where, "p.published = 1")
	}
	if f.DraftsOnly {
		where = append(where, "p.published = 0")
	}
	if f.CategoryID != 0 {
		where = append(where, "p.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.CategorySlug != "" {
		where = append(where, "c.slug = ?")
		args = append(args, f.CategorySlug)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		where = append(where, "instr(p.tags, ',' || ? || ',') > 0")
		args = append(args, tag)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		where = append(where, `(lower(p.title_en) LIKE ? ESCAPE '\' OR p.title_ar LIKE ? ESCAPE '\'
			OR lower(p.excerpt_en) LIKE ? ESCAPE '\' OR p.excerpt_ar LIKE ? ESCAPE '\' OR p.slug LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like, like, like)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+postFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	query := `SELECT ` + postColumns + ` ` + postFrom + cond +
		` ORDER BY COALESCE(p.published_at, p.created_at) DESC, p.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []BlogPost{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

// GetPost returns a post by id regardless of published status (for admin).
func (s *Store) GetPost(ctx context.Context, id int64) (BlogPost, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` `+postFrom+` WHERE p.id = ?`, id)
	return scanPost(row)
}

// GetPostBySlug returns a post by slug. Drafts are only returned when
// publishedOnly is false.
func (s *Store) GetPostBySlug(ctx context.Context, slug string, publishedOnly bool) (BlogPost, error) {
	query := `SELECT ` + postColumns + ` ` + postFrom + ` WHERE p.slug = ?`
	if publishedOnly {
		query += ` AND p.published = 1`
	}
	return scanPost(s.db.QueryRowContext(ctx, query, slug))
}

// CreatePost inserts p and fills in its id and timestamps. A taken slug
// yields ErrConflict.
func (s *Store) CreatePost(ctx context.Context, p *BlogPost) error {
	t := now()
	p.CreatedAt, p.UpdatedAt = t, t
	if p.Published && p.PublishedAt == nil {
		p.PublishedAt = &t
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO posts (slug, title_en, title_ar, excerpt_en, excerpt_ar,
		content_en, content_ar, cover_image, category_id, author, tags, published, published_at,
		meta_title_en, meta_title_ar, meta_description_en, meta_description_ar, keywords, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title.EN, p.Title.AR, p.Excerpt.EN, p.Excerpt.AR, p.Content.EN, p.Content.AR,
		p.CoverImage, nullID(p.CategoryID), p.Author, joinTags(p.Tags), boolInt(p.Published), nullTime(p.PublishedAt),
		p.MetaTitle.EN, p.MetaTitle.AR, p.MetaDescription.EN, p.MetaDescription.AR, p.Keywords,
		formatTime(t), formatTime(t))
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q already exists: %w", p.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// UpdatePost overwrites the post with p.ID. The first publish stamps
// PublishedAt; later edits keep it.
func (s *Store) UpdatePost(ctx context.Context, p *BlogPost) error {
	existing, err := s.GetPost(ctx, p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = now()
	if p.PublishedAt == nil {
		p.PublishedAt = existing.PublishedAt
	}
	if p.Published && p.PublishedAt == nil {
		t := p.UpdatedAt
		p.PublishedAt = &t
	}
	_, err = s.db.ExecContext(ctx, `UPDATE posts SET slug = ?, title_en = ?, title_ar = ?,
		excerpt_en = ?, excerpt_ar = ?, content_en = ?, content_ar = ?, cover_image = ?, category_id = ?,
		author = ?, tags = ?, published = ?, published_at = ?, meta_title_en = ?, meta_title_ar = ?,
		meta_description_en = ?, meta_description_ar = ?, keywords = ?, updated_at = ?
		WHERE id = ?`,
		p.Slug, p.Title.EN, p.Title.AR, p.Excerpt.EN, p.Excerpt.AR, p.Content.EN, p.Content.AR,
		p.CoverImage, nullID(p.CategoryID), p.Author, joinTags(p.Tags), boolInt(p.Published), nullTime(p.PublishedAt),
		p.MetaTitle.EN, p.MetaTitle.AR, p.MetaDescription.EN, p.MetaDescription.AR, p.Keywords,
		formatTime(p.UpdatedAt), p.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("slug %q already exists: %w", p.Slug, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeletePost removes a post by id.
func (s *Store) DeletePost(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SlugExists reports whether another post than exceptID uses slug.
func (s *Store) SlugExists(ctx context.Context, slug string, exceptID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE slug = ? AND id != ?`, slug, exceptID).Scan(&n)
	return n > 0, err
}

func scanPost(sc scanner) (BlogPost, error) {
	var p BlogPost
	var categoryID sql.NullInt64
	var tags, created, updated string
	var published int
	var publishedAt, catSlug, catNameEN, catNameAR sql.NullString
	err := sc.Scan(&p.ID, &p.Slug, &p.Title.EN, &p.Title.AR, &p.Excerpt.EN, &p.Excerpt.AR,
		&p.Content.EN, &p.Content.AR, &p.CoverImage, &categoryID, &p.Author, &tags, &published,
		&publishedAt, &p.MetaTitle.EN, &p.MetaTitle.AR, &p.MetaDescription.EN, &p.MetaDescription.AR,
		&p.Keywords, &created, &updated, &catSlug, &catNameEN, &catNameAR)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BlogPost{}, ErrNotFound
		}
		return BlogPost{}, err
	}
	p.Tags = ParseTags(tags)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Published = published == 1
	p.PublishedAt = parseNullTime(publishedAt)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	if categoryID.Valid {
		p.CategoryID = categoryID.Int64
		if catSlug.Valid {
			p.Category = &Category{
				ID:   categoryID.Int64,
				Slug: catSlug.String,
				Name: i18n.Text{EN: catNameEN.String, AR: catNameAR.String},
			}
		}
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
