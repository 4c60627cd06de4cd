package corpsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const slideColumns = `id, title_en, title_ar, subtitle_en, subtitle_ar, description_en, description_ar,
	button_text_en, button_text_ar, button_link, image_url, image_public_id, sort_order, active,
	created_at, updated_at`

// ListSlides returns slides by sort order. activeOnly hides inactive ones.
func (s *Store) ListSlides(ctx context.Context, activeOnly bool) ([]HeroSlide, error) {
	query := `SELECT ` + slideColumns + ` FROM hero_slides`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY sort_order, id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list slides: %w", err)
	}
	defer rows.Close()

	slides := []HeroSlide{}
	for rows.Next() {
		sl, err := scanSlide(rows)
		if err != nil {
			return nil, err
		}
		slides = append(slides, sl)
	}
	return slides, rows.Err()
}

// GetSlide returns a slide by id.
func (s *Store) GetSlide(ctx context.Context, id int64) (HeroSlide, error) {
	return scanSlide(s.db.QueryRowContext(ctx, `SELECT `+slideColumns+` FROM hero_slides WHERE id = ?`, id))
}

// CreateSlide appends sl after the last slide.
func (s *Store) CreateSlide(ctx context.Context, sl *HeroSlide) error {
	t := now()
	sl.CreatedAt, sl.UpdatedAt = t, t
	res, err := s.db.ExecContext(ctx, `INSERT INTO hero_slides (title_en, title_ar, subtitle_en, subtitle_ar,
		description_en, description_ar, button_text_en, button_text_ar, button_link, image_url,
		image_public_id, sort_order, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), -1) + 1 FROM hero_slides), ?, ?, ?)`,
		sl.Title.EN, sl.Title.AR, sl.Subtitle.EN, sl.Subtitle.AR, sl.Description.EN, sl.Description.AR,
		sl.ButtonText.EN, sl.ButtonText.AR, sl.ButtonLink, sl.ImageURL, sl.ImagePublicID,
		boolInt(sl.Active), formatTime(t), formatTime(t))
	if err != nil {
		return fmt.Errorf("insert slide: %w", err)
	}
	if sl.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	return s.db.QueryRowContext(ctx, `SELECT sort_order FROM hero_slides WHERE id = ?`, sl.ID).Scan(&sl.SortOrder)
}

// UpdateSlide overwrites the slide with sl.ID. The sort order is left alone;
// use ReorderSlides for that.
func (s *Store) UpdateSlide(ctx context.Context, sl *HeroSlide) error {
	existing, err := s.GetSlide(ctx, sl.ID)
	if err != nil {
		return err
	}
	sl.CreatedAt = existing.CreatedAt
	sl.SortOrder = existing.SortOrder
	sl.UpdatedAt = now()
	_, err = s.db.ExecContext(ctx, `UPDATE hero_slides SET title_en = ?, title_ar = ?, subtitle_en = ?,
		subtitle_ar = ?, description_en = ?, description_ar = ?, button_text_en = ?, button_text_ar = ?,
		button_link = ?, image_url = ?, image_public_id = ?, active = ?, updated_at = ? WHERE id = ?`,
		sl.Title.EN, sl.Title.AR, sl.Subtitle.EN, sl.Subtitle.AR, sl.Description.EN, sl.Description.AR,
		sl.ButtonText.EN, sl.ButtonText.AR, sl.ButtonLink, sl.ImageURL, sl.ImagePublicID,
		boolInt(sl.Active), formatTime(sl.UpdatedAt), sl.ID)
	if err != nil {
		return fmt.Errorf("update slide: %w", err)
	}
	return nil
}

// DeleteSlide removes a slide by id.
func (s *Store) DeleteSlide(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM hero_slides WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReorderSlides sets each listed slide's sort order to its index in ids.
// Slides not listed keep their relative order after the listed ones. Unknown
// or repeated ids fail the whole call with a *ValidationError.
func (s *Store) ReorderSlides(ctx context.Context, ids []int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM hero_slides ORDER BY sort_order, id`)
	if err != nil {
		return err
	}
	var current []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		current = append(current, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	known := make(map[int64]bool, len(current))
	for _, id := range current {
		known[id] = true
	}
	listed := make(map[int64]bool, len(ids))
	verr := &ValidationError{}
	for _, id := range ids {
		switch {
		case !known[id]:
			verr.Add("ids", fmt.Sprintf("unknown slide id %d", id))
		case listed[id]:
			verr.Add("ids", fmt.Sprintf("slide id %d listed twice", id))
		}
		listed[id] = true
	}
	if err := verr.Err(); err != nil {
		return err
	}

	order := append([]int64{}, ids...)
	for _, id := range current {
		if !listed[id] {
			order = append(order, id)
		}
	}
	stmt, err := tx.PrepareContext(ctx, `UPDATE hero_slides SET sort_order = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	ts := formatTime(now())
	for i, id := range order {
		if _, err := stmt.ExecContext(ctx, i, ts, id); err != nil {
			return fmt.Errorf("reorder slide %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanSlide(sc scanner) (HeroSlide, error) {
	var sl HeroSlide
	var active int
	var created, updated string
	err := sc.Scan(&sl.ID, &sl.Title.EN, &sl.Title.AR, &sl.Subtitle.EN, &sl.Subtitle.AR,
		&sl.Description.EN, &sl.Description.AR, &sl.ButtonText.EN, &sl.ButtonText.AR, &sl.ButtonLink,
		&sl.ImageURL, &sl.ImagePublicID, &sl.SortOrder, &active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return HeroSlide{}, ErrNotFound
	}
	if err != nil {
		return HeroSlide{}, err
	}
	sl.Active = active == 1
	sl.CreatedAt = parseTime(created)
	sl.UpdatedAt = parseTime(updated)
	return sl, nil
}
