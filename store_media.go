package corpsite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const mediaColumns = `id, public_id, url, format, width, height, bytes, original_name, alt, folder, created_at`

// SaveMedia records an uploaded asset.
func (s *Store) SaveMedia(ctx context.Context, m *MediaAsset) error {
	m.CreatedAt = now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO media
		(public_id, url, format, width, height, bytes, original_name, alt, folder, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.PublicID, m.URL, m.Format, m.Width, m.Height, m.Bytes, m.OriginalName, m.Alt, m.Folder,
		formatTime(m.CreatedAt))
	if isUniqueViolation(err) {
		return fmt.Errorf("media %q already recorded: %w", m.PublicID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// ListMedia returns assets newest first, optionally limited to one folder.
func (s *Store) ListMedia(ctx context.Context, folder string) ([]MediaAsset, error) {
	query := `SELECT ` + mediaColumns + ` FROM media`
	var args []any
	if folder != "" {
		query += ` WHERE folder = ?`
		args = append(args, folder)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	assets := []MediaAsset{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, m)
	}
	return assets, rows.Err()
}

// GetMedia returns an asset by id.
func (s *Store) GetMedia(ctx context.Context, id int64) (MediaAsset, error) {
	return scanMedia(s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id))
}

// UpdateMediaAlt changes an asset's alt text.
func (s *Store) UpdateMediaAlt(ctx context.Context, id int64, alt string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE media SET alt = ? WHERE id = ?`, alt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMedia removes the asset record by id.
func (s *Store) DeleteMedia(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanMedia(sc scanner) (MediaAsset, error) {
	var m MediaAsset
	var created string
	err := sc.Scan(&m.ID, &m.PublicID, &m.URL, &m.Format, &m.Width, &m.Height, &m.Bytes,
		&m.OriginalName, &m.Alt, &m.Folder, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return MediaAsset{}, ErrNotFound
	}
	if err != nil {
		return MediaAsset{}, err
	}
	m.CreatedAt = parseTime(created)
	return m, nil
}
