package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store provides database operations for contact submissions.
type Store struct {
	db *sql.DB
}

// NewStore creates the contact tables on db if needed.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, fmt.Errorf("ensure contact schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS contacts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			company TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			lang TEXT NOT NULL DEFAULT 'en',
			ip_hash TEXT NOT NULL DEFAULT '',
			read INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_contacts_created_at ON contacts(created_at);
		CREATE INDEX IF NOT EXISTS idx_contacts_read ON contacts(read);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// GetSetting retrieves a setting value by key. Returns empty string if not found.
func (s *Store) GetSetting(key string) (string, error) {
	var val string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting stores a setting value by key (upsert).
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// Create stores a new submission, assigning its id and timestamp.
func (s *Store) Create(ctx context.Context, sub *Submission) error {
	sub.ID = uuid.NewString()
	sub.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, name, email, phone, company, subject, message, lang, ip_hash, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		sub.ID, sub.Name, sub.Email, sub.Phone, sub.Company, sub.Subject, sub.Message,
		sub.Lang, sub.IPHash, sub.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

// ListFilter selects a page of the inbox.
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// ListResult is one page of the inbox plus counters.
type ListResult struct {
	Items  []Submission `json:"items"`
	Total  int          `json:"total"`
	Unread int          `json:"unread"`
}

const selectColumns = `id, name, email, phone, company, subject, message, lang, ip_hash, read, created_at`

// List returns submissions newest first.
func (s *Store) List(ctx context.Context, f ListFilter) (ListResult, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	where := ""
	if f.UnreadOnly {
		where = " WHERE read = 0"
	}

	res := ListResult{Items: []Submission{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`+where).Scan(&res.Total); err != nil {
		return res, fmt.Errorf("count contacts: %w", err)
	}
	unread, err := s.CountUnread(ctx)
	if err != nil {
		return res, err
	}
	res.Unread = unread

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM contacts`+where+` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		f.Limit, f.Offset)
	if err != nil {
		return res, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return res, err
		}
		res.Items = append(res.Items, sub)
	}
	return res, rows.Err()
}

// CountUnread returns the number of unread submissions.
func (s *Store) CountUnread(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE read = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// Get returns a submission by id.
func (s *Store) Get(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM contacts WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	return sub, err
}

// SetRead marks a submission read or unread.
func (s *Store) SetRead(ctx context.Context, id string, read bool) error {
	v := 0
	if read {
		v = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE contacts SET read = ? WHERE id = ?`, v, id)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a submission.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CleanupOlderThan removes submissions older than the retention period and
// returns how many were deleted.
func (s *Store) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE created_at < ?`, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("cleanup contacts: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs the retention cleanup every interval. A
// retention of zero or less disables it. Returns a stop function.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, logger *slog.Logger) func() {
	if retentionDays <= 0 {
		return func() {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := s.CleanupOlderThan(context.Background(), retentionDays)
				if err != nil {
					logger.Error("contact cleanup failed", "err", err)
					continue
				}
				if n > 0 {
					logger.Info("contact cleanup", "deleted", n, "retention_days", retentionDays)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(sc scanner) (Submission, error) {
	var sub Submission
	var read int
	var created string
	if err := sc.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Phone, &sub.Company, &sub.Subject,
		&sub.Message, &sub.Lang, &sub.IPHash, &read, &created); err != nil {
		return Submission{}, err
	}
	sub.Read = read != 0
	sub.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return sub, nil
}
