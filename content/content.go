// Package content stores the JSON documents that drive the public pages,
// one per page and language.
//
// A document is looked up in the database first, then in the fallback
// directory as <page>.<lang>.json, then in the embedded defaults. When the
// requested language has no document anywhere the English one is served.
package content

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/eringen/corpsite/i18n"
)

// Pages lists the known page identifiers.
var Pages = []string{"home", "services", "industries", "about", "blog", "contact", "global"}

var (
	// ErrNotFound is returned when no document exists for a page.
	ErrNotFound = errors.New("content: not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("content: invalid")
)

// Source tells where a document was found.
type Source string

const (
	SourceDB      Source = "db"
	SourceFile    Source = "file"
	SourceDefault Source = "default"
)

// Record is one page document.
type Record struct {
	Page      string          `json:"page"`
	Lang      i18n.Lang       `json:"lang"`
	Data      json.RawMessage `json:"data"`
	Source    Source          `json:"source"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Entry is a row of the admin content index.
type Entry struct {
	Page      string     `json:"page"`
	Lang      i18n.Lang  `json:"lang"`
	Source    Source     `json:"source,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Store reads and writes page documents.
type Store struct {
	db       *sql.DB
	dir      string
	defaults fs.FS
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDir sets the fallback directory holding <page>.<lang>.json files.
func WithDir(dir string) Option {
	return func(s *Store) { s.dir = dir }
}

// WithDefaults sets the filesystem of built-in documents, laid out like the
// fallback directory.
func WithDefaults(fsys fs.FS) Option {
	return func(s *Store) { s.defaults = fsys }
}

// WithLogger sets the logger used for fallback and watcher diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates the page_contents table on db if needed.
func NewStore(db *sql.DB, opts ...Option) (*Store, error) {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS page_contents (
			page TEXT NOT NULL,
			lang TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (page, lang)
		);
	`); err != nil {
		return nil, fmt.Errorf("create page_contents: %w", err)
	}
	return s, nil
}

// Dir returns the fallback directory, empty when unset.
func (s *Store) Dir() string { return s.dir }

// ValidPage reports whether page is a known page identifier.
func ValidPage(page string) bool {
	for _, p := range Pages {
		if p == page {
			return true
		}
	}
	return false
}

func validate(page string, lang i18n.Lang) error {
	if !ValidPage(page) {
		return fmt.Errorf("%w: unknown page %q", ErrInvalid, page)
	}
	if !lang.Valid() {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalid, lang)
	}
	return nil
}

// Get returns the document for page in lang, falling back to English.
func (s *Store) Get(ctx context.Context, page string, lang i18n.Lang) (Record, error) {
	if err := validate(page, lang); err != nil {
		return Record{}, err
	}
	langs := []i18n.Lang{lang}
	if lang != i18n.EN {
		langs = append(langs, i18n.EN)
	}
	for _, l := range langs {
		rec, err := s.lookup(ctx, page, l)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Record{}, err
		}
	}
	return Record{}, ErrNotFound
}

func (s *Store) lookup(ctx context.Context, page string, lang i18n.Lang) (Record, error) {
	rec, err := s.getRow(ctx, page, lang)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Record{}, err
	}

	name := FileName(page, lang)
	if s.dir != "" {
		b, err := os.ReadFile(filepath.Join(s.dir, name))
		switch {
		case err == nil:
			if data, err := normalize(b); err == nil {
				return Record{Page: page, Lang: lang, Data: data, Source: SourceFile}, nil
			}
			s.logger.Warn("content: ignoring malformed fallback file", "file", name)
		case !errors.Is(err, fs.ErrNotExist):
			return Record{}, fmt.Errorf("read %s: %w", name, err)
		}
	}

	if s.defaults != nil {
		if b, err := fs.ReadFile(s.defaults, name); err == nil {
			if data, err := normalize(b); err == nil {
				return Record{Page: page, Lang: lang, Data: data, Source: SourceDefault}, nil
			}
		}
	}
	return Record{}, ErrNotFound
}

func (s *Store) getRow(ctx context.Context, page string, lang i18n.Lang) (Record, error) {
	var data, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT data, updated_at FROM page_contents WHERE page = ? AND lang = ?`,
		page, string(lang)).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("query page content: %w", err)
	}
	return Record{
		Page:      page,
		Lang:      lang,
		Data:      json.RawMessage(data),
		Source:    SourceDB,
		UpdatedAt: parseTime(updated),
	}, nil
}

// Save validates doc and stores it for page in lang.
func (s *Store) Save(ctx context.Context, page string, lang i18n.Lang, doc []byte) (Record, error) {
	if err := validate(page, lang); err != nil {
		return Record{}, err
	}
	data, err := normalize(doc)
	if err != nil {
		return Record{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO page_contents (page, lang, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(page, lang) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		page, string(lang), string(data), now.Format(time.RFC3339))
	if err != nil {
		return Record{}, fmt.Errorf("save page content: %w", err)
	}
	return Record{Page: page, Lang: lang, Data: data, Source: SourceDB, UpdatedAt: &now}, nil
}

// Delete removes the stored document so the page reverts to its fallback.
func (s *Store) Delete(ctx context.Context, page string, lang i18n.Lang) error {
	if err := validate(page, lang); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_contents WHERE page = ? AND lang = ?`, page, string(lang))
	if err != nil {
		return fmt.Errorf("delete page content: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one entry per page and language, with the source that would
// serve it. Source is empty when nothing exists for that language.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	entries := make([]Entry, 0, len(Pages)*len(i18n.Supported))
	for _, page := range Pages {
		for _, l := range i18n.Supported {
			e := Entry{Page: page, Lang: l}
			rec, err := s.lookup(ctx, page, l)
			switch {
			case err == nil:
				e.Source = rec.Source
				e.UpdatedAt = rec.UpdatedAt
			case !errors.Is(err, ErrNotFound):
				return nil, err
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Export writes every stored document to dir as indented JSON and returns
// the number of files written.
func (s *Store) Export(ctx context.Context, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export dir: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT page, lang, data FROM page_contents ORDER BY page, lang`)
	if err != nil {
		return 0, fmt.Errorf("query page contents: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var page, lang, data string
		if err := rows.Scan(&page, &lang, &data); err != nil {
			return n, err
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(data), "", "  "); err != nil {
			return n, fmt.Errorf("indent %s/%s: %w", page, lang, err)
		}
		buf.WriteByte('\n')
		if err := os.WriteFile(filepath.Join(dir, FileName(page, i18n.Lang(lang))), buf.Bytes(), 0o644); err != nil {
			return n, fmt.Errorf("write %s/%s: %w", page, lang, err)
		}
		n++
	}
	return n, rows.Err()
}

// LoadDefaults copies the embedded documents into the database. Existing
// rows are kept unless force is set. It returns the number of rows written.
func (s *Store) LoadDefaults(ctx context.Context, force bool) (int, error) {
	if s.defaults == nil {
		return 0, nil
	}
	n := 0
	for _, page := range Pages {
		for _, l := range i18n.Supported {
			b, err := fs.ReadFile(s.defaults, FileName(page, l))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return n, err
			}
			if !force {
				if _, err := s.getRow(ctx, page, l); err == nil {
					continue
				} else if !errors.Is(err, ErrNotFound) {
					return n, err
				}
			}
			if _, err := s.Save(ctx, page, l, b); err != nil {
				return n, fmt.Errorf("seed %s: %w", FileName(page, l), err)
			}
			n++
		}
	}
	return n, nil
}

// FileName is the fallback file name for page in lang.
func FileName(page string, lang i18n.Lang) string {
	return page + "." + string(lang) + ".json"
}

// ParseFileName is the inverse of FileName.
func ParseFileName(name string) (string, i18n.Lang, bool) {
	stem, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return "", "", false
	}
	page, lang, ok := strings.Cut(stem, ".")
	if !ok || !ValidPage(page) || !i18n.Lang(lang).Valid() {
		return "", "", false
	}
	return page, i18n.Lang(lang), true
}

// normalize checks that doc is a JSON object and compacts it.
func normalize(doc []byte) (json.RawMessage, error) {
	var obj map[string]any
	if err := json.Unmarshal(doc, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalid)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return buf.Bytes(), nil
}

func parseTime(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
