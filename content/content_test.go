package content

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/eringen/corpsite/i18n"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "content.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := NewStore(openDB(t), opts...)
	require.NoError(t, err)
	return s
}

var defaults = fstest.MapFS{
	"home.en.json":     {Data: []byte(`{"title": "Welcome"}`)},
	"home.ar.json":     {Data: []byte(`{"title": "مرحباً"}`)},
	"services.en.json": {Data: []byte(`{"title": "Services"}`)},
}

func TestGetFallbackChain(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, WithDir(dir), WithDefaults(defaults))
	ctx := context.Background()

	rec, err := s.Get(ctx, "home", i18n.EN)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, rec.Source)
	assert.JSONEq(t, `{"title":"Welcome"}`, string(rec.Data))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.en.json"), []byte(`{"title":"From file"}`), 0o644))
	rec, err = s.Get(ctx, "home", i18n.EN)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, rec.Source)
	assert.JSONEq(t, `{"title":"From file"}`, string(rec.Data))

	_, err = s.Save(ctx, "home", i18n.EN, []byte(`{"title": "From DB"}`))
	require.NoError(t, err)
	rec, err = s.Get(ctx, "home", i18n.EN)
	require.NoError(t, err)
	assert.Equal(t, SourceDB, rec.Source)
	assert.NotNil(t, rec.UpdatedAt)
	assert.JSONEq(t, `{"title":"From DB"}`, string(rec.Data))
}

func TestGetFallsBackToEnglish(t *testing.T) {
	s := newTestStore(t, WithDefaults(defaults))
	rec, err := s.Get(context.Background(), "services", i18n.AR)
	require.NoError(t, err)
	assert.Equal(t, i18n.EN, rec.Lang)

	_, err = s.Get(context.Background(), "about", i18n.AR)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMalformedFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.en.json"), []byte(`{broken`), 0o644))
	s := newTestStore(t, WithDir(dir), WithDefaults(defaults))

	rec, err := s.Get(context.Background(), "home", i18n.EN)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, rec.Source)
}

func TestSaveValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		page string
		lang i18n.Lang
		doc  string
	}{
		{"unknown page", "pricing", i18n.EN, `{}`},
		{"unknown lang", "home", "fr", `{}`},
		{"array", "home", i18n.EN, `[1,2]`},
		{"null", "home", i18n.EN, `null`},
		{"broken", "home", i18n.EN, `{"a":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(ctx, tt.page, tt.lang, []byte(tt.doc))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDeleteRevertsToFallback(t *testing.T) {
	s := newTestStore(t, WithDefaults(defaults))
	ctx := context.Background()

	_, err := s.Save(ctx, "home", i18n.AR, []byte(`{"title":"محدث"}`))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "home", i18n.AR))

	rec, err := s.Get(ctx, "home", i18n.AR)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, rec.Source)

	assert.ErrorIs(t, s.Delete(ctx, "home", i18n.AR), ErrNotFound)
}

func TestList(t *testing.T) {
	s := newTestStore(t, WithDefaults(defaults))
	ctx := context.Background()
	_, err := s.Save(ctx, "about", i18n.EN, []byte(`{"title":"About"}`))
	require.NoError(t, err)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, len(Pages)*2)

	sources := map[string]Source{}
	for _, e := range entries {
		sources[e.Page+"."+string(e.Lang)] = e.Source
	}
	assert.Equal(t, SourceDB, sources["about.en"])
	assert.Equal(t, SourceDefault, sources["home.ar"])
	assert.Equal(t, Source(""), sources["services.ar"])
}

func TestExportAndLoadDefaults(t *testing.T) {
	s := newTestStore(t, WithDefaults(defaults))
	ctx := context.Background()

	n, err := s.LoadDefaults(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = s.Save(ctx, "home", i18n.EN, []byte(`{"title":"Edited"}`))
	require.NoError(t, err)

	n, err = s.LoadDefaults(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	rec, err := s.Get(ctx, "home", i18n.EN)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Edited"}`, string(rec.Data))

	n, err = s.LoadDefaults(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out := t.TempDir()
	n, err = s.Export(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	b, err := os.ReadFile(filepath.Join(out, "home.ar.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "\n  \"title\": \"مرحباً\"")
}

func TestParseFileName(t *testing.T) {
	page, lang, ok := ParseFileName("industries.ar.json")
	assert.True(t, ok)
	assert.Equal(t, "industries", page)
	assert.Equal(t, i18n.AR, lang)

	for _, name := range []string{"home.fr.json", "pricing.en.json", "home.en.json.swp", "home.json"} {
		_, _, ok := ParseFileName(name)
		assert.False(t, ok, name)
	}
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, WithDir(dir))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 4)
	require.NoError(t, s.Watch(ctx, func(page string, lang i18n.Lang) {
		changed <- FileName(page, lang)
	}))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.ar.json"), []byte(`{}`), 0o644))

	select {
	case name := <-changed:
		assert.Equal(t, "about.ar.json", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}
