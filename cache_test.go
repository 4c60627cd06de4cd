package corpsite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eringen/corpsite/content"
	"github.com/eringen/corpsite/i18n"
)

func setupTestCache(t *testing.T) (*Store, *content.Store, *SiteCache) {
	t.Helper()
	s := setupTestStore(t)
	cs, err := content.NewStore(s.DB())
	if err != nil {
		t.Fatalf("content.NewStore failed: %v", err)
	}
	return s, cs, NewSiteCache(s, cs, time.Hour)
}

func TestSiteCacheListPosts(t *testing.T) {
	s, _, cache := setupTestCache(t)
	ctx := context.Background()

	cat := &Category{Slug: "esg", Name: i18n.Text{EN: "ESG"}}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	p := newPost("in-category", true)
	p.CategoryID = cat.ID
	for _, post := range []*BlogPost{p, newPost("uncategorized", true), newPost("draft", false)} {
		if err := s.CreatePost(ctx, post); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	all, err := cache.ListPosts(ctx, "")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d published posts, want 2", len(all))
	}

	filtered, err := cache.ListPosts(ctx, "esg")
	if err != nil {
		t.Fatalf("ListPosts(esg) failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Slug != "in-category" {
		t.Errorf("ListPosts(esg) = %+v, want only in-category", filtered)
	}

	if _, err := cache.GetPost(ctx, "draft"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPost(draft) error = %v, want ErrNotFound", err)
	}
}

func TestSiteCacheInvalidate(t *testing.T) {
	s, _, cache := setupTestCache(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, newPost("first", true)); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	posts, err := cache.ListPosts(ctx, "")
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}

	if err := s.CreatePost(ctx, newPost("second", true)); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	posts, _ = cache.ListPosts(ctx, "")
	if len(posts) != 1 {
		t.Errorf("cache should still hold 1 post before Invalidate, got %d", len(posts))
	}

	cache.Invalidate()
	posts, _ = cache.ListPosts(ctx, "")
	if len(posts) != 2 {
		t.Errorf("got %d posts after Invalidate, want 2", len(posts))
	}
}

func TestSiteCachePage(t *testing.T) {
	_, cs, cache := setupTestCache(t)
	ctx := context.Background()

	if _, err := cache.Page(ctx, "about", i18n.AR); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("Page before save error = %v, want content.ErrNotFound", err)
	}

	if _, err := cs.Save(ctx, "about", i18n.EN, []byte(`{"title":"About us"}`)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := cache.Page(ctx, "about", i18n.AR); !errors.Is(err, content.ErrNotFound) {
		t.Errorf("cached miss should be served until Invalidate, got %v", err)
	}

	cache.Invalidate()
	rec, err := cache.Page(ctx, "about", i18n.AR)
	if err != nil {
		t.Fatalf("Page after Invalidate failed: %v", err)
	}
	if rec.Lang != i18n.EN || rec.Source != content.SourceDB {
		t.Errorf("Page = %+v, want English fallback from the database", rec)
	}
}

func TestSiteCacheDropsPageReadBeforeInvalidate(t *testing.T) {
	_, _, cache := setupTestCache(t)
	key := pageKey{"about", i18n.EN}

	cache.mu.RLock()
	gen := cache.gen
	cache.mu.RUnlock()

	cache.Invalidate()
	cache.storePage(key, pageEntry{rec: content.Record{Page: "about"}, fetched: time.Now()}, gen)
	if _, ok := cache.pages[key]; ok {
		t.Error("a page read before Invalidate should not be cached")
	}

	cache.storePage(key, pageEntry{rec: content.Record{Page: "about"}, fetched: time.Now()}, gen+1)
	if _, ok := cache.pages[key]; !ok {
		t.Error("a page read after Invalidate should be cached")
	}
}
