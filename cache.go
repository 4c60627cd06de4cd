package corpsite

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eringen/corpsite/content"
	"github.com/eringen/corpsite/i18n"
)

// SiteCache is an in-memory cache of what the public site reads on every
// request: published posts, categories with published counts, active slides
// and page documents. Everything shares one TTL and one Invalidate.
type SiteCache struct {
	mu         sync.RWMutex
	posts      []BlogPost
	categories []Category
	slides     []HeroSlide
	fetched    time.Time
	pages      map[pageKey]pageEntry
	gen        uint64 // bumped by Invalidate
	ttl        time.Duration
	store      *Store
	content    *content.Store
}

type pageKey struct {
	page string
	lang i18n.Lang
}

type pageEntry struct {
	rec     content.Record
	err     error
	fetched time.Time
}

// NewSiteCache creates a SiteCache backed by the given stores.
func NewSiteCache(s *Store, cs *content.Store, ttl time.Duration) *SiteCache {
	return &SiteCache{store: s, content: cs, ttl: ttl, pages: make(map[pageKey]pageEntry)}
}

func (c *SiteCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *SiteCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.categories = nil
	c.slides = nil
	c.pages = make(map[pageKey]pageEntry)
	c.gen++
	c.mu.Unlock()
}

func (c *SiteCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, _, err := c.store.ListPosts(ctx, PostFilter{PublishedOnly: true})
	if err != nil {
		return err
	}
	categories, err := c.store.ListCategories(ctx, true)
	if err != nil {
		return err
	}
	slides, err := c.store.ListSlides(ctx, true)
	if err != nil {
		return err
	}
	c.posts = posts
	c.categories = categories
	c.slides = slides
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns the cached lists after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *SiteCache) ensureLoaded(ctx context.Context) ([]BlogPost, []Category, []HeroSlide, error) {
	c.mu.RLock()
	if c.valid() {
		posts, categories, slides := c.posts, c.categories, c.slides
		c.mu.RUnlock()
		return posts, categories, slides, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, nil, nil, err
	}
	return c.posts, c.categories, c.slides, nil
}

// ListPosts returns published posts, newest first, optionally limited to a
// category slug.
func (c *SiteCache) ListPosts(ctx context.Context, category string) ([]BlogPost, error) {
	posts, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return posts, nil
	}
	var filtered []BlogPost
	for _, p := range posts {
		if p.Category != nil && p.Category.Slug == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetPost returns a single published post by slug from the cache.
func (c *SiteCache) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	posts, _, _, err := c.ensureLoaded(ctx)
	if err != nil {
		return BlogPost{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return BlogPost{}, ErrNotFound
}

// ListCategories returns all categories with their published post counts.
func (c *SiteCache) ListCategories(ctx context.Context) ([]Category, error) {
	_, categories, _, err := c.ensureLoaded(ctx)
	return categories, err
}

// ListSlides returns the active hero slides in display order.
func (c *SiteCache) ListSlides(ctx context.Context) ([]HeroSlide, error) {
	_, _, slides, err := c.ensureLoaded(ctx)
	return slides, err
}

// Page returns the document for page in lang. Misses are cached too so a
// page without content does not hit the database and disk every request.
func (c *SiteCache) Page(ctx context.Context, page string, lang i18n.Lang) (content.Record, error) {
	key := pageKey{page, lang}
	c.mu.RLock()
	e, ok := c.pages[key]
	gen := c.gen
	c.mu.RUnlock()
	if ok && time.Since(e.fetched) < c.ttl {
		return e.rec, e.err
	}

	rec, err := c.content.Get(ctx, page, lang)
	if err != nil && !errors.Is(err, content.ErrNotFound) {
		return rec, err
	}
	c.storePage(key, pageEntry{rec: rec, err: err, fetched: time.Now()}, gen)
	return rec, err
}

// storePage caches e unless Invalidate ran since gen was read, in which
// case e may predate the change and is dropped.
func (c *SiteCache) storePage(key pageKey, e pageEntry, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.pages[key] = e
	}
}
