package corpsite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/corpsite/i18n"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newPost(slug string, published bool) *BlogPost {
	return &BlogPost{
		Slug:      slug,
		Title:     i18n.Text{EN: "Title " + slug, AR: "عنوان " + slug},
		Excerpt:   i18n.Text{EN: "Excerpt " + slug},
		Content:   i18n.Text{EN: "<p>Body " + slug + "</p>"},
		Published: published,
	}
}

func TestNewStoreMigrates(t *testing.T) {
	s := setupTestStore(t)

	v, err := s.schemaVersion()
	if err != nil {
		t.Fatalf("schemaVersion failed: %v", err)
	}
	if v != len(migrations) {
		t.Errorf("schema version = %d, want %d", v, len(migrations))
	}
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestCreateAndGetPost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := &Category{Slug: "governance", Name: i18n.Text{EN: "Governance", AR: "الحوكمة"}}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}

	p := newPost("board-evaluation", true)
	p.CategoryID = cat.ID
	p.Tags = []string{"boards", "esg"}
	p.MetaTitle = i18n.Text{EN: "Board evaluation"}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("CreatePost should assign an id")
	}
	if p.PublishedAt == nil {
		t.Fatal("publishing should stamp PublishedAt")
	}

	got, err := s.GetPostBySlug(ctx, "board-evaluation", true)
	if err != nil {
		t.Fatalf("GetPostBySlug failed: %v", err)
	}
	if got.Title != p.Title {
		t.Errorf("Title = %+v, want %+v", got.Title, p.Title)
	}
	if got.Content.EN != p.Content.EN {
		t.Errorf("Content = %q, want %q", got.Content.EN, p.Content.EN)
	}
	if got.MetaTitle.EN != "Board evaluation" {
		t.Errorf("MetaTitle = %q", got.MetaTitle.EN)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "boards" || got.Tags[1] != "esg" {
		t.Errorf("Tags = %v, want [boards esg]", got.Tags)
	}
	if got.Category == nil || got.Category.Slug != "governance" || got.Category.Name.AR != "الحوكمة" {
		t.Errorf("Category = %+v, want governance", got.Category)
	}
	if got.Link(i18n.AR) != "/ar/blog/board-evaluation/" {
		t.Errorf("Link = %q", got.Link(i18n.AR))
	}
}

func TestCreatePostDuplicateSlug(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, newPost("dup", true)); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	err := s.CreatePost(ctx, newPost("dup", false))
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestGetPostNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetPost(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPostBySlugHidesDrafts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.CreatePost(ctx, newPost("draft", false)); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if _, err := s.GetPostBySlug(ctx, "draft", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("published-only lookup should miss drafts, got %v", err)
	}
	got, err := s.GetPostBySlug(ctx, "draft", false)
	if err != nil {
		t.Fatalf("GetPostBySlug failed: %v", err)
	}
	if got.Published || got.PublishedAt != nil {
		t.Errorf("draft should be unpublished, got %+v", got)
	}
}

func TestUpdatePostKeepsPublishedAt(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := newPost("keep", true)
	first := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	p.PublishedAt = &first
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	edit := newPost("keep", true)
	edit.ID = p.ID
	edit.Title.EN = "Edited"
	if err := s.UpdatePost(ctx, edit); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title.EN != "Edited" {
		t.Errorf("Title = %q, want Edited", got.Title.EN)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(first) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, first)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", p.CreatedAt, got.CreatedAt)
	}
}

func TestUpdatePostFirstPublish(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := newPost("later", false)
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	p.Published = true
	if err := s.UpdatePost(ctx, p); err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}
	got, _ := s.GetPost(ctx, p.ID)
	if got.PublishedAt == nil {
		t.Error("first publish should stamp PublishedAt")
	}
}

func TestListPosts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i, slug := range []string{"post-1", "post-2", "post-3"} {
		p := newPost(slug, true)
		at := time.Date(2024, 1, i+1, 0, 0, 0, 0, time.UTC)
		p.PublishedAt = &at
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}
	if err := s.CreatePost(ctx, newPost("post-4", false)); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	got, total, err := s.ListPosts(ctx, PostFilter{PublishedOnly: true})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("ListPosts = %d posts (total %d), want 3", len(got), total)
	}
	if got[0].Slug != "post-3" {
		t.Errorf("first post should be post-3 (latest), got %s", got[0].Slug)
	}

	drafts, total, err := s.ListPosts(ctx, PostFilter{DraftsOnly: true})
	if err != nil {
		t.Fatalf("ListPosts drafts failed: %v", err)
	}
	if total != 1 || len(drafts) != 1 || drafts[0].Slug != "post-4" {
		t.Errorf("drafts = %v (total %d), want [post-4]", drafts, total)
	}

	page, total, err := s.ListPosts(ctx, PostFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPosts page failed: %v", err)
	}
	if total != 4 || len(page) != 2 {
		t.Errorf("page = %d posts (total %d), want 2 of 4", len(page), total)
	}
}

func TestListPostsFilters(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := &Category{Slug: "esg", Name: i18n.Text{EN: "ESG"}}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	a := newPost("alpha", true)
	a.Tags = []string{"GoLang", "WEB"}
	a.CategoryID = cat.ID
	b := newPost("beta_100%", true)
	b.Title.EN = "Beta 100% done"
	for _, p := range []*BlogPost{a, b} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	tests := []struct {
		name string
		f    PostFilter
		want int
	}{
		{"tag lower", PostFilter{Tag: "golang"}, 1},
		{"tag upper", PostFilter{Tag: "WEB"}, 1},
		{"tag missing", PostFilter{Tag: "rust"}, 0},
		{"category id", PostFilter{CategoryID: cat.ID}, 1},
		{"category slug", PostFilter{CategorySlug: "esg"}, 1},
		{"query english", PostFilter{Query: "ALPHA"}, 1},
		{"query arabic", PostFilter{Query: "عنوان"}, 2},
		{"query percent is literal", PostFilter{Query: "100%"}, 1},
		{"query underscore is literal", PostFilter{Query: "t_"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListPosts(ctx, tt.f)
			if err != nil {
				t.Fatalf("ListPosts failed: %v", err)
			}
			if total != tt.want || len(got) != tt.want {
				t.Errorf("got %d posts (total %d), want %d", len(got), total, tt.want)
			}
		})
	}
}

func TestDeletePost(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	p := newPost("to-delete", true)
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := s.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := s.GetPost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("post should be gone, got %v", err)
	}
	if err := s.DeletePost(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestCategories(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cat := &Category{Slug: "advisory", Name: i18n.Text{EN: "Advisory"}}
	if err := s.CreateCategory(ctx, cat); err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if err := s.CreateCategory(ctx, &Category{Slug: "advisory", Name: i18n.Text{EN: "Again"}}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate slug should be ErrConflict, got %v", err)
	}

	draft := newPost("draft", false)
	draft.CategoryID = cat.ID
	live := newPost("live", true)
	live.CategoryID = cat.ID
	for _, p := range []*BlogPost{draft, live} {
		if err := s.CreatePost(ctx, p); err != nil {
			t.Fatalf("CreatePost failed: %v", err)
		}
	}

	all, err := s.ListCategories(ctx, false)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(all) != 1 || all[0].PostCount != 2 {
		t.Errorf("admin counts = %+v, want 2 posts", all)
	}
	public, err := s.ListCategories(ctx, true)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if public[0].PostCount != 1 {
		t.Errorf("published count = %d, want 1", public[0].PostCount)
	}

	if err := s.DeleteCategory(ctx, cat.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("deleting a category in use should be ErrConflict, got %v", err)
	}
	for _, p := range []*BlogPost{draft, live} {
		if err := s.DeletePost(ctx, p.ID); err != nil {
			t.Fatalf("DeletePost failed: %v", err)
		}
	}
	if err := s.DeleteCategory(ctx, cat.ID); err != nil {
		t.Fatalf("DeleteCategory failed: %v", err)
	}
	if _, err := s.GetCategoryBySlug(ctx, "advisory"); !errors.Is(err, ErrNotFound) {
		t.Errorf("category should be gone, got %v", err)
	}
}

func TestSlidesAppendAndReorder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"one", "two", "three"} {
		sl := &HeroSlide{Title: i18n.Text{EN: title}, Active: true}
		if err := s.CreateSlide(ctx, sl); err != nil {
			t.Fatalf("CreateSlide failed: %v", err)
		}
		ids = append(ids, sl.ID)
	}

	slides, err := s.ListSlides(ctx, false)
	if err != nil {
		t.Fatalf("ListSlides failed: %v", err)
	}
	for i, sl := range slides {
		if sl.SortOrder != i || sl.ID != ids[i] {
			t.Errorf("slide %d = id %d order %d, want id %d order %d", i, sl.ID, sl.SortOrder, ids[i], i)
		}
	}

	// Only the third is listed; the others follow in their previous order.
	if err := s.ReorderSlides(ctx, []int64{ids[2]}); err != nil {
		t.Fatalf("ReorderSlides failed: %v", err)
	}
	slides, _ = s.ListSlides(ctx, false)
	want := []int64{ids[2], ids[0], ids[1]}
	for i, sl := range slides {
		if sl.ID != want[i] {
			t.Errorf("position %d = %d, want %d", i, sl.ID, want[i])
		}
	}

	var verr *ValidationError
	if err := s.ReorderSlides(ctx, []int64{ids[0], 999}); !errors.As(err, &verr) {
		t.Errorf("unknown id should be a ValidationError, got %v", err)
	}
	if err := s.ReorderSlides(ctx, []int64{ids[0], ids[0]}); !errors.As(err, &verr) {
		t.Errorf("repeated id should be a ValidationError, got %v", err)
	}
	slides, _ = s.ListSlides(ctx, false)
	if slides[0].ID != ids[2] {
		t.Error("a failed reorder must not change the order")
	}
}

func TestSlidesActiveOnly(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	on := &HeroSlide{Title: i18n.Text{EN: "on"}, Active: true}
	off := &HeroSlide{Title: i18n.Text{EN: "off"}, Active: false}
	for _, sl := range []*HeroSlide{on, off} {
		if err := s.CreateSlide(ctx, sl); err != nil {
			t.Fatalf("CreateSlide failed: %v", err)
		}
	}
	active, err := s.ListSlides(ctx, true)
	if err != nil {
		t.Fatalf("ListSlides failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != on.ID {
		t.Errorf("active slides = %+v, want only %d", active, on.ID)
	}

	off.Active = true
	off.SortOrder = 99
	if err := s.UpdateSlide(ctx, off); err != nil {
		t.Fatalf("UpdateSlide failed: %v", err)
	}
	if off.SortOrder != 1 {
		t.Errorf("UpdateSlide should keep the sort order, got %d", off.SortOrder)
	}
}

func TestMedia(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	m := &MediaAsset{PublicID: "corpsite/team/photo", URL: "https://cdn.example/photo.jpg", Format: "jpeg",
		Width: 800, Height: 600, Bytes: 1234, Folder: "team"}
	if err := s.SaveMedia(ctx, m); err != nil {
		t.Fatalf("SaveMedia failed: %v", err)
	}
	if err := s.SaveMedia(ctx, &MediaAsset{PublicID: "corpsite/team/photo", URL: "x"}); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate public id should be ErrConflict, got %v", err)
	}
	if err := s.SaveMedia(ctx, &MediaAsset{PublicID: "corpsite/general/logo", URL: "y", Folder: "general"}); err != nil {
		t.Fatalf("SaveMedia failed: %v", err)
	}

	team, err := s.ListMedia(ctx, "team")
	if err != nil {
		t.Fatalf("ListMedia failed: %v", err)
	}
	if len(team) != 1 || team[0].PublicID != m.PublicID {
		t.Errorf("team folder = %+v", team)
	}
	all, _ := s.ListMedia(ctx, "")
	if len(all) != 2 {
		t.Errorf("all media = %d, want 2", len(all))
	}

	if err := s.UpdateMediaAlt(ctx, m.ID, "Our team"); err != nil {
		t.Fatalf("UpdateMediaAlt failed: %v", err)
	}
	got, err := s.GetMedia(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMedia failed: %v", err)
	}
	if got.Alt != "Our team" || got.Width != 800 || got.Bytes != 1234 {
		t.Errorf("GetMedia = %+v", got)
	}
	if err := s.DeleteMedia(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMedia failed: %v", err)
	}
	if err := s.DeleteMedia(ctx, m.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestAdminUsers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	u, err := s.CreateAdminUser(ctx, " Admin@Example.com ", "Admin", "correct horse")
	if err != nil {
		t.Fatalf("CreateAdminUser failed: %v", err)
	}
	if u.Email != "admin@example.com" {
		t.Errorf("email = %q, want it normalized", u.Email)
	}
	if _, err := s.CreateAdminUser(ctx, "admin@example.com", "Again", "another pass"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate email should be ErrConflict, got %v", err)
	}
	var verr *ValidationError
	if _, err := s.CreateAdminUser(ctx, "not-an-email", "X", "short"); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	} else if len(verr.Fields) != 2 {
		t.Errorf("fields = %v, want email and password", verr.Fields)
	}

	if _, err := s.Authenticate(ctx, "admin@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password should be ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Authenticate(ctx, "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email should be ErrInvalidCredentials, got %v", err)
	}
	got, err := s.Authenticate(ctx, "ADMIN@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if got.ID != u.ID || got.LastLoginAt == nil {
		t.Errorf("Authenticate = %+v", got)
	}

	if err := s.SetAdminPassword(ctx, "admin@example.com", "new password"); err != nil {
		t.Fatalf("SetAdminPassword failed: %v", err)
	}
	if _, err := s.Authenticate(ctx, "admin@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should stop working")
	}
	n, err := s.CountAdminUsers(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountAdminUsers = %d, %v; want 1", n, err)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{",", nil},
		{",go,web,", []string{"go", "web"}},
		{"go", []string{"go"}},
	}
	for _, tt := range tests {
		got := ParseTags(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTags(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
	if got := joinTags([]string{"Go", " ", "Web"}); got != ",go,web," {
		t.Errorf("joinTags = %q, want ,go,web,", got)
	}
}
