package corpsite

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/richtext"
)

const (
	maxTitleLength       = 300
	maxMetaLength        = 320
	excerptLength        = 200
	defaultAdminPageSize = 20
	maxPageSize          = 100
)

// postInput is the admin payload for creating or replacing a post.
type postInput struct {
	Slug            string     `json:"slug"`
	Title           i18n.Text  `json:"title"`
	Excerpt         i18n.Text  `json:"excerpt"`
	Content         i18n.Text  `json:"content"`
	CoverImage      string     `json:"coverImage"`
	CategoryID      int64      `json:"categoryId"`
	Author          string     `json:"author"`
	Tags            []string   `json:"tags"`
	Published       bool       `json:"published"`
	PublishedAt     *time.Time `json:"publishedAt"`
	MetaTitle       i18n.Text  `json:"metaTitle"`
	MetaDescription i18n.Text  `json:"metaDescription"`
	Keywords        string     `json:"keywords"`
}

// toPost validates in and returns the post to store. Rich text is sanitized
// and missing excerpts are derived from the content.
func (a *App) toPost(ctx context.Context, in postInput) (BlogPost, error) {
	verr := &ValidationError{}
	p := BlogPost{
		Title:           in.Title.Trim(),
		Content:         i18n.Text{EN: richtext.Sanitize(in.Content.EN), AR: richtext.Sanitize(in.Content.AR)},
		Excerpt:         in.Excerpt.Trim(),
		Author:          strings.TrimSpace(in.Author),
		CategoryID:      in.CategoryID,
		Published:       in.Published,
		PublishedAt:     in.PublishedAt,
		MetaTitle:       in.MetaTitle.Trim(),
		MetaDescription: in.MetaDescription.Trim(),
		Keywords:        strings.Join(SplitList(in.Keywords), ", "),
	}
	for _, t := range FilterEmpty(in.Tags) {
		p.Tags = append(p.Tags, strings.ToLower(t))
	}

	if p.Title.IsZero() {
		verr.Add("title", "a title in at least one language is required")
	}
	checkLength(verr, "title", p.Title, maxTitleLength)
	checkLength(verr, "metaTitle", p.MetaTitle, maxMetaLength)
	checkLength(verr, "metaDescription", p.MetaDescription, maxMetaLength)

	p.Slug = strings.TrimSpace(in.Slug)
	if p.Slug == "" {
		p.Slug = Slugify(p.Title.EN)
		if p.Slug == "" {
			p.Slug = Slugify(p.Title.AR)
		}
	}
	if p.Slug == "" && !p.Title.IsZero() {
		verr.Add("slug", "could not derive a slug from the title")
	} else if p.Slug != "" && !ValidSlug(p.Slug) {
		verr.Add("slug", "use lowercase letters, digits and single hyphens")
	}

	if in.CoverImage != "" {
		if p.CoverImage = richtext.SafeURL(strings.TrimSpace(in.CoverImage)); p.CoverImage == "" {
			verr.Add("coverImage", "must be an http(s) URL or a site path")
		}
	}

	if p.CategoryID != 0 {
		if _, err := a.Store.GetCategory(ctx, p.CategoryID); errors.Is(err, ErrNotFound) {
			verr.Add("categoryId", "unknown category")
		} else if err != nil {
			return BlogPost{}, err
		}
	}

	if p.Excerpt.EN == "" {
		p.Excerpt.EN = richtext.Excerpt(p.Content.EN, excerptLength)
	}
	if p.Excerpt.AR == "" {
		p.Excerpt.AR = richtext.Excerpt(p.Content.AR, excerptLength)
	}
	return p, verr.Err()
}

func checkLength(verr *ValidationError, field string, t i18n.Text, max int) {
	if utf8.RuneCountInString(t.EN) > max || utf8.RuneCountInString(t.AR) > max {
		verr.Add(field, fmt.Sprintf("must be at most %d characters", max))
	}
}

func paramID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// maxPage keeps (page-1)*limit from overflowing.
const maxPage = math.MaxInt32

func pageParams(c echo.Context, fallbackLimit int) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	page = min(page, maxPage)
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = fallbackLimit
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func (a *App) handleAdminListPosts(c echo.Context) error {
	page, limit := pageParams(c, defaultAdminPageSize)
	f := PostFilter{
		Query:  c.QueryParam("q"),
		Tag:    c.QueryParam("tag"),
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	switch c.QueryParam("status") {
	case "published":
		f.PublishedOnly = true
	case "draft":
		f.DraftsOnly = true
	}
	if v := c.QueryParam("category"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			f.CategoryID = id
		} else {
			f.CategorySlug = v
		}
	}
	posts, total, err := a.Store.ListPosts(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listing[BlogPost]{Items: posts, Total: total, Page: page, Limit: limit})
}

func (a *App) handleAdminGetPost(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleAdminCreatePost(c echo.Context) error {
	var in postInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	post, err := a.toPost(ctx, in)
	if err != nil {
		return err
	}
	if err := a.Store.CreatePost(ctx, &post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	saved, err := a.Store.GetPost(ctx, post.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, saved)
}

func (a *App) handleAdminUpdatePost(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in postInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ctx := c.Request().Context()
	post, err := a.toPost(ctx, in)
	if err != nil {
		return err
	}
	post.ID = id
	if err := a.Store.UpdatePost(ctx, &post); err != nil {
		return err
	}
	a.Cache.Invalidate()
	saved, err := a.Store.GetPost(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, saved)
}

func (a *App) handleAdminDeletePost(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.DeletePost(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// handleAdminPostMarkdown exports one language of a post as markdown.
func (a *App) handleAdminPostMarkdown(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	lang := i18n.EN
	if v := c.QueryParam("lang"); v != "" {
		if lang, err = i18n.Parse(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	post, err := a.Store.GetPost(c.Request().Context(), id)
	if err != nil {
		return err
	}
	body, err := richtext.NewConverter(a.Config.URL).ToMarkdown(post.Content.In(lang))
	if err != nil {
		return fmt.Errorf("convert post %d: %w", id, err)
	}
	doc := "# " + post.Title.In(lang) + "\n\n" + body + "\n"
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s.%s.md"`, downloadName(post), lang))
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", []byte(doc))
}

// downloadName picks an ASCII-safe download name for p.
func downloadName(p BlogPost) string {
	for _, r := range p.Slug {
		if r > 127 {
			return "post-" + strconv.FormatInt(p.ID, 10)
		}
	}
	return p.Slug
}

// categoryInput is the admin payload for a category.
type categoryInput struct {
	Slug        string    `json:"slug"`
	Name        i18n.Text `json:"name"`
	Description i18n.Text `json:"description"`
}

func toCategory(in categoryInput) (Category, error) {
	verr := &ValidationError{}
	cat := Category{
		Slug:        strings.TrimSpace(in.Slug),
		Name:        in.Name.Trim(),
		Description: in.Description.Trim(),
	}
	if cat.Name.EN == "" {
		verr.Add("name", "an English name is required")
	}
	checkLength(verr, "name", cat.Name, 100)
	checkLength(verr, "description", cat.Description, maxMetaLength)
	if cat.Slug == "" {
		cat.Slug = Slugify(cat.Name.EN)
	}
	if cat.Slug != "" && !ValidSlug(cat.Slug) {
		verr.Add("slug", "use lowercase letters, digits and single hyphens")
	}
	return cat, verr.Err()
}

func (a *App) handleAdminListCategories(c echo.Context) error {
	categories, err := a.Store.ListCategories(c.Request().Context(), false)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (a *App) handleAdminCreateCategory(c echo.Context) error {
	var in categoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cat, err := toCategory(in)
	if err != nil {
		return err
	}
	if err := a.Store.CreateCategory(c.Request().Context(), &cat); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusCreated, cat)
}

func (a *App) handleAdminUpdateCategory(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	var in categoryInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	cat, err := toCategory(in)
	if err != nil {
		return err
	}
	cat.ID = id
	if err := a.Store.UpdateCategory(c.Request().Context(), &cat); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.JSON(http.StatusOK, cat)
}

func (a *App) handleAdminDeleteCategory(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := a.Store.DeleteCategory(c.Request().Context(), id); err != nil {
		return err
	}
	a.Cache.Invalidate()
	return c.NoContent(http.StatusNoContent)
}
