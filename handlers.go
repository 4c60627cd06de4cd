package corpsite

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/contact"
	"github.com/eringen/corpsite/content"
	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/views"
)

const (
	langCookie       = "lang"
	blogPageSize     = 9
	homePostCount    = 3
	relatedPostCount = 3
)

// requestLang returns the language of a "/:lang/..." request, falling back to
// the cookie and then the site default for paths outside the language tree.
func (a *App) requestLang(c echo.Context) i18n.Lang {
	if l, err := i18n.Parse(c.Param("lang")); err == nil {
		return l
	}
	first, _, _ := strings.Cut(strings.TrimPrefix(c.Request().URL.Path, "/"), "/")
	if l, err := i18n.Parse(first); err == nil {
		return l
	}
	if ck, err := c.Cookie(langCookie); err == nil {
		if l, err := i18n.Parse(ck.Value); err == nil {
			return l
		}
	}
	return a.Config.DefaultLang
}

// site builds the per-request template values. path is the request path
// without its language prefix.
func (a *App) site(c echo.Context, lang i18n.Lang, path string) views.Site {
	s := views.Site{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Lang:        lang,
		Path:        path,
		CSRF:        CsrfToken(c),
	}
	if rec, err := a.Cache.Page(c.Request().Context(), "global", lang); err == nil {
		s.Global = views.DecodeGlobal(rec.Data)
	}
	s.Meta = views.PageMeta{
		Description: a.Config.Description,
		URL:         views.AbsURL(a.Config.URL, lang, path),
		OGType:      "website",
	}
	return s
}

// page loads a content document for rendering. A missing document renders
// as an empty page.
func (a *App) page(c echo.Context, name string, lang i18n.Lang) (views.Page, error) {
	rec, err := a.Cache.Page(c.Request().Context(), name, lang)
	if errors.Is(err, content.ErrNotFound) {
		return views.Page{}, nil
	}
	if err != nil {
		return views.Page{}, err
	}
	return views.DecodePage(rec.Data), nil
}

func withPageMeta(s *views.Site, p views.Page) {
	if p.Meta.Title != "" {
		s.Meta.Title = p.Meta.Title
	} else if p.Title != "" {
		s.Meta.Title = p.Title
	}
	if p.Meta.Description != "" {
		s.Meta.Description = p.Meta.Description
	}
	if p.Meta.Image != "" {
		s.Meta.Image = p.Meta.Image
	} else if p.Image != "" {
		s.Meta.Image = p.Image
	}
}

// langMiddleware rejects unknown language prefixes and remembers the
// visitor's choice for the root redirect.
func (a *App) langMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l, err := i18n.Parse(c.Param("lang"))
		if err != nil {
			return echo.ErrNotFound
		}
		c.SetCookie(&http.Cookie{
			Name:     langCookie,
			Value:    string(l),
			Path:     "/",
			MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			SameSite: http.SameSiteLaxMode,
			Secure:   a.Config.CookieSecure,
		})
		return next(c)
	}
}

// handleRoot sends visitors to their language: the lang cookie first, then
// Accept-Language, then the site default.
func (a *App) handleRoot(c echo.Context) error {
	lang := a.Config.DefaultLang
	if ck, err := c.Cookie(langCookie); err == nil && i18n.Lang(ck.Value).Valid() {
		lang = i18n.Lang(ck.Value)
	} else {
		lang = i18n.Negotiate(c.Request().Header.Get("Accept-Language"), a.Config.DefaultLang)
	}
	c.Response().Header().Add("Vary", "Accept-Language, Cookie")
	return c.Redirect(http.StatusFound, views.LangPath(lang, "/"))
}

func (a *App) handleHome(c echo.Context) error {
	lang := a.requestLang(c)
	ctx := c.Request().Context()
	p, err := a.page(c, "home", lang)
	if err != nil {
		return err
	}
	slides, err := a.Cache.ListSlides(ctx)
	if err != nil {
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	if len(posts) > homePostCount {
		posts = posts[:homePostCount]
	}
	s := a.site(c, lang, "/")
	withPageMeta(&s, p)
	s.Meta.JSONLD = views.OrganizationJsonLD(s)
	return Render(c, a.Views.Home(s, p, slides, posts))
}

// contentPage renders one of the document-driven pages.
func (a *App) contentPage(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		lang := a.requestLang(c)
		p, err := a.page(c, name, lang)
		if err != nil {
			return err
		}
		s := a.site(c, lang, "/"+name+"/")
		withPageMeta(&s, p)
		return Render(c, a.Views.ContentPage(s, name, p))
	}
}

func (a *App) handleBlog(c echo.Context) error {
	lang := a.requestLang(c)
	ctx := c.Request().Context()
	category := strings.TrimSpace(c.QueryParam("category"))
	posts, err := a.Cache.ListPosts(ctx, category)
	if err != nil {
		return err
	}
	categories, err := a.Cache.ListCategories(ctx)
	if err != nil {
		return err
	}
	p, err := a.page(c, "blog", lang)
	if err != nil {
		return err
	}

	page, _ := pageParams(c, blogPageSize)
	totalPages := (len(posts) + blogPageSize - 1) / blogPageSize
	if totalPages == 0 {
		totalPages = 1
	}
	if page > totalPages {
		return echo.ErrNotFound
	}
	start := (page - 1) * blogPageSize
	end := min(start+blogPageSize, len(posts))

	base := views.LangPath(lang, "/blog/")
	if category != "" {
		base += "?category=" + views.PathEscape(category)
	}
	s := a.site(c, lang, "/blog/")
	withPageMeta(&s, p)
	pg := views.Pagination{Page: page, TotalPages: totalPages, BaseURL: base}
	return Render(c, a.Views.Blog(s, p, posts[start:end], categories, category, pg))
}

func (a *App) handlePost(c echo.Context) error {
	lang := a.requestLang(c)
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.ErrNotFound
		}
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, "")
	if err != nil {
		return err
	}
	s := a.site(c, lang, "/blog/"+post.Slug+"/")
	s.Meta.Title = post.MetaTitle.In(lang)
	if s.Meta.Title == "" {
		s.Meta.Title = post.Title.In(lang)
	}
	if d := post.MetaDescription.In(lang); d != "" {
		s.Meta.Description = d
	} else if d := post.Excerpt.In(lang); d != "" {
		s.Meta.Description = d
	}
	s.Meta.Image = post.CoverImage
	s.Meta.OGType = "article"
	s.Meta.JSONLD = views.BlogPostingJsonLD(s, post)
	return Render(c, a.Views.Post(s, post, views.FilterRelatedPosts(post, posts, relatedPostCount)))
}

var contactStatuses = map[string]bool{"sent": true, "failed": true, "limited": true}

func (a *App) handleContactPage(c echo.Context) error {
	status := c.QueryParam("status")
	if !contactStatuses[status] {
		status = ""
	}
	return a.renderContact(c, http.StatusOK, status)
}

func (a *App) renderContact(c echo.Context, code int, status string) error {
	lang := a.requestLang(c)
	p, err := a.page(c, "contact", lang)
	if err != nil {
		return err
	}
	s := a.site(c, lang, "/contact/")
	withPageMeta(&s, p)
	return RenderStatus(c, code, a.Views.Contact(s, p, status))
}

// handleContactForm accepts the no-script contact form. Success redirects so
// a reload does not resubmit.
func (a *App) handleContactForm(c echo.Context) error {
	lang := a.requestLang(c)
	var req contact.Request
	if err := c.Bind(&req); err != nil {
		return a.renderContact(c, http.StatusBadRequest, "failed")
	}
	req.Lang = string(lang)
	_, err := a.contacts.Accept(c.Request().Context(), req, c.RealIP())
	var verr contact.ValidationError
	switch {
	case err == nil:
		return c.Redirect(http.StatusSeeOther, views.LangPath(lang, "/contact/")+"?status=sent")
	case errors.As(err, &verr):
		return a.renderContact(c, http.StatusBadRequest, "failed")
	case errors.Is(err, contact.ErrRateLimited):
		return a.renderContact(c, http.StatusTooManyRequests, "limited")
	default:
		a.logger.Error("contact form", "err", err)
		return a.renderContact(c, http.StatusInternalServerError, "failed")
	}
}

// Public JSON API.

func (a *App) handlePublicPosts(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), c.QueryParam("category"))
	if err != nil {
		return err
	}
	if tag := strings.ToLower(strings.TrimSpace(c.QueryParam("tag"))); tag != "" {
		var tagged []BlogPost
		for _, p := range posts {
			for _, t := range p.Tags {
				if t == tag {
					tagged = append(tagged, p)
					break
				}
			}
		}
		posts = tagged
	}
	page, limit := pageParams(c, blogPageSize)
	start := min((page-1)*limit, len(posts))
	end := min(start+limit, len(posts))
	items := posts[start:end]
	if items == nil {
		items = []BlogPost{}
	}
	return c.JSON(http.StatusOK, listing[BlogPost]{Items: items, Total: len(posts), Page: page, Limit: limit})
}

func (a *App) handlePublicPost(c echo.Context) error {
	post, err := a.Cache.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handlePublicCategories(c echo.Context) error {
	categories, err := a.Cache.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (a *App) handlePublicSlides(c echo.Context) error {
	slides, err := a.Cache.ListSlides(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, slides)
}

func (a *App) handleHealth(c echo.Context) error {
	if err := a.Store.Ping(c.Request().Context()); err != nil {
		a.logger.Error("health check", "err", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleFavicon(c echo.Context) error {
	if p := filepath.Join(a.staticDir, "favicon.svg"); fileExists(p) {
		return c.File(p)
	}
	b, err := fs.ReadFile(embeddedFS(), "favicon.svg")
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "image/svg+xml", b)
}

func (a *App) handleRobots(c echo.Context) error {
	if p := filepath.Join(a.staticDir, "robots.txt"); fileExists(p) {
		return c.File(p)
	}
	body := fmt.Sprintf("User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /api/\n\nSitemap: %s/sitemap.xml\n", a.Config.URL)
	return c.String(http.StatusOK, body)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// classifyError maps an error returned by a handler to a status code and a
// message that is safe to show.
func classifyError(err error) (int, errorBody) {
	var he *echo.HTTPError
	var verr *ValidationError
	var cverr contact.ValidationError
	switch {
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok {
			msg = s
		}
		return he.Code, errorBody{Error: msg}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields}
	case errors.As(err, &cverr):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Fields: cverr}
	case errors.Is(err, ErrNotFound), errors.Is(err, content.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found"}
	case errors.Is(err, content.ErrInvalid):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorBody{Error: err.Error()}
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Error: "invalid email or password"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, body := classifyError(err)
	req := c.Request()
	if code >= 500 {
		a.logger.Error("request failed", "method", req.Method, "path", req.URL.Path,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID), "err", err)
	}

	var werr error
	switch {
	case req.Method == http.MethodHead:
		werr = c.NoContent(code)
	case strings.HasPrefix(req.URL.Path, "/api/") || strings.HasPrefix(req.URL.Path, "/admin"):
		werr = c.JSON(code, body)
	case code == http.StatusNotFound:
		lang := a.requestLang(c)
		werr = RenderStatus(c, code, a.Views.NotFound(a.site(c, lang, "/")))
	case code >= 500:
		lang := a.requestLang(c)
		werr = RenderStatus(c, code, a.Views.ServerError(a.site(c, lang, "/")))
	default:
		werr = c.String(code, body.Error)
	}
	if werr != nil {
		a.logger.Error("write error response", "err", werr)
	}
}
