package corpsite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	XHTML   string       `xml:"xmlns:xhtml,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string         `xml:"loc"`
	LastMod    string         `xml:"lastmod,omitempty"`
	Alternates []sitemapAlter `xml:"xhtml:link"`
}

type sitemapAlter struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// sitePaths are the static pages listed in the sitemap, without language.
var sitePaths = []string{"/", "/services/", "/industries/", "/about/", "/blog/", "/contact/"}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

// entries returns one URL per language for path, each listing every
// language version as an alternate.
func (a *App) entries(path string, lastMod time.Time) []sitemapURL {
	base := a.Config.URL
	alts := make([]sitemapAlter, 0, len(i18n.Supported)+1)
	for _, l := range i18n.Supported {
		alts = append(alts, sitemapAlter{Rel: "alternate", Hreflang: string(l), Href: views.AbsURL(base, l, path)})
	}
	alts = append(alts, sitemapAlter{Rel: "alternate", Hreflang: "x-default", Href: views.AbsURL(base, a.Config.DefaultLang, path)})

	mod := ""
	if !lastMod.IsZero() {
		mod = lastMod.UTC().Format("2006-01-02")
	}
	urls := make([]sitemapURL, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		urls = append(urls, sitemapURL{Loc: views.AbsURL(base, l, path), LastMod: mod, Alternates: alts})
	}
	return urls
}

func (a *App) renderSitemap(c echo.Context, posts []BlogPost) error {
	var urls []sitemapURL
	for _, p := range sitePaths {
		urls = append(urls, a.entries(p, time.Time{})...)
	}
	for _, p := range posts {
		urls = append(urls, a.entries("/blog/"+p.Slug+"/", p.UpdatedAt)...)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML: "http://www.w3.org/1999/xhtml",
		URLs:  urls,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
