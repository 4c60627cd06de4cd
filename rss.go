package corpsite

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/views"
)

const feedSize = 20

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Self          atomLink  `xml:"atom:link"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Category    []string `xml:"category,omitempty"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
}

// handleFeed serves the RSS feed of one language. Posts without a title in
// that language are left out.
func (a *App) handleFeed(c echo.Context) error {
	lang := a.requestLang(c)
	posts, err := a.Cache.ListPosts(c.Request().Context(), "")
	if err != nil {
		return err
	}
	return a.renderRSS(c, lang, posts)
}

func (a *App) renderRSS(c echo.Context, lang i18n.Lang, posts []BlogPost) error {
	base := a.Config.URL
	items := make([]rssItem, 0, feedSize)
	var latest time.Time
	for _, p := range posts {
		if len(items) == feedSize {
			break
		}
		title := p.Title.EN
		if lang == i18n.AR {
			title = p.Title.AR
		}
		if title == "" {
			continue
		}
		postURL := views.AbsURL(base, lang, "/blog/"+p.Slug+"/")
		item := rssItem{
			Title:       title,
			Link:        postURL,
			Description: p.Excerpt.In(lang),
			PubDate:     p.Date().Format(time.RFC1123Z),
			GUID:        postURL,
		}
		if p.Category != nil {
			item.Category = []string{p.Category.Name.In(lang)}
		}
		if p.Date().After(latest) {
			latest = p.Date()
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        views.AbsURL(base, lang, "/"),
			Description: a.Config.Description,
			Language:    string(lang),
			Self: atomLink{
				Href: views.AbsURL(base, lang, "/feed.xml"),
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Items: items,
		},
	}
	if !latest.IsZero() {
		feed.Channel.LastBuildDate = latest.Format(time.RFC1123Z)
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
