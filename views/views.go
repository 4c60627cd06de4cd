// Package views holds the site's domain and view types and the default
// templ components used to render the public pages.
//
// The components render embedded html/template files so the site works
// without a template build step; callers wanting their own markup supply
// different components through corpsite.ViewFuncs.
package views

import (
	"context"
	"embed"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/corpsite/cdn"
	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{}

var funcs = template.FuncMap{
	"t": func(l i18n.Lang, key string) string { return i18n.T(l, key) },
	"tx": func(t i18n.Text, l i18n.Lang) string { return t.In(l) },
	"langPath": LangPath,
	"navClass": func(site Site, p string) string {
		return NavClass(site.Path == p || (p != "/" && strings.HasPrefix(site.Path, p)))
	},
	"date": FormatDate,
	"now":  time.Now,
	"thumb": func(src string, width int) string {
		return cdn.Thumbnail(src, width)
	},
	"html": func(s string) template.HTML {
		return template.HTML(richtext.Sanitize(s))
	},
	"jsonld": func(s string) template.JS { return template.JS(s) },
	"readingTime": richtext.ReadingTime,
	"add":         func(a, b int) int { return a + b },
	"pageURL": func(p Pagination, n int) string {
		sep := "?"
		if strings.Contains(p.BaseURL, "?") {
			sep = "&"
		}
		if n <= 1 {
			return p.BaseURL
		}
		return p.BaseURL + sep + "page=" + strconv.Itoa(n)
	},
}

func init() {
	for _, name := range []string{"home", "page", "blog", "post", "contact", "error"} {
		pages[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
}

// data is the single value handed to every template.
type data struct {
	Site       Site
	Name       string
	Page       Page
	Slides     []HeroSlide
	Posts      []BlogPost
	Post       BlogPost
	Related    []BlogPost
	Categories []Category
	Active     string
	Pagination Pagination
	Status     string
	Code       int
}

func render(name string, d data) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pages[name].ExecuteTemplate(w, "layout", d)
	})
}

// Home renders the landing page with the hero carousel and latest posts.
func Home(site Site, page Page, slides []HeroSlide, posts []BlogPost) templ.Component {
	return render("home", data{Site: site, Name: "home", Page: page, Slides: slides, Posts: posts})
}

// ContentPage renders a content-driven page (services, industries, about).
func ContentPage(site Site, name string, page Page) templ.Component {
	return render("page", data{Site: site, Name: name, Page: page})
}

// Blog renders the post listing with category filter and pagination.
func Blog(site Site, page Page, posts []BlogPost, categories []Category, active string, pg Pagination) templ.Component {
	return render("blog", data{Site: site, Name: "blog", Page: page, Posts: posts, Categories: categories, Active: active, Pagination: pg})
}

// Post renders a single article.
func Post(site Site, post BlogPost, related []BlogPost) templ.Component {
	return render("post", data{Site: site, Name: "blog", Post: post, Related: related})
}

// Contact renders the contact page. status is "", "sent" or "failed".
func Contact(site Site, page Page, status string) templ.Component {
	return render("contact", data{Site: site, Name: "contact", Page: page, Status: status})
}

// NotFound renders the 404 page.
func NotFound(site Site) templ.Component {
	return render("error", data{Site: site, Code: 404})
}

// ServerError renders the 500 page.
func ServerError(site Site) templ.Component {
	return render("error", data{Site: site, Code: 500})
}
