package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/eringen/corpsite/i18n"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
// Non-ASCII segments come out percent-encoded.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// AbsURL returns the absolute, percent-encoded URL of the site path p in
// language l: AbsURL("https://x.com", AR, "/feed.xml") == "https://x.com/ar/feed.xml".
func AbsURL(base string, l i18n.Lang, p string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + LangPath(l, p)
	}
	u.Path = strings.TrimRight(u.Path, "/") + LangPath(l, p)
	return u.String()
}

// LangPath prefixes p with the language segment: LangPath(AR, "/blog/") == "/ar/blog/".
func LangPath(l i18n.Lang, p string) string {
	p = "/" + strings.TrimLeft(p, "/")
	if p == "/" {
		return "/" + string(l) + "/"
	}
	return "/" + string(l) + p
}

// FilterRelatedPosts returns posts sharing the current post's category,
// excluding the post itself, at most limit entries.
func FilterRelatedPosts(current BlogPost, posts []BlogPost, limit int) []BlogPost {
	var related []BlogPost
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		if current.CategoryID != 0 && p.CategoryID == current.CategoryID {
			related = append(related, p)
		}
		if len(related) == limit {
			break
		}
	}
	return related
}

// PathEscape wraps url.PathEscape for use in template expressions.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// NavClass returns CSS classes for a navigation link, with active variant.
func NavClass(active bool) string {
	base := "nav-link"
	if active {
		base += " nav-link-active"
	}
	return base
}

// FormatDate renders a date for l. Arabic pages use the same Gregorian
// calendar with Arabic month names.
func FormatDate(t time.Time, l i18n.Lang) string {
	if t.IsZero() {
		return ""
	}
	if l == i18n.AR {
		return t.Format("2") + " " + arabicMonths[t.Month()-1] + " " + t.Format("2006")
	}
	return t.Format("January 2, 2006")
}

var arabicMonths = [12]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// OrganizationJsonLD produces a Schema.org Organization JSON-LD block.
func OrganizationJsonLD(site Site) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "Organization",
		"name":     site.Name,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Global.Email != "" {
		data["email"] = site.Global.Email
	}
	if site.Global.Phone != "" {
		data["telephone"] = site.Global.Phone
	}
	if len(site.Global.Social) > 0 {
		var sameAs []string
		for _, l := range site.Global.Social {
			sameAs = append(sameAs, l.URL)
		}
		data["sameAs"] = sameAs
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(site Site, post BlogPost) string {
	postURL := BuildURL(site.URL, string(site.Lang), "blog", post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title.In(site.Lang),
		"description":   post.Excerpt.In(site.Lang),
		"datePublished": post.Date().Format("2006-01-02"),
		"dateModified":  post.UpdatedAt.Format("2006-01-02"),
		"inLanguage":    string(site.Lang),
		"url":           postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  site.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  post.Author,
		}
	}
	if post.CoverImage != "" {
		data["image"] = post.CoverImage
	}
	if post.Keywords != "" {
		data["keywords"] = post.Keywords
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
