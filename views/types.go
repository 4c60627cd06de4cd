package views

import (
	"encoding/json"
	"time"

	"github.com/eringen/corpsite/i18n"
)

// Site carries per-request, site-wide values into every template.
type Site struct {
	Name        string
	URL         string // canonical base, no trailing slash
	Description string
	Lang        i18n.Lang
	Path        string // request path without the language prefix, e.g. "/blog/"
	Global      Global
	CSRF        string
	Meta        PageMeta
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"-"` // canonical + og:url
	OGType      string `json:"-"` // "website" or "article"
	Image       string `json:"image,omitempty"`
	JSONLD      string `json:"-"`
}

// Link is a labelled URL used in navigation, CTAs and social lists.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Global is the "global" content record: footer and contact details.
type Global struct {
	Tagline string `json:"tagline"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Social  []Link `json:"social"`
}

// Page is the loose shape templates expect from a page content record.
// Fields the record does not carry stay empty.
type Page struct {
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle"`
	Intro    string    `json:"intro"`
	Image    string    `json:"image"`
	Sections []Section `json:"sections"`
	CTA      *Link     `json:"cta"`
	Meta     PageMeta  `json:"meta"`
}

// Section is a titled block of a content page.
type Section struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Body    string `json:"body"`
	Image   string `json:"image"`
	Items   []Item `json:"items"`
}

// Item is a card inside a section (a service, an industry, a value).
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Link        string `json:"link"`
}

// DecodePage decodes a content record into a Page. Malformed records render
// as an empty page rather than failing the request.
func DecodePage(raw json.RawMessage) Page {
	var p Page
	if len(raw) == 0 {
		return p
	}
	_ = json.Unmarshal(raw, &p)
	return p
}

// DecodeGlobal decodes the "global" content record.
func DecodeGlobal(raw json.RawMessage) Global {
	var g Global
	if len(raw) == 0 {
		return g
	}
	_ = json.Unmarshal(raw, &g)
	return g
}

// Category groups blog posts.
type Category struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        i18n.Text `json:"name"`
	Description i18n.Text `json:"description"`
	PostCount   int       `json:"postCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BlogPost is the core content type stored in SQLite and rendered by templates.
type BlogPost struct {
	ID              int64      `json:"id"`
	Slug            string     `json:"slug"`
	Title           i18n.Text  `json:"title"`
	Excerpt         i18n.Text  `json:"excerpt"`
	Content         i18n.Text  `json:"content"`
	CoverImage      string     `json:"coverImage"`
	CategoryID      int64      `json:"categoryId,omitempty"`
	Category        *Category  `json:"category,omitempty"`
	Author          string     `json:"author"`
	Tags            []string   `json:"tags"`
	Published       bool       `json:"published"`
	PublishedAt     *time.Time `json:"publishedAt,omitempty"`
	MetaTitle       i18n.Text  `json:"metaTitle"`
	MetaDescription i18n.Text  `json:"metaDescription"`
	Keywords        string     `json:"keywords"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Link returns the post's public path in language l.
func (p BlogPost) Link(l i18n.Lang) string {
	return "/" + string(l) + "/blog/" + p.Slug + "/"
}

// Date is the publication date, or the creation date for drafts.
func (p BlogPost) Date() time.Time {
	if p.PublishedAt != nil {
		return *p.PublishedAt
	}
	return p.CreatedAt
}

// HeroSlide is one entry of the home page carousel.
type HeroSlide struct {
	ID            int64     `json:"id"`
	Title         i18n.Text `json:"title"`
	Subtitle      i18n.Text `json:"subtitle"`
	Description   i18n.Text `json:"description"`
	ButtonText    i18n.Text `json:"buttonText"`
	ButtonLink    string    `json:"buttonLink"`
	ImageURL      string    `json:"imageUrl"`
	ImagePublicID string    `json:"imagePublicId"`
	SortOrder     int       `json:"sortOrder"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Pagination describes the page window of a listing.
type Pagination struct {
	Page       int
	TotalPages int
	BaseURL    string // listing URL including any filter query, without page
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a next page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
