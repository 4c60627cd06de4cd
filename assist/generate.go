package assist

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/eringen/corpsite/i18n"
	"github.com/eringen/corpsite/richtext"
)

const (
	maxTopicLen     = 300
	maxTranslateLen = 20000
	maxIdeas        = 10
)

var languageNames = map[i18n.Lang]string{
	i18n.EN: "English",
	i18n.AR: "Modern Standard Arabic",
}

// ArticleRequest asks for a full blog article draft.
type ArticleRequest struct {
	Topic    string    `json:"topic"`
	Lang     i18n.Lang `json:"lang"`
	Tone     string    `json:"tone"`
	Keywords []string  `json:"keywords"`
	Length   string    `json:"length"` // short, medium or long
}

// Article is a generated draft.
type Article struct {
	Title           string   `json:"title"`
	Excerpt         string   `json:"excerpt"`
	Content         string   `json:"content"`
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	Keywords        Keywords `json:"keywords"`
}

var wordTargets = map[string]int{"short": 500, "medium": 900, "long": 1500}

func (r *ArticleRequest) normalize() error {
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(r.Topic) > maxTopicLen {
		return fmt.Errorf("%w: topic must be at most %d characters", ErrInvalidRequest, maxTopicLen)
	}
	if r.Lang == "" {
		r.Lang = i18n.EN
	}
	if !r.Lang.Valid() {
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, r.Lang)
	}
	if _, ok := wordTargets[r.Length]; !ok {
		r.Length = "medium"
	}
	if strings.TrimSpace(r.Tone) == "" {
		r.Tone = "professional and authoritative"
	}
	return nil
}

const articleSystem = `You are a senior writer for an independent corporate governance and investment advisory firm.
Write in %s. Reply with a single JSON object and nothing else, using these keys:
"title", "excerpt" (at most 200 characters), "content" (HTML using only <h2>, <h3>, <p>, <ul>, <ol>, <li>, <strong>, <em>, <blockquote> and <a>),
"metaTitle" (at most 60 characters), "metaDescription" (at most 160 characters), "keywords" (array of 5 to 8 strings).
Do not use markdown anywhere. Do not include an <h1>.`

// GenerateArticle drafts an article about req.Topic.
func (c *Client) GenerateArticle(ctx context.Context, req ArticleRequest) (Article, error) {
	if err := req.normalize(); err != nil {
		return Article{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	fmt.Fprintf(&b, "Length: about %d words\n", wordTargets[req.Length])
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Work these keywords in naturally: %s\n", strings.Join(req.Keywords, ", "))
	}

	var a Article
	if err := c.complete(ctx, "article", fmt.Sprintf(articleSystem, languageNames[req.Lang]), b.String(), &a); err != nil {
		return Article{}, err
	}
	a.Title = richtext.StripMarkdown(a.Title)
	a.Excerpt = richtext.StripMarkdown(a.Excerpt)
	a.MetaTitle = richtext.StripMarkdown(a.MetaTitle)
	a.MetaDescription = richtext.StripMarkdown(a.MetaDescription)
	a.Content = richtext.Sanitize(richtext.CleanGeneratedHTML(a.Content))
	if a.Title == "" || a.Content == "" {
		return Article{}, fmt.Errorf("%w: article without title or content", ErrMalformedResponse)
	}
	if a.Excerpt == "" {
		a.Excerpt = richtext.Excerpt(a.Content, 200)
	}
	return a, nil
}

// IdeasRequest asks for article ideas for an industry.
type IdeasRequest struct {
	Industry string    `json:"industry"`
	Lang     i18n.Lang `json:"lang"`
	Count    int       `json:"count"`
}

// Idea is one suggested article.
type Idea struct {
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Keywords Keywords `json:"keywords"`
}

const ideasSystem = `You plan editorial calendars for an independent corporate governance and investment advisory firm.
Write in %s. Reply with a single JSON object {"ideas": [...]} where every idea has
"title", "summary" (one or two sentences) and "keywords" (array of 3 to 5 strings). Do not use markdown.`

// GenerateIdeas suggests req.Count article ideas (1 to 10, default 5).
func (c *Client) GenerateIdeas(ctx context.Context, req IdeasRequest) ([]Idea, error) {
	req.Industry = strings.TrimSpace(req.Industry)
	if req.Industry == "" {
		return nil, fmt.Errorf("%w: industry is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(req.Industry) > maxTopicLen {
		return nil, fmt.Errorf("%w: industry must be at most %d characters", ErrInvalidRequest, maxTopicLen)
	}
	if req.Lang == "" {
		req.Lang = i18n.EN
	}
	if !req.Lang.Valid() {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidRequest, req.Lang)
	}
	if req.Count <= 0 {
		req.Count = 5
	}
	if req.Count > maxIdeas {
		req.Count = maxIdeas
	}

	var out struct {
		Ideas []Idea `json:"ideas"`
	}
	user := fmt.Sprintf("Suggest %d article ideas for the %s sector.", req.Count, req.Industry)
	if err := c.complete(ctx, "ideas", fmt.Sprintf(ideasSystem, languageNames[req.Lang]), user, &out); err != nil {
		return nil, err
	}

	ideas := make([]Idea, 0, len(out.Ideas))
	for _, idea := range out.Ideas {
		idea.Title = richtext.StripMarkdown(idea.Title)
		idea.Summary = richtext.StripMarkdown(idea.Summary)
		if idea.Title == "" {
			continue
		}
		ideas = append(ideas, idea)
		if len(ideas) == req.Count {
			break
		}
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("%w: no ideas in reply", ErrMalformedResponse)
	}
	return ideas, nil
}

// TranslateRequest asks for text in one site language to be rendered in the other.
type TranslateRequest struct {
	Text string    `json:"text"`
	From i18n.Lang `json:"from"`
	To   i18n.Lang `json:"to"`
	HTML bool      `json:"html"`
}

const translateSystem = `You translate content for an independent corporate governance and investment advisory firm
from %s to %s. Keep terminology precise and the register formal.%s
Reply with a single JSON object {"text": "..."} and nothing else.`

// Translate translates req.Text. HTML input keeps its markup and is
// sanitized; plain text has stray markdown removed.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidRequest)
	}
	if utf8.RuneCountInString(req.Text) > maxTranslateLen {
		return "", fmt.Errorf("%w: text must be at most %d characters", ErrInvalidRequest, maxTranslateLen)
	}
	if req.From == "" {
		req.From = i18n.EN
	}
	if req.To == "" {
		req.To = req.From.Other()
	}
	if !req.From.Valid() || !req.To.Valid() || req.From == req.To {
		return "", fmt.Errorf("%w: unsupported language pair %q to %q", ErrInvalidRequest, req.From, req.To)
	}

	markup := " The input is plain text; reply with plain text."
	if req.HTML {
		markup = " The input is HTML; keep every tag and attribute unchanged and translate only the text."
	}

	var out struct {
		Text string `json:"text"`
	}
	system := fmt.Sprintf(translateSystem, languageNames[req.From], languageNames[req.To], markup)
	if err := c.complete(ctx, "translate", system, req.Text, &out); err != nil {
		return "", err
	}
	if req.HTML {
		out.Text = richtext.Sanitize(richtext.CleanGeneratedHTML(out.Text))
	} else {
		out.Text = richtext.StripMarkdown(out.Text)
	}
	if out.Text == "" {
		return "", fmt.Errorf("%w: empty translation", ErrMalformedResponse)
	}
	return out.Text, nil
}
