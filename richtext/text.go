package richtext

import (
	"strings"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	nethtml "golang.org/x/net/html"
)

const wordsPerMinute = 200

var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "blockquote": true, "tr": true, "figcaption": true, "pre": true,
}

// PlainText returns the visible text of an HTML fragment with whitespace collapsed.
func PlainText(src string) string {
	nodes, err := parseFragment(src)
	if err != nil {
		return strings.Join(strings.Fields(src), " ")
	}
	var buf strings.Builder
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		switch n.Type {
		case nethtml.TextNode:
			buf.WriteString(n.Data)
			return
		case nethtml.ElementNode:
			if droppedTags[strings.ToLower(n.Data)] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == nethtml.ElementNode && blockTags[n.Data] {
			buf.WriteByte(' ')
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(strings.Fields(buf.String()), " ")
}

// Excerpt returns at most max runes of the plain text of src, cut at a word
// boundary and suffixed with an ellipsis when shortened.
func Excerpt(src string, max int) string {
	text := PlainText(src)
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)[:max]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:،") + "…"
}

// ReadingTime estimates minutes needed to read src. It is never less than one.
func ReadingTime(src string) int {
	words := len(strings.Fields(PlainText(src)))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Converter turns stored post HTML into GitHub-flavoured markdown for export.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a Converter. domain resolves relative links and images.
func NewConverter(domain string) *Converter {
	converter := md.NewConverter(domain, true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{converter: converter}
}

// ToMarkdown converts an HTML fragment to markdown.
func (c *Converter) ToMarkdown(src string) (string, error) {
	out, err := c.converter.ConvertString(src)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reBlankRun.ReplaceAllString(out, "\n\n")), nil
}
