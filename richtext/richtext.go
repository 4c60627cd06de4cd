// Package richtext cleans and converts the HTML produced by the admin
// rich-text editor and by the content-assist model.
package richtext

import (
	"html"
	"net/url"
	"regexp"
	"strings"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	reItalicUnderscore = regexp.MustCompile(`\b_([^_]+)_\b`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reFence            = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	reHeading          = regexp.MustCompile(`(?m)^\s*(#{1,6})\s+(.+?)\s*#*\s*$`)
	reListMarker       = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	reBlankRun         = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown removes stray markdown syntax from a plain-text value such as
// a generated title or meta description.
func StripMarkdown(s string) string {
	s = reFence.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllString(s, "$2")
	s = reListMarker.ReplaceAllString(s, "")
	s = reLink.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reBoldUnderscore.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reItalicUnderscore.ReplaceAllString(s, "$1")
	s = reBlankRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"`))
}

// CleanGeneratedHTML converts markdown left inside model-generated HTML into
// tags. Fences around the whole document are dropped, heading lines become
// h2-h4 and inline emphasis is applied only outside existing tags.
func CleanGeneratedHTML(s string) string {
	s = reFence.ReplaceAllString(s, "")
	s = reHeading.ReplaceAllStringFunc(s, func(m string) string {
		match := reHeading.FindStringSubmatch(m)
		level := len(match[1]) + 1
		if level > 4 {
			level = 4
		}
		tag := "h" + string(rune('0'+level))
		return "<" + tag + ">" + match[2] + "</" + tag + ">"
	})
	s = ApplyOutsideTags(s, func(seg string) string {
		seg = reInlineCode.ReplaceAllString(seg, "<code>$1</code>")
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})
	s = reLink.ReplaceAllStringFunc(s, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + html.EscapeString(href) + `">` + match[1] + `</a>`
	})
	return strings.TrimSpace(s)
}

// ApplyOutsideTags applies fn only to text segments outside HTML tags,
// so that formatting regexes never touch URLs inside href attributes.
func ApplyOutsideTags(s string, fn func(string) string) string {
	var buf strings.Builder
	for len(s) > 0 {
		lt := strings.Index(s, "<")
		if lt < 0 {
			buf.WriteString(fn(s))
			break
		}
		if lt > 0 {
			buf.WriteString(fn(s[:lt]))
		}
		gt := strings.Index(s[lt:], ">")
		if gt < 0 {
			buf.WriteString(s[lt:])
			break
		}
		buf.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return buf.String()
}

var urlNoise = strings.NewReplacer("\t", "", "\n", "", "\r", "")

// SafeURL returns raw if it is a relative, fragment, http(s), mailto or tel
// URL, and "" otherwise. The result is not HTML-escaped.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	// Browsers drop tabs and newlines and read a backslash as a slash.
	lead := strings.ReplaceAll(urlNoise.Replace(val), `\`, "/")
	if strings.HasPrefix(lead, "//") {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return val
	default:
		return ""
	}
}
