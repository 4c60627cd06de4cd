package richtext

import (
	"html"
	"regexp"
	"strings"

	nethtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Tags dropped together with everything inside them.
var droppedTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "object": true, "embed": true,
	"form": true, "input": true, "button": true, "textarea": true, "select": true,
	"noscript": true, "svg": true, "math": true, "template": true, "link": true, "meta": true,
}

var allowedTags = map[string]bool{
	"p": true, "br": true, "hr": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"strong": true, "b": true, "em": true, "i": true, "u": true, "s": true, "mark": true, "sub": true, "sup": true,
	"blockquote": true, "ul": true, "ol": true, "li": true, "a": true, "img": true, "figure": true, "figcaption": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "th": true, "td": true,
	"pre": true, "code": true, "span": true, "div": true,
}

var voidTags = map[string]bool{"br": true, "hr": true, "img": true}

var allowedAttrs = map[string]map[string]bool{
	"*":   {"class": true, "dir": true, "lang": true, "style": true},
	"a":   {"href": true, "title": true, "target": true},
	"img": {"src": true, "alt": true, "title": true, "width": true, "height": true},
	"td":  {"colspan": true, "rowspan": true},
	"th":  {"colspan": true, "rowspan": true},
	"ol":  {"start": true},
}

var reTextAlign = regexp.MustCompile(`^\s*text-align:\s*(left|right|center|justify)\s*;?\s*$`)

// Sanitize reduces editor HTML to an allow-list of tags and attributes.
// Unknown tags are unwrapped, dangerous ones removed with their content,
// event handlers and unsafe URLs dropped.
func Sanitize(src string) string {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	nodes, err := parseFragment(src)
	if err != nil {
		return html.EscapeString(src)
	}
	var buf strings.Builder
	for _, n := range nodes {
		writeNode(&buf, n)
	}
	return strings.TrimSpace(buf.String())
}

func parseFragment(src string) ([]*nethtml.Node, error) {
	ctx := &nethtml.Node{Type: nethtml.ElementNode, Data: "body", DataAtom: atom.Body}
	return nethtml.ParseFragment(strings.NewReader(src), ctx)
}

func writeNode(buf *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		buf.WriteString(html.EscapeString(n.Data))
	case nethtml.ElementNode:
		tag := strings.ToLower(n.Data)
		if droppedTags[tag] {
			return
		}
		if !allowedTags[tag] {
			writeChildren(buf, n)
			return
		}
		buf.WriteString("<" + tag)
		writeAttrs(buf, tag, n.Attr)
		buf.WriteString(">")
		if voidTags[tag] {
			return
		}
		writeChildren(buf, n)
		buf.WriteString("</" + tag + ">")
	case nethtml.DocumentNode:
		writeChildren(buf, n)
	}
}

func writeChildren(buf *strings.Builder, n *nethtml.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(buf, c)
	}
}

func writeAttrs(buf *strings.Builder, tag string, attrs []nethtml.Attribute) {
	blank := false
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if !allowedAttrs["*"][key] && !allowedAttrs[tag][key] {
			continue
		}
		val := a.Val
		switch key {
		case "href", "src":
			val = SafeURL(val)
			if val == "" {
				continue
			}
		case "style":
			if !reTextAlign.MatchString(val) {
				continue
			}
		case "target":
			if val != "_blank" {
				continue
			}
			blank = true
		}
		buf.WriteString(" " + key + `="` + html.EscapeString(val) + `"`)
	}
	if tag == "a" && blank {
		buf.WriteString(` rel="noopener noreferrer"`)
	}
}
