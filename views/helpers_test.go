package views

import (
	"testing"

	"github.com/eringen/corpsite/i18n"
)

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base string
		segs []string
		want string
	}{
		{"https://example.com", nil, "https://example.com"},
		{"https://example.com", []string{"blog", "post"}, "https://example.com/blog/post/"},
		{"https://example.com/site", []string{"en"}, "https://example.com/site/en/"},
		{"https://example.com", []string{"ar", "blog", "أخبار"}, "https://example.com/ar/blog/%D8%A3%D8%AE%D8%A8%D8%A7%D8%B1/"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.want {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.want)
		}
	}
}

func TestAbsURL(t *testing.T) {
	tests := []struct {
		base string
		lang i18n.Lang
		path string
		want string
	}{
		{"https://example.com", i18n.EN, "/", "https://example.com/en/"},
		{"https://example.com/", i18n.AR, "/feed.xml", "https://example.com/ar/feed.xml"},
		{"https://example.com/site", i18n.EN, "/about/", "https://example.com/site/en/about/"},
		{"https://example.com", i18n.AR, "/blog/أخبار/", "https://example.com/ar/blog/%D8%A3%D8%AE%D8%A8%D8%A7%D8%B1/"},
	}
	for _, tt := range tests {
		if got := AbsURL(tt.base, tt.lang, tt.path); got != tt.want {
			t.Errorf("AbsURL(%q, %s, %q) = %q, want %q", tt.base, tt.lang, tt.path, got, tt.want)
		}
	}
}
