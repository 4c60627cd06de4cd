// Package i18n holds the two site languages, bilingual text values and the
// small set of interface labels shared by the public templates.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Lang is a supported site language code.
type Lang string

const (
	EN Lang = "en"
	AR Lang = "ar"
)

// Supported lists the site languages in display order. The first entry is
// the fallback for missing translations.
var Supported = []Lang{EN, AR}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// Parse validates a language code.
func Parse(s string) (Lang, error) {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q", s)
	}
	return l, nil
}

// Valid reports whether l is one of the supported languages.
func (l Lang) Valid() bool {
	return l == EN || l == AR
}

// Dir returns the HTML text direction for l.
func (l Lang) Dir() string {
	if l == AR {
		return "rtl"
	}
	return "ltr"
}

// Other returns the alternate language, used by the language switcher.
func (l Lang) Other() Lang {
	if l == AR {
		return EN
	}
	return AR
}

// Negotiate picks a supported language from an Accept-Language header.
func Negotiate(header string, fallback Lang) Lang {
	if header == "" {
		return fallback
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return Supported[idx]
}

// Text is a value stored in both languages.
type Text struct {
	EN string `json:"en"`
	AR string `json:"ar"`
}

// In returns the value for l, falling back to English when the translation is empty.
func (t Text) In(l Lang) string {
	if l == AR && strings.TrimSpace(t.AR) != "" {
		return t.AR
	}
	return t.EN
}

// IsZero reports whether both translations are blank.
func (t Text) IsZero() bool {
	return strings.TrimSpace(t.EN) == "" && strings.TrimSpace(t.AR) == ""
}

// Trim returns t with surrounding whitespace removed from both values.
func (t Text) Trim() Text {
	return Text{EN: strings.TrimSpace(t.EN), AR: strings.TrimSpace(t.AR)}
}
