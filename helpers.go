package corpsite

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

// Slugify converts a title to a URL-safe slug. Letters and digits of any
// script are kept, so Arabic titles give Arabic slugs; accents and Arabic
// diacritics are dropped. Hamza and madda belong to the letter and stay.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.Predicate(isDroppedMark)), norm.NFC)
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	n := 0
	for _, r := range s {
		if n >= maxSlugLength {
			break
		}
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prev = false
			n++
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
				n++
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// isDroppedMark reports whether r is a combining mark Slugify removes.
// U+0653..U+0655 are the madda and hamza NFD splits off آ, أ, إ, ؤ and ئ.
func isDroppedMark(r rune) bool {
	if r >= '\u0653' && r <= '\u0655' {
		return false
	}
	return unicode.Is(unicode.Mn, r)
}

// ValidSlug reports whether s is already in slug form.
func ValidSlug(s string) bool {
	return s != "" && Slugify(s) == s
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SplitList splits a comma-separated form value into trimmed, non-empty items.
func SplitList(s string) []string {
	return FilterEmpty(strings.Split(s, ","))
}
