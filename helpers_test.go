package corpsite

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"  Board  Evaluation: 2024 ", "board-evaluation-2024"},
		{"Café Société", "cafe-societe"},
		{"ESG & Governance!!", "esg-governance"},
		{"الحوكمة المؤسسية", "الحوكمة-المؤسسية"},
		{"مُرَاجَعَة", "مراجعة"},
		{"أخبار", "أخبار"},
		{"إدارة المخاطر", "إدارة-المخاطر"},
		{"مُؤَسَّسَة", "مؤسسة"},
		{"آفاق", "آفاق"},
		{"هيئة", "هيئة"},
		{"---", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSlugifyMaxLength(t *testing.T) {
	got := Slugify(strings.Repeat("word ", 40))
	if n := len([]rune(got)); n > maxSlugLength {
		t.Errorf("slug has %d runes, want at most %d", n, maxSlugLength)
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("slug %q should not end with a hyphen", got)
	}
}

func TestValidSlug(t *testing.T) {
	for _, s := range []string{"hello", "hello-world", "2024-review", "الحوكمة", "أخبار", "مؤتمر-الحوكمة", "إدارة"} {
		if !ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Hello", "hello world", "-hello", "hello--world", "a/b"} {
		if ValidSlug(s) {
			t.Errorf("ValidSlug(%q) = true, want false", s)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" governance, ,esg ,  boards")
	want := []string{"governance", "esg", "boards"}
	if len(got) != len(want) {
		t.Fatalf("SplitList = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if FilterEmpty([]string{" ", ""}) != nil {
		t.Error("FilterEmpty of blanks should be nil")
	}
}

func TestValidationError(t *testing.T) {
	verr := &ValidationError{}
	if verr.Err() != nil {
		t.Fatal("empty ValidationError should be nil")
	}
	verr.Add("title", "required")
	verr.Add("slug", "invalid")
	if verr.Err() == nil {
		t.Fatal("ValidationError with fields should not be nil")
	}
	if got := verr.Error(); got != "validation failed: slug: invalid; title: required" {
		t.Errorf("Error() = %q", got)
	}
}
