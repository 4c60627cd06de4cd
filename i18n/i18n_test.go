package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	l, err := Parse(" AR ")
	require.NoError(t, err)
	assert.Equal(t, AR, l)

	_, err = Parse("fr")
	assert.Error(t, err)
}

func TestDirAndOther(t *testing.T) {
	assert.Equal(t, "rtl", AR.Dir())
	assert.Equal(t, "ltr", EN.Dir())
	assert.Equal(t, EN, AR.Other())
	assert.Equal(t, AR, EN.Other())
}

func TestNegotiate(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Lang
	}{
		{"empty uses fallback", "", EN},
		{"arabic region", "ar-SA,ar;q=0.9,en;q=0.5", AR},
		{"english first", "en-US,en;q=0.9,ar;q=0.3", EN},
		{"unsupported only", "fr-FR", EN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Negotiate(tt.header, EN))
		})
	}
}

func TestTextIn(t *testing.T) {
	txt := Text{EN: "Governance", AR: "الحوكمة"}
	assert.Equal(t, "الحوكمة", txt.In(AR))
	assert.Equal(t, "Governance", txt.In(EN))

	untranslated := Text{EN: "Only English"}
	assert.Equal(t, "Only English", untranslated.In(AR))
	assert.True(t, Text{EN: " ", AR: ""}.IsZero())
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Services", T(EN, "nav.services"))
	assert.Equal(t, "الخدمات", T(AR, "nav.services"))
	assert.Equal(t, "missing.key", T(AR, "missing.key"))
}
