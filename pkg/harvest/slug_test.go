package harvest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation collapsed", "Go 1.24: What's New?", "go-1-24-what-s-new"},
		{"accents stripped", "Café au Lait", "cafe-au-lait"},
		{"leading and trailing junk", "  --Hello--  ", "hello"},
		{"empty falls back", "", "article"},
		{"only punctuation falls back", "!!! ???", "article"},
		{"non-latin falls back", "статья о программировании", "article"},
		{"digits kept", "Top 10 Tools 2024", "top-10-tools-2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.title))
		})
	}
}

func TestSlugify_LengthBound(t *testing.T) {
	slug := Slugify(strings.Repeat("word ", 40))
	assert.LessOrEqual(t, len(slug), 80)
	assert.False(t, strings.HasSuffix(slug, "-"), "truncation must not leave a trailing hyphen")
}

func TestSlugify_Deterministic(t *testing.T) {
	assert.Equal(t, Slugify("Same Input Title"), Slugify("Same Input Title"))
}

func TestSlugSuffix(t *testing.T) {
	assert.Equal(t, "182737", SlugSuffix("1827364554"))
	assert.Equal(t, "abc", SlugSuffix("abc"))
	assert.Equal(t, "abcdef", SlugSuffix("a-b-c-d-e-f-g"))
	assert.Equal(t, "", SlugSuffix(""))
}
