package harvest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 80

// Slugify derives a URL-safe slug from a title: lowercase, accents stripped,
// punctuation and whitespace runs collapsed to single hyphens, bounded length.
// An empty result falls back to the literal "article"; uniqueness is the
// upsert engine's job.
func Slugify(title string) string {
	decomposed := norm.NFD.String(strings.ToLower(title))

	var b strings.Builder
	b.Grow(len(decomposed))
	lastHyphen := true // suppress leading hyphen
	for _, r := range decomposed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.Is(unicode.Mn, r):
			// combining mark left over from accent decomposition, drop
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	if slug == "" {
		slug = "article"
	}
	return slug
}

// SlugSuffix derives a short disambiguator from the external post id, used
// when a generated slug collides with an existing one
func SlugSuffix(externalID string) string {
	id := strings.ReplaceAll(externalID, "-", "")
	if len(id) > 6 {
		id = id[:6]
	}
	return id
}
