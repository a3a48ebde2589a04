package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEntityName canonicalizes a raw entity name into the stable
// identity key used for upserts: lowercase, diacritics stripped, characters
// outside [a-z0-9] and whitespace removed, runs of whitespace collapsed to
// single underscores. An empty result means the entity should be dropped.
func NormalizeEntityName(name string) string {
	decomposed := norm.NFD.String(strings.ToLower(name))

	var b strings.Builder
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining marks left over from decomposition
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), "_")
}
