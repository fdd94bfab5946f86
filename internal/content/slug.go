package content

import (
	"github.com/goliatone/go-slug"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a URL-safe slug from a title.
//
// Input is NFC-normalized first so composed and decomposed forms of the
// same title always yield the same slug.
func Slugify(title string) (string, error) {
	return slug.Normalize(norm.NFC.String(title))
}

// IsValidSlug reports whether the value already matches the slug rules.
func IsValidSlug(value string) bool {
	return slug.IsValid(value)
}
