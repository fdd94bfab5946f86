package content

import (
	"fmt"
	"strings"
)

// Permalink expands a permalink template into the post's URL path.
//
// Recognized placeholders: :categories (slugged, joined by /), :year,
// :month, :day and :title (the slug). The result always starts and ends
// with a slash; empty segments collapse so a post without categories
// still yields a clean path.
func Permalink(template string, p *Post) (string, error) {
	if p.Kind == KindPage {
		return "/" + p.Slug + "/", nil
	}

	cats := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		s, err := Slugify(c)
		if err != nil {
			return "", fmt.Errorf("slugify category %q: %w", c, err)
		}
		cats = append(cats, s)
	}

	expanded := template
	expanded = strings.ReplaceAll(expanded, ":categories", strings.Join(cats, "/"))
	expanded = strings.ReplaceAll(expanded, ":year", p.Date.Format("2006"))
	expanded = strings.ReplaceAll(expanded, ":month", p.Date.Format("01"))
	expanded = strings.ReplaceAll(expanded, ":day", p.Date.Format("02"))
	expanded = strings.ReplaceAll(expanded, ":title", p.Slug)

	segs := make([]string, 0, 8)
	for _, s := range strings.Split(expanded, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "", fmt.Errorf("permalink template %q expanded to an empty path", template)
	}
	return "/" + strings.Join(segs, "/") + "/", nil
}
