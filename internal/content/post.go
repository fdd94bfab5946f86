// Package content owns the content store: dated Markdown posts and
// standalone pages with YAML front matter.
package content

import (
	"bytes"
	"fmt"
	"path"
	"regexp"
	"time"

	"github.com/adrg/frontmatter"
)

// Image describes an optional cover image declared in front matter.
type Image struct {
	Path string `yaml:"path"`
	LQIP string `yaml:"lqip,omitempty"` // low-quality placeholder payload (data URI)
	Alt  string `yaml:"alt,omitempty"`
}

// Post is a single content-store entry after front-matter parsing.
type Post struct {
	// SourcePath is the path of the file relative to the content root.
	SourcePath string
	// Kind distinguishes dated posts from standalone pages.
	Kind Kind

	Title          string
	Date           time.Time
	LastModifiedAt time.Time
	Categories     []string
	Tags           []string
	Image          *Image
	Description    string
	Draft          bool
	Slug           string
	Excerpt        string

	// Extra carries front-matter fields the envelope does not model;
	// they are exposed to templates verbatim.
	Extra map[string]any

	// Body is the Markdown body with the front-matter block removed.
	Body []byte
	// Hash is the sha256 of the raw file, used for change detection.
	Hash string
}

// Kind of content-store entry.
type Kind string

const (
	KindPost Kind = "post"
	KindPage Kind = "page"
)

// HasLastModified reports whether an explicit last_modified_at was set.
func (p *Post) HasLastModified() bool { return !p.LastModifiedAt.IsZero() }

// flexTime accepts the date shapes found in real front matter: native
// YAML timestamps plus quoted date or date-time strings.
type flexTime struct{ time.Time }

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
}

func (t *flexTime) UnmarshalYAML(unmarshal func(any) error) error {
	var direct time.Time
	if err := unmarshal(&direct); err == nil {
		t.Time = direct
		return nil
	}
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized date %q", s)
}

// envelope is the typed front-matter record; unknown keys land in Extra.
type envelope struct {
	Title          string         `yaml:"title"`
	Date           flexTime       `yaml:"date"`
	LastModifiedAt flexTime       `yaml:"last_modified_at"`
	Categories     []string       `yaml:"categories"`
	Tags           []string       `yaml:"tags"`
	Image          *Image         `yaml:"image"`
	Description    string         `yaml:"description"`
	Draft          bool           `yaml:"draft"`
	Slug           string         `yaml:"slug"`
	Excerpt        string         `yaml:"excerpt"`
	Extra          map[string]any `yaml:",inline"`
}

// filenameDate matches the store's YYYY-MM-DD-title.md naming convention.
var filenameDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)\.(md|markdown)$`)

// ParsePost parses a content file into a Post.
//
// The date falls back to the filename prefix when front matter omits it;
// the slug falls back to a title-derived slug, then to the filename stem.
// An unparseable front-matter block is an error carrying the file path.
func ParsePost(relPath string, raw []byte, kind Kind) (*Post, error) {
	var env envelope
	body, err := frontmatter.Parse(bytes.NewReader(raw), &env)
	if err != nil {
		return nil, fmt.Errorf("parse front matter of %s: %w", relPath, err)
	}
	if env.Title == "" {
		return nil, fmt.Errorf("front matter of %s: title is required", relPath)
	}

	p := &Post{
		SourcePath:     relPath,
		Kind:           kind,
		Title:          env.Title,
		Date:           env.Date.Time,
		LastModifiedAt: env.LastModifiedAt.Time,
		Categories:     env.Categories,
		Tags:           env.Tags,
		Image:          env.Image,
		Description:    env.Description,
		Draft:          env.Draft,
		Slug:           env.Slug,
		Excerpt:        env.Excerpt,
		Extra:          env.Extra,
		Body:           body,
		Hash:           hashBytes(raw),
	}

	base := path.Base(relPath)
	var stem string
	if m := filenameDate.FindStringSubmatch(base); m != nil {
		if p.Date.IsZero() {
			d, err := time.Parse("2006-01-02", m[1])
			if err != nil {
				return nil, fmt.Errorf("filename date of %s: %w", relPath, err)
			}
			p.Date = d
		}
		stem = m[2]
	}

	if kind == KindPost && p.Date.IsZero() {
		return nil, fmt.Errorf("post %s has no date in front matter or filename", relPath)
	}

	if p.Slug == "" {
		if s, err := Slugify(p.Title); err == nil && s != "" {
			p.Slug = s
		} else if stem != "" {
			if s, err := Slugify(stem); err == nil && s != "" {
				p.Slug = s
			}
		}
		if p.Slug == "" {
			return nil, fmt.Errorf("derive slug for %s: title %q yields no slug", relPath, p.Title)
		}
	}

	return p, nil
}
