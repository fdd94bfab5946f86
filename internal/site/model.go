package site

import (
	"html/template"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blogsmith/blogsmith/internal/content"
)

// SiteMeta is the site-wide metadata exposed to every template.
type SiteMeta struct {
	Title       string
	BaseURL     string
	Description string
	Author      string
	Language    string
}

// TermRef links a category or tag name to its term page.
type TermRef struct {
	Name string
	URL  string
}

// PostView is the template-facing projection of a post.
type PostView struct {
	Title        string
	Date         time.Time
	LastModified time.Time
	Categories   []TermRef
	Tags         []TermRef
	Image        *content.Image
	Description  string
	Excerpt      string
	URL          string
	Content      template.HTML
	Extra        map[string]any
}

// Page is a rendered output page. OutPath is relative to the output root.
type Page struct {
	Post    *content.Post
	URL     string
	OutPath string
}

type postPageData struct {
	Site SiteMeta
	Post PostView
}

type listPageData struct {
	Site       SiteMeta
	Posts      []PostView
	PageNum    int
	TotalPages int
	PrevURL    string
	NextURL    string
}

type termPageData struct {
	Site  SiteMeta
	Kind  string // "category" or "tag"
	Term  string
	Posts []PostView
}

type archiveYear struct {
	Year  int
	Posts []PostView
}

type archivePageData struct {
	Site  SiteMeta
	Years []archiveYear
}

func siteMeta(g *Generator) SiteMeta {
	return SiteMeta{
		Title:       g.cfg.Site.Title,
		BaseURL:     strings.TrimRight(g.cfg.Site.BaseURL, "/"),
		Description: g.cfg.Site.Description,
		Author:      g.cfg.Site.Author,
		Language:    g.cfg.Site.Language,
	}
}

// excerptOf picks the reader-facing summary of a post: the explicit
// description, then the excerpt override, then the first paragraph.
func excerptOf(p *content.Post) string {
	if p.Description != "" {
		return p.Description
	}
	if p.Excerpt != "" {
		return p.Excerpt
	}
	body := strings.TrimSpace(string(p.Body))
	if idx := strings.Index(body, "\n\n"); idx > 0 {
		body = body[:idx]
	}
	body = strings.ReplaceAll(body, "\n", " ")
	const maxExcerpt = 280
	if len(body) > maxExcerpt {
		// Truncate on a rune boundary so a multi-byte rune at the cut
		// never yields invalid UTF-8.
		cut := maxExcerpt
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return body
}
