package site

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// stageSitemap emits /sitemap.xml covering the front page and every
// rendered post and page. lastmod prefers an explicit last_modified_at.
func stageSitemap(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	meta := siteMeta(g)

	urls := []sitemapURL{{Loc: meta.BaseURL + "/"}}
	for _, pg := range bs.Pages {
		u := sitemapURL{Loc: meta.BaseURL + pg.URL}
		if pg.Post != nil {
			switch {
			case pg.Post.HasLastModified():
				u.LastMod = pg.Post.LastModifiedAt.Format("2006-01-02")
			case !pg.Post.Date.IsZero():
				u.LastMod = pg.Post.Date.Format("2006-01-02")
			}
		}
		urls = append(urls, u)
	}

	set := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')

	_, err := g.writeOutput("/sitemap.xml", buf.Bytes())
	return err
}
