package site

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"time"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	PubDate     string   `xml:"pubDate"`
	GUID        string   `xml:"guid"`
	Categories  []string `xml:"category,omitempty"`
}

// stageFeed emits an RSS 2.0 feed of the newest posts at /feed.xml.
//
// The feed deliberately has no lastBuildDate: every emitted byte must
// depend only on content so unchanged input republishes identically.
func stageFeed(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	meta := siteMeta(g)

	limit := g.cfg.Build.FeedLimit
	posts := bs.Store.Posts
	if len(posts) > limit {
		posts = posts[:limit]
	}

	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		v, err := g.postView(p, false)
		if err != nil {
			return err
		}
		link := meta.BaseURL + v.URL
		items = append(items, rssItem{
			Title:       p.Title,
			Link:        link,
			Description: v.Excerpt,
			PubDate:     p.Date.UTC().Format(time.RFC1123Z),
			GUID:        link,
			Categories:  p.Categories,
		})
	}

	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       meta.Title,
			Link:        meta.BaseURL,
			Description: meta.Description,
			Language:    meta.Language,
			Items:       items,
		},
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return fmt.Errorf("encode rss feed: %w", err)
	}
	buf.WriteByte('\n')

	_, err := g.writeOutput("/feed.xml", buf.Bytes())
	return err
}
