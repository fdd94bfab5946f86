package site

import (
	"context"
	"fmt"
	"sort"

	"github.com/blogsmith/blogsmith/internal/content"
)

// stageIndexes renders the paginated front page, per-category and per-tag
// term pages, and the archive. All orderings are stable so output bytes
// depend only on content.
func stageIndexes(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	meta := siteMeta(g)

	views := make([]PostView, 0, len(bs.Store.Posts))
	for _, p := range bs.Store.Posts {
		v, err := g.postView(p, false)
		if err != nil {
			return err
		}
		views = append(views, v)
	}

	if err := g.renderFrontPage(meta, views); err != nil {
		return err
	}
	if err := g.renderTerms(meta, bs.Store.Posts, views, "category"); err != nil {
		return err
	}
	if err := g.renderTerms(meta, bs.Store.Posts, views, "tag"); err != nil {
		return err
	}
	return g.renderArchive(meta, views)
}

func (g *Generator) renderFrontPage(meta SiteMeta, views []PostView) error {
	perPage := g.cfg.Build.PostsPerPage
	total := (len(views) + perPage - 1) / perPage
	if total == 0 {
		total = 1
	}
	pageURL := func(n int) string {
		if n <= 1 {
			return "/"
		}
		return fmt.Sprintf("/page/%d/", n)
	}
	for n := 1; n <= total; n++ {
		lo := (n - 1) * perPage
		hi := lo + perPage
		if hi > len(views) {
			hi = len(views)
		}
		data := listPageData{
			Site:       meta,
			Posts:      views[lo:hi],
			PageNum:    n,
			TotalPages: total,
		}
		if n > 1 {
			data.PrevURL = pageURL(n - 1)
		}
		if n < total {
			data.NextURL = pageURL(n + 1)
		}
		out, err := g.execute("list", data)
		if err != nil {
			return err
		}
		if _, err := g.writeOutput(pageURL(n), out); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) renderTerms(meta SiteMeta, posts []*content.Post, views []PostView, kind string) error {
	byTerm := map[string][]PostView{}
	for i, p := range posts {
		names := p.Categories
		if kind == "tag" {
			names = p.Tags
		}
		for _, name := range names {
			byTerm[name] = append(byTerm[name], views[i])
		}
	}
	terms := make([]string, 0, len(byTerm))
	for t := range byTerm {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	for _, term := range terms {
		url, err := termURL(kind, term)
		if err != nil {
			return err
		}
		out, err := g.execute("term", termPageData{Site: meta, Kind: kind, Term: term, Posts: byTerm[term]})
		if err != nil {
			return err
		}
		if _, err := g.writeOutput(url, out); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) renderArchive(meta SiteMeta, views []PostView) error {
	byYear := map[int][]PostView{}
	for _, v := range views {
		byYear[v.Date.Year()] = append(byYear[v.Date.Year()], v)
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	data := archivePageData{Site: meta}
	for _, y := range years {
		data.Years = append(data.Years, archiveYear{Year: y, Posts: byYear[y]})
	}
	out, err := g.execute("archive", data)
	if err != nil {
		return err
	}
	_, err = g.writeOutput("/archive/", out)
	return err
}
