package site

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/markdown"
)

func termURL(kind, name string) (string, error) {
	s, err := content.Slugify(name)
	if err != nil {
		return "", fmt.Errorf("slugify %s %q: %w", kind, name, err)
	}
	switch kind {
	case "tag":
		return "/tags/" + s + "/", nil
	default:
		return "/categories/" + s + "/", nil
	}
}

func termRefs(kind string, names []string) ([]TermRef, error) {
	refs := make([]TermRef, 0, len(names))
	for _, n := range names {
		u, err := termURL(kind, n)
		if err != nil {
			return nil, err
		}
		refs = append(refs, TermRef{Name: n, URL: u})
	}
	return refs, nil
}

// postView projects a post for templates. Content is rendered only when
// withContent is set; list views carry the excerpt instead.
func (g *Generator) postView(p *content.Post, withContent bool) (PostView, error) {
	url, err := content.Permalink(g.cfg.Build.Permalink, p)
	if err != nil {
		return PostView{}, err
	}
	cats, err := termRefs("category", p.Categories)
	if err != nil {
		return PostView{}, err
	}
	tags, err := termRefs("tag", p.Tags)
	if err != nil {
		return PostView{}, err
	}
	v := PostView{
		Title:        p.Title,
		Date:         p.Date,
		LastModified: p.LastModifiedAt,
		Categories:   cats,
		Tags:         tags,
		Image:        p.Image,
		Description:  p.Description,
		Excerpt:      excerptOf(p),
		URL:          url,
		Extra:        p.Extra,
	}
	if withContent {
		html, err := markdown.Render(p.Body)
		if err != nil {
			return PostView{}, fmt.Errorf("render %s: %w", p.SourcePath, err)
		}
		v.Content = template.HTML(html)
	}
	return v, nil
}

func (g *Generator) execute(kind string, data any) ([]byte, error) {
	ts, err := g.templates()
	if err != nil {
		return nil, err
	}
	tpl, ok := ts.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("unknown template kind %q", kind)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func stageRenderPosts(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	meta := siteMeta(g)
	for _, post := range bs.Store.Posts {
		select {
		case <-ctx.Done():
			return newCanceledStageError("render_posts", ctx.Err())
		default:
		}
		view, err := g.postView(post, true)
		if err != nil {
			return err
		}
		out, err := g.execute("post", postPageData{Site: meta, Post: view})
		if err != nil {
			return err
		}
		rel, err := g.writeOutput(view.URL, out)
		if err != nil {
			return err
		}
		bs.Pages = append(bs.Pages, &Page{Post: post, URL: view.URL, OutPath: rel})
	}
	return nil
}

func stageRenderPages(ctx context.Context, bs *BuildState) error {
	g := bs.Generator
	meta := siteMeta(g)
	for _, page := range bs.Store.Pages {
		select {
		case <-ctx.Done():
			return newCanceledStageError("render_pages", ctx.Err())
		default:
		}
		view, err := g.postView(page, true)
		if err != nil {
			return err
		}
		out, err := g.execute("page", postPageData{Site: meta, Post: view})
		if err != nil {
			return err
		}
		rel, err := g.writeOutput(view.URL, out)
		if err != nil {
			return err
		}
		bs.Pages = append(bs.Pages, &Page{Post: page, URL: view.URL, OutPath: rel})
	}
	return nil
}
