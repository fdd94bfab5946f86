// Package linkcheck verifies that internal links in a rendered site
// resolve to a built page or asset. External links are never fetched.
package linkcheck

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
)

// Issue is one broken internal link.
type Issue struct {
	Page string // output-relative path of the page containing the link
	Link string // the raw href/src value
}

func (i Issue) String() string { return fmt.Sprintf("%s: broken internal link %q", i.Page, i.Link) }

// Check walks a rendered site directory, parses every HTML file and
// verifies that each internal href/src resolves to an existing output
// file. It returns the broken links found; an empty slice means clean.
func Check(root string) ([]Issue, error) {
	targets := map[string]bool{}
	var pages []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		targets["/"+rel] = true
		if path.Base(rel) == "index.html" {
			dir := path.Dir(rel)
			if dir == "." {
				targets["/"] = true
			} else {
				targets["/"+dir+"/"] = true
				targets["/"+dir] = true
			}
		}
		if strings.HasSuffix(rel, ".html") {
			pages = append(pages, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk output: %w", err)
	}

	var issues []Issue
	for _, page := range pages {
		links, err := extractRefs(filepath.Join(root, filepath.FromSlash(page)))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		for _, link := range links {
			target, internal := normalize(link)
			if !internal {
				continue
			}
			if !targets[target] {
				issues = append(issues, Issue{Page: page, Link: link})
			}
		}
	}
	return issues, nil
}

// extractRefs parses an HTML file and returns all href and src values.
func extractRefs(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return nil, err
	}

	var refs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					refs = append(refs, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return refs, nil
}

// normalize strips fragments and queries and reports whether the link is
// internal (site-absolute). Scheme-qualified, protocol-relative, mailto,
// data and pure-fragment links are external or out of scope.
func normalize(link string) (string, bool) {
	if link == "" || strings.HasPrefix(link, "#") {
		return "", false
	}
	if strings.Contains(link, "://") || strings.HasPrefix(link, "//") ||
		strings.HasPrefix(link, "mailto:") || strings.HasPrefix(link, "data:") {
		return "", false
	}
	if !strings.HasPrefix(link, "/") {
		// Relative links are rare in generated output; out of scope.
		return "", false
	}
	if idx := strings.IndexAny(link, "#?"); idx >= 0 {
		link = link[:idx]
	}
	if link == "" {
		return "", false
	}
	return link, true
}
