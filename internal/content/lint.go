package content

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/blogsmith/blogsmith/internal/frontmatter"
	"github.com/blogsmith/blogsmith/internal/markdown"
)

// LintIssue is a structural problem found in a content source file.
type LintIssue struct {
	File    string
	Message string
}

func (i LintIssue) String() string { return fmt.Sprintf("%s: %s", i.File, i.Message) }

// Lint structurally checks every Markdown source file in the store:
// the front-matter block must be properly delimited and valid YAML,
// the required fields must be present, and link destinations in the
// body must not be empty. When staticFS is non-nil, local image links
// (/...) must resolve to a file under the static root.
//
// Unlike Scan, Lint never stops at the first problem; it reports every
// issue it finds. Only an I/O failure is an error.
func Lint(fsys fs.FS, staticFS fs.FS) ([]LintIssue, error) {
	var issues []LintIssue
	for _, dir := range []string{"posts", "pages"} {
		if _, err := fs.Stat(fsys, dir); err != nil {
			continue
		}
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !isMarkdown(p) {
				return nil
			}
			raw, err := fs.ReadFile(fsys, p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			issues = append(issues, lintFile(p, raw, staticFS)...)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return issues, nil
}

func lintFile(p string, raw []byte, staticFS fs.FS) []LintIssue {
	var issues []LintIssue
	fm, body, had, _, err := frontmatter.Split(raw)
	if err != nil {
		return append(issues, LintIssue{File: p, Message: err.Error()})
	}
	if !had {
		return append(issues, LintIssue{File: p, Message: "no front-matter block"})
	}

	fields, err := frontmatter.ParseYAML(fm)
	if err != nil {
		issues = append(issues, LintIssue{File: p, Message: fmt.Sprintf("invalid front-matter YAML: %v", err)})
	} else {
		if title, _ := fields["title"].(string); title == "" {
			issues = append(issues, LintIssue{File: p, Message: "title is required"})
		}
		if slug, ok := fields["slug"].(string); ok && !IsValidSlug(slug) {
			issues = append(issues, LintIssue{File: p, Message: fmt.Sprintf("invalid slug override %q", slug)})
		}
	}

	links, err := markdown.ExtractLinks(body)
	if err != nil {
		return append(issues, LintIssue{File: p, Message: fmt.Sprintf("parse body: %v", err)})
	}
	for _, l := range links {
		if l.Destination == "" {
			issues = append(issues, LintIssue{File: p, Message: fmt.Sprintf("empty %s link destination", l.Kind)})
			continue
		}
		if l.Kind == markdown.LinkKindImage && staticFS != nil && strings.HasPrefix(l.Destination, "/") {
			rel := strings.TrimPrefix(l.Destination, "/")
			if _, err := fs.Stat(staticFS, rel); err != nil {
				issues = append(issues, LintIssue{File: p, Message: fmt.Sprintf("image %s not found under static dir", l.Destination)})
			}
		}
	}
	return issues
}
