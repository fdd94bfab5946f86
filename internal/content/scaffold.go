package content

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blogsmith/blogsmith/internal/frontmatter"
)

// ScaffoldPost writes a new draft post file under <contentDir>/posts using
// the store's YYYY-MM-DD-title.md naming convention. It refuses to
// overwrite an existing file and returns the created path.
func ScaffoldPost(contentDir, title string, date time.Time) (string, error) {
	slug, err := Slugify(title)
	if err != nil {
		return "", fmt.Errorf("derive slug from title %q: %w", title, err)
	}

	dir := filepath.Join(contentDir, "posts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create posts directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.md", date.Format("2006-01-02"), slug)
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("post already exists: %s", path)
	}

	fields := map[string]any{
		"title":       title,
		"date":        date.Format("2006-01-02"),
		"draft":       true,
		"categories":  []any{},
		"tags":        []any{},
		"description": "",
	}
	fm, err := frontmatter.SerializeYAML(fields, frontmatter.Style{Newline: "\n"})
	if err != nil {
		return "", fmt.Errorf("serialize front matter: %w", err)
	}
	doc := frontmatter.Join(fm, []byte("\n"), true, frontmatter.Style{Newline: "\n"})

	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("write post file: %w", err)
	}
	return path, nil
}
