package content

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// ScanOptions controls which entries a scan admits.
type ScanOptions struct {
	IncludeDrafts bool
	IncludeFuture bool
	// Now anchors the future-post cutoff; zero means time.Now.
	Now time.Time
}

// Store is the scanned content store.
type Store struct {
	Posts []*Post // newest first
	Pages []*Post
}

// Hash returns a deterministic hash over the whole store, used to detect
// whether a rebuild would change anything.
func (s *Store) Hash() string {
	h := sha256.New()
	for _, p := range s.Posts {
		fmt.Fprintf(h, "%s %s\n", p.SourcePath, p.Hash)
	}
	for _, p := range s.Pages {
		fmt.Fprintf(h, "%s %s\n", p.SourcePath, p.Hash)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Scan walks the content tree and parses every Markdown file.
//
// Posts live under posts/, pages under pages/. Draft and future-dated
// posts are skipped unless opted in. Posts sort newest first with slug
// as tiebreaker so output ordering is deterministic.
func Scan(fsys fs.FS, opts ScanOptions) (*Store, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	store := &Store{}
	for _, sub := range []struct {
		dir  string
		kind Kind
	}{{"posts", KindPost}, {"pages", KindPage}} {
		if _, err := fs.Stat(fsys, sub.dir); err != nil {
			continue // a store without pages (or posts) is legal
		}
		err := fs.WalkDir(fsys, sub.dir, func(p string, d fs.DirEntry, err error) error {
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
			post, err := ParsePost(p, raw, sub.kind)
			if err != nil {
				return err
			}
			if post.Draft && !opts.IncludeDrafts {
				slog.Debug("skipping draft", logfields.File(p))
				return nil
			}
			if sub.kind == KindPost && post.Date.After(now) && !opts.IncludeFuture {
				slog.Debug("skipping future-dated post", logfields.File(p), slog.Time("date", post.Date))
				return nil
			}
			if sub.kind == KindPost {
				store.Posts = append(store.Posts, post)
			} else {
				store.Pages = append(store.Pages, post)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(store.Posts, func(i, j int) bool {
		if !store.Posts[i].Date.Equal(store.Posts[j].Date) {
			return store.Posts[i].Date.After(store.Posts[j].Date)
		}
		return store.Posts[i].Slug < store.Posts[j].Slug
	})
	sort.SliceStable(store.Pages, func(i, j int) bool {
		return store.Pages[i].Slug < store.Pages[j].Slug
	})

	return store, nil
}

func isMarkdown(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
