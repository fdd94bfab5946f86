package site

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/blogsmith/blogsmith/internal/logfields"
)

// stageCopyStatic copies the static tree verbatim into the staged output.
// A missing static dir is not an error; many stores have none.
func stageCopyStatic(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	src := g.cfg.Content.StaticDir
	if src == "" {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		slog.Debug("no static directory", logfields.Path(src))
		return nil
	}

	count := 0
	err := filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if err := copyFile(p, filepath.Join(g.stageDir, rel)); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("copy static files: %w", err)
	}
	bs.Report.StaticFiles = count
	return nil
}

// stageDomainFile places the domain-mapping file (CNAME) at the output
// root. A repository-root CNAME file is copied verbatim; otherwise the
// configured publish domain is written. Neither present means no file.
func stageDomainFile(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	dst := filepath.Join(g.stageDir, "CNAME")

	if data, err := os.ReadFile(g.cnameFile); err == nil {
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return fmt.Errorf("copy domain-mapping file: %w", err)
		}
		slog.Debug("copied domain-mapping file", logfields.File(g.cnameFile))
		return nil
	}

	if domain := g.cfg.Publish.Domain; domain != "" {
		if err := os.WriteFile(dst, []byte(domain+"\n"), 0o644); err != nil {
			return fmt.Errorf("write domain-mapping file: %w", err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
