package site

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/logfields"
)

// stagePlaceholders generates low-quality image placeholders for cover
// images that declare a path but no lqip payload. A provided payload
// passes through verbatim. Missing or undecodable image files degrade to
// a stage warning; the build continues without a placeholder.
func stagePlaceholders(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	if !g.cfg.Build.LQIP.Enabled {
		return nil
	}

	var problems []error
	all := make([]*content.Post, 0, len(bs.Store.Posts)+len(bs.Store.Pages))
	all = append(all, bs.Store.Posts...)
	all = append(all, bs.Store.Pages...)
	for _, post := range all {
		img := post.Image
		if img == nil || img.Path == "" || img.LQIP != "" {
			continue
		}
		payload, err := g.generateLQIP(img.Path)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", post.SourcePath, err))
			continue
		}
		img.LQIP = payload
		slog.Debug("generated image placeholder", logfields.File(post.SourcePath), logfields.Path(img.Path))
	}
	if len(problems) > 0 {
		return newWarnStageError("placeholders", errors.Join(problems...))
	}
	return nil
}

func (g *Generator) generateLQIP(imgPath string) (string, error) {
	src := filepath.Join(g.cfg.Content.StaticDir, filepath.FromSlash(strings.TrimPrefix(imgPath, "/")))
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("open cover image: %w", err)
	}
	defer f.Close()

	decoded, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode cover image: %w", err)
	}

	bounds := decoded.Bounds()
	w := g.cfg.Build.LQIP.Width
	h := bounds.Dy() * w / bounds.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), decoded, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: g.cfg.Build.LQIP.Quality}); err != nil {
		return "", fmt.Errorf("encode placeholder: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
