// Package site renders the content store into a static site through a
// linear stage pipeline with atomic output promotion.
package site

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
)

// Generator builds the static site for one configuration.
type Generator struct {
	cfg        *config.Config
	outputDir  string
	stageDir   string
	stateDir   string
	cnameFile  string // repository-root domain-mapping file, copied verbatim when present
	recorder   metrics.Recorder
	now        time.Time
	tpls       *templateSet
}

// NewGenerator creates a site generator for the configuration.
func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		cfg:       cfg,
		outputDir: filepath.Clean(cfg.Build.OutputDir),
		stateDir:  config.DefaultStateDir,
		cnameFile: "CNAME",
		recorder:  metrics.NoopRecorder{},
	}
}

// SetRecorder injects a metrics recorder (optional). Returns the generator for chaining.
func (g *Generator) SetRecorder(r metrics.Recorder) *Generator {
	if r == nil {
		g.recorder = metrics.NoopRecorder{}
		return g
	}
	g.recorder = r
	return g
}

// SetNow pins the clock used for the future-post cutoff. Zero means wall clock.
func (g *Generator) SetNow(t time.Time) *Generator { g.now = t; return g }

// SetStateDir overrides where the build report is persisted.
func (g *Generator) SetStateDir(dir string) *Generator { g.stateDir = dir; return g }

// OutputDir returns the promoted output directory.
func (g *Generator) OutputDir() string { return g.outputDir }

// Build runs the full stage pipeline. On success the staged output is
// promoted atomically; on failure the previous output is left untouched.
func (g *Generator) Build(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	bs := newBuildState(g, report)

	stages := []namedStage{
		{"prepare_staging", stagePrepareStaging},
		{"scan_content", stageScanContent},
		{"placeholders", stagePlaceholders},
		{"render_posts", stageRenderPosts},
		{"render_pages", stageRenderPages},
		{"indexes", stageIndexes},
		{"feed", stageFeed},
		{"sitemap", stageSitemap},
		{"copy_static", stageCopyStatic},
		{"domain_file", stageDomainFile},
		{"verify_links", stageVerifyLinks},
		{"finalize", stageFinalize},
	}

	start := time.Now()
	err := runStages(ctx, bs, stages)
	if err != nil {
		g.abortStaging()
	}
	report.finish(err)
	g.recorder.ObserveBuildDuration(time.Since(start))
	g.recorder.IncBuildOutcome(string(report.Outcome))

	if perr := report.Persist(g.stateDir); perr != nil {
		slog.Warn("failed to persist build report", logfields.Error(perr))
	}

	if err != nil {
		return report, err
	}
	slog.Info("site build complete",
		logfields.Posts(report.Posts),
		logfields.Pages(report.Pages),
		logfields.Outcome(string(report.Outcome)))
	return report, nil
}

func stagePrepareStaging(_ context.Context, bs *BuildState) error {
	return bs.Generator.beginStaging()
}

func stageScanContent(_ context.Context, bs *BuildState) error {
	g := bs.Generator
	if _, err := os.Stat(g.cfg.Content.Dir); err != nil {
		return fmt.Errorf("content directory %s: %w", g.cfg.Content.Dir, err)
	}
	store, err := content.Scan(os.DirFS(g.cfg.Content.Dir), content.ScanOptions{
		IncludeDrafts: g.cfg.Content.IncludeDrafts,
		IncludeFuture: g.cfg.Content.IncludeFuture,
		Now:           g.now,
	})
	if err != nil {
		return err
	}
	bs.Store = store
	bs.Report.Posts = len(store.Posts)
	bs.Report.Pages = len(store.Pages)
	bs.Report.ContentHash = store.Hash()
	slog.Debug("scanned content store", logfields.Posts(len(store.Posts)), logfields.Pages(len(store.Pages)))
	return nil
}

func stageFinalize(_ context.Context, bs *BuildState) error {
	return bs.Generator.finalizeStaging()
}

// writeOutput writes a file under the staging directory for the given URL
// path ("/a/b/" becomes a/b/index.html; "/feed.xml" stays a plain file).
func (g *Generator) writeOutput(urlPath string, data []byte) (string, error) {
	rel := strings.TrimPrefix(urlPath, "/")
	if rel == "" || strings.HasSuffix(urlPath, "/") {
		rel = filepath.Join(filepath.FromSlash(rel), "index.html")
	} else {
		rel = filepath.FromSlash(rel)
	}
	dst := filepath.Join(g.stageDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create output directory for %s: %w", urlPath, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	return rel, nil
}
