// Command blogsmith builds a Markdown blog into a static site and
// publishes it to a git hosting branch.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/content"
	"github.com/blogsmith/blogsmith/internal/daemon"
	"github.com/blogsmith/blogsmith/internal/history"
	"github.com/blogsmith/blogsmith/internal/linkcheck"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/pipeline"
	"github.com/blogsmith/blogsmith/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"blogsmith.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	New struct {
		Title []string `arg:"" help:"Title of the new post"`
	} `cmd:"" help:"Scaffold a new post in the content store"`

	Build struct{} `cmd:"" help:"Build the site into the output directory"`

	Publish struct {
		DryRun bool `help:"Detect changes without committing or pushing"`
	} `cmd:"" help:"Build the site and push it to the hosting branch"`

	Serve struct{} `cmd:"" help:"Run continuously: watch, serve a preview, and accept webhooks"`

	Check struct{} `cmd:"" help:"Verify internal links of the built site"`

	History struct {
		Limit int `help:"Maximum number of runs to show" default:"20"`
	} `cmd:"" help:"Show recent pipeline runs"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	level := slog.LevelInfo
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if err := run(kctx.Command(), logger); err != nil {
		slog.Error("command failed", logfields.Error(err))
		os.Exit(1)
	}
}

func run(command string, logger *slog.Logger) error {
	switch {
	case command == "init":
		return runInit()

	case strings.HasPrefix(command, "new"):
		return runNew()

	case command == "build":
		return runPipeline(logger, pipeline.RunOptions{Trigger: pipeline.TriggerManual})

	case command == "publish":
		return runPipeline(logger, pipeline.RunOptions{
			Trigger: pipeline.TriggerManual,
			Publish: true,
			DryRun:  CLI.Publish.DryRun,
		})

	case command == "serve":
		return runServe(logger)

	case command == "check":
		return runCheck()

	case command == "history":
		return runHistory()

	case command == "version":
		fmt.Printf("blogsmith %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
		return nil

	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runInit scaffolds a config file, the content skeleton, and a first
// post so `blogsmith build` works immediately afterwards.
func runInit() error {
	if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
		return err
	}
	slog.Info("configuration created", logfields.Path(CLI.Config))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	for _, dir := range []string{
		filepath.Join(cfg.Content.Dir, "posts"),
		filepath.Join(cfg.Content.Dir, "pages"),
		cfg.Content.StaticDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	path, err := content.ScaffoldPost(cfg.Content.Dir, "Hello World", time.Now())
	if err != nil {
		slog.Warn("sample post not created", logfields.Error(err))
		return nil
	}
	slog.Info("sample post created", logfields.Path(path))
	return nil
}

func runNew() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	title := strings.Join(CLI.New.Title, " ")
	path, err := content.ScaffoldPost(cfg.Content.Dir, title, time.Now())
	if err != nil {
		return err
	}
	slog.Info("post created", logfields.Path(path))
	return nil
}

func runPipeline(logger *slog.Logger, opts pipeline.RunOptions) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	runner := pipeline.NewRunner(cfg, pipeline.NewBusWithEventStore(store)).SetLogger(logger)
	res, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}

	if res.Publish != nil && !res.Publish.Changed {
		slog.Info("site unchanged, hosting branch untouched")
	}
	for _, w := range res.Report.Warnings() {
		slog.Warn("build warning", logfields.Error(w))
	}
	return nil
}

func runServe(logger *slog.Logger) error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// runCheck lints the content store (front matter must parse, required
// fields present) and then verifies internal links of the built site.
func runCheck() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	contentFS := os.DirFS(cfg.Content.Dir)
	store, err := content.Scan(contentFS, content.ScanOptions{
		IncludeDrafts: true,
		IncludeFuture: true,
	})
	if err != nil {
		return fmt.Errorf("content store check failed: %w", err)
	}
	slog.Info("content store ok",
		logfields.Posts(len(store.Posts)), logfields.Pages(len(store.Pages)))

	var staticFS fs.FS
	if _, err := os.Stat(cfg.Content.StaticDir); err == nil {
		staticFS = os.DirFS(cfg.Content.StaticDir)
	}
	lintIssues, err := content.Lint(contentFS, staticFS)
	if err != nil {
		return err
	}
	for _, issue := range lintIssues {
		slog.Error("lint", logfields.File(issue.File), slog.String("issue", issue.Message))
	}

	var linkIssues []linkcheck.Issue
	if _, err := os.Stat(cfg.Build.OutputDir); err != nil {
		slog.Warn("no built site to link-check, run build first",
			logfields.Path(cfg.Build.OutputDir))
	} else {
		linkIssues, err = linkcheck.Check(cfg.Build.OutputDir)
		if err != nil {
			return err
		}
		for _, issue := range linkIssues {
			slog.Error("broken link",
				logfields.Path(issue.Page), slog.String("link", issue.Link))
		}
	}

	if total := len(lintIssues) + len(linkIssues); total > 0 {
		return fmt.Errorf("%d content issues", total)
	}
	slog.Info("content check passed")
	return nil
}

func runHistory() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	store, err := openHistory(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	projection := history.NewRunHistoryProjection(store, CLI.History.Limit)
	if err := projection.Rebuild(context.Background()); err != nil {
		return err
	}

	runs := projection.History()
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tTRIGGER\tSTATUS\tPOSTS\tPUBLISHED\tCOMMIT")
	for _, r := range runs {
		commit := r.Commit
		if len(commit) > 8 {
			commit = commit[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.Trigger, r.Status, r.Posts, r.Published, commit)
	}
	return w.Flush()
}

func openHistory(cfg *config.Config) (*history.SQLiteStore, error) {
	dbPath := cfg.Daemon.HistoryDB
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	return history.NewSQLiteStore(dbPath)
}
