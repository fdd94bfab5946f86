// Package publish pushes a built site onto the hosting branch of a git
// remote. The world only sees the hosting branch move when a push lands,
// so a failed publish never affects what is being served.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/retry"
)

const remoteName = "origin"

// ErrDisabled is returned when no remote is configured.
var ErrDisabled = errors.New("publishing disabled: no remote configured")

// Result describes what a publish run did.
type Result struct {
	Branch  string `json:"branch"`
	Commit  string `json:"commit,omitempty"` // hash of the commit created this run, empty when nothing changed
	Changed bool   `json:"changed"`
	Pushed  bool   `json:"pushed"`
}

// Publisher syncs the output directory into a local checkout of the hosting
// branch, commits when the tree differs, and pushes with retry on transient
// failures. Republishing an unchanged site is a no-op.
type Publisher struct {
	cfg       *config.Config
	outputDir string
	workDir   string
	policy    retry.Policy
	recorder  metrics.Recorder
	log       *slog.Logger
	dryRun    bool
	now       func() time.Time
}

// NewPublisher builds a publisher from configuration.
func NewPublisher(cfg *config.Config) *Publisher {
	return &Publisher{
		cfg:       cfg,
		outputDir: cfg.Build.OutputDir,
		workDir:   cfg.Publish.WorkDir,
		policy:    retry.FromConfig(cfg.Publish.Retry),
		recorder:  metrics.NoopRecorder{},
		log:       slog.Default(),
		now:       time.Now,
	}
}

// SetRecorder injects a metrics recorder.
func (p *Publisher) SetRecorder(r metrics.Recorder) *Publisher {
	if r != nil {
		p.recorder = r
	}
	return p
}

// SetLogger injects a logger.
func (p *Publisher) SetLogger(l *slog.Logger) *Publisher {
	if l != nil {
		p.log = l
	}
	return p
}

// SetDryRun makes Publish stop after reporting whether the tree changed;
// no commit is created and nothing is pushed.
func (p *Publisher) SetDryRun(v bool) *Publisher {
	p.dryRun = v
	return p
}

// Publish syncs the current output onto the hosting branch.
func (p *Publisher) Publish(ctx context.Context) (*Result, error) {
	start := p.now()
	res, err := p.publish(ctx)
	p.recorder.ObservePublishDuration(time.Since(start), err == nil)
	switch {
	case err == nil && res != nil && !res.Changed:
		p.recorder.IncPublishOutcome("unchanged")
	case err == nil:
		p.recorder.IncPublishOutcome("success")
	default:
		p.recorder.IncPublishOutcome("failed")
	}
	return res, err
}

func (p *Publisher) publish(ctx context.Context) (*Result, error) {
	if p.cfg.Publish.Remote == "" {
		return nil, ErrDisabled
	}
	if err := p.verifyOutput(); err != nil {
		return nil, err
	}

	auth, err := buildAuth(p.cfg.Publish.Auth)
	if err != nil {
		return nil, err
	}

	branch := p.cfg.Publish.Branch
	repo, err := p.ensureRepo(ctx, auth)
	if err != nil {
		return nil, err
	}
	if err := p.checkoutHostingBranch(repo, branch); err != nil {
		return nil, err
	}

	if err := p.syncOutput(); err != nil {
		return nil, fmt.Errorf("sync output into worktree: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("stage changes: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		p.log.Info("publish: output unchanged, nothing to do",
			logfields.Branch(branch), logfields.Remote(p.cfg.Publish.Remote))
		return &Result{Branch: branch, Changed: false}, nil
	}

	if p.dryRun {
		p.log.Info("publish: dry run, changes detected but not committed",
			logfields.Branch(branch))
		return &Result{Branch: branch, Changed: true}, nil
	}

	hash, err := wt.Commit(p.cfg.Publish.Message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.cfg.Publish.Author.Name,
			Email: p.cfg.Publish.Author.Email,
			When:  p.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	p.log.Info("publish: committed",
		logfields.Branch(branch), logfields.Commit(hash.String()))

	if err := p.push(ctx, repo, branch, auth); err != nil {
		return nil, err
	}
	p.log.Info("publish: pushed",
		logfields.Branch(branch), logfields.Remote(p.cfg.Publish.Remote))

	return &Result{Branch: branch, Commit: hash.String(), Changed: true, Pushed: true}, nil
}

// verifyOutput refuses to publish an empty output tree, and requires the
// domain-mapping file when a custom domain is configured.
func (p *Publisher) verifyOutput() error {
	entries, err := os.ReadDir(p.outputDir)
	if os.IsNotExist(err) || (err == nil && len(entries) == 0) {
		return ErrEmptyOutput
	}
	if err != nil {
		return fmt.Errorf("read output dir %s: %w", p.outputDir, err)
	}
	if p.cfg.Publish.Domain != "" {
		if _, err := os.Stat(filepath.Join(p.outputDir, "CNAME")); err != nil {
			return ErrMissingDomainFile
		}
	}
	return nil
}

// ensureRepo opens (or initialises) the local hosting checkout, points its
// origin remote at the configured URL, and fetches the hosting branch. A
// remote that has no hosting branch yet is fine; we will create it on push.
func (p *Publisher) ensureRepo(ctx context.Context, auth transport.AuthMethod) (*git.Repository, error) {
	if err := os.MkdirAll(p.workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	repo, err := git.PlainOpen(p.workDir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(p.workDir, false)
	}
	if err != nil {
		return nil, fmt.Errorf("open hosting checkout: %w", err)
	}

	url := p.cfg.Publish.Remote
	if rem, rerr := repo.Remote(remoteName); rerr == nil {
		if len(rem.Config().URLs) == 0 || rem.Config().URLs[0] != url {
			// go-git has no set-url; recreate the remote.
			if derr := repo.DeleteRemote(remoteName); derr != nil {
				return nil, fmt.Errorf("update remote: %w", derr)
			}
			if _, cerr := repo.CreateRemote(&gitcfg.RemoteConfig{Name: remoteName, URLs: []string{url}}); cerr != nil {
				return nil, fmt.Errorf("update remote: %w", cerr)
			}
		}
	} else if errors.Is(rerr, git.ErrRemoteNotFound) {
		if _, cerr := repo.CreateRemote(&gitcfg.RemoteConfig{Name: remoteName, URLs: []string{url}}); cerr != nil {
			return nil, fmt.Errorf("create remote: %w", cerr)
		}
	} else {
		return nil, fmt.Errorf("inspect remote: %w", rerr)
	}

	branch := p.cfg.Publish.Branch
	spec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/remotes/%s/%s", branch, remoteName, branch))
	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitcfg.RefSpec{spec},
		Auth:       auth,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
	case errors.Is(err, transport.ErrEmptyRemoteRepository):
	case isMissingRemoteRef(err):
		// Remote exists but has never seen the hosting branch.
	default:
		return nil, classifyRemoteError("fetch", url, err)
	}
	return repo, nil
}

func isMissingRemoteRef(err error) bool {
	var noMatch git.NoMatchingRefSpecError
	if errors.As(err, &noMatch) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "couldn't find remote ref")
}

// checkoutHostingBranch switches the worktree to the hosting branch. If the
// remote already has the branch we start from its tip so publish history
// appends; otherwise the branch starts orphaned and the first commit
// creates it.
func (p *Publisher) checkoutHostingBranch(repo *git.Repository, branch string) error {
	local := plumbing.NewBranchReferenceName(branch)
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	if _, err := repo.Reference(local, true); err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local}); err != nil {
			return fmt.Errorf("checkout %s: %w", branch, err)
		}
		return nil
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(remoteName, branch), true)
	if err == nil {
		if err := wt.Checkout(&git.CheckoutOptions{Branch: local, Hash: remoteRef.Hash(), Create: true}); err != nil {
			return fmt.Errorf("checkout %s from remote: %w", branch, err)
		}
		return nil
	}

	// Brand-new branch: point HEAD at it symbolically so the first commit
	// births it without inheriting any history.
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, local)); err != nil {
		return fmt.Errorf("create orphan branch %s: %w", branch, err)
	}
	return nil
}

// syncOutput mirrors the output directory into the hosting worktree:
// everything except .git is removed first so deletions propagate.
func (p *Publisher) syncOutput() error {
	entries, err := os.ReadDir(p.workDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == git.GitDirName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(p.workDir, e.Name())); err != nil {
			return err
		}
	}
	return filepath.WalkDir(p.outputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.outputDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dst := filepath.Join(p.workDir, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		return copyFile(path, dst)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
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

// push sends the hosting branch to origin, retrying transient failures
// per the configured policy. Auth and missing-repository errors abort
// immediately.
func (p *Publisher) push(ctx context.Context, repo *git.Repository, branch string, auth transport.AuthMethod) error {
	rem, err := repo.Remote(remoteName)
	if err != nil {
		return fmt.Errorf("get remote: %w", err)
	}
	spec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))

	attempt := 0
	return p.policy.Do(ctx, func() error {
		if attempt > 0 {
			p.recorder.IncPushRetry()
			p.log.Warn("publish: retrying push",
				logfields.Branch(branch), slog.Int("attempt", attempt))
		}
		attempt++
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Minute)
		defer cancel()
		err := rem.PushContext(pushCtx, &git.PushOptions{
			RemoteName: remoteName,
			RefSpecs:   []gitcfg.RefSpec{spec},
			Auth:       auth,
		})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			return nil
		}
		return classifyRemoteError("push", p.cfg.Publish.Remote, err)
	}, isPermanent)
}
