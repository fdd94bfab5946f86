package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogsmith/blogsmith/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	outputDir := filepath.Join(root, "public")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "index.html"), []byte("<html>home</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "posts", "hello"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "posts", "hello", "index.html"), []byte("<html>hello</html>"), 0o644))

	remoteDir := filepath.Join(root, "remote.git")
	_, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Build.OutputDir = outputDir
	cfg.Publish.Remote = remoteDir
	cfg.Publish.Branch = "gh-pages"
	cfg.Publish.Message = "publish site"
	cfg.Publish.WorkDir = filepath.Join(root, "hosting")
	cfg.Publish.Author = config.CommitAuthor{Name: "ci", Email: "ci@example.com"}
	return cfg
}

// hostingTip returns the tip commit of the hosting branch in the bare remote.
func hostingTip(t *testing.T, remoteDir, branch string) *plumbing.Reference {
	t.Helper()
	repo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	require.NoError(t, err)
	return ref
}

func commitCount(t *testing.T, remoteDir, branch string) int {
	t.Helper()
	repo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)
	ref := hostingTip(t, remoteDir, branch)
	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	require.NoError(t, err)
	n := 0
	require.NoError(t, iter.ForEach(func(*object.Commit) error { n++; return nil }))
	return n
}

func TestPublishCreatesHostingBranch(t *testing.T) {
	cfg := testConfig(t)
	res, err := NewPublisher(cfg).Publish(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Changed)
	assert.True(t, res.Pushed)
	assert.NotEmpty(t, res.Commit)
	assert.Equal(t, "gh-pages", res.Branch)

	ref := hostingTip(t, cfg.Publish.Remote, "gh-pages")
	assert.Equal(t, res.Commit, ref.Hash().String())

	repo, err := git.PlainOpen(cfg.Publish.Remote)
	require.NoError(t, err)
	commit, err := repo.CommitObject(ref.Hash())
	require.NoError(t, err)
	assert.Equal(t, "publish site", commit.Message)
	assert.Equal(t, "ci", commit.Author.Name)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("index.html")
	assert.NoError(t, err)
	_, err = tree.File("posts/hello/index.html")
	assert.NoError(t, err)
}

func TestRepublishUnchangedIsNoOp(t *testing.T) {
	cfg := testConfig(t)
	p := NewPublisher(cfg)

	first, err := p.Publish(context.Background())
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := p.Publish(context.Background())
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.False(t, second.Pushed)
	assert.Empty(t, second.Commit)

	assert.Equal(t, 1, commitCount(t, cfg.Publish.Remote, "gh-pages"))
}

func TestPublishPropagatesDeletions(t *testing.T) {
	cfg := testConfig(t)
	p := NewPublisher(cfg)

	_, err := p.Publish(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(cfg.Build.OutputDir, "posts")))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Build.OutputDir, "index.html"), []byte("<html>v2</html>"), 0o644))

	res, err := p.Publish(context.Background())
	require.NoError(t, err)
	require.True(t, res.Changed)

	repo, err := git.PlainOpen(cfg.Publish.Remote)
	require.NoError(t, err)
	commit, err := repo.CommitObject(hostingTip(t, cfg.Publish.Remote, "gh-pages").Hash())
	require.NoError(t, err)
	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("posts/hello/index.html")
	assert.Error(t, err)

	f, err := tree.File("index.html")
	require.NoError(t, err)
	body, err := f.Contents()
	require.NoError(t, err)
	assert.Equal(t, "<html>v2</html>", body)

	assert.Equal(t, 2, commitCount(t, cfg.Publish.Remote, "gh-pages"))
}

func TestPublishDisabledWithoutRemote(t *testing.T) {
	cfg := testConfig(t)
	cfg.Publish.Remote = ""
	_, err := NewPublisher(cfg).Publish(context.Background())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPublishRefusesEmptyOutput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.OutputDir = t.TempDir()
	_, err := NewPublisher(cfg).Publish(context.Background())
	assert.ErrorIs(t, err, ErrEmptyOutput)
}

func TestPublishUnreadableOutputIsNotEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.OutputDir = filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.WriteFile(cfg.Build.OutputDir, []byte("not a directory"), 0o644))

	_, err := NewPublisher(cfg).Publish(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyOutput)
	assert.Contains(t, err.Error(), "read output dir")
}

func TestPublishRequiresDomainFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Publish.Domain = "blog.example.com"
	_, err := NewPublisher(cfg).Publish(context.Background())
	assert.ErrorIs(t, err, ErrMissingDomainFile)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Build.OutputDir, "CNAME"), []byte("blog.example.com\n"), 0o644))
	_, err = NewPublisher(cfg).Publish(context.Background())
	assert.NoError(t, err)
}

func TestPublishDryRun(t *testing.T) {
	cfg := testConfig(t)
	res, err := NewPublisher(cfg).SetDryRun(true).Publish(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.False(t, res.Pushed)
	assert.Empty(t, res.Commit)

	// Nothing may have reached the remote.
	repo, err := git.PlainOpen(cfg.Publish.Remote)
	require.NoError(t, err)
	_, err = repo.Reference(plumbing.NewBranchReferenceName("gh-pages"), true)
	assert.Error(t, err)
}

func TestPublishAppendsToExistingBranchHistory(t *testing.T) {
	cfg := testConfig(t)
	p := NewPublisher(cfg)

	_, err := p.Publish(context.Background())
	require.NoError(t, err)

	// A fresh work dir simulates publishing from another machine: the
	// hosting branch must be fetched and appended to, not replaced.
	cfg.Publish.WorkDir = filepath.Join(filepath.Dir(cfg.Publish.WorkDir), "hosting2")
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Build.OutputDir, "index.html"), []byte("<html>v2</html>"), 0o644))

	res, err := NewPublisher(cfg).Publish(context.Background())
	require.NoError(t, err)
	require.True(t, res.Changed)
	assert.Equal(t, 2, commitCount(t, cfg.Publish.Remote, "gh-pages"))
}

func TestClassifyRemoteError(t *testing.T) {
	err := classifyRemoteError("push", "https://example.com/repo.git", transport.ErrAuthenticationRequired)
	var ae *AuthError
	assert.ErrorAs(t, err, &ae)
	assert.True(t, isPermanent(err))

	err = classifyRemoteError("fetch", "https://example.com/repo.git", transport.ErrRepositoryNotFound)
	var nfe *NotFoundError
	assert.ErrorAs(t, err, &nfe)
	assert.True(t, isPermanent(err))

	err = classifyRemoteError("push", "https://example.com/repo.git", context.DeadlineExceeded)
	var te *NetworkTimeoutError
	assert.ErrorAs(t, err, &te)
	assert.False(t, isPermanent(err))

	transient := classifyRemoteError("push", "https://example.com/repo.git", errors.New("connection reset by peer"))
	assert.False(t, isPermanent(transient))
}
