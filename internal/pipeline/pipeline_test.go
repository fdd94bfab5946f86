package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/history"
	"github.com/blogsmith/blogsmith/internal/site"
)

const validPost = `---
title: "Hello World"
date: 2025-07-07
categories:
  - Article
---
First post.
`

func writeFile(t *testing.T, name, body string) {
	t.Helper()
	p := filepath.FromSlash(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func testConfig(t *testing.T, extra string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
site:
  title: Test Blog
  base_url: https://blog.example.com
` + extra))
	require.NoError(t, err)
	return cfg
}

func eventTypes(events []history.Event) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type()
	}
	return types
}

func TestRunBuildOnlyEmitsEvents(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "content/posts/2025-07-07-hello.md", validPost)
	cfg := testConfig(t, "")

	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runner := NewRunner(cfg, NewBusWithEventStore(store))
	res, err := runner.Run(context.Background(), RunOptions{Trigger: TriggerManual})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, site.OutcomeSuccess, res.Report.Outcome)
	assert.Nil(t, res.Publish)

	events, err := store.GetByRunID(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		history.TypeRunStarted,
		history.TypeBuildCompleted,
		history.TypeRunCompleted,
	}, eventTypes(events))
}

func TestRunFailedBuildEmitsRunFailed(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "content/posts/2025-07-07-untitled.md", "---\ndate: 2025-07-07\n---\nno title\n")
	cfg := testConfig(t, "")

	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runner := NewRunner(cfg, NewBusWithEventStore(store))
	res, err := runner.Run(context.Background(), RunOptions{Trigger: TriggerWebhook})
	require.Error(t, err)

	events, err := store.GetByRunID(context.Background(), res.RunID)
	require.NoError(t, err)
	types := eventTypes(events)
	assert.Equal(t, history.TypeRunStarted, types[0])
	assert.Equal(t, history.TypeRunFailed, types[len(types)-1])
}

func TestRunWithPublishPushesHostingBranch(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, "content/posts/2025-07-07-hello.md", validPost)

	remoteDir, err := filepath.Abs("remote.git")
	require.NoError(t, err)
	_, err = git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	cfg := testConfig(t, `
publish:
  remote: `+remoteDir+`
  author:
    name: ci
    email: ci@example.com
`)

	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	runner := NewRunner(cfg, NewBusWithEventStore(store))
	res, err := runner.Run(context.Background(), RunOptions{Trigger: TriggerManual, Publish: true})
	require.NoError(t, err)
	require.NotNil(t, res.Publish)
	assert.True(t, res.Publish.Pushed)

	repo, err := git.PlainOpen(remoteDir)
	require.NoError(t, err)
	_, err = repo.Reference(plumbing.NewBranchReferenceName(cfg.Publish.Branch), true)
	assert.NoError(t, err)

	events, err := store.GetByRunID(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		history.TypeRunStarted,
		history.TypeBuildCompleted,
		history.TypePublishCompleted,
		history.TypeRunCompleted,
	}, eventTypes(events))
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.SubscribeAll(func(e history.Event) error {
		got = append(got, e.Type())
		return nil
	})

	started, err := history.NewRunStarted("run-1", TriggerManual)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), started))

	failed, err := history.NewRunFailed("run-1", "build", "boom")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), failed))

	assert.Equal(t, []string{history.TypeRunStarted, history.TypeRunFailed}, got)
}
