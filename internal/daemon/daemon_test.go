package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blogsmith/blogsmith/internal/config"
)

const samplePost = `---
title: "Hello World"
date: 2025-07-07
---
First post.
`

func writeFile(t *testing.T, name, body string) {
	t.Helper()
	p := filepath.FromSlash(name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

func newTestDaemon(t *testing.T, extra string) *Daemon {
	t.Helper()
	t.Chdir(t.TempDir())
	writeFile(t, "content/posts/2025-07-07-hello.md", samplePost)

	cfg, err := config.Parse([]byte(`
site:
  title: Test Blog
  base_url: https://blog.example.com
` + extra))
	require.NoError(t, err)

	d, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(d.close)
	return d
}

func TestWebhookQueuesRun(t *testing.T) {
	d := newTestDaemon(t, "")
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Post(srv.URL+d.cfg.Daemon.WebhookPath, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "queued", body["status"])

	select {
	case trig := <-d.triggerCh:
		assert.Equal(t, triggerWebhook, trig)
	default:
		t.Fatal("expected a queued trigger")
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	d := newTestDaemon(t, `
daemon:
  webhook_secret: s3cret
`)
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Post(srv.URL+d.cfg.Daemon.WebhookPath, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+d.cfg.Daemon.WebhookPath, nil)
	require.NoError(t, err)
	req.Header.Set(webhookSecretHeader, "s3cret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestWebhookRequiresPost(t *testing.T) {
	d := newTestDaemon(t, "")
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + d.cfg.Daemon.WebhookPath)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestHealthEndpoint(t *testing.T) {
	d := newTestDaemon(t, "")
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestHistoryEndpointEmpty(t *testing.T) {
	d := newTestDaemon(t, "")
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpointWhenEnabled(t *testing.T) {
	d := newTestDaemon(t, `
daemon:
  metrics: true
`)
	srv := httptest.NewServer(d.buildMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTriggerCoalesces(t *testing.T) {
	d := newTestDaemon(t, "")

	assert.True(t, d.trigger(triggerWatcher))
	assert.False(t, d.trigger(triggerWebhook), "second trigger should coalesce")

	<-d.triggerCh
	assert.True(t, d.trigger(triggerSchedule))
}

func TestContentWatcherDebounce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "posts"), 0o755))

	fired := make(chan struct{}, 4)
	cw, err := NewContentWatcher([]string{dir}, 50*time.Millisecond, func() {
		fired <- struct{}{}
	})
	require.NoError(t, err)
	defer cw.Stop()
	cw.Start(t.Context())

	// A burst of writes must collapse into a single notification.
	for i := range 3 {
		name := filepath.Join(dir, "posts", "a.md")
		require.NoError(t, os.WriteFile(name, []byte{byte('a' + i)}, 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected change notification")
	}

	select {
	case <-fired:
		t.Fatal("expected burst to coalesce into one notification")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestContentWatcherIgnoresHiddenFiles(t *testing.T) {
	dir := t.TempDir()

	fired := make(chan struct{}, 1)
	cw, err := NewContentWatcher([]string{dir}, 20*time.Millisecond, func() {
		fired <- struct{}{}
	})
	require.NoError(t, err)
	defer cw.Stop()
	cw.Start(t.Context())

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "draft.swp"), []byte("x"), 0o644))

	select {
	case <-fired:
		t.Fatal("hidden and swap files must not trigger")
	case <-time.After(200 * time.Millisecond):
	}
}
