package linkcheck

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSite(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestCheck_CleanSite(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html":            `<a href="/about/">about</a> <a href="/feed.xml">feed</a>`,
		"about/index.html":      `<a href="/">home</a> <img src="/assets/pic.png">`,
		"feed.xml":              `<rss/>`,
		"assets/pic.png":        "not really a png",
	})

	issues, err := Check(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheck_BrokenLink(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html": `<a href="/missing/">gone</a>`,
	})

	issues, err := Check(root)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, "/missing/", issues[0].Link)
	require.Equal(t, "index.html", issues[0].Page)
}

func TestCheck_IgnoresExternalAndFragments(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html": `<a href="https://example.com/x">ext</a>
<a href="//cdn.example.com/lib.js">proto-relative</a>
<a href="mailto:a@b.c">mail</a>
<a href="#section">frag</a>
<a href="relative/page.html">relative</a>`,
	})

	issues, err := Check(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}

func TestCheck_StripsQueryAndFragment(t *testing.T) {
	root := writeSite(t, map[string]string{
		"index.html":       `<a href="/posts/?utm=1#top">q</a>`,
		"posts/index.html": `ok`,
	})

	issues, err := Check(root)
	require.NoError(t, err)
	require.Empty(t, issues)
}
