package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "r1", RunID("r1")},
		{"Stage", KeyStage, "render_posts", Stage("render_posts")},
		{"Path", KeyPath, "/tmp/site", Path("/tmp/site")},
		{"File", KeyFile, "2025-07-07-post.md", File("2025-07-07-post.md")},
		{"Slug", KeySlug, "hello-world", Slug("hello-world")},
		{"Branch", KeyBranch, "gh-pages", Branch("gh-pages")},
		{"Remote", KeyRemote, "origin", Remote("origin")},
		{"Commit", KeyCommit, "abc1234", Commit("abc1234")},
		{"Trigger", KeyTrigger, "webhook", Trigger("webhook")},
		{"Outcome", KeyOutcome, "success", Outcome("success")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestErrorAttr(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("nil error should yield empty value, got %q", got)
	}
}
