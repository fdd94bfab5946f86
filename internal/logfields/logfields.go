package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyPath       = "path"
	KeyFile       = "file"
	KeySlug       = "slug"
	KeyBranch     = "branch"
	KeyRemote     = "remote"
	KeyCommit     = "commit"
	KeyPosts      = "posts"
	KeyPages      = "pages"
	KeyTrigger    = "trigger"
	KeyDurationMS = "duration_ms"
	KeyOutcome    = "outcome"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr          { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr        { return slog.String(KeyStage, name) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func File(f string) slog.Attr            { return slog.String(KeyFile, f) }
func Slug(s string) slog.Attr            { return slog.String(KeySlug, s) }
func Branch(b string) slog.Attr          { return slog.String(KeyBranch, b) }
func Remote(r string) slog.Attr          { return slog.String(KeyRemote, r) }
func Commit(c string) slog.Attr          { return slog.String(KeyCommit, c) }
func Posts(n int) slog.Attr              { return slog.Int(KeyPosts, n) }
func Pages(n int) slog.Attr              { return slog.Int(KeyPages, n) }
func Trigger(t string) slog.Attr         { return slog.String(KeyTrigger, t) }
func DurationMS(ms float64) slog.Attr    { return slog.Float64(KeyDurationMS, ms) }
func Outcome(o string) slog.Attr         { return slog.String(KeyOutcome, o) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
