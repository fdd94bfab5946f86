package history

import (
	"bytes"
	"testing"
	"time"
)

func TestStoreAppendAndRetrieve(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	runID := "run-1"
	payload := []byte(`{"trigger": "manual"}`)
	metadata := map[string]string{"host": "ci-1"}

	if err := store.Append(ctx, runID, TypeRunStarted, payload, metadata); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByRunID(ctx, runID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.RunID() != runID {
		t.Errorf("expected run_id %s, got %s", runID, event.RunID())
	}
	if event.Type() != TypeRunStarted {
		t.Errorf("expected event_type %s, got %s", TypeRunStarted, event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["host"] != "ci-1" {
		t.Errorf("expected metadata host=ci-1, got %v", event.Metadata())
	}
}

func TestStoreRecentRuns(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()

	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		for range 2 {
			if err := store.Append(ctx, runID, "Event", []byte("data"), nil); err != nil {
				t.Fatalf("failed to append event: %v", err)
			}
		}
	}

	events, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to get recent runs: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events across 2 runs, got %d", len(events))
	}
	for _, e := range events {
		if e.RunID() == "run-1" {
			t.Errorf("oldest run should be outside the window, got event for %s", e.RunID())
		}
	}

	all, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to get recent runs: %v", err)
	}
	if len(all) != 6 {
		t.Errorf("expected all 6 events, got %d", len(all))
	}
}

func TestStoreMultipleRuns(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()

	_ = store.Append(ctx, "run-1", "Event1", []byte("data1"), nil)
	_ = store.Append(ctx, "run-2", "Event2", []byte("data2"), nil)
	_ = store.Append(ctx, "run-1", "Event3", []byte("data3"), nil)

	events, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events for run-1, got %d", len(events))
	}

	events, err = store.GetByRunID(ctx, "run-2")
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("expected 1 event for run-2, got %d", len(events))
	}
}

func appendTyped(t *testing.T, store Store, e Event, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	if aerr := AppendEvent(t.Context(), store, e); aerr != nil {
		t.Fatalf("failed to append event: %v", aerr)
	}
}

func TestProjectionRebuildSummarizesRuns(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	started, err := NewRunStarted("run-1", "webhook")
	appendTyped(t, store, started, err)
	built, err := NewBuildCompleted("run-1", "success", 12, 3, "abc123", 80*time.Millisecond)
	appendTyped(t, store, built, err)
	published, err := NewPublishCompleted("run-1", "gh-pages", "deadbeef", true, true, 40*time.Millisecond)
	appendTyped(t, store, published, err)
	completed, err := NewRunCompleted("run-1", "success", 130*time.Millisecond)
	appendTyped(t, store, completed, err)

	failedStart, err := NewRunStarted("run-2", "manual")
	appendTyped(t, store, failedStart, err)
	failed, err := NewRunFailed("run-2", "build", "missing title")
	appendTyped(t, store, failed, err)

	p := NewRunHistoryProjection(store, 10)
	if err := p.Rebuild(t.Context()); err != nil {
		t.Fatalf("failed to rebuild projection: %v", err)
	}

	hist := p.History()
	if len(hist) != 2 {
		t.Fatalf("expected 2 completed runs, got %d", len(hist))
	}

	run1, ok := p.GetRun("run-1")
	if !ok {
		t.Fatal("run-1 missing from projection")
	}
	if run1.Status != "success" {
		t.Errorf("expected status success, got %s", run1.Status)
	}
	if run1.Trigger != "webhook" {
		t.Errorf("expected trigger webhook, got %s", run1.Trigger)
	}
	if run1.Posts != 12 || run1.Pages != 3 {
		t.Errorf("expected 12 posts / 3 pages, got %d / %d", run1.Posts, run1.Pages)
	}
	if !run1.Published || run1.Commit != "deadbeef" {
		t.Errorf("expected published commit deadbeef, got %+v", run1)
	}
	if run1.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}

	run2, ok := p.GetRun("run-2")
	if !ok {
		t.Fatal("run-2 missing from projection")
	}
	if run2.Status != "failed" {
		t.Errorf("expected status failed, got %s", run2.Status)
	}
	if run2.ErrorStage != "build" || run2.ErrorMessage != "missing title" {
		t.Errorf("unexpected failure detail: %+v", run2)
	}
}

func TestProjectionApplyTracksActiveRun(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	p := NewRunHistoryProjection(store, 10)

	started, err := NewRunStarted("run-9", "schedule")
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	p.Apply(started)

	active := p.GetActiveRun()
	if active == nil || active.RunID != "run-9" {
		t.Fatalf("expected run-9 active, got %+v", active)
	}

	completed, err := NewRunCompleted("run-9", "success", time.Second)
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	p.Apply(completed)

	if p.GetActiveRun() != nil {
		t.Error("expected no active run after completion")
	}
	last := p.LastCompletedRun()
	if last == nil || last.RunID != "run-9" || last.Status != "success" {
		t.Errorf("unexpected last completed run: %+v", last)
	}
}

func TestProjectionBoundedHistory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	p := NewRunHistoryProjection(store, 2)
	for _, id := range []string{"a", "b", "c"} {
		started, err := NewRunStarted(id, "manual")
		if err != nil {
			t.Fatalf("failed to build event: %v", err)
		}
		p.Apply(started)
		completed, err := NewRunCompleted(id, "success", time.Second)
		if err != nil {
			t.Fatalf("failed to build event: %v", err)
		}
		p.Apply(completed)
	}

	if got := len(p.History()); got != 2 {
		t.Errorf("expected history bounded to 2, got %d", got)
	}
	if _, ok := p.GetRun("a"); ok {
		t.Error("expected pruned run a to be gone")
	}
}
