package history

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names as stored in the events table.
const (
	TypeRunStarted       = "RunStarted"
	TypeBuildCompleted   = "BuildCompleted"
	TypePublishCompleted = "PublishCompleted"
	TypeRunCompleted     = "RunCompleted"
	TypeRunFailed        = "RunFailed"
)

// RunStarted is emitted when a pipeline run begins.
type RunStarted struct {
	BaseEvent
	Trigger string `json:"trigger"` // manual|webhook|watcher|schedule
}

// NewRunStarted creates a RunStarted event.
func NewRunStarted(runID, trigger string) (*RunStarted, error) {
	payload, err := json.Marshal(map[string]any{"trigger": trigger})
	if err != nil {
		return nil, fmt.Errorf("marshal RunStarted payload for run %s: %w", runID, err)
	}
	return &RunStarted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunStarted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Trigger: trigger,
	}, nil
}

// BuildCompleted is emitted when the build stage finishes, regardless of outcome.
type BuildCompleted struct {
	BaseEvent
	Outcome     string        `json:"outcome"` // success|warning|failed|canceled
	Posts       int           `json:"posts"`
	Pages       int           `json:"pages"`
	ContentHash string        `json:"content_hash"`
	Duration    time.Duration `json:"duration_ms"`
}

// NewBuildCompleted creates a BuildCompleted event.
func NewBuildCompleted(runID, outcome string, posts, pages int, contentHash string, duration time.Duration) (*BuildCompleted, error) {
	payload, err := json.Marshal(map[string]any{
		"outcome":      outcome,
		"posts":        posts,
		"pages":        pages,
		"content_hash": contentHash,
		"duration_ms":  duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal BuildCompleted payload for run %s: %w", runID, err)
	}
	return &BuildCompleted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeBuildCompleted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Outcome:     outcome,
		Posts:       posts,
		Pages:       pages,
		ContentHash: contentHash,
		Duration:    duration,
	}, nil
}

// PublishCompleted is emitted when the publish stage finishes successfully,
// including the unchanged no-op case.
type PublishCompleted struct {
	BaseEvent
	Branch   string        `json:"branch"`
	Commit   string        `json:"commit,omitempty"`
	Changed  bool          `json:"changed"`
	Pushed   bool          `json:"pushed"`
	Duration time.Duration `json:"duration_ms"`
}

// NewPublishCompleted creates a PublishCompleted event.
func NewPublishCompleted(runID, branch, commit string, changed, pushed bool, duration time.Duration) (*PublishCompleted, error) {
	payload, err := json.Marshal(map[string]any{
		"branch":      branch,
		"commit":      commit,
		"changed":     changed,
		"pushed":      pushed,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal PublishCompleted payload for run %s: %w", runID, err)
	}
	return &PublishCompleted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypePublishCompleted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Branch:   branch,
		Commit:   commit,
		Changed:  changed,
		Pushed:   pushed,
		Duration: duration,
	}, nil
}

// RunCompleted closes a run with its overall outcome.
type RunCompleted struct {
	BaseEvent
	Outcome  string        `json:"outcome"`
	Duration time.Duration `json:"duration_ms"`
}

// NewRunCompleted creates a RunCompleted event.
func NewRunCompleted(runID, outcome string, duration time.Duration) (*RunCompleted, error) {
	payload, err := json.Marshal(map[string]any{
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal RunCompleted payload for run %s: %w", runID, err)
	}
	return &RunCompleted{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunCompleted,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Outcome:  outcome,
		Duration: duration,
	}, nil
}

// RunFailed is emitted when a run aborts.
type RunFailed struct {
	BaseEvent
	Stage string `json:"stage"` // build|publish
	Error string `json:"error"`
}

// NewRunFailed creates a RunFailed event.
func NewRunFailed(runID, stage, errorMsg string) (*RunFailed, error) {
	payload, err := json.Marshal(map[string]any{
		"stage": stage,
		"error": errorMsg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal RunFailed payload for run %s: %w", runID, err)
	}
	return &RunFailed{
		BaseEvent: BaseEvent{
			EventRunID:     runID,
			EventType:      TypeRunFailed,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Stage: stage,
		Error: errorMsg,
	}, nil
}
