package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures metrics about a site generation run.
//
// The report lives in the state directory, never in the published tree,
// so its timestamps cannot break output determinism.
type BuildReport struct {
	SchemaVersion   int                       `json:"schema_version"`
	Start           time.Time                 `json:"start"`
	End             time.Time                 `json:"end"`
	Outcome         BuildOutcome              `json:"outcome"`
	Posts           int                       `json:"posts"`
	Pages           int                       `json:"pages"`
	StaticFiles     int                       `json:"static_files"`
	ContentHash     string                    `json:"content_hash,omitempty"`
	StageDurations  map[string]time.Duration  `json:"stage_durations"`
	StageErrorKinds map[string]StageErrorKind `json:"stage_error_kinds,omitempty"`
	ErrorMessages   []string                  `json:"errors,omitempty"`
	WarningMessages []string                  `json:"warnings,omitempty"`

	errors   []error
	warnings []error
}

const reportSchemaVersion = 1

func newBuildReport() *BuildReport {
	return &BuildReport{
		SchemaVersion:   reportSchemaVersion,
		Start:           time.Now(),
		StageDurations:  map[string]time.Duration{},
		StageErrorKinds: map[string]StageErrorKind{},
	}
}

func (r *BuildReport) recordError(stage string, se *StageError) {
	r.StageErrorKinds[stage] = se.Kind
	r.errors = append(r.errors, se)
	r.ErrorMessages = append(r.ErrorMessages, se.Error())
}

func (r *BuildReport) recordWarning(stage string, se *StageError) {
	r.StageErrorKinds[stage] = se.Kind
	r.warnings = append(r.warnings, se)
	r.WarningMessages = append(r.WarningMessages, se.Error())
}

// Errors returns fatal errors recorded during the run.
func (r *BuildReport) Errors() []error { return r.errors }

// Warnings returns non-fatal issues recorded during the run.
func (r *BuildReport) Warnings() []error { return r.warnings }

// finish stamps the end time and derives the overall outcome.
func (r *BuildReport) finish(err error) {
	r.End = time.Now()
	switch {
	case err == nil && len(r.warnings) == 0:
		r.Outcome = OutcomeSuccess
	case err == nil:
		r.Outcome = OutcomeWarning
	default:
		r.Outcome = OutcomeFailed
		for _, kind := range r.StageErrorKinds {
			if kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
			}
		}
	}
}

// Persist writes the report as JSON into dir (created when missing).
func (r *BuildReport) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	path := filepath.Join(dir, "build-report.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write build report: %w", err)
	}
	return nil
}
