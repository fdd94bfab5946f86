// Package pipeline orchestrates full runs: build the site, then publish
// it to the hosting branch. Every run gets a unique ID and emits typed
// events over the bus so history, metrics, and notifiers stay decoupled.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/history"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/publish"
	"github.com/blogsmith/blogsmith/internal/site"
)

// Trigger labels for run provenance.
const (
	TriggerManual   = "manual"
	TriggerWebhook  = "webhook"
	TriggerWatcher  = "watcher"
	TriggerSchedule = "schedule"
)

// RunOptions controls a single pipeline run.
type RunOptions struct {
	Trigger string // manual|webhook|watcher|schedule
	Publish bool   // run the publish stage after a successful build
	DryRun  bool   // detect publish changes without committing or pushing
}

// RunResult reports what a run produced.
type RunResult struct {
	RunID   string
	Report  *site.BuildReport
	Publish *publish.Result // nil when the publish stage did not run
}

// Runner executes pipeline runs one at a time.
type Runner struct {
	cfg      *config.Config
	log      *slog.Logger
	recorder metrics.Recorder
	bus      *Bus
	newRunID func() string

	mu sync.Mutex // serializes runs
}

// NewRunner builds a runner. The bus may be nil, in which case events are
// discarded.
func NewRunner(cfg *config.Config, bus *Bus) *Runner {
	if bus == nil {
		bus = NewBus()
	}
	return &Runner{
		cfg:      cfg,
		log:      slog.Default(),
		recorder: metrics.NoopRecorder{},
		bus:      bus,
		newRunID: uuid.NewString,
	}
}

// SetRecorder injects a metrics recorder.
func (r *Runner) SetRecorder(rec metrics.Recorder) *Runner {
	if rec != nil {
		r.recorder = rec
	}
	return r
}

// SetLogger injects a logger.
func (r *Runner) SetLogger(l *slog.Logger) *Runner {
	if l != nil {
		r.log = l
	}
	return r
}

// Bus returns the event bus runs publish on.
func (r *Runner) Bus() *Bus { return r.bus }

// Run executes one pipeline run. Concurrent calls queue behind each other
// so two runs never race on the output directory or hosting checkout.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if opts.Trigger == "" {
		opts.Trigger = TriggerManual
	}

	runID := r.newRunID()
	start := time.Now()
	log := r.log.With(logfields.RunID(runID), logfields.Trigger(opts.Trigger))
	res := &RunResult{RunID: runID}

	r.recorder.IncTrigger(opts.Trigger)
	r.emit(ctx, log, func() (history.Event, error) {
		return history.NewRunStarted(runID, opts.Trigger)
	})
	log.Info("run started")

	report, err := site.NewGenerator(r.cfg).SetRecorder(r.recorder).Build(ctx)
	res.Report = report
	if report != nil {
		buildDur := report.End.Sub(report.Start)
		r.emit(ctx, log, func() (history.Event, error) {
			return history.NewBuildCompleted(runID, string(report.Outcome),
				report.Posts, report.Pages, report.ContentHash, buildDur)
		})
	}
	if err != nil {
		r.emit(ctx, log, func() (history.Event, error) {
			return history.NewRunFailed(runID, "build", err.Error())
		})
		log.Error("run failed", logfields.Stage("build"), logfields.Error(err))
		return res, err
	}
	log.Info("build completed",
		logfields.Outcome(string(report.Outcome)),
		logfields.Posts(report.Posts),
		logfields.Pages(report.Pages))

	if opts.Publish && r.cfg.Publish.Remote != "" {
		pubStart := time.Now()
		pres, perr := publish.NewPublisher(r.cfg).
			SetRecorder(r.recorder).
			SetLogger(log).
			SetDryRun(opts.DryRun).
			Publish(ctx)
		res.Publish = pres
		if perr != nil {
			r.emit(ctx, log, func() (history.Event, error) {
				return history.NewRunFailed(runID, "publish", perr.Error())
			})
			log.Error("run failed", logfields.Stage("publish"), logfields.Error(perr))
			return res, perr
		}
		r.emit(ctx, log, func() (history.Event, error) {
			return history.NewPublishCompleted(runID, pres.Branch, pres.Commit,
				pres.Changed, pres.Pushed, time.Since(pubStart))
		})
	}

	r.emit(ctx, log, func() (history.Event, error) {
		return history.NewRunCompleted(runID, string(report.Outcome), time.Since(start))
	})
	log.Info("run completed",
		logfields.Outcome(string(report.Outcome)),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	return res, nil
}

// emit publishes a typed event on the bus. Event and handler failures are
// logged, never allowed to fail the run itself.
func (r *Runner) emit(ctx context.Context, log *slog.Logger, build func() (history.Event, error)) {
	e, err := build()
	if err != nil {
		log.Warn("failed to build run event", logfields.Error(err))
		return
	}
	if err := r.bus.Publish(ctx, e); err != nil {
		log.Warn("failed to deliver run event",
			slog.String("event", e.Type()), logfields.Error(err))
	}
}
