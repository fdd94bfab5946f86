// Package daemon runs the pipeline continuously: a file watcher rebuilds
// on content edits, a webhook triggers publish runs, and an optional
// schedule republishes periodically. One HTTP server exposes the webhook,
// health, run history, metrics, and a preview of the built site.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/history"
	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/pipeline"
)

const (
	triggerWebhook  = pipeline.TriggerWebhook
	triggerWatcher  = pipeline.TriggerWatcher
	triggerSchedule = pipeline.TriggerSchedule
)

// Daemon ties the watcher, scheduler, HTTP server, and run pipeline
// together. Triggers are coalesced: while a run is in flight at most one
// more is queued.
type Daemon struct {
	cfg        *config.Config
	log        *slog.Logger
	runner     *pipeline.Runner
	store      *history.SQLiteStore
	projection *history.RunHistoryProjection
	notifier   *pipeline.NATSNotifier
	registry   *prometheus.Registry
	recorder   metrics.Recorder

	triggerCh chan string
	startTime time.Time
}

// New wires up a daemon from configuration.
func New(cfg *config.Config, log *slog.Logger) (*Daemon, error) {
	if log == nil {
		log = slog.Default()
	}

	d := &Daemon{
		cfg:       cfg,
		log:       log,
		recorder:  metrics.NoopRecorder{},
		triggerCh: make(chan string, 1),
		startTime: time.Now(),
	}

	if cfg.Daemon.Metrics {
		d.registry = prometheus.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if dir := filepath.Dir(cfg.Daemon.HistoryDB); dir != "." && cfg.Daemon.HistoryDB != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}
	store, err := history.NewSQLiteStore(cfg.Daemon.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	d.store = store

	d.projection = history.NewRunHistoryProjection(store, 100)
	if err := d.projection.Rebuild(context.Background()); err != nil {
		store.Close()
		return nil, fmt.Errorf("rebuild run history projection: %w", err)
	}

	bus := pipeline.NewBusWithEventStore(store)
	bus.SubscribeAll(func(e history.Event) error {
		d.projection.Apply(e)
		return nil
	})

	if cfg.Daemon.NATS.Enabled() {
		notifier, nerr := pipeline.NewNATSNotifier(cfg.Daemon.NATS)
		if nerr != nil {
			store.Close()
			return nil, fmt.Errorf("init nats notifier: %w", nerr)
		}
		notifier.Attach(bus)
		d.notifier = notifier
	}

	d.runner = pipeline.NewRunner(cfg, bus).SetRecorder(d.recorder).SetLogger(log)
	return d, nil
}

// Run blocks until the context is canceled, executing pipeline runs as
// triggers arrive. An initial run fires on startup so the preview always
// serves current content.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.close()

	watcher, err := NewContentWatcher(
		[]string{d.cfg.Content.Dir, d.cfg.Content.StaticDir, d.cfg.Content.LayoutsDir},
		d.cfg.Daemon.DebounceDuration(),
		func() { d.trigger(triggerWatcher) },
	)
	if err != nil {
		return err
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	scheduler, err := d.startScheduler()
	if err != nil {
		return err
	}
	if scheduler != nil {
		defer func() {
			if serr := scheduler.Shutdown(); serr != nil {
				d.log.Error("scheduler shutdown failed", logfields.Error(serr))
			}
		}()
	}

	ln, err := net.Listen("tcp", d.cfg.Daemon.Addr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", d.cfg.Daemon.Addr, err)
	}
	server := &http.Server{
		Handler:      d.buildMux(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		if herr := server.Serve(ln); herr != nil && !errors.Is(herr, http.ErrServerClosed) {
			serveErr <- herr
		}
	}()
	d.log.Info("daemon listening",
		slog.String("addr", d.cfg.Daemon.Addr),
		logfields.Path(d.cfg.Daemon.WebhookPath))

	// Serve current content from the first moment.
	d.runOnce(ctx, pipeline.TriggerManual)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if serr := server.Shutdown(shutdownCtx); serr != nil {
				d.log.Error("http shutdown failed", logfields.Error(serr))
			}
			return nil
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		case trig := <-d.triggerCh:
			d.runOnce(ctx, trig)
		}
	}
}

// startScheduler registers the periodic republish job when configured.
func (d *Daemon) startScheduler() (gocron.Scheduler, error) {
	interval := d.cfg.Daemon.ScheduleDuration()
	if interval <= 0 {
		return nil, nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { d.trigger(triggerSchedule) }),
		gocron.WithName("periodic-republish"),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule periodic republish: %w", err)
	}
	s.Start()
	d.log.Info("periodic republish scheduled", slog.Duration("interval", interval))
	return s, nil
}

// trigger queues a run. Returns false when one is already pending, in
// which case the sources coalesce into the pending run.
func (d *Daemon) trigger(source string) bool {
	select {
	case d.triggerCh <- source:
		return true
	default:
		return false
	}
}

// runOnce executes one pipeline run for the given trigger. Watcher runs
// publish only when configured to; webhook and schedule runs always do.
func (d *Daemon) runOnce(ctx context.Context, trig string) {
	doPublish := trig != triggerWatcher || d.cfg.Daemon.PublishOnChange
	_, err := d.runner.Run(ctx, pipeline.RunOptions{
		Trigger: trig,
		Publish: doPublish,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		d.log.Error("run failed", logfields.Trigger(trig), logfields.Error(err))
	}
}

func (d *Daemon) close() {
	if d.notifier != nil {
		if err := d.notifier.Close(); err != nil {
			d.log.Error("closing nats notifier failed", logfields.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.log.Error("closing run history failed", logfields.Error(err))
		}
	}
}
