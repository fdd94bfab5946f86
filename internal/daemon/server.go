package daemon

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/blogsmith/blogsmith/internal/logfields"
	"github.com/blogsmith/blogsmith/internal/metrics"
	"github.com/blogsmith/blogsmith/internal/version"
)

const webhookSecretHeader = "X-Webhook-Secret"

// buildMux assembles the daemon's HTTP surface: the webhook trigger, the
// health and history endpoints, optional Prometheus metrics, and a preview
// file server over the built site.
func (d *Daemon) buildMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Registered for all methods: a method-specific pattern would let
	// non-POST requests fall through to the preview file server.
	mux.HandleFunc(d.cfg.Daemon.WebhookPath, d.handleWebhook)
	mux.HandleFunc("GET /healthz", d.handleHealth)
	mux.HandleFunc("GET /api/history", d.handleHistory)

	if d.cfg.Daemon.Metrics && d.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(d.registry))
	}

	// Preview of the built site. Served last so API routes win.
	mux.Handle("/", http.FileServer(http.Dir(d.cfg.Build.OutputDir)))

	return mux
}

// handleWebhook queues a publish run. When a secret is configured the
// request must carry it in the X-Webhook-Secret header.
func (d *Daemon) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if secret := d.cfg.Daemon.WebhookSecret; secret != "" {
		got := r.Header.Get(webhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			slog.Warn("webhook rejected: bad secret", slog.String("remote", r.RemoteAddr))
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
			return
		}
	}

	queued := d.trigger(triggerWebhook)
	slog.Info("webhook received", logfields.Trigger(triggerWebhook), slog.Bool("queued", queued))
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "queued",
		"queued": queued,
	})
}

type healthResponse struct {
	Status    string  `json:"status"`
	Version   string  `json:"version"`
	UptimeSec float64 `json:"uptime_seconds"`
	LastRun   any     `json:"last_run,omitempty"`
}

func (d *Daemon) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Version:   version.Version,
		UptimeSec: time.Since(d.startTime).Seconds(),
	}
	if d.projection != nil {
		if last := d.projection.LastCompletedRun(); last != nil {
			resp.LastRun = last
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (d *Daemon) handleHistory(w http.ResponseWriter, _ *http.Request) {
	if d.projection == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, d.projection.History())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", logfields.Error(err))
	}
}
