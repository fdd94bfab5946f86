package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/blogsmith/blogsmith/internal/config"
	"github.com/blogsmith/blogsmith/internal/history"
)

// NATSNotifier forwards run events to a JetStream subject so external
// consumers (chat hooks, dashboards) can observe publishes.
type NATSNotifier struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	stream  string
}

// runEventEnvelope is the wire form of a forwarded run event.
type runEventEnvelope struct {
	RunID     string          `json:"run_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewNATSNotifier connects to NATS and ensures the stream exists.
func NewNATSNotifier(cfg config.NATSConfig) (*NATSNotifier, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("nats notifier is disabled")
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	n := &NATSNotifier{
		conn:    conn,
		js:      js,
		subject: cfg.Subject,
		stream:  cfg.Stream,
	}
	if err := n.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	slog.Info("nats notifier initialized",
		"url", cfg.URL, "subject", cfg.Subject, "stream", cfg.Stream)
	return n, nil
}

func (n *NATSNotifier) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := n.js.Stream(ctx, n.stream); err == nil {
		return nil
	}

	_, err := n.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     n.stream,
		Subjects: []string{n.subject},
		MaxBytes: 64 * 1024 * 1024,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", n.stream, err)
	}
	return nil
}

// Handler returns a bus handler that forwards events to JetStream.
func (n *NATSNotifier) Handler() Handler {
	return func(e history.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		data, err := json.Marshal(runEventEnvelope{
			RunID:     e.RunID(),
			Type:      e.Type(),
			Timestamp: e.Timestamp(),
			Payload:   e.Payload(),
		})
		if err != nil {
			return fmt.Errorf("marshal run event: %w", err)
		}
		if _, err := n.js.Publish(ctx, n.subject, data); err != nil {
			return fmt.Errorf("publish run event: %w", err)
		}
		return nil
	}
}

// Attach subscribes the notifier to every run event on the bus.
func (n *NATSNotifier) Attach(bus *Bus) { bus.SubscribeAll(n.Handler()) }

// Close closes the NATS connection.
func (n *NATSNotifier) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
