package pipeline

import (
	"context"
	"sync"

	"github.com/blogsmith/blogsmith/internal/history"
)

// EventStore defines the interface for persisting run events.
// This is a subset of history.Store to avoid a hard dependency.
type EventStore interface {
	Append(ctx context.Context, runID, eventType string, payload []byte, metadata map[string]string) error
}

// Handler processes an event; return error to signal failure.
type Handler func(history.Event) error

// Bus is a simple synchronous pub/sub event bus for run events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	eventStore  EventStore // optional store for persistence
}

func NewBus() *Bus { return &Bus{subscribers: map[string][]Handler{}} }

// NewBusWithEventStore creates a bus that persists events to the store
// before delivering them to handlers.
func NewBusWithEventStore(store EventStore) *Bus {
	return &Bus{
		subscribers: map[string][]Handler{},
		eventStore:  store,
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	b.subscribers[eventType] = append(b.subscribers[eventType], h)
	b.mu.Unlock()
}

// SubscribeAll registers a handler for every run event type.
func (b *Bus) SubscribeAll(h Handler) {
	for _, t := range []string{
		history.TypeRunStarted,
		history.TypeBuildCompleted,
		history.TypePublishCompleted,
		history.TypeRunCompleted,
		history.TypeRunFailed,
	} {
		b.Subscribe(t, h)
	}
}

// Publish delivers an event to all handlers synchronously. If an event
// store is configured, the event is persisted before delivery.
func (b *Bus) Publish(ctx context.Context, e history.Event) error {
	if b.eventStore != nil {
		if err := b.eventStore.Append(ctx, e.RunID(), e.Type(), e.Payload(), e.Metadata()); err != nil {
			return err
		}
	}

	b.mu.RLock()
	hs := append([]Handler(nil), b.subscribers[e.Type()]...)
	b.mu.RUnlock()
	for _, h := range hs {
		if err := h(e); err != nil {
			return err
		}
	}
	return nil
}
