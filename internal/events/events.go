// Package events provides domain.EventSink implementations: a drainable
// collector for callers that inspect emitted events after each transition, a
// fan-out sink, and the envelope format used when relaying events off-process.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"kittycore/pkg/domain"
)

// Collector buffers emitted events until drained.
type Collector struct {
	mu     sync.Mutex
	events []domain.Event
}

var _ domain.EventSink = (*Collector)(nil)

// NewCollector constructs an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Emit appends the event to the buffer.
func (c *Collector) Emit(_ context.Context, event domain.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// Events returns a copy of the buffered events without clearing them.
func (c *Collector) Events() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Event(nil), c.events...)
}

// Drain returns the buffered events and empties the buffer.
func (c *Collector) Drain() []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.events
	c.events = nil
	return out
}

// Fanout delivers each event to every sink in order.
type Fanout []domain.EventSink

var _ domain.EventSink = Fanout(nil)

// Emit forwards the event to all non-nil sinks.
func (f Fanout) Emit(ctx context.Context, event domain.Event) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(ctx, event)
		}
	}
}

// SinkFunc adapts a function to domain.EventSink.
type SinkFunc func(ctx context.Context, event domain.Event)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, event domain.Event) { f(ctx, event) }

// Envelope wraps an event with delivery metadata for external consumers.
type Envelope struct {
	ID        string       `json:"id"`
	EmittedAt time.Time    `json:"emitted_at"`
	Event     domain.Event `json:"event"`
}

// NewEnvelope stamps the event with a random identifier and the given time.
func NewEnvelope(event domain.Event, now time.Time) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		EmittedAt: now.UTC(),
		Event:     event,
	}
}
