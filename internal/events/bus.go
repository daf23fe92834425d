// bus.go implements the synchronous in-process event bus. Publish runs every
// handler registered for the event's name, in registration order, passing along
// the caller's sqlx executor so handlers can write inside the caller's
// transaction. The first handler error aborts the remaining handlers and is
// returned to the publisher.
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Handler processes one event. ext is the publisher's executor: a *sqlx.Tx when
// the publisher is mid-transaction, a *sqlx.DB otherwise.
type Handler func(ctx context.Context, ext sqlx.ExtContext, ev Event) error

// Bus routes events to handlers by event name
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers a handler for the named event. Registration is expected
// at startup; Subscribe is safe for concurrent use regardless.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish delivers the event to all handlers registered for its name. Handlers
// run synchronously in the caller's goroutine; an event with no subscribers is
// a no-op.
func (b *Bus) Publish(ctx context.Context, ext sqlx.ExtContext, ev Event) error {
	b.mu.RLock()
	handlers := b.handlers[ev.Name()]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, ext, ev); err != nil {
			return fmt.Errorf("handler for %s failed: %w", ev.Name(), err)
		}
	}

	return nil
}
