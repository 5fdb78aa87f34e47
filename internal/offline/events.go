package offline

import (
	"sync"
	"time"

	"github.com/Kuebic/songbook-offline/internal/domain"
)

// EventHandler receives storage and sync events.
type EventHandler func(domain.Event)

// Bus is a typed in-process publish/subscribe hub keyed by event type.
// Delivery is synchronous and best-effort: no persistence, no replay.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[domain.EventType]map[int]EventHandler
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[domain.EventType]map[int]EventHandler),
	}
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe func.
func (b *Bus) Subscribe(t domain.EventType, h EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[t] == nil {
		b.subs[t] = make(map[int]EventHandler)
	}
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Publish delivers the event to current subscribers of its type.
func (b *Bus) Publish(e domain.Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subs[e.Type]))
	for _, h := range b.subs[e.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	// Handlers run outside the lock so a handler may subscribe/unsubscribe.
	for _, h := range handlers {
		h(e)
	}
}
