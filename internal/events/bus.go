package events

import (
	"sync"
)

// Bus maps event names to ordered handler lists. Registration order is
// preserved and a handler registered twice fires once per registration.
type Bus[T any] struct {
	mu       sync.RWMutex
	handlers map[string][]*Handler[T]
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{
		handlers: make(map[string][]*Handler[T]),
	}
}

// On appends h to the handler list for event.
func (b *Bus[T]) On(event string, h *Handler[T]) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Off removes the first registration of h for event. A nil h clears
// every handler for the event.
func (b *Bus[T]) Off(event string, h *Handler[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if h == nil {
		delete(b.handlers, event)
		return
	}
	hs := b.handlers[event]
	for idx, registered := range hs {
		if registered == h {
			b.handlers[event] = append(hs[:idx:idx], hs[idx+1:]...)
			return
		}
	}
}

// Emit invokes every handler registered for event, in registration
// order. Sync handlers run inline; async ones are scheduled and do not
// block the caller.
func (b *Bus[T]) Emit(event string, arg T) {
	b.mu.RLock()
	hs := b.handlers[event]
	b.mu.RUnlock()

	for _, h := range hs {
		h.invoke(event, arg)
	}
}

// HandlerCount reports how many registrations exist for event.
func (b *Bus[T]) HandlerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
