package events

import (
	"github.com/subhroacharjee/lanpeer/internal/logger"
)

// Handler wraps a callback registered on a Bus. The two variants differ
// only in scheduling: a sync handler runs inline on the emitting
// goroutine, an async one is scheduled on its own goroutine so the
// emitter never blocks on it.
//
// The returned pointer doubles as the removal handle for Bus.Off.
type Handler[T any] struct {
	fn    func(T)
	async bool
}

func Sync[T any](fn func(T)) *Handler[T] {
	return &Handler[T]{fn: fn}
}

func Async[T any](fn func(T)) *Handler[T] {
	return &Handler[T]{fn: fn, async: true}
}

func (h *Handler[T]) invoke(event string, arg T) {
	if h.async {
		go h.call(event, arg)
		return
	}
	h.call(event, arg)
}

// call runs the callback and keeps a panic inside it from taking down
// the dispatch loop.
func (h *Handler[T]) call(event string, arg T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler for %q panicked: %v", event, r)
		}
	}()
	h.fn(arg)
}
