package events

import (
	"context"
	"errors"

	"github.com/subhroacharjee/lanpeer/internal/logger"
)

var ErrMailboxFull = errors.New("mailbox full")

// Mailbox is a bounded handoff for callers running outside the node's
// goroutines (a GPIO interrupt callback, for example). Such callers must
// never mutate the registry or handler lists directly; they Post a thunk
// and the owning goroutine runs it.
type Mailbox struct {
	queue chan func()
}

func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = 64
	}
	return &Mailbox{
		queue: make(chan func(), size),
	}
}

// Post enqueues fn without blocking. Returns ErrMailboxFull when the
// queue is at capacity, so interrupt-context callers can drop rather
// than stall.
func (m *Mailbox) Post(fn func()) error {
	if fn == nil {
		return nil
	}
	select {
	case m.queue <- fn:
		return nil
	default:
		return ErrMailboxFull
	}
}

// Run drains the mailbox until ctx is cancelled.
func (m *Mailbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-m.queue:
			runThunk(fn)
		}
	}
}

func runThunk(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled callback panicked: %v", r)
		}
	}()
	fn()
}
