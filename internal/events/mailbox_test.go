package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailboxRunsPostedThunks(t *testing.T) {
	m := NewMailbox(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	done := make(chan struct{})
	require.NoError(t, m.Post(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("posted thunk never ran")
	}
}

func TestMailboxFull(t *testing.T) {
	m := NewMailbox(1)

	// nothing draining, second post must not block
	require.NoError(t, m.Post(func() {}))
	assert.ErrorIs(t, m.Post(func() {}), ErrMailboxFull)
}

func TestMailboxContainsPanics(t *testing.T) {
	m := NewMailbox(2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	done := make(chan struct{})
	require.NoError(t, m.Post(func() { panic("boom") }))
	require.NoError(t, m.Post(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("mailbox stopped after a panicking thunk")
	}
}
