package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusOrderAndDuplicates(t *testing.T) {
	bus := NewBus[int]()

	var got []string
	first := Sync(func(int) { got = append(got, "first") })
	second := Sync(func(int) { got = append(got, "second") })

	bus.On("tick", first)
	bus.On("tick", second)
	bus.On("tick", first) // registered twice, fires twice

	bus.Emit("tick", 1)

	assert.Equal(t, []string{"first", "second", "first"}, got)
}

func TestBusOffRemovesSingleRegistration(t *testing.T) {
	bus := NewBus[int]()

	count := 0
	h := Sync(func(int) { count++ })
	bus.On("tick", h)
	bus.On("tick", h)

	bus.Off("tick", h)
	bus.Emit("tick", 1)
	assert.Equal(t, 1, count)

	bus.Off("tick", h)
	bus.Emit("tick", 1)
	assert.Equal(t, 1, count)
}

func TestBusOffNilClearsEvent(t *testing.T) {
	bus := NewBus[int]()

	count := 0
	bus.On("tick", Sync(func(int) { count++ }))
	bus.On("tick", Sync(func(int) { count++ }))
	require.Equal(t, 2, bus.HandlerCount("tick"))

	bus.Off("tick", nil)
	bus.Emit("tick", 1)

	assert.Zero(t, count)
	assert.Zero(t, bus.HandlerCount("tick"))
}

func TestBusAsyncDoesNotBlockEmitter(t *testing.T) {
	bus := NewBus[int]()

	release := make(chan struct{})
	done := make(chan int, 1)
	bus.On("tick", Async(func(v int) {
		<-release
		done <- v
	}))

	start := time.Now()
	bus.Emit("tick", 42)
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestBusHandlerPanicIsContained(t *testing.T) {
	bus := NewBus[int]()

	ran := false
	bus.On("tick", Sync(func(int) { panic("boom") }))
	bus.On("tick", Sync(func(int) { ran = true }))

	assert.NotPanics(t, func() { bus.Emit("tick", 1) })
	assert.True(t, ran, "handler after the panicking one must still fire")
}
