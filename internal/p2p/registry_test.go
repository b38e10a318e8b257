package p2p

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeer(id, addr string) *Peer {
	return newPeer(id, addr, nil, nil, LineEncoder{})
}

func TestRegistryAcceptancePredicate(t *testing.T) {
	r := newRegistry("local")

	// not seeking yet
	assert.False(t, r.isAccepting())
	_, err := r.insert(testPeer("a", "10.0.0.1"))
	assert.ErrorIs(t, err, errNotAccepting)

	require.False(t, r.beginSeek(2))
	assert.True(t, r.isAccepting())
}

func TestRegistryUniqueness(t *testing.T) {
	r := newRegistry("local")
	require.False(t, r.beginSeek(3))

	_, err := r.insert(testPeer("a", "10.0.0.1"))
	require.NoError(t, err)

	_, err = r.insert(testPeer("a", "10.0.0.2"))
	assert.ErrorIs(t, err, errDuplicatePeer)

	_, err = r.insert(testPeer("local", "10.0.0.3"))
	assert.ErrorIs(t, err, errSelfPeer)

	assert.Equal(t, 1, r.count())
}

func TestRegistryCapacityTransition(t *testing.T) {
	r := newRegistry("local")
	require.False(t, r.beginSeek(2))

	all, err := r.insert(testPeer("a", "10.0.0.1"))
	require.NoError(t, err)
	assert.False(t, all)
	assert.True(t, r.isAccepting())

	// the filling insert reports the transition exactly once
	all, err = r.insert(testPeer("b", "10.0.0.2"))
	require.NoError(t, err)
	assert.True(t, all)
	assert.False(t, r.isAccepting(), "seeking must reset the instant capacity is reached")

	_, err = r.insert(testPeer("c", "10.0.0.3"))
	assert.ErrorIs(t, err, errNotAccepting)
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	r := newRegistry("local")
	require.False(t, r.beginSeek(2))

	_, err := r.insert(testPeer("a", "10.0.0.1"))
	require.NoError(t, err)
	require.True(t, r.hasAddr("10.0.0.1"))

	_, removed := r.remove("a")
	assert.True(t, removed)
	assert.False(t, r.hasAddr("10.0.0.1"))

	_, removed = r.remove("a")
	assert.False(t, removed)

	_, removed = r.remove("never-existed")
	assert.False(t, removed)
}

func TestRegistryBeginSeekAlreadyMet(t *testing.T) {
	r := newRegistry("local")
	require.False(t, r.beginSeek(1))
	_, err := r.insert(testPeer("a", "10.0.0.1"))
	require.NoError(t, err)

	assert.True(t, r.beginSeek(1))
	assert.False(t, r.isAccepting())
}

func TestRegistrySnapshot(t *testing.T) {
	r := newRegistry("local")
	require.False(t, r.beginSeek(5))
	for i := 0; i < 3; i++ {
		_, err := r.insert(testPeer(fmt.Sprintf("peer-%d", i), fmt.Sprintf("10.0.0.%d", i+1)))
		require.NoError(t, err)
	}

	snap := r.snapshot()
	assert.Len(t, snap, 3)

	ids := make(map[string]bool)
	for _, p := range snap {
		ids[p.ID()] = true
	}
	assert.Len(t, ids, 3, "no two entries may share an id")
}
