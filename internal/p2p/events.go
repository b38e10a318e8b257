package p2p

import (
	"github.com/subhroacharjee/lanpeer/internal/events"
)

// Lifecycle events the node emits alongside application traffic.
const (
	EventPeerConnected     = "peer_connected"
	EventPeerDisconnected  = "peer_disconnected"
	EventAllPeersConnected = "all_peers_connected"
	EventSeekTimeout       = "seek_timeout"
)

// Event is the argument every handler receives. Name is always set;
// Peer and Data are set for peer traffic and the peer lifecycle events,
// Current/Target only for seek_timeout.
type Event struct {
	Name    string
	Peer    *Peer
	Data    any
	Current int
	Target  int
}

// Handler aliases the bus handler so collaborators only import this
// package.
type Handler = events.Handler[Event]

func Sync(fn func(Event)) *Handler {
	return events.Sync(fn)
}

func Async(fn func(Event)) *Handler {
	return events.Async(fn)
}
