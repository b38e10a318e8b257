package p2p

import (
	"errors"
	"sync"

	"github.com/subhroacharjee/lanpeer/internal/metrics"
)

var (
	ErrPeerNotFound = errors.New("peer not found")

	errNotAccepting  = errors.New("not accepting connections")
	errDuplicatePeer = errors.New("peer already connected")
	errSelfPeer      = errors.New("peer id matches local identity")
)

// registry is the arena of admitted peers, keyed by peer id, plus the
// address set used to de-duplicate dial attempts. All acceptance
// decisions happen under its lock so an admit and the capacity check
// that follows it are a single atomic step.
type registry struct {
	mu      sync.Mutex
	localID string

	peers map[string]*Peer
	addrs map[string]struct{}

	maxPeers int
	seeking  int
}

func newRegistry(localID string) *registry {
	return &registry{
		localID: localID,
		peers:   make(map[string]*Peer),
		addrs:   make(map[string]struct{}),
	}
}

func (r *registry) isAccepting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acceptingLocked()
}

func (r *registry) acceptingLocked() bool {
	return len(r.peers) < r.maxPeers && r.seeking > 0
}

// insert admits p, or reports why it cannot. allConnected is true on
// the exact insert that fills the registry to capacity; the caller owes
// an all-peers-connected announcement for it.
func (r *registry) insert(p *Peer) (allConnected bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case p.id == r.localID:
		return false, errSelfPeer
	case r.peers[p.id] != nil:
		return false, errDuplicatePeer
	case !r.acceptingLocked():
		return false, errNotAccepting
	}

	r.peers[p.id] = p
	r.addrs[p.addr] = struct{}{}
	metrics.SetPeerCount(len(r.peers))

	if len(r.peers) >= r.maxPeers {
		r.seeking = 0
		allConnected = true
	}
	return allConnected, nil
}

// remove discards the entry for id. Idempotent: the second and later
// calls for the same id report removed=false and do nothing.
func (r *registry) remove(id string) (p *Peer, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, removed = r.peers[id], r.peers[id] != nil
	if !removed {
		return nil, false
	}
	delete(r.peers, id)
	delete(r.addrs, p.addr)
	metrics.SetPeerCount(len(r.peers))
	return p, true
}

func (r *registry) get(id string) (*Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[id]
	return p, ok
}

func (r *registry) has(id string) bool {
	_, ok := r.get(id)
	return ok
}

func (r *registry) hasAddr(addr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.addrs[addr]
	return ok
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// snapshot returns the current peers in no particular order.
func (r *registry) snapshot() []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	peers := make([]*Peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	return peers
}

// beginSeek arms the registry for a seek toward target total peers.
// met=true means the target is already satisfied and no attempts should
// be issued.
func (r *registry) beginSeek(target int) (met bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.maxPeers = target
	if len(r.peers) >= target {
		r.seeking = 0
		return true
	}
	r.seeking = target
	return false
}
