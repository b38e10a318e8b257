package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/multierr"

	"github.com/subhroacharjee/lanpeer/internal/events"
	"github.com/subhroacharjee/lanpeer/internal/logger"
	"github.com/subhroacharjee/lanpeer/internal/metrics"
)

const (
	DefaultPort            = 9090
	DefaultAddrPrefix      = "10.102.251."
	DefaultAddrCount       = 20
	DefaultDialTimeout     = 2 * time.Second
	DefaultAcceptTimeout   = 5 * time.Second
	DefaultMaxScanAttempts = 10
	DefaultScanBackoff     = time.Second
	DefaultMailboxSize     = 64
)

type NodeOpts struct {
	Identity   Identity
	ListenAddr string

	// Port is the remote port the scanner dials on every candidate
	// host; in production it matches the port in ListenAddr.
	Port       int
	AddrPrefix string
	AddrCount  int

	DialTimeout     time.Duration // initiator handshake step window
	AcceptTimeout   time.Duration // acceptor handshake step window
	MaxScanAttempts int
	ScanBackoff     time.Duration

	Decoder Decoder
	Encoder Encoder
	Clock   clock.Clock

	// OwnAddrs overrides local-address detection; tests use it to aim
	// the scanner at loopback listeners.
	OwnAddrs    map[string]struct{}
	MailboxSize int
}

func (o *NodeOpts) applyDefaults() {
	if o.Identity.ID == "" {
		o.Identity = NewIdentity(o.Identity.AppName)
	}
	if o.ListenAddr == "" {
		o.ListenAddr = fmt.Sprintf(":%d", DefaultPort)
	}
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.AddrPrefix == "" {
		o.AddrPrefix = DefaultAddrPrefix
	}
	if o.AddrCount == 0 {
		o.AddrCount = DefaultAddrCount
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.AcceptTimeout == 0 {
		o.AcceptTimeout = DefaultAcceptTimeout
	}
	if o.MaxScanAttempts == 0 {
		o.MaxScanAttempts = DefaultMaxScanAttempts
	}
	if o.ScanBackoff == 0 {
		o.ScanBackoff = DefaultScanBackoff
	}
	if o.Decoder == nil {
		o.Decoder = LineDecoder{}
	}
	if o.Encoder == nil {
		o.Encoder = LineEncoder{}
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.MailboxSize == 0 {
		o.MailboxSize = DefaultMailboxSize
	}
}

// Node is the peer-discovery-and-messaging endpoint: it listens for
// inbound handshakes, scans for peers on demand, and shuttles event
// frames between the network and the local event bus.
type Node struct {
	NodeOpts

	registry *registry
	bus      *events.Bus[Event]
	mailbox  *events.Mailbox

	mu       sync.Mutex
	listener net.Listener
	cancel   context.CancelFunc

	seekMu   sync.Mutex
	ownAddrs map[string]struct{}
}

func NewNode(opts NodeOpts) *Node {
	opts.applyDefaults()
	return &Node{
		NodeOpts: opts,
		registry: newRegistry(opts.Identity.ID),
		bus:      events.NewBus[Event](),
		mailbox:  events.NewMailbox(opts.MailboxSize),
	}
}

// Start binds the listen socket and begins accepting handshakes.
// Failure to bind is the one fatal startup condition.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listener != nil {
		return errors.New("node already started")
	}

	ln, err := net.Listen("tcp", n.ListenAddr)
	if err != nil {
		return fmt.Errorf("bind %s: %w", n.ListenAddr, err)
	}
	n.listener = ln

	n.ownAddrs = n.OwnAddrs
	if n.ownAddrs == nil {
		n.ownAddrs = detectOwnAddrs(n.AddrPrefix, n.AddrCount)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel
	go n.mailbox.Run(ctx)
	go n.acceptLoop(ln)

	logger.Info("node %s listening on %s", n.Identity.ID, ln.Addr())
	return nil
}

// Stop closes the listener and removes every peer through the same
// path a remote failure takes, so each one gets its peer_disconnected
// exactly once. In-flight handshakes unwind on their own as sockets
// close underneath them.
func (n *Node) Stop() error {
	n.mu.Lock()
	ln := n.listener
	cancel := n.cancel
	n.listener = nil
	n.cancel = nil
	n.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var err error
	if ln != nil {
		multierr.AppendInto(&err, ln.Close())
	}
	for _, p := range n.registry.snapshot() {
		n.removePeer(p.id)
	}
	return err
}

func (n *Node) acceptLoop(ln net.Listener) {
	var catcher tec.TempErrCatcher
	for {
		conn, err := ln.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			logger.Debug("accept loop done: %v", err)
			return
		}
		go n.handleInbound(conn)
	}
}

func (n *Node) handleInbound(conn net.Conn) {
	peer, allConnected, err := n.acceptHandshake(conn)
	if err != nil {
		logger.Debug("inbound handshake from %s: %v", conn.RemoteAddr(), err)
		return
	}
	n.admit(peer, allConnected)
}

// admit announces a freshly inserted peer and starts its read loop.
func (n *Node) admit(peer *Peer, allConnected bool) {
	logger.Info("peer %s connected from %s", peer.id, peer.addr)
	n.emitLocal(Event{Name: EventPeerConnected, Peer: peer})
	if allConnected {
		logger.Info("all %d peers connected", n.registry.count())
		n.emitLocal(Event{Name: EventAllPeersConnected})
	}
	go n.readLoop(peer)
}

// readLoop is the single reader for one admitted connection. Malformed
// frames are dropped; any transport error removes the peer.
func (n *Node) readLoop(p *Peer) {
	for {
		var f Frame
		if err := p.readFrame(n.Decoder, &f); err != nil {
			if errors.Is(err, ErrMalformedFrame) {
				logger.Debug("dropping frame from %s: %v", p.id, err)
				continue
			}
			n.removePeer(p.id)
			return
		}
		metrics.IncFramesDispatched()
		event := f.Event
		if event == "" {
			event = "message"
		}
		n.emitLocal(Event{Name: event, Peer: p, Data: f.Data})
	}
}

// removePeer tears one peer down: registry entry, address reservation,
// socket, then a single peer_disconnected. Safe to call from every
// failure path at once; only the first call does anything.
func (n *Node) removePeer(id string) {
	p, removed := n.registry.remove(id)
	if !removed {
		return
	}
	if err := p.Close(); err != nil {
		logger.Debug("closing peer %s: %v", id, err)
	}
	n.emitLocal(Event{Name: EventPeerDisconnected, Peer: p})
}

func (n *Node) emitLocal(ev Event) {
	n.bus.Emit(ev.Name, ev)
}

// Dial runs a single initiator handshake against addr (host:port).
// Unlike the scanner it applies no initiator tie-break: an explicit
// dial is a deliberate attempt.
func (n *Node) Dial(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: n.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	peer, allConnected, err := n.initiateHandshake(conn, false)
	if err != nil {
		return err
	}
	n.admit(peer, allConnected)
	return nil
}

// On registers h for event; handlers fire in registration order.
func (n *Node) On(event string, h *Handler) {
	n.bus.On(event, h)
}

// Off removes one registration of h, or every handler for event when h
// is nil.
func (n *Node) Off(event string, h *Handler) {
	n.bus.Off(event, h)
}

// Emit broadcasts one frame to every connected peer, best effort. A
// peer whose send fails is removed.
func (n *Node) Emit(event string, data any) {
	for _, p := range n.registry.snapshot() {
		if err := p.Send(event, data); err != nil {
			logger.Error("send %q to peer %s: %v", event, p.id, err)
			n.removePeer(p.id)
		}
	}
}

// SendTo unicasts one frame. Unknown ids return ErrPeerNotFound; a
// failed send removes the peer and returns the transport error.
func (n *Node) SendTo(peerID, event string, data any) error {
	p, ok := n.registry.get(peerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPeerNotFound, peerID)
	}
	if err := p.Send(event, data); err != nil {
		n.removePeer(peerID)
		return err
	}
	return nil
}

// Schedule hands fn to the node's mailbox. This is the required entry
// point for callers outside the node's goroutines (hardware callbacks
// and the like); they must never touch the node state directly.
func (n *Node) Schedule(fn func()) error {
	return n.mailbox.Post(fn)
}

func (n *Node) LocalID() string {
	return n.Identity.ID
}

func (n *Node) AppName() string {
	return n.Identity.AppName
}

func (n *Node) PeerCount() int {
	return n.registry.count()
}

func (n *Node) ConnectedPeers() []*Peer {
	return n.registry.snapshot()
}

func (n *Node) IsAccepting() bool {
	return n.registry.isAccepting()
}

// Addr reports the bound listen address, useful when ListenAddr asked
// for port 0.
func (n *Node) Addr() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return n.ListenAddr
	}
	return n.listener.Addr().String()
}
