package p2p

import (
	"bufio"
	"net"
	"sync"

	"github.com/subhroacharjee/lanpeer/internal/logger"
)

// Peer is a remote process admitted after a successful handshake. It is
// owned by the registry; other components refer to it by id so a
// removed peer cannot be reached through a stale handle.
type Peer struct {
	id   string
	addr string
	conn net.Conn
	br   *bufio.Reader
	enc  Encoder

	wmu sync.Mutex
}

func newPeer(id, addr string, conn net.Conn, br *bufio.Reader, enc Encoder) *Peer {
	return &Peer{
		id:   id,
		addr: addr,
		conn: conn,
		br:   br,
		enc:  enc,
	}
}

func (p *Peer) ID() string {
	return p.id
}

// Addr is the remote host address, without port.
func (p *Peer) Addr() string {
	return p.addr
}

// Send writes one event frame to this peer. Writes are serialized so
// frames from concurrent emitters cannot interleave on the wire.
func (p *Peer) Send(event string, data any) error {
	b, err := p.enc.Encode(Frame{Event: event, Data: data})
	if err != nil {
		return err
	}
	return p.write(b)
}

func (p *Peer) write(b []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_, err := p.conn.Write(b)
	return err
}

func (p *Peer) readFrame(dec Decoder, f *Frame) error {
	return dec.Decode(p.br, f)
}

func (p *Peer) Close() error {
	defer logger.Debug("connection to peer %s (%s) closed", p.id, p.addr)
	return p.conn.Close()
}
