package p2p

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/subhroacharjee/lanpeer/internal/metrics"
)

const rejectNotAccepting = "Not accepting connections"

// readControl reads one handshake line within the given window.
func readControl(conn net.Conn, br *bufio.Reader, timeout time.Duration) (controlMsg, error) {
	var msg controlMsg
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return msg, err
	}
	line, err := br.ReadBytes('\n')
	if err != nil {
		return msg, err
	}
	if err := json.Unmarshal(bytes.TrimSpace(line), &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	return msg, nil
}

func writeControl(conn net.Conn, msg controlMsg, timeout time.Duration) error {
	b, err := marshalLine(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	_, err = conn.Write(b)
	return err
}

func clearDeadlines(conn net.Conn) error {
	return conn.SetDeadline(time.Time{})
}

func remoteHost(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// acceptHandshake drives the acceptor role on a freshly accepted
// connection. On admission the peer is already inserted in the registry
// before connect_accept goes out, so capacity checks racing with other
// admissions stay consistent. Any error leaves the connection closed.
func (n *Node) acceptHandshake(conn net.Conn) (peer *Peer, allConnected bool, err error) {
	defer func() {
		if err != nil {
			metrics.IncHandshakeFailures()
			conn.Close()
		}
	}()

	br := bufio.NewReader(conn)
	timeout := n.AcceptTimeout

	msg, err := readControl(conn, br, timeout)
	if err != nil {
		return nil, false, err
	}

	if msg.Type == msgInfoRequest {
		resp := controlMsg{
			Type:      msgInfoResponse,
			AppName:   n.Identity.AppName,
			PeerID:    n.Identity.ID,
			Accepting: n.registry.isAccepting(),
		}
		if err := writeControl(conn, resp, timeout); err != nil {
			return nil, false, err
		}
		if msg, err = readControl(conn, br, timeout); err != nil {
			return nil, false, err
		}
	}

	if msg.Type != msgConnectRequest {
		return nil, false, fmt.Errorf("unexpected handshake message %q", msg.Type)
	}

	if msg.AppName != n.Identity.AppName {
		return nil, false, n.reject(conn, timeout, "Application mismatch")
	}

	peer = newPeer(msg.PeerID, remoteHost(conn), conn, br, n.Encoder)
	allConnected, err = n.registry.insert(peer)
	if err != nil {
		return nil, false, n.reject(conn, timeout, rejectNotAccepting)
	}

	accept := controlMsg{Type: msgConnectAccept, PeerID: n.Identity.ID}
	if err := writeControl(conn, accept, timeout); err != nil {
		// not announced yet, so discard without a disconnect event
		n.registry.remove(peer.id)
		return nil, false, err
	}
	if err := clearDeadlines(conn); err != nil {
		n.registry.remove(peer.id)
		return nil, false, err
	}
	return peer, allConnected, nil
}

// reject reports the refusal to the remote side and always returns a
// non-nil error so the caller abandons the connection.
func (n *Node) reject(conn net.Conn, timeout time.Duration, reason string) error {
	msg := controlMsg{Type: msgConnectReject, Reason: reason}
	if err := writeControl(conn, msg, timeout); err != nil {
		return err
	}
	return fmt.Errorf("rejected handshake: %s", reason)
}

// initiateHandshake drives the initiator role over a freshly dialed
// connection. The remote peer is admitted only when it is compatible,
// accepting and unknown. With tieBreak set (the scanner's mode) the
// attempt additionally proceeds only when the local id orders below the
// remote id: two nodes scanning each other race symmetric handshakes,
// and electing the lower-id side as initiator keeps them from admitting
// one another twice over different sockets. Any error leaves the
// connection closed.
func (n *Node) initiateHandshake(conn net.Conn, tieBreak bool) (peer *Peer, allConnected bool, err error) {
	defer func() {
		if err != nil {
			metrics.IncHandshakeFailures()
			conn.Close()
		}
	}()

	br := bufio.NewReader(conn)
	timeout := n.DialTimeout

	req := controlMsg{Type: msgInfoRequest, PeerID: n.Identity.ID}
	if err := writeControl(conn, req, timeout); err != nil {
		return nil, false, err
	}

	info, err := readControl(conn, br, timeout)
	if err != nil {
		return nil, false, err
	}

	switch {
	case info.Type != msgInfoResponse:
		return nil, false, fmt.Errorf("unexpected handshake message %q", info.Type)
	case info.AppName != n.Identity.AppName:
		return nil, false, fmt.Errorf("application mismatch: %q", info.AppName)
	case !info.Accepting:
		return nil, false, fmt.Errorf("peer %s is not accepting", info.PeerID)
	case info.PeerID == n.Identity.ID:
		return nil, false, errSelfPeer
	case n.registry.has(info.PeerID):
		return nil, false, errDuplicatePeer
	case tieBreak && n.Identity.ID >= info.PeerID:
		return nil, false, fmt.Errorf("yielding initiator role to peer %s", info.PeerID)
	}

	connect := controlMsg{
		Type:    msgConnectRequest,
		PeerID:  n.Identity.ID,
		AppName: n.Identity.AppName,
	}
	if err := writeControl(conn, connect, timeout); err != nil {
		return nil, false, err
	}

	resp, err := readControl(conn, br, timeout)
	if err != nil {
		return nil, false, err
	}
	if resp.Type != msgConnectAccept {
		return nil, false, fmt.Errorf("connect request refused: %s", resp.Reason)
	}

	peer = newPeer(info.PeerID, remoteHost(conn), conn, br, n.Encoder)
	allConnected, err = n.registry.insert(peer)
	if err != nil {
		return nil, false, err
	}
	if err := clearDeadlines(conn); err != nil {
		n.registry.remove(peer.id)
		return nil, false, err
	}
	return peer, allConnected, nil
}
