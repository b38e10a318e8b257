package p2p

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subhroacharjee/lanpeer/internal/logger"
	"github.com/subhroacharjee/lanpeer/internal/metrics"
)

// errSeekSatisfied cancels the remaining dials of a round once the
// target is reached.
var errSeekSatisfied = errors.New("seek target satisfied")

// SeekPeers scans the configured address range until the registry holds
// target peers or the attempt budget runs out. Reaching the target
// surfaces as all_peers_connected (fired by the admitting insert);
// exhaustion surfaces as seek_timeout. Neither is an error; the only
// error returned is a cancelled context. Seeking with the target
// already met issues no connection attempts.
func (n *Node) SeekPeers(ctx context.Context, target int) error {
	if target <= 0 {
		return fmt.Errorf("seek target must be positive, got %d", target)
	}

	n.seekMu.Lock()
	defer n.seekMu.Unlock()

	if met := n.registry.beginSeek(target); met {
		logger.Debug("seek target %d already met", target)
		return nil
	}

	for attempt := 1; attempt <= n.MaxScanAttempts; attempt++ {
		if err := n.scanRound(ctx, target); err != nil {
			return err
		}
		if n.registry.count() >= target {
			return nil
		}
		if attempt == n.MaxScanAttempts {
			break
		}
		if err := n.sleep(ctx, n.ScanBackoff); err != nil {
			return err
		}
	}

	current := n.registry.count()
	logger.Info("seek exhausted after %d attempts: %d/%d peers", n.MaxScanAttempts, current, target)
	n.emitLocal(Event{Name: EventSeekTimeout, Current: current, Target: target})
	return nil
}

// scanRound races one initiator attempt against every live candidate
// address concurrently.
func (n *Node) scanRound(ctx context.Context, target int) error {
	metrics.IncScanRounds()

	g, gctx := errgroup.WithContext(ctx)
	for _, host := range n.candidates() {
		host := host
		g.Go(func() error {
			if !n.tryCandidate(gctx, host) {
				return nil
			}
			if n.registry.count() >= target {
				return errSeekSatisfied
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errSeekSatisfied) {
		return err
	}
	return ctx.Err()
}

// candidates is the configured range minus local addresses and hosts
// that already carry a connection.
func (n *Node) candidates() []string {
	hosts := make([]string, 0, n.AddrCount)
	for i := 1; i <= n.AddrCount; i++ {
		host := fmt.Sprintf("%s%d", n.AddrPrefix, i)
		if _, own := n.ownAddrs[host]; own {
			continue
		}
		if n.registry.hasAddr(host) {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts
}

// tryCandidate runs one initiator handshake toward host. Failures of
// any kind just burn the candidate for this round.
func (n *Node) tryCandidate(ctx context.Context, host string) bool {
	if n.registry.hasAddr(host) {
		return false
	}

	dialer := net.Dialer{Timeout: n.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(n.Port)))
	if err != nil {
		return false
	}

	peer, allConnected, err := n.initiateHandshake(conn, true)
	if err != nil {
		logger.Debug("candidate %s: %v", host, err)
		return false
	}
	n.admit(peer, allConnected)
	return true
}

// detectOwnAddrs enumerates every address this host answers on, so the
// scanner never dials itself: interface addresses plus a bind probe
// over the configured range.
func detectOwnAddrs(prefix string, count int) map[string]struct{} {
	own := map[string]struct{}{"127.0.0.1": {}}

	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok {
				own[ipn.IP.String()] = struct{}{}
			}
		}
	}

	for i := 1; i <= count; i++ {
		host := fmt.Sprintf("%s%d", prefix, i)
		pc, err := net.ListenPacket("udp", net.JoinHostPort(host, "0"))
		if err != nil {
			continue
		}
		own[host] = struct{}{}
		pc.Close()
	}
	return own
}

// sleep waits out d on the node clock, honoring cancellation.
func (n *Node) sleep(ctx context.Context, d time.Duration) error {
	timer := n.Clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
