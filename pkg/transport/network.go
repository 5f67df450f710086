package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/luxfi/mpc/pkg/pc"
)

// ErrUnexpectedPeerID names a handshake frame carrying a player id we were
// not dialing/expecting on this listener. Network does not check handshake
// ids against an expected set, so nothing in this package returns it.
var ErrUnexpectedPeerID = fmt.Errorf("transport: unexpected peer id in handshake")

// Network owns the listener and the set of per-peer connections for one
// player. Connections are only ever mutated from the goroutines started
// here (the accept loop and each dial attempt); pkg/runtime treats Network
// as the sole owner of transport state, consistent with spec.md §5.
type Network struct {
	selfID string

	mu    sync.Mutex
	conns map[string]*Conn

	listener net.Listener
	onFatal  func(peerID string, err error)
	noRetry  bool
}

// NewNetwork constructs a Network for selfID. onFatal is invoked (from an
// arbitrary goroutine) whenever a connection aborts, e.g. on a malformed
// frame; callers should use it to trigger a full runtime abort.
func NewNetwork(selfID string, onFatal func(peerID string, err error), noRetry bool) *Network {
	return &Network{
		selfID:  selfID,
		conns:   make(map[string]*Conn),
		onFatal: onFatal,
		noRetry: noRetry,
	}
}

// Listen starts accepting inbound connections on addr. Each accepted
// connection's first frame must carry the sender's ASCII player id.
func (n *Network) Listen(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", addr, err)
	}
	n.listener = l
	go n.acceptLoop()
	return nil
}

func (n *Network) acceptLoop() {
	for {
		nc, err := n.listener.Accept()
		if err != nil {
			return
		}
		go n.handleInbound(nc)
	}
}

func (n *Network) handleInbound(nc net.Conn) {
	r := bufio.NewReader(nc)
	frame, err := ReadFrame(r, true)
	if err != nil {
		_ = nc.Close()
		n.onFatal("", fmt.Errorf("transport: reading handshake: %w", err))
		return
	}
	peerID := string(frame.Payload)
	n.register(peerID, nc, r)
}

// register installs an inbound connection whose handshake has already been
// read, replacing any half-open dial attempt for the same peer.
func (n *Network) register(peerID string, nc net.Conn, r *bufio.Reader) {
	c := &Conn{
		peerID:        peerID,
		nc:            nc,
		w:             bufio.NewWriter(nc),
		r:             r,
		earlyArrivals: make(map[pc.Tag][][]byte),
		pendingAwaits: make(map[pc.Tag][]*promise),
		onFatal:       func(err error) { n.onFatal(peerID, err) },
	}
	n.mu.Lock()
	n.conns[peerID] = c
	n.mu.Unlock()
	go c.readLoop()
}

// Dial connects to peer at addr, sending the handshake frame, and retries
// with exponential backoff unless the Network was constructed with
// noRetry.
func (n *Network) Dial(ctx context.Context, peerID, addr string) error {
	b := newBackoff()
	for {
		nc, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
		if err == nil {
			if _, werr := nc.Write(EncodeHandshake(n.selfID)); werr != nil {
				_ = nc.Close()
				err = werr
			} else {
				n.mu.Lock()
				n.conns[peerID] = newConn(nc, peerID, func(e error) { n.onFatal(peerID, e) })
				n.mu.Unlock()
				return nil
			}
		}
		if n.noRetry {
			return fmt.Errorf("transport: dialing %s (%s): %w", peerID, addr, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.next()):
		}
	}
}

// Conn returns the established connection to peerID, or nil if none.
func (n *Network) Conn(peerID string) *Conn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[peerID]
}

// CloseAll closes every connection and the listener.
func (n *Network) CloseAll() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, c := range n.conns {
		_ = c.Close()
	}
	if n.listener != nil {
		_ = n.listener.Close()
	}
}
