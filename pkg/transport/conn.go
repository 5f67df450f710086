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

// ErrClosed is returned by Conn operations after Close has been called.
var ErrClosed = fmt.Errorf("transport: connection closed")

// promise is a single-fire delivery slot for one frame awaited under a tag.
type promise struct {
	ch chan []byte
}

// Conn is a single duplex, framed, ordered byte stream to one peer. Per
// spec.md §4.5, it holds two per-PC maps — early arrivals and pending
// awaits — of which at most one is non-empty for any tag at any instant.
type Conn struct {
	peerID string
	nc     net.Conn
	w      *bufio.Writer
	r      *bufio.Reader

	mu       sync.Mutex
	closed   bool
	closeErr error

	// earlyArrivals holds payloads that arrived before anyone awaited them,
	// queued in arrival order per tag.
	earlyArrivals map[pc.Tag][][]byte
	// pendingAwaits holds promises registered before their payload arrived,
	// queued in registration order per tag.
	pendingAwaits map[pc.Tag][]*promise

	onFatal func(error)
}

// newConn wraps an already-handshaken net.Conn.
func newConn(nc net.Conn, peerID string, onFatal func(error)) *Conn {
	c := &Conn{
		peerID:        peerID,
		nc:            nc,
		w:             bufio.NewWriter(nc),
		r:             bufio.NewReader(nc),
		earlyArrivals: make(map[pc.Tag][][]byte),
		pendingAwaits: make(map[pc.Tag][]*promise),
		onFatal:       onFatal,
	}
	go c.readLoop()
	return c
}

// PeerID returns the remote player's ASCII id, as read from the handshake.
func (c *Conn) PeerID() string { return c.peerID }

// Send writes one frame tagged with the given PC snapshot.
func (c *Conn) Send(tag pc.Tag, payload []byte) error {
	pcInts, err := tagToUint32s(tag)
	if err != nil {
		return err
	}
	wire, err := Encode(Frame{PC: pcInts, Payload: payload})
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := c.w.Write(wire); err != nil {
		return err
	}
	return c.w.Flush()
}

// Recv returns a channel that receives the next payload to arrive under
// tag. If a payload already arrived (an early arrival), the channel is
// pre-loaded and returned immediately; otherwise a pending await is
// registered and the channel fires when the dispatch loop matches an
// inbound frame to this tag.
func (c *Conn) Recv(tag pc.Tag) <-chan []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan []byte, 1)
	if c.closed {
		close(ch)
		return ch
	}

	if queue, ok := c.earlyArrivals[tag]; ok && len(queue) > 0 {
		ch <- queue[0]
		rest := queue[1:]
		if len(rest) == 0 {
			delete(c.earlyArrivals, tag)
		} else {
			c.earlyArrivals[tag] = rest
		}
		return ch
	}

	c.pendingAwaits[tag] = append(c.pendingAwaits[tag], &promise{ch: ch})
	return ch
}

// RecvContext blocks until a payload under tag arrives or ctx is done.
func (c *Conn) RecvContext(ctx context.Context, tag pc.Tag) ([]byte, error) {
	select {
	case payload, ok := <-c.Recv(tag):
		if !ok {
			return nil, ErrClosed
		}
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) readLoop() {
	for {
		frame, err := ReadFrame(c.r, false)
		if err != nil {
			c.fatal(fmt.Errorf("transport: decoding frame from player %s: %w", c.peerID, err))
			return
		}
		tag := uint32sToTag(frame.PC)
		c.dispatch(tag, frame.Payload)
	}
}

func (c *Conn) dispatch(tag pc.Tag, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if queue, ok := c.pendingAwaits[tag]; ok && len(queue) > 0 {
		p := queue[0]
		rest := queue[1:]
		if len(rest) == 0 {
			delete(c.pendingAwaits, tag)
		} else {
			c.pendingAwaits[tag] = rest
		}
		p.ch <- payload
		return
	}

	c.earlyArrivals[tag] = append(c.earlyArrivals[tag], payload)
}

func (c *Conn) fatal(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.closeErr = err
	for _, queue := range c.pendingAwaits {
		for _, p := range queue {
			close(p.ch)
		}
	}
	c.pendingAwaits = nil
	c.earlyArrivals = nil
	c.mu.Unlock()

	_ = c.nc.Close()
	if c.onFatal != nil {
		c.onFatal(err)
	}
}

// Close shuts the connection down cleanly; pending promises are discarded.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for _, queue := range c.pendingAwaits {
		for _, p := range queue {
			close(p.ch)
		}
	}
	c.pendingAwaits = nil
	c.earlyArrivals = nil
	c.mu.Unlock()
	return c.nc.Close()
}

func tagToUint32s(tag pc.Tag) ([]uint32, error) {
	s := tag.String()
	if s == "" {
		return nil, nil
	}
	var out []uint32
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			var v uint32
			if _, err := fmt.Sscanf(s[start:i], "%d", &v); err != nil {
				return nil, fmt.Errorf("transport: malformed tag %q: %w", s, err)
			}
			out = append(out, v)
			start = i + 1
		}
	}
	return out, nil
}

func uint32sToTag(vals []uint32) pc.Tag {
	s := ""
	for i, v := range vals {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d", v)
	}
	return pc.Tag(s)
}

// backoff implements the reconnection schedule of spec.md §4.5: multiplier
// ~1.23, capped at 3s.
type backoff struct {
	delay time.Duration
}

func newBackoff() *backoff { return &backoff{delay: 50 * time.Millisecond} }

func (b *backoff) next() time.Duration {
	d := b.delay
	b.delay = time.Duration(float64(b.delay) * 1.23)
	if b.delay > 3*time.Second {
		b.delay = 3 * time.Second
	}
	return d
}
