// Package runtime ties pkg/field, pkg/shamir, pkg/pc, pkg/share,
// pkg/transport and pkg/prss together into the passively-secure protocol
// suite of spec.md §4.6, grounded on viff/passive.py's PassiveRuntime.
//
// Runtime owns the player registry, the shared program counter and the
// transport.Network; PassiveRuntime embeds it and adds the arithmetic,
// opening, comparison and randomness protocols. Every protocol method
// forks a private ProgramCounter off the shared one synchronously at call
// time (Runtime.spawnPC), then drives the rest of the protocol from a
// background goroutine that only ever blocks on share.Share.Await or on
// the network — never on another protocol call's state, so unrelated
// operations proceed concurrently while still producing deterministic,
// identical tag sequences at every honest player (spec.md §5).
package runtime

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/mpc/internal/obslog"
	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/pc"
	"github.com/luxfi/mpc/pkg/pool"
	"github.com/luxfi/mpc/pkg/prss"
	"github.com/luxfi/mpc/pkg/transport"
)

// matrixWorkerLimit bounds how many cells of a MatrixProd/Gauss batch run
// their local await-and-reshare step concurrently. The program-counter
// slots for every cell are claimed synchronously and in row-major order
// before any of this bounded work is dispatched, so the bound only affects
// scheduling, never the deterministic tag sequence of spec.md §5.
const matrixWorkerLimit = 32

// Options configures a Runtime, mirroring the mpc-runtime CLI flags of
// spec.md §6.
type Options struct {
	Threshold         int
	BitLength         int
	SecurityParameter int
	NoSocketRetry     bool
	Silent            bool
}

// Runtime is the transport- and program-counter-owning base a
// PassiveRuntime builds protocols on top of.
type Runtime struct {
	opts     Options
	registry party.Registry
	field    *field.Field
	prss     *prss.PRSS
	net      *transport.Network
	log      *obslog.Logger
	randSrc  io.Reader

	pcMu sync.Mutex
	pc   *pc.ProgramCounter

	workers *pool.Pool

	ctx    context.Context
	cancel context.CancelFunc

	abortMu  sync.Mutex
	abortErr error
}

// New constructs a Runtime. prssInst may be nil if the caller never
// intends to use PRSS-backed randomness (Random/RandomMax/RandomBit).
func New(f *field.Field, registry party.Registry, opts Options, prssInst *prss.PRSS) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		opts:     opts,
		registry: registry,
		field:    f,
		prss:     prssInst,
		log:      obslog.New(registry.Self.String(), opts.Silent),
		randSrc:  rand.Reader,
		pc:       pc.New(),
		workers:  pool.New(matrixWorkerLimit),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// WithRandSource overrides the entropy source Shamir sharing draws its
// polynomial coefficients from (spec.md §6's reproducible-seed run mode,
// resolved by pkg/seed); the zero value keeps crypto/rand.
func (rt *Runtime) WithRandSource(src io.Reader) *Runtime {
	if src != nil {
		rt.randSrc = src
	}
	return rt
}

// Context returns the runtime's cancellation context, done once Shutdown
// is called or a connection aborts fatally.
func (rt *Runtime) Context() context.Context { return rt.ctx }

// Field returns the runtime's working field.
func (rt *Runtime) Field() *field.Field { return rt.field }

// Self returns the local player's id.
func (rt *Runtime) Self() party.ID { return rt.registry.Self }

// Registry returns the player registry this runtime was built with.
func (rt *Runtime) Registry() party.Registry { return rt.registry }

// Connect dials every peer with a higher id and listens for connections
// from every peer with a lower one, so each unordered pair ends up sharing
// a single full-duplex stream (spec.md §4.5), then blocks until every
// inbound connection has registered.
func (rt *Runtime) Connect(ctx context.Context) error {
	rt.net = transport.NewNetwork(rt.registry.Self.String(), rt.onFatal, rt.opts.NoSocketRetry)

	self, ok := rt.registry.Players[rt.registry.Self]
	if !ok {
		return fmt.Errorf("runtime: self id %s not present in registry", rt.registry.Self)
	}
	if err := rt.net.Listen(":" + self.Port); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range rt.registry.Other() {
		if id <= rt.registry.Self {
			continue
		}
		id := id
		p := rt.registry.Players[id]
		g.Go(func() error { return rt.net.Dial(gctx, id.String(), p.Endpoint()) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return rt.awaitInbound(ctx)
}

// awaitInbound polls until every lower-id peer's accepted connection has
// registered with the Network. A short poll is acceptable here: this runs
// once at startup, not on any protocol's hot path.
func (rt *Runtime) awaitInbound(ctx context.Context) error {
	for _, id := range rt.registry.Other() {
		if id >= rt.registry.Self {
			continue
		}
		for rt.net.Conn(id.String()) == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(20 * time.Millisecond):
			}
		}
	}
	return nil
}

// Synchronize is a liveness barrier: every player exchanges one frame with
// every other player on a reserved tag before protocol execution proper
// begins, so a dead or misconfigured peer is caught here rather than mid
// protocol.
func (rt *Runtime) Synchronize(ctx context.Context) error {
	pcv := rt.spawnPC()
	pcv.Increment()
	tag := pcv.Tag()

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range rt.registry.Other() {
		id := id
		g.Go(func() error { return rt.sendTo(id, tag, []byte("sync")) })
	}
	for _, id := range rt.registry.Other() {
		id := id
		g.Go(func() error {
			_, err := rt.recvFrom(gctx, id, tag)
			return err
		})
	}
	return g.Wait()
}

// Shutdown cancels the runtime's context and tears down all connections.
func (rt *Runtime) Shutdown() {
	rt.cancel()
	if rt.net != nil {
		rt.net.CloseAll()
	}
}

// AbortErr returns the error that caused the first fatal connection abort,
// if any.
func (rt *Runtime) AbortErr() error {
	rt.abortMu.Lock()
	defer rt.abortMu.Unlock()
	return rt.abortErr
}

// onFatal is Network's callback for an unrecoverable connection error
// (spec.md §7): it logs the offending peer, records the error and cancels
// the runtime so every suspended protocol goroutine unblocks.
func (rt *Runtime) onFatal(peerID string, err error) {
	rt.abortMu.Lock()
	if rt.abortErr == nil {
		rt.abortErr = err
	}
	rt.abortMu.Unlock()
	rt.log.Abort(peerID, err)
	rt.cancel()
}

func (rt *Runtime) sendTo(id party.ID, tag pc.Tag, payload []byte) error {
	c := rt.net.Conn(id.String())
	if c == nil {
		return fmt.Errorf("runtime: no connection to player %s", id)
	}
	return c.Send(tag, payload)
}

func (rt *Runtime) recvFrom(ctx context.Context, id party.ID, tag pc.Tag) ([]byte, error) {
	c := rt.net.Conn(id.String())
	if c == nil {
		return nil, fmt.Errorf("runtime: no connection to player %s", id)
	}
	return c.RecvContext(ctx, tag)
}

// spawnPC takes the next sibling slot of the shared program counter and
// hands back an independent clone forked one level below it: the momentary
// lock only brackets this synchronous snapshot, never the asynchronous
// lifetime of the caller's protocol, following the pc_wrapper pattern of
// spec.md §4.3 where each suspended computation owns a private PC fork.
func (rt *Runtime) spawnPC() *pc.ProgramCounter {
	rt.pcMu.Lock()
	defer rt.pcMu.Unlock()
	rt.pc.Increment()
	rt.pc.Fork()
	child := rt.pc.Clone()
	rt.pc.Unfork()
	return child
}
