// Package share implements the Share promise abstraction of spec.md §4.4:
// a single-fire promise over a field element, composable by arithmetic
// operators that construct new Shares synchronously, forced to resolve by
// Open (in pkg/runtime) or by an explicit Await from a suspended
// protocol goroutine.
//
// A Share never owns runtime state (spec.md §9): it carries only its field
// tag and a single-fire value slot. The runtime drives resolution by
// calling resolve once it has computed or received the underlying value.
package share

import (
	"context"
	"errors"
	"sync"

	"github.com/luxfi/mpc/pkg/field"
)

// ErrVoidFunction is returned when a continuation is attached to the
// handle of an MPC function that never declared a return shape (spec.md §9
// open question on empty-result ambiguity).
var ErrVoidFunction = errors.New("share: function declared no return value")

// Share is a single-fire promise over a field element.
type Share struct {
	fld *field.Field

	mu      sync.Mutex
	done    bool
	value   *field.Element
	err     error
	waiters []chan struct{}
}

// New returns a pending Share over field f.
func New(f *field.Field) *Share {
	return &Share{fld: f}
}

// Resolved returns an already-resolved Share wrapping v, e.g. for literals.
func Resolved(v *field.Element) *Share {
	s := &Share{fld: v.Field(), done: true, value: v}
	return s
}

// Failed returns an already-resolved Share carrying err; any Await or
// combinator on it propagates err, modelling spec.md §7's rule that
// failures attach to any promise downstream of the failing operation.
func Failed(f *field.Field, err error) *Share {
	return &Share{fld: f, done: true, err: err}
}

// Field returns the field this share's value belongs (or will belong) to.
func (s *Share) Field() *field.Field { return s.fld }

// Resolve delivers v (or err) to s exactly once; subsequent calls are
// no-ops, matching the single-fire delivery invariant of spec.md §3.
func (s *Share) Resolve(v *field.Element, err error) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.value = v
	s.err = err
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}
}

// Await blocks the calling goroutine (not the runtime's event loop) until s
// resolves, or ctx is done.
func (s *Share) Await(ctx context.Context) (*field.Element, error) {
	s.mu.Lock()
	if s.done {
		v, err := s.value, s.err
		s.mu.Unlock()
		return v, err
	}
	ready := make(chan struct{})
	s.waiters = append(s.waiters, ready)
	s.mu.Unlock()

	select {
	case <-ready:
		s.mu.Lock()
		v, err := s.value, s.err
		s.mu.Unlock()
		return v, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Peek returns the resolved value without blocking, if any.
func (s *Share) Peek() (v *field.Element, err error, ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.err, s.done
}

// combine builds a new Share that resolves to fn(a, b) once both a and b
// have resolved, without blocking the caller. This is the synchronous
// operator-construction half of spec.md §4.4: the returned Share is
// pending immediately, and gets filled in by a background goroutine that
// itself only ever blocks on Await, never on runtime state.
func combine(a, b *Share, fn func(x, y *field.Element) (*field.Element, error)) *Share {
	out := New(a.fld)
	go func() {
		ctx := context.Background()
		x, err := a.Await(ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		y, err := b.Await(ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		v, err := fn(x, y)
		out.Resolve(v, err)
	}()
	return out
}

// Add returns a Share resolving to s+other. No communication is required;
// both operands' values are combined locally once known.
func (s *Share) Add(other *Share) *Share {
	return combine(s, other, func(x, y *field.Element) (*field.Element, error) { return x.Add(y) })
}

// Sub returns a Share resolving to s-other.
func (s *Share) Sub(other *Share) *Share {
	return combine(s, other, func(x, y *field.Element) (*field.Element, error) { return x.Sub(y) })
}

// Neg returns a Share resolving to -s.
func (s *Share) Neg() *Share {
	out := New(s.fld)
	go func() {
		v, err := s.Await(context.Background())
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		out.Resolve(v.Neg(), nil)
	}()
	return out
}

// AddConst returns a Share resolving to s+c (a public constant).
func (s *Share) AddConst(c *field.Element) *Share {
	return s.Add(Resolved(c))
}

// MulConst returns a Share resolving to s*c (a public constant) — local,
// since scaling a polynomial's evaluations by a public constant preserves
// its degree.
func (s *Share) MulConst(c *field.Element) *Share {
	out := New(s.fld)
	go func() {
		v, err := s.Await(context.Background())
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		r, err := v.Mul(c)
		out.Resolve(r, err)
	}()
	return out
}
