package share

import (
	"context"

	"github.com/luxfi/mpc/pkg/field"
)

// Shape classifies the structure a Future was declared with: a fixed set
// of shapes in place of dynamic dispatch on arbitrary nested lists. Only
// scalar and sequence shapes exist (plus ShapeVoid); there is no tensor
// shape, and a sequence's elements are always scalars.
type Shape int

const (
	// ShapeVoid marks a Future that was never declared: the MPC function
	// it stands for never calls DeclareReturn. Attaching a continuation to
	// it is an error (ErrVoidFunction).
	ShapeVoid Shape = iota
	ShapeScalar
	ShapeSequence
)

// Future is a structured, pre-declared return template: the first yield in
// the source's coroutine convention binds it, subsequent yields read
// resolved values, and a final delivery resolves it in full.
type Future struct {
	shape Shape

	scalar *Share
	seq    []*Future
}

// DeclareReturn declares a scalar return shape up front, returning both the
// Future the caller hands back to its own caller and the Share the
// function's body should eventually Resolve.
func DeclareReturn(f *field.Field) (*Future, *Share) {
	s := New(f)
	return &Future{shape: ShapeScalar, scalar: s}, s
}

// DeclareReturnSequence declares a fixed-length sequence return shape,
// returning the Future and the per-element Shares to resolve.
func DeclareReturnSequence(f *field.Field, n int) (*Future, []*Share) {
	shares := make([]*Share, n)
	children := make([]*Future, n)
	for i := range shares {
		shares[i] = New(f)
		children[i] = &Future{shape: ShapeScalar, scalar: shares[i]}
	}
	return &Future{shape: ShapeSequence, seq: children}, shares
}

// DeclareReturnNop returns a void Future for MPC functions that yield
// intermediate values but never produce a result (spec.md §9 open
// question). Composing further on it fails with ErrVoidFunction.
func DeclareReturnNop() *Future {
	return &Future{shape: ShapeVoid}
}

// Shape reports which structural shape this Future was declared with.
func (fut *Future) Shape() Shape { return fut.shape }

// Open returns the underlying Share for a scalar Future, or
// ErrVoidFunction for a void one.
func (fut *Future) Open() (*Share, error) {
	if fut.shape == ShapeVoid {
		return nil, ErrVoidFunction
	}
	if fut.shape != ShapeScalar {
		return nil, errVal("share: Future is a sequence, use Elements")
	}
	return fut.scalar, nil
}

// Elements returns the per-element Futures of a sequence Future, or
// ErrVoidFunction for a void one.
func (fut *Future) Elements() ([]*Future, error) {
	if fut.shape == ShapeVoid {
		return nil, ErrVoidFunction
	}
	if fut.shape != ShapeSequence {
		return nil, errVal("share: Future is a scalar, use Open")
	}
	return fut.seq, nil
}

func errVal(msg string) error { return &valError{msg} }

type valError struct{ msg string }

func (e *valError) Error() string { return e.msg }

// Yielder is handed to a Spawn'd protocol goroutine; Await/AwaitAll are its
// "yield for resolved values" operations (spec.md §4.4/§9). It carries no
// runtime state of its own beyond a context for cancellation on abort.
type Yielder struct {
	ctx context.Context
}

// NewYielder constructs a Yielder bound to ctx, cancelled on runtime abort.
func NewYielder(ctx context.Context) *Yielder {
	return &Yielder{ctx: ctx}
}

// Await yields for a single Share's resolved value.
func (y *Yielder) Await(s *Share) (*field.Element, error) {
	return s.Await(y.ctx)
}

// AwaitAll yields for the parallel composition of several Shares,
// preserving order — the "collect" primitive of spec.md §4.4 specialised
// to a flat sequence, which is the shape every protocol in pkg/runtime
// actually needs (matrices are handled as sequences-of-sequences by the
// caller).
func (y *Yielder) AwaitAll(shares ...*Share) ([]*field.Element, error) {
	out := make([]*field.Element, len(shares))
	for i, s := range shares {
		v, err := s.Await(y.ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
