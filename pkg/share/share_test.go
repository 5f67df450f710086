package share

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/mpc/pkg/field"
)

var testPrime = big.NewInt(10007)

func testField(t *testing.T) *field.Field {
	t.Helper()
	f, err := field.New(testPrime, false)
	require.NoError(t, err)
	return f
}

func TestResolveIsSingleFire(t *testing.T) {
	f := testField(t)
	s := New(f)

	s.Resolve(f.FromInt64(1), nil)
	s.Resolve(f.FromInt64(2), nil) // must be ignored

	v, err := s.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(1)))
}

func TestAwaitBlocksUntilResolved(t *testing.T) {
	f := testField(t)
	s := New(f)

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Resolve(f.FromInt64(9), nil)
	}()

	v, err := s.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(9)))
}

func TestAwaitRespectsContextCancellation(t *testing.T) {
	f := testField(t)
	s := New(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Await(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFailedPropagatesError(t *testing.T) {
	f := testField(t)
	wantErr := errors.New("boom")
	s := Failed(f, wantErr)

	_, err := s.Await(context.Background())
	require.ErrorIs(t, err, wantErr)
}

func TestAddSubCombinators(t *testing.T) {
	f := testField(t)
	a := Resolved(f.FromInt64(10))
	b := Resolved(f.FromInt64(3))

	sum := a.Add(b)
	v, err := sum.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(13)))

	diff := a.Sub(b)
	v, err = diff.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(7)))
}

func TestNegAddConstMulConst(t *testing.T) {
	f := testField(t)
	a := Resolved(f.FromInt64(4))

	neg := a.Neg()
	v, err := neg.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(-4)))

	added := a.AddConst(f.FromInt64(6))
	v, err = added.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(10)))

	scaled := a.MulConst(f.FromInt64(5))
	v, err = scaled.Await(context.Background())
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(20)))
}

func TestErrorPropagatesThroughCombinators(t *testing.T) {
	f := testField(t)
	wantErr := errors.New("upstream failure")
	failed := Failed(f, wantErr)
	ok := Resolved(f.FromInt64(1))

	sum := failed.Add(ok)
	_, err := sum.Await(context.Background())
	require.ErrorIs(t, err, wantErr)
}

func TestPeekReportsReadiness(t *testing.T) {
	f := testField(t)
	s := New(f)

	_, _, ready := s.Peek()
	require.False(t, ready)

	s.Resolve(f.One(), nil)
	v, err, ready := s.Peek()
	require.True(t, ready)
	require.NoError(t, err)
	require.True(t, v.Equal(f.One()))
}
