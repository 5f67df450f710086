package share

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeclareReturnResolvesThroughFuture(t *testing.T) {
	f := testField(t)
	fut, s := DeclareReturn(f)
	require.Equal(t, ShapeScalar, fut.Shape())

	s.Resolve(f.FromInt64(42), nil)

	got, err := fut.Open()
	require.NoError(t, err)

	y := NewYielder(context.Background())
	v, err := y.Await(got)
	require.NoError(t, err)
	require.True(t, v.Equal(f.FromInt64(42)))
}

func TestDeclareReturnSequenceResolvesEachElement(t *testing.T) {
	f := testField(t)
	fut, shares := DeclareReturnSequence(f, 3)
	require.Equal(t, ShapeSequence, fut.Shape())
	require.Len(t, shares, 3)

	for i, s := range shares {
		s.Resolve(f.FromInt64(int64(i+1)), nil)
	}

	elements, err := fut.Elements()
	require.NoError(t, err)
	require.Len(t, elements, 3)

	y := NewYielder(context.Background())
	for i, el := range elements {
		s, err := el.Open()
		require.NoError(t, err)
		v, err := y.Await(s)
		require.NoError(t, err)
		require.True(t, v.Equal(f.FromInt64(int64(i+1))))
	}
}

func TestDeclareReturnNopRejectsComposition(t *testing.T) {
	fut := DeclareReturnNop()
	require.Equal(t, ShapeVoid, fut.Shape())

	_, err := fut.Open()
	require.ErrorIs(t, err, ErrVoidFunction)

	_, err = fut.Elements()
	require.ErrorIs(t, err, ErrVoidFunction)
}

func TestOpenOnSequenceFutureFails(t *testing.T) {
	f := testField(t)
	fut, _ := DeclareReturnSequence(f, 2)

	_, err := fut.Open()
	require.Error(t, err)
}

func TestElementsOnScalarFutureFails(t *testing.T) {
	f := testField(t)
	fut, s := DeclareReturn(f)
	s.Resolve(f.One(), nil)

	_, err := fut.Elements()
	require.Error(t, err)
}

func TestYielderAwaitAllPreservesOrder(t *testing.T) {
	f := testField(t)
	a := Resolved(f.FromInt64(1))
	b := Resolved(f.FromInt64(2))
	c := Resolved(f.FromInt64(3))

	y := NewYielder(context.Background())
	vals, err := y.AwaitAll(a, b, c)
	require.NoError(t, err)
	require.Len(t, vals, 3)
	require.True(t, vals[0].Equal(f.FromInt64(1)))
	require.True(t, vals[1].Equal(f.FromInt64(2)))
	require.True(t, vals[2].Equal(f.FromInt64(3)))
}
