package shamir

import (
	"math/big"
	"testing"

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

func TestShareRecombineExact(t *testing.T) {
	f := testField(t)
	secret := f.FromInt64(42)

	points, err := Share(secret, 2, 5)
	require.NoError(t, err)
	require.Len(t, points, 5)

	got, err := Recombine(points[:3], nil)
	require.NoError(t, err)
	require.True(t, got.Equal(secret))
}

func TestRecombineRequiresEnoughPoints(t *testing.T) {
	f := testField(t)
	secret := f.FromInt64(7)

	points, err := Share(secret, 3, 7)
	require.NoError(t, err)

	// Interpolating from too few points does not reconstruct the secret
	// in general (degree-3 polynomial needs 4 points).
	got, err := Recombine(points[:3], nil)
	require.NoError(t, err)
	require.False(t, got.Equal(secret))
}

func TestRecombineAtNonZeroPoint(t *testing.T) {
	f := testField(t)
	secret := f.FromInt64(100)

	points, err := Share(secret, 1, 4)
	require.NoError(t, err)

	xr := f.FromInt64(2)
	var want *field.Element
	for _, p := range points {
		if p.X.Equal(xr) {
			want = p.Y
		}
	}
	require.NotNil(t, want)

	got, err := Recombine(points[:2], xr)
	require.NoError(t, err)
	require.True(t, got.Equal(want))
}

func TestShareRejectsInvalidThreshold(t *testing.T) {
	f := testField(t)
	secret := f.FromInt64(1)

	_, err := Share(secret, 5, 5)
	require.ErrorIs(t, err, ErrThreshold)

	_, err = Share(secret, -1, 5)
	require.ErrorIs(t, err, ErrThreshold)
}

func TestShareWithRandIsDeterministicGivenSameSource(t *testing.T) {
	f := testField(t)
	secret := f.FromInt64(55)

	src1 := newFixedReader(1)
	src2 := newFixedReader(1)

	p1, err := ShareWithRand(secret, 2, 4, src1)
	require.NoError(t, err)
	p2, err := ShareWithRand(secret, 2, 4, src2)
	require.NoError(t, err)

	for i := range p1 {
		require.True(t, p1[i].Y.Equal(p2[i].Y))
	}
}

// fixedReader deterministically repeats a byte value, standing in for a
// seeded generator without pulling in math/rand for this unit test.
type fixedReader struct{ b byte }

func newFixedReader(b byte) *fixedReader { return &fixedReader{b: b} }

func (r *fixedReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}
