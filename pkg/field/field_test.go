package field

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// a small, hand-picked Blum prime keeps these tests fast.
var testBlumPrime = big.NewInt(4999) // 4999 mod 4 == 3

func mustField(t *testing.T, p *big.Int, blum bool) *Field {
	t.Helper()
	f, err := New(p, blum)
	require.NoError(t, err)
	return f
}

func TestNewRejectsCompositeModulus(t *testing.T) {
	_, err := New(big.NewInt(4998), false)
	require.ErrorIs(t, err, ErrInvalidModulus)
}

func TestNewRejectsNonBlumWhenRequested(t *testing.T) {
	// 4993 is prime and 4993 mod 4 == 1, not Blum.
	_, err := New(big.NewInt(4993), true)
	require.ErrorIs(t, err, ErrNotBlum)
}

func TestNewCanonicalizesIdentity(t *testing.T) {
	f1 := mustField(t, testBlumPrime, true)
	f2 := mustField(t, testBlumPrime, true)
	require.Same(t, f1, f2)
}

func TestArithmeticRoundTrip(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	a := f.FromInt64(123)
	b := f.FromInt64(456)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(579), sum.Big())

	diff, err := sum.Sub(b)
	require.NoError(t, err)
	require.True(t, diff.Equal(a))

	prod, err := a.Mul(b)
	require.NoError(t, err)
	quot, err := prod.Div(b)
	require.NoError(t, err)
	require.True(t, quot.Equal(a))
}

func TestInvertZeroFails(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	_, err := f.Zero().Invert()
	require.ErrorIs(t, err, ErrZeroInverse)
}

func TestSqrtRoundTrip(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	a := f.FromInt64(17)
	sq, err := a.Mul(a)
	require.NoError(t, err)

	root, err := sq.Sqrt()
	require.NoError(t, err)
	rootSq, err := root.Mul(root)
	require.NoError(t, err)
	require.True(t, rootSq.Equal(sq))
}

func TestSqrtRequiresBlum(t *testing.T) {
	f := mustField(t, big.NewInt(4993), false)
	_, err := f.One().Sqrt()
	require.ErrorIs(t, err, ErrNotBlum)
}

func TestLegendreOfSquareIsOne(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	a := f.FromInt64(9)
	sq, err := a.Mul(a)
	require.NoError(t, err)
	leg, err := sq.Legendre()
	require.NoError(t, err)
	require.Equal(t, 1, leg)
}

func TestBitAndSigned(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	a := f.FromInt64(5) // 0b101
	require.EqualValues(t, 1, a.Bit(0))
	require.EqualValues(t, 0, a.Bit(1))
	require.EqualValues(t, 1, a.Bit(2))

	neg := f.FromInt64(-1)
	require.Equal(t, big.NewInt(-1), neg.Signed())
}

func TestXorOnBits(t *testing.T) {
	f := mustField(t, testBlumPrime, true)
	one := f.One()
	zero := f.Zero()

	r, err := one.Xor(zero)
	require.NoError(t, err)
	require.True(t, r.Equal(one))

	r, err = one.Xor(one)
	require.NoError(t, err)
	require.True(t, r.Equal(zero))
}

func TestFieldMismatch(t *testing.T) {
	f1 := mustField(t, testBlumPrime, true)
	f2 := mustField(t, big.NewInt(4993), false)
	_, err := f1.One().Add(f2.One())
	require.ErrorIs(t, err, ErrFieldMismatch)
}

func TestFindPrimeNonBlum(t *testing.T) {
	p := FindPrime(big.NewInt(100), false)
	require.True(t, p.ProbablyPrime(40))
	require.True(t, p.Cmp(big.NewInt(100)) >= 0)
}

func TestFindPrimeBlum(t *testing.T) {
	lower := new(big.Int).Lsh(big.NewInt(1), 40)
	p := FindPrime(lower, true)
	require.True(t, p.ProbablyPrime(40))
	require.True(t, p.Cmp(lower) >= 0)
	rem := new(big.Int).Mod(p, big.NewInt(4))
	require.Equal(t, big.NewInt(3), rem)
}
