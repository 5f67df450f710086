// Package field implements arithmetic over a prime field F_p, with optional
// support for Blum primes (p ≡ 3 mod 4) so that square roots have a
// closed-form solution.
//
// Field identity is canonicalised: two calls to New with the same modulus
// return the same *Field pointer, so elements constructed from different
// fields can be told apart on sight rather than by comparing moduli on
// every operation.
package field

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/cronokirby/saferith"
)

var (
	// ErrInvalidModulus is returned when New is called with a non-prime modulus.
	ErrInvalidModulus = errors.New("field: modulus is not prime")
	// ErrFieldMismatch is returned when an operation mixes elements from two
	// different fields.
	ErrFieldMismatch = errors.New("field: element belongs to a different field")
	// ErrZeroInverse is returned when Invert is called on the zero element.
	ErrZeroInverse = errors.New("field: cannot invert zero")
	// ErrNotBlum is returned when Sqrt is called on a field whose modulus is
	// not a Blum prime.
	ErrNotBlum = errors.New("field: modulus is not a Blum prime (p mod 4 != 3)")
)

// Field is a prime field F_p.
type Field struct {
	p      *big.Int
	mod    *saferith.Modulus
	blum   bool
	bitLen int
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Field{}
)

// New constructs (or looks up) the field F_p. If blum is true, p must satisfy
// p ≡ 3 mod 4, otherwise ErrNotBlum is returned.
func New(p *big.Int, blum bool) (*Field, error) {
	if !p.ProbablyPrime(40) {
		return nil, ErrInvalidModulus
	}
	if blum {
		four := big.NewInt(4)
		three := big.NewInt(3)
		rem := new(big.Int).Mod(p, four)
		if rem.Cmp(three) != 0 {
			return nil, ErrNotBlum
		}
	}

	key := p.String()
	registryMu.Lock()
	defer registryMu.Unlock()
	if f, ok := registry[key]; ok {
		if blum && !f.blum {
			f.blum = true
		}
		return f, nil
	}

	f := &Field{
		p:      new(big.Int).Set(p),
		mod:    saferith.ModulusFromNat(new(saferith.Nat).SetBig(p, p.BitLen())),
		blum:   blum,
		bitLen: p.BitLen(),
	}
	registry[key] = f
	return f, nil
}

// FindPrime returns the smallest prime at or above lower, optionally
// restricted to Blum primes (p ≡ 3 mod 4). Mirrors viff/util.py's
// find_prime, which callers use to size a field from a bit-length and
// security parameter rather than hardcoding a modulus (e.g.
// find_prime(2**(l+k+1), blum=true)).
func FindPrime(lower *big.Int, blum bool) *big.Int {
	p := new(big.Int).Set(lower)
	if p.Sign() <= 0 {
		p.SetInt64(2)
	}
	if !blum {
		if p.Cmp(big.NewInt(2)) == 0 {
			return p
		}
		if p.Bit(0) == 0 {
			p.Add(p, big.NewInt(1))
		}
		for !p.ProbablyPrime(40) {
			p.Add(p, big.NewInt(2))
		}
		return p
	}

	four := big.NewInt(4)
	three := big.NewInt(3)
	rem := new(big.Int).Mod(p, four)
	diff := new(big.Int).Sub(three, rem)
	if diff.Sign() < 0 {
		diff.Add(diff, four)
	}
	p.Add(p, diff)
	for !p.ProbablyPrime(40) {
		p.Add(p, four)
	}
	return p
}

// Modulus returns the field's prime modulus.
func (f *Field) Modulus() *big.Int { return new(big.Int).Set(f.p) }

// Blum reports whether this field supports Sqrt.
func (f *Field) Blum() bool { return f.blum }

// BitLen returns the bit length of the modulus.
func (f *Field) BitLen() int { return f.bitLen }

// Zero returns the additive identity of f.
func (f *Field) Zero() *Element { return f.FromInt64(0) }

// One returns the multiplicative identity of f.
func (f *Field) One() *Element { return f.FromInt64(1) }

// FromInt64 builds an element from a signed int64, reducing mod p.
func (f *Field) FromInt64(v int64) *Element {
	bi := big.NewInt(v)
	bi.Mod(bi, f.p)
	return f.FromBigInt(bi)
}

// FromBigInt builds an element from a big.Int, reducing it into [0, p).
func (f *Field) FromBigInt(v *big.Int) *Element {
	r := new(big.Int).Mod(v, f.p)
	nat := new(saferith.Nat).SetBig(r, f.bitLen)
	return &Element{field: f, val: nat}
}

// FromUint64 builds an element from an unsigned integer.
func (f *Field) FromUint64(v uint64) *Element {
	nat := new(saferith.Nat).SetUint64(v)
	nat.Mod(nat, f.mod)
	return &Element{field: f, val: nat}
}

// FromBytes interprets buf as the big-endian encoding of a non-negative
// residue.
func (f *Field) FromBytes(buf []byte) *Element {
	bi := new(big.Int).SetBytes(buf)
	return f.FromBigInt(bi)
}

// RandomElement draws a uniform element of f using the supplied entropy
// source (crypto/rand.Reader in production code, a seeded PRNG in tests).
func (f *Field) RandomElement(src RandReader) (*Element, error) {
	buf := make([]byte, (f.bitLen+7)/8+8) // extra bytes to reduce sampling bias
	if _, err := src.Read(buf); err != nil {
		return nil, fmt.Errorf("field: sampling random element: %w", err)
	}
	return f.FromBytes(buf), nil
}

// RandReader is the minimal interface required to sample field elements;
// satisfied by crypto/rand.Reader and math/rand sources wrapped accordingly.
type RandReader interface {
	Read(p []byte) (n int, err error)
}

// Element is a value in a Field, always stored canonically in [0, p).
type Element struct {
	field *Field
	val   *saferith.Nat
}

// Field returns the field this element belongs to.
func (a *Element) Field() *Field { return a.field }

func (a *Element) sameField(b *Element) error {
	if a.field != b.field {
		return ErrFieldMismatch
	}
	return nil
}

// Big returns the canonical residue as a big.Int.
func (a *Element) Big() *big.Int { return a.val.Big() }

// Bytes returns the big-endian encoding of the canonical residue, unpadded.
func (a *Element) Bytes() []byte { return a.Big().Bytes() }

// String renders the element as ASCII "0x" + hex. It is a textual form
// only: the runtime sends Bytes(), the unpadded big-endian residue, as the
// wire payload, not this string.
func (a *Element) String() string { return fmt.Sprintf("0x%x", a.Big()) }

// IsZero reports whether a is the additive identity.
func (a *Element) IsZero() bool { return a.Big().Sign() == 0 }

// Equal reports whether a and b hold the same canonical residue in the same
// field.
func (a *Element) Equal(b *Element) bool {
	if a.field != b.field {
		return false
	}
	return a.val.Eq(b.val) == 1
}

// Add returns a+b.
func (a *Element) Add(b *Element) (*Element, error) {
	if err := a.sameField(b); err != nil {
		return nil, err
	}
	r := new(saferith.Nat).ModAdd(a.val, b.val, a.field.mod)
	return &Element{field: a.field, val: r}, nil
}

// Sub returns a-b.
func (a *Element) Sub(b *Element) (*Element, error) {
	if err := a.sameField(b); err != nil {
		return nil, err
	}
	r := new(saferith.Nat).ModSub(a.val, b.val, a.field.mod)
	return &Element{field: a.field, val: r}, nil
}

// Mul returns a*b.
func (a *Element) Mul(b *Element) (*Element, error) {
	if err := a.sameField(b); err != nil {
		return nil, err
	}
	r := new(saferith.Nat).ModMul(a.val, b.val, a.field.mod)
	return &Element{field: a.field, val: r}, nil
}

// Neg returns -a.
func (a *Element) Neg() *Element {
	zero := new(saferith.Nat).SetUint64(0)
	r := new(saferith.Nat).ModSub(zero, a.val, a.field.mod)
	return &Element{field: a.field, val: r}
}

// Invert returns a^-1. Fails with ErrZeroInverse on the zero element.
func (a *Element) Invert() (*Element, error) {
	if a.IsZero() {
		return nil, ErrZeroInverse
	}
	r := new(saferith.Nat).ModInverse(a.val, a.field.mod)
	return &Element{field: a.field, val: r}, nil
}

// Div returns a/b = a * b^-1.
func (a *Element) Div(b *Element) (*Element, error) {
	if err := a.sameField(b); err != nil {
		return nil, err
	}
	inv, err := b.Invert()
	if err != nil {
		return nil, err
	}
	return a.Mul(inv)
}

// AddInt returns a + int64(v).
func (a *Element) AddInt(v int64) (*Element, error) {
	return a.Add(a.field.FromInt64(v))
}

// MulInt returns a * int64(v).
func (a *Element) MulInt(v int64) (*Element, error) {
	return a.Mul(a.field.FromInt64(v))
}

// Pow returns a^e for e >= 0, by repeated squaring.
func (a *Element) Pow(e *big.Int) (*Element, error) {
	if e.Sign() < 0 {
		return nil, fmt.Errorf("field: negative exponent %s not supported", e)
	}
	eNat := new(saferith.Nat).SetBig(e, e.BitLen())
	r := new(saferith.Nat).Exp(a.val, eNat, a.field.mod)
	return &Element{field: a.field, val: r}, nil
}

// Sqrt returns the principal square root of a for a Blum prime field, via
// a^((p+1)/4) mod p. Fails with ErrNotBlum when the field does not support it.
func (a *Element) Sqrt() (*Element, error) {
	if !a.field.blum {
		return nil, ErrNotBlum
	}
	exp := new(big.Int).Add(a.field.p, big.NewInt(1))
	exp.Div(exp, big.NewInt(4))
	return a.Pow(exp)
}

// Legendre returns the Legendre symbol of a: 0 if a is zero, 1 if a is a
// nonzero quadratic residue, -1 otherwise. Used by the probabilistic
// equality test (spec.md §4.6's quadratic-residue branch of equal()).
func (a *Element) Legendre() (int, error) {
	if a.IsZero() {
		return 0, nil
	}
	exp := new(big.Int).Sub(a.field.p, big.NewInt(1))
	exp.Div(exp, big.NewInt(2))
	r, err := a.Pow(exp)
	if err != nil {
		return 0, err
	}
	if r.Big().Cmp(big.NewInt(1)) == 0 {
		return 1, nil
	}
	return -1, nil
}

// Bit returns bit i of the integer representative of a (0 or 1).
func (a *Element) Bit(i int) uint {
	return a.Big().Bit(i)
}

// Signed returns the representative of a in (-p/2, p/2].
func (a *Element) Signed() *big.Int {
	v := a.Big()
	half := new(big.Int).Rsh(a.field.p, 1)
	if v.Cmp(half) > 0 {
		return new(big.Int).Sub(v, a.field.p)
	}
	return v
}

// Xor computes bitwise XOR on the integer representatives of a and b. Only
// meaningful when both operands are known to be 0 or 1.
func (a *Element) Xor(b *Element) (*Element, error) {
	if err := a.sameField(b); err != nil {
		return nil, err
	}
	x := a.Big().Uint64() ^ b.Big().Uint64()
	return a.field.FromUint64(x), nil
}
