// Package prss implements pseudo-random secret sharing: non-interactive
// generation of a fresh Shamir share from key material pre-distributed to
// every maximal unqualified subset of players (spec.md §4.7).
//
// For each subset S with |S| = n-t that contains the local player, every
// member of S holds the same key. Keyed on that subset's key and the
// current program-counter tag, every player in S evaluates the same
// pseudo-random value f_S(tag); player i's share of the sum is
// Σ_{S∋i} f_S(tag) · e_S(i), where e_S(x) is the fixed polynomial that
// vanishes at the t points not in S and is normalised to 1 at x=0 (the
// secret point) — so each term is itself a degree-t Shamir sharing of
// f_S(tag), and the sum of sharings is a sharing of the sum.
package prss

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"
	"math/big"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/hkdf"

	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/pc"
)

// ErrMissingKeys is returned when the local player has no key for a
// maximal unqualified subset it belongs to.
var ErrMissingKeys = fmt.Errorf("prss: missing key material for a required subset")

// ErrPrecondition is returned when a configured key subset containing the
// local player does not have size n-t, whether the threshold is too low or
// too high for it (spec.md §4.7's t >= n - |S| assertion).
var ErrPrecondition = fmt.Errorf("prss: threshold does not match configured PRSS key subset size")

type subsetKey struct {
	complement party.IDSlice // the t players NOT in this subset
	prfKey     [32]byte
}

// PRSS evaluates pseudo-random shares for one player.
type PRSS struct {
	self    party.ID
	players party.IDSlice
	t       int
	subsets []subsetKey
}

// New derives a PRSS evaluator from the local player's raw per-subset key
// material (as loaded from its INI config's prss_keys subsection, keyed by
// party.IDSlice.Key of the subset).
func New(self party.ID, players party.IDSlice, t int, rawKeys map[string][]byte) (*PRSS, error) {
	n := len(players)
	p := &PRSS{self: self, players: players.Sorted(), t: t}

	for subsetStr, raw := range rawKeys {
		subset, err := parseSubset(subsetStr)
		if err != nil {
			return nil, err
		}
		if !subset.Contains(self) {
			continue
		}
		if n-len(subset) != t {
			return nil, fmt.Errorf("%w: subset %q has size %d, want %d", ErrPrecondition, subsetStr, len(subset), n-t)
		}
		complement := make(party.IDSlice, 0, t)
		for _, id := range p.players {
			if !subset.Contains(id) {
				complement = append(complement, id)
			}
		}
		key, err := derivePRFKey(raw, subsetStr)
		if err != nil {
			return nil, err
		}
		p.subsets = append(p.subsets, subsetKey{complement: complement, prfKey: key})
	}

	if len(p.subsets) == 0 {
		return nil, ErrMissingKeys
	}
	return p, nil
}

func parseSubset(s string) (party.IDSlice, error) {
	var ids party.IDSlice
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				id, err := party.ParseID(s[start:i])
				if err != nil {
					return nil, fmt.Errorf("prss: parsing subset %q: %w", s, err)
				}
				ids = append(ids, id)
			}
			start = i + 1
		}
	}
	return ids, nil
}

// derivePRFKey stretches the raw configured key bytes into a 32-byte BLAKE3
// key via HKDF-SHA256, domain-separated by the subset string, so that the
// same raw key material can never collide across different subsets.
func derivePRFKey(raw []byte, info string) ([32]byte, error) {
	var out [32]byte
	r := hkdf.New(sha256.New, raw, nil, []byte("luxfi/mpc/prss:"+info))
	if _, err := io.ReadFull(r, out[:]); err != nil {
		return out, fmt.Errorf("prss: deriving key: %w", err)
	}
	return out, nil
}

// prf evaluates the keyed pseudo-random function on tag, returning a wide
// uniform byte string to reduce into a field/modulus.
func prf(key [32]byte, tag pc.Tag, extra string) []byte {
	h, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed only fails on a wrong-length key, which derivePRFKey
		// guarantees cannot happen.
		panic(fmt.Sprintf("prss: blake3.NewKeyed: %v", err))
	}
	_, _ = h.Write([]byte(tag.String()))
	if extra != "" {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(extra))
	}
	return h.Sum(nil)
}

// hmacPRF is used where a second, independent stream is needed from the
// same key (the correlated two-field variant), to avoid any risk of the
// two outputs being trivially related.
func hmacPRF(key [32]byte, tag pc.Tag, label string) []byte {
	mac := hmac.New(sha256.New, key[:])
	_, _ = mac.Write([]byte(label))
	_, _ = mac.Write([]byte(tag.String()))
	return mac.Sum(nil)
}

// eAt evaluates e_S(i) = Prod_{j in complement} (i-j)/(0-j) in field f.
func eAt(f *field.Field, complement party.IDSlice, i party.ID) (*field.Element, error) {
	acc := f.One()
	x := f.FromInt64(int64(i))
	zero := f.Zero()
	for _, j := range complement {
		xj := f.FromInt64(int64(j))
		num, err := x.Sub(xj)
		if err != nil {
			return nil, err
		}
		den, err := zero.Sub(xj)
		if err != nil {
			return nil, err
		}
		term, err := num.Div(den)
		if err != nil {
			return nil, err
		}
		acc, err = acc.Mul(term)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// Eval returns this player's share of a uniformly random element of f,
// fresh for the given tag.
func (p *PRSS) Eval(tag pc.Tag, f *field.Field) (*field.Element, error) {
	acc := f.Zero()
	for _, sk := range p.subsets {
		raw := prf(sk.prfKey, tag, "")
		contribution := f.FromBytes(raw)
		weight, err := eAt(f, sk.complement, p.self)
		if err != nil {
			return nil, err
		}
		term, err := contribution.Mul(weight)
		if err != nil {
			return nil, err
		}
		acc, err = acc.Add(term)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// EvalMax returns this player's share of a random element built from PRF
// outputs reduced mod max (random_max of spec.md §4.6): each subset's output
// is reduced mod max before weighting, so the shared value is the sum of one
// such value per subset, lying in [0, s*(max-1)] for s subsets. It is not
// confined to [0, max) when the player set has more than one subset.
func (p *PRSS) EvalMax(tag pc.Tag, f *field.Field, max *big.Int) (*field.Element, error) {
	acc := f.Zero()
	for _, sk := range p.subsets {
		raw := prf(sk.prfKey, tag, max.String())
		v := new(big.Int).SetBytes(raw)
		v.Mod(v, max)
		contribution := f.FromBigInt(v)
		weight, err := eAt(f, sk.complement, p.self)
		if err != nil {
			return nil, err
		}
		term, err := contribution.Mul(weight)
		if err != nil {
			return nil, err
		}
		acc, err = acc.Add(term)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// EvalDouble returns correlated shares of the same uniform value in two
// different fields simultaneously: Eval in f1, and an independently
// derived-but-correlated value in f2. The two resulting shares open (were
// they opened) to field-appropriate reductions of the very same underlying
// PRF outputs, which is what "correlated" means here: a caller combining
// both gets consistent randomness without an extra round.
func (p *PRSS) EvalDouble(tag pc.Tag, f1, f2 *field.Field) (*field.Element, *field.Element, error) {
	acc1, acc2 := f1.Zero(), f2.Zero()
	for _, sk := range p.subsets {
		raw1 := prf(sk.prfKey, tag, f1.Modulus().String())
		raw2 := hmacPRF(sk.prfKey, tag, f2.Modulus().String())
		c1 := f1.FromBytes(raw1)
		c2 := f2.FromBytes(raw2)

		w1, err := eAt(f1, sk.complement, p.self)
		if err != nil {
			return nil, nil, err
		}
		w2, err := eAt(f2, sk.complement, p.self)
		if err != nil {
			return nil, nil, err
		}
		t1, err := c1.Mul(w1)
		if err != nil {
			return nil, nil, err
		}
		t2, err := c2.Mul(w2)
		if err != nil {
			return nil, nil, err
		}
		acc1, err = acc1.Add(t1)
		if err != nil {
			return nil, nil, err
		}
		acc2, err = acc2.Add(t2)
		if err != nil {
			return nil, nil, err
		}
	}
	return acc1, acc2, nil
}
