package runtime

import (
	"math/big"

	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/share"
)

// PassiveRuntime is the passively-secure protocol suite of spec.md §4.6,
// grounded throughout on viff/passive.py's PassiveRuntime.
type PassiveRuntime struct {
	*Runtime
}

// NewPassive wraps rt with the arithmetic/opening/comparison protocol
// suite.
func NewPassive(rt *Runtime) *PassiveRuntime {
	return &PassiveRuntime{Runtime: rt}
}

// ShamirShare secret-shares value (non-nil only at the inputter) and
// returns every player's point of it.
func (rt *PassiveRuntime) ShamirShare(inputter party.ID, value *field.Element) *share.Share {
	pcv := rt.spawnPC()
	return rt.shamirShareOp(pcv, inputter, value)
}

// Input is an alias for ShamirShare, matching spec.md's naming of the
// user-facing entry point onto shamir_share.
func (rt *PassiveRuntime) Input(inputter party.ID, value *field.Element) *share.Share {
	return rt.ShamirShare(inputter, value)
}

// Open reveals a to receivers (every player, by default), recombining from
// degree+1 points (the runtime's threshold, by default — pass a larger
// degree to open a value of higher polynomial degree directly, as Invert
// and EqualZeroPublic do for their pre-resharing products).
func (rt *PassiveRuntime) Open(a *share.Share, receivers party.IDSlice, degree int) *share.Share {
	return rt.openWithPC(rt.spawnPC(), a, receivers, degree)
}

// Output is an alias for Open, matching spec.md's naming of the
// user-facing entry point.
func (rt *PassiveRuntime) Output(a *share.Share, receivers party.IDSlice) *share.Share {
	return rt.Open(a, receivers, -1)
}

// Add, Sub and Neg require no communication: they delegate straight to
// pkg/share's local combinators.
func (rt *PassiveRuntime) Add(a, b *share.Share) *share.Share { return a.Add(b) }
func (rt *PassiveRuntime) Sub(a, b *share.Share) *share.Share { return a.Sub(b) }
func (rt *PassiveRuntime) Neg(a *share.Share) *share.Share    { return a.Neg() }

// Mul multiplies two shares, reducing the resulting polynomial's degree
// back to t via one round of resharing (spec.md §4.6; passive.py's mul via
// __share_recombine).
func (rt *PassiveRuntime) Mul(a, b *share.Share) *share.Share {
	return rt.mulWithPC(rt.spawnPC(), a, b)
}

// Invert returns a^-1 for a != 0: sample a fresh random share r, open
// a*r (directly, at its natural degree 2t — no resharing needed since it
// is immediately consumed by Open, not reused as a share), and scale r by
// the inverse of the opened product. Retries if the opened product is
// zero (only possible when a itself is zero, or with negligible
// probability over the choice of r).
func (rt *PassiveRuntime) Invert(a *share.Share) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		for {
			r := rt.randomWithPC(childPC(pcv))
			av, err := a.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			rv, err := r.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			prod, err := av.Mul(rv)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			opened := rt.openWithPC(childPC(pcv), share.Resolved(prod), nil, 2*rt.opts.Threshold)
			arVal, err := opened.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			if arVal.IsZero() {
				continue
			}
			arInv, err := arVal.Invert()
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			result, err := arInv.Mul(rv)
			out.Resolve(result, err)
			return
		}
	}()
	return out
}

// EqualZeroPublic publicly reveals whether a's secret is zero, by opening
// a*r for a fresh random r at degree 2t: masks a's value unless it is
// already zero. The returned Share resolves, once the opening completes, to
// the public value 1 (equal to zero) or 0.
func (rt *PassiveRuntime) EqualZeroPublic(a *share.Share) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		r := rt.randomWithPC(childPC(pcv))
		av, err := a.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		rv, err := r.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		prod, err := av.Mul(rv)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		opened := rt.openWithPC(childPC(pcv), share.Resolved(prod), nil, 2*rt.opts.Threshold)
		c, err := opened.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		if c.IsZero() {
			out.Resolve(rt.field.One(), nil)
		} else {
			out.Resolve(rt.field.Zero(), nil)
		}
	}()
	return out
}

// EqualPublic is public equality, defined as EqualZeroPublic(a-b).
func (rt *PassiveRuntime) EqualPublic(a, b *share.Share) *share.Share {
	return rt.EqualZeroPublic(a.Sub(b))
}

// Random returns this player's point of a fresh uniformly random element
// of the runtime's field, drawn non-interactively via PRSS (spec.md §4.7).
func (rt *PassiveRuntime) Random() *share.Share {
	return rt.randomWithPC(rt.spawnPC())
}

// RandomMax returns this player's point of a fresh random element built
// from PRF outputs reduced mod max, summed over the PRSS subsets (see
// prss.PRSS.EvalMax), and reduced into the runtime's field. The value is
// not confined to [0, max) when there is more than one PRSS subset.
func (rt *PassiveRuntime) RandomMax(max *big.Int) *share.Share {
	return rt.randomMaxWithPC(rt.spawnPC(), max)
}

// RandomDouble returns correlated shares of the same underlying random
// value, reduced into the runtime's own field and into f2 simultaneously
// (passive.py's random_double_max), so a caller needing randomness in two
// fields at once — e.g. a bit-field/working-field conversion — doesn't pay
// for a second interactive round.
func (rt *PassiveRuntime) RandomDouble(f2 *field.Field) (*share.Share, *share.Share) {
	pcv := rt.spawnPC()
	pcv.Increment()
	tag := pcv.Tag()
	v1, v2, err := rt.prss.EvalDouble(tag, rt.field, f2)
	if err != nil {
		return share.Failed(rt.field, err), share.Failed(f2, err)
	}
	return share.Resolved(v1), share.Resolved(v2)
}

// Pow computes a^n by square-and-multiply, n a public non-negative integer
// (passive.py's pow): every recursive step is a plain Mul, called
// synchronously in the same recursive order at every player, so it composes
// with the rest of the protocol suite's deterministic tag sequencing
// without any special-casing.
func (rt *PassiveRuntime) Pow(a *share.Share, n int) *share.Share {
	if n == 0 {
		return share.Resolved(rt.field.One())
	}
	if n%2 == 0 {
		t := rt.Pow(a, n/2)
		return rt.Mul(t, t)
	}
	return rt.Mul(a, rt.Pow(a, n-1))
}

// RandomBit returns a fresh uniformly random shared bit (0 or 1):
// sample a via PRSS, open a^2 directly (degree 2t), and if it is nonzero,
// the bit is (a/sqrt(a^2) + 1) / 2. Retries on the negligible-probability
// zero opening.
func (rt *PassiveRuntime) RandomBit() *share.Share {
	return rt.randomBitWithPC(rt.spawnPC())
}
