// Comparison protocols of spec.md §4.6, grounded on passive.py's sgn,
// equal, _equal and lsb.
package runtime

import (
	"math/big"

	"github.com/luxfi/mpc/pkg/share"
)

// Sgn computes the bit-decomposition-free sign/equality test of a. With
// eq=true it returns 1 if a == 0 else 0 (skipping the sign machinery
// entirely). With ge=true it returns the raw sign bit without folding in
// the equality branch. With both false it returns the signed three-valued
// comparison result used by greater-than/less-than composites.
//
// Every nested random/open/product sub-step below is drawn from pcv's own
// private subtree (via childPC), never from the shared runtime counter:
// that keeps the whole protocol's tag sequence deterministic across
// players regardless of how its internal goroutines happen to get
// scheduled.
func (rt *PassiveRuntime) Sgn(a *share.Share, eq, ge bool) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		f := rt.field
		l := rt.opts.BitLength
		k := rt.opts.SecurityParameter

		rBits := make([]*share.Share, l)
		for i := range rBits {
			rBits[i] = rt.randomBitWithPC(childPC(pcv))
		}
		rModl := rt.BinComb(rBits)
		rDivl := rt.randomMaxWithPC(childPC(pcv), new(big.Int).Lsh(big.NewInt(1), uint(k)))

		twoL := new(big.Int).Lsh(big.NewInt(1), uint(l))
		twoLElem := f.FromBigInt(twoL)

		aRmodl := a.AddConst(twoLElem).Add(rModl)
		scaledRdivl := rDivl.MulConst(twoLElem)
		toOpen := aRmodl.Add(scaledRdivl)

		opened := rt.openWithPC(childPC(pcv), toOpen, nil, -1)
		c, err := opened.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}

		xors := make([]*share.Share, l)
		for i := 0; i < l; i++ {
			if c.Bit(i) == 1 {
				xors[i] = rBits[i].Neg().AddConst(f.One())
			} else {
				xors[i] = rBits[i]
			}
		}

		var z *share.Share
		if !eq {
			sBit := rt.randomBitWithPC(childPC(pcv))
			sSign := sBit.MulConst(f.FromInt64(-2)).AddConst(f.One())
			mask := rt.randomWithPC(childPC(pcv))

			E := make([]*share.Share, 0, l+2)
			E = append(E, mask)
			var sumXors *share.Share
			for i := l - 1; i >= 0; i-- {
				term := sSign.Add(rBits[i]).AddConst(f.FromInt64(-int64(c.Bit(i))))
				if sumXors != nil {
					term = term.Add(sumXors.MulConst(f.FromInt64(3)))
				}
				E = append(E, term)
				if sumXors == nil {
					sumXors = xors[i]
				} else {
					sumXors = sumXors.Add(xors[i])
				}
			}
			last := sSign.AddConst(f.FromInt64(-1))
			if sumXors != nil {
				last = last.Add(sumXors.MulConst(f.FromInt64(3)))
			}
			E = append(E, last)

			fOpened := rt.openWithPC(childPC(pcv), rt.prodWithPC(childPC(pcv), E), nil, -1)
			fVal, err := fOpened.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}

			// UF = (f != 0) XOR s_bit (passive.py's sgn). f is public (just
			// opened); s_bit is not — it stays a Share throughout, combined
			// with the public bit via the XOR-with-a-constant identity
			// c XOR b = c + b*(1-2c), the same affine trick Lsb uses below.
			fNonZero := int64(0)
			if !fVal.IsZero() {
				fNonZero = 1
			}
			fElem := f.FromInt64(fNonZero)
			oneMinus2f := f.FromInt64(1 - 2*fNonZero)
			uf := sBit.MulConst(oneMinus2f).AddConst(fElem)

			cModL := new(big.Int).Mod(c.Big(), twoL)
			cModLElem := f.FromBigInt(cModL)
			total := share.Resolved(cModLElem).Add(uf.MulConst(twoLElem))

			twoLInv, err := twoLElem.Invert()
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			z = aRmodl.Sub(total).MulConst(twoLInv)
		}

		if !ge {
			ones := make([]*share.Share, l)
			for i := range xors {
				ones[i] = xors[i].Neg().AddConst(f.One())
			}
			h := rt.prodWithPC(childPC(pcv), ones)
			if eq {
				z = h
			} else {
				oneMinusH := h.Neg().AddConst(f.One())
				twoZMinus1 := z.MulConst(f.FromInt64(2)).AddConst(f.FromInt64(-1))
				z = rt.mulWithPC(childPC(pcv), oneMinusH, twoZMinus1)
			}
		}

		zVal, err := z.Await(rt.ctx)
		out.Resolve(zVal, err)
	}()
	return out
}

// GreaterThanEqual returns the shared sign bit of a-b: 1 if a >= b.
func (rt *PassiveRuntime) GreaterThanEqual(a, b *share.Share) *share.Share {
	return rt.Sgn(a.Sub(b), false, true)
}

// Equal tests a == b, dispatching to the cheaper protocol for the
// configured bit length and security parameter, exactly as passive.py's
// equal() does.
func (rt *PassiveRuntime) Equal(a, b *share.Share) *share.Share {
	if rt.opts.BitLength < 2*rt.opts.SecurityParameter {
		return rt.Sgn(a.Sub(b), true, false)
	}
	return rt.equalQR(a, b)
}

// equalQR is the probabilistic quadratic-residue equality test of
// passive.py's _equal, after Nishide and Ohta's "Constant-Round Multiparty
// Computation for Interval Test, Equality Test, and Comparison": fails with
// probability 2^-k. Returns a secret-shared boolean, not an opened one.
func (rt *PassiveRuntime) equalQR(a, b *share.Share) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		f := rt.field
		d := a.Sub(b)
		k := rt.opts.SecurityParameter

		xs := make([]*share.Share, k)
		for i := 0; i < k; {
			z := rt.randomBitWithPC(childPC(pcv))
			r := rt.randomWithPC(childPC(pcv))
			rp := rt.randomWithPC(childPC(pcv))

			oneMinus2z := z.MulConst(f.FromInt64(-2)).AddConst(f.One())
			dr := rt.mulWithPC(childPC(pcv), d, r)
			rpSq := rt.mulWithPC(childPC(pcv), rp, rp)
			term2 := rt.mulWithPC(childPC(pcv), oneMinus2z, rpSq)
			toOpen := dr.Add(term2)

			opened := rt.openWithPC(childPC(pcv), toOpen, nil, -1)
			c, err := opened.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			if c.IsZero() {
				continue
			}
			leg, err := c.Legendre()
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			if leg == 1 {
				xs[i] = z.Neg().AddConst(f.One())
			} else {
				xs[i] = z
			}
			i++
		}

		e := rt.prodWithPC(childPC(pcv), xs)
		ev, err := e.Await(rt.ctx)
		out.Resolve(ev, err)
	}()
	return out
}

// Lsb returns the least significant bit of a (the [ST06] LSB gate): mask a
// with a fresh random bit and a random multiple of 2, open, and strip the
// mask's own LSB back out via a local XOR.
func (rt *PassiveRuntime) Lsb(a *share.Share) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		f := rt.field
		l := rt.opts.BitLength
		k := rt.opts.SecurityParameter

		b := rt.randomBitWithPC(childPC(pcv))
		max := new(big.Int).Lsh(big.NewInt(1), uint(l+k))
		r := rt.randomMaxWithPC(childPC(pcv), max)

		sum := a.Add(b).Add(r.MulConst(f.FromInt64(2)))
		opened := rt.openWithPC(childPC(pcv), sum, nil, -1)
		c, err := opened.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		bVal, err := b.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}

		cBit0 := f.FromInt64(int64(c.Bit(0)))
		sumv, err := cBit0.Add(bVal)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		prod, err := cBit0.Mul(bVal)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		prod2, err := prod.MulInt(2)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		result, err := sumv.Sub(prod2)
		out.Resolve(result, err)
	}()
	return out
}
