package runtime

import (
	"math/big"

	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/pc"
	"github.com/luxfi/mpc/pkg/shamir"
	"github.com/luxfi/mpc/pkg/share"
)

// childPC derives an independent, privately-owned child ProgramCounter from
// parent, which parent itself may be a private (already-forked) copy: a
// single Increment claims this child's sibling slot at parent's current
// level, then a Fork/Clone/Unfork isolates its own counter subtree, exactly
// like Runtime.spawnPC but without the shared-state lock, since a compound
// protocol's own pcv is never touched by any other goroutine.
//
// This is how every compound operation (Sgn, equalQR, RandomBit, Lsb,
// Invert, EqualZeroPublic, Prod) hands each of its nested network
// sub-steps a distinct, deterministic tag without ever touching the
// Runtime's shared program counter a second time: two sibling top-level
// calls (e.g. two RandomBit() calls in a loop) each claim one slot there
// synchronously, and everything each one does afterwards, however many
// rounds or retries, stays inside its own private subtree.
func childPC(parent *pc.ProgramCounter) *pc.ProgramCounter {
	parent.Increment()
	parent.Fork()
	child := parent.Clone()
	parent.Unfork()
	return child
}

func (rt *Runtime) randomWithPC(pcv *pc.ProgramCounter) *share.Share {
	pcv.Increment()
	tag := pcv.Tag()
	v, err := rt.prss.Eval(tag, rt.field)
	if err != nil {
		return share.Failed(rt.field, err)
	}
	return share.Resolved(v)
}

func (rt *Runtime) randomMaxWithPC(pcv *pc.ProgramCounter, max *big.Int) *share.Share {
	pcv.Increment()
	tag := pcv.Tag()
	v, err := rt.prss.EvalMax(tag, rt.field, max)
	if err != nil {
		return share.Failed(rt.field, err)
	}
	return share.Resolved(v)
}

// openWithPC opens a's shared value to receivers, reconstructing it in a's
// own field rather than the runtime's working field: RandomDouble hands out
// a correlated share in a second field precisely so it can be used (and
// opened) entirely within that field.
func (rt *Runtime) openWithPC(pcv *pc.ProgramCounter, a *share.Share, receivers party.IDSlice, degree int) *share.Share {
	if receivers == nil {
		receivers = rt.registry.IDs()
	}
	if degree < 0 {
		degree = rt.opts.Threshold
	}
	pcv.Increment()
	tag := pcv.Tag()

	f := a.Field()
	out := share.New(f)
	go func() {
		v, err := a.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}

		for _, r := range receivers {
			if r == rt.registry.Self {
				continue
			}
			if err := rt.sendTo(r, tag, v.Bytes()); err != nil {
				out.Resolve(nil, err)
				return
			}
		}

		if !receivers.Contains(rt.registry.Self) {
			out.Resolve(f.Zero(), nil)
			return
		}

		need := degree + 1
		points := make([]shamir.Point, 0, need)
		points = append(points, shamir.Point{X: f.FromInt64(int64(rt.registry.Self)), Y: v})
		for _, id := range rt.registry.Other() {
			if len(points) >= need {
				break
			}
			payload, err := rt.recvFrom(rt.ctx, id, tag)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			points = append(points, shamir.Point{X: f.FromInt64(int64(id)), Y: f.FromBytes(payload)})
		}

		result, err := shamir.Recombine(points, nil)
		out.Resolve(result, err)
	}()
	return out
}

func (rt *Runtime) mulWithPC(pcv *pc.ProgramCounter, a, b *share.Share) *share.Share {
	out := share.New(rt.field)
	go func() {
		av, err := a.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		bv, err := b.Await(rt.ctx)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		local, err := av.Mul(bv)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		v, err := rt.reshare(pcv, local)
		out.Resolve(v, err)
	}()
	return out
}

func (rt *Runtime) prodWithPC(pcv *pc.ProgramCounter, xs []*share.Share) *share.Share {
	if len(xs) == 0 {
		return share.Resolved(rt.field.One())
	}
	cur := xs
	for len(cur) > 1 {
		next := make([]*share.Share, 0, (len(cur)+1)/2)
		i := 0
		for ; i+1 < len(cur); i += 2 {
			next = append(next, rt.mulWithPC(childPC(pcv), cur[i], cur[i+1]))
		}
		if i < len(cur) {
			next = append(next, cur[i])
		}
		cur = next
	}
	return cur[0]
}

func (rt *Runtime) randomBitWithPC(pcv *pc.ProgramCounter) *share.Share {
	out := share.New(rt.field)
	go func() {
		f := rt.field
		twoInv, err := f.FromInt64(2).Invert()
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		for {
			a := rt.randomWithPC(childPC(pcv))
			aVal, err := a.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			aSq, err := aVal.Mul(aVal)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			opened := rt.openWithPC(childPC(pcv), share.Resolved(aSq), nil, 2*rt.opts.Threshold)
			c, err := opened.Await(rt.ctx)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			if c.IsZero() {
				continue
			}
			root, err := c.Sqrt()
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			ratio, err := aVal.Div(root)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			plusOne, err := ratio.AddInt(1)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			result, err := plusOne.Mul(twoInv)
			out.Resolve(result, err)
			return
		}
	}()
	return out
}
