package runtime

import (
	"context"

	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/party"
	"github.com/luxfi/mpc/pkg/pc"
	"github.com/luxfi/mpc/pkg/shamir"
	"github.com/luxfi/mpc/pkg/share"
)

// awaitAll blocks for every share in xs to resolve, preserving order.
func awaitAll(ctx context.Context, xs []*share.Share) ([]*field.Element, error) {
	out := make([]*field.Element, len(xs))
	for i, x := range xs {
		v, err := x.Await(ctx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// shamirShareOp is the single-inputter Shamir-sharing primitive every
// protocol built on resharing (Mul, InProd, MatrixProd, SchurProd,
// ScalarMul, Gauss) drives once per player it reshares through. pcv is the
// caller's already-forked private ProgramCounter; shamirShareOp advances it
// by exactly one Increment, so a caller looping over several inputters with
// the same pcv gets one distinct tag per inputter, deterministically,
// because every honest player runs the same loop in the same order
// (spec.md §5).
func (rt *Runtime) shamirShareOp(pcv *pc.ProgramCounter, inputter party.ID, value *field.Element) *share.Share {
	pcv.Increment()
	tag := pcv.Tag()
	out := share.New(rt.field)

	go func() {
		if rt.registry.Self == inputter {
			points, err := shamir.ShareWithRand(value, rt.opts.Threshold, rt.registry.N(), rt.randSrc)
			if err != nil {
				out.Resolve(nil, err)
				return
			}
			var mine *field.Element
			for idx, id := range rt.registry.IDs() {
				p := points[idx]
				if id == rt.registry.Self {
					mine = p.Y
					continue
				}
				if err := rt.sendTo(id, tag, p.Y.Bytes()); err != nil {
					out.Resolve(nil, err)
					return
				}
			}
			out.Resolve(mine, nil)
			return
		}

		payload, err := rt.recvFrom(rt.ctx, inputter, tag)
		if err != nil {
			out.Resolve(nil, err)
			return
		}
		out.Resolve(rt.field.FromBytes(payload), nil)
	}()
	return out
}

// reshare is the degree-reduction step common to every multiplication-like
// protocol: every player reshares its own local (possibly degree-2t) value
// as a fresh degree-t secret, and the caller's point of the product is the
// Lagrange recombination, at x=0, of the first 2t+1 of those resharings in
// player-id order — grounded on passive.py's __share_recombine, which
// reshares through all n players but recombines only the first 2t+1
// results.
func (rt *Runtime) reshare(pcv *pc.ProgramCounter, local *field.Element) (*field.Element, error) {
	ids := rt.registry.IDs()
	need := 2*rt.opts.Threshold + 1
	if need > len(ids) {
		need = len(ids)
	}

	reshared := make([]*share.Share, len(ids))
	for idx, id := range ids {
		var v *field.Element
		if id == rt.registry.Self {
			v = local
		}
		reshared[idx] = rt.shamirShareOp(pcv, id, v)
	}

	points := make([]shamir.Point, 0, need)
	for idx := 0; idx < need; idx++ {
		v, err := reshared[idx].Await(rt.ctx)
		if err != nil {
			return nil, err
		}
		points = append(points, shamir.Point{X: rt.field.FromInt64(int64(ids[idx])), Y: v})
	}
	return shamir.Recombine(points, nil)
}
