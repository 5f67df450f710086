package runtime

import (
	"context"

	"github.com/luxfi/mpc/pkg/field"
	"github.com/luxfi/mpc/pkg/pc"
	"github.com/luxfi/mpc/pkg/share"
)

// Sum adds every element of xs locally; no communication.
func (rt *PassiveRuntime) Sum(xs []*share.Share) *share.Share {
	if len(xs) == 0 {
		return share.Resolved(rt.field.Zero())
	}
	acc := xs[0]
	for _, x := range xs[1:] {
		acc = acc.Add(x)
	}
	return acc
}

// LinComb computes the dot product of public coefficients with shared xs,
// locally: scaling by a public constant preserves polynomial degree, so no
// resharing is needed (passive.py's lin_comb).
func (rt *PassiveRuntime) LinComb(coeffs []*field.Element, xs []*share.Share) *share.Share {
	terms := make([]*share.Share, len(xs))
	for i := range xs {
		terms[i] = xs[i].MulConst(coeffs[i])
	}
	return rt.Sum(terms)
}

// BinComb computes the dot product of shared bits with ascending powers of
// two, locally (passive.py's bin_comb): s = x[n-1]*2^(n-1) + ... + x[0].
func (rt *PassiveRuntime) BinComb(bits []*share.Share) *share.Share {
	if len(bits) == 0 {
		return share.Resolved(rt.field.Zero())
	}
	two := rt.field.FromInt64(2)
	acc := share.Resolved(rt.field.Zero())
	for i := len(bits) - 1; i >= 0; i-- {
		acc = acc.MulConst(two).Add(bits[i])
	}
	return acc
}

// Prod multiplies every element of xs via a balanced pairwise tree of Mul
// calls, halving the working set every round (passive.py's prod).
func (rt *PassiveRuntime) Prod(xs []*share.Share) *share.Share {
	return rt.prodWithPC(rt.spawnPC(), xs)
}

// InProd computes the dot product of x and y using a single round of
// resharing, regardless of vector length (passive.py's in_prod): the local
// sum of pointwise products has degree 2t, exactly like one Mul, so only
// one resharing is needed for the whole vector.
func (rt *PassiveRuntime) InProd(x, y []*share.Share) *share.Share {
	pcv := rt.spawnPC()
	out := share.New(rt.field)
	go func() {
		v, err := rt.inProdWithPC(context.Background(), pcv, x, y)
		out.Resolve(v, err)
	}()
	return out
}

// inProdWithPC runs InProd's await-multiply-sum-reshare steps against an
// already-claimed pcv, synchronously from the calling goroutine. Callers
// that batch many cells (MatrixProd) claim every cell's pcv up front, in
// deterministic order, then run this step bounded by rt.workers.
func (rt *PassiveRuntime) inProdWithPC(ctx context.Context, pcv *pc.ProgramCounter, x, y []*share.Share) (*field.Element, error) {
	xv, err := awaitAll(ctx, x)
	if err != nil {
		return nil, err
	}
	yv, err := awaitAll(ctx, y)
	if err != nil {
		return nil, err
	}
	acc := rt.field.Zero()
	for i := range xv {
		t, err := xv[i].Mul(yv[i])
		if err != nil {
			return nil, err
		}
		acc, err = acc.Add(t)
		if err != nil {
			return nil, err
		}
	}
	return rt.reshare(pcv, acc)
}

// ScalarMul scales every element of xs by the shared scalar a, one Mul per
// element (passive.py's scalar_mul).
func (rt *PassiveRuntime) ScalarMul(a *share.Share, xs []*share.Share) []*share.Share {
	out := make([]*share.Share, len(xs))
	for i, x := range xs {
		out[i] = rt.Mul(a, x)
	}
	return out
}

// SchurProd computes the entrywise (Hadamard) product of x and y, one Mul
// per element (passive.py's schur_prod).
func (rt *PassiveRuntime) SchurProd(x, y []*share.Share) []*share.Share {
	out := make([]*share.Share, len(x))
	for i := range x {
		out[i] = rt.Mul(x[i], y[i])
	}
	return out
}

// MatrixProd computes A * B^T (every row of A dotted with every row of B),
// one InProd per output cell, using only one round of resharing per cell
// (passive.py's matrix_prod). Every cell's program-counter slot is claimed
// synchronously, in row-major order, before any cell's local work starts;
// the actual await-multiply-reshare steps then run bounded-concurrently
// across rt.workers, since that ordering carries no cross-player
// constraint (spec.md §5 only binds the order pcv's are claimed in).
func (rt *PassiveRuntime) MatrixProd(A, B [][]*share.Share) [][]*share.Share {
	C := make([][]*share.Share, len(A))
	pcvs := make([][]*pc.ProgramCounter, len(A))
	for i := range A {
		C[i] = make([]*share.Share, len(B))
		pcvs[i] = make([]*pc.ProgramCounter, len(B))
		for j := range B {
			C[i][j] = share.New(rt.field)
			pcvs[i][j] = rt.spawnPC()
		}
	}

	go func() {
		total := len(A) * len(B)
		_ = rt.workers.Parallel(rt.ctx, total, func(ctx context.Context, k int) error {
			i, j := k/len(B), k%len(B)
			v, err := rt.inProdWithPC(ctx, pcvs[i][j], A[i], B[j])
			C[i][j].Resolve(v, err)
			return nil
		})
	}()
	return C
}

// Gauss computes A[i][j] = A[i][j]*d - b[i]*c[j] for every cell, one
// resharing per cell (passive.py's gauss, used for Gaussian elimination
// pivoting steps on secret-shared matrices). Follows MatrixProd's split: a
// synchronous, row-major pass claims every cell's pcv, then the bounded
// worker pool runs the await/compute/reshare work.
func (rt *PassiveRuntime) Gauss(A [][]*share.Share, d *share.Share, b, c []*share.Share) [][]*share.Share {
	out := make([][]*share.Share, len(A))
	pcvs := make([][]*pc.ProgramCounter, len(A))
	width := 0
	for i := range A {
		out[i] = make([]*share.Share, len(A[i]))
		pcvs[i] = make([]*pc.ProgramCounter, len(A[i]))
		if len(A[i]) > width {
			width = len(A[i])
		}
		for j := range A[i] {
			out[i][j] = share.New(rt.field)
			pcvs[i][j] = rt.spawnPC()
		}
	}

	go func() {
		total := len(A) * width
		_ = rt.workers.Parallel(rt.ctx, total, func(ctx context.Context, k int) error {
			i, j := k/width, k%width
			if j >= len(A[i]) {
				return nil
			}
			v, err := rt.gaussCellWithPC(ctx, pcvs[i][j], A[i][j], d, b[i], c[j])
			out[i][j].Resolve(v, err)
			return nil
		})
	}()
	return out
}

func (rt *PassiveRuntime) gaussCellWithPC(ctx context.Context, pcv *pc.ProgramCounter, aij, d, bi, cj *share.Share) (*field.Element, error) {
	av, err := aij.Await(ctx)
	if err != nil {
		return nil, err
	}
	dv, err := d.Await(ctx)
	if err != nil {
		return nil, err
	}
	biv, err := bi.Await(ctx)
	if err != nil {
		return nil, err
	}
	cjv, err := cj.Await(ctx)
	if err != nil {
		return nil, err
	}
	t1, err := av.Mul(dv)
	if err != nil {
		return nil, err
	}
	t2, err := biv.Mul(cjv)
	if err != nil {
		return nil, err
	}
	local, err := t1.Sub(t2)
	if err != nil {
		return nil, err
	}
	return rt.reshare(pcv, local)
}
