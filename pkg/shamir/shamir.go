// Package shamir implements Shamir secret sharing over a prime field:
// polynomial splitting and Lagrange recombination, with a process-wide,
// write-once cache of recombination weight vectors (callers recombine the
// same player-ID subsets billions of times over the life of a runtime).
package shamir

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/luxfi/mpc/pkg/field"
)

// ErrThreshold is returned when t is out of the valid range [0, n).
var ErrThreshold = errors.New("shamir: threshold must satisfy 0 <= t < n")

// Point is one evaluation (x_i, f(x_i)) of the sharing polynomial.
type Point struct {
	X *field.Element
	Y *field.Element
}

// Share splits secret into n points on a random polynomial of degree <= t,
// evaluated at x = 1..n, drawing its coefficients from crypto/rand. Requires
// 0 <= t < n.
func Share(secret *field.Element, t, n int) ([]Point, error) {
	return ShareWithRand(secret, t, n, rand.Reader)
}

// ShareWithRand is Share with an explicit entropy source, so a caller can
// thread a reproducible, seeded generator through the splitting step — the
// "reproducible integer seed" mode of spec.md §6's run environment — without
// that seed ever governing a value that touches the network unsplit.
func ShareWithRand(secret *field.Element, t, n int, src field.RandReader) ([]Point, error) {
	if t < 0 || t >= n {
		return nil, ErrThreshold
	}
	f := secret.Field()

	coeffs := make([]*field.Element, t+1)
	coeffs[0] = secret
	for j := 1; j <= t; j++ {
		c, err := f.RandomElement(src)
		if err != nil {
			return nil, fmt.Errorf("shamir: sampling coefficient: %w", err)
		}
		coeffs[j] = c
	}

	points := make([]Point, n)
	for i := 1; i <= n; i++ {
		x := f.FromInt64(int64(i))
		y, err := evaluate(coeffs, x)
		if err != nil {
			return nil, err
		}
		points[i-1] = Point{X: x, Y: y}
	}
	return points, nil
}

func evaluate(coeffs []*field.Element, x *field.Element) (*field.Element, error) {
	f := x.Field()
	acc := f.Zero()
	// Horner's method, highest degree first.
	for i := len(coeffs) - 1; i >= 0; i-- {
		var err error
		acc, err = acc.Mul(x)
		if err != nil {
			return nil, err
		}
		acc, err = acc.Add(coeffs[i])
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

var (
	weightCacheMu sync.Mutex
	weightCache   = map[string][]*field.Element{}
)

// weightKey identifies a recombination by the ordered tuple of x-coordinates
// plus the evaluation point xr; the weight vector depends on nothing else
// (its i-th entry belongs to xs[i], so the same set in another order is a
// different key).
func weightKey(xs []*field.Element, xr *field.Element) string {
	ints := make([]string, len(xs))
	for i, x := range xs {
		ints[i] = x.Big().String()
	}
	return xr.Big().String() + "|" + strings.Join(ints, ",")
}

// Recombine interpolates the points at x = xr (x = 0, the secret, if xr is
// nil) via Lagrange interpolation. The x_i of points must be distinct.
func Recombine(points []Point, xr *field.Element) (*field.Element, error) {
	if len(points) == 0 {
		return nil, errors.New("shamir: cannot recombine zero points")
	}
	f := points[0].Y.Field()
	if xr == nil {
		xr = f.Zero()
	}

	xs := make([]*field.Element, len(points))
	for i, p := range points {
		xs[i] = p.X
	}
	weights, err := lagrangeWeights(xs, xr)
	if err != nil {
		return nil, err
	}

	acc := f.Zero()
	for i, p := range points {
		term, err := weights[i].Mul(p.Y)
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

// lagrangeWeights returns, for evaluation point xr, the vector (w_i) such
// that recombine = Sum w_i * y_i. The result is memoised by (xs, xr).
func lagrangeWeights(xs []*field.Element, xr *field.Element) ([]*field.Element, error) {
	key := weightKey(xs, xr)

	weightCacheMu.Lock()
	if w, ok := weightCache[key]; ok {
		weightCacheMu.Unlock()
		return w, nil
	}
	weightCacheMu.Unlock()

	f := xr.Field()
	weights := make([]*field.Element, len(xs))
	for i, xi := range xs {
		num := f.One()
		den := f.One()
		for j, xj := range xs {
			if i == j {
				continue
			}
			var err error
			diffNum, err := xr.Sub(xj)
			if err != nil {
				return nil, err
			}
			num, err = num.Mul(diffNum)
			if err != nil {
				return nil, err
			}
			diffDen, err := xi.Sub(xj)
			if err != nil {
				return nil, err
			}
			den, err = den.Mul(diffDen)
			if err != nil {
				return nil, err
			}
		}
		w, err := num.Div(den)
		if err != nil {
			return nil, fmt.Errorf("shamir: degenerate x-coordinates: %w", err)
		}
		weights[i] = w
	}

	weightCacheMu.Lock()
	weightCache[key] = weights
	weightCacheMu.Unlock()
	return weights, nil
}
