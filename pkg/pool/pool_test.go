package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParallelRunsEveryIndex(t *testing.T) {
	p := New(4)
	var count int64
	err := p.Parallel(context.Background(), 50, func(ctx context.Context, i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 50, count)
}

func TestParallelPropagatesFirstError(t *testing.T) {
	p := New(2)
	boom := errors.New("boom")
	err := p.Parallel(context.Background(), 10, func(ctx context.Context, i int) error {
		if i == 5 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestZeroPoolIsUnbounded(t *testing.T) {
	var p *Pool
	var count int64
	err := p.Parallel(context.Background(), 20, func(ctx context.Context, i int) error {
		atomic.AddInt64(&count, 1)
		return nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 20, count)
}
