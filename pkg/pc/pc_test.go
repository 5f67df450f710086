package pc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementAdvancesTopCounter(t *testing.T) {
	p := New()
	require.Equal(t, Tag("0"), p.Tag())
	p.Increment()
	require.Equal(t, Tag("1"), p.Tag())
	p.Increment()
	require.Equal(t, Tag("2"), p.Tag())
}

func TestForkUnforkIsolatesNestedCounter(t *testing.T) {
	p := New()
	p.Increment() // "1"
	p.Fork()
	require.Equal(t, Tag("1.0"), p.Tag())
	p.Increment()
	require.Equal(t, Tag("1.1"), p.Tag())
	p.Unfork()
	require.Equal(t, Tag("1"), p.Tag())
	p.Increment()
	require.Equal(t, Tag("2"), p.Tag())
}

func TestUnforkWithoutForkPanics(t *testing.T) {
	p := New()
	require.Panics(t, func() { p.Unfork() })
}

func TestCloneIsIndependent(t *testing.T) {
	p := New()
	p.Increment()
	p.Fork()
	clone := p.Clone()

	p.Increment()
	require.NotEqual(t, p.Tag(), clone.Tag())
	require.Equal(t, Tag("1.0"), clone.Tag())
	require.Equal(t, Tag("1.1"), p.Tag())
}

func TestRestoreReplacesStack(t *testing.T) {
	p := New()
	p.Increment()
	p.Fork()
	p.Increment()
	saved := p.Clone()

	p.Unfork()
	p.Increment()
	require.NotEqual(t, saved.Tag(), p.Tag())

	p.Restore(saved)
	require.Equal(t, saved.Tag(), p.Tag())
}

func TestTagBytesUsesFourBytesPerCounter(t *testing.T) {
	p := New()
	p.Increment()
	p.Fork()
	p.Increment()
	p.Increment()

	tag := p.Tag()
	require.Equal(t, Tag("1.2"), tag)
	require.Len(t, tag.Bytes(), 8)
}
