package tagged

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayoutPack(t *testing.T) {
	l := Layout{Bits: 2}

	w, err := l.Pack(3, 12345)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), l.Tag(w))
	assert.Equal(t, uint64(12345), l.Addr(w))
	assert.False(t, l.Aligned(w))

	w, err = l.Pack(0, 7)
	require.NoError(t, err)
	assert.True(t, l.Aligned(w))
	assert.Equal(t, uint64(28), w)
}

func TestLayoutOverflow(t *testing.T) {
	l := Layout{Bits: 2}

	_, err := l.Pack(4, 1)
	assert.Error(t, err)

	_, err = l.Pack(1, l.MaxAddr()+1)
	assert.Error(t, err)

	w, err := l.Pack(1, l.MaxAddr())
	require.NoError(t, err)
	assert.Equal(t, l.MaxAddr(), l.Addr(w))
}
