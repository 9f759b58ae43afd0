package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWordRoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 1, 0x7FFF, 0x8000, 0xFFFF} {
		buf := NewBuffer()
		buf.AddWord(v)
		got, err := NewBufferFromBytes(buf.Bytes()).GetWord()
		require.NoError(t, err)
		assert.Equal(t, v, got)

		buf = NewBuffer()
		buf.AddLEWord(v)
		got, err = NewBufferFromBytes(buf.Bytes()).GetLEWord()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBufferDWordRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x7FFFFFFF, 0x80000000, 0xFFFFFFFF} {
		buf := NewBuffer()
		buf.AddDWord(v)
		got, err := NewBufferFromBytes(buf.Bytes()).GetDWord()
		require.NoError(t, err)
		assert.Equal(t, v, got)

		buf = NewBuffer()
		buf.AddLEDWord(v)
		got, err = NewBufferFromBytes(buf.Bytes()).GetLEDWord()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestBufferCursorInvariant(t *testing.T) {
	buf := NewBufferFromBytes([]byte{1, 2, 3})
	assert.False(t, buf.AtEnd())
	assert.Equal(t, 3, buf.BytesAvailable())

	_, err := buf.GetDWord()
	assert.ErrorIs(t, err, ErrNeedMore)
	// cursor must not move on a failed read
	assert.Equal(t, 0, buf.Pos())

	_, _ = buf.GetByte()
	_, _ = buf.GetByte()
	_, _ = buf.GetByte()
	assert.True(t, buf.AtEnd())
}

func TestBufferWritesDoNotMoveReadCursor(t *testing.T) {
	buf := NewBufferFromBytes([]byte{1, 2})
	_, _ = buf.GetByte()
	assert.Equal(t, 1, buf.Pos())
	buf.AddByte(9)
	assert.Equal(t, 1, buf.Pos())
	assert.Equal(t, 3, buf.Len())
}

func TestBufferSeek(t *testing.T) {
	buf := NewBufferFromBytes([]byte{1, 2, 3, 4, 5})
	buf.Seek(3)
	assert.Equal(t, 3, buf.Pos())
	buf.SeekForward(100)
	assert.Equal(t, 5, buf.Pos())
	buf.SeekBackward(100)
	assert.Equal(t, 0, buf.Pos())
	buf.SeekEnd()
	assert.True(t, buf.AtEnd())
}
