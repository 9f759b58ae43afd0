package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlapRoundTrip(t *testing.T) {
	f := Flap{Channel: ChannelData, Sequence: 42, Payload: []byte("hello")}
	tail := []byte{0xAA, 0xBB}

	buf := NewBufferFromBytes(append(f.Encode(), tail...))
	got, err := TryDecodeFlap(buf)
	require.NoError(t, err)
	assert.Equal(t, f, got)
	assert.Equal(t, tail, buf.ReadAll())
}

func TestFlapNeedMoreOnShortHeader(t *testing.T) {
	buf := NewBufferFromBytes([]byte{0x2A, 0x02, 0x00})
	_, err := TryDecodeFlap(buf)
	assert.ErrorIs(t, err, ErrNeedMore)
	assert.Equal(t, 0, buf.Pos()) // cursor untouched
}

func TestFlapNeedMoreOnShortPayload(t *testing.T) {
	f := Flap{Channel: ChannelData, Sequence: 1, Payload: []byte("0123456789")}
	full := f.Encode()
	buf := NewBufferFromBytes(full[:len(full)-3])
	_, err := TryDecodeFlap(buf)
	assert.ErrorIs(t, err, ErrNeedMore)
	assert.Equal(t, 0, buf.Pos())
}

func TestSeqCounterWrapsAndNeverZero(t *testing.T) {
	var c SeqCounter
	seen := make(map[uint16]bool)
	for i := 0; i < seqWrap+5; i++ {
		v := c.Next()
		require.NotEqual(t, uint16(0), v)
		require.Less(t, v, uint16(seqWrap))
		seen[v] = true
	}
	assert.True(t, seen[1])
	assert.True(t, seen[seqWrap-1])
}

func TestFlapLoginHandshakeLiteral(t *testing.T) {
	// E1: server sends FLAP(Auth, 0x2A 01 00 01 00 04 00 00 00 01)
	raw := []byte{0x2A, 0x01, 0x00, 0x01, 0x00, 0x04, 0x00, 0x00, 0x00, 0x01}
	buf := NewBufferFromBytes(raw)
	f, err := TryDecodeFlap(buf)
	require.NoError(t, err)
	assert.Equal(t, ChannelAuth, f.Channel)
	assert.Equal(t, uint16(1), f.Sequence)
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, f.Payload)
}
