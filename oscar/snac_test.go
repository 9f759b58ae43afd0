package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnacRoundTrip(t *testing.T) {
	s := Snac{Family: 0x04, Subtype: 0x06, Flags: 0, RequestID: 7, Body: []byte("payload")}
	decoded, err := DecodeSnac(s.Encode())
	require.NoError(t, err)
	assert.Equal(t, s, decoded)
}

func TestSnacPreambleSkipped(t *testing.T) {
	for _, extraLen := range []int{0, 1, 7, 65535} {
		extra := make([]byte, extraLen)
		for i := range extra {
			extra[i] = byte(i)
		}
		body := NewBuffer()
		body.AddWord(uint16(extraLen))
		body.AddBytes(extra)
		body.AddString("real-body")

		s := Snac{Family: 1, Subtype: 2, Flags: FlagHasPreamble, RequestID: 1, Body: body.Bytes()}
		buf, err := s.BodyBuffer()
		require.NoError(t, err)
		assert.Equal(t, []byte("real-body"), buf.ReadAll())
	}
}

func TestSnacIsDrained(t *testing.T) {
	assert.True(t, Snac{Family: 0x01, Subtype: 0x13}.IsDrained())
	assert.True(t, Snac{Family: 0x03, Subtype: 0x0A}.IsDrained())
	assert.False(t, Snac{Family: 0x04, Subtype: 0x06}.IsDrained())
}

func TestSnacIsErrorAndParse(t *testing.T) {
	chain := NewChain()
	chain.AddWord(0x08, 0x00F0)
	body := NewBuffer()
	body.AddWord(0x0004) // error code
	chain.Encode(body)

	s := Snac{Family: 0x13, Subtype: 0x01, Body: body.Bytes()}
	assert.True(t, s.IsError())

	se, err := ParseSnacError(s)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0004), se.Code)
	assert.True(t, se.HasSub)
	assert.Equal(t, uint16(0x00F0), se.Subcode)
}

func TestReqIDCounterStartsAtOne(t *testing.T) {
	var c ReqIDCounter
	assert.Equal(t, uint32(1), c.Next())
	assert.Equal(t, uint32(2), c.Next())
}
