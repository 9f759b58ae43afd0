package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainRoundTrip(t *testing.T) {
	c := NewChain()
	c.AddWord(0x01, 1234)
	c.AddString(0x03, "ICQBasic")
	c.Add(NewTLV(0x25, []byte{0xDE, 0xAD, 0xBE, 0xEF}))

	decoded, err := ChainFromBytes(c.Bytes())
	require.NoError(t, err)

	assert.Equal(t, c.Len(), decoded.Len())
	assert.Equal(t, uint16(1234), decoded.Get(0x01).AsWord())
	assert.Equal(t, "ICQBasic", decoded.Get(0x03).AsString())
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, decoded.GetData(0x25))
}

func TestChainReplaceOnDuplicateKeepsPosition(t *testing.T) {
	c := NewChain()
	c.AddWord(1, 1)
	c.AddWord(2, 2)
	c.AddWord(1, 99) // replaces, should keep slot 0

	var order []uint16
	c.Each(func(tlv TLV) { order = append(order, tlv.Type) })
	assert.Equal(t, []uint16{1, 2}, order)
	assert.Equal(t, uint16(99), c.Get(1).AsWord())
}

func TestChainHasRemove(t *testing.T) {
	c := NewChain()
	c.AddWord(5, 7)
	assert.True(t, c.Has(5))
	c.Remove(5)
	assert.False(t, c.Has(5))
	assert.Equal(t, 0, c.Len())
}

func TestTLVLengthMatchesValue(t *testing.T) {
	tlv := NewTLV(0x0A, []byte("hello"))
	encoded := tlv.Bytes()
	require.Len(t, encoded, 4+5)
	length := uint16(encoded[2])<<8 | uint16(encoded[3])
	assert.Equal(t, uint16(5), length)
}
