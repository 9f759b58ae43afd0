package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaInfoManagerRequestLayout(t *testing.T) {
	w := &recordingWriter{}
	m := NewMetaInfoManager(w, 123456)

	require.NoError(t, m.Request(0x3C, nil))
	require.Len(t, w.snacs, 1)
	snac := w.snacs[0]
	assert.Equal(t, FamilySubtype{0x15, 0x02}, snac.FamilySubtype())

	chain, err := ChainFromBytes(snac.Body)
	require.NoError(t, err)
	data := NewBufferFromBytes(chain.GetData(0x01))

	chunkLen, err := data.GetLEWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(8), chunkLen)

	uin, err := data.GetLEDWord()
	require.NoError(t, err)
	assert.Equal(t, uint32(123456), uin)

	typ, err := data.GetLEWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3C), typ)

	seq, err := data.GetLEWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), seq)
}

func TestMetaInfoManagerSequenceIncrements(t *testing.T) {
	w := &recordingWriter{}
	m := NewMetaInfoManager(w, 1)

	require.NoError(t, m.Request(0x07D0, []byte{1, 2}))
	require.NoError(t, m.Request(0x07D0, []byte{3, 4}))

	for i, want := range []uint16{1, 2} {
		chain, err := ChainFromBytes(w.snacs[i].Body)
		require.NoError(t, err)
		data := NewBufferFromBytes(chain.GetData(0x01))
		_, _ = data.GetLEWord()
		_, _ = data.GetLEDWord()
		_, _ = data.GetLEWord()
		seq, err := data.GetLEWord()
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
}

func TestMetaInfoManagerFansOutToSubscribers(t *testing.T) {
	w := &recordingWriter{}
	m := NewMetaInfoManager(w, 1)

	var got []byte
	m.Subscribe(0x41, func(body []byte) { got = body })

	inner := NewBuffer()
	inner.AddLEWord(8 + 3)
	inner.AddLEDWord(1)
	inner.AddLEWord(0x41)
	inner.AddLEWord(7)
	inner.AddBytes([]byte("abc"))

	chain := NewChain().Add(NewTLV(0x01, inner.Bytes()))
	handled, err := m.HandleSnac(Snac{Family: 0x15, Subtype: 0x03, Body: chain.Bytes()})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, []byte("abc"), got)
}
