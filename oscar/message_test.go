package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMessageManager(w Writer, isOffline func(string) bool) (*MessageManager, *MetaInfoManager, *[]MessageEvent) {
	meta := NewMetaInfoManager(w, 1)
	var events []MessageEvent
	mm := NewMessageManager(w, meta, "555000", isOffline, func(e MessageEvent) { events = append(events, e) })
	return mm, meta, &events
}

func TestMessageManagerSendChannel2RoundTrips(t *testing.T) {
	w := &recordingWriter{}
	mm, _, events := newTestMessageManager(w, func(string) bool { return false })

	require.NoError(t, mm.SendMessage(Message{Receiver: "12345", Text: "hello there"}))
	require.Len(t, w.snacs, 1)
	sent := w.snacs[0]
	assert.Equal(t, FamilySubtype{0x04, 0x06}, sent.FamilySubtype())

	// Re-feed the outbound wire bytes as though the peer echoed them
	// back on the inbound subtype, proving encode/decode agree.
	inbound := Snac{Family: 0x04, Subtype: 0x07, Body: rewriteAsInbound(t, sent.Body)}
	handled, err := mm.HandleSnac(inbound)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, *events, 1)
	got := (*events)[0].Message
	assert.Equal(t, uint16(2), got.Channel)
	assert.Equal(t, "hello there", got.Text)
}

// rewriteAsInbound reframes an outbound (0x04,0x06) body - which omits
// the warning-level and fixed-tlv-count fields a real peer would add -
// into the inbound (0x04,0x07) shape so HandleSnac can parse it.
func rewriteAsInbound(t *testing.T, outbound []byte) []byte {
	t.Helper()
	buf := NewBufferFromBytes(outbound)
	cookie, err := buf.GetBlock(8)
	require.NoError(t, err)
	channel, err := buf.GetWord()
	require.NoError(t, err)
	uinLen, err := buf.GetByte()
	require.NoError(t, err)
	uin, err := buf.GetBlock(int(uinLen))
	require.NoError(t, err)
	rest := buf.ReadAll()

	out := NewBuffer()
	out.AddBytes(cookie)
	out.AddWord(channel)
	out.AddByte(byte(len(uin)))
	out.AddBytes(uin)
	out.AddWord(0) // warning level
	out.AddWord(0) // fixed tlv count
	out.AddBytes(rest)
	return out.Bytes()
}

func TestMessageManagerSendChannel1WhenOffline(t *testing.T) {
	w := &recordingWriter{}
	mm, _, _ := newTestMessageManager(w, func(string) bool { return true })

	require.NoError(t, mm.SendMessage(Message{Receiver: "12345", Text: "offline hi"}))
	require.Len(t, w.snacs, 1)

	chain, err := ChainFromBytes(skipHeaderForChannel(t, w.snacs[0].Body))
	require.NoError(t, err)
	assert.True(t, chain.Has(0x02))
}

func skipHeaderForChannel(t *testing.T, body []byte) []byte {
	t.Helper()
	buf := NewBufferFromBytes(body)
	_, err := buf.GetBlock(8)
	require.NoError(t, err)
	_, err = buf.GetWord()
	require.NoError(t, err)
	uinLen, err := buf.GetByte()
	require.NoError(t, err)
	_, err = buf.GetBlock(int(uinLen))
	require.NoError(t, err)
	return buf.ReadAll()
}

func TestMessageManagerHandleChannel4Message(t *testing.T) {
	w := &recordingWriter{}
	mm, _, events := newTestMessageManager(w, nil)

	data := NewBuffer()
	data.AddLEDWord(998877)
	data.AddByte(byte(MessagePlainText))
	data.AddByte(MessageFlagNormal)
	text := []byte("server note")
	data.AddLEWord(uint16(len(text) + 1))
	data.AddBytes(text)

	chain := NewChain().Add(NewTLV(0x05, data.Bytes()))
	body := NewBuffer()
	body.AddBytes(make([]byte, 8)) // cookie
	body.AddWord(4)                // channel
	body.AddByte(0)                // uin len (channel 4 carries no textual uin)
	body.AddWord(0)                // warning level
	body.AddWord(0)                // fixed tlv count
	body.AddBytes(chain.Bytes())

	handled, err := mm.HandleSnac(Snac{Family: 0x04, Subtype: 0x07, Body: body.Bytes()})
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, *events, 1)
	got := (*events)[0].Message
	assert.Equal(t, "998877", got.Sender)
	assert.Equal(t, "server note", got.Text)
	assert.Equal(t, MessagePlainText, got.Type)
}

func TestMessageManagerOfflineMessageAndQueueEnd(t *testing.T) {
	w := &recordingWriter{}
	mm, meta, events := newTestMessageManager(w, nil)

	offline := NewBuffer()
	offline.AddLEDWord(123456)
	offline.AddLEWord(2024)
	offline.AddByte(3)
	offline.AddByte(15)
	offline.AddByte(9)
	offline.AddByte(30)
	offline.AddByte(byte(MessagePlainText))
	offline.AddByte(MessageFlagNormal)
	text := []byte("missed you")
	offline.AddWord(uint16(len(text) + 1))
	offline.AddBytes(text)

	chunkLen := uint16(len(offline.Bytes()) + 8)
	inner := NewBuffer()
	inner.AddLEDWord(1)
	inner.AddLEWord(0x41)
	inner.AddLEWord(5)
	inner.AddBytes(offline.Bytes())
	tlv := NewBuffer()
	tlv.AddLEWord(chunkLen)
	tlv.AddBytes(inner.Bytes())
	replyChain := NewChain().Add(NewTLV(0x01, tlv.Bytes()))

	handled, err := meta.HandleSnac(Snac{Family: 0x15, Subtype: 0x03, Body: replyChain.Bytes()})
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, *events, 1)
	got := (*events)[0].Message
	assert.Equal(t, "123456", got.Sender)
	assert.Equal(t, "missed you", got.Text)
	assert.Equal(t, 2024, got.Timestamp.Year())
	assert.Equal(t, 3, int(got.Timestamp.Month()))

	endInner := NewBuffer()
	endInner.AddLEDWord(1)
	endInner.AddLEWord(0x42)
	endInner.AddLEWord(6)
	endHeader := NewBuffer()
	endHeader.AddLEWord(8)
	endHeader.AddBytes(endInner.Bytes())
	endChain := NewChain().Add(NewTLV(0x01, endHeader.Bytes()))

	handled, err = meta.HandleSnac(Snac{Family: 0x15, Subtype: 0x03, Body: endChain.Bytes()})
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, *events, 2)
	assert.Equal(t, OfflineQueueDrained, (*events)[1].Kind)

	var purgeSent bool
	for _, s := range w.snacs {
		if s.FamilySubtype() != (FamilySubtype{0x15, 0x02}) {
			continue
		}
		c, err := ChainFromBytes(s.Body)
		require.NoError(t, err)
		data := NewBufferFromBytes(c.GetData(0x01))
		_, _ = data.GetLEWord()
		_, _ = data.GetLEDWord()
		typ, _ := data.GetLEWord()
		if typ == 0x3E {
			purgeSent = true
		}
	}
	assert.True(t, purgeSent, "expected a 0x3E purge request after the offline queue drained")
}
