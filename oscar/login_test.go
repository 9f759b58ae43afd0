package oscar

import (
	"crypto/md5"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	flaps []Flap
	snacs []Snac
}

func (w *recordingWriter) WriteFlap(channel byte, payload []byte) error {
	w.flaps = append(w.flaps, Flap{Channel: channel, Payload: payload})
	return nil
}

func (w *recordingWriter) WriteSnac(s Snac) error {
	w.snacs = append(w.snacs, s)
	return nil
}

func (w *recordingWriter) lastSnac() Snac {
	return w.snacs[len(w.snacs)-1]
}

func TestLoginMachineStartSendsAuthFlap(t *testing.T) {
	w := &recordingWriter{}
	var events []LoginEvent
	m := NewLoginMachine("123456", "secret", w, func(e LoginEvent) { events = append(events, e) })

	require.NoError(t, m.Start(nil))
	require.Len(t, w.flaps, 1)
	assert.Equal(t, ChannelAuth, w.flaps[0].Channel)
	assert.Equal(t, []byte{0, 0, 0, 1}, w.flaps[0].Payload)
	assert.Equal(t, StateAuthInit, m.State())
}

// TestLoginMachineKeyReplyProducesSpecifiedMD5Hash is the literal E1
// scenario: the password hash is MD5(key || password || the fixed
// client string), sent as TLV 0x25 inside SNAC (0x17,0x02).
func TestLoginMachineKeyReplyProducesSpecifiedMD5Hash(t *testing.T) {
	w := &recordingWriter{}
	m := NewLoginMachine("123456", "hunter2", w, func(LoginEvent) {})

	require.NoError(t, m.Start(nil))

	// AuthInit -> KeyRequest transition happens on the Auth-channel FLAP echo.
	require.NoError(t, m.HandleFlap(Flap{Channel: ChannelAuth}))
	require.Len(t, w.snacs, 1)
	assert.Equal(t, FamilySubtype{0x17, 0x06}, w.lastSnac().FamilySubtype())

	key := []byte("deadbeef")
	keyBuf := NewBuffer()
	keyBuf.AddWord(uint16(len(key)))
	keyBuf.AddBytes(key)
	require.NoError(t, m.handleKeyReply(Snac{Family: 0x17, Subtype: 0x07, Body: keyBuf.Bytes()}))

	require.Len(t, w.snacs, 2)
	reply := w.lastSnac()
	assert.Equal(t, FamilySubtype{0x17, 0x02}, reply.FamilySubtype())

	chain, err := ChainFromBytes(reply.Body)
	require.NoError(t, err)
	assert.Equal(t, "123456", chain.Get(0x01).AsString())

	expected := md5.Sum(append(append(append([]byte{}, key...), "hunter2"...), "AOL Instant Messenger (SM)"...))
	assert.Equal(t, expected[:], chain.GetData(0x25))
	assert.Equal(t, StateKeyReply, m.State())
}

func TestLoginMachineAuthFailureEmitsLoginFailed(t *testing.T) {
	w := &recordingWriter{}
	var events []LoginEvent
	m := NewLoginMachine("123456", "x", w, func(e LoginEvent) { events = append(events, e) })
	m.state = StateKeyReply

	chain := NewChain().AddWord(0x08, 0x0005)
	handled, err := m.HandleSnac(Snac{Family: 0x17, Subtype: 0x03, Body: chain.Bytes()})
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, events, 1)
	assert.Equal(t, LoginFailed, events[0].Kind)
}

func TestLoginMachineRedirectCarriesCookieAndHost(t *testing.T) {
	w := &recordingWriter{}
	var events []LoginEvent
	m := NewLoginMachine("123456", "x", w, func(e LoginEvent) { events = append(events, e) })
	m.state = StateKeyReply

	cookie := []byte{1, 2, 3, 4}
	chain := NewChain().
		Add(NewTLV(0x05, []byte("bos.icq.com:5190"))).
		Add(NewTLV(0x06, cookie))
	_, err := m.HandleSnac(Snac{Family: 0x17, Subtype: 0x03, Body: chain.Bytes()})
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, LoginRedirect, events[0].Kind)
	assert.Equal(t, "bos.icq.com:5190", events[0].HostPort)
	assert.Equal(t, cookie, events[0].Cookie)
	assert.Equal(t, StateRedirect, m.State())
}

func TestLoginMachineStartWithCookieAppendsTLVAndSkipsToBosInit(t *testing.T) {
	w := &recordingWriter{}
	m := NewLoginMachine("123456", "x", w, func(LoginEvent) {})

	cookie := []byte{9, 9, 9}
	require.NoError(t, m.Start(cookie))
	require.Len(t, w.flaps, 1)
	assert.Equal(t, StateBosInit, m.State())

	buf := NewBufferFromBytes(w.flaps[0].Payload)
	_, err := buf.GetDWord()
	require.NoError(t, err)
	tlv, err := DecodeTLV(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x06), tlv.Type)
	assert.Equal(t, cookie, tlv.Value)
}

// TestLoginMachineFullHandshakeReachesReady drives the complete
// sequence from BosInit through Ready (spec §4.8 steps 5-9),
// confirming every required SNAC is sent in order and the final
// LoginFinished event fires exactly once.
func TestLoginMachineFullHandshakeReachesReady(t *testing.T) {
	w := &recordingWriter{}
	var events []LoginEvent
	m := NewLoginMachine("123456", "x", w, func(e LoginEvent) { events = append(events, e) })

	require.NoError(t, m.Start([]byte{1, 2, 3}))
	require.NoError(t, m.HandleFlap(Flap{Channel: ChannelAuth}))
	assert.Equal(t, StateFamilyList, m.State())

	handled, err := m.HandleSnac(Snac{Family: 0x01, Subtype: 0x03})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, StateFamilyVersions, m.State())
	assert.Equal(t, FamilySubtype{0x01, 0x17}, w.lastSnac().FamilySubtype())

	_, err = m.HandleSnac(Snac{Family: 0x01, Subtype: 0x18})
	require.NoError(t, err)
	assert.Equal(t, StateLocationRights, m.State())

	_, err = m.HandleSnac(Snac{Family: 0x02, Subtype: 0x03})
	require.NoError(t, err)
	assert.Equal(t, StateIcbmParams, m.State())
	assert.Equal(t, FamilySubtype{0x02, 0x04}, w.lastSnac().FamilySubtype())

	_, err = m.HandleSnac(Snac{Family: 0x04, Subtype: 0x05})
	require.NoError(t, err)
	assert.Equal(t, StateReady, m.State())

	require.Len(t, events, 1)
	assert.Equal(t, LoginFinished, events[0].Kind)

	readySnac := w.lastSnac()
	assert.Equal(t, FamilySubtype{0x01, 0x02}, readySnac.FamilySubtype())

	handled, err = m.HandleSnac(Snac{Family: 0x13, Subtype: 0x0F})
	require.NoError(t, err)
	assert.False(t, handled, "once Ready, unrelated SNACs must route elsewhere")
}
