package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-zaitsev/icqt/clock"
	"github.com/k-zaitsev/icqt/oscar"
	"github.com/k-zaitsev/icqt/transporttest"
)

// decodeWrittenSnacs decodes every FLAP(Data) frame written so far on
// conn into its carried SNAC.
func decodeWrittenSnacs(t *testing.T, conn *transporttest.PipeConn) []oscar.Snac {
	t.Helper()
	buf := oscar.NewBufferFromBytes(conn.Written())
	var out []oscar.Snac
	for {
		f, err := oscar.TryDecodeFlap(buf)
		if err != nil {
			break
		}
		if f.Channel == oscar.ChannelData {
			snac, err := oscar.DecodeSnac(f.Payload)
			require.NoError(t, err)
			out = append(out, snac)
		}
	}
	return out
}

func TestShowToWireMapping(t *testing.T) {
	cases := []struct {
		show Show
		want uint16
	}{
		{Online, 0x0000},
		{FreeForChat, 0x0020},
		{Away, 0x0001},
		{NotAvailable, 0x0001 | 0x0004},
		{Occupied, 0x0001 | 0x0010},
		{DoNotDisturb, 0x0001 | 0x0010 | 0x0002},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, showToWire(c.show), c.show.String())
	}
}

func TestWireToShowMapping(t *testing.T) {
	cases := []struct {
		status uint16
		want   Show
	}{
		{0x0000, Online},
		{0x0020, FreeForChat},
		{0x0001, Away},
		{0x0001 | 0x0004, NotAvailable},
		{0x0001 | 0x0010, Occupied},
		{0x0001 | 0x0010 | 0x0002, DoNotDisturb},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, wireToShow(c.status), "status=0x%04x", c.status)
	}
}

func TestShowWireRoundTrip(t *testing.T) {
	for show := Online; show <= DoNotDisturb; show++ {
		assert.Equal(t, show, wireToShow(showToWire(show)), show.String())
	}
}

type fakeWriter struct {
	snacs []oscar.Snac
}

func (f *fakeWriter) WriteFlap(channel byte, payload []byte) error { return nil }

func (f *fakeWriter) WriteSnac(s oscar.Snac) error {
	f.snacs = append(f.snacs, s)
	return nil
}

func TestSendOnlineStatusEncodesWireSnac(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, sendOnlineStatus(w, DoNotDisturb))

	require.Len(t, w.snacs, 1)
	snac := w.snacs[0]
	assert.Equal(t, uint16(0x01), snac.Family)
	assert.Equal(t, uint16(0x1E), snac.Subtype)

	chain, err := oscar.ChainFromBytes(snac.Body)
	require.NoError(t, err)

	require.True(t, chain.Has(0x06))
	buf := oscar.NewBufferFromBytes(chain.GetData(0x06))
	flags, err := buf.GetWord()
	require.NoError(t, err)
	status, err := buf.GetWord()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0100), flags)
	assert.Equal(t, showToWire(DoNotDisturb), status)

	require.True(t, chain.Has(0x08))
	require.True(t, chain.Has(0x0C))
	assert.Len(t, chain.GetData(0x0C), 37)
}

func TestSendOnlineStatusFailsWithoutConnection(t *testing.T) {
	err := sendOnlineStatus(nil, Online)
	assert.Error(t, err)
}

func TestSessionDisconnectWhenAlreadyDisconnectedIsNoOp(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var events []Event
	s := New(clk, func(ev Event) { events = append(events, ev) })

	s.Disconnect()
	assert.Empty(t, events)
	assert.Equal(t, Disconnected, s.State())
}

func TestSessionOperationsFailWhenDisconnected(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s := New(clk, func(Event) {})

	assert.Error(t, s.ContactAdd("123456"))
	assert.Error(t, s.ContactDel("123456"))
	assert.Error(t, s.AuthGrant("123456"))
	assert.Error(t, s.AuthDeny("123456"))
	assert.Error(t, s.SendMessage("123456", "hi"))
}

// newConnectedSession builds a Session already wired to a live (but
// otherwise idle) socket and manager set over an in-memory PipeConn,
// bypassing the dial and login handshake, so ContactAdd/timer
// behavior can be exercised against the real wire encoding.
func newConnectedSession(t *testing.T, clk clock.Clock) (*Session, *transporttest.PipeConn, []Event) {
	t.Helper()
	conn := transporttest.NewPipeConn()
	var events []Event
	s := New(clk, func(ev Event) { events = append(events, ev) })
	s.uin = "111111"

	sock := oscar.NewSocket(conn, clk)
	meta := oscar.NewMetaInfoManager(sock, oscar.ParseUIN(s.uin))
	ssi := oscar.NewSSIManager(sock, s.onSSIEvent)
	userinfo := oscar.NewUserInfoManager(sock, meta, s.onUserInfoEvent)
	isOffline := func(string) bool { return false }
	msg := oscar.NewMessageManager(sock, meta, s.uin, isOffline, s.onMessageEvent)

	s.mu.Lock()
	s.socket = sock
	s.ssi = ssi
	s.meta = meta
	s.userinfo = userinfo
	s.msg = msg
	s.state = Connected
	s.mu.Unlock()

	return s, conn, events
}

func TestContactAddSendsAddWhenNotPresent(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s, conn, _ := newConnectedSession(t, clk)

	require.NoError(t, s.ContactAdd("222222"))
	snacs := decodeWrittenSnacs(t, conn)
	require.NotEmpty(t, snacs)
	last := snacs[len(snacs)-1]
	assert.Equal(t, uint16(0x13), last.Family)
}

// encodeContact mirrors oscar's unexported wire layout for an SSI
// item: {u16 name_len, name, u16 gid, u16 iid, u16 type, u16 data_len,
// data}, used here to build a full-list reply from the session
// package's tests.
func encodeContact(buf *oscar.Buffer, c oscar.Contact) {
	buf.AddWord(uint16(len(c.Name)))
	buf.AddString(c.Name)
	buf.AddWord(c.GroupID)
	buf.AddWord(c.ItemID)
	buf.AddWord(uint16(c.Type))
	var data []byte
	if c.Data != nil {
		data = c.Data.Bytes()
	}
	buf.AddWord(uint16(len(data)))
	buf.AddBytes(data)
}

func TestContactAddRequestsAuthorizationWhenPending(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s, conn, _ := newConnectedSession(t, clk)

	master := oscar.Contact{Type: oscar.ContactGroup}
	pending := oscar.Contact{Type: oscar.ContactBuddy, Name: "333333", ItemID: 1}
	pending.SetAwaitingAuth(true)

	buf := oscar.NewBuffer()
	buf.AddByte(0) // version
	buf.AddWord(2)
	encodeContact(buf, master)
	encodeContact(buf, pending)
	buf.AddDWord(0)

	handled, err := s.ssi.HandleSnac(oscar.Snac{Family: 0x13, Subtype: 0x06, Body: buf.Bytes()})
	require.NoError(t, err)
	require.True(t, handled)

	require.NoError(t, s.ContactAdd("333333"))
	snacs := decodeWrittenSnacs(t, conn)
	require.NotEmpty(t, snacs)
	last := snacs[len(snacs)-1]
	assert.Equal(t, uint16(0x13), last.Family)
	assert.Equal(t, uint16(0x18), last.Subtype)
}

func TestIdleTimeoutDisconnects(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s, _, _ := newConnectedSession(t, clk)

	s.mu.Lock()
	s.armConnectedTimersLocked()
	s.mu.Unlock()

	clk.Advance(idleTimeout + time.Second)
	assert.Equal(t, Disconnected, s.State())
}

func TestKeepAliveSendsSnacAndRearms(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	s, conn, _ := newConnectedSession(t, clk)

	// No inbound SNAC resets the 90s idle timer here, so stop it;
	// otherwise it disconnects the session before the second keep-alive
	// at 121s.
	s.mu.Lock()
	s.armConnectedTimersLocked()
	s.idleTimer.Stop()
	s.mu.Unlock()

	clk.Advance(keepAliveEvery + time.Second)
	snacs := decodeWrittenSnacs(t, conn)
	require.NotEmpty(t, snacs)
	last := snacs[len(snacs)-1]
	assert.Equal(t, uint16(0x01), last.Family)
	assert.Equal(t, uint16(0x0E), last.Subtype)

	clk.Advance(keepAliveEvery + time.Second)
	assert.Len(t, decodeWrittenSnacs(t, conn), 2)
}

func TestOnMessageEventDecodesWithConfiguredCodec(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	var events []Event
	s := New(clk, func(ev Event) { events = append(events, ev) })

	s.onMessageEvent(oscar.MessageEvent{
		Kind: oscar.IncomingMessage,
		Message: oscar.Message{
			Sender: "444444",
			Text:   "hello",
		},
	})

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventIncomingMessage, last.Kind)
	assert.Equal(t, "444444", last.UIN)
	assert.Equal(t, "hello", last.Text)
}
