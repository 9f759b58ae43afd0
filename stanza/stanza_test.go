package stanza

import (
	"testing"

	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/xmppstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapFromToMirrorsAddresses(t *testing.T) {
	s := newStanza("iq")
	s.SetTo(jid.New("", "a.com", ""))
	s.SetFrom(jid.New("", "b.com", ""))
	s.SwapFromTo()
	assert.Equal(t, "b.com", s.To().Full())
	assert.Equal(t, "a.com", s.From().Full())
}

func TestSwapFromToClearsMissingSide(t *testing.T) {
	s := newStanza("iq")
	s.SetFrom(jid.New("", "b.com", ""))
	s.SwapFromTo()
	assert.True(t, s.To().IsEmpty())
	assert.Equal(t, "", s.Node.AttrString("from"))
}

func TestIQPayloadReplace(t *testing.T) {
	iq := NewIQ(IQGet)
	first := xmppstream.NewNode("jabber:iq:register", "query")
	iq.SetPayload(first)
	p, ok := iq.Payload()
	require.True(t, ok)
	assert.Equal(t, "query", p.XMLName.Local)

	second := xmppstream.NewNode("vcard-temp", "vCard")
	iq.SetPayload(second)
	p, ok = iq.Payload()
	require.True(t, ok)
	assert.Equal(t, "vCard", p.XMLName.Local)
	assert.Len(t, iq.Node.Children, 1)
}

func TestIQIDsAreUniqueAndMonotonic(t *testing.T) {
	a := NewIQ(IQGet)
	b := NewIQ(IQGet)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestIQResultSwapsAddresses(t *testing.T) {
	req := NewIQ(IQGet)
	req.SetTo(jid.New("", "gw.example.com", ""))
	req.SetFrom(jid.New("user", "example.com", "res"))

	res := req.Result()
	assert.Equal(t, req.ID(), res.ID())
	assert.Equal(t, IQResult, res.Type())
	assert.Equal(t, "user@example.com/res", res.To().Full())
	assert.Equal(t, "gw.example.com", res.From().Full())
}

func TestMessageBodySubjectThread(t *testing.T) {
	m := NewMessage(MessageChat)
	m.SetBody("hello")
	m.SetSubject("subj")
	m.SetThread("thread-1")
	assert.Equal(t, "hello", m.Body())
	assert.Equal(t, "subj", m.Subject())
	assert.Equal(t, "thread-1", m.Thread())

	m.SetBody("hello again")
	assert.Equal(t, "hello again", m.Body())
	count := 0
	for _, c := range m.Node.Children {
		if c.XMLName.Local == "body" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestPresenceShowStatusPriority(t *testing.T) {
	p := NewPresence(PresenceAvailable)
	p.SetShow(ShowDoNotDisturb)
	p.SetStatus("busy")
	p.SetPriority(5)
	assert.Equal(t, ShowDoNotDisturb, p.ShowValue())
	assert.Equal(t, "busy", p.Status())
	assert.Equal(t, 5, p.Priority())
	assert.Equal(t, PresenceAvailable, p.Type())
}

func TestPresenceUnavailableSetsType(t *testing.T) {
	p := NewPresence(PresenceUnavailable)
	assert.Equal(t, PresenceUnavailable, p.Type())
}

func TestStanzaErrorDefaultTypeMapping(t *testing.T) {
	cases := []struct {
		c    Condition
		want ErrorType
	}{
		{BadRequest, ErrorModify},
		{NotAuthorized, ErrorAuth},
		{InternalServerError, ErrorWait},
		{ItemNotFound, ErrorCancel},
		{RecipientUnavailable, ErrorWait},
		{Forbidden, ErrorAuth},
		{NotAllowed, ErrorCancel},
	}
	for _, c := range cases {
		e := NewDefaultStanzaError(c.c, "")
		assert.Equal(t, c.want, e.Type, string(c.c))
	}
}

func TestStanzaErrorPushToDOM(t *testing.T) {
	iq := NewIQ(IQSet)
	se := NewDefaultStanzaError(NotAcceptable, "missing username")
	se.PushToDOM(iq.Node)

	errNode, ok := iq.Node.Child("error")
	require.True(t, ok)
	assert.Equal(t, string(ErrorModify), errNode.AttrString("type"))
	cond, ok := errNode.Child(string(NotAcceptable))
	require.True(t, ok)
	assert.Equal(t, NSStanzas, cond.XMLName.Space)
	text, ok := errNode.Child("text")
	require.True(t, ok)
	assert.Equal(t, "missing username", text.Text())
}
