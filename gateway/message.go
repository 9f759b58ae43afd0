package gateway

import (
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/session"
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
)

// HandleMessage implements spec §4.18's Messages mapping: a message
// addressed to a node@gateway JID is forwarded to the legacy network.
func (g *Gateway) HandleMessage(m stanza.Message) {
	to := m.To()
	if to.Node() == "" {
		return
	}
	bare := m.From().Bare()
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	if err := u.sess.SendMessage(to.Node(), m.Body()); err != nil {
		g.log.Error().Err(err).Str("uin", to.Node()).Msg("send message failed")
	}
}

// deliverIncomingMessage forwards an incoming legacy message as a
// <message/> from uin@gateway to the user's last-known resource,
// stamping non-zero timestamps with jabber:x:delay (SPEC_FULL §4.19).
func (g *Gateway) deliverIncomingMessage(bare jid.JID, ev session.Event) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}

	from := jid.New(ev.UIN, g.domain, "")
	m := stanza.NewMessage(stanza.MessageChat)
	m.SetFrom(from)
	m.SetTo(u.resource)
	m.SetBody(ev.Text)
	if !ev.Timestamp.IsZero() {
		m.Node.AddChild(xmppext.BuildDelay(ev.Timestamp, from.String()))
	}
	g.send(m.Stanza)
}

// sessionShowToXMPP maps session.Show to the <show/> value used when
// announcing a contact's presence, the inverse of presenceShow.
func sessionShowToXMPP(show session.Show) stanza.Show {
	switch show {
	case session.FreeForChat:
		return stanza.ShowChat
	case session.Away:
		return stanza.ShowAway
	case session.NotAvailable:
		return stanza.ShowNotAvailable
	case session.Occupied, session.DoNotDisturb:
		return stanza.ShowDoNotDisturb
	default:
		return stanza.ShowChat
	}
}

// notifyContactOnline announces a legacy contact's presence to the
// user.
func (g *Gateway) notifyContactOnline(bare jid.JID, uin string, show session.Show) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	g.mu.Lock()
	name := u.contacts[uin]
	g.mu.Unlock()
	if name == "" {
		name = uin
	}

	contactJID := jid.New(uin, g.domain, "")
	p := stanza.NewPresence(stanza.PresenceAvailable)
	p.SetFrom(contactJID)
	p.SetTo(bare)
	if show != session.Online {
		p.SetShow(sessionShowToXMPP(show))
	}
	p.SetStatus(name)
	g.send(p.Stanza)
}

func (g *Gateway) notifyContactOffline(bare jid.JID, uin string) {
	contactJID := jid.New(uin, g.domain, "")
	g.sendPresence(contactJID, bare, stanza.PresenceUnavailable)
}
