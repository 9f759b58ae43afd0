package gateway

import (
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/session"
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
	"github.com/k-zaitsev/icqt/xmppstream"
)

// HandleIQ dispatches a parsed iq stanza by its payload's namespace
// (spec §4.18 / §4.19).
func (g *Gateway) HandleIQ(iq stanza.IQ) {
	payload, ok := iq.Payload()
	if !ok {
		if iq.Type() == stanza.IQGet || iq.Type() == stanza.IQSet {
			g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.BadRequest, "")).Stanza)
		}
		return
	}

	switch payload.XMLName.Space {
	case xmppext.NSRegister:
		g.handleRegisterIQ(iq, payload)
	case xmppext.NSVCard:
		g.handleVCardIQ(iq, payload)
	case xmppext.NSDiscoInfo:
		g.handleDiscoInfoIQ(iq)
	case xmppext.NSDiscoItems:
		g.handleDiscoItemsIQ(iq)
	case xmppext.NSCommands:
		g.handleAdHocIQ(iq, payload)
	default:
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
	}
}

// handleRegisterIQ implements XEP-0077 in-band registration (spec
// §4.18's Registration section, verbatim).
func (g *Gateway) handleRegisterIQ(iq stanza.IQ, query *xmppstream.Node) {
	from := iq.From()
	bare := from.Bare()

	switch iq.Type() {
	case stanza.IQGet:
		reply := iq.Result()
		reply.SetPayload(xmppext.EmptyRegistrationForm())
		g.send(reply.Stanza)

	case stanza.IQSet:
		form := xmppext.ParseRegistrationForm(query)
		switch {
		case form.Remove:
			g.store.Del(bare)
			g.send(iq.Result().Stanza)
			gw := g.gatewayJID()
			g.sendPresence(gw, bare, stanza.PresenceUnsubscribe)
			g.sendPresence(gw, bare, stanza.PresenceUnsubscribed)
			g.sendPresence(gw, from, stanza.PresenceUnavailable)
			g.removeUser(bare)

		case form.Username == "" || form.Password == "":
			g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.NotAcceptable, "")).Stanza)

		default:
			g.store.Add(bare, form.Username, form.Password)
			g.send(iq.Result().Stanza)
			gw := g.gatewayJID()
			g.sendPresence(gw, bare, stanza.PresenceSubscribe)

			self := stanza.NewPresence(stanza.PresenceAvailable)
			self.SetFrom(gw)
			self.SetTo(from)
			g.send(self.Stanza)

			g.userLogIn(from, session.Online)
		}

	default:
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
	}
}

// removeUser tears down bare's session, if any, without the full
// logout presence fan-out (the remove path already sent its own
// presence per spec §4.18).
func (g *Gateway) removeUser(bare jid.JID) {
	g.mu.Lock()
	u, ok := g.sessions[bare.String()]
	delete(g.sessions, bare.String())
	g.mu.Unlock()
	if ok {
		u.sess.Disconnect()
	}
}
