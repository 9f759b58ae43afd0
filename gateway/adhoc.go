package gateway

import (
	"github.com/google/uuid"

	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
	"github.com/k-zaitsev/icqt/xmppstream"
)

// handleAdHocIQ implements the single admin command this gateway
// exposes, list-registered (SPEC_FULL §4.19, grounded on
// shark/src/xmpp-ext/AdHoc.cpp's command dispatch). Only the
// configured admin JID may invoke it.
func (g *Gateway) handleAdHocIQ(iq stanza.IQ, payload *xmppstream.Node) {
	if iq.Type() != stanza.IQSet {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
		return
	}
	if g.adminJID == "" || iq.From().Bare().String() != g.adminJID {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.Forbidden, "")).Stanza)
		return
	}
	if payload.AttrString("node") != xmppext.ListRegisteredNode {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.ItemNotFound, "")).Stanza)
		return
	}

	registered := g.store.ListUsers()
	names := make([]string, len(registered))
	for i, j := range registered {
		names[i] = j.String()
	}

	reply := iq.Result()
	reply.SetPayload(xmppext.BuildListRegisteredResult(uuid.NewString(), names))
	g.send(reply.Stanza)
}
