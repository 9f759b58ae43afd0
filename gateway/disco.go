package gateway

import (
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
)

// handleDiscoInfoIQ answers disco#info on the gateway's own JID with
// its identity and feature list (SPEC_FULL §4.19, grounded on
// ServiceDiscovery.cpp).
func (g *Gateway) handleDiscoInfoIQ(iq stanza.IQ) {
	if iq.Type() != stanza.IQGet {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
		return
	}
	info := xmppext.DiscoInfo{
		Identities: []xmppext.Identity{xmppext.GatewayIdentity},
		Features:   xmppext.GatewayFeatures,
	}
	reply := iq.Result()
	reply.SetPayload(info.ToNode())
	g.send(reply.Stanza)
}

// handleDiscoItemsIQ answers disco#items with an empty result: the
// gateway and its contact JIDs expose no sub-items.
func (g *Gateway) handleDiscoItemsIQ(iq stanza.IQ) {
	if iq.Type() != stanza.IQGet {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
		return
	}
	reply := iq.Result()
	reply.SetPayload(xmppext.EmptyDiscoItems())
	g.send(reply.Stanza)
}
