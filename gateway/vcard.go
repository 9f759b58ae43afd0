package gateway

import (
	"strings"

	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
	"github.com/k-zaitsev/icqt/xmppstream"
)

// handleVCardIQ implements spec §4.18's vCard flow: a get targeting a
// node JID triggers a short-details request, keyed by (bare, uin),
// completed asynchronously once the session reports the details.
func (g *Gateway) handleVCardIQ(iq stanza.IQ, _ *xmppstream.Node) {
	if iq.Type() != stanza.IQGet {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.FeatureNotImplemented, "")).Stanza)
		return
	}

	to := iq.To()
	from := iq.From()
	bare := from.Bare()

	if to.Node() == "" {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.ItemNotFound, "")).Stanza)
		return
	}
	uin := to.Node()

	u, ok := g.userFor(bare)
	if !ok {
		g.send(iq.ErrorReply(stanza.NewDefaultStanzaError(stanza.RecipientUnavailable, "")).Stanza)
		return
	}

	g.mu.Lock()
	u.vcardRequests[uin] = vcardRequest{from: from, id: iq.ID()}
	g.mu.Unlock()

	if err := u.sess.RequestShortDetails(uin); err != nil {
		g.log.Error().Err(err).Str("uin", uin).Msg("short details request failed")
	}
}

// completeVCardRequest replies to the pending vCard IQ for uin, if
// any, once the session's short-details lookup completes.
func (g *Gateway) completeVCardRequest(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}

	g.mu.Lock()
	req, pending := u.vcardRequests[uin]
	delete(u.vcardRequests, uin)
	g.mu.Unlock()
	if !pending {
		return
	}

	details := u.sess.ShortDetails(uin)
	fullName := strings.TrimSpace(details.FirstName + " " + details.LastName)

	v := xmppext.VCard{
		Nickname:   details.Nick,
		FullName:   fullName,
		GivenName:  details.FirstName,
		FamilyName: details.LastName,
	}
	if caps := u.sess.UserInfo(uin).Capabilities; len(caps) > 0 {
		names := make([]string, len(caps))
		for i, c := range caps {
			names[i] = c.String()
		}
		v.Description = "Capabilities:\n" + strings.Join(names, "\n")
	}

	reply := stanza.NewIQ(stanza.IQResult)
	reply.SetID(req.id)
	reply.SetFrom(jid.New(uin, g.domain, ""))
	reply.SetTo(req.from)
	reply.SetPayload(v.ToNode())
	g.send(reply.Stanza)
}
