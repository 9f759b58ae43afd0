package gateway

import (
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/xmppext"
)

// onRosterAvailable refreshes the cached contact list and, on a
// user's first login since registration, pushes the legacy roster to
// the XMPP side as a roster-item-exchange message (spec §4.18).
func (g *Gateway) onRosterAvailable(bare jid.JID) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}

	contacts := u.sess.Contacts()
	g.mu.Lock()
	for _, c := range contacts {
		u.contacts[c.Name] = c.DisplayName()
	}
	pushPending := u.firstLoginPending
	g.mu.Unlock()

	if !pushPending {
		return
	}

	items := make([]xmppext.RosterXItem, 0, len(contacts))
	for _, c := range contacts {
		items = append(items, xmppext.RosterXItem{
			Action: xmppext.RosterXAdd,
			JID:    jid.New(c.Name, g.domain, "").String(),
			Name:   c.DisplayName(),
		})
	}

	m := stanza.NewMessage(stanza.MessageNormal)
	m.SetFrom(g.gatewayJID())
	m.SetTo(u.resource)
	m.Node.AddChild(xmppext.BuildRosterX(items))
	g.send(m.Stanza)

	g.mu.Lock()
	u.firstLoginPending = false
	g.mu.Unlock()

	opts := g.store.GetOptions(bare)
	opts.SetFirstLogin(false)
	g.store.SetOptions(bare, opts)
}
