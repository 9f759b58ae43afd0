package gateway

import (
	"github.com/k-zaitsev/icqt/session"
	"github.com/k-zaitsev/icqt/stanza"
)

// HandlePresence implements spec §4.18's Presence mapping.
func (g *Gateway) HandlePresence(p stanza.Presence) {
	from := p.From()
	to := p.To()
	bare := from.Bare()

	switch p.Type() {
	case stanza.PresenceSubscribe:
		if to.Node() == "" {
			g.sendPresence(to, from, stanza.PresenceSubscribed)
			return
		}
		g.addContact(bare, to.Node())

	case stanza.PresenceUnsubscribe:
		if to.Node() != "" {
			g.deleteContact(bare, to.Node())
		}

	case stanza.PresenceSubscribed:
		if to.Node() != "" {
			g.grantAuth(bare, to.Node())
		}

	case stanza.PresenceUnsubscribed:
		if to.Node() != "" {
			g.denyAuth(bare, to.Node())
		}

	case stanza.PresenceAvailable:
		g.userLogIn(from, presenceShow(p))

	case stanza.PresenceUnavailable:
		g.userLogOut(bare)
	}
}

// presenceShow maps a <presence/>'s optional <show/> child to the
// session package's Show enum; an absent child means plain "online"
// (spec §4.18: "presence available → UserLogIn(user, show)").
func presenceShow(p stanza.Presence) session.Show {
	c, ok := p.Node.Child("show")
	if !ok {
		return session.Online
	}
	switch stanza.Show(c.Text()) {
	case stanza.ShowChat:
		return session.FreeForChat
	case stanza.ShowAway:
		return session.Away
	case stanza.ShowNotAvailable:
		return session.NotAvailable
	case stanza.ShowDoNotDisturb:
		return session.DoNotDisturb
	default:
		return session.Online
	}
}
