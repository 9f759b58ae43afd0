package gateway

import (
	"github.com/k-zaitsev/icqt/codec"
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/session"
	"github.com/k-zaitsev/icqt/stanza"
)

// userLogIn implements spec §4.18's "UserLogIn without an existing
// session creates one with options from the store" bridging rule.
// from carries the resource that sent the triggering presence, used to
// address any immediate replies.
func (g *Gateway) userLogIn(from jid.JID, show session.Show) {
	bare := from.Bare()

	g.mu.Lock()
	u, exists := g.sessions[bare.String()]
	if exists {
		u.resource = from
	}
	g.mu.Unlock()

	if exists {
		if err := u.sess.SetOnlineStatus(show); err != nil {
			g.log.Error().Err(err).Str("jid", bare.String()).Msg("failed to set online status")
		}
		return
	}

	if !g.store.IsRegistered(bare) {
		return
	}
	uin, _ := g.store.UIN(bare)
	password, _ := g.store.Password(bare)
	opts := g.store.GetOptions(bare)

	u = newUserState(bare, uin, nil)
	u.resource = from
	u.firstLoginPending = opts.FirstLogin()

	sess := g.newSession(func(ev session.Event) { g.onSessionEvent(bare, ev) })
	u.sess = sess

	g.mu.Lock()
	g.sessions[bare.String()] = u
	g.mu.Unlock()

	sess.SetUIN(uin)
	sess.SetPassword(password)
	if c, ok := codec.Lookup(opts.Encoding()); ok {
		sess.SetCodec(c)
	}
	if err := sess.SetOnlineStatus(show); err != nil {
		g.log.Error().Err(err).Msg("failed to set initial online status")
	}
	sess.Connect()
}

// userLogOut implements spec §4.18's UserLogOut: the session is torn
// down and presence unavailable is fanned out to every cached contact,
// then to the user.
func (g *Gateway) userLogOut(bare jid.JID) {
	g.mu.Lock()
	u, ok := g.sessions[bare.String()]
	delete(g.sessions, bare.String())
	g.mu.Unlock()
	if !ok {
		return
	}
	g.notifyContactsOffline(u)
	g.sendPresence(g.gatewayJID(), bare, stanza.PresenceUnavailable)
	u.sess.Disconnect()
}

// onSessionEvent translates one ICQ session event into the matching
// XMPP side effect (spec §4.18's bridging policy).
func (g *Gateway) onSessionEvent(bare jid.JID, ev session.Event) {
	switch ev.Kind {
	case session.EventConnected:
		g.resetReconnectCount(bare)
	case session.EventDisconnected:
		g.handleSessionDisconnected(bare)
	case session.EventError:
		g.sendInfoMessage(bare, ev.Description)
	case session.EventUserOnline:
		g.notifyContactOnline(bare, ev.UIN, ev.Show)
	case session.EventUserOffline:
		g.notifyContactOffline(bare, ev.UIN)
	case session.EventAuthGranted:
		g.notifySubscribed(bare, ev.UIN)
	case session.EventAuthDenied:
		g.notifyUnsubscribed(bare, ev.UIN)
	case session.EventAuthRequest:
		g.notifySubscribeRequest(bare, ev.UIN)
	case session.EventIncomingMessage:
		g.deliverIncomingMessage(bare, ev)
	case session.EventRosterAvailable:
		g.onRosterAvailable(bare)
	case session.EventShortUserDetailsAvailable:
		g.completeVCardRequest(bare, ev.UIN)
	case session.EventContactAdded:
		g.onContactAdded(bare, ev.UIN)
	case session.EventContactDeleted:
		g.onContactDeleted(bare, ev.UIN)
	}
}

func (g *Gateway) resetReconnectCount(bare jid.JID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if u, ok := g.sessions[bare.String()]; ok {
		u.reconnectCount = 0
	}
}

// handleSessionDisconnected enforces the reconnect budget of 3 (spec
// §4.18): reconnect only while the user's auto-reconnect option is
// set and the per-JID budget isn't exhausted, otherwise an
// informational message is sent and the session stays torn down.
func (g *Gateway) handleSessionDisconnected(bare jid.JID) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}

	opts := g.store.GetOptions(bare)
	if !opts.AutoReconnect() {
		g.removeUser(bare)
		return
	}

	g.mu.Lock()
	u.reconnectCount++
	count := u.reconnectCount
	g.mu.Unlock()

	if count > reconnectBudget {
		g.sendInfoMessage(bare, "Tried to reconnect 3 times, but no result. Stopping reconnects.")
		g.removeUser(bare)
		return
	}
	u.sess.Connect()
}

func (g *Gateway) sendInfoMessage(bare jid.JID, text string) {
	m := stanza.NewMessage(stanza.MessageChat)
	m.SetFrom(g.gatewayJID())
	m.SetTo(bare)
	m.SetBody(text)
	g.send(m.Stanza)
}

func (g *Gateway) addContact(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	if err := u.sess.ContactAdd(uin); err != nil {
		g.log.Error().Err(err).Str("uin", uin).Msg("contact add failed")
	}
}

func (g *Gateway) deleteContact(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	if err := u.sess.ContactDel(uin); err != nil {
		g.log.Error().Err(err).Str("uin", uin).Msg("contact delete failed")
	}
	g.mu.Lock()
	delete(u.contacts, uin)
	g.mu.Unlock()
}

func (g *Gateway) grantAuth(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	if err := u.sess.AuthGrant(uin); err != nil {
		g.log.Error().Err(err).Str("uin", uin).Msg("auth grant failed")
	}
}

func (g *Gateway) denyAuth(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	if err := u.sess.AuthDeny(uin); err != nil {
		g.log.Error().Err(err).Str("uin", uin).Msg("auth deny failed")
	}
}

// onContactAdded forwards to contact_add's SSI success path: the
// gateway emits a presence subscribe from uin@gateway to the user
// (spec §4.18).
func (g *Gateway) onContactAdded(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if ok {
		g.mu.Lock()
		u.contacts[uin] = uin
		g.mu.Unlock()
	}
	contactJID := jid.New(uin, g.domain, "")
	g.sendPresence(contactJID, bare, stanza.PresenceSubscribe)
}

func (g *Gateway) onContactDeleted(bare jid.JID, uin string) {
	u, ok := g.userFor(bare)
	if !ok {
		return
	}
	g.mu.Lock()
	delete(u.contacts, uin)
	g.mu.Unlock()
}

func (g *Gateway) notifySubscribed(bare jid.JID, uin string) {
	contactJID := jid.New(uin, g.domain, "")
	g.sendPresence(contactJID, bare, stanza.PresenceSubscribed)
}

func (g *Gateway) notifyUnsubscribed(bare jid.JID, uin string) {
	contactJID := jid.New(uin, g.domain, "")
	g.sendPresence(contactJID, bare, stanza.PresenceUnsubscribed)
}

func (g *Gateway) notifySubscribeRequest(bare jid.JID, uin string) {
	contactJID := jid.New(uin, g.domain, "")
	g.sendPresence(contactJID, bare, stanza.PresenceSubscribe)
}
