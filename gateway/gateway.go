// Package gateway implements the C19 gateway task: the bridge between
// the XMPP component side (xmppstream/stanza/xmppext) and the OSCAR
// session side (session), keyed by bare JID. Grounded on
// original_source/src/GatewayTask.{h,cpp} (spec.md prose) and its
// sibling shark/src/xmpp-ext/gatewaytask.cpp for the extension-stanza
// wiring (disco, ad-hoc).
package gateway

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k-zaitsev/icqt/clock"
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/session"
	"github.com/k-zaitsev/icqt/stanza"
	"github.com/k-zaitsev/icqt/store"
	"github.com/k-zaitsev/icqt/xmppstream"
)

// reconnectBudget caps automatic reconnect attempts per JID (spec
// §4.18).
const reconnectBudget = 3

// ComponentSender is the narrow part of xmppstream.Component the
// gateway needs, letting tests substitute a recording fake instead of
// a real handshaked stream.
type ComponentSender interface {
	SendStanza(n *xmppstream.Node) error
}

// Gateway bridges one XMPP component connection to many OSCAR
// sessions, one per registered bare JID.
type Gateway struct {
	mu sync.Mutex

	domain   string
	adminJID string

	component ComponentSender
	store     store.Store
	sessions  map[string]*userState

	newSession SessionFactory
	clk        clock.Clock

	log zerolog.Logger
}

// Option configures a Gateway at construction time, following the
// functional-options shape the teacher uses for sipgo.Client/Server.
type Option func(*Gateway)

// WithAdminJID designates the single bare JID allowed to run
// administrative ad-hoc commands (SPEC_FULL §4.19's list-registered).
func WithAdminJID(bare string) Option {
	return func(g *Gateway) { g.adminJID = bare }
}

// WithSessionFactory overrides how per-user Sessioners are built,
// used by tests to substitute a fake ICQ session.
func WithSessionFactory(f SessionFactory) Option {
	return func(g *Gateway) { g.newSession = f }
}

// WithClock overrides the injected clock used by the default session
// factory.
func WithClock(clk clock.Clock) Option {
	return func(g *Gateway) { g.clk = clk }
}

// New builds a Gateway for component domain answering over sender,
// backed by st for registration state.
func New(sender ComponentSender, domain string, st store.Store, opts ...Option) *Gateway {
	g := &Gateway{
		domain:    domain,
		component: sender,
		store:     st,
		sessions:  make(map[string]*userState),
		clk:       clock.Real{},
		log:       log.Logger.With().Str("caller", "gateway<Gateway>").Logger(),
	}
	g.newSession = defaultSessionFactory(g)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// gatewayJID is the component's own bare JID (no node, no resource).
func (g *Gateway) gatewayJID() jid.JID { return jid.New("", g.domain, "") }

func (g *Gateway) send(s stanza.Stanza) {
	if err := g.component.SendStanza(s.Node); err != nil {
		g.log.Error().Err(err).Msg("failed to write stanza")
	}
}

func (g *Gateway) sendPresence(from, to jid.JID, t stanza.PresenceType) {
	p := stanza.NewPresence(t)
	p.SetFrom(from)
	p.SetTo(to)
	g.send(p.Stanza)
}

// HandleStreamEvent is the callback wired as the emit function of
// xmppstream.Component.Run: it classifies a ready stream event and
// dispatches it to the matching stanza handler.
func (g *Gateway) HandleStreamEvent(ev xmppstream.StreamEvent) {
	switch ev.Kind {
	case xmppstream.StreamReady:
		g.log.Info().Msg("component stream ready")
	case xmppstream.StreamClosed:
		g.log.Info().Msg("component stream closed")
	case xmppstream.StreamErrorEvent:
		g.log.Error().Str("condition", ev.StreamErr.Condition.String()).Msg("stream error")
	case xmppstream.StanzaIQ:
		g.HandleIQ(stanza.IQFromNode(ev.Stanza))
	case xmppstream.StanzaMessage:
		g.HandleMessage(stanza.MessageFromNode(ev.Stanza))
	case xmppstream.StanzaPresence:
		g.HandlePresence(stanza.PresenceFromNode(ev.Stanza))
	}
}

// userState is the gateway's per-registered-user bridging state.
type userState struct {
	bare jid.JID
	// resource is the last full JID seen sending "available" presence,
	// used to address replies the user didn't explicitly request from
	// a specific resource (mirrors GatewayTask.cpp's jidResources table).
	resource jid.JID

	sess Sessioner
	uin  string

	reconnectCount int

	// firstLoginPending mirrors the store's first_login option for the
	// lifetime of this session: once the SSI roster loads, the legacy
	// roster is pushed via XEP-0144 and this is cleared.
	firstLoginPending bool

	// contacts caches uin -> display name, used to fan out presence
	// unavailable to every contact on logout.
	contacts map[string]string

	vcardRequests map[string]vcardRequest
}

type vcardRequest struct {
	from jid.JID
	id   string
}

func newUserState(bare jid.JID, uin string, sess Sessioner) *userState {
	return &userState{
		bare:          bare,
		resource:      bare,
		sess:          sess,
		uin:           uin,
		contacts:      make(map[string]string),
		vcardRequests: make(map[string]vcardRequest),
	}
}

// userFor returns the bridging state for bare, if a session exists.
func (g *Gateway) userFor(bare jid.JID) (*userState, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.sessions[bare.String()]
	return u, ok
}

// Shutdown tears every active session down, synthesising presence
// unavailable for every cached contact and for the user themself
// (spec §4.18's Shutdown).
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	users := make([]*userState, 0, len(g.sessions))
	for _, u := range g.sessions {
		users = append(users, u)
	}
	g.sessions = make(map[string]*userState)
	g.mu.Unlock()

	for _, u := range users {
		g.notifyContactsOffline(u)
		g.sendPresence(g.gatewayJID(), u.bare, stanza.PresenceUnavailable)
		u.sess.Disconnect()
	}
}

func (g *Gateway) notifyContactsOffline(u *userState) {
	for uin := range u.contacts {
		contactJID := jid.New(uin, g.domain, "")
		g.sendPresence(contactJID, u.bare, stanza.PresenceUnavailable)
	}
}
