// Package session implements the ICQ session orchestrator (spec §4.14,
// C15): the state machine, timers and presence mapping that sit above
// the oscar package's managers and drive one user's connection to the
// OSCAR/BOS server. Grounded directly on
// original_source/icq/icqSession.cpp.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/k-zaitsev/icqt/clock"
	"github.com/k-zaitsev/icqt/codec"
	"github.com/k-zaitsev/icqt/oscar"
	"github.com/k-zaitsev/icqt/transport"
)

// State is the session's connection state (spec §4.14: Disconnected →
// Connecting → (BOS redirect path) → Connected → Disconnected).
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	default:
		return "Unknown"
	}
}

// Show is the symbolic online status a caller sets with
// set_online_status; it is translated to the wire status bitmask on
// the way out and back on the way in.
type Show int

const (
	Online Show = iota
	FreeForChat
	Away
	NotAvailable
	Occupied
	DoNotDisturb
)

func (s Show) String() string {
	switch s {
	case Online:
		return "Online"
	case FreeForChat:
		return "FreeForChat"
	case Away:
		return "Away"
	case NotAvailable:
		return "NotAvailable"
	case Occupied:
		return "Occupied"
	case DoNotDisturb:
		return "DoNotDisturb"
	default:
		return "Unknown"
	}
}

// Wire status bits (UserInfo::* in original_source/icq/types/icqTypes
// are OR'd together; the literal numeric values aren't in the
// retrieved pack, so these are the canonical OSCAR/ICQ status-flag
// values, cross-checked against the OR-relationships icqSession.cpp
// does carry literally).
const (
	wireOnline       uint16 = 0x0000
	wireAway         uint16 = 0x0001
	wireDoNotDisturb uint16 = 0x0002
	wireNotAvailable uint16 = 0x0004
	wireOccupied     uint16 = 0x0010
	wireFreeForChat  uint16 = 0x0020
	wireInvisible    uint16 = 0x0100

	flagDCDisabled uint16 = 0x0100
)

// showToWire implements icqSession.cpp's setOnlineStatus switch.
func showToWire(s Show) uint16 {
	switch s {
	case FreeForChat:
		return wireFreeForChat
	case Away:
		return wireAway
	case NotAvailable:
		return wireAway | wireNotAvailable
	case Occupied:
		return wireAway | wireOccupied
	case DoNotDisturb:
		return wireAway | wireOccupied | wireDoNotDisturb
	default:
		return wireOnline
	}
}

// wireToShow implements the reverse "hack" nesting used by
// processUserStatus/processStatusChanged: Away-gated first, then
// NotAvailable > Occupied > DoNotDisturb, else FreeForChat, else Online.
func wireToShow(status uint16) Show {
	if status&wireAway != 0 {
		if status&wireNotAvailable != 0 {
			return NotAvailable
		}
		if status&wireOccupied != 0 {
			if status&wireDoNotDisturb != 0 {
				return DoNotDisturb
			}
			return Occupied
		}
		return Away
	}
	if status&wireFreeForChat != 0 {
		return FreeForChat
	}
	return Online
}

// Timers per spec §4.14. lookupTimeout is the connector's lookup
// deadline; no timer is armed with loginTimeout, so nothing bounds the
// login handshake itself.
const (
	lookupTimeout  = 15 * time.Second
	loginTimeout   = 30 * time.Second
	idleTimeout    = 90 * time.Second
	keepAliveEvery = 60 * time.Second
)

// EventKind enumerates the events a Session surfaces to the gateway.
type EventKind int

const (
	EventConnected EventKind = iota
	EventDisconnected
	EventError
	EventStatusChanged
	EventUserOnline
	EventUserOffline
	EventAuthGranted
	EventAuthDenied
	EventAuthRequest
	EventIncomingMessage
	EventRosterAvailable
	EventShortUserDetailsAvailable
	EventContactAdded
	EventContactDeleted
)

// Event is the single type emitted for every session signal (spec
// §4.14's Connected/Disconnected/Error/... list).
type Event struct {
	Kind        EventKind
	Description string
	Show        Show
	UIN         string
	Text        string
	Timestamp   time.Time
}

// Session is the C15 orchestrator: one user's connection to the OSCAR
// network, wiring the login handshake to the post-login managers and
// translating their events/state into the session's own contract.
type Session struct {
	mu sync.Mutex

	id string

	uin, password  string
	server         string
	port           string
	onlineStatus   Show
	msgCodec       codec.Codec
	state          State
	connector      *transport.Connector
	dialCancel     context.CancelFunc

	socket   *oscar.Socket
	login    *oscar.LoginMachine
	ssi      *oscar.SSIManager
	meta     *oscar.MetaInfoManager
	msg      *oscar.MessageManager
	userinfo *oscar.UserInfoManager

	idleTimer     clock.Timer
	keepAliveTimer clock.Timer

	clk clock.Clock
	log zerolog.Logger

	emit func(Event)
}

// New builds a disconnected Session. server/port default to the
// well-known OSCAR login host; clk lets tests drive the lookup/login/
// idle/keep-alive timers deterministically with clock.Fake.
func New(clk clock.Clock, emit func(Event)) *Session {
	connector := transport.NewConnector()
	connector.LookupTimeout = lookupTimeout

	id := uuid.NewString()
	return &Session{
		id:           id,
		server:       "login.icq.com",
		port:         "5190",
		onlineStatus: Online,
		msgCodec:     codec.Default(),
		state:        Disconnected,
		connector:    connector,
		clk:          clk,
		log:          log.Logger.With().Str("caller", "session<Session>").Str("session_id", id).Logger(),
		emit:         emit,
	}
}

// ID returns the session's correlation ID, minted once at construction
// and carried in every log line this session emits.
func (s *Session) ID() string { return s.id }

func (s *Session) emitEvent(ev Event) {
	if s.emit != nil {
		s.emit(ev)
	}
}

// SetUIN sets the account number used for the next Connect.
func (s *Session) SetUIN(uin string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uin = uin
}

// SetPassword sets the account password used for the next Connect.
func (s *Session) SetPassword(password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
}

// SetServer overrides the login host (default login.icq.com).
func (s *Session) SetServer(server string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = server
}

// SetPort overrides the login port (default 5190).
func (s *Session) SetPort(port string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = port
}

// SetCodec selects the legacy text encoding applied to message bodies
// that aren't carried as UTF-8 (spec §4.14 set_codec).
func (s *Session) SetCodec(c codec.Codec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgCodec = c
}

// State reports the session's current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetOnlineStatus changes the session's presence. If connected, it
// sends SNAC (0x01,0x1E) immediately; otherwise it only updates the
// value applied on the next successful Connect. Unlike
// icqSession.cpp's setOnlineStatus (whose same-value early return
// makes the post-login call it issues from processLoginDone a no-op
// and so never actually announces initial presence), this
// implementation always sends on Connect so the network sees the
// configured status.
func (s *Session) SetOnlineStatus(show Show) error {
	s.mu.Lock()
	s.onlineStatus = show
	connected := s.state == Connected
	sock := s.socket
	s.mu.Unlock()

	if !connected {
		return nil
	}
	if err := sendOnlineStatus(sock, show); err != nil {
		return err
	}
	s.emitEvent(Event{Kind: EventStatusChanged, Show: show})
	return nil
}

// sendOnlineStatus builds and writes SNAC (0x01,0x1E), grounded
// field-for-field on icqSession.cpp's setOnlineStatus: TLV 0x06 =
// flags‖status, TLV 0x08 = u16 0, TLV 0x0C = the 37-byte direct-
// connect descriptor the source builds (its own comments mark several
// of these fields "unknown"/guessed; this keeps the source's literal
// bytes rather than the prose 44-byte rounding in the spec text).
func sendOnlineStatus(w oscar.Writer, show Show) error {
	if w == nil {
		return fmt.Errorf("session: not connected")
	}
	status := showToWire(show)

	chain := oscar.NewChain()

	flagsStatus := oscar.NewBuffer()
	flagsStatus.AddWord(flagDCDisabled)
	flagsStatus.AddWord(status)
	chain.Add(oscar.NewTLV(0x06, flagsStatus.Bytes()))

	unknown8 := oscar.NewBuffer()
	unknown8.AddWord(0)
	chain.Add(oscar.NewTLV(0x08, unknown8.Bytes()))

	dc := oscar.NewBuffer()
	dc.AddDWord(0)          // internal ip
	dc.AddDWord(0)          // internal port
	dc.AddByte(0x04)        // dc type: DC_NORMAL
	dc.AddWord(0x000B)      // dc protocol version
	dc.AddDWord(0x01020304) // dc auth cookie
	dc.AddDWord(0x00000050) // web front port
	dc.AddDWord(0x00000001) // client features
	dc.AddDWord(0)          // last info update time
	dc.AddDWord(0)          // last ext status time
	dc.AddWord(0)           // unknown
	dc.AddDWord(0)          // unknown
	chain.Add(oscar.NewTLV(0x0C, dc.Bytes()))

	return w.WriteSnac(oscar.Snac{Family: 0x01, Subtype: 0x1E, Body: chain.Bytes()})
}

// Connect starts the sign-on handshake against server:port. It is a
// no-op if already connecting or connected.
func (s *Session) Connect() {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return
	}
	s.state = Connecting
	hostPort := fmt.Sprintf("%s:%s", s.server, s.port)
	s.mu.Unlock()

	go s.dial(hostPort, nil)
}

// dial resolves and connects to hostPort, then arms a Socket and
// starts (or resumes, for a BOS redirect) the login handshake.
func (s *Session) dial(hostPort string, cookie []byte) {
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.dialCancel = cancel
	s.mu.Unlock()

	conn, err := s.connector.ConnectTo(ctx, hostPort)
	cancel()
	if err != nil {
		s.mu.Lock()
		alreadyTornDown := s.state == Disconnected
		s.mu.Unlock()
		if alreadyTornDown {
			return
		}
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
		s.Disconnect()
		return
	}

	wrapped := transport.WrapConn(conn, hostPort, s.log)
	s.armSocket(wrapped, cookie)
}

// armSocket wires a freshly dialed connection into a new oscar.Socket
// and oscar.LoginMachine and starts the handshake.
func (s *Session) armSocket(conn transport.Conn, cookie []byte) {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		conn.Close()
		return
	}

	sock := oscar.NewSocket(conn, s.clk)
	login := oscar.NewLoginMachine(s.uin, s.password, sock, s.onLoginEvent)
	sock.OnFlap = s.handleFlap
	sock.OnSnac = s.handleSnac
	sock.OnSnacError = s.handleSnacError
	sock.OnReadError = s.handleReadError

	s.socket = sock
	s.login = login
	s.mu.Unlock()

	go sock.Run()

	if err := login.Start(cookie); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
		s.Disconnect()
	}
}

// Disconnect tears the session down from any state. Idempotent.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}

	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	s.stopTimersLocked()

	sock := s.socket
	s.socket = nil
	s.login = nil
	s.ssi = nil
	s.meta = nil
	s.msg = nil
	s.userinfo = nil
	s.state = Disconnected
	s.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	s.emitEvent(Event{Kind: EventDisconnected})
}

// onLoginEvent routes the login machine's handshake events: a BOS
// redirect re-dials and resumes login on the new host; a failure
// tears the session down; completion wires up the post-login
// managers.
func (s *Session) onLoginEvent(ev oscar.LoginEvent) {
	switch ev.Kind {
	case oscar.LoginRedirect:
		s.mu.Lock()
		oldSock := s.socket
		s.socket = nil
		s.login = nil
		s.mu.Unlock()

		if oldSock != nil {
			oldSock.Close()
		}
		go s.dial(ev.HostPort, ev.Cookie)

	case oscar.LoginFailed:
		s.emitEvent(Event{Kind: EventError, Description: ev.Reason})
		s.Disconnect()

	case oscar.LoginFinished:
		s.onConnected()
	}
}

// onConnected wires the post-login managers, matching
// icqSession.cpp::processLoginDone's ordering: SSI parameters +
// contact list check, offline-message drain, then the initial
// presence announce.
func (s *Session) onConnected() {
	s.mu.Lock()
	sock := s.socket
	ownUIN := s.uin
	status := s.onlineStatus
	s.mu.Unlock()

	meta := oscar.NewMetaInfoManager(sock, oscar.ParseUIN(ownUIN))
	userinfo := oscar.NewUserInfoManager(sock, meta, s.onUserInfoEvent)
	isOffline := func(uin string) bool {
		return userinfo.GetStatus(uin) == 0xFFFF
	}
	msg := oscar.NewMessageManager(sock, meta, ownUIN, isOffline, s.onMessageEvent)
	ssi := oscar.NewSSIManager(sock, s.onSSIEvent)

	s.mu.Lock()
	s.meta = meta
	s.userinfo = userinfo
	s.msg = msg
	s.ssi = ssi
	s.state = Connected
	s.armConnectedTimersLocked()
	s.mu.Unlock()

	if err := ssi.RequestParameters(); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
	}
	if err := ssi.CheckList(); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
	}
	if err := msg.RequestOfflineMessages(); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
	}

	s.emitEvent(Event{Kind: EventConnected})

	if err := sendOnlineStatus(sock, status); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
		return
	}
	s.emitEvent(Event{Kind: EventStatusChanged, Show: status})
}

// armConnectedTimersLocked arms the 90s idle timer and the 60s
// keep-alive timer. Caller holds s.mu.
func (s *Session) armConnectedTimersLocked() {
	s.idleTimer = s.clk.AfterFunc(idleTimeout, s.onIdleTimeout)
	s.keepAliveTimer = s.clk.AfterFunc(keepAliveEvery, s.onKeepAlive)
}

func (s *Session) stopTimersLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
	if s.keepAliveTimer != nil {
		s.keepAliveTimer.Stop()
		s.keepAliveTimer = nil
	}
}

// resetTimers re-arms both the idle and keep-alive timers; every
// inbound SNAC while Connected does this (spec §4.14).
func (s *Session) resetTimers() {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return
	}
	s.stopTimersLocked()
	s.armConnectedTimersLocked()
	s.mu.Unlock()
}

func (s *Session) onIdleTimeout() {
	s.emitEvent(Event{Kind: EventError, Description: "connection idle timeout"})
	s.Disconnect()
}

func (s *Session) onKeepAlive() {
	s.mu.Lock()
	sock := s.socket
	connected := s.state == Connected
	s.mu.Unlock()
	if !connected || sock == nil {
		return
	}
	if err := sock.WriteSnac(oscar.Snac{Family: 0x01, Subtype: 0x0E}); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
	}

	s.mu.Lock()
	if s.state == Connected {
		s.keepAliveTimer = s.clk.AfterFunc(keepAliveEvery, s.onKeepAlive)
	}
	s.mu.Unlock()
}

// handleFlap forwards pre-login FLAP frames (sequencing/version
// exchange) to the login machine; once logged in FLAPs carry nothing
// the login machine needs.
func (s *Session) handleFlap(f oscar.Flap) {
	s.mu.Lock()
	login := s.login
	connected := s.state == Connected
	s.mu.Unlock()

	if connected || login == nil {
		return
	}
	if err := login.HandleFlap(f); err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
		s.Disconnect()
	}
}

// handleSnac fans an inbound SNAC out to the login machine first (it
// reports handled=false once it reaches Ready), then to each
// post-login manager in turn.
func (s *Session) handleSnac(snac oscar.Snac) {
	s.resetTimers()

	s.mu.Lock()
	login := s.login
	ssi, meta, msg, userinfo := s.ssi, s.meta, s.msg, s.userinfo
	s.mu.Unlock()

	if login != nil {
		handled, err := login.HandleSnac(snac)
		if err != nil {
			s.emitEvent(Event{Kind: EventError, Description: err.Error()})
			return
		}
		if handled {
			return
		}
	}

	for _, h := range []func(oscar.Snac) (bool, error){
		ssiHandle(ssi), metaHandle(meta), msgHandle(msg), userinfoHandle(userinfo),
	} {
		if h == nil {
			continue
		}
		handled, err := h(snac)
		if err != nil {
			s.emitEvent(Event{Kind: EventError, Description: err.Error()})
			return
		}
		if handled {
			return
		}
	}
}

func ssiHandle(m *oscar.SSIManager) func(oscar.Snac) (bool, error) {
	if m == nil {
		return nil
	}
	return m.HandleSnac
}

func metaHandle(m *oscar.MetaInfoManager) func(oscar.Snac) (bool, error) {
	if m == nil {
		return nil
	}
	return m.HandleSnac
}

func msgHandle(m *oscar.MessageManager) func(oscar.Snac) (bool, error) {
	if m == nil {
		return nil
	}
	return m.HandleSnac
}

func userinfoHandle(m *oscar.UserInfoManager) func(oscar.Snac) (bool, error) {
	if m == nil {
		return nil
	}
	return m.HandleSnac
}

func (s *Session) handleSnacError(e oscar.SnacError) {
	s.emitEvent(Event{
		Kind:        EventError,
		Description: fmt.Sprintf("snac error family=0x%02x code=0x%04x subcode=0x%04x", e.Family, e.Code, e.Subcode),
	})
}

// handleReadError fires once the socket's read loop ends. A nil err
// is a clean close already initiated by Disconnect, in which case the
// state is already Disconnected and this is a no-op.
func (s *Session) handleReadError(err error) {
	s.mu.Lock()
	alreadyDown := s.state == Disconnected
	s.mu.Unlock()
	if alreadyDown {
		return
	}
	if err != nil {
		s.emitEvent(Event{Kind: EventError, Description: err.Error()})
	}
	s.Disconnect()
}

// onSSIEvent translates SSIManager events into session events.
func (s *Session) onSSIEvent(ev oscar.SSIEvent) {
	switch ev.Kind {
	case oscar.SSIContactAdded:
		s.emitEvent(Event{Kind: EventContactAdded, UIN: ev.UIN})
	case oscar.SSIContactDeleted:
		s.emitEvent(Event{Kind: EventContactDeleted, UIN: ev.UIN})
	case oscar.SSIRosterAvailable:
		s.emitEvent(Event{Kind: EventRosterAvailable})
	case oscar.SSIAuthGranted:
		s.emitEvent(Event{Kind: EventAuthGranted, UIN: ev.UIN})
	case oscar.SSIAuthDenied:
		s.emitEvent(Event{Kind: EventAuthDenied, UIN: ev.UIN})
	case oscar.SSIAuthRequested:
		s.emitEvent(Event{Kind: EventAuthRequest, UIN: ev.UIN})
	}
}

// onUserInfoEvent translates UserInfoManager events into session
// events.
func (s *Session) onUserInfoEvent(ev oscar.UserInfoEvent) {
	switch ev.Kind {
	case oscar.StatusChanged:
		s.emitEvent(Event{Kind: EventStatusChanged, Show: wireToShow(ev.Status)})
	case oscar.UserOnline:
		s.emitEvent(Event{Kind: EventUserOnline, UIN: ev.UIN, Show: wireToShow(ev.Status)})
	case oscar.UserOffline:
		s.emitEvent(Event{Kind: EventUserOffline, UIN: ev.UIN})
	case oscar.ShortUserDetailsAvailable:
		s.emitEvent(Event{Kind: EventShortUserDetailsAvailable, UIN: ev.UIN})
	case oscar.UserDetailsAvailable:
		s.emitEvent(Event{Kind: EventShortUserDetailsAvailable, UIN: ev.UIN})
	}
}

// onMessageEvent translates MessageManager events into session
// events. Every incoming message is decoded with the configured
// legacy codec regardless of channel, matching
// icqSession.cpp::processIncomingMessage's unconditional
// msg.text(codec) call; Go strings built from raw bytes (as
// MessageManager.Message.Text already is) carry the original bytes
// unchanged, so re-decoding here is safe even for already-UTF8 bodies.
func (s *Session) onMessageEvent(ev oscar.MessageEvent) {
	switch ev.Kind {
	case oscar.IncomingMessage:
		s.mu.Lock()
		c := s.msgCodec
		s.mu.Unlock()

		text := ev.Message.Text
		if decoded, err := c.Decode([]byte(ev.Message.Text)); err == nil {
			text = decoded
		}
		s.emitEvent(Event{
			Kind:      EventIncomingMessage,
			UIN:       ev.Message.Sender,
			Text:      text,
			Timestamp: ev.Message.Timestamp,
		})
	case oscar.OfflineQueueDrained:
		// no session-level signal; the gateway only cares about the
		// individual IncomingMessage events already emitted per block.
	}
}

// ContactAdd adds uin to the contact list, or re-sends the
// authorization request if it's already present and still pending,
// matching icqSession.cpp::contactAdd's three-way branch.
func (s *Session) ContactAdd(uin string) error {
	s.mu.Lock()
	ssi := s.ssi
	s.mu.Unlock()
	if ssi == nil {
		return fmt.Errorf("session: not connected")
	}

	for _, c := range ssi.ContactList() {
		if c.Name == uin {
			if c.AwaitingAuth() {
				return ssi.RequestAuthorization(uin)
			}
			return nil
		}
	}
	return ssi.AddContact(uin)
}

// ContactDel removes uin from the contact list.
func (s *Session) ContactDel(uin string) error {
	s.mu.Lock()
	ssi := s.ssi
	s.mu.Unlock()
	if ssi == nil {
		return fmt.Errorf("session: not connected")
	}
	return ssi.DelContact(uin)
}

// AuthGrant approves a pending incoming authorization request.
func (s *Session) AuthGrant(uin string) error {
	s.mu.Lock()
	ssi := s.ssi
	s.mu.Unlock()
	if ssi == nil {
		return fmt.Errorf("session: not connected")
	}
	return ssi.GrantAuth(uin)
}

// AuthDeny rejects a pending incoming authorization request.
func (s *Session) AuthDeny(uin string) error {
	s.mu.Lock()
	ssi := s.ssi
	s.mu.Unlock()
	if ssi == nil {
		return fmt.Errorf("session: not connected")
	}
	return ssi.DenyAuth(uin)
}

// RequestShortDetails asks the directory for uin's short details
// (nickname/first/last name), completed asynchronously via
// EventShortUserDetailsAvailable.
func (s *Session) RequestShortDetails(uin string) error {
	s.mu.Lock()
	userinfo := s.userinfo
	s.mu.Unlock()
	if userinfo == nil {
		return fmt.Errorf("session: not connected")
	}
	return userinfo.RequestShortDetails(uin)
}

// UserInfo returns the last cached user-info block for uin, including
// its advertised capability GUIDs.
func (s *Session) UserInfo(uin string) oscar.UserInfo {
	s.mu.Lock()
	userinfo := s.userinfo
	s.mu.Unlock()
	if userinfo == nil {
		return oscar.UserInfo{}
	}
	return userinfo.GetUserInfo(uin)
}

// ShortDetails returns the last short-details reply cached for uin.
func (s *Session) ShortDetails(uin string) oscar.ShortUserDetails {
	s.mu.Lock()
	userinfo := s.userinfo
	s.mu.Unlock()
	if userinfo == nil {
		return oscar.ShortUserDetails{}
	}
	return userinfo.ShortDetails(uin)
}

// Contacts returns the cached SSI contact list, or nil if not connected.
func (s *Session) Contacts() []oscar.Contact {
	s.mu.Lock()
	ssi := s.ssi
	s.mu.Unlock()
	if ssi == nil {
		return nil
	}
	return ssi.ContactList()
}

// SendMessage sends text to recipient, choosing the wire channel from
// the recipient's cached presence. The text is sent as UTF-8 bytes
// regardless of which channel is picked, matching
// icqSession.cpp::sendMessage's unconditional toUtf8() conversion
// (the configured codec only applies to decoding inbound text).
func (s *Session) SendMessage(recipient, text string) error {
	s.mu.Lock()
	msg := s.msg
	ownUIN := s.uin
	s.mu.Unlock()
	if msg == nil {
		return fmt.Errorf("session: not connected")
	}
	return msg.SendMessage(oscar.Message{
		Sender:   ownUIN,
		Receiver: recipient,
		Text:     text,
	})
}
