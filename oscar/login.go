package oscar

import (
	"crypto/md5"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// loginAuthSuffix is the fixed ASCII string appended to the server
// challenge key and password before MD5-hashing (spec §4.8 step 3 /
// §6). It carries no NUL terminator.
const loginAuthSuffix = "AOL Instant Messenger (SM)"

// LoginState names a step of the sign-on handshake (spec §4.8).
type LoginState int

const (
	StateAuthInit LoginState = iota
	StateKeyRequest
	StateKeyReply
	StateRedirect
	StateBosInit
	StateFamilyList
	StateFamilyVersions
	StateLocationRights
	StateBuddyListRights
	StateIcbmParams
	StatePrivacyRights
	StateReady
)

func (s LoginState) String() string {
	switch s {
	case StateAuthInit:
		return "AuthInit"
	case StateKeyRequest:
		return "KeyRequest"
	case StateKeyReply:
		return "KeyReply"
	case StateRedirect:
		return "Redirect"
	case StateBosInit:
		return "BosInit"
	case StateFamilyList:
		return "FamilyList"
	case StateFamilyVersions:
		return "FamilyVersions"
	case StateLocationRights:
		return "LocationRights"
	case StateBuddyListRights:
		return "BuddyListRights"
	case StateIcbmParams:
		return "IcbmParams"
	case StatePrivacyRights:
		return "PrivacyRights"
	case StateReady:
		return "Ready"
	default:
		return "Unknown"
	}
}

// implementedFamilies lists the SNAC families this client implements
// and the version it claims for each (spec §4.8 step 5/9).
var implementedFamilies = []FamilySubtype{
	{0x0001, 0x0004},
	{0x0002, 0x0001},
	{0x0003, 0x0001},
	{0x0004, 0x0001},
	{0x0009, 0x0001},
	{0x0013, 0x0005},
	{0x0015, 0x0002},
}

// LoginEventKind enumerates the events the login machine surfaces to
// its owner (normally the session, C15).
type LoginEventKind int

const (
	// LoginRedirect asks the owner to drop the auth connection and
	// reconnect to HostPort, then call Start with the carried cookie.
	LoginRedirect LoginEventKind = iota
	// LoginFailed is a fatal authentication error (TLV 0x08 present).
	LoginFailed
	// LoginFinished means the handshake reached StateReady.
	LoginFinished
)

// LoginEvent is emitted by the machine as the handshake progresses.
type LoginEvent struct {
	Kind     LoginEventKind
	HostPort string // valid for LoginRedirect
	Cookie   []byte // valid for LoginRedirect
	Reason   string // valid for LoginFailed
}

// Writer is the subset of the OSCAR socket the login machine needs:
// framing and sequencing are the writer's responsibility.
type Writer interface {
	WriteFlap(channel byte, payload []byte) error
	WriteSnac(s Snac) error
}

// LoginMachine drives the multi-step sign-on handshake described in
// spec §4.8: FLAP version exchange, MD5 challenge/response, BOS
// redirect, then family negotiation up to Ready.
type LoginMachine struct {
	UIN      string
	Password string

	state  LoginState
	cookie []byte
	w      Writer
	emit   func(LoginEvent)
	log    zerolog.Logger
}

// NewLoginMachine builds a machine bound to a Writer and an event sink.
func NewLoginMachine(uin, password string, w Writer, emit func(LoginEvent)) *LoginMachine {
	return &LoginMachine{
		UIN:      uin,
		Password: password,
		w:        w,
		emit:     emit,
		log:      log.Logger.With().Str("caller", "oscar<LoginMachine>").Logger(),
	}
}

// State reports the machine's current step, for diagnostics and tests.
func (m *LoginMachine) State() LoginState { return m.state }

// Start begins (or resumes, after a BOS redirect) the handshake by
// sending FLAP(Auth, version=1). If cookie is non-nil it is appended
// as TLV 0x06, matching the BOS reconnect case (spec §4.8 step 4).
func (m *LoginMachine) Start(cookie []byte) error {
	buf := NewBuffer()
	buf.AddDWord(1)
	if cookie != nil {
		NewTLV(0x06, cookie).Encode(buf)
		m.state = StateBosInit
	} else {
		m.state = StateAuthInit
	}
	return m.w.WriteFlap(ChannelAuth, buf.Bytes())
}

// HandleFlap processes a FLAP frame arriving on the Auth channel while
// signing on. Everything else is routed through HandleSnac.
func (m *LoginMachine) HandleFlap(f Flap) error {
	if f.Channel != ChannelAuth {
		return nil
	}
	switch m.state {
	case StateAuthInit:
		// Server echoes its own version; request the MD5 challenge.
		m.state = StateKeyRequest
		chain := NewChain().AddString(0x01, m.UIN)
		snac := Snac{Family: 0x17, Subtype: 0x06, Body: chain.Bytes()}
		return m.w.WriteSnac(snac)
	case StateBosInit:
		// Server echoes its own version on the BOS connection; now we
		// wait for the family list SNAC (0x01,0x03).
		m.state = StateFamilyList
		return nil
	}
	return nil
}

// HandleSnac dispatches one SNAC arriving during the login sequence.
// It returns (handled, error): handled is false once the state machine
// has reached Ready, signalling the caller to route the SNAC to the
// session's ordinary managers instead.
func (m *LoginMachine) HandleSnac(s Snac) (bool, error) {
	switch s.FamilySubtype() {
	case FamilySubtype{0x17, 0x07}:
		return true, m.handleKeyReply(s)
	case FamilySubtype{0x17, 0x03}:
		return true, m.handleAuthReply(s)
	case FamilySubtype{0x01, 0x03}:
		return true, m.handleFamilyList(s)
	case FamilySubtype{0x01, 0x18}:
		return true, m.handleFamilyVersions(s)
	case FamilySubtype{0x02, 0x03}:
		return true, m.handleLocationRights(s)
	case FamilySubtype{0x04, 0x05}:
		return true, m.handleIcbmParams(s)
	}
	if m.state == StateReady {
		return false, nil
	}
	// Unrecognised SNAC during sign-on; drain silently rather than
	// misroute it to managers that aren't ready yet.
	return true, nil
}

func (m *LoginMachine) handleKeyReply(s Snac) error {
	if m.state != StateKeyRequest {
		return nil
	}
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	keyLen, err := buf.GetWord()
	if err != nil {
		return err
	}
	key, err := buf.GetBlock(int(keyLen))
	if err != nil {
		return err
	}

	sum := md5.Sum(append(append(append([]byte{}, key...), m.Password...), loginAuthSuffix...))

	chain := NewChain().
		AddString(0x01, m.UIN).
		AddString(0x03, "ICQBasic").
		Add(NewTLV(0x25, sum[:])).
		AddWord(0x16, 0x010B)

	m.state = StateKeyReply
	return m.w.WriteSnac(Snac{Family: 0x17, Subtype: 0x02, Body: chain.Bytes()})
}

func (m *LoginMachine) handleAuthReply(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	chain, err := ChainFromBuffer(buf)
	if err != nil {
		return err
	}
	if chain.Has(0x08) {
		m.emit(LoginEvent{Kind: LoginFailed, Reason: "authentication rejected"})
		return nil
	}
	if !chain.Has(0x05) || !chain.Has(0x06) {
		m.emit(LoginEvent{Kind: LoginFailed, Reason: "redirect missing cookie or BOS address"})
		return nil
	}
	m.cookie = append([]byte{}, chain.GetData(0x06)...)
	m.state = StateRedirect
	m.emit(LoginEvent{Kind: LoginRedirect, HostPort: chain.Get(0x05).AsString(), Cookie: m.cookie})
	return nil
}

func (m *LoginMachine) handleFamilyList(s Snac) error {
	buf := NewBuffer()
	for _, fs := range implementedFamilies {
		buf.AddWord(fs.Family)
		buf.AddWord(fs.Subtype)
	}
	m.state = StateFamilyVersions
	return m.w.WriteSnac(Snac{Family: 0x01, Subtype: 0x17, Body: buf.Bytes()})
}

func (m *LoginMachine) handleFamilyVersions(s Snac) error {
	m.state = StateLocationRights

	requests := []FamilySubtype{
		{0x02, 0x02},
		{0x03, 0x02},
		{0x04, 0x04},
		{0x09, 0x02},
	}
	for _, fs := range requests {
		if err := m.w.WriteSnac(Snac{Family: fs.Family, Subtype: fs.Subtype}); err != nil {
			return err
		}
	}
	return nil
}

func (m *LoginMachine) handleLocationRights(s Snac) error {
	buf := NewBuffer()
	for _, g := range ClientCapabilities {
		buf.AddBytes(g.Bytes())
	}
	chain := NewChain().Add(NewTLV(0x05, buf.Bytes()))
	m.state = StateIcbmParams
	return m.w.WriteSnac(Snac{Family: 0x02, Subtype: 0x04, Body: chain.Bytes()})
}

func (m *LoginMachine) handleIcbmParams(s Snac) error {
	buf := NewBuffer()
	buf.AddWord(0)      // channel
	buf.AddWord(0x0003) // msg_flags
	buf.AddWord(8000)   // max_msg_size
	buf.AddWord(999)    // max_sender_warn
	buf.AddWord(999)    // max_recv_warn
	buf.AddWord(0)      // min_interval
	buf.AddWord(0)      // unknown

	if err := m.w.WriteSnac(Snac{Family: 0x04, Subtype: 0x02, Body: buf.Bytes()}); err != nil {
		return err
	}
	return m.finish()
}

// finish sends CLI_READY and transitions to Ready.
func (m *LoginMachine) finish() error {
	m.state = StateReady

	buf := NewBuffer()
	for _, fs := range implementedFamilies {
		buf.AddWord(fs.Family)
		buf.AddWord(fs.Subtype)
		buf.AddWord(0x0110)
		buf.AddWord(0x1246)
	}
	if err := m.w.WriteSnac(Snac{Family: 0x01, Subtype: 0x02, Body: buf.Bytes()}); err != nil {
		return err
	}
	m.emit(LoginEvent{Kind: LoginFinished})
	return nil
}
