package oscar

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// UserInfo is the TLV-backed presence/capability block carried by SNAC
// families 0x01 and 0x03 (spec §4.13), grounded on
// original_source/icq/types/icqUserInfo.cpp.
type UserInfo struct {
	UIN          string
	ClassFlags   uint32
	SignOnTime   uint32
	RegisterTime uint32
	OnlineStatus uint16
	StatusFlags  uint16
	ExternalIP   uint32
	IdleTime     uint16
	Capabilities []Guid

	present map[uint16]bool
}

// HasTLV reports whether the given TLV type contributed to this block,
// the way the source's tlvSet gates merges.
func (u UserInfo) HasTLV(t uint16) bool {
	return u.present != nil && u.present[t]
}

func (u *UserInfo) mark(t uint16) {
	if u.present == nil {
		u.present = make(map[uint16]bool)
	}
	u.present[t] = true
}

// decodeUserInfoBlock reads one `{u8 uin_len, uin, u16 warning, u16
// tlv_count, tlvs}` block (spec §4.13).
func decodeUserInfoBlock(buf *Buffer) (UserInfo, error) {
	var info UserInfo
	uinLen, err := buf.GetByte()
	if err != nil {
		return info, err
	}
	uinBytes, err := buf.GetBlock(int(uinLen))
	if err != nil {
		return info, err
	}
	if _, err := buf.GetWord(); err != nil { // warning level
		return info, err
	}
	tlvCount, err := buf.GetWord()
	if err != nil {
		return info, err
	}
	chain := NewChain()
	for i := uint16(0); i < tlvCount; i++ {
		tlv, err := DecodeTLV(buf)
		if err != nil {
			return info, err
		}
		chain.Add(tlv)
	}

	info.UIN = string(uinBytes)
	if chain.Has(0x01) {
		info.ClassFlags = chain.Get(0x01).AsDWord()
		info.mark(0x01)
	}
	if chain.Has(0x03) {
		info.SignOnTime = chain.Get(0x03).AsDWord()
		info.mark(0x03)
	}
	if chain.Has(0x04) {
		info.IdleTime = chain.Get(0x04).AsWord()
		info.mark(0x04)
	}
	if chain.Has(0x05) {
		info.RegisterTime = chain.Get(0x05).AsDWord()
		info.mark(0x05)
	}
	if chain.Has(0x06) {
		v := NewBufferFromBytes(chain.GetData(0x06))
		info.StatusFlags, _ = v.GetWord()
		info.OnlineStatus, _ = v.GetWord()
		info.mark(0x06)
	}
	if chain.Has(0x0A) {
		info.ExternalIP = chain.Get(0x0A).AsDWord()
		info.mark(0x0A)
	}
	if chain.Has(0x0D) {
		v := NewBufferFromBytes(chain.GetData(0x0D))
		for v.BytesAvailable() >= 16 {
			raw, _ := v.GetBlock(16)
			g, err := GuidFromBytes(raw)
			if err == nil {
				info.Capabilities = append(info.Capabilities, g)
			}
		}
		info.mark(0x0D)
	}
	return info, nil
}

// mergeFrom copies every TLV-backed field present in other into u,
// leaving fields it doesn't carry untouched (spec §4.13).
func (u *UserInfo) mergeFrom(other UserInfo) {
	if other.HasTLV(0x01) {
		u.ClassFlags = other.ClassFlags
		u.mark(0x01)
	}
	if other.HasTLV(0x03) {
		u.SignOnTime = other.SignOnTime
		u.mark(0x03)
	}
	if other.HasTLV(0x04) {
		u.IdleTime = other.IdleTime
		u.mark(0x04)
	}
	if other.HasTLV(0x05) {
		u.RegisterTime = other.RegisterTime
		u.mark(0x05)
	}
	if other.HasTLV(0x06) {
		u.StatusFlags = other.StatusFlags
		u.OnlineStatus = other.OnlineStatus
		u.mark(0x06)
	}
	if other.HasTLV(0x0A) {
		u.ExternalIP = other.ExternalIP
		u.mark(0x0A)
	}
	if other.HasTLV(0x0D) {
		u.Capabilities = other.Capabilities
		u.mark(0x0D)
	}
}

// ShortUserDetails is the directory-lookup "short details" reply
// (meta subtype 0x0104).
type ShortUserDetails struct {
	UIN       string
	Nick      string
	FirstName string
	LastName  string
	Email     string
}

// UserDetails is the full multi-step directory-lookup assembly (meta
// subtypes 0x00C8..0x00FA).
type UserDetails struct {
	UIN string

	Nick      string
	FirstName string
	LastName  string
	Email     string
	Emails    []string

	HomeCity    string
	HomeState   string
	HomePhone   string
	HomeFax     string
	HomeAddress string
	CellPhone   string
	HomeZip     string

	Age         uint16
	Homepage    string
	BirthYear   uint16
	BirthMonth  byte
	BirthDay    byte
	OriginCity  string
	OriginState string

	WorkCity       string
	WorkState      string
	WorkPhone      string
	WorkFax        string
	WorkAddress    string
	WorkZip        string
	WorkCompany    string
	WorkDepartment string
	WorkPosition   string
	WorkWebpage    string

	Notes string
}

// UserInfoEventKind distinguishes the events UserInfoManager emits.
type UserInfoEventKind int

const (
	StatusChanged UserInfoEventKind = iota
	UserOnline
	UserOffline
	ShortUserDetailsAvailable
	UserDetailsAvailable
)

// UserInfoEvent is fired whenever presence or directory-lookup state
// changes.
type UserInfoEvent struct {
	Kind   UserInfoEventKind
	UIN    string
	Status uint16
}

// UserInfoManager tracks own/peer presence (SNAC family 0x01/0x03) and
// drives directory lookups over the meta-info channel (spec §4.13),
// grounded on
// original_source/icq/managers/icqUserInfoManager.cpp.
type UserInfoManager struct {
	w    Writer
	meta *MetaInfoManager
	emit func(UserInfoEvent)
	log  zerolog.Logger

	mu           sync.Mutex
	ownInfo      UserInfo
	peers        map[string]UserInfo
	status       map[string]uint16
	shortDetails map[string]ShortUserDetails
	fullDetails  map[string]UserDetails
	lastDetails  UserDetails
	uinRequests  []string
}

// NewUserInfoManager builds a UserInfoManager bound to a Writer and
// the meta-info channel it shares with directory lookups.
func NewUserInfoManager(w Writer, meta *MetaInfoManager, emit func(UserInfoEvent)) *UserInfoManager {
	m := &UserInfoManager{
		w:            w,
		meta:         meta,
		emit:         emit,
		log:          log.Logger.With().Str("caller", "UserInfoManager").Logger(),
		peers:        make(map[string]UserInfo),
		status:       make(map[string]uint16),
		shortDetails: make(map[string]ShortUserDetails),
		fullDetails:  make(map[string]UserDetails),
	}
	meta.Subscribe(0x07DA, m.handleDirectoryReply)
	return m
}

// HandleSnac dispatches SNAC (0x01,0x0F) own-info and SNAC
// (0x03,0x0B)/(0x03,0x0C) presence notifications.
func (m *UserInfoManager) HandleSnac(s Snac) (bool, error) {
	switch s.FamilySubtype() {
	case FamilySubtype{0x01, 0x0F}:
		return true, m.handleOwnInfo(s)
	case FamilySubtype{0x03, 0x0B}:
		return true, m.handleOnlineNotification(s)
	case FamilySubtype{0x03, 0x0C}:
		return true, m.handleOfflineNotification(s)
	default:
		return false, nil
	}
}

func (m *UserInfoManager) handleOwnInfo(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	info, err := decodeUserInfoBlock(buf)
	if err != nil {
		return err
	}

	m.mu.Lock()
	hasStatus := info.HasTLV(0x06)
	m.ownInfo.mergeFrom(info)
	status := m.ownInfo.OnlineStatus
	m.mu.Unlock()

	if hasStatus {
		m.emit(UserInfoEvent{Kind: StatusChanged, UIN: info.UIN, Status: status})
	}
	return nil
}

func (m *UserInfoManager) handleOnlineNotification(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	for !buf.AtEnd() {
		info, err := decodeUserInfoBlock(buf)
		if err != nil {
			return err
		}

		m.mu.Lock()
		existing, ok := m.peers[info.UIN]
		if ok {
			existing.mergeFrom(info)
		} else {
			existing = info
		}
		m.peers[info.UIN] = existing
		m.status[info.UIN] = existing.OnlineStatus
		m.mu.Unlock()

		m.emit(UserInfoEvent{Kind: UserOnline, UIN: info.UIN, Status: info.OnlineStatus})
	}
	return nil
}

func (m *UserInfoManager) handleOfflineNotification(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	for !buf.AtEnd() {
		info, err := decodeUserInfoBlock(buf)
		if err != nil {
			return err
		}
		m.emit(UserInfoEvent{Kind: UserOffline, UIN: info.UIN})
	}
	return nil
}

// GetUserInfo returns the cached presence block for uin, or the zero
// value if unknown.
func (m *UserInfoManager) GetUserInfo(uin string) UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[uin]
}

// GetStatus returns uin's last known status, or 0xFFFF (offline) if
// it has never been seen online.
func (m *UserInfoManager) GetStatus(uin string) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.status[uin]; ok {
		return s
	}
	return 0xFFFF
}

// sendDirectoryRequest issues a meta-info request of type 0x07D0 with
// the given data subtype and target uin, and pushes uin onto the FIFO
// that disambiguates the multi-step replies.
func (m *UserInfoManager) sendDirectoryRequest(dataSubtype uint16, uin string) error {
	body := NewBuffer()
	body.AddLEWord(dataSubtype)
	body.AddLEDWord(parseUINDecimal(uin))

	m.mu.Lock()
	m.uinRequests = append(m.uinRequests, uin)
	m.mu.Unlock()

	return m.meta.Request(0x07D0, body.Bytes())
}

func parseUINDecimal(uin string) uint32 {
	var v uint32
	for _, r := range uin {
		if r < '0' || r > '9' {
			break
		}
		v = v*10 + uint32(r-'0')
	}
	return v
}

// ParseUIN converts a decimal UIN string to its numeric wire form, for
// callers (the session orchestrator) that need it outside this package.
func ParseUIN(uin string) uint32 {
	return parseUINDecimal(uin)
}

// RequestOwnUserDetails asks for the caller's own full details.
func (m *UserInfoManager) RequestOwnUserDetails(uin string) error {
	return m.sendDirectoryRequest(0x04B2, uin)
}

// RequestUserDetails asks for uin's full directory details, short-
// circuiting with a cached-hit event if already known.
func (m *UserInfoManager) RequestUserDetails(uin string) error {
	m.mu.Lock()
	_, cached := m.fullDetails[uin]
	m.mu.Unlock()
	if cached {
		m.emit(UserInfoEvent{Kind: UserDetailsAvailable, UIN: uin})
		return nil
	}
	return m.sendDirectoryRequest(0x04D0, uin)
}

// RequestShortDetails asks for uin's short directory details,
// short-circuiting with a cached-hit event if already known.
func (m *UserInfoManager) RequestShortDetails(uin string) error {
	m.mu.Lock()
	_, cached := m.shortDetails[uin]
	m.mu.Unlock()
	if cached {
		m.emit(UserInfoEvent{Kind: ShortUserDetailsAvailable, UIN: uin})
		return nil
	}
	return m.sendDirectoryRequest(0x04BA, uin)
}

// ShortDetails returns the cached short-details reply for uin.
func (m *UserInfoManager) ShortDetails(uin string) ShortUserDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shortDetails[uin]
}

// FullDetails returns the cached full-details reply for uin.
func (m *UserInfoManager) FullDetails(uin string) UserDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fullDetails[uin]
}

// ClearShortDetails drops the cached short-details reply for uin so a
// subsequent RequestShortDetails re-fetches it.
func (m *UserInfoManager) ClearShortDetails(uin string) {
	m.mu.Lock()
	delete(m.shortDetails, uin)
	m.mu.Unlock()
}

// ClearUserDetails drops the cached full-details reply for uin so a
// subsequent RequestUserDetails re-fetches it.
func (m *UserInfoManager) ClearUserDetails(uin string) {
	m.mu.Lock()
	delete(m.fullDetails, uin)
	m.mu.Unlock()
}

func readLPString(buf *Buffer) (string, error) {
	n, err := buf.GetLEWord()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	s, err := buf.GetBlock(int(n) - 1)
	if err != nil {
		return "", err
	}
	buf.SeekForward(1) // trailing NUL
	return string(s), nil
}

// handleDirectoryReply fans out meta-info type 0x07DA replies by data
// subtype (spec §4.13): `{le_u16 subtype, u8 success}` then
// subtype-specific fields.
func (m *UserInfoManager) handleDirectoryReply(data []byte) {
	buf := NewBufferFromBytes(data)
	subtype, err := buf.GetLEWord()
	if err != nil {
		return
	}
	success, err := buf.GetByte()
	if err != nil {
		return
	}
	if success != 0x0A {
		m.log.Debug().Uint16("subtype", subtype).Uint8("success", success).Msg("directory lookup failed")
		return
	}

	switch subtype {
	case 0x0104:
		m.processShortUserInfo(buf)
	case 0x00C8:
		m.processBasicUserInfo(buf)
	case 0x00DC:
		m.processMoreUserInfo(buf)
	case 0x00EB:
		m.processEmailUserInfo(buf)
	case 0x00D2:
		m.processWorkUserInfo(buf)
	case 0x00E6:
		m.processNotesUserInfo(buf)
	case 0x00FA:
		m.processAffiliationsUserInfo()
	default:
		m.log.Debug().Uint16("subtype", subtype).Msg("unhandled directory lookup subtype")
	}
}

func (m *UserInfoManager) dequeueRequest() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.uinRequests) == 0 {
		return "", false
	}
	uin := m.uinRequests[0]
	m.uinRequests = m.uinRequests[1:]
	return uin, true
}

func (m *UserInfoManager) processShortUserInfo(buf *Buffer) {
	uin, ok := m.dequeueRequest()
	if !ok {
		m.log.Warn().Msg("short user details reply with no pending request")
		return
	}
	nick, _ := readLPString(buf)
	first, _ := readLPString(buf)
	last, _ := readLPString(buf)
	email, _ := readLPString(buf)

	details := ShortUserDetails{UIN: uin, Nick: nick, FirstName: first, LastName: last, Email: email}
	m.mu.Lock()
	m.shortDetails[uin] = details
	m.mu.Unlock()
	m.emit(UserInfoEvent{Kind: ShortUserDetailsAvailable, UIN: uin})
}

func (m *UserInfoManager) processBasicUserInfo(buf *Buffer) {
	m.lastDetails.Nick, _ = readLPString(buf)
	m.lastDetails.FirstName, _ = readLPString(buf)
	m.lastDetails.LastName, _ = readLPString(buf)
	m.lastDetails.Email, _ = readLPString(buf)
	m.lastDetails.HomeCity, _ = readLPString(buf)
	m.lastDetails.HomeState, _ = readLPString(buf)
	m.lastDetails.HomePhone, _ = readLPString(buf)
	m.lastDetails.HomeFax, _ = readLPString(buf)
	m.lastDetails.HomeAddress, _ = readLPString(buf)
	m.lastDetails.CellPhone, _ = readLPString(buf)
	m.lastDetails.HomeZip, _ = readLPString(buf)
}

func (m *UserInfoManager) processMoreUserInfo(buf *Buffer) {
	age, _ := buf.GetWord()
	m.lastDetails.Age = age
	_, _ = buf.GetByte() // gender
	m.lastDetails.Homepage, _ = readLPString(buf)
	year, _ := buf.GetLEWord()
	month, _ := buf.GetByte()
	day, _ := buf.GetByte()
	m.lastDetails.BirthYear = year
	m.lastDetails.BirthMonth = month
	m.lastDetails.BirthDay = day
	buf.SeekForward(3) // three language codes
	buf.SeekForward(2) // unknown
	m.lastDetails.OriginCity, _ = readLPString(buf)
	m.lastDetails.OriginState, _ = readLPString(buf)
}

func (m *UserInfoManager) processEmailUserInfo(buf *Buffer) {
	count, err := buf.GetByte()
	if err != nil {
		return
	}
	for i := byte(0); i < count; i++ {
		if _, err := buf.GetByte(); err != nil { // is-private flag
			return
		}
		email, err := readLPString(buf)
		if err != nil {
			return
		}
		m.lastDetails.Emails = append(m.lastDetails.Emails, email)
	}
}

func (m *UserInfoManager) processWorkUserInfo(buf *Buffer) {
	m.lastDetails.WorkCity, _ = readLPString(buf)
	m.lastDetails.WorkState, _ = readLPString(buf)
	m.lastDetails.WorkPhone, _ = readLPString(buf)
	m.lastDetails.WorkFax, _ = readLPString(buf)
	m.lastDetails.WorkAddress, _ = readLPString(buf)
	m.lastDetails.WorkZip, _ = readLPString(buf)
	buf.SeekForward(2) // country code
	m.lastDetails.WorkCompany, _ = readLPString(buf)
	m.lastDetails.WorkDepartment, _ = readLPString(buf)
	m.lastDetails.WorkPosition, _ = readLPString(buf)
	buf.SeekForward(2) // occupation code
	m.lastDetails.WorkWebpage, _ = readLPString(buf)
}

func (m *UserInfoManager) processNotesUserInfo(buf *Buffer) {
	m.lastDetails.Notes, _ = readLPString(buf)
}

func (m *UserInfoManager) processAffiliationsUserInfo() {
	uin, ok := m.dequeueRequest()
	if !ok {
		m.log.Warn().Msg("user details reply with no pending request")
		m.lastDetails = UserDetails{}
		return
	}
	m.lastDetails.UIN = uin
	m.mu.Lock()
	m.fullDetails[uin] = m.lastDetails
	m.mu.Unlock()
	m.lastDetails = UserDetails{}
	m.emit(UserInfoEvent{Kind: UserDetailsAvailable, UIN: uin})
}
