package oscar

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ContactType enumerates SSI item kinds (spec §3 "Contact (SSI item)").
type ContactType uint16

const (
	ContactBuddy      ContactType = 0x0000
	ContactGroup      ContactType = 0x0001
	ContactVisible    ContactType = 0x0002
	ContactInvisible  ContactType = 0x0003
	ContactPermitDeny ContactType = 0x0004
	ContactPresence   ContactType = 0x0005
	ContactIgnore     ContactType = 0x000E
	ContactSelfIcon   ContactType = 0x0013
	ContactDeleted    ContactType = 0x0019
)

// tlvChildList is the group's child-item-id list, TLV 0xC8 (spec §3).
const tlvChildList = 0xC8

// tlvAwaitingAuth marks a contact pending server authorisation, TLV
// 0x0066 (spec §3).
const tlvAwaitingAuth = 0x0066

// tlvDisplayName carries a buddy's display name, TLV 0x0131 (spec §4.10).
const tlvDisplayName = 0x0131

// Contact is one SSI list entry: a buddy, a group, or one of the
// special single-instance items (spec §3).
type Contact struct {
	Name    string
	GroupID uint16
	ItemID  uint16
	Type    ContactType
	Data    *Chain
}

// AwaitingAuth reports whether this contact is waiting on the legacy
// network to approve an authorisation request.
func (c Contact) AwaitingAuth() bool {
	return c.Data != nil && c.Data.Has(tlvAwaitingAuth)
}

// SetAwaitingAuth sets or clears the TLV 0x0066 marker.
func (c *Contact) SetAwaitingAuth(v bool) {
	if c.Data == nil {
		c.Data = NewChain()
	}
	if v {
		c.Data.Add(NewTLV(tlvAwaitingAuth, nil))
	} else {
		c.Data.Remove(tlvAwaitingAuth)
	}
}

// DisplayName reads TLV 0x0131, falling back to Name.
func (c Contact) DisplayName() string {
	if c.Data != nil && c.Data.Has(tlvDisplayName) {
		return c.Data.Get(tlvDisplayName).AsString()
	}
	return c.Name
}

// SetDisplayName writes TLV 0x0131.
func (c *Contact) SetDisplayName(name string) {
	if c.Data == nil {
		c.Data = NewChain()
	}
	c.Data.AddString(tlvDisplayName, name)
}

// Children returns a group's child item ids from TLV 0xC8.
func (c Contact) Children() []uint16 {
	if c.Data == nil || !c.Data.Has(tlvChildList) {
		return nil
	}
	buf := NewBufferFromBytes(c.Data.GetData(tlvChildList))
	var ids []uint16
	for !buf.AtEnd() {
		id, err := buf.GetWord()
		if err != nil {
			break
		}
		ids = append(ids, id)
	}
	return ids
}

// SetChildren writes a group's child-item-id list to TLV 0xC8.
func (c *Contact) SetChildren(ids []uint16) {
	if c.Data == nil {
		c.Data = NewChain()
	}
	buf := NewBuffer()
	for _, id := range ids {
		buf.AddWord(id)
	}
	c.Data.Add(NewTLV(tlvChildList, buf.Bytes()))
}

// IsMasterGroup reports whether this is the root group (spec §3:
// group_id == 0 ∧ item_id == 0).
func (c Contact) IsMasterGroup() bool {
	return c.Type == ContactGroup && c.GroupID == 0 && c.ItemID == 0
}

// encodeContact renders the wire form used both in the full-list reply
// and in add/update/remove SNAC bodies: {u16 name_len, name, u16 gid,
// u16 iid, u16 type, u16 data_len, data}.
func encodeContact(buf *Buffer, c Contact) {
	buf.AddWord(uint16(len(c.Name)))
	buf.AddString(c.Name)
	buf.AddWord(c.GroupID)
	buf.AddWord(c.ItemID)
	buf.AddWord(uint16(c.Type))
	var data []byte
	if c.Data != nil {
		data = c.Data.Bytes()
	}
	buf.AddWord(uint16(len(data)))
	buf.AddBytes(data)
}

func decodeContact(buf *Buffer) (Contact, error) {
	nameLen, err := buf.GetWord()
	if err != nil {
		return Contact{}, err
	}
	nameBytes, err := buf.GetBlock(int(nameLen))
	if err != nil {
		return Contact{}, err
	}
	gid, err := buf.GetWord()
	if err != nil {
		return Contact{}, err
	}
	iid, err := buf.GetWord()
	if err != nil {
		return Contact{}, err
	}
	typ, err := buf.GetWord()
	if err != nil {
		return Contact{}, err
	}
	dataLen, err := buf.GetWord()
	if err != nil {
		return Contact{}, err
	}
	dataBytes, err := buf.GetBlock(int(dataLen))
	if err != nil {
		return Contact{}, err
	}
	chain, err := ChainFromBytes(dataBytes)
	if err != nil {
		return Contact{}, err
	}
	return Contact{
		Name:    string(nameBytes),
		GroupID: gid,
		ItemID:  iid,
		Type:    ContactType(typ),
		Data:    chain,
	}, nil
}

// SSIEventKind enumerates the events the SSI manager surfaces.
type SSIEventKind int

const (
	SSIContactAdded SSIEventKind = iota
	SSIContactDeleted
	SSIAuthGranted
	SSIAuthDenied
	SSIAuthRequested
	SSIRosterAvailable
)

// SSIEvent is emitted as the contact list is synchronised and edited.
type SSIEvent struct {
	Kind SSIEventKind
	UIN  string
}

// SSIManager mirrors the server-side contact list and drives
// transactional edits against it (spec C11).
type SSIManager struct {
	mu sync.Mutex

	w    Writer
	emit func(SSIEvent)
	log  zerolog.Logger

	items          map[uint16]Contact
	masterGroup    Contact
	existingGroups map[uint16]bool
	existingItems  map[uint16]bool
	outgoing       []Contact
	lastUpdate     uint32

	MaxContacts, MaxGroups, MaxVisible, MaxInvisible, MaxIgnored uint16

	rng *rand.Rand
}

// NewSSIManager builds an SSIManager bound to a Writer and event sink.
func NewSSIManager(w Writer, emit func(SSIEvent)) *SSIManager {
	return &SSIManager{
		w:              w,
		emit:           emit,
		log:            log.Logger.With().Str("caller", "oscar<SSIManager>").Logger(),
		items:          make(map[uint16]Contact),
		existingGroups: make(map[uint16]bool),
		existingItems:  make(map[uint16]bool),
		rng:            rand.New(rand.NewSource(1)),
	}
}

// RequestParameters sends CLI_SSI_RIGHTS_REQUEST (0x13,0x02).
func (m *SSIManager) RequestParameters() error {
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x02})
}

// CheckList sends CLI_SSI_CHECKOUT (0x13,0x05) with the cached
// modification time and item count, letting the server decide whether
// to push a full list or confirm up-to-date.
func (m *SSIManager) CheckList() error {
	m.mu.Lock()
	buf := NewBuffer()
	buf.AddDWord(m.lastUpdate)
	buf.AddWord(uint16(len(m.items)))
	m.mu.Unlock()
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x05, Body: buf.Bytes()})
}

// HandleSnac dispatches one family-0x13 SNAC. Anything else is
// reported unhandled.
func (m *SSIManager) HandleSnac(s Snac) (bool, error) {
	if s.Family != 0x13 {
		return false, nil
	}
	switch s.Subtype {
	case 0x03:
		return true, m.handleParameters(s)
	case 0x06:
		return true, m.handleFullList(s)
	case 0x08:
		return true, m.handleAdd(s)
	case 0x09:
		return true, m.handleUpdate(s)
	case 0x0A:
		return true, m.handleRemove(s)
	case 0x0E:
		return true, m.handleEditAck(s)
	case 0x0F:
		return true, m.handleUpToDate(s)
	case 0x11, 0x12:
		return true, nil // transaction boundaries from the server; observed only
	case 0x15:
		return true, m.handleAuthGranted(s)
	case 0x1B:
		return true, m.handleAuthReply(s)
	default:
		return true, nil
	}
}

func (m *SSIManager) handleParameters(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	chain, err := ChainFromBuffer(buf)
	if err != nil {
		return err
	}
	limits := NewBufferFromBytes(chain.GetData(0x04))
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MaxContacts, _ = limits.GetWord()
	m.MaxGroups, _ = limits.GetWord()
	m.MaxVisible, _ = limits.GetWord()
	m.MaxInvisible, _ = limits.GetWord()
	limits.SeekForward(2 * 10)
	m.MaxIgnored, _ = limits.GetWord()
	return nil
}

func (m *SSIManager) handleFullList(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	if _, err := buf.GetByte(); err != nil { // version byte, always 0
		return err
	}
	count, err := buf.GetWord()
	if err != nil {
		return err
	}

	var tombstones []Contact

	m.mu.Lock()
	for i := 0; i < int(count); i++ {
		c, err := decodeContact(buf)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		m.existingItems[c.ItemID] = true
		if c.Type == ContactGroup {
			m.existingGroups[c.GroupID] = true
		}
		if c.IsMasterGroup() {
			m.masterGroup = c
		}
		m.items[c.ItemID] = c
		if c.Type == ContactDeleted {
			tombstones = append(tombstones, c)
		}
	}
	lastChange, err := buf.GetDWord()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.lastUpdate = lastChange
	m.mu.Unlock()

	for _, t := range tombstones {
		m.sendContact(t, 0x0A)
	}

	if err := m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x07}); err != nil {
		return err
	}
	m.emit(SSIEvent{Kind: SSIRosterAvailable})
	return nil
}

func (m *SSIManager) handleUpToDate(s Snac) error {
	if err := m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x07}); err != nil {
		return err
	}
	m.emit(SSIEvent{Kind: SSIRosterAvailable})
	return nil
}

// handleAdd processes a server-pushed item add, also covering the
// tombstone-purge special case shared with the initial full list.
func (m *SSIManager) handleAdd(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	for !buf.AtEnd() {
		c, err := decodeContact(buf)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.existingItems[c.ItemID] = true
		m.items[c.ItemID] = c
		m.mu.Unlock()

		switch c.Type {
		case ContactBuddy:
			m.emit(SSIEvent{Kind: SSIContactAdded, UIN: c.Name})
		case ContactDeleted:
			m.emit(SSIEvent{Kind: SSIContactDeleted, UIN: c.Name})
			m.sendContact(c, 0x0A)
		}
	}
	return nil
}

func (m *SSIManager) handleUpdate(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	for !buf.AtEnd() {
		c, err := decodeContact(buf)
		if err != nil {
			return err
		}
		m.mu.Lock()
		m.existingItems[c.ItemID] = true
		if c.Type == ContactGroup {
			m.existingGroups[c.GroupID] = true
		}
		if c.IsMasterGroup() {
			m.masterGroup = c
		}
		m.items[c.ItemID] = c
		m.mu.Unlock()
	}
	return nil
}

func (m *SSIManager) handleRemove(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	for !buf.AtEnd() {
		c, err := decodeContact(buf)
		if err != nil {
			return err
		}
		m.mu.Lock()
		if c.ItemID != 0 {
			delete(m.existingItems, c.ItemID)
			delete(m.items, c.ItemID)
		}
		if c.Type == ContactGroup && c.GroupID != 0 {
			delete(m.existingGroups, c.GroupID)
		}
		m.mu.Unlock()

		if c.Type == ContactBuddy {
			m.emit(SSIEvent{Kind: SSIContactDeleted, UIN: c.Name})
		}
	}
	return nil
}

func (m *SSIManager) handleEditAck(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	code, err := buf.GetWord()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if len(m.outgoing) == 0 {
		m.mu.Unlock()
		return nil
	}
	contact := m.outgoing[0]
	m.outgoing = m.outgoing[1:]
	m.mu.Unlock()

	switch code {
	case 0x0000:
		m.mu.Lock()
		if contact.Type == ContactBuddy {
			if _, ok := m.items[contact.ItemID]; !ok {
				m.items[contact.ItemID] = contact
			}
		}
		m.mu.Unlock()
	case 0x000E:
		contact.SetAwaitingAuth(true)
		if err := m.beginTransaction(); err != nil {
			return err
		}
		m.sendContact(contact, 0x08)
		if err := m.finishTransaction(); err != nil {
			return err
		}
		if err := m.requestAuthorization(contact.Name); err != nil {
			return err
		}
	}
	return nil
}

func (m *SSIManager) handleAuthGranted(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	uinLen, err := buf.GetByte()
	if err != nil {
		return err
	}
	uin, err := buf.GetBlock(int(uinLen))
	if err != nil {
		return err
	}
	m.emit(SSIEvent{Kind: SSIAuthGranted, UIN: string(uin)})
	return nil
}

func (m *SSIManager) handleAuthReply(s Snac) error {
	buf, err := s.BodyBuffer()
	if err != nil {
		return err
	}
	uinLen, err := buf.GetByte()
	if err != nil {
		return err
	}
	uin, err := buf.GetBlock(int(uinLen))
	if err != nil {
		return err
	}
	accepted, err := buf.GetByte()
	if err != nil {
		return err
	}
	if accepted == 1 {
		m.emit(SSIEvent{Kind: SSIAuthGranted, UIN: string(uin)})
	} else {
		m.emit(SSIEvent{Kind: SSIAuthDenied, UIN: string(uin)})
	}
	return nil
}

func (m *SSIManager) beginTransaction() error {
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x11})
}

func (m *SSIManager) finishTransaction() error {
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x12})
}

// sendContact encodes contact as subtype's body, queues it for the
// matching edit-ack, and writes it.
func (m *SSIManager) sendContact(c Contact, subtype uint16) {
	buf := NewBuffer()
	encodeContact(buf, c)

	m.mu.Lock()
	m.outgoing = append(m.outgoing, c)
	m.mu.Unlock()

	if err := m.w.WriteSnac(Snac{Family: 0x13, Subtype: subtype, Body: buf.Bytes()}); err != nil {
		m.log.Warn().Err(err).Msg("failed to write ssi edit")
	}
}

// RequestAuthorization re-sends an authorisation request for a
// contact already on the list but still awaiting the peer's approval
// (spec §4.10, mirrors the session's contact_add re-request path).
func (m *SSIManager) RequestAuthorization(uin string) error {
	return m.requestAuthorization(uin)
}

func (m *SSIManager) requestAuthorization(uin string) error {
	buf := NewBuffer()
	buf.AddByte(byte(len(uin)))
	buf.AddString(uin)
	buf.AddWord(0) // auth message length
	buf.AddWord(0) // unknown
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x18, Body: buf.Bytes()})
}

func (m *SSIManager) groupByName(name string) (Contact, bool) {
	for _, c := range m.items {
		if c.Type == ContactGroup && c.Name == name {
			return c, true
		}
	}
	return Contact{}, false
}

func (m *SSIManager) freeItemID() uint16 {
	for {
		id := uint16(m.rng.Intn(0xFFFF) + 1)
		if !m.existingItems[id] {
			return id
		}
	}
}

func (m *SSIManager) freeGroupID() uint16 {
	id := uint16(1)
	for m.existingGroups[id] {
		id++
	}
	return id
}

// AddContact implements spec §4.10's add-contact algorithm: locate or
// create the "default" group, pick a free item id, and send the new
// Buddy item in one transaction.
func (m *SSIManager) AddContact(uin string) error {
	m.mu.Lock()
	group, ok := m.groupByName("default")
	var gid uint16
	if ok {
		gid = group.GroupID
	}
	m.mu.Unlock()

	if !ok {
		var err error
		gid, err = m.AddGroup("default")
		if err != nil {
			return err
		}
	}

	m.mu.Lock()
	iid := m.freeItemID()
	m.mu.Unlock()

	contact := Contact{Type: ContactBuddy, Name: uin, GroupID: gid, ItemID: iid}
	contact.SetDisplayName(uin)

	if err := m.beginTransaction(); err != nil {
		return err
	}
	m.sendContact(contact, 0x08)
	return m.finishTransaction()
}

// DelContact removes a buddy by uin, if it can be found in the cached
// list.
func (m *SSIManager) DelContact(uin string) error {
	m.mu.Lock()
	var found Contact
	var ok bool
	for _, c := range m.items {
		if c.Type == ContactBuddy && c.Name == uin {
			found, ok = c, true
			break
		}
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("oscar: ssi: contact %q not found", uin)
	}

	if err := m.beginTransaction(); err != nil {
		return err
	}
	m.sendContact(found, 0x0A)
	return m.finishTransaction()
}

// AddGroup creates a group named name if one doesn't already exist,
// linking it into the master group's child list, and returns its id.
func (m *SSIManager) AddGroup(name string) (uint16, error) {
	m.mu.Lock()
	if existing, ok := m.groupByName(name); ok {
		m.mu.Unlock()
		return existing.GroupID, nil
	}
	gid := m.freeGroupID()
	m.existingGroups[gid] = true

	group := Contact{Type: ContactGroup, Name: name, GroupID: gid, ItemID: 0}

	children := append(append([]uint16{}, m.masterGroup.Children()...), gid)
	m.masterGroup.SetChildren(children)
	master := m.masterGroup
	m.mu.Unlock()

	if err := m.beginTransaction(); err != nil {
		return 0, err
	}
	m.sendContact(group, 0x08)
	m.sendContact(master, 0x09)
	if err := m.finishTransaction(); err != nil {
		return 0, err
	}
	return gid, nil
}

// DelGroup removes a named group, if it exists.
func (m *SSIManager) DelGroup(name string) error {
	m.mu.Lock()
	group, ok := m.groupByName(name)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	if err := m.beginTransaction(); err != nil {
		return err
	}
	m.sendContact(group, 0x0A)
	return m.finishTransaction()
}

// GrantAuth sends an authorisation grant (0x13,0x14).
func (m *SSIManager) GrantAuth(uin string) error {
	buf := NewBuffer()
	buf.AddByte(byte(len(uin)))
	buf.AddString(uin)
	buf.AddWord(0)
	buf.AddWord(0)
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x14, Body: buf.Bytes()})
}

// DenyAuth sends an authorisation denial (0x13,0x1A).
func (m *SSIManager) DenyAuth(uin string) error {
	buf := NewBuffer()
	buf.AddByte(byte(len(uin)))
	buf.AddString(uin)
	buf.AddByte(0)
	buf.AddWord(0)
	buf.AddWord(0)
	return m.w.WriteSnac(Snac{Family: 0x13, Subtype: 0x1A, Body: buf.Bytes()})
}

// ContactList returns every cached Buddy item.
func (m *SSIManager) ContactList() []Contact {
	return m.listOfType(ContactBuddy)
}

// GroupList returns every cached Group item.
func (m *SSIManager) GroupList() []Contact {
	return m.listOfType(ContactGroup)
}

func (m *SSIManager) listOfType(t ContactType) []Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Contact
	for _, c := range m.items {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Size reports the number of cached SSI items.
func (m *SSIManager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
