package oscar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFullListSnac(t *testing.T, master Contact, items []Contact, lastUpdate uint32) Snac {
	t.Helper()
	buf := NewBuffer()
	buf.AddByte(0) // version
	all := append([]Contact{master}, items...)
	buf.AddWord(uint16(len(all)))
	for _, c := range all {
		encodeContact(buf, c)
	}
	buf.AddDWord(lastUpdate)
	return Snac{Family: 0x13, Subtype: 0x06, Body: buf.Bytes()}
}

func TestSSIManagerFullListActivatesAndCachesMasterGroup(t *testing.T) {
	w := &recordingWriter{}
	var events []SSIEvent
	m := NewSSIManager(w, func(e SSIEvent) { events = append(events, e) })

	master := Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}
	buddy := Contact{Type: ContactBuddy, Name: "54321", GroupID: 1, ItemID: 10}
	snac := buildFullListSnac(t, master, []Contact{buddy}, 12345)

	handled, err := m.HandleSnac(snac)
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, w.snacs, 1)
	assert.Equal(t, FamilySubtype{0x13, 0x07}, w.lastSnac().FamilySubtype())
	require.Len(t, events, 1)
	assert.Equal(t, SSIRosterAvailable, events[0].Kind)
	assert.Equal(t, 2, m.Size())
}

func TestSSIManagerFullListPurgesTombstones(t *testing.T) {
	w := &recordingWriter{}
	m := NewSSIManager(w, func(SSIEvent) {})

	master := Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}
	tomb := Contact{Type: ContactDeleted, Name: "ghost", GroupID: 1, ItemID: 99}
	snac := buildFullListSnac(t, master, []Contact{tomb}, 1)

	_, err := m.HandleSnac(snac)
	require.NoError(t, err)

	require.Len(t, w.snacs, 2, "expect the tombstone purge then the activate")
	assert.Equal(t, FamilySubtype{0x13, 0x0A}, w.snacs[0].FamilySubtype())
	assert.Equal(t, FamilySubtype{0x13, 0x07}, w.snacs[1].FamilySubtype())
}

func TestSSIManagerAddContactCreatesDefaultGroup(t *testing.T) {
	w := &recordingWriter{}
	m := NewSSIManager(w, func(SSIEvent) {})
	m.masterGroup = Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}

	require.NoError(t, m.AddContact("99999"))

	// begin, group add, masterGroup update, finish, begin, buddy add, finish
	var addedGroup, addedBuddy bool
	for _, s := range w.snacs {
		if s.FamilySubtype() != (FamilySubtype{0x13, 0x08}) {
			continue
		}
		buf, err := s.BodyBuffer()
		require.NoError(t, err)
		c, err := decodeContact(buf)
		require.NoError(t, err)
		switch c.Type {
		case ContactGroup:
			addedGroup = true
			assert.Equal(t, "default", c.Name)
		case ContactBuddy:
			addedBuddy = true
			assert.Equal(t, "99999", c.Name)
			assert.Equal(t, "99999", c.DisplayName())
		}
	}
	assert.True(t, addedGroup, "expected a default group to be created")
	assert.True(t, addedBuddy, "expected the buddy item to be sent")
}

// TestSSIManagerAddBuddyWithAuthRequired is the literal E3 scenario:
// an auth-required ack must re-send the add inside a fresh
// transaction and then request authorisation with the exact TLV-free
// layout {len(uin), uin, 0x0000, 0x0000}.
func TestSSIManagerAddBuddyWithAuthRequired(t *testing.T) {
	w := &recordingWriter{}
	m := NewSSIManager(w, func(SSIEvent) {})
	m.masterGroup = Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}
	m.existingGroups[1] = true
	m.items[1] = Contact{Type: ContactGroup, Name: "default", GroupID: 1}

	require.NoError(t, m.AddContact("12345"))
	// begin(0x11), add(0x08), finish(0x12)
	require.Len(t, w.snacs, 3)

	ack := Snac{Family: 0x13, Subtype: 0x0E, Body: func() []byte {
		b := NewBuffer()
		b.AddWord(0x000E)
		return b.Bytes()
	}()}
	handled, err := m.HandleSnac(ack)
	require.NoError(t, err)
	assert.True(t, handled)

	// + begin, re-add, finish, authorization request = 4 more writes
	require.Len(t, w.snacs, 7)
	assert.Equal(t, FamilySubtype{0x13, 0x11}, w.snacs[3].FamilySubtype())

	readd := w.snacs[4]
	assert.Equal(t, FamilySubtype{0x13, 0x08}, readd.FamilySubtype())
	buf, err := readd.BodyBuffer()
	require.NoError(t, err)
	c, err := decodeContact(buf)
	require.NoError(t, err)
	assert.True(t, c.AwaitingAuth())

	assert.Equal(t, FamilySubtype{0x13, 0x12}, w.snacs[5].FamilySubtype())

	authReq := w.snacs[6]
	assert.Equal(t, FamilySubtype{0x13, 0x18}, authReq.FamilySubtype())
	expected := NewBuffer()
	expected.AddByte(byte(len("12345")))
	expected.AddString("12345")
	expected.AddWord(0)
	expected.AddWord(0)
	assert.Equal(t, expected.Bytes(), authReq.Body)
}

func TestSSIManagerEditAckSuccessInsertsNewBuddy(t *testing.T) {
	w := &recordingWriter{}
	m := NewSSIManager(w, func(SSIEvent) {})
	m.masterGroup = Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}
	m.items[1] = Contact{Type: ContactGroup, Name: "default", GroupID: 1}
	m.existingGroups[1] = true

	require.NoError(t, m.AddContact("11111"))

	ack := Snac{Family: 0x13, Subtype: 0x0E, Body: func() []byte {
		b := NewBuffer()
		b.AddWord(0x0000)
		return b.Bytes()
	}()}
	_, err := m.HandleSnac(ack)
	require.NoError(t, err)

	found := false
	for _, c := range m.ContactList() {
		if c.Name == "11111" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestSSIManagerAuthReplyEmitsGrantedOrDenied(t *testing.T) {
	w := &recordingWriter{}
	var events []SSIEvent
	m := NewSSIManager(w, func(e SSIEvent) { events = append(events, e) })

	granted := NewBuffer()
	granted.AddByte(5)
	granted.AddString("22222")
	granted.AddByte(1)
	_, err := m.HandleSnac(Snac{Family: 0x13, Subtype: 0x1B, Body: granted.Bytes()})
	require.NoError(t, err)

	denied := NewBuffer()
	denied.AddByte(5)
	denied.AddString("33333")
	denied.AddByte(0)
	_, err = m.HandleSnac(Snac{Family: 0x13, Subtype: 0x1B, Body: denied.Bytes()})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, SSIAuthGranted, events[0].Kind)
	assert.Equal(t, "22222", events[0].UIN)
	assert.Equal(t, SSIAuthDenied, events[1].Kind)
	assert.Equal(t, "33333", events[1].UIN)
}

// TestSSIManagerConvergesAfterAddUpdateRemove is property 7: after a
// sequence of server-driven add/update/remove events, the local list
// matches what a subsequent full-list refresh reports.
func TestSSIManagerConvergesAfterAddUpdateRemove(t *testing.T) {
	w := &recordingWriter{}
	m := NewSSIManager(w, func(SSIEvent) {})

	add := NewBuffer()
	encodeContact(add, Contact{Type: ContactBuddy, Name: "a", GroupID: 1, ItemID: 5})
	_, err := m.HandleSnac(Snac{Family: 0x13, Subtype: 0x08, Body: add.Bytes()})
	require.NoError(t, err)

	upd := NewBuffer()
	c := Contact{Type: ContactBuddy, Name: "a", GroupID: 1, ItemID: 5}
	c.SetDisplayName("Alice")
	encodeContact(upd, c)
	_, err = m.HandleSnac(Snac{Family: 0x13, Subtype: 0x09, Body: upd.Bytes()})
	require.NoError(t, err)

	rem := NewBuffer()
	encodeContact(rem, Contact{Type: ContactBuddy, Name: "a", GroupID: 1, ItemID: 5})
	_, err = m.HandleSnac(Snac{Family: 0x13, Subtype: 0x0A, Body: rem.Bytes()})
	require.NoError(t, err)

	assert.Equal(t, 0, m.Size())

	// A subsequent full refresh carrying only the master group reports
	// that one item.
	master := Contact{Type: ContactGroup, GroupID: 0, ItemID: 0}
	refresh := buildFullListSnac(t, master, nil, 2)
	_, err = m.HandleSnac(refresh)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Size())
}
