package oscar

// MetaInfoManager frames ICQ's legacy meta-info requests as SNAC
// (0x15,0x02) and fans out (0x15,0x03) replies to subscribers keyed by
// the numeric meta type (spec C13). It backs both the offline-message
// queue (C12) and the directory lookups (C14).
type MetaInfoManager struct {
	w      Writer
	ownUIN uint32
	seq    uint16

	subscribers map[uint16][]func(body []byte)
}

// NewMetaInfoManager builds a MetaInfoManager bound to a Writer.
// ownUIN is the numeric local UIN, required by the wire format of
// every meta request.
func NewMetaInfoManager(w Writer, ownUIN uint32) *MetaInfoManager {
	return &MetaInfoManager{
		w:           w,
		ownUIN:      ownUIN,
		subscribers: make(map[uint16][]func(body []byte)),
	}
}

// Subscribe registers fn to be called with the body of every
// (0x15,0x03) reply carrying the given meta type.
func (m *MetaInfoManager) Subscribe(metaType uint16, fn func(body []byte)) {
	m.subscribers[metaType] = append(m.subscribers[metaType], fn)
}

// Request sends a meta-info request of the given type with the
// supplied little-endian body (spec §4.12): TLV 0x01 containing
// {le_u16 chunk_len, le_u32 own_uin, le_u16 type, le_u16 seq, body}.
func (m *MetaInfoManager) Request(metaType uint16, body []byte) error {
	m.seq++
	if m.seq == 0 {
		m.seq = 1
	}

	inner := NewBuffer()
	inner.AddLEDWord(m.ownUIN)
	inner.AddLEWord(metaType)
	inner.AddLEWord(m.seq)
	inner.AddBytes(body)

	chunkLen := uint16(len(body) + 8)
	tlvVal := NewBuffer()
	tlvVal.AddLEWord(chunkLen)
	tlvVal.AddBytes(inner.Bytes())

	chain := NewChain().Add(NewTLV(0x01, tlvVal.Bytes()))
	return m.w.WriteSnac(Snac{Family: 0x15, Subtype: 0x02, Body: chain.Bytes()})
}

// HandleSnac dispatches a (0x15,0x03) reply to every subscriber of its
// meta type.
func (m *MetaInfoManager) HandleSnac(s Snac) (bool, error) {
	if s.FamilySubtype() != (FamilySubtype{0x15, 0x03}) {
		return false, nil
	}
	buf, err := s.BodyBuffer()
	if err != nil {
		return true, err
	}
	chain, err := ChainFromBuffer(buf)
	if err != nil {
		return true, err
	}
	data := chain.GetData(0x01)
	if len(data) < 8 {
		return true, nil
	}
	inner := NewBufferFromBytes(data)
	if _, err := inner.GetLEWord(); err != nil { // chunk_len
		return true, err
	}
	if _, err := inner.GetLEDWord(); err != nil { // echoed own uin
		return true, err
	}
	metaType, err := inner.GetLEWord()
	if err != nil {
		return true, err
	}
	if _, err := inner.GetLEWord(); err != nil { // echoed seq
		return true, err
	}
	body := inner.ReadAll()

	for _, fn := range m.subscribers[metaType] {
		fn(body)
	}
	return true, nil
}
