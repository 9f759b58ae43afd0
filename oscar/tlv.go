package oscar

// TLV is an OSCAR type-length-value triple. Length is always exactly
// len(Value); it is never stored independently to avoid the two
// drifting apart.
type TLV struct {
	Type  uint16
	Value []byte
}

// NewTLV builds a TLV from raw bytes.
func NewTLV(typ uint16, value []byte) TLV {
	return TLV{Type: typ, Value: value}
}

// NewTLVWord builds a TLV whose value is a single big-endian u16.
func NewTLVWord(typ uint16, v uint16) TLV {
	return TLV{Type: typ, Value: []byte{byte(v >> 8), byte(v)}}
}

// NewTLVDWord builds a TLV whose value is a single big-endian u32.
func NewTLVDWord(typ uint16, v uint32) TLV {
	return TLV{Type: typ, Value: []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}}
}

// NewTLVString builds a TLV whose value is a string in its raw byte form.
func NewTLVString(typ uint16, s string) TLV {
	return TLV{Type: typ, Value: []byte(s)}
}

// Len reports the encoded length (header + value).
func (t TLV) Len() int {
	return 4 + len(t.Value)
}

// Encode appends the type:u16|length:u16|value encoding to buf.
func (t TLV) Encode(buf *Buffer) {
	buf.AddWord(t.Type)
	buf.AddWord(uint16(len(t.Value)))
	buf.AddBytes(t.Value)
}

// Bytes returns the standalone encoded form of the TLV.
func (t TLV) Bytes() []byte {
	buf := NewBuffer()
	t.Encode(buf)
	return buf.Bytes()
}

// AsWord interprets Value as a big-endian u16; returns 0 if too short.
func (t TLV) AsWord() uint16 {
	if len(t.Value) < 2 {
		return 0
	}
	return uint16(t.Value[0])<<8 | uint16(t.Value[1])
}

// AsDWord interprets Value as a big-endian u32; returns 0 if too short.
func (t TLV) AsDWord() uint32 {
	if len(t.Value) < 4 {
		return 0
	}
	return uint32(t.Value[0])<<24 | uint32(t.Value[1])<<16 | uint32(t.Value[2])<<8 | uint32(t.Value[3])
}

// AsString interprets Value as raw text.
func (t TLV) AsString() string {
	return string(t.Value)
}

// DecodeTLV reads a single TLV from buf's current position.
func DecodeTLV(buf *Buffer) (TLV, error) {
	typ, err := buf.GetWord()
	if err != nil {
		return TLV{}, err
	}
	length, err := buf.GetWord()
	if err != nil {
		return TLV{}, err
	}
	value, err := buf.GetBlock(int(length))
	if err != nil {
		return TLV{}, err
	}
	return TLV{Type: typ, Value: value}, nil
}

// Chain is an insertion-ordered mapping of TLV type to TLV. Re-adding a
// type replaces the earlier entry in place, preserving its original
// position, matching the source's QHash-backed "addTlv overwrites"
// semantics plus the append-ordered serialisation the spec requires.
type Chain struct {
	order []uint16
	byTyp map[uint16]TLV
}

// NewChain creates an empty TLV chain.
func NewChain() *Chain {
	return &Chain{byTyp: make(map[uint16]TLV)}
}

// ChainFromBuffer reads TLVs from buf until it is exhausted.
func ChainFromBuffer(buf *Buffer) (*Chain, error) {
	c := NewChain()
	for !buf.AtEnd() {
		tlv, err := DecodeTLV(buf)
		if err != nil {
			return nil, err
		}
		c.Add(tlv)
	}
	return c, nil
}

// ChainFromBytes is a convenience wrapper around ChainFromBuffer.
func ChainFromBytes(b []byte) (*Chain, error) {
	return ChainFromBuffer(NewBufferFromBytes(b))
}

// Add inserts tlv, replacing any earlier TLV of the same type while
// keeping its original insertion slot.
func (c *Chain) Add(tlv TLV) *Chain {
	if _, ok := c.byTyp[tlv.Type]; !ok {
		c.order = append(c.order, tlv.Type)
	}
	c.byTyp[tlv.Type] = tlv
	return c
}

// AddWord is shorthand for Add(NewTLVWord(typ, v)).
func (c *Chain) AddWord(typ uint16, v uint16) *Chain {
	return c.Add(NewTLVWord(typ, v))
}

// AddDWord is shorthand for Add(NewTLVDWord(typ, v)).
func (c *Chain) AddDWord(typ uint16, v uint32) *Chain {
	return c.Add(NewTLVDWord(typ, v))
}

// AddString is shorthand for Add(NewTLVString(typ, s)).
func (c *Chain) AddString(typ uint16, s string) *Chain {
	return c.Add(NewTLVString(typ, s))
}

// Get returns the TLV for typ, or the zero TLV if absent.
func (c *Chain) Get(typ uint16) TLV {
	return c.byTyp[typ]
}

// GetData returns the raw value bytes for typ, or nil if absent.
func (c *Chain) GetData(typ uint16) []byte {
	return c.byTyp[typ].Value
}

// Has reports whether typ is present in the chain.
func (c *Chain) Has(typ uint16) bool {
	_, ok := c.byTyp[typ]
	return ok
}

// Remove deletes typ from the chain, if present.
func (c *Chain) Remove(typ uint16) {
	if _, ok := c.byTyp[typ]; !ok {
		return
	}
	delete(c.byTyp, typ)
	for i, t := range c.order {
		if t == typ {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Each calls fn for every TLV in insertion order.
func (c *Chain) Each(fn func(TLV)) {
	for _, typ := range c.order {
		fn(c.byTyp[typ])
	}
}

// Len reports the number of distinct TLV types in the chain.
func (c *Chain) Len() int {
	return len(c.order)
}

// Encode appends the concatenation of every TLV's encoding, in
// insertion order, to buf.
func (c *Chain) Encode(buf *Buffer) {
	c.Each(func(t TLV) { t.Encode(buf) })
}

// Bytes returns the standalone serialised chain.
func (c *Chain) Bytes() []byte {
	buf := NewBuffer()
	c.Encode(buf)
	return buf.Bytes()
}
