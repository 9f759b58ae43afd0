package oscar

import "fmt"

// FlagHasPreamble marks that a preamble block {u16 extra_len, extra_len
// bytes} precedes the SNAC body and must be skipped (spec §3/§4.4).
const FlagHasPreamble uint16 = 0x8000

// Family/subtype pair identifying a SNAC command.
type FamilySubtype struct {
	Family  uint16
	Subtype uint16
}

// Snac is an OSCAR command: the 10-byte header carried on a FLAP Data
// frame, plus its body.
type Snac struct {
	Family    uint16
	Subtype   uint16
	Flags     uint16
	RequestID uint32
	Body      []byte
}

// FamilySubtype returns the (family, subtype) pair this SNAC belongs to.
func (s Snac) FamilySubtype() FamilySubtype {
	return FamilySubtype{s.Family, s.Subtype}
}

// Encode renders the 10-byte SNAC header followed by Body.
func (s Snac) Encode() []byte {
	buf := NewBuffer()
	buf.AddWord(s.Family)
	buf.AddWord(s.Subtype)
	buf.AddWord(s.Flags)
	buf.AddDWord(s.RequestID)
	buf.AddBytes(s.Body)
	return buf.Bytes()
}

// BodyBuffer wraps Body for structured reading, skipping the preamble
// block first if FlagHasPreamble is set.
func (s Snac) BodyBuffer() (*Buffer, error) {
	buf := NewBufferFromBytes(s.Body)
	if s.Flags&FlagHasPreamble != 0 {
		extraLen, err := buf.GetWord()
		if err != nil {
			return nil, fmt.Errorf("oscar: snac preamble length: %w", err)
		}
		if _, err := buf.GetBlock(int(extraLen)); err != nil {
			return nil, fmt.Errorf("oscar: snac preamble body: %w", err)
		}
	}
	return buf, nil
}

// DecodeSnac parses a FLAP Data-channel payload into a Snac.
func DecodeSnac(payload []byte) (Snac, error) {
	buf := NewBufferFromBytes(payload)
	family, err := buf.GetWord()
	if err != nil {
		return Snac{}, fmt.Errorf("oscar: snac family: %w", err)
	}
	subtype, err := buf.GetWord()
	if err != nil {
		return Snac{}, fmt.Errorf("oscar: snac subtype: %w", err)
	}
	flags, err := buf.GetWord()
	if err != nil {
		return Snac{}, fmt.Errorf("oscar: snac flags: %w", err)
	}
	reqID, err := buf.GetDWord()
	if err != nil {
		return Snac{}, fmt.Errorf("oscar: snac request id: %w", err)
	}
	return Snac{
		Family:    family,
		Subtype:   subtype,
		Flags:     flags,
		RequestID: reqID,
		Body:      buf.ReadAll(),
	}, nil
}

// drainedSubtypes are well-known SNACs that are silently drained
// without emitting a higher-level event (spec §4.4).
var drainedSubtypes = map[FamilySubtype]bool{
	{0x01, 0x13}: true, // MOTD
	{0x01, 0x21}: true, // extended status
	{0x01, 0x15}: true, // well-known URLs
	{0x03, 0x0A}: true, // notification rejected
}

// IsDrained reports whether this SNAC must be silently discarded
// without dispatch.
func (s Snac) IsDrained() bool {
	return drainedSubtypes[s.FamilySubtype()]
}

// IsError reports whether this SNAC is a family-level error SNAC
// (subtype 0x01, any family).
func (s Snac) IsError() bool {
	return s.Subtype == 0x01
}

// SnacError is the decoded error-code/subcode pair from an error SNAC.
type SnacError struct {
	Family  uint16
	Code    uint16
	Subcode uint16
	HasSub  bool
}

// ParseSnacError extracts the u16 error code from the body and, if TLV
// 0x08 is present, the error subcode (spec §4.4).
func ParseSnacError(s Snac) (SnacError, error) {
	buf, err := s.BodyBuffer()
	if err != nil {
		return SnacError{}, err
	}
	code, err := buf.GetWord()
	if err != nil {
		return SnacError{}, fmt.Errorf("oscar: error snac code: %w", err)
	}
	se := SnacError{Family: s.Family, Code: code}
	if chain, err := ChainFromBuffer(buf); err == nil && chain.Has(0x08) {
		se.Subcode = chain.Get(0x08).AsWord()
		se.HasSub = true
	}
	return se, nil
}

// ReqIDCounter is a per-connection outbound SNAC request-id generator.
type ReqIDCounter struct {
	next uint32
}

// Next returns the next request id, starting at 1.
func (r *ReqIDCounter) Next() uint32 {
	r.next++
	return r.next
}
