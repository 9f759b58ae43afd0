package oscar

import "fmt"

// FLAP channel identifiers (spec §3).
const (
	ChannelAuth      byte = 1
	ChannelData      byte = 2
	ChannelError     byte = 3
	ChannelClose     byte = 4
	ChannelKeepAlive byte = 5
)

const flapMarker byte = 0x2A
const flapHeaderLen = 6

// seqWrap is the modulus outbound FLAP sequence numbers wrap at
// (spec §3/§4.3): values cover 1..0x7FFF then restart at 1.
const seqWrap = 0x8000

// Flap is one FLAP frame: a 6-byte header plus its payload.
type Flap struct {
	Channel  byte
	Sequence uint16
	Payload  []byte
}

// Encode renders the frame as marker|channel|seq|len|payload.
func (f Flap) Encode() []byte {
	buf := NewBuffer()
	buf.AddByte(flapMarker)
	buf.AddByte(f.Channel)
	buf.AddWord(f.Sequence)
	buf.AddWord(uint16(len(f.Payload)))
	buf.AddBytes(f.Payload)
	return buf.Bytes()
}

// TryDecodeFlap attempts to read one complete FLAP frame from the
// front of buf. It returns ErrNeedMore if fewer than 6 bytes, or fewer
// than 6+length bytes, are available; the buffer's cursor is left
// untouched in that case (spec testable property 9). On success the
// cursor is advanced past the frame's bytes (they stay in buf's
// underlying data) and the resulting frame returned.
func TryDecodeFlap(buf *Buffer) (Flap, error) {
	header, err := buf.PeekBlock(flapHeaderLen)
	if err != nil {
		return Flap{}, ErrNeedMore
	}
	if header[0] != flapMarker {
		return Flap{}, fmt.Errorf("oscar: %w: bad FLAP marker 0x%02x", ErrMalformed, header[0])
	}
	channel := header[1]
	seq := uint16(header[2])<<8 | uint16(header[3])
	length := int(uint16(header[4])<<8 | uint16(header[5]))

	full, err := buf.PeekBlock(flapHeaderLen + length)
	if err != nil {
		return Flap{}, ErrNeedMore
	}
	buf.SeekForward(flapHeaderLen + length)

	payload := make([]byte, length)
	copy(payload, full[flapHeaderLen:])
	return Flap{Channel: channel, Sequence: seq, Payload: payload}, nil
}

// SeqCounter is a per-connection outbound FLAP sequence generator. The
// zero value starts at sequence 1 on first use.
type SeqCounter struct {
	next uint16
}

// Next returns the next sequence number, wrapping 0x7FFF -> 1 and
// never producing 0 (spec testable property 8).
func (s *SeqCounter) Next() uint16 {
	if s.next == 0 {
		s.next = 1
	}
	v := s.next
	s.next++
	if s.next >= seqWrap {
		s.next = 1
	}
	return v
}
