// Package oscar implements the OSCAR/ICQ client protocol engine: FLAP
// framing, SNAC commands, TLV payloads, the login handshake, rate
// limiting, server-side contact list synchronisation, instant
// messaging and directory lookups.
package oscar

import (
	"errors"
)

// Debug gates verbose per-frame tracing, mirroring the teacher's
// transport.SIPDebug flag.
var Debug bool

// ErrNeedMore indicates a decode operation requires bytes that have
// not arrived yet; callers must retry once more data is buffered.
var ErrNeedMore = errors.New("oscar: need more data")

// ErrMalformed indicates bytes that can never form a valid structure,
// as opposed to ErrNeedMore's "not yet enough bytes".
var ErrMalformed = errors.New("oscar: malformed data")

// Buffer is a growable byte sequence with a read cursor. Writes always
// append at the tail; they never move the read cursor. Reads past the
// end of the buffer are a diagnostic error (ErrNeedMore) rather than
// silently returning zero-filled data, per the read-cursor invariant.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer creates an empty, writable buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferFromBytes wraps existing bytes for reading; the cursor
// starts at zero. The slice is not copied.
func NewBufferFromBytes(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the full underlying byte sequence, irrespective of the
// read cursor.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len reports the total number of bytes written to the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Pos reports the current read cursor.
func (b *Buffer) Pos() int {
	return b.pos
}

// AtEnd reports whether the cursor has reached the end of the buffer.
func (b *Buffer) AtEnd() bool {
	return b.pos >= len(b.data)
}

// BytesAvailable reports how many unread bytes remain.
func (b *Buffer) BytesAvailable() int {
	if b.pos >= len(b.data) {
		return 0
	}
	return len(b.data) - b.pos
}

// Seek moves the read cursor to an absolute position. It is clamped to
// [0, Len()].
func (b *Buffer) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(b.data) {
		pos = len(b.data)
	}
	b.pos = pos
}

// SeekForward advances the cursor by n bytes, clamped to the end.
func (b *Buffer) SeekForward(n int) {
	b.Seek(b.pos + n)
}

// SeekBackward rewinds the cursor by n bytes, clamped to zero.
func (b *Buffer) SeekBackward(n int) {
	b.Seek(b.pos - n)
}

// SeekEnd moves the cursor to the end of the buffer.
func (b *Buffer) SeekEnd() {
	b.pos = len(b.data)
}

// --- append (write) side; always appends at the tail ---

// AddByte appends a single byte.
func (b *Buffer) AddByte(v byte) *Buffer {
	b.data = append(b.data, v)
	return b
}

// AddWord appends a big-endian u16.
func (b *Buffer) AddWord(v uint16) *Buffer {
	b.data = append(b.data, byte(v>>8), byte(v))
	return b
}

// AddDWord appends a big-endian u32.
func (b *Buffer) AddDWord(v uint32) *Buffer {
	b.data = append(b.data, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	return b
}

// AddLEWord appends a little-endian u16.
func (b *Buffer) AddLEWord(v uint16) *Buffer {
	b.data = append(b.data, byte(v), byte(v>>8))
	return b
}

// AddLEDWord appends a little-endian u32.
func (b *Buffer) AddLEDWord(v uint32) *Buffer {
	b.data = append(b.data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	return b
}

// AddBytes appends raw bytes.
func (b *Buffer) AddBytes(p []byte) *Buffer {
	b.data = append(b.data, p...)
	return b
}

// AddString appends a string in its raw byte form.
func (b *Buffer) AddString(s string) *Buffer {
	b.data = append(b.data, s...)
	return b
}

// --- read side; advances the cursor, errors when insufficient data remain ---

// GetByte reads a single byte.
func (b *Buffer) GetByte() (byte, error) {
	if b.BytesAvailable() < 1 {
		return 0, ErrNeedMore
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// GetWord reads a big-endian u16.
func (b *Buffer) GetWord() (uint16, error) {
	if b.BytesAvailable() < 2 {
		return 0, ErrNeedMore
	}
	v := uint16(b.data[b.pos])<<8 | uint16(b.data[b.pos+1])
	b.pos += 2
	return v, nil
}

// GetDWord reads a big-endian u32.
func (b *Buffer) GetDWord() (uint32, error) {
	if b.BytesAvailable() < 4 {
		return 0, ErrNeedMore
	}
	v := uint32(b.data[b.pos])<<24 | uint32(b.data[b.pos+1])<<16 |
		uint32(b.data[b.pos+2])<<8 | uint32(b.data[b.pos+3])
	b.pos += 4
	return v, nil
}

// GetLEWord reads a little-endian u16.
func (b *Buffer) GetLEWord() (uint16, error) {
	if b.BytesAvailable() < 2 {
		return 0, ErrNeedMore
	}
	v := uint16(b.data[b.pos]) | uint16(b.data[b.pos+1])<<8
	b.pos += 2
	return v, nil
}

// GetLEDWord reads a little-endian u32.
func (b *Buffer) GetLEDWord() (uint32, error) {
	if b.BytesAvailable() < 4 {
		return 0, ErrNeedMore
	}
	v := uint32(b.data[b.pos]) | uint32(b.data[b.pos+1])<<8 |
		uint32(b.data[b.pos+2])<<16 | uint32(b.data[b.pos+3])<<24
	b.pos += 4
	return v, nil
}

// GetBlock reads exactly n bytes and advances the cursor. The returned
// slice aliases the buffer's storage.
func (b *Buffer) GetBlock(n int) ([]byte, error) {
	if n < 0 || b.BytesAvailable() < n {
		return nil, ErrNeedMore
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// PeekBlock is GetBlock without advancing the cursor.
func (b *Buffer) PeekBlock(n int) ([]byte, error) {
	if n < 0 || b.BytesAvailable() < n {
		return nil, ErrNeedMore
	}
	return b.data[b.pos : b.pos+n], nil
}

// ReadAll reads every remaining byte and advances the cursor to the end.
func (b *Buffer) ReadAll() []byte {
	v := b.data[b.pos:]
	b.pos = len(b.data)
	return v
}
