// Package codec provides the injectable legacy text-encoding
// collaborator used to decode/encode ICQ message bodies that are not
// carried as UTF-8 (spec §4.14 set_codec, §6 "encoding" store option).
// Grounded in original_source's QTextCodec::codecForName("Windows-1251")
// fallback in icqSession.cpp's processIncomingMessage.
package codec

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// DefaultName is used when a user has not chosen an encoding (spec §6,
// store option table: "encoding ... default windows-1251").
const DefaultName = "windows-1251"

var registry = map[string]encoding.Encoding{
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"koi8-r":       charmap.KOI8R,
}

// Codec decodes/encodes legacy single-byte text for one configured
// encoding name.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// Lookup resolves a codec by name (case-sensitive, matching the store
// option's recognised values). It reports false for an unknown name.
func Lookup(name string) (Codec, bool) {
	enc, ok := registry[name]
	if !ok {
		return Codec{}, false
	}
	return Codec{name: name, enc: enc}, true
}

// Default returns the windows-1251 codec, the store's documented
// default for legacy message text.
func Default() Codec {
	c, _ := Lookup(DefaultName)
	return c
}

// Name reports the codec's registry name.
func (c Codec) Name() string { return c.name }

// Decode converts legacy-encoded bytes to a UTF-8 Go string. A zero
// Codec falls back to Default.
func (c Codec) Decode(b []byte) (string, error) {
	if c.enc == nil {
		c = Default()
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("codec: decode with %s: %w", c.name, err)
	}
	return string(out), nil
}

// Encode converts a UTF-8 Go string to the codec's legacy byte
// encoding. A zero Codec falls back to Default.
func (c Codec) Encode(s string) ([]byte, error) {
	if c.enc == nil {
		c = Default()
	}
	out, err := c.enc.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("codec: encode with %s: %w", c.name, err)
	}
	return out, nil
}
