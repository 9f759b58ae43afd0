package oscar

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Guid is a 16-byte OSCAR capability identifier with text round-trip
// to the canonical `XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX` form.
type Guid [16]byte

// GuidFromBytes copies 16 raw bytes into a Guid.
func GuidFromBytes(raw []byte) (Guid, error) {
	var g Guid
	if len(raw) != 16 {
		return g, fmt.Errorf("oscar: guid must be 16 bytes, got %d", len(raw))
	}
	copy(g[:], raw)
	return g, nil
}

// GuidFromString parses the canonical hyphenated hex text form.
func GuidFromString(s string) (Guid, error) {
	var g Guid
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return g, fmt.Errorf("oscar: guid string %q has wrong length", s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return g, fmt.Errorf("oscar: guid string %q: %w", s, err)
	}
	copy(g[:], raw)
	return g, nil
}

// MustGuid panics on a malformed literal; intended for package-level
// capability table initialisation only.
func MustGuid(s string) Guid {
	g, err := GuidFromString(s)
	if err != nil {
		panic(err)
	}
	return g
}

// Bytes returns the 16 raw bytes.
func (g Guid) Bytes() []byte {
	return g[:]
}

// String renders the canonical `8-4-4-4-12` hex form, uppercase, as
// transmitted on the wire (spec §6 capability table).
func (g Guid) String() string {
	h := hex.EncodeToString(g[:])
	return strings.ToUpper(fmt.Sprintf("%s-%s-%s-%s-%s", h[0:8], h[8:12], h[12:16], h[16:20], h[20:32]))
}

// IsZero reports whether every byte is zero.
func (g Guid) IsZero() bool {
	return g == Guid{}
}

// Capability GUIDs of interest (spec §6), transmitted verbatim.
var (
	CapabilityAvatar       = MustGuid("09460000-4C7F-11D1-8222-444553540000")
	CapabilityDirectConn   = MustGuid("09461344-4C7F-11D1-8222-444553540000")
	CapabilityServerRelay  = MustGuid("09461349-4C7F-11D1-8222-444553540000")
	CapabilityFileTransfer = MustGuid("0946134C-4C7F-11D1-8222-444553540000")
	CapabilityAIMInterop   = MustGuid("0946134D-4C7F-11D1-8222-444553540000")
	CapabilityUTF8         = MustGuid("0946134E-4C7F-11D1-8222-444553540000")
	CapabilityTyping       = MustGuid("563FC809-0B6F-41BD-9F79-422609DFA2F3")
	CapabilityRTF          = MustGuid("97B12751-243C-4334-AD22-D6ABF73F1492")
)

// ClientCapabilities is the fixed list advertised during login's
// LocationRights step (spec §4.8 step 7).
var ClientCapabilities = []Guid{
	CapabilityDirectConn,
	CapabilityServerRelay,
	CapabilityUTF8,
	CapabilityRTF,
}
