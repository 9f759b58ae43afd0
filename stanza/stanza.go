// Package stanza wraps the generic xmppstream.Node tree with the
// iq/message/presence stanza semantics XMPP components need: address
// attributes, payload replacement, and RFC 3920bis stanza errors.
// Grounded in original_source's src/Stanza.{h,cpp}, src/IQ.{h,cpp},
// src/Presence.{h,cpp}, and src/Message.cpp.
package stanza

import (
	"github.com/k-zaitsev/icqt/jid"
	"github.com/k-zaitsev/icqt/xmppstream"
)

// Stanza is the shared to/from/type/id envelope of iq, message, and
// presence elements.
type Stanza struct {
	Node *xmppstream.Node
}

func newStanza(local string) Stanza {
	return Stanza{Node: xmppstream.NewNode("", local)}
}

// FromNode wraps an already-parsed node without copying it.
func FromNode(n *xmppstream.Node) Stanza { return Stanza{Node: n} }

// To returns the recipient JID, or the zero JID if absent.
func (s Stanza) To() jid.JID {
	j, _ := jid.Parse(s.Node.AttrString("to"))
	return j
}

// From returns the sender JID, or the zero JID if absent.
func (s Stanza) From() jid.JID {
	j, _ := jid.Parse(s.Node.AttrString("from"))
	return j
}

// Type returns the stanza's type attribute.
func (s Stanza) Type() string { return s.Node.AttrString("type") }

// ID returns the stanza's id attribute.
func (s Stanza) ID() string { return s.Node.AttrString("id") }

// SetTo sets the recipient address.
func (s Stanza) SetTo(j jid.JID) { s.Node.SetAttr("to", j.Full()) }

// SetFrom sets the sender address.
func (s Stanza) SetFrom(j jid.JID) { s.Node.SetAttr("from", j.Full()) }

// SetType sets the type attribute.
func (s Stanza) SetType(t string) { s.Node.SetAttr("type", t) }

// SetID sets the id attribute.
func (s Stanza) SetID(id string) { s.Node.SetAttr("id", id) }

// IsValid mirrors Stanza::isValid: a stanza is valid once it carries a
// type attribute.
func (s Stanza) IsValid() bool { return s.Node.AttrString("type") != "" }

// SwapFromTo mirrors addresses, the way a reply is built from a request:
// if the original "to" was empty, the new "from" is cleared, symmetrically
// for "to".
func (s Stanza) SwapFromTo() {
	to, hadTo := s.Node.Attr("to")
	from, hadFrom := s.Node.Attr("from")
	if hadFrom {
		s.Node.SetAttr("to", from)
	} else {
		s.Node.RemoveAttr("to")
	}
	if hadTo {
		s.Node.SetAttr("from", to)
	} else {
		s.Node.RemoveAttr("from")
	}
}

// String serialises the stanza to an XML fragment.
func (s Stanza) String() string { return s.Node.String() }
