package stanza

import (
	"strconv"

	"github.com/k-zaitsev/icqt/xmppstream"
)

// PresenceType enumerates presence type values, mirroring
// X::Presence::Type in original_source. The empty string denotes
// "available", matching XMPP's convention of an absent type attribute.
type PresenceType string

const (
	PresenceAvailable   PresenceType = ""
	PresenceUnavailable PresenceType = "unavailable"
	PresenceSubscribe   PresenceType = "subscribe"
	PresenceSubscribed  PresenceType = "subscribed"
	PresenceUnsubscribe PresenceType = "unsubscribe"
	PresenceUnsubscribed PresenceType = "unsubscribed"
	PresenceProbe       PresenceType = "probe"
	PresenceError       PresenceType = "error"
)

// Show enumerates the <show/> element's legal values.
type Show string

const (
	ShowChat         Show = "chat"
	ShowAway         Show = "away"
	ShowNotAvailable Show = "xa"
	ShowDoNotDisturb Show = "dnd"
)

// Presence wraps a <presence/> stanza.
type Presence struct {
	Stanza
}

// NewPresence builds a fresh presence stanza of the given type.
func NewPresence(t PresenceType) Presence {
	s := newStanza("presence")
	if t != PresenceAvailable {
		s.SetType(string(t))
	}
	return Presence{Stanza: s}
}

// PresenceFromNode wraps an already-parsed <presence/> node.
func PresenceFromNode(n *xmppstream.Node) Presence { return Presence{Stanza: FromNode(n)} }

// Type shadows Stanza.Type with the typed PresenceType.
func (p Presence) Type() PresenceType { return PresenceType(p.Stanza.Type()) }

// Priority returns the presence priority, defaulting to 0 when absent or
// unparsable.
func (p Presence) Priority() int {
	if c, ok := p.Node.Child("priority"); ok {
		if v, err := strconv.Atoi(c.Text()); err == nil {
			return v
		}
	}
	return 0
}

// SetPriority replaces the presence's priority child.
func (p Presence) SetPriority(priority int) {
	p.Node.RemoveChildrenNamed("priority")
	n := xmppstream.NewNode("", "priority")
	n.SetText(strconv.Itoa(priority))
	p.Node.AddChild(n)
}

// ShowValue returns the presence's show element text.
func (p Presence) ShowValue() Show {
	if c, ok := p.Node.Child("show"); ok {
		return Show(c.Text())
	}
	return ShowChat
}

// SetShow replaces the presence's show child.
func (p Presence) SetShow(show Show) {
	p.Node.RemoveChildrenNamed("show")
	if show == ShowChat {
		return
	}
	n := xmppstream.NewNode("", "show")
	n.SetText(string(show))
	p.Node.AddChild(n)
}

// Status returns the presence status text.
func (p Presence) Status() string {
	if c, ok := p.Node.Child("status"); ok {
		return c.Text()
	}
	return ""
}

// SetStatus replaces the presence's status child.
func (p Presence) SetStatus(status string) {
	p.Node.RemoveChildrenNamed("status")
	if status == "" {
		return
	}
	n := xmppstream.NewNode("", "status")
	n.SetText(status)
	p.Node.AddChild(n)
}
