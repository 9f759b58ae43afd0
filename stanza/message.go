package stanza

import "github.com/k-zaitsev/icqt/xmppstream"

// MessageType enumerates common message type values; the gateway only
// ever sends/receives "chat" and "normal" (headline/groupchat/error pass
// through unmodified where observed).
type MessageType string

const (
	MessageChat      MessageType = "chat"
	MessageNormal    MessageType = "normal"
	MessageHeadline  MessageType = "headline"
	MessageGroupChat MessageType = "groupchat"
	MessageError     MessageType = "error"
)

// Message wraps a <message/> stanza.
type Message struct {
	Stanza
}

// NewMessage builds a fresh message stanza of the given type.
func NewMessage(t MessageType) Message {
	s := newStanza("message")
	s.SetType(string(t))
	return Message{Stanza: s}
}

// MessageFromNode wraps an already-parsed <message/> node.
func MessageFromNode(n *xmppstream.Node) Message { return Message{Stanza: FromNode(n)} }

// Body returns the message body text, if any.
func (m Message) Body() string {
	if c, ok := m.Node.Child("body"); ok {
		return c.Text()
	}
	return ""
}

// SetBody replaces the message's body child.
func (m Message) SetBody(text string) {
	m.Node.RemoveChildrenNamed("body")
	body := xmppstream.NewNode("", "body")
	body.SetText(text)
	m.Node.AddChild(body)
}

// Subject returns the message subject text, if any.
func (m Message) Subject() string {
	if c, ok := m.Node.Child("subject"); ok {
		return c.Text()
	}
	return ""
}

// SetSubject replaces the message's subject child.
func (m Message) SetSubject(text string) {
	m.Node.RemoveChildrenNamed("subject")
	subj := xmppstream.NewNode("", "subject")
	subj.SetText(text)
	m.Node.AddChild(subj)
}

// Thread returns the message thread id, if any.
func (m Message) Thread() string {
	if c, ok := m.Node.Child("thread"); ok {
		return c.Text()
	}
	return ""
}

// SetThread replaces the message's thread child.
func (m Message) SetThread(id string) {
	m.Node.RemoveChildrenNamed("thread")
	thread := xmppstream.NewNode("", "thread")
	thread.SetText(id)
	m.Node.AddChild(thread)
}
