package stanza

import (
	"fmt"
	"sync/atomic"

	"github.com/k-zaitsev/icqt/xmppstream"
)

// IQType enumerates the four legal iq type values.
type IQType string

const (
	IQGet    IQType = "get"
	IQSet    IQType = "set"
	IQResult IQType = "result"
	IQError  IQType = "error"
)

var iqIDCounter uint64

// NextIQID returns a fresh hex id from a process-wide monotonic counter,
// so that no two in-flight IQs share an id (spec §4.16).
func NextIQID() string {
	n := atomic.AddUint64(&iqIDCounter, 1)
	return fmt.Sprintf("%x", n)
}

// IQ wraps an <iq/> stanza. It carries exactly one payload child element;
// setting a new one replaces the previous (spec §4.16).
type IQ struct {
	Stanza
}

// NewIQ builds a fresh iq stanza of the given type with an auto-assigned
// id.
func NewIQ(t IQType) IQ {
	s := newStanza("iq")
	s.SetType(string(t))
	s.SetID(NextIQID())
	return IQ{Stanza: s}
}

// IQFromNode wraps an already-parsed <iq/> node.
func IQFromNode(n *xmppstream.Node) IQ { return IQ{Stanza: FromNode(n)} }

// Type shadows Stanza.Type with the typed IQType, so callers can
// compare directly against IQGet/IQSet/IQResult/IQError.
func (iq IQ) Type() IQType { return IQType(iq.Stanza.Type()) }

// Payload returns the iq's single child element, if any.
func (iq IQ) Payload() (*xmppstream.Node, bool) {
	if len(iq.Node.Children) == 0 {
		return nil, false
	}
	return iq.Node.Children[0], true
}

// SetPayload replaces the iq's payload with n.
func (iq IQ) SetPayload(n *xmppstream.Node) {
	iq.Node.Children = []*xmppstream.Node{n}
}

// Result builds a "result" reply to iq, addresses swapped, carrying no
// payload unless the caller calls SetPayload afterwards.
func (iq IQ) Result() IQ {
	reply := IQFromNode(xmppstream.NewNode("", "iq"))
	reply.SetID(iq.ID())
	reply.SetType(string(IQResult))
	reply.SetTo(iq.From())
	if from := iq.To(); !from.IsEmpty() {
		reply.SetFrom(from)
	}
	return reply
}

// ErrorReply builds an "error" reply to iq carrying se, echoing the
// original payload alongside the error element as RFC 3920 requires.
func (iq IQ) ErrorReply(se StanzaError) IQ {
	reply := IQFromNode(xmppstream.NewNode("", "iq"))
	reply.SetID(iq.ID())
	reply.SetType(string(IQError))
	reply.SetTo(iq.From())
	if from := iq.To(); !from.IsEmpty() {
		reply.SetFrom(from)
	}
	if payload, ok := iq.Payload(); ok {
		reply.Node.Children = append(reply.Node.Children, payload)
	}
	se.PushToDOM(reply.Node)
	return reply
}
