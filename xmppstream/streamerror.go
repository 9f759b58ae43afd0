package xmppstream

import (
	"bytes"
	"fmt"
)

// NSEtherx is the streams namespace carrying stream:error conditions.
const NSEtherx = "http://etherx.jabber.org/streams"

// NSStreamsCondition is the namespace of the stream-error condition
// element, per RFC 3920.
const NSStreamsCondition = "urn:ietf:params:xml:ns:xmpp-streams"

// StreamErrorCondition enumerates RFC 3920 stream-error conditions.
type StreamErrorCondition int

const (
	BadFormat StreamErrorCondition = iota
	BadNamespacePrefix
	Conflict
	ConnectionTimeout
	HostGone
	HostUnknown
	ImproperAddressing
	InternalServerError
	InvalidFrom
	InvalidID
	InvalidNamespace
	InvalidXML
	NotAuthorized
	PolicyViolation
	RemoteConnectionFailed
	ResourceConstraint
	RestrictedXML
	SeeOtherHost
	SystemShutdown
	UndefinedCondition
	UnsupportedEncoding
	UnsupportedStanzaType
	UnsupportedVersion
	XMLNotWellFormed
)

var conditionNames = [...]string{
	"bad-format", "bad-namespace-prefix", "conflict", "connection-timeout",
	"host-gone", "host-unknown", "improper-addressing", "internal-server-error",
	"invalid-from", "invalid-id", "invalid-namespace", "invalid-xml",
	"not-authorized", "policy-violation", "remote-connection-failed",
	"resource-constraint", "restricted-xml", "see-other-host", "system-shutdown",
	"undefined-condition", "unsupported-encoding", "unsupported-stanza-type",
	"unsupported-version", "xml-not-well-formed",
}

// String renders the condition as its RFC 3920 wire name.
func (c StreamErrorCondition) String() string {
	if int(c) < 0 || int(c) >= len(conditionNames) {
		return "undefined-condition"
	}
	return conditionNames[c]
}

// StreamErr is a stream-level error, carrying a mandatory condition plus
// optional human text and at most one application-specific child.
type StreamErr struct {
	Condition StreamErrorCondition
	Text      string
	AppSpecNS string
	AppSpec   string
}

func (e StreamErr) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("stream error: %s: %s", e.Condition, e.Text)
	}
	return fmt.Sprintf("stream error: %s", e.Condition)
}

// String renders the stream error as a <stream:error> fragment, using the
// already-bound "stream" prefix rather than a fresh xmlns declaration
// (the prefix is established once, by the opening <stream:stream> tag).
func (e StreamErr) String() string {
	var b bytes.Buffer
	b.WriteString("<stream:error>")
	fmt.Fprintf(&b, "<%s xmlns=%q/>", e.Condition, NSStreamsCondition)
	if e.Text != "" {
		b.WriteString(`<text xmlns="`)
		b.WriteString(NSStreamsCondition)
		b.WriteString(`">`)
		escapeTo(&b, e.Text)
		b.WriteString("</text>")
	}
	if e.AppSpec != "" {
		fmt.Fprintf(&b, "<%s xmlns=%q/>", e.AppSpec, e.AppSpecNS)
	}
	b.WriteString("</stream:error>")
	return b.String()
}

// streamErrFromNode parses a received <stream:error> element's children
// back into a StreamErr. Only the first condition, the first Text child,
// and the first child outside the streams-condition namespace are
// recognised, per spec §4.17.
func streamErrFromNode(n *Node) StreamErr {
	var e StreamErr
	haveCondition := false
	haveApp := false
	for _, c := range n.Children {
		switch {
		case c.XMLName.Space == NSStreamsCondition && c.XMLName.Local == "text":
			if e.Text == "" {
				e.Text = c.Text()
			}
		case c.XMLName.Space == NSStreamsCondition && !haveCondition:
			for i, name := range conditionNames {
				if name == c.XMLName.Local {
					e.Condition = StreamErrorCondition(i)
					haveCondition = true
					break
				}
			}
		case !haveApp && c.XMLName.Space != NSStreamsCondition:
			e.AppSpecNS = c.XMLName.Space
			e.AppSpec = c.XMLName.Local
			haveApp = true
		}
	}
	return e
}
