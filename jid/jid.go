// Package jid implements XMPP Jabber IDs (RFC 6122): node@domain/resource.
// The original gateway leaned on the Iris/Psi XMPP::Jid type throughout
// GatewayTask.cpp and ComponentStream.cpp; this is a from-scratch
// reimplementation of the same node/domain/resource triple since no Go
// example in the pack ships one, kept deliberately minimal (no
// stringprep/nodeprep normalisation — the gateway only ever deals with
// ASCII ICQ UINs and the operator's own component domain).
package jid

import (
	"fmt"
	"strings"
)

// JID is an immutable node@domain/resource address.
type JID struct {
	node     string
	domain   string
	resource string
}

// Parse splits s into its node, domain, and resource parts. domain is
// mandatory; node and resource are optional.
func Parse(s string) (JID, error) {
	var j JID
	rest := s
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		j.node = rest[:at]
		rest = rest[at+1:]
	}
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		j.domain = rest[:slash]
		j.resource = rest[slash+1:]
	} else {
		j.domain = rest
	}
	if j.domain == "" {
		return JID{}, fmt.Errorf("jid: %q has no domain", s)
	}
	return j, nil
}

// New builds a JID directly from its parts.
func New(node, domain, resource string) JID {
	return JID{node: node, domain: domain, resource: resource}
}

// Node returns the local part ("" if absent).
func (j JID) Node() string { return j.node }

// Domain returns the domain part.
func (j JID) Domain() string { return j.domain }

// Resource returns the resource part ("" if absent).
func (j JID) Resource() string { return j.resource }

// IsEmpty reports whether the JID was never populated (e.g. a stanza's
// "to" or "from" attribute was absent).
func (j JID) IsEmpty() bool { return j.domain == "" }

// Bare returns the node@domain form, dropping any resource.
func (j JID) Bare() JID { return JID{node: j.node, domain: j.domain} }

// Full renders node@domain/resource, omitting empty parts.
func (j JID) Full() string {
	var b strings.Builder
	if j.node != "" {
		b.WriteString(j.node)
		b.WriteByte('@')
	}
	b.WriteString(j.domain)
	if j.resource != "" {
		b.WriteByte('/')
		b.WriteString(j.resource)
	}
	return b.String()
}

// String implements fmt.Stringer as Full.
func (j JID) String() string { return j.Full() }

// Equal compares all three parts.
func (j JID) Equal(other JID) bool {
	return j.node == other.node && j.domain == other.domain && j.resource == other.resource
}

// WithResource returns a copy of the bare JID with resource set.
func (j JID) WithResource(resource string) JID {
	return JID{node: j.node, domain: j.domain, resource: resource}
}
