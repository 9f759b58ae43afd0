// Package xmppext implements the XMPP extension stanzas the gateway
// speaks beyond plain iq/message/presence: XEP-0077 in-band
// registration, vcard-temp, XEP-0004 data forms, XEP-0144 roster item
// exchange, XEP-0030 service discovery, and a minimal XEP-0050 ad-hoc
// command. Grounded in original_source's shark/src/xmpp-ext/ tree and
// shark/src/ServiceDiscovery.cpp.
package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSRegister is the jabber:iq:register namespace (XEP-0077).
const NSRegister = "jabber:iq:register"

// RegistrationForm is the parsed body of an iq-register query: either a
// registration request (username+password) or a removal request.
type RegistrationForm struct {
	Username string
	Password string
	Remove   bool
}

// EmptyRegistrationForm builds the configured empty registration form
// sent in reply to `iq get {jabber:iq:register,query}` (spec §4.18).
func EmptyRegistrationForm() *xmppstream.Node {
	query := xmppstream.NewNode(NSRegister, "query")
	query.AddChild(xmppstream.NewNode("", "username"))
	query.AddChild(xmppstream.NewNode("", "password"))
	return query
}

// ParseRegistrationForm reads a submitted `iq set {jabber:iq:register,query}`
// payload.
func ParseRegistrationForm(query *xmppstream.Node) RegistrationForm {
	var f RegistrationForm
	if _, ok := query.Child("remove"); ok {
		f.Remove = true
		return f
	}
	if u, ok := query.Child("username"); ok {
		f.Username = u.Text()
	}
	if p, ok := query.Child("password"); ok {
		f.Password = p.Text()
	}
	return f
}

// BuildRegistrationForm serialises a (username, password) pair back into
// the query element shape, used by tests driving the gateway end to end.
func BuildRegistrationForm(username, password string) *xmppstream.Node {
	query := xmppstream.NewNode(NSRegister, "query")
	u := xmppstream.NewNode("", "username")
	u.SetText(username)
	p := xmppstream.NewNode("", "password")
	p.SetText(password)
	query.AddChild(u)
	query.AddChild(p)
	return query
}
