package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSVCard is the vcard-temp namespace (XEP-0054).
const NSVCard = "vcard-temp"

// VCard is the small subset of vcard-temp fields the gateway populates
// from an ICQ short-details reply (spec §4.18): nickname, full name
// split into given/family, and a free-text description. Grounded on
// original_source's shark/src/xmpp-ext/vCard.{h,cpp} field set, trimmed
// to what the gateway actually fills in.
type VCard struct {
	Nickname    string
	FullName    string
	GivenName   string
	FamilyName  string
	Description string
}

// ToNode builds the <vCard xmlns='vcard-temp'> element.
func (v VCard) ToNode() *xmppstream.Node {
	root := xmppstream.NewNode(NSVCard, "vCard")
	if v.Nickname != "" {
		n := xmppstream.NewNode("", "NICKNAME")
		n.SetText(v.Nickname)
		root.AddChild(n)
	}
	if v.FullName != "" {
		n := xmppstream.NewNode("", "FN")
		n.SetText(v.FullName)
		root.AddChild(n)
	}
	if v.GivenName != "" || v.FamilyName != "" {
		name := xmppstream.NewNode("", "N")
		if v.FamilyName != "" {
			family := xmppstream.NewNode("", "FAMILY")
			family.SetText(v.FamilyName)
			name.AddChild(family)
		}
		if v.GivenName != "" {
			given := xmppstream.NewNode("", "GIVEN")
			given.SetText(v.GivenName)
			name.AddChild(given)
		}
		root.AddChild(name)
	}
	if v.Description != "" {
		n := xmppstream.NewNode("", "DESC")
		n.SetText(v.Description)
		root.AddChild(n)
	}
	return root
}
