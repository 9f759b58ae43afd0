package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSRosterX is the roster-item-exchange namespace (XEP-0144).
const NSRosterX = "http://jabber.org/protocol/rosterx"

// RosterXAction enumerates RosterXItem::Action.
type RosterXAction string

const (
	RosterXAdd    RosterXAction = "add"
	RosterXDelete RosterXAction = "delete"
	RosterXModify RosterXAction = "modify"
)

// RosterXItem is one entry of a roster-item-exchange payload, grounded
// on original_source's shark/src/xmpp-ext/rosterxitem.{h,cpp}.
type RosterXItem struct {
	Action RosterXAction
	JID    string
	Name   string
	Groups []string
}

// BuildRosterX builds the <x xmlns='http://jabber.org/protocol/rosterx'>
// element carrying items, to be attached to a <message/> per spec §4.18's
// roster-push-on-first-login bridging policy.
func BuildRosterX(items []RosterXItem) *xmppstream.Node {
	x := xmppstream.NewNode(NSRosterX, "x")
	for _, it := range items {
		action := it.Action
		if action == "" {
			action = RosterXAdd
		}
		item := xmppstream.NewNode("", "item")
		item.SetAttr("action", string(action))
		item.SetAttr("jid", it.JID)
		if it.Name != "" {
			item.SetAttr("name", it.Name)
		}
		for _, g := range it.Groups {
			group := xmppstream.NewNode("", "group")
			group.SetText(g)
			item.AddChild(group)
		}
		x.AddChild(item)
	}
	return x
}
