package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSDiscoInfo / NSDiscoItems are the XEP-0030 namespaces.
const (
	NSDiscoInfo  = "http://jabber.org/protocol/disco#info"
	NSDiscoItems = "http://jabber.org/protocol/disco#items"
)

// Identity is a disco#info <identity/> entry, grounded on
// original_source's shark/src/ServiceDiscovery.cpp's DiscoInfo::Identity.
type Identity struct {
	Category string
	Type     string
	Name     string
}

// DiscoInfo is a disco#info query result: a list of identities plus a
// feature-var list.
type DiscoInfo struct {
	Identities []Identity
	Features   []string
}

// GatewayIdentity is the identity the gateway reports for its own JID
// (spec SPEC_FULL §4.19).
var GatewayIdentity = Identity{Category: "gateway", Type: "icq", Name: "ICQ Gateway"}

// GatewayFeatures lists the namespaces the gateway answers on its own
// JID.
var GatewayFeatures = []string{
	NSDiscoInfo,
	NSRegister,
	NSVCard,
	NSRosterX,
}

// ToNode builds the <query xmlns='...disco#info'> payload.
func (d DiscoInfo) ToNode() *xmppstream.Node {
	query := xmppstream.NewNode(NSDiscoInfo, "query")
	for _, id := range d.Identities {
		n := xmppstream.NewNode("", "identity")
		n.SetAttr("category", id.Category)
		n.SetAttr("type", id.Type)
		if id.Name != "" {
			n.SetAttr("name", id.Name)
		}
		query.AddChild(n)
	}
	for _, f := range d.Features {
		n := xmppstream.NewNode("", "feature")
		n.SetAttr("var", f)
		query.AddChild(n)
	}
	return query
}

// EmptyDiscoItems builds an empty disco#items result, used for contact
// JIDs which expose no sub-items (SPEC_FULL §4.19).
func EmptyDiscoItems() *xmppstream.Node {
	return xmppstream.NewNode(NSDiscoItems, "query")
}
