package xmppext

import (
	"testing"

	"github.com/k-zaitsev/icqt/xmppstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRegistrationFormHasNoValues(t *testing.T) {
	q := EmptyRegistrationForm()
	u, ok := q.Child("username")
	require.True(t, ok)
	assert.Equal(t, "", u.Text())
	_, ok = q.Child("password")
	require.True(t, ok)
}

func TestParseRegistrationFormRemove(t *testing.T) {
	q := xmppstream.NewNode(NSRegister, "query")
	q.AddChild(xmppstream.NewNode("", "remove"))
	f := ParseRegistrationForm(q)
	assert.True(t, f.Remove)
}

func TestParseRegistrationFormCredentials(t *testing.T) {
	q := BuildRegistrationForm("111111", "hunter2")
	f := ParseRegistrationForm(q)
	assert.False(t, f.Remove)
	assert.Equal(t, "111111", f.Username)
	assert.Equal(t, "hunter2", f.Password)
}

func TestVCardToNode(t *testing.T) {
	v := VCard{Nickname: "bob", FullName: "Bob Smith", GivenName: "Bob", FamilyName: "Smith", Description: "ICQ caps"}
	n := v.ToNode()
	assert.Equal(t, NSVCard, n.XMLName.Space)
	nick, ok := n.Child("NICKNAME")
	require.True(t, ok)
	assert.Equal(t, "bob", nick.Text())
	name, ok := n.Child("N")
	require.True(t, ok)
	fam, ok := name.Child("FAMILY")
	require.True(t, ok)
	assert.Equal(t, "Smith", fam.Text())
}

func TestBuildRosterX(t *testing.T) {
	x := BuildRosterX([]RosterXItem{{JID: "111111@gw.example.com", Name: "Bob"}})
	require.Len(t, x.Children, 1)
	item := x.Children[0]
	assert.Equal(t, "add", item.AttrString("action"))
	assert.Equal(t, "111111@gw.example.com", item.AttrString("jid"))
}

func TestDiscoInfoToNode(t *testing.T) {
	d := DiscoInfo{Identities: []Identity{GatewayIdentity}, Features: GatewayFeatures}
	n := d.ToNode()
	id, ok := n.Child("identity")
	require.True(t, ok)
	assert.Equal(t, "gateway", id.AttrString("category"))
	count := 0
	for _, c := range n.Children {
		if c.XMLName.Local == "feature" {
			count++
		}
	}
	assert.Equal(t, len(GatewayFeatures), count)
}

func TestBuildListRegisteredResult(t *testing.T) {
	cmd := BuildListRegisteredResult("sess1", []string{"a@b.com", "c@d.com"})
	assert.Equal(t, ListRegisteredNode, cmd.AttrString("node"))
	form, ok := cmd.Child("x")
	require.True(t, ok)
	field, ok := form.Child("field")
	require.True(t, ok)
	var values []string
	for _, v := range field.Children {
		values = append(values, v.Text())
	}
	assert.Equal(t, []string{"a@b.com", "c@d.com"}, values)
}
