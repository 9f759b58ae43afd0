package xmppext

import "github.com/k-zaitsev/icqt/xmppstream"

// NSDataForms is the XEP-0004 data forms namespace.
const NSDataForms = "jabber:x:data"

// FormType enumerates the legal <x type='...'> values.
type FormType string

const (
	FormResult FormType = "result"
	FormForm   FormType = "form"
)

// Field is one data form field; Values covers both single- and
// multi-value fields (the ad-hoc list-registered result uses a single
// list-multi field).
type Field struct {
	Var    string
	Type   string
	Label  string
	Values []string
}

// Form is a minimal XEP-0004 data form, enough for the ad-hoc
// list-registered result (SPEC_FULL §4.19).
type Form struct {
	Type   FormType
	Title  string
	Fields []Field
}

// ToNode builds the <x xmlns='jabber:x:data'> element.
func (f Form) ToNode() *xmppstream.Node {
	x := xmppstream.NewNode(NSDataForms, "x")
	x.SetAttr("type", string(f.Type))
	if f.Title != "" {
		title := xmppstream.NewNode("", "title")
		title.SetText(f.Title)
		x.AddChild(title)
	}
	for _, fl := range f.Fields {
		field := xmppstream.NewNode("", "field")
		field.SetAttr("var", fl.Var)
		if fl.Type != "" {
			field.SetAttr("type", fl.Type)
		}
		if fl.Label != "" {
			field.SetAttr("label", fl.Label)
		}
		for _, v := range fl.Values {
			value := xmppstream.NewNode("", "value")
			value.SetText(v)
			field.AddChild(value)
		}
		x.AddChild(field)
	}
	return x
}
