// Package xmppstream implements the incremental XML event parser and the
// jabber:component:accept stream handshake used to talk to an XMPP server
// as an external component. Grounded in original_source's
// src/ComponentStream.{h,cpp} (the from-scratch component-accept stream,
// as opposed to the ordinary client-to-server src/JabberConnection.cpp),
// reworked onto encoding/xml the way Go XMPP clients in the wild (e.g.
// the bundled x/mattn and x/NoahShen go-xmpp packages) drive a token
// stream off a net.Conn.
package xmppstream

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// Node is a generic, order-preserving XML element tree. It materialises a
// full first-level stanza subtree the way spec C6 requires: one Element
// event per first-level child of the stream root, never its descendants.
type Node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr
	Children []*Node
	text     string
}

// NewNode creates a bare node with the given (possibly namespaced) name.
func NewNode(space, local string) *Node {
	return &Node{XMLName: xml.Name{Space: space, Local: local}}
}

// UnmarshalXML recursively captures start, text, and child content until
// the matching end element, preserving child order.
func (n *Node) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	n.XMLName = start.Name
	n.Attrs = start.Attr
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child := &Node{}
			if err := child.UnmarshalXML(d, t.Copy()); err != nil {
				return err
			}
			n.Children = append(n.Children, child)
		case xml.CharData:
			n.text += string(t)
		case xml.EndElement:
			return nil
		}
	}
}

// Attr returns the value of the unqualified attribute name, and whether it
// was present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrString is Attr without the presence flag.
func (n *Node) AttrString(name string) string {
	v, _ := n.Attr(name)
	return v
}

// RemoveAttr deletes an unqualified attribute if present.
func (n *Node) RemoveAttr(name string) {
	kept := n.Attrs[:0]
	for _, a := range n.Attrs {
		if a.Name.Local != name {
			kept = append(kept, a)
		}
	}
	n.Attrs = kept
}

// SetAttr sets (or replaces) an unqualified attribute.
func (n *Node) SetAttr(name, value string) {
	for i, a := range n.Attrs {
		if a.Name.Local == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

// Text returns the concatenated character data directly under this node.
func (n *Node) Text() string { return n.text }

// SetText replaces the node's character data.
func (n *Node) SetText(s string) { n.text = s }

// Child returns the first child whose local name matches, in any
// namespace, and whether one was found.
func (n *Node) Child(local string) (*Node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Local == local {
			return c, true
		}
	}
	return nil, false
}

// ChildNS returns the first child matching both namespace and local name.
func (n *Node) ChildNS(space, local string) (*Node, bool) {
	for _, c := range n.Children {
		if c.XMLName.Space == space && c.XMLName.Local == local {
			return c, true
		}
	}
	return nil, false
}

// AddChild appends a child node and returns it.
func (n *Node) AddChild(c *Node) *Node {
	n.Children = append(n.Children, c)
	return c
}

// RemoveChildrenNamed deletes every existing child with the given local
// name, regardless of namespace (used by IQ payload replacement).
func (n *Node) RemoveChildrenNamed(local string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.XMLName.Local != local {
			kept = append(kept, c)
		}
	}
	n.Children = kept
}

// String serialises the node (and its subtree) to an XML fragment. The
// writeTo helper's parentNS is the effective default namespace already
// declared by an ancestor, used to decide whether a node needs its own
// xmlns attribute.
func (n *Node) String() string {
	var buf bytes.Buffer
	n.writeTo(&buf, "")
	return buf.String()
}

func (n *Node) writeTo(buf *bytes.Buffer, parentNS string) {
	fmt.Fprintf(buf, "<%s", n.XMLName.Local)
	if n.XMLName.Space != "" && n.XMLName.Space != parentNS {
		fmt.Fprintf(buf, " xmlns=%q", n.XMLName.Space)
	}
	for _, a := range n.Attrs {
		name := a.Name.Local
		if a.Name.Space != "" {
			name = a.Name.Space + ":" + name
		}
		buf.WriteByte(' ')
		buf.WriteString(name)
		buf.WriteString(`="`)
		escapeTo(buf, a.Value)
		buf.WriteByte('"')
	}
	if n.text == "" && len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	effNS := parentNS
	if n.XMLName.Space != "" {
		effNS = n.XMLName.Space
	}
	if n.text != "" {
		escapeTo(buf, n.text)
	}
	for _, c := range n.Children {
		c.writeTo(buf, effNS)
	}
	fmt.Fprintf(buf, "</%s>", n.XMLName.Local)
}

func escapeTo(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}
