package xmppstream

import (
	"encoding/xml"
	"io"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// EventKind identifies a parser event, per spec C6.
type EventKind int

const (
	// DocumentOpen fires once the root stream element's start tag has
	// been read; it never blocks for the element's children.
	DocumentOpen EventKind = iota
	// Element fires once per first-level child of the root, carrying
	// its fully materialised subtree.
	Element
	// DocumentClose fires when the root element's end tag (or stream
	// teardown) is observed.
	DocumentClose
	// EventError fires on a malformed document; the parser is spent
	// afterwards and must be discarded.
	EventError
)

// Event is one item of the parser's event stream.
type Event struct {
	Kind EventKind
	Name xml.Name
	Attr []xml.Attr
	Node *Node
	Err  error
}

// Parser is an incremental, restartable XML event reader. One Parser is
// good for exactly one stream (i.e. one connection); construct a fresh one
// per connection.
type Parser struct {
	dec    *xml.Decoder
	opened bool
	root   xml.Name
	done   bool
}

// NewParser wraps r, auto-detecting UTF-16 via a leading byte-order mark
// (falling back to UTF-8) the way spec C6 requires, and additionally
// honouring an explicit `<?xml ... encoding="X"?>` declaration via
// golang.org/x/text's encoding registry.
func NewParser(r io.Reader) *Parser {
	bomAware := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	dec := xml.NewDecoder(bomAware)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return &Parser{dec: dec}
}

// Next returns the parser's next event. After an EventError or a
// DocumentClose produced by a genuine stream close, the parser is spent
// and further calls return io.EOF.
func (p *Parser) Next() (Event, error) {
	if p.done {
		return Event{}, io.EOF
	}
	for {
		tok, err := p.dec.Token()
		if err != nil {
			p.done = true
			if err == io.EOF && p.opened {
				return Event{Kind: DocumentClose}, nil
			}
			return Event{Kind: EventError, Err: err}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !p.opened {
				p.opened = true
				p.root = t.Name
				return Event{Kind: DocumentOpen, Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}, nil
			}
			n := &Node{}
			if err := n.UnmarshalXML(p.dec, t.Copy()); err != nil {
				p.done = true
				return Event{Kind: EventError, Err: err}, err
			}
			return Event{Kind: Element, Name: n.XMLName, Node: n}, nil
		case xml.EndElement:
			if p.opened && t.Name == p.root {
				p.done = true
				return Event{Kind: DocumentClose}, nil
			}
			// stray end tag outside any tracked element; ignore
		}
	}
}
