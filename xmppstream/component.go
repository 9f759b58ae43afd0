package xmppstream

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// NSComponent is the jabber:component:accept namespace.
const NSComponent = "jabber:component:accept"

// ComponentState tracks the handshake progress, mirroring
// ComponentStream::ConnectionStatus in original_source.
type ComponentState int

const (
	Disconnected ComponentState = iota
	AwaitingStreamOpen
	AwaitingHandshakeReply
	Connected
)

func (s ComponentState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case AwaitingStreamOpen:
		return "awaiting-stream-open"
	case AwaitingHandshakeReply:
		return "awaiting-handshake-reply"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// StreamEventKind identifies an event surfaced by Component.Run.
type StreamEventKind int

const (
	StreamReady StreamEventKind = iota
	StreamClosed
	StreamErrorEvent
	StanzaMessage
	StanzaIQ
	StanzaPresence
)

// StreamEvent is one item of the component stream's event stream, handed
// to the caller-supplied emit callback from within Run's read loop.
type StreamEvent struct {
	Kind      StreamEventKind
	Stanza    *Node
	StreamErr StreamErr
	Err       error
}

// Component drives one jabber:component:accept session over an already
// connected byte stream, per spec §4.15 / original_source's
// ComponentStream class.
type Component struct {
	conn   io.ReadWriteCloser
	domain string
	secret string
	parser *Parser
	log    zerolog.Logger

	mu    sync.Mutex
	state ComponentState
}

// NewComponent wraps conn (already connected to the server's component
// port) for the given component domain and shared secret.
func NewComponent(conn io.ReadWriteCloser, domain, secret string, log zerolog.Logger) *Component {
	return &Component{
		conn:   conn,
		domain: domain,
		secret: secret,
		parser: NewParser(conn),
		log:    log.With().Str("component", domain).Logger(),
		state:  Disconnected,
	}
}

// State reports the current handshake/connection state.
func (c *Component) State() ComponentState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Component) setState(s ComponentState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Open sends the opening stream header, the first step of the handshake
// (spec §4.15 step 1).
func (c *Component) Open() error {
	c.setState(AwaitingStreamOpen)
	data := fmt.Sprintf("<?xml version='1.0'?><stream:stream xmlns:stream=%q xmlns=%q to=%q>",
		NSEtherx, NSComponent, c.domain)
	_, err := io.WriteString(c.conn, data)
	return err
}

// Run reads events from the stream until it closes or errors, driving the
// handshake and dispatching ready stanzas to emit. It blocks until the
// stream ends; callers typically run it in its own goroutine.
func (c *Component) Run(emit func(StreamEvent)) error {
	for {
		ev, err := c.parser.Next()
		if err != nil {
			if c.State() != Disconnected {
				emit(StreamEvent{Kind: StreamClosed, Err: err})
			}
			c.setState(Disconnected)
			return err
		}
		switch ev.Kind {
		case DocumentOpen:
			if err := c.handleStreamOpen(ev); err != nil {
				emit(StreamEvent{Kind: StreamErrorEvent, Err: err})
				return err
			}
		case Element:
			if err := c.handleElement(ev.Node, emit); err != nil {
				return err
			}
		case DocumentClose:
			emit(StreamEvent{Kind: StreamClosed})
			c.setState(Disconnected)
			return nil
		case EventError:
			emit(StreamEvent{Kind: StreamErrorEvent, Err: ev.Err})
			c.setState(Disconnected)
			return ev.Err
		}
	}
}

// handleStreamOpen captures the session id and sends the SHA1 handshake,
// spec §4.15 steps 2-3.
func (c *Component) handleStreamOpen(ev Event) error {
	sessionID := ""
	for _, a := range ev.Attr {
		if a.Name.Local == "id" {
			sessionID = a.Value
		}
	}
	sum := sha1.Sum([]byte(sessionID + c.secret))
	hash := hex.EncodeToString(sum[:])
	c.setState(AwaitingHandshakeReply)
	_, err := fmt.Fprintf(c.conn, "<handshake>%s</handshake>", hash)
	return err
}

// handleElement dispatches a first-level stream child depending on
// handshake progress (spec §4.15 steps 4-5).
func (c *Component) handleElement(n *Node, emit func(StreamEvent)) error {
	switch c.State() {
	case AwaitingHandshakeReply:
		if n.XMLName.Local == "handshake" && len(n.Attrs) == 0 {
			c.setState(Connected)
			emit(StreamEvent{Kind: StreamReady})
			return nil
		}
		c.setState(Disconnected)
		_ = c.Close()
		return fmt.Errorf("xmppstream: handshake rejected")
	case Connected:
		return c.dispatchStanza(n, emit)
	default:
		c.log.Warn().Str("element", n.XMLName.Local).Str("state", c.State().String()).Msg("unexpected element")
		return nil
	}
}

func (c *Component) dispatchStanza(n *Node, emit func(StreamEvent)) error {
	if n.XMLName.Local == "error" && n.XMLName.Space == NSEtherx {
		emit(StreamEvent{Kind: StreamErrorEvent, StreamErr: streamErrFromNode(n)})
		return nil
	}
	switch n.XMLName.Local {
	case "message":
		emit(StreamEvent{Kind: StanzaMessage, Stanza: n})
	case "iq":
		emit(StreamEvent{Kind: StanzaIQ, Stanza: n})
	case "presence":
		emit(StreamEvent{Kind: StanzaPresence, Stanza: n})
	default:
		c.log.Debug().Str("element", n.XMLName.Local).Msg("ignoring unknown top-level element")
	}
	return nil
}

// SendStanza writes a first-level stanza element to the stream.
func (c *Component) SendStanza(n *Node) error {
	_, err := io.WriteString(c.conn, n.String())
	return err
}

// SendStreamError writes a fatal stream-level error and closes the stream,
// per spec §4.17.
func (c *Component) SendStreamError(e StreamErr) error {
	if _, err := io.WriteString(c.conn, e.String()); err != nil {
		return err
	}
	return c.Close()
}

// Close writes the closing stream tag and closes the underlying
// connection (spec §4.15 step 6).
func (c *Component) Close() error {
	c.setState(Disconnected)
	_, werr := io.WriteString(c.conn, "</stream:stream>")
	cerr := c.conn.Close()
	if werr != nil {
		return werr
	}
	return cerr
}
