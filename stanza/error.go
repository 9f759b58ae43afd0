package stanza

import "github.com/k-zaitsev/icqt/xmppstream"

// NSStanzas is the namespace of stanza-error condition elements.
const NSStanzas = "urn:ietf:params:xml:ns:xmpp-stanzas"

// ErrorType enumerates the five legal stanza error type values.
type ErrorType string

const (
	ErrorCancel   ErrorType = "cancel"
	ErrorContinue ErrorType = "continue"
	ErrorModify   ErrorType = "modify"
	ErrorAuth     ErrorType = "auth"
	ErrorWait     ErrorType = "wait"
)

// Condition enumerates RFC 3920bis stanza-error conditions.
type Condition string

const (
	BadRequest             Condition = "bad-request"
	Conflict               Condition = "conflict"
	FeatureNotImplemented  Condition = "feature-not-implemented"
	Forbidden              Condition = "forbidden"
	Gone                   Condition = "gone"
	InternalServerError    Condition = "internal-server-error"
	ItemNotFound           Condition = "item-not-found"
	JidMalformed           Condition = "jid-malformed"
	NotAcceptable          Condition = "not-acceptable"
	NotAllowed             Condition = "not-allowed"
	NotAuthorized          Condition = "not-authorized"
	PaymentRequired        Condition = "payment-required"
	PolicyViolation        Condition = "policy-violation"
	RecipientUnavailable   Condition = "recipient-unavailable"
	Redirect               Condition = "redirect"
	RegistrationRequired   Condition = "registration-required"
	RemoteServerNotFound   Condition = "remote-server-not-found"
	RemoteServerTimeout    Condition = "remote-server-timeout"
	ResourceConstraint     Condition = "resource-constraint"
	ServiceUnavailable     Condition = "service-unavailable"
	SubscriptionRequired   Condition = "subscription-required"
	UndefinedCondition     Condition = "undefined-condition"
	UnexpectedRequest      Condition = "unexpected-request"
)

// defaultType is the canonical condition -> type mapping (spec §4.16
// names a handful of examples; the rest follow the same RFC 3920bis
// table).
var defaultType = map[Condition]ErrorType{
	BadRequest:            ErrorModify,
	Conflict:              ErrorCancel,
	FeatureNotImplemented: ErrorCancel,
	Forbidden:             ErrorAuth,
	Gone:                  ErrorModify,
	InternalServerError:   ErrorWait,
	ItemNotFound:          ErrorCancel,
	JidMalformed:          ErrorModify,
	NotAcceptable:         ErrorModify,
	NotAllowed:            ErrorCancel,
	NotAuthorized:         ErrorAuth,
	PaymentRequired:       ErrorAuth,
	PolicyViolation:       ErrorModify,
	RecipientUnavailable:  ErrorWait,
	Redirect:              ErrorModify,
	RegistrationRequired:  ErrorAuth,
	RemoteServerNotFound:  ErrorCancel,
	RemoteServerTimeout:   ErrorWait,
	ResourceConstraint:    ErrorWait,
	ServiceUnavailable:    ErrorCancel,
	SubscriptionRequired:  ErrorAuth,
	UndefinedCondition:    ErrorCancel,
	UnexpectedRequest:     ErrorWait,
}

// StanzaError is a stanza-level error: mandatory type and condition,
// optional human text, optional application-specific condition pair.
type StanzaError struct {
	Type      ErrorType
	Condition Condition
	Text      string
	AppNS     string
	AppName   string
}

// NewStanzaError builds an error with an explicitly chosen type.
func NewStanzaError(t ErrorType, c Condition, text string) StanzaError {
	return StanzaError{Type: t, Condition: c, Text: text}
}

// NewDefaultStanzaError builds an error whose type is derived from c via
// the canonical mapping (spec §4.16).
func NewDefaultStanzaError(c Condition, text string) StanzaError {
	t, ok := defaultType[c]
	if !ok {
		t = ErrorCancel
	}
	return StanzaError{Type: t, Condition: c, Text: text}
}

// PushToDOM appends an <error/> element to root per spec §4.16:
// <error type='T'><COND xmlns='urn:ietf:params:xml:ns:xmpp-stanzas'/>
// [<text xmlns='…'>…</text>][<app/>]</error>
func (e StanzaError) PushToDOM(root *xmppstream.Node) {
	errNode := xmppstream.NewNode("", "error")
	errNode.SetAttr("type", string(e.Type))
	errNode.AddChild(xmppstream.NewNode(NSStanzas, string(e.Condition)))
	if e.Text != "" {
		text := xmppstream.NewNode(NSStanzas, "text")
		text.SetText(e.Text)
		errNode.AddChild(text)
	}
	if e.AppName != "" {
		errNode.AddChild(xmppstream.NewNode(e.AppNS, e.AppName))
	}
	root.AddChild(errNode)
}

func (e StanzaError) Error() string {
	if e.Text != "" {
		return string(e.Condition) + ": " + e.Text
	}
	return string(e.Condition)
}
