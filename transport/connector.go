package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorKind enumerates the ways Connect can fail (spec §4.6/§7
// TransportError).
type ErrorKind int

const (
	ErrLookupTimeout ErrorKind = iota
	ErrLookupFailed
	ErrConnectTimeout
	ErrSocketError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrLookupTimeout:
		return "LookupTimeout"
	case ErrLookupFailed:
		return "LookupFailed"
	case ErrConnectTimeout:
		return "ConnectTimeout"
	case ErrSocketError:
		return "SocketError"
	default:
		return "Unknown"
	}
}

// ConnectError wraps the kind with the underlying cause, if any.
type ConnectError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("transport: %s", e.Kind)
}

func (e *ConnectError) Unwrap() error { return e.Err }

const (
	DefaultLookupTimeout  = 30 * time.Second
	DefaultConnectTimeout = 30 * time.Second
)

// Connector resolves a name and dials it over TCP with separate
// lookup/connect deadlines (spec C7). The zero value is ready to use.
type Connector struct {
	// LookupTimeout bounds DNS resolution. Defaults to 30s.
	LookupTimeout time.Duration
	// ConnectTimeout bounds the TCP handshake. Defaults to 30s.
	ConnectTimeout time.Duration
	// Resolver is used to resolve hostnames; defaults to net.DefaultResolver.
	Resolver *net.Resolver
	// OverrideHostPort, if non-empty, replaces the resolution target
	// entirely: the caller-supplied host is used only for logging.
	OverrideHostPort string

	log zerolog.Logger
}

// NewConnector builds a Connector with the package defaults.
func NewConnector() *Connector {
	c := &Connector{
		LookupTimeout:  DefaultLookupTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		Resolver:       net.DefaultResolver,
	}
	c.log = log.Logger.With().Str("caller", "transport<Connector>").Logger()
	return c
}

// ConnectTo resolves host:port (or an override) and dials it, honouring
// the separate lookup and connect deadlines. It returns exactly one of
// a live connection or a ConnectError (spec §4.6).
func (c *Connector) ConnectTo(ctx context.Context, hostPort string) (net.Conn, error) {
	target := hostPort
	if c.OverrideHostPort != "" {
		target = c.OverrideHostPort
	}

	host, port, err := net.SplitHostPort(target)
	if err != nil {
		return nil, &ConnectError{Kind: ErrSocketError, Err: err}
	}

	dialHost := host
	if net.ParseIP(host) == nil {
		lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout())
		defer cancel()

		addrs, err := c.Resolver.LookupHost(lookupCtx, host)
		if err != nil {
			if lookupCtx.Err() == context.DeadlineExceeded {
				return nil, &ConnectError{Kind: ErrLookupTimeout, Err: err}
			}
			return nil, &ConnectError{Kind: ErrLookupFailed, Err: err}
		}
		if len(addrs) == 0 {
			return nil, &ConnectError{Kind: ErrLookupFailed, Err: fmt.Errorf("no addresses for %q", host)}
		}
		dialHost = addrs[0]
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.connectTimeout())
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(connectCtx, "tcp", net.JoinHostPort(dialHost, port))
	if err != nil {
		if connectCtx.Err() == context.DeadlineExceeded {
			return nil, &ConnectError{Kind: ErrConnectTimeout, Err: err}
		}
		return nil, &ConnectError{Kind: ErrSocketError, Err: err}
	}

	c.log.Debug().Str("target", target).Str("dial_addr", conn.RemoteAddr().String()).Msg("connected")
	return conn, nil
}

func (c *Connector) lookupTimeout() time.Duration {
	if c.LookupTimeout > 0 {
		return c.LookupTimeout
	}
	return DefaultLookupTimeout
}

func (c *Connector) connectTimeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return DefaultConnectTimeout
}
