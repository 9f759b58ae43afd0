// Package transport provides the byte-stream connection abstraction
// shared by the OSCAR client engine and the XMPP component stream,
// plus the name-resolution-with-timeout connector (spec C7).
package transport

import (
	"net"
	"sync"

	"github.com/rs/zerolog"
)

// Debug gates verbose per-byte read/write tracing, mirroring the
// teacher's transport.SIPDebug flag.
var Debug bool

// Conn is the minimal byte-stream contract both protocol engines
// drive: a plain net.Conn with a stable label for logging.
type Conn interface {
	net.Conn
	String() string
}

// wrappedConn adds debug tracing and idempotent Close around a raw
// net.Conn, mirroring the teacher's TCPConnection wrapper.
type wrappedConn struct {
	net.Conn
	label string

	mu     sync.Mutex
	closed bool
	log    zerolog.Logger
}

// WrapConn adorns a freshly dialed net.Conn with logging and
// idempotent close semantics.
func WrapConn(c net.Conn, label string, log zerolog.Logger) Conn {
	return &wrappedConn{Conn: c, label: label, log: log}
}

func (c *wrappedConn) String() string {
	return c.label
}

func (c *wrappedConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if Debug && n > 0 {
		c.log.Debug().Str("conn", c.label).Int("n", n).Msg("read")
	}
	return n, err
}

func (c *wrappedConn) Write(p []byte) (int, error) {
	n, err := c.Conn.Write(p)
	if Debug && n > 0 {
		c.log.Debug().Str("conn", c.label).Int("n", n).Msg("write")
	}
	return n, err
}

func (c *wrappedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.log.Debug().Str("conn", c.label).Msg("closing")
	return c.Conn.Close()
}
