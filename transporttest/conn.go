// Package transporttest provides fake byte-stream connections for
// exercising oscar.Socket and xmppstream.Component without a real
// network, grounded in the teacher's fakes/siptest conn recorders.
package transporttest

import (
	"bytes"
	"io"
	"net"
	"sync"
	"time"
)

// PipeConn is a net.Conn backed by in-memory buffers: writes made by
// the code under test land in Written, and bytes queued with Feed
// become available to the code under test's Read calls.
type PipeConn struct {
	mu      sync.Mutex
	feed    bytes.Buffer
	feedCh  chan struct{}
	written bytes.Buffer
	closed  bool
}

// NewPipeConn creates a ready-to-use fake connection.
func NewPipeConn() *PipeConn {
	return &PipeConn{feedCh: make(chan struct{}, 1)}
}

// Feed appends bytes that a subsequent Read will return, simulating
// data arriving from the remote peer.
func (c *PipeConn) Feed(p []byte) {
	c.mu.Lock()
	c.feed.Write(p)
	c.mu.Unlock()
	select {
	case c.feedCh <- struct{}{}:
	default:
	}
}

func (c *PipeConn) Read(p []byte) (int, error) {
	for {
		c.mu.Lock()
		if c.closed && c.feed.Len() == 0 {
			c.mu.Unlock()
			return 0, io.EOF
		}
		if c.feed.Len() > 0 {
			n, _ := c.feed.Read(p)
			c.mu.Unlock()
			return n, nil
		}
		c.mu.Unlock()
		<-c.feedCh
	}
}

func (c *PipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, io.ErrClosedPipe
	}
	return c.written.Write(p)
}

// Written returns every byte written by the code under test so far.
func (c *PipeConn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, c.written.Len())
	copy(out, c.written.Bytes())
	return out
}

func (c *PipeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	select {
	case c.feedCh <- struct{}{}:
	default:
	}
	return nil
}

func (c *PipeConn) String() string             { return "pipe" }
func (c *PipeConn) LocalAddr() net.Addr         { return fakeAddr("local") }
func (c *PipeConn) RemoteAddr() net.Addr        { return fakeAddr("remote") }
func (c *PipeConn) SetDeadline(time.Time) error { return nil }
func (c *PipeConn) SetReadDeadline(time.Time) error {
	return nil
}
func (c *PipeConn) SetWriteDeadline(time.Time) error {
	return nil
}

type fakeAddr string

func (a fakeAddr) Network() string { return "pipe" }
func (a fakeAddr) String() string  { return string(a) }
