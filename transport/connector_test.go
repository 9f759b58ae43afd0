package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectorDialsDirectIP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	c := NewConnector()
	conn, err := c.ConnectTo(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case srv := <-accepted:
		defer srv.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted connection")
	}
}

func TestConnectorConnectTimeout(t *testing.T) {
	// 192.0.2.0/24 is reserved (TEST-NET-1); nothing answers there.
	c := NewConnector()
	c.ConnectTimeout = 50 * time.Millisecond
	_, err := c.ConnectTo(context.Background(), "192.0.2.1:5190")
	require.Error(t, err)
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrConnectTimeout, ce.Kind)
}

func TestConnectorLookupFailed(t *testing.T) {
	c := NewConnector()
	c.LookupTimeout = time.Second
	_, err := c.ConnectTo(context.Background(), "this-host-does-not-resolve.invalid:5190")
	require.Error(t, err)
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrLookupFailed, ce.Kind)
}

func TestConnectorOverrideHostPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		c, _ := ln.Accept()
		if c != nil {
			c.Close()
		}
	}()

	c := NewConnector()
	c.OverrideHostPort = ln.Addr().String()
	conn, err := c.ConnectTo(context.Background(), "login.icq.com:5190")
	require.NoError(t, err)
	conn.Close()
}
