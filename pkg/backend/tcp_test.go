package backend

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLoopback(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().String(), func() { _ = ln.Close() }
}

func TestTCPPingerReturnsTrueWhenReachable(t *testing.T) {
	addr, stop := listenLoopback(t)
	defer stop()

	p := &TCPPinger{Resolver: StaticResolver{"survival": addr}}
	assert.True(t, p.Ping(context.Background(), "survival", time.Second))
}

func TestTCPPingerReturnsFalseForUnknownServer(t *testing.T) {
	p := &TCPPinger{Resolver: StaticResolver{}}
	assert.False(t, p.Ping(context.Background(), "survival", time.Second))
}

func TestTCPPingerReturnsFalseWhenUnreachable(t *testing.T) {
	p := &TCPPinger{Resolver: StaticResolver{"survival": "127.0.0.1:1"}}
	assert.False(t, p.Ping(context.Background(), "survival", 100*time.Millisecond))
}

func TestTCPConnectorSucceedsWhenReachable(t *testing.T) {
	addr, stop := listenLoopback(t)
	defer stop()

	c := &TCPConnector{Resolver: StaticResolver{"survival": addr}, Timeout: time.Second}
	assert.NoError(t, c.Connect(context.Background(), uuid.New(), "survival"))
}

func TestTCPConnectorErrorsForUnknownServer(t *testing.T) {
	c := &TCPConnector{Resolver: StaticResolver{}, Timeout: time.Second}
	assert.Error(t, c.Connect(context.Background(), uuid.New(), "survival"))
}
