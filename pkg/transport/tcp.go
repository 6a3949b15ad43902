// Package transport provides the client-side TCP dialer.
package transport

import (
	"fmt"
	"net"
	"time"
)

const defaultDialTimeout = 10 * time.Second

// TCPDialer dials TCP endpoints with a timeout and keepalive enabled.
type TCPDialer struct {
	Timeout time.Duration
}

func (d TCPDialer) Dial(addr string) (net.Conn, error) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetKeepAlive(true); err != nil {
			conn.Close()
			return nil, fmt.Errorf("keepalive: %w", err)
		}
	}
	return conn, nil
}
