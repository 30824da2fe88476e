package client

import (
	"context"
	"net"

	"golang.org/x/net/proxy"
)

// dialProxy dials addr through the SOCKS5 gateway. The proxy package
// only exposes a plain Dial, so the call runs in its own goroutine to
// honor ctx.
func (d *Dialer) dialProxy(ctx context.Context, addr string) (net.Conn, error) {
	dialer, err := proxy.SOCKS5("tcp", d.Proxy, nil, &d.d)
	if err != nil {
		return nil, err
	}

	errc := make(chan error, 1)
	connc := make(chan net.Conn, 1)

	go func() {
		conn, err := dialer.Dial("tcp", addr)
		if err != nil {
			errc <- err
			return
		}

		connc <- conn
	}()

	select {
	case conn := <-connc:
		return conn, nil
	case err := <-errc:
		return nil, err
	case <-ctx.Done():
		go func() {
			// don't leak the connection if the dial wins the race
			select {
			case conn := <-connc:
				conn.Close()
			case <-errc:
			}
		}()
		return nil, ctx.Err()
	}
}
