package network

import (
	"context"
	"net"
)

// Dialer wraps a network dialer.
type Dialer struct {
	d net.Dialer
}

// DialContext dials a new bitsock connection.
func (d *Dialer) DialContext(ctx context.Context, network, addr string) (*Conn, error) {
	conn, err := d.d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	return Open(conn, conn.RemoteAddr()), nil
}
