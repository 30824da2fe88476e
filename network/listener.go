package network

import (
	"net"
)

// Listener wraps a net.Listener.
type Listener struct {
	l net.Listener
}

// Listen announces to the local network address.
func Listen(network, addr string) (*Listener, error) {
	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	return &Listener{
		l: l,
	}, nil
}

// Accept accepts incoming network connections, wrapping them into
// bitsock connections.
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.l.Accept()
	if err != nil {
		return nil, err
	}

	return Open(conn, conn.RemoteAddr()), nil
}

// Addr returns the listener's bound network address.
func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

// Close closes the underlying listener, making Accept quit and refute
// any other network connection.
func (l *Listener) Close() error {
	return l.l.Close()
}
