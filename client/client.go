/*
Copyright (C) 2018 Daniel Morandini

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as
published by the Free Software Foundation, either version 3 of the
License, or (at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package client provides the connecting side of a bitsock session.
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/LolzDEV/bitsock/network"
)

// Client is a bitsock connection established towards a server. Drive
// it with Send/Recv, give it up with Close.
type Client struct {
	*network.Conn
}

// Connect establishes a connection with the server listening at
// host:port.
func Connect(host string, port int) (*Client, error) {
	return ConnectContext(context.Background(), host, port)
}

// ConnectContext is like Connect, but interruptible through ctx.
func ConnectContext(ctx context.Context, host string, port int) (*Client, error) {
	d := new(Dialer)
	return d.Connect(ctx, host, port)
}

// Dialer connects clients, optionally routing them through a SOCKS5
// gateway. The zero value dials directly.
type Dialer struct {
	// Proxy is the host:port of a SOCKS5 proxy to tunnel the
	// connection through. Empty means a direct connection.
	Proxy string

	d net.Dialer
}

// Connect establishes a connection with the server listening at
// host:port, going through the configured proxy if any.
func (d *Dialer) Connect(ctx context.Context, host string, port int) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var conn net.Conn
	var err error
	if d.Proxy == "" {
		conn, err = d.d.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.dialProxy(ctx, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("client: unable to connect to %v: %w", addr, err)
	}

	return &Client{Conn: network.Open(conn, conn.RemoteAddr())}, nil
}
