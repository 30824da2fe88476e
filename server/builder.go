package server

import (
	"errors"
	"fmt"

	"github.com/LolzDEV/bitsock/network"
	"github.com/LolzDEV/bitsock/pubsub"
)

// Builder collects the server configuration before construction.
// Configuration mistakes surface at Build time, not when the server
// runs.
type Builder struct {
	addr     string
	port     int
	maxConns int
	handler  Handler
}

// NewBuilder returns a builder with no handler and no port: both have
// to be supplied before Build.
func NewBuilder() *Builder {
	return &Builder{
		addr: "0.0.0.0",
		port: -1,
	}
}

// Address sets the address the server binds to. Defaults to 0.0.0.0.
func (b *Builder) Address(addr string) *Builder {
	b.addr = addr
	return b
}

// Port sets the port the server binds to. Port 0 asks the system for
// an ephemeral one.
func (b *Builder) Port(port int) *Builder {
	b.port = port
	return b
}

// Handler sets the handler run for each accepted connection.
func (b *Builder) Handler(h Handler) *Builder {
	b.handler = h
	return b
}

// HandlerFunc sets a plain function as the handler.
func (b *Builder) HandlerFunc(f func(conn *network.Conn)) *Builder {
	return b.Handler(HandlerFunc(f))
}

// MaxConns caps the number of connections handled concurrently; while
// the cap is reached further connections are not accepted. Zero, the
// default, means no cap.
func (b *Builder) MaxConns(n int) *Builder {
	b.maxConns = n
	return b
}

// Build validates the configuration and produces the server.
func (b *Builder) Build() (*Server, error) {
	if b.handler == nil {
		return nil, errors.New("server: build: no handler supplied")
	}
	if b.port < 0 || b.port > 0xffff {
		return nil, fmt.Errorf("server: build: invalid port: %v", b.port)
	}
	if b.maxConns < 0 {
		return nil, fmt.Errorf("server: build: invalid connection cap: %v", b.maxConns)
	}

	return &Server{
		PubSub:   pubsub.New(),
		addr:     b.addr,
		port:     b.port,
		maxConns: b.maxConns,
		handler:  b.handler,
	}, nil
}
