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

// Package server provides a bitsock server implementation: it accepts
// incoming connections and drives each of them with a user supplied
// handler, one goroutine per connection.
package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/LolzDEV/bitsock/log"
	"github.com/LolzDEV/bitsock/network"
	"github.com/LolzDEV/bitsock/pubsub"
)

// Handler drives one accepted connection. ServeConn is invoked in its
// own goroutine and owns conn exclusively; when it returns, no matter
// how, the connection gets closed. The same handler value is shared by
// every connection, so it must be safe for concurrent use.
type Handler interface {
	ServeConn(conn *network.Conn)
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(conn *network.Conn)

// ServeConn calls f(conn).
func (f HandlerFunc) ServeConn(conn *network.Conn) { f(conn) }

// TopicConnEvents is the topic where connection lifecycle events are
// published.
const TopicConnEvents = "topic_conn_events"

// Event is the kind of a connection lifecycle event.
type Event int

// Possible connection events.
const (
	EventConnected Event = iota
	EventDisconnected
)

func (e Event) String() string {
	if e == EventConnected {
		return "connected"
	}
	return "disconnected"
}

// ConnEvent is the message published on TopicConnEvents.
type ConnEvent struct {
	Event Event
	Addr  string
}

type state int

const (
	stateBuilt state = iota
	stateRunning
	stateStopped
)

// Server accepts bitsock connections and dispatches them to its
// handler. Build one with a Builder; a Server runs at most once.
type Server struct {
	PubSub *pubsub.PubSub

	addr     string
	port     int
	maxConns int
	handler  Handler

	mutex sync.Mutex
	state state
	ln    *network.Listener
}

// Run binds the listener and serves it. It blocks until Close is
// called or a listener level error occurs. A bind failure is fatal and
// returned right away.
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.addr, strconv.Itoa(s.port))
	ln, err := network.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: unable to bind %v: %w", addr, err)
	}

	return s.Serve(ln)
}

// Serve accepts connections from an already bound listener, spawning a
// goroutine running the handler for each of them. Errors concerning a
// single candidate connection are logged and skipped: only a listener
// level failure makes Serve return. After Serve returns the server is
// stopped for good.
func (s *Server) Serve(ln *network.Listener) error {
	s.mutex.Lock()
	switch s.state {
	case stateRunning:
		s.mutex.Unlock()
		ln.Close() // the rejected listener is not ours to keep bound
		return errors.New("server: already running")
	case stateStopped:
		s.mutex.Unlock()
		ln.Close()
		return errors.New("server: already stopped")
	}
	s.state = stateRunning
	s.ln = ln
	s.mutex.Unlock()

	defer ln.Close()

	log.Info.Printf("server: listening on %v", ln.Addr())

	var sem chan struct{}
	if s.maxConns > 0 {
		sem = make(chan struct{}, s.maxConns)
	}

	for {
		// take a slot before accepting: while the cap is reached
		// the loop waits here, holding no accepted but unserved
		// connection, and a Close unblocks it at the accept call.
		if sem != nil {
			sem <- struct{}{}
		}

		conn, err := ln.Accept()
		if err != nil {
			if sem != nil {
				<-sem
			}

			if s.stopped() {
				return nil
			}

			var ne net.Error
			if errors.As(err, &ne) && ne.Temporary() {
				log.Error.Printf("server: accept: %v", err)
				continue
			}

			s.shutdown()
			return fmt.Errorf("server: accept: %w", err)
		}

		go func(conn *network.Conn) {
			if sem != nil {
				defer func() { <-sem }()
			}
			s.handle(conn)
		}(conn)
	}
}

// Close makes Run return. Connections already being handled are left
// to their handlers.
func (s *Server) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != stateRunning {
		return errors.New("server: not running")
	}
	s.state = stateStopped

	return s.ln.Close()
}

// Addr returns the address the server is bound to, nil when it is not
// running.
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// handle runs the handler over conn and makes sure the connection gets
// closed afterwards, whatever the handler did with it.
func (s *Server) handle(conn *network.Conn) {
	addr := conn.RemoteAddr()
	log.Info.Printf("server: %v connected", addr)
	s.pub(ConnEvent{Event: EventConnected, Addr: addr.String()})

	defer func() {
		conn.Close() // the handler may have disconnected already
		log.Info.Printf("server: %v disconnected", addr)
		s.pub(ConnEvent{Event: EventDisconnected, Addr: addr.String()})
	}()

	s.handler.ServeConn(conn)
}

func (s *Server) pub(ev ConnEvent) {
	if s.PubSub != nil {
		s.PubSub.Pub(ev, TopicConnEvents)
	}
}

func (s *Server) stopped() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.state == stateStopped
}

func (s *Server) shutdown() {
	s.mutex.Lock()
	s.state = stateStopped
	s.mutex.Unlock()
}
