// Package network turns raw byte streams into sequences of whole
// bitsock packets, and wraps the listening and dialing primitives that
// produce such streams.
package network

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/LolzDEV/bitsock/network/packet"
)

// ErrDisconnected is returned by Recv when the peer closed the stream
// cleanly between two frames, and by Send/Recv after a local Close.
var ErrDisconnected = errors.New("network: disconnected")

// Conn manages the serialization and deserialization of one
// established connection between two bitsock peers. A Conn is meant to
// be driven by a single goroutine: reads are not synchronized, only
// sends are.
type Conn struct {
	// Err is filled with the error that made Consume's loop exit.
	Err error

	conn    io.ReadWriteCloser
	addr    net.Addr
	running bool

	mutex  sync.Mutex
	closed bool
	pe     *packet.Encoder
	pd     *packet.Decoder
}

// Open creates a new Conn over an established stream. addr is the
// remote endpoint's identity, kept only as metadata; it may be nil
// when the stream has no meaningful address, e.g. in tests over pipes.
// Usually connections are created using the listener or the dialer.
func Open(conn io.ReadWriteCloser, addr net.Addr) *Conn {
	return &Conn{
		conn: conn,
		addr: addr,
		pe:   packet.NewEncoder(conn),
		pd:   packet.NewDecoder(conn),
	}
}

// Recv blocks until a whole frame is available, then returns the
// decoded packet.
//
// It returns ErrDisconnected when the peer closed cleanly between
// frames or the Conn was closed locally; an error wrapping
// io.ErrUnexpectedEOF when the peer quit mid frame; an error wrapping
// packet.ErrMalformed when the data read cannot belong to the wire
// contract. Everything else is a transport failure.
func (c *Conn) Recv() (*packet.Packet, error) {
	if c.isClosed() {
		return nil, ErrDisconnected
	}

	p := new(packet.Packet)
	if err := c.pd.Decode(p); err != nil {
		if err == io.EOF || c.isClosed() {
			return nil, ErrDisconnected
		}
		return nil, err
	}

	return p, nil
}

// Consume keeps on reading on the connection, sending each decoded
// packet into the returned channel. When the channel gets closed,
// check c.Err; a clean peer close leaves ErrDisconnected there. Only
// one consumer per time is allowed.
func (c *Conn) Consume() (<-chan *packet.Packet, error) {
	if c.running {
		return nil, errors.New("network: conn already being consumed")
	}

	c.running = true
	ch := make(chan *packet.Packet)
	go func() {
		defer func() {
			c.running = false
			close(ch)
		}()

		for {
			p, err := c.Recv()
			if err != nil {
				c.Err = err
				return
			}

			ch <- p
		}
	}()

	return ch, nil
}

// Send encodes p and writes the whole frame to the stream. It is safe
// to call from multiple goroutines: frames never interleave.
func (c *Conn) Send(p *packet.Packet) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.closed {
		return ErrDisconnected
	}

	return c.pe.Encode(p)
}

// Close shuts the stream down for further I/O. Subsequent Send and
// Recv calls fail with ErrDisconnected; closing twice errors too.
func (c *Conn) Close() error {
	c.mutex.Lock()
	if c.closed {
		c.mutex.Unlock()
		return ErrDisconnected
	}
	c.closed = true
	c.mutex.Unlock()

	return c.conn.Close()
}

// RemoteAddr returns the remote endpoint's identity captured when the
// connection was established. It never touches the stream.
func (c *Conn) RemoteAddr() net.Addr {
	return c.addr
}

func (c *Conn) isClosed() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.closed
}
