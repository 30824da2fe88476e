package server_test

import (
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/LolzDEV/bitsock/client"
	"github.com/LolzDEV/bitsock/network"
	"github.com/LolzDEV/bitsock/network/packet"
	"github.com/LolzDEV/bitsock/server"
)

func TestBuild(t *testing.T) {
	handler := server.HandlerFunc(func(conn *network.Conn) {})

	if _, err := server.NewBuilder().Port(4444).Build(); err == nil {
		t.Fatal("built a server without a handler")
	}
	if _, err := server.NewBuilder().Handler(handler).Build(); err == nil {
		t.Fatal("built a server without a port")
	}
	if _, err := server.NewBuilder().Port(70000).Handler(handler).Build(); err == nil {
		t.Fatal("built a server with an out of range port")
	}
	if _, err := server.NewBuilder().Port(4444).Handler(handler).Build(); err != nil {
		t.Fatal(err)
	}
}

// serve builds a server around handler and serves it on an ephemeral
// local port, returning the server and the port to connect to.
func serve(t *testing.T, handler func(conn *network.Conn)) (*server.Server, int) {
	t.Helper()

	srv, err := server.NewBuilder().
		Address("127.0.0.1").
		Port(0).
		HandlerFunc(handler).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil {
			t.Error(err)
		}
	}()
	t.Cleanup(func() { srv.Close() })

	return srv, ln.Addr().(*net.TCPAddr).Port
}

func TestHelloThere(t *testing.T) {
	_, port := serve(t, func(conn *network.Conn) {
		for {
			p, err := conn.Recv()
			if err != nil {
				return
			}

			if v, err := p.I32(); err != nil || v != 5 {
				t.Errorf("wanted I32(5), found %v (%v)", p, err)
				return
			}

			reply, err := packet.String("Hello There!")
			if err != nil {
				t.Error(err)
				return
			}
			if err := conn.Send(reply); err != nil {
				return
			}
		}
	})

	c, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if err := c.Send(packet.I32(5)); err != nil {
		t.Fatal(err)
	}

	p, err := c.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if s, err := p.Text(); err != nil || s != "Hello There!" {
		t.Fatalf("wanted String(\"Hello There!\"), found %v (%v)", p, err)
	}
}

func TestHandlerSeesDisconnect(t *testing.T) {
	done := make(chan error, 2)
	_, port := serve(t, func(conn *network.Conn) {
		_, err := conn.Recv()
		done <- err
	})

	c, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != network.ErrDisconnected {
			t.Fatalf("wanted disconnected, found %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: handler did not exit")
	}

	// the accept loop has to survive the disconnection
	c2, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	c2.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: second handler did not exit")
	}
}

func TestConcurrentClients(t *testing.T) {
	// echo each custom packet back untouched
	_, port := serve(t, func(conn *network.Conn) {
		for {
			p, err := conn.Recv()
			if err != nil {
				return
			}
			if err := conn.Send(p); err != nil {
				return
			}
		}
	})

	const rounds = 20
	errc := make(chan error, 2)

	run := func(id uint32) {
		c, err := client.Connect("127.0.0.1", port)
		if err != nil {
			errc <- err
			return
		}
		defer c.Close()

		for i := 0; i < rounds; i++ {
			payload := []byte{byte(id), byte(i)}
			if err := c.Send(packet.Custom(id, payload)); err != nil {
				errc <- err
				return
			}

			p, err := c.Recv()
			if err != nil {
				errc <- err
				return
			}

			gotID, gotPayload, err := p.Custom()
			if err != nil {
				errc <- err
				return
			}
			if gotID != id || len(gotPayload) != 2 || gotPayload[1] != byte(i) {
				errc <- fmt.Errorf("client %v: got foreign packet %v", id, p)
				return
			}
		}

		errc <- nil
	}

	go run(1)
	go run(2)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			if err != nil {
				t.Fatal(err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timeout: clients did not finish")
		}
	}
}

func TestConnEvents(t *testing.T) {
	srv, port := serve(t, func(conn *network.Conn) {
		conn.Recv()
	})

	events := make(chan server.ConnEvent, 4)
	cancel, err := srv.PubSub.Sub(server.TopicConnEvents, func(m interface{}) {
		if ev, ok := m.(server.ConnEvent); ok {
			events <- ev
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cancel()

	c, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}

	waitEvent := func(want server.Event) {
		select {
		case ev := <-events:
			if ev.Event != want {
				t.Fatalf("wanted %v, found %v", want, ev.Event)
			}
			if ev.Addr == "" {
				t.Fatal("event with empty address")
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout: no %v event", want)
		}
	}

	waitEvent(server.EventConnected)
	c.Close()
	waitEvent(server.EventDisconnected)
}

func TestMaxConns(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0
	release := make(chan struct{})
	started := make(chan struct{}, 4)

	srv, err := server.NewBuilder().
		Address("127.0.0.1").
		Port(0).
		MaxConns(1).
		HandlerFunc(func(conn *network.Conn) {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			started <- struct{}{}
			<-release

			mu.Lock()
			active--
			mu.Unlock()
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	port := ln.Addr().(*net.TCPAddr).Port

	c1, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: first handler did not start")
	}

	// the cap is reached: connecting succeeds (TCP backlog), but no
	// second handler may run
	c2, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	select {
	case <-started:
		t.Fatal("second handler ran while the cap was reached")
	case <-time.After(200 * time.Millisecond):
	}

	// freeing the first slot lets the waiting connection in
	release <- struct{}{}
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: second handler did not start")
	}

	close(release)

	mu.Lock()
	defer mu.Unlock()
	if peak != 1 {
		t.Fatalf("wanted at most 1 concurrent handler, found %v", peak)
	}
}

func TestCloseWhileAtCap(t *testing.T) {
	release := make(chan struct{})
	served := make(chan struct{}, 2)

	srv, err := server.NewBuilder().
		Address("127.0.0.1").
		Port(0).
		MaxConns(1).
		HandlerFunc(func(conn *network.Conn) {
			served <- struct{}{}
			<-release
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	port := ln.Addr().(*net.TCPAddr).Port

	c1, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c1.Close()

	select {
	case <-served:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: first handler did not start")
	}

	// this connection waits in the backlog, never accepted while the
	// cap is reached
	c2, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()

	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
	close(release)

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve returned %v after a clean close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: serve did not return")
	}

	select {
	case <-served:
		t.Fatal("served a connection after close")
	default:
	}
}

func TestServeRejectClosesListener(t *testing.T) {
	srv, err := server.NewBuilder().
		Address("127.0.0.1").
		Port(0).
		HandlerFunc(func(conn *network.Conn) {}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	for srv.Addr() == nil {
		time.Sleep(10 * time.Millisecond)
	}

	// a running server refuses a second listener without leaking it
	ln2, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(ln2); err == nil {
		t.Fatal("served two listeners at once")
	}
	if _, err := ln2.Accept(); err == nil {
		t.Fatal("rejected listener left open")
	}

	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}
	if err := <-errc; err != nil {
		t.Fatal(err)
	}

	// same for a stopped server
	ln3, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Serve(ln3); err == nil {
		t.Fatal("served again after being stopped")
	}
	if _, err := ln3.Accept(); err == nil {
		t.Fatal("rejected listener left open")
	}
}

func TestCloseStopsServe(t *testing.T) {
	srv, err := server.NewBuilder().
		Address("127.0.0.1").
		Port(0).
		HandlerFunc(func(conn *network.Conn) {}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	// wait for the serve loop to take over
	for srv.Addr() == nil {
		time.Sleep(10 * time.Millisecond)
	}

	if err := srv.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("serve returned %v after a clean close", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout: serve did not return")
	}

	// a stopped server does not run again
	if err := srv.Serve(ln); err == nil {
		t.Fatal("served again after being stopped")
	}
}
