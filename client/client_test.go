package client_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/LolzDEV/bitsock/client"
	"github.com/LolzDEV/bitsock/network"
	"github.com/LolzDEV/bitsock/network/packet"
)

func TestConnect(t *testing.T) {
	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			t.Error(err)
			return
		}
		defer conn.Close()

		p, err := conn.Recv()
		if err != nil {
			t.Error(err)
			return
		}
		if err := conn.Send(p); err != nil {
			t.Error(err)
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	c, err := client.Connect("127.0.0.1", port)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.RemoteAddr().(*net.TCPAddr).Port != port {
		t.Fatalf("wanted remote port %v, found %v", port, c.RemoteAddr())
	}

	if err := c.Send(packet.U16(77)); err != nil {
		t.Fatal(err)
	}

	p, err := c.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if v, err := p.U16(); err != nil || v != 77 {
		t.Fatalf("wanted U16(77), found %v (%v)", p, err)
	}
}

func TestConnectRefused(t *testing.T) {
	// bind a port, then free it: connecting to it has to fail
	ln, err := network.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := client.ConnectContext(ctx, "127.0.0.1", port); err == nil {
		t.Fatal("connected to a closed port")
	}
}
