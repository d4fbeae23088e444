// ABOUTME: Tests for the protocol client
// ABOUTME: Uses a one-connection loopback server that answers the handshake
package protocol

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

// handshakeServer accepts one connection, answers Connect and returns the conn
func handshakeServer(t *testing.T) (addr string, accepted <-chan net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		payload, err := ReadFrame(bufio.NewReader(conn), DefaultFrameLimit)
		if err != nil {
			conn.Close()
			return
		}
		if req, err := DecodePayload(payload); err != nil || req.Message.Connect == nil {
			conn.Close()
			return
		}
		frame, _ := Encode(KasuminResponse{Message: ResponseKind{Connect: &ConnectResponse{UUID: "session-1"}}})
		conn.Write(frame)
		ch <- conn
	}()
	return ln.Addr().String(), ch
}

func TestClientConnectOnlyOnce(t *testing.T) {
	addr, accepted := handshakeServer(t)

	client := NewClient(Config{ServerAddr: addr, Name: "once"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	if client.UUID() != "session-1" {
		t.Errorf("expected uuid session-1, got %q", client.UUID())
	}
	if err := client.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}

	var server net.Conn
	select {
	case server = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted")
	}
	server.Close()

	select {
	case _, ok := <-client.Responses:
		if ok {
			t.Fatal("expected Responses to close after the server hung up")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Responses was not closed")
	}

	if client.IsConnected() {
		t.Error("client still reports connected")
	}
	if err := client.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected after close, got %v", err)
	}
}

func TestClientDialFailureCanRetry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(Config{ServerAddr: addr, Name: "retry"})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err == nil || errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected a dial error, got %v", err)
	}
	if err := client.Send(RequestKind{Query: &QueryRequest{Target: QueryPlaylist}}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}
