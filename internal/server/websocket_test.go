// ABOUTME: Tests for the WebSocket gateway
// ABOUTME: Frames travel in binary messages and share the TCP coordinator
package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/gorilla/websocket"
)

func dialGateway(t *testing.T, srv *Server, header http.Header) (*websocket.Conn, error) {
	t.Helper()
	u := url.URL{Scheme: "ws", Host: srv.GatewayAddr().String(), Path: GatewayPath}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	return conn, err
}

func readResponse(t *testing.T, conn *websocket.Conn) protocol.KasuminResponse {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read message: %v", err)
	}
	if kind != websocket.BinaryMessage {
		t.Fatalf("expected binary message, got %d", kind)
	}
	payload, err := protocol.ReadFrame(bytes.NewReader(data), protocol.DefaultFrameLimit)
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	resp, err := protocol.DecodeResponse(payload)
	if err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func sendRequest(t *testing.T, conn *websocket.Conn, kind protocol.RequestKind) {
	t.Helper()

	frame, err := protocol.EncodeRequest(protocol.KasuminRequest{Version: protocol.ProtocolVersion, Message: kind})
	if err != nil {
		t.Fatalf("failed to encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		t.Fatalf("failed to write: %v", err)
	}
}

func TestWebSocketGateway(t *testing.T) {
	srv := startServer(t, Config{WebSocketAddr: "127.0.0.1:0"})
	tcp := connectClient(t, srv, "tcp")

	conn, err := dialGateway(t, srv, nil)
	if err != nil {
		t.Fatalf("failed to dial gateway: %v", err)
	}
	defer conn.Close()

	sendRequest(t, conn, protocol.RequestKind{Connect: &protocol.ConnectRequest{Name: "browser"}})
	resp := readResponse(t, conn)
	if resp.Message.Connect == nil || resp.Message.Connect.UUID == "" {
		t.Fatalf("expected connect response, got %+v", resp.Message)
	}
	waitClients(t, srv, 2)

	sendRequest(t, conn, protocol.RequestKind{Query: &protocol.QueryRequest{Target: protocol.QueryOutputDevices}})
	resp = readResponse(t, conn)
	if !isDevices(resp) {
		t.Fatalf("expected output devices, got %+v", resp.Message)
	}

	// the TCP client sees the same snapshot
	waitFor(t, tcp, isDevices)
}

func TestWebSocketSplitFrame(t *testing.T) {
	srv := startServer(t, Config{WebSocketAddr: "127.0.0.1:0"})

	conn, err := dialGateway(t, srv, nil)
	if err != nil {
		t.Fatalf("failed to dial gateway: %v", err)
	}
	defer conn.Close()

	frame, _ := protocol.EncodeRequest(protocol.KasuminRequest{
		Version: protocol.ProtocolVersion,
		Message: protocol.RequestKind{Connect: &protocol.ConnectRequest{Name: "split"}},
	})
	conn.WriteMessage(websocket.BinaryMessage, frame[:4])
	conn.WriteMessage(websocket.BinaryMessage, frame[4:])

	resp := readResponse(t, conn)
	if resp.Message.Connect == nil {
		t.Errorf("expected connect response, got %+v", resp.Message)
	}
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	srv := startServer(t, Config{WebSocketAddr: "127.0.0.1:0"})

	header := http.Header{}
	header.Set("Origin", "http://example.com")
	if conn, err := dialGateway(t, srv, header); err == nil {
		conn.Close()
		t.Error("expected handshake to fail for a foreign origin")
	}

	header.Set("Origin", "http://localhost:3000")
	conn, err := dialGateway(t, srv, header)
	if err != nil {
		t.Fatalf("expected localhost origin to be accepted: %v", err)
	}
	conn.Close()
}

func TestGatewayRefusesAfterShutdownBegins(t *testing.T) {
	srv, err := New(Config{Backend: testBackend()})
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	if !srv.track() {
		t.Fatal("expected track to succeed before shutdown")
	}
	srv.wg.Done()

	srv.stopTracking()
	if srv.track() {
		srv.wg.Done()
		t.Fatal("track succeeded after shutdown began")
	}

	rec := httptest.NewRecorder()
	srv.gatewayHandler(websocket.Upgrader{})(rec, httptest.NewRequest(http.MethodGet, GatewayPath, nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 after shutdown began, got %d", rec.Code)
	}
	srv.wg.Wait()
}
