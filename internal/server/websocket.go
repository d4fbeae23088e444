// ABOUTME: WebSocket gateway carrying Kasumin frames in binary messages
// ABOUTME: Each upgraded socket is served by the same connection actor as TCP
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// GatewayPath is the HTTP path of the WebSocket gateway
const GatewayPath = "/kasumin"

func (s *Server) startGateway(errChan chan<- error) error {
	ln, err := net.Listen("tcp", s.config.WebSocketAddr)
	if err != nil {
		return fmt.Errorf("failed to bind gateway %s: %w", s.config.WebSocketAddr, err)
	}

	upgrader := websocket.Upgrader{CheckOrigin: s.checkOrigin}
	mux := http.NewServeMux()
	mux.HandleFunc(GatewayPath, s.gatewayHandler(upgrader))

	s.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	s.gatewayAddr = ln.Addr()
	s.log.Info().Str("addr", ln.Addr().String()).Str("path", GatewayPath).Msg("WebSocket gateway listening")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	return nil
}

// gatewayHandler upgrades and serves one client. Upgraded connections are
// not tracked by http.Server, so they join the server's wait group first.
func (s *Server) gatewayHandler(upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.track() {
			http.Error(w, "server shutting down", http.StatusServiceUnavailable)
			return
		}
		defer s.wg.Done()

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn().Err(err).Msg("WebSocket upgrade error")
			return
		}
		newConnection(s, &wsStream{conn: conn}, r.RemoteAddr).serve(s.ctx)
	}
}

// GatewayAddr returns the WebSocket gateway address, or nil when disabled
func (s *Server) GatewayAddr() net.Addr {
	return s.gatewayAddr
}

// checkOrigin admits non-browser clients and pages served from loopback
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return true
	}
	s.log.Warn().Str("origin", origin).Msg("rejecting WebSocket from non-local origin")
	return false
}

// wsStream presents a WebSocket as a byte stream. Reads concatenate
// binary messages; each Write sends one message.
type wsStream struct {
	conn   *websocket.Conn
	reader io.Reader
}

func (w *wsStream) Read(p []byte) (int, error) {
	for {
		if w.reader == nil {
			kind, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if kind != websocket.BinaryMessage {
				return 0, fmt.Errorf("unexpected WebSocket message type %d", kind)
			}
			w.reader = r
		}

		n, err := w.reader.Read(p)
		if errors.Is(err, io.EOF) {
			w.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) SetWriteDeadline(t time.Time) error {
	return w.conn.SetWriteDeadline(t)
}

func (w *wsStream) Close() error {
	return w.conn.Close()
}
