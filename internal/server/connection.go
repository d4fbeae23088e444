// ABOUTME: Per-client connection actor
// ABOUTME: Handshake, then an inbound decode loop and an outbound broadcast loop
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type connState int

const (
	stateConnecting connState = iota
	stateHandshaking
	stateActive
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateConnecting:
		return "connecting"
	case stateHandshaking:
		return "handshaking"
	case stateActive:
		return "active"
	default:
		return "closed"
	}
}

// writeDeadliner is implemented by streams that support write timeouts
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// connection owns one client stream. The reader belongs to the inbound
// loop and the writer to the handshake, then to the outbound loop.
type connection struct {
	srv    *Server
	stream io.ReadWriteCloser
	remote string
	log    zerolog.Logger

	name  string
	id    string
	state connState

	closeOnce sync.Once
}

func newConnection(srv *Server, stream io.ReadWriteCloser, remote string) *connection {
	return &connection{
		srv:    srv,
		stream: stream,
		remote: remote,
		log:    srv.log.With().Str("remote", remote).Logger(),
	}
}

// serve runs the connection until the client leaves, a loop fails or ctx ends
func (c *connection) serve(ctx context.Context) {
	defer c.close()
	stopOnShutdown := context.AfterFunc(ctx, c.close)
	defer stopOnShutdown()

	reader := bufio.NewReader(c.stream)
	c.state = stateHandshaking

	req, err := c.readRequest(reader)
	if err != nil {
		c.logExit(err)
		return
	}
	if req.Message.Connect == nil {
		c.log.Warn().Msg("first request was not connect, closing")
		return
	}
	if req.Version != protocol.ProtocolVersion {
		c.log.Warn().Uint16("version", req.Version).Uint16("supported", protocol.ProtocolVersion).
			Msg("client protocol version differs")
	}
	c.name = req.Message.Connect.Name

	id, err := c.srv.register(ctx, c.name, c.remote)
	if err != nil {
		return
	}
	c.id = id
	defer c.srv.deregister(id)

	c.log = c.log.With().Str("client", c.name).Str("uuid", c.id).Logger()

	// Subscribe before answering so no snapshot published after the
	// client learns its uuid is missed.
	rx := c.srv.broadcast.Subscribe()

	frame, err := protocol.Encode(protocol.KasuminResponse{
		Message: protocol.ResponseKind{Connect: &protocol.ConnectResponse{UUID: id}},
	})
	if err == nil {
		err = c.write(frame)
	}
	if err != nil {
		c.logExit(c.tag(err))
		return
	}

	c.state = stateActive
	c.log.Info().Msg("client connected")

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, c.close)
	defer stop()

	g.Go(func() error { return c.inbound(gctx, reader) })
	g.Go(func() error { return c.outbound(gctx, rx) })

	err = g.Wait()
	c.state = stateClosed
	c.logExit(err)
}

func (c *connection) readRequest(r io.Reader) (protocol.KasuminRequest, error) {
	payload, err := protocol.ReadFrame(r, c.srv.config.FrameLimit)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return protocol.KasuminRequest{}, errClientClosed
		}
		return protocol.KasuminRequest{}, c.tag(err)
	}
	req, err := protocol.DecodePayload(payload)
	if err != nil {
		return protocol.KasuminRequest{}, c.tag(err)
	}
	return req, nil
}

// inbound decodes frames and forwards them to the coordinator in order
func (c *connection) inbound(ctx context.Context, r io.Reader) error {
	for {
		req, err := c.readRequest(r)
		if err != nil {
			return err
		}
		if req.Message.Connect != nil {
			c.log.Debug().Msg("ignoring connect on an established session")
			continue
		}

		select {
		case c.srv.requests <- requestMsg{id: c.id, req: req}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// outbound writes every snapshot the broadcast publishes
func (c *connection) outbound(ctx context.Context, rx *Receiver[protocol.KasuminResponse]) error {
	for {
		resp, err := rx.Changed(ctx)
		if err != nil {
			return err
		}
		frame, err := protocol.Encode(resp)
		if err != nil {
			return c.tag(err)
		}
		if err := c.write(frame); err != nil {
			return c.tag(err)
		}
	}
}

func (c *connection) write(frame []byte) error {
	if d, ok := c.stream.(writeDeadliner); ok && c.srv.config.WriteTimeout > 0 {
		d.SetWriteDeadline(time.Now().Add(c.srv.config.WriteTimeout))
	}
	_, err := c.stream.Write(frame)
	return err
}

func (c *connection) tag(err error) error {
	return &ServerError{ClientName: c.name, ClientID: c.id, Kind: classify(err), Err: err}
}

func (c *connection) logExit(err error) {
	switch {
	case err == nil, errors.Is(err, errClientClosed):
		c.log.Info().Str("state", c.state.String()).Msg("client disconnected")
	case errors.Is(err, context.Canceled), errors.Is(err, ErrWatchClosed):
		c.log.Debug().Msg("connection closed by shutdown")
	default:
		c.log.Warn().Err(err).Str("state", c.state.String()).Msg("connection failed")
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.stream.Close()
	})
}
