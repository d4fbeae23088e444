// ABOUTME: TCP client for the Kasumin control protocol
// ABOUTME: Handles connection, handshake, and response routing
package protocol

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrNotConnected is returned when sending on a closed or unconnected client
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned by a second Connect on the same client
	ErrAlreadyConnected = errors.New("already connected")
)

// Config holds client configuration
type Config struct {
	ServerAddr       string
	Name             string
	FrameLimit       uint32
	HandshakeTimeout time.Duration
	Logger           *zerolog.Logger
}

// Client is a connection to a Kasumin server
type Client struct {
	config Config
	log    zerolog.Logger

	mu        sync.Mutex
	conn      net.Conn
	uuid      string
	connected bool
	dialed    bool

	// Responses receives every broadcast snapshot after the handshake.
	// It is closed when the connection ends.
	Responses chan KasuminResponse

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.ServerAddr == "" {
		config.ServerAddr = DefaultAddress
	}
	if config.FrameLimit == 0 {
		config.FrameLimit = DefaultFrameLimit
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 5 * time.Second
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		config:    config,
		log:       logger.With().Str("component", "client").Logger(),
		Responses: make(chan KasuminResponse, 16),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the server and performs the handshake. A client connects
// once; a failed dial may be retried.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	dialed := c.dialed
	c.mu.Unlock()
	if dialed {
		return ErrAlreadyConnected
	}

	c.log.Debug().Str("addr", c.config.ServerAddr).Msg("connecting")

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.config.ServerAddr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	if c.dialed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyConnected
	}
	c.dialed = true
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	reader := bufio.NewReader(conn)
	if err := c.handshake(reader); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages(reader)
	return nil
}

// handshake sends Connect and waits for the assigned uuid
func (c *Client) handshake(reader *bufio.Reader) error {
	if err := c.Send(RequestKind{Connect: &ConnectRequest{Name: c.config.Name}}); err != nil {
		return fmt.Errorf("failed to send connect: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		payload, err := ReadFrame(reader, c.config.FrameLimit)
		if err != nil {
			return fmt.Errorf("failed to read connect response: %w", err)
		}
		resp, err := DecodeResponse(payload)
		if err != nil {
			return err
		}
		if resp.Message.Connect == nil {
			c.log.Debug().Msg("skipping snapshot received before connect response")
			continue
		}

		c.mu.Lock()
		c.uuid = resp.Message.Connect.UUID
		c.mu.Unlock()
		c.log.Info().Str("uuid", resp.Message.Connect.UUID).Msg("handshake complete")
		return nil
	}
}

// UUID returns the session id assigned by the server
func (c *Client) UUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uuid
}

// Send writes one request frame
func (c *Client) Send(kind RequestKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	frame, err := EncodeRequest(KasuminRequest{UUID: c.uuid, Version: ProtocolVersion, Message: kind})
	if err != nil {
		return err
	}
	_, err = c.conn.Write(frame)
	return err
}

// Query asks the server to broadcast one part of its state
func (c *Client) Query(target QueryTarget) error {
	return c.Send(RequestKind{Query: &QueryRequest{Target: target}})
}

// Search asks for the library narrowed to names starting with term
func (c *Client) Search(term string) error {
	return c.Send(RequestKind{Query: &QueryRequest{Target: QueryLibrary, Term: term}})
}

// Lookup asks for the library entries named exactly term
func (c *Client) Lookup(term string) error {
	return c.Send(RequestKind{Query: &QueryRequest{Target: QueryLibrary, Term: term, Exact: true}})
}

// Enqueue inserts a track into the play queue
func (c *Client) Enqueue(position uint32, track TrackRef) error {
	return c.Send(RequestKind{Playlist: &PlaylistRequest{
		Enqueue: &EnqueueRequest{Position: position, Track: track},
	}})
}

// Advance moves now-playing to the next queue entry
func (c *Client) Advance() error {
	return c.Send(RequestKind{Playlist: &PlaylistRequest{Advance: &AdvanceRequest{}}})
}

// readMessages reads and routes incoming snapshots
func (c *Client) readMessages(reader *bufio.Reader) {
	defer close(c.Responses)
	defer c.Close()

	for {
		payload, err := ReadFrame(reader, c.config.FrameLimit)
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				c.log.Debug().Err(err).Msg("read error")
			}
			return
		}

		resp, err := DecodeResponse(payload)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping undecodable response")
			continue
		}

		select {
		case c.Responses <- resp:
		case <-c.ctx.Done():
			return
		}
	}
}

// Close closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		c.connected = false
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
