// ABOUTME: Kasumin server coordinator
// ABOUTME: Accepts clients and owns all shared state on a single request loop
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Kasumin-Audio/kasumin-go/pkg/devices"
	"github.com/Kasumin-Audio/kasumin-go/pkg/library"
	"github.com/Kasumin-Audio/kasumin-go/pkg/playlist"
	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds server configuration
type Config struct {
	Address       string
	WebSocketAddr string // empty disables the WebSocket gateway
	FrameLimit    uint32
	RequestBuffer int
	WriteTimeout  time.Duration
	Backend       devices.Backend
	CatalogPath   string // empty starts with an empty library
	UseTUI        bool
	Logger        *zerolog.Logger
}

// ClientInfo describes a registered session
type ClientInfo struct {
	Name      string
	ID        string
	Remote    string
	Connected time.Time
}

// Server is the coordinator. Sessions, the playlist and the library are
// touched only by the request loop.
type Server struct {
	config Config
	log    zerolog.Logger
	newID  func() string

	listener    net.Listener
	httpServer  *http.Server
	gatewayAddr net.Addr
	requests    chan message
	broadcast   *Watch[protocol.KasuminResponse]
	ready       chan struct{}
	tui         *ServerTUI

	// request loop state
	sessions map[string]ClientInfo
	playlist *playlist.Playlist
	cursor   *playlist.Cursor
	lastSeq  uint64
	playing  bool
	library  *library.Library

	ctx      context.Context
	cancel   context.CancelFunc
	trackMu  sync.Mutex
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type message interface{}

type connectMsg struct {
	name   string
	remote string
	reply  chan string
}

type requestMsg struct {
	id  string
	req protocol.KasuminRequest
}

type disconnectMsg struct {
	id string
}

type clientsMsg struct {
	reply chan []ClientInfo
}

type libraryMsg struct {
	lib *library.Library
}

// New creates a server, filling in defaults
func New(config Config) (*Server, error) {
	if config.Address == "" {
		config.Address = protocol.DefaultAddress
	}
	if config.FrameLimit == 0 {
		config.FrameLimit = protocol.DefaultFrameLimit
	}
	if config.RequestBuffer <= 0 {
		config.RequestBuffer = 64
	}
	if config.Backend == nil {
		return nil, fmt.Errorf("device backend is required")
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	pl := playlist.New()

	return &Server{
		config:    config,
		log:       logger,
		newID:     uuid.NewString,
		requests:  make(chan message, config.RequestBuffer),
		broadcast: NewWatch(protocol.Ready()),
		ready:     make(chan struct{}),
		sessions:  make(map[string]ClientInfo),
		playlist:  pl,
		cursor:    playlist.NewCursor(pl.Snapshot()),
		library:   library.New(nil),
		ctx:       ctx,
		cancel:    cancel,
		stopChan:  make(chan struct{}),
	}, nil
}

// Start runs the server and blocks until Stop, a TUI quit or an accept failure
func (s *Server) Start() error {
	select {
	case <-s.stopChan:
		return ErrServerClosed
	default:
	}

	s.lookupHost()

	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.config.Address, err)
	}
	s.listener = ln
	s.log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	if s.config.CatalogPath != "" {
		s.loadCatalog()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			newCatalogWatcher(s).Run(s.ctx)
		}()
	}

	if s.config.UseTUI {
		s.tui = NewServerTUI()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Address); err != nil {
				s.log.Error().Err(err).Msg("TUI failed")
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run()
	}()

	errChan := make(chan error, 2)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ln); err != nil {
			errChan <- err
		}
	}()

	if s.config.WebSocketAddr != "" {
		if err := s.startGateway(errChan); err != nil {
			s.shutdown()
			return err
		}
	}

	close(s.ready)

	var tuiQuit <-chan struct{}
	if s.tui != nil {
		tuiQuit = s.tui.QuitChan()
	}

	var serverErr error
	select {
	case <-s.stopChan:
		s.log.Info().Msg("server shutting down")
	case <-tuiQuit:
		s.log.Info().Msg("TUI quit requested, shutting down")
	case serverErr = <-errChan:
		s.log.Error().Err(serverErr).Msg("listener failed")
	}

	s.shutdown()
	if serverErr != nil {
		return fmt.Errorf("server failed: %w", serverErr)
	}
	return nil
}

func (s *Server) shutdown() {
	s.stopTracking()
	s.listener.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("gateway shutdown error")
		}
	}
	if s.tui != nil {
		s.tui.Stop()
	}
	s.broadcast.Close()

	s.wg.Wait()
	s.log.Info().Msg("server stopped cleanly")
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Ready is closed once the listener is bound
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address. Valid after Ready.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Clients returns the registered sessions sorted by name
func (s *Server) Clients() []ClientInfo {
	reply := make(chan []ClientInfo, 1)
	select {
	case s.requests <- clientsMsg{reply: reply}:
	case <-s.ctx.Done():
		return nil
	}
	select {
	case clients := <-reply:
		return clients
	case <-s.ctx.Done():
		return nil
	}
}

// lookupHost logs what the bind address resolves to. Failures are not fatal.
func (s *Server) lookupHost() {
	host, _, err := net.SplitHostPort(s.config.Address)
	if err != nil {
		s.log.Warn().Err(err).Str("addr", s.config.Address).Msg("could not split address")
		return
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		s.log.Warn().Err(err).Str("host", host).Msg("lookup failed")
		return
	}
	s.log.Debug().Strs("resolved", addrs).Str("host", host).Msg("bind address resolved")
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return nil
			default:
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return err
		}

		if !s.track() {
			conn.Close()
			return nil
		}
		go func() {
			defer s.wg.Done()
			newConnection(s, conn, conn.RemoteAddr().String()).serve(s.ctx)
		}()
	}
}

// track adds a connection goroutine to the wait group unless shutdown has
// begun. The caller must call s.wg.Done when it returns true.
func (s *Server) track() bool {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

// stopTracking cancels the server context so no later track succeeds
func (s *Server) stopTracking() {
	s.trackMu.Lock()
	defer s.trackMu.Unlock()
	s.cancel()
}

// register asks the request loop for a fresh session id
func (s *Server) register(ctx context.Context, name, remote string) (string, error) {
	reply := make(chan string, 1)
	select {
	case s.requests <- connectMsg{name: name, remote: remote, reply: reply}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case id := <-reply:
		return id, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Server) deregister(id string) {
	select {
	case s.requests <- disconnectMsg{id: id}:
	case <-s.ctx.Done():
	}
}

// run is the single writer of all coordinator state
func (s *Server) run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.requests:
			s.handle(msg)
		}
	}
}

func (s *Server) handle(msg message) {
	switch m := msg.(type) {
	case connectMsg:
		id := s.sessionID()
		s.sessions[id] = ClientInfo{Name: m.name, ID: id, Remote: m.remote, Connected: time.Now()}
		m.reply <- id
		s.log.Debug().Str("client", m.name).Str("uuid", id).Int("sessions", len(s.sessions)).Msg("session registered")
		s.updateTUI()

	case disconnectMsg:
		delete(s.sessions, m.id)
		s.updateTUI()

	case requestMsg:
		if _, ok := s.sessions[m.id]; !ok {
			s.log.Warn().Str("uuid", m.id).Msg("request from unknown session")
			return
		}
		if m.req.UUID != "" && m.req.UUID != m.id {
			s.log.Debug().Str("uuid", m.id).Str("claimed", m.req.UUID).Msg("request carries a different uuid")
		}
		s.handleRequest(m.req)

	case clientsMsg:
		clients := make([]ClientInfo, 0, len(s.sessions))
		for _, c := range s.sessions {
			clients = append(clients, c)
		}
		slices.SortFunc(clients, func(a, b ClientInfo) int {
			if c := strings.Compare(a.Name, b.Name); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})
		m.reply <- clients

	case libraryMsg:
		s.library = m.lib
		artists, albums, tracks := m.lib.Counts()
		s.log.Info().Int("artists", artists).Int("albums", albums).Int("tracks", tracks).Msg("library loaded")
		s.updateTUI()
	}
}

// sessionID returns an id no active session holds
func (s *Server) sessionID() string {
	for {
		id := s.newID()
		if _, taken := s.sessions[id]; !taken {
			return id
		}
	}
}

func (s *Server) handleRequest(req protocol.KasuminRequest) {
	switch {
	case req.Message.Query != nil:
		s.handleQuery(req.Message.Query)
	case req.Message.Playlist != nil:
		s.handlePlaylist(req.Message.Playlist)
	}
}

func (s *Server) handleQuery(q *protocol.QueryRequest) {
	var resp protocol.QueryResponse
	switch q.Target {
	case protocol.QueryOutputDevices:
		devs := devices.Collect(s.config.Backend)
		for _, f := range devs.Errors {
			s.log.Warn().Str("host", f.Host).Str("device", f.Device).Str("error", f.Message).Msg("device enumeration failed")
		}
		resp.OutputDevices = &devs
	case protocol.QueryPlaylist:
		resp.Playlist = s.playlistResponse()
	case protocol.QueryLibrary:
		if q.Exact {
			resp.Library = &protocol.LibraryResponse{Artists: s.library.Lookup(q.Term)}
		} else {
			resp.Library = &protocol.LibraryResponse{Artists: s.library.View(q.Term)}
		}
	}
	s.publish(resp)
}

func (s *Server) handlePlaylist(p *protocol.PlaylistRequest) {
	switch {
	case p.Enqueue != nil:
		track := p.Enqueue.Track
		if track.Link == "" {
			if resolved, ok := s.library.Resolve(track); ok {
				track = resolved
			} else {
				s.log.Debug().Str("title", track.Title).Msg("track not resolved from library")
			}
		}
		s.playlist.Insert(playlist.Item{Position: p.Enqueue.Position, Track: track})
		s.cursor = playlist.NewCursor(s.playlist.Snapshot())
		if s.lastSeq != 0 {
			s.cursor.Seek(s.lastSeq)
		}
	case p.Advance != nil:
		item, ok := s.cursor.Next()
		s.playing = ok
		if ok {
			s.lastSeq = item.Seq()
			s.log.Info().Str("title", item.Track.Title).Str("artist", item.Track.Artist).Msg("now playing")
		}
	}
	s.publish(protocol.QueryResponse{Playlist: s.playlistResponse()})
}

func (s *Server) playlistResponse() *protocol.PlaylistResponse {
	resp := &protocol.PlaylistResponse{Entries: playlist.Entries(s.playlist.Snapshot())}
	if s.playing {
		if i := s.cursor.Index(); i >= 0 {
			current := uint32(i)
			resp.Current = &current
		}
	}
	return resp
}

func (s *Server) publish(q protocol.QueryResponse) {
	s.broadcast.Publish(protocol.KasuminResponse{Message: protocol.ResponseKind{Query: &q}})
	s.updateTUI()
}

func (s *Server) loadCatalog() {
	artists, err := library.LoadCatalog(s.config.CatalogPath)
	if err != nil {
		s.log.Warn().Err(err).Str("path", s.config.CatalogPath).Msg("catalog not loaded")
		return
	}
	select {
	case s.requests <- libraryMsg{lib: library.New(artists)}:
	case <-s.ctx.Done():
	}
}
