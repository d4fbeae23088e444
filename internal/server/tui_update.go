// ABOUTME: TUI update helpers for server
// ABOUTME: Called from the request loop, which owns the state it reads
package server

import (
	"slices"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	clients := make([]ClientInfo, 0, len(s.sessions))
	for _, c := range s.sessions {
		clients = append(clients, c)
	}
	slices.SortFunc(clients, func(a, b ClientInfo) int { return a.Connected.Compare(b.Connected) })

	nowPlaying := "Nothing"
	if item, ok := s.cursor.Current(); ok && s.playing {
		nowPlaying = trackLabel(item.Track)
	}

	var upcoming []string
	for _, item := range s.cursor.Upcoming(upcomingShown) {
		upcoming = append(upcoming, trackLabel(item.Track))
	}

	artists, _, tracks := s.library.Counts()
	s.tui.Update(ServerStatus{
		Address:    s.listener.Addr().String(),
		Clients:    clients,
		NowPlaying: nowPlaying,
		Upcoming:   upcoming,
		Queued:     s.playlist.Len(),
		Artists:    artists,
		Tracks:     tracks,
	})
}

func trackLabel(t protocol.TrackRef) string {
	if t.Artist == "" {
		return t.Title
	}
	return t.Artist + " - " + t.Title
}
