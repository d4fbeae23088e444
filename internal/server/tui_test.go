package server

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestDashboardView(t *testing.T) {
	d := dashboard{started: time.Now(), quit: make(chan struct{}, 1)}
	m, _ := d.Update(statusMsg(ServerStatus{
		Address:    "127.0.0.1:6666",
		NowPlaying: "Perfume - Polyrhythm",
		Upcoming:   []string{"Perfume - Chocolate Disco"},
		Queued:     2,
		Clients:    []ClientInfo{{Name: "phone", ID: "abc", Remote: "127.0.0.1:50000"}},
	}))

	view := m.View()
	for _, want := range []string{"127.0.0.1:6666", "Perfume - Polyrhythm", "1. Perfume - Chocolate Disco", "Queue (2)", "Sessions (1)", "phone"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestDashboardQuitSignals(t *testing.T) {
	quit := make(chan struct{}, 1)
	d := dashboard{started: time.Now(), quit: quit}

	m, cmd := d.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	select {
	case <-quit:
	default:
		t.Fatal("quit was not signalled")
	}
	if !strings.Contains(m.View(), "Stopping") {
		t.Errorf("unexpected view after quit: %q", m.View())
	}
}

func TestDashboardClip(t *testing.T) {
	tests := []struct {
		width int
		in    string
		want  string
	}{
		{0, "unbounded line", "unbounded line"},
		{20, "short", "short"},
		{8, "a rather long line", "a rat..."},
		{3, "abcdef", "abc"},
	}
	for _, tt := range tests {
		if got := (dashboard{width: tt.width}).clip(tt.in); got != tt.want {
			t.Errorf("clip(%d, %q) = %q, want %q", tt.width, tt.in, got, tt.want)
		}
	}
}

func TestServerTUIStopBeforeStart(t *testing.T) {
	tui := NewServerTUI()
	tui.Stop()
	tui.Stop()
	if err := tui.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start after stop should return immediately, got %v", err)
	}
}
