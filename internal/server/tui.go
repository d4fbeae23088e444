// ABOUTME: Status dashboard for the daemon
// ABOUTME: Shows sessions, the play queue and library size using bubbletea
package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// upcomingShown caps the queue preview
const upcomingShown = 5

// ServerTUI runs the dashboard and feeds it snapshots from the request loop
type ServerTUI struct {
	mu      sync.Mutex
	program *tea.Program

	updates  chan ServerStatus
	quitChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// ServerStatus is one dashboard snapshot
type ServerStatus struct {
	Address    string
	Clients    []ClientInfo
	NowPlaying string
	Upcoming   []string
	Queued     int
	Artists    int
	Tracks     int
}

type dashboard struct {
	status  ServerStatus
	started time.Time
	width   int
	closing bool
	quit    chan struct{}
}

type tickMsg time.Time
type statusMsg ServerStatus

func (d dashboard) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (d dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.closing = true
			select {
			case d.quit <- struct{}{}:
			default:
			}
			return d, tea.Quit
		}
	case tea.WindowSizeMsg:
		d.width = msg.Width
	case tickMsg:
		return d, tick()
	case statusMsg:
		d.status = ServerStatus(msg)
	}
	return d, nil
}

var (
	brandStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Width(10)
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	hintStyle    = lipgloss.NewStyle().Faint(true)
)

func (d dashboard) View() string {
	if d.closing {
		return "Stopping kasumin...\n"
	}

	var b strings.Builder
	b.WriteString(brandStyle.Render("Kasumin"))
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(d.clip(value)))
		b.WriteString("\n")
	}
	row("Address", d.status.Address)
	row("Uptime", time.Since(d.started).Round(time.Second).String())
	row("Library", fmt.Sprintf("%d artists, %d track titles", d.status.Artists, d.status.Tracks))
	row("Playing", d.status.NowPlaying)

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Queue (%d)", d.status.Queued)))
	b.WriteString("\n")
	if len(d.status.Upcoming) == 0 {
		b.WriteString(valueStyle.Render("  nothing up next"))
		b.WriteString("\n")
	}
	for i, title := range d.status.Upcoming {
		b.WriteString(valueStyle.Render(d.clip(fmt.Sprintf("  %d. %s", i+1, title))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Sessions (%d)", len(d.status.Clients))))
	b.WriteString("\n")
	if len(d.status.Clients) == 0 {
		b.WriteString(valueStyle.Render("  none"))
		b.WriteString("\n")
	}
	for _, c := range d.status.Clients {
		line := fmt.Sprintf("  %s  %s  %s", c.Name, c.ID, c.Remote)
		b.WriteString(valueStyle.Render(d.clip(line)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle.Render("q quits"))
	return b.String()
}

// clip trims s to the terminal width once it is known
func (d dashboard) clip(s string) string {
	if d.width <= 0 || len(s) <= d.width {
		return s
	}
	if d.width < 4 {
		return s[:d.width]
	}
	return s[:d.width-3] + "..."
}

// NewServerTUI creates a dashboard that has not started yet
func NewServerTUI() *ServerTUI {
	return &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start runs the dashboard until it quits or Stop is called
func (t *ServerTUI) Start(address string) error {
	p := tea.NewProgram(dashboard{
		status:  ServerStatus{Address: address, NowPlaying: "Nothing"},
		started: time.Now(),
		quit:    t.quitChan,
	}, tea.WithAltScreen())

	t.mu.Lock()
	select {
	case <-t.done:
		t.mu.Unlock()
		return nil
	default:
	}
	t.program = p
	t.mu.Unlock()

	go func() {
		for {
			select {
			case status := <-t.updates:
				p.Send(statusMsg(status))
			case <-t.done:
				return
			}
		}
	}()

	_, err := p.Run()
	return err
}

// Update queues a snapshot, dropping it if the dashboard is behind
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop quits the dashboard
func (t *ServerTUI) Stop() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		close(t.done)
		if t.program != nil {
			t.program.Quit()
		}
	})
}

// QuitChan signals when the user asked to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
