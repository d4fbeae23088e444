package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func printQuery(w io.Writer, q *protocol.QueryResponse) {
	switch {
	case q.OutputDevices != nil:
		printDevices(w, *q.OutputDevices)
	case q.Playlist != nil:
		printPlaylist(w, *q.Playlist)
	case q.Library != nil:
		printLibrary(w, *q.Library)
	}
}

func printDevices(w io.Writer, resp protocol.OutputDevicesResponse) {
	fmt.Fprintln(w, headingStyle.Render("Output devices"))
	if len(resp.Devices) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  none"))
	}
	for _, d := range resp.Devices {
		name := d.Device
		if d.Default {
			name += " " + currentStyle.Render("(default)")
		}
		fmt.Fprintf(w, "  %s %s\n", name, dimStyle.Render("via "+d.Host))
		for _, c := range d.StreamConfigs {
			fmt.Fprintf(w, "    %s\n", formatConfig(c))
		}
	}
	if len(resp.Errors) > 0 {
		fmt.Fprintln(w, headingStyle.Render("Errors"))
		for _, e := range resp.Errors {
			fmt.Fprintf(w, "  %s\n", errorStyle.Render(e.Message))
		}
	}
}

func formatConfig(c protocol.SupportedDeviceConfig) string {
	rate := fmt.Sprintf("%d Hz", c.MinSampleRate)
	if c.MaxSampleRate != c.MinSampleRate {
		rate = fmt.Sprintf("%d-%d Hz", c.MinSampleRate, c.MaxSampleRate)
	}
	s := fmt.Sprintf("%dch %s %s", c.Channels, c.SampleFormat, rate)
	if c.BufferSize != nil {
		s += fmt.Sprintf(" buffer %d-%d", c.BufferSize.Min, c.BufferSize.Max)
	}
	return s
}

func printPlaylist(w io.Writer, resp protocol.PlaylistResponse) {
	fmt.Fprintln(w, headingStyle.Render("Playlist"))
	if len(resp.Entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  empty"))
		return
	}
	for i, e := range resp.Entries {
		line := fmt.Sprintf("%3d  %s", e.Position, formatTrack(e.Track))
		if resp.Current != nil && int(*resp.Current) == i {
			fmt.Fprintf(w, "> %s\n", currentStyle.Render(line))
			continue
		}
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func printLibrary(w io.Writer, resp protocol.LibraryResponse) {
	fmt.Fprintln(w, headingStyle.Render("Library"))
	if len(resp.Artists) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  no matches"))
	}
	for _, a := range resp.Artists {
		fmt.Fprintf(w, "  %s\n", a.Name)
		for _, al := range a.Albums {
			title := al.Title
			if al.Date != "" {
				title += dimStyle.Render(" (" + al.Date + ")")
			}
			fmt.Fprintf(w, "    %s\n", title)
			for _, t := range al.Tracks {
				fmt.Fprintf(w, "      %s\n", t.Title)
			}
		}
	}
}

func formatTrack(t protocol.TrackRef) string {
	parts := []string{t.Title}
	if t.Artist != "" {
		parts = append(parts, t.Artist)
	}
	if t.Album != "" {
		parts = append(parts, t.Album)
	}
	return strings.Join(parts, " - ")
}
