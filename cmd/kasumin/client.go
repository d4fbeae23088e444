package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Kasumin-Audio/kasumin-go/internal/config"
	"github.com/Kasumin-Audio/kasumin-go/pkg/devices"
	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const clientName = "kasumin-cli"

func newDevicesCmd(o *options) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List output devices and the stream configs they accept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			if local {
				printDevices(os.Stdout, devices.Collect(devices.NewMalgoBackend()))
				return nil
			}
			resp, err := o.request(cmd.Context(), func(c *protocol.Client) error {
				return c.Query(protocol.QueryOutputDevices)
			}, isDevices)
			if err != nil {
				return err
			}
			printDevices(os.Stdout, *resp.OutputDevices)
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "enumerate in-process instead of asking the daemon")
	return cmd
}

func newQueryCmd(o *options) *cobra.Command {
	var (
		term  string
		exact bool
	)

	cmd := &cobra.Command{
		Use:       "query <output_devices|playlist|library>",
		Short:     "Ask the daemon for part of its state",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(protocol.QueryOutputDevices), string(protocol.QueryPlaylist), string(protocol.QueryLibrary)},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			target := protocol.QueryTarget(args[0])

			var match func(*protocol.QueryResponse) bool
			switch target {
			case protocol.QueryOutputDevices:
				match = isDevices
			case protocol.QueryPlaylist:
				match = isPlaylist
			case protocol.QueryLibrary:
				match = isLibrary
			default:
				return fmt.Errorf("unknown query target %q", args[0])
			}

			resp, err := o.request(cmd.Context(), func(c *protocol.Client) error {
				return c.Send(protocol.RequestKind{Query: &protocol.QueryRequest{Target: target, Term: term, Exact: exact}})
			}, match)
			if err != nil {
				return err
			}
			printQuery(os.Stdout, resp)
			return nil
		},
	}
	cmd.Flags().StringVar(&term, "term", "", "library prefix filter")
	cmd.Flags().BoolVar(&exact, "exact", false, "match --term exactly against artist, album and track names")
	return cmd
}

func newEnqueueCmd(o *options) *cobra.Command {
	var (
		position uint32
		track    protocol.TrackRef
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Insert a track into the play queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			if track.Title == "" {
				return fmt.Errorf("--title is required")
			}
			resp, err := o.request(cmd.Context(), func(c *protocol.Client) error {
				return c.Enqueue(position, track)
			}, isPlaylist)
			if err != nil {
				return err
			}
			printPlaylist(os.Stdout, *resp.Playlist)
			return nil
		},
	}

	f := cmd.Flags()
	f.Uint32Var(&position, "position", 0, "queue position, lower plays first")
	f.StringVar(&track.Title, "title", "", "track title")
	f.StringVar(&track.Artist, "artist", "", "track artist")
	f.StringVar(&track.Album, "album", "", "album title")
	f.StringVar(&track.Link, "link", "", "file path or URL of the audio (empty resolves the title from the library)")
	return cmd
}

func newAdvanceCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move now playing to the next queued track",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			resp, err := o.request(cmd.Context(), (*protocol.Client).Advance, isPlaylist)
			if err != nil {
				return err
			}
			printPlaylist(os.Stdout, *resp.Playlist)
			return nil
		},
	}
}

func isDevices(q *protocol.QueryResponse) bool  { return q.OutputDevices != nil }
func isPlaylist(q *protocol.QueryResponse) bool { return q.Playlist != nil }
func isLibrary(q *protocol.QueryResponse) bool  { return q.Library != nil }

// request connects, sends one request and waits for the first snapshot accepted by match
func (o *options) request(ctx context.Context, send func(*protocol.Client) error, match func(*protocol.QueryResponse) bool) (*protocol.QueryResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	log := config.NewLogger(os.Stderr, o.cfg.Debug, true)
	if !o.cfg.Debug {
		log = log.Level(zerolog.WarnLevel)
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr:       o.cfg.Address,
		Name:             clientName,
		FrameLimit:       uint32(o.cfg.FrameLimit),
		HandshakeTimeout: o.timeout,
		Logger:           &log,
	})
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", o.cfg.Address, err)
	}
	defer client.Close()

	if err := send(client); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	for {
		select {
		case resp, ok := <-client.Responses:
			if !ok {
				return nil, fmt.Errorf("server closed the connection")
			}
			if q := resp.Message.Query; q != nil && match(q) {
				return q, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("no response from %s: %w", o.cfg.Address, ctx.Err())
		}
	}
}
