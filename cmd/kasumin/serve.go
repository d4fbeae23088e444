package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kasumin-Audio/kasumin-go/internal/config"
	"github.com/Kasumin-Audio/kasumin-go/internal/server"
	"github.com/Kasumin-Audio/kasumin-go/internal/version"
	"github.com/Kasumin-Audio/kasumin-go/pkg/devices"
	"github.com/spf13/cobra"
)

func newServeCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.load(cmd); err != nil {
				return err
			}
			return serve(o.cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.cfg.WebSocketAddr, "websocket", o.cfg.WebSocketAddr, "WebSocket gateway address (empty disables)")
	f.IntVar(&o.cfg.FrameLimit, "frame-limit", o.cfg.FrameLimit, "largest accepted payload in bytes")
	f.IntVar(&o.cfg.RequestBuffer, "request-buffer", o.cfg.RequestBuffer, "coordinator request queue capacity")
	f.DurationVar(&o.cfg.WriteTimeout, "write-timeout", o.cfg.WriteTimeout, "per-frame write deadline (0 disables)")
	f.StringVar(&o.cfg.CatalogPath, "catalog", o.cfg.CatalogPath, "library catalog TOML file")
	f.StringVar(&o.cfg.LogFile, "log-file", o.cfg.LogFile, "log file path (empty logs to stdout only)")
	f.BoolVar(&o.cfg.TUI, "tui", o.cfg.TUI, "show the status dashboard")

	return cmd
}

func serve(cfg config.Config) error {
	var out io.Writer = os.Stdout
	color := true

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		out, color = io.MultiWriter(os.Stdout, f), false
		if cfg.TUI {
			out = f
		}
	} else if cfg.TUI {
		out = io.Discard
	}

	log := config.NewLogger(out, cfg.Debug, color)
	log.Info().Str("version", version.String()).Str("addr", cfg.Address).Msgf("starting %s", version.Product)
	if cfg.LogFile != "" {
		log.Info().Str("path", cfg.LogFile).Msg("logging to file")
	}

	srv, err := server.New(server.Config{
		Address:       cfg.Address,
		WebSocketAddr: cfg.WebSocketAddr,
		FrameLimit:    uint32(cfg.FrameLimit),
		RequestBuffer: cfg.RequestBuffer,
		WriteTimeout:  cfg.WriteTimeout,
		Backend:       devices.NewMalgoBackend(),
		CatalogPath:   cfg.CatalogPath,
		UseTUI:        cfg.TUI,
		Logger:        &log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
