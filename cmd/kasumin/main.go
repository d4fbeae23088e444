// ABOUTME: Entry point for the kasumin daemon and its control client
// ABOUTME: Loads config from file, env and flags, then dispatches subcommands
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Kasumin-Audio/kasumin-go/internal/config"
	"github.com/Kasumin-Audio/kasumin-go/internal/version"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
)

const helpDescription = `
Kasumin is a local music daemon. Clients speak a framed MessagePack
protocol over TCP (or WebSocket) to browse the library, inspect output
devices and manage the play queue.

Configuration is read from $HOME/.kasumin/config.toml, then KASUMIN_*
environment variables, then flags. Later sources win.
`

var exampleUsage = strings.TrimSpace(`
  kasumin serve --catalog ~/Music/catalog.toml --tui
  kasumin devices --local
  kasumin query library --term per
  kasumin enqueue --title Polyrhythm --artist Perfume --album GAME
`)

// options is shared by every subcommand
type options struct {
	cfg     config.Config
	cfgPath string
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{cfg: config.DefaultConfig()}

	root := &cobra.Command{
		Use:          "kasumin",
		Short:        "Local music daemon and control client",
		Long:         version.Product + " " + version.Version + "\n\n" + strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      version.String(),
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgPath, "config", "", "config file (default $HOME/.kasumin/config.toml)")
	pf.StringVar(&o.cfg.Address, "address", o.cfg.Address, "control protocol address")
	pf.BoolVar(&o.cfg.Debug, "debug", o.cfg.Debug, "enable debug logging")
	pf.DurationVar(&o.timeout, "timeout", 5*time.Second, "client wait for a server response")

	root.AddCommand(
		newServeCmd(o),
		newDevicesCmd(o),
		newQueryCmd(o),
		newEnqueueCmd(o),
		newAdvanceCmd(o),
	)
	return root
}

// load applies the config file and environment beneath explicit flags, then validates
func (o *options) load(cmd *cobra.Command) error {
	cfgFile := o.cfgPath
	if cfgFile == "" {
		cfgFile = config.DefaultConfigPath()
	} else if !config.FileExists(cfgFile) {
		return fmt.Errorf("config file %s not found", cfgFile)
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFileConfig(&o.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := config.ApplyEnvConfig(&o.cfg, changed); err != nil {
		return err
	}
	return o.cfg.Validate()
}
