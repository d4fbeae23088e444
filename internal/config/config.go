// ABOUTME: Daemon configuration with defaults and validation
// ABOUTME: Values come from flags, KASUMIN_* env vars and a TOML file
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Kasumin-Audio/kasumin-go/pkg/protocol"
)

// MaxFrameLimit bounds the configurable frame limit
const MaxFrameLimit = 64 << 20

// Config holds configuration for the kasumin daemon.
type Config struct {
	Address       string
	WebSocketAddr string

	FrameLimit    int
	RequestBuffer int
	WriteTimeout  time.Duration

	CatalogPath string
	LogFile     string
	Debug       bool
	TUI         bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Address:       protocol.DefaultAddress,
		FrameLimit:    int(protocol.DefaultFrameLimit),
		RequestBuffer: 64,
		WriteTimeout:  10 * time.Second,
		LogFile:       "kasumin.log",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}
	if c.WebSocketAddr != "" {
		if _, _, err := net.SplitHostPort(c.WebSocketAddr); err != nil {
			return fmt.Errorf("invalid websocket address %q: %w", c.WebSocketAddr, err)
		}
	}
	if c.FrameLimit <= 0 || c.FrameLimit > MaxFrameLimit {
		return fmt.Errorf("frame limit must be between 1 and %d bytes", MaxFrameLimit)
	}
	if c.RequestBuffer <= 0 {
		return fmt.Errorf("request buffer must be positive")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout must not be negative")
	}
	return nil
}

// configSetter applies values only where the flag was not set explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString is used for environment variables.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
