package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Address       string `toml:"address"`
	WebSocketAddr string `toml:"websocket_address"`
	FrameLimit    int    `toml:"frame_limit"`
	RequestBuffer int    `toml:"request_buffer"`
	WriteTimeout  string `toml:"write_timeout"`
	Catalog       string `toml:"catalog"`
	LogFile       string `toml:"log_file"`
	Debug         *bool  `toml:"debug"`
	TUI           *bool  `toml:"tui"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.kasumin/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".kasumin", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values for every flag not set explicitly.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("address", fc.Address, &cfg.Address)
	s.setString("websocket", fc.WebSocketAddr, &cfg.WebSocketAddr)
	s.setString("catalog", fc.Catalog, &cfg.CatalogPath)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)

	s.setInt("frame-limit", fc.FrameLimit, &cfg.FrameLimit)
	s.setInt("request-buffer", fc.RequestBuffer, &cfg.RequestBuffer)

	if err := s.setDuration("write-timeout", fc.WriteTimeout, &cfg.WriteTimeout); err != nil {
		return err
	}

	s.setBool("debug", fc.Debug, &cfg.Debug)
	s.setBool("tui", fc.TUI, &cfg.TUI)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
