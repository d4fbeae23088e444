package config

import "os"

// ApplyEnvConfig applies KASUMIN_* environment variables for every flag not set explicitly.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("address", os.Getenv("KASUMIN_ADDRESS"), &cfg.Address)
	s.setString("websocket", os.Getenv("KASUMIN_WEBSOCKET_ADDRESS"), &cfg.WebSocketAddr)
	s.setString("catalog", os.Getenv("KASUMIN_CATALOG"), &cfg.CatalogPath)
	s.setString("log-file", os.Getenv("KASUMIN_LOG_FILE"), &cfg.LogFile)

	if err := s.setIntFromString("frame-limit", os.Getenv("KASUMIN_FRAME_LIMIT"), &cfg.FrameLimit); err != nil {
		return err
	}
	if err := s.setIntFromString("request-buffer", os.Getenv("KASUMIN_REQUEST_BUFFER"), &cfg.RequestBuffer); err != nil {
		return err
	}
	if err := s.setDuration("write-timeout", os.Getenv("KASUMIN_WRITE_TIMEOUT"), &cfg.WriteTimeout); err != nil {
		return err
	}

	s.setBoolFromString("debug", os.Getenv("KASUMIN_DEBUG"), &cfg.Debug)
	s.setBoolFromString("tui", os.Getenv("KASUMIN_TUI"), &cfg.TUI)

	return nil
}
