package config

import (
	"fmt"
	"os"
	"strings"

	"uptime/pkg/handlers"
)

// ValidateConfig fails fast on settings the listeners cannot run with.
func ValidateConfig(eff EffectiveConfigResult) error {
	cfg := eff.Config
	if cfg == nil {
		return fmt.Errorf("effective config is nil")
	}

	switch cfg.Server.Engine {
	case EngineNetHTTP, EngineFastHTTP:
	default:
		return fmt.Errorf("invalid server.engine %q: want %s or %s", cfg.Server.Engine, EngineNetHTTP, EngineFastHTTP)
	}

	for name, port := range map[string]int{"http_port": cfg.Server.HTTPPort, "https_port": cfg.Server.HTTPSPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid server.%s %d: must be within 0-65535", name, port)
		}
	}

	// TLS cert/key presence check if one is set
	cert := cfg.Server.TLS.CertFile
	key := cfg.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
		if cfg.Server.HTTPPort != 0 && cfg.Server.HTTPPort == cfg.Server.HTTPSPort {
			return fmt.Errorf("server.http_port and server.https_port must differ (both %d)", cfg.Server.HTTPPort)
		}
	}

	if cfg.Server.MaxBodySize < 0 {
		return fmt.Errorf("invalid server.max_body_size: must not be negative")
	}
	if cfg.Dispatch.ReplyTimeout < 0 {
		return fmt.Errorf("invalid dispatch.reply_timeout: must not be negative")
	}
	if cfg.RateLimit.RPS < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("invalid rate_limit: rps and burst must not be negative")
	}

	sink := cfg.Logging.Sink
	if sink != "" && sink != "stdout" && sink != "stderr" && !strings.HasPrefix(sink, "file:") {
		return fmt.Errorf("invalid logging.sink %q: want stdout, stderr or file:/path", sink)
	}

	if _, err := handlers.BuildRegistry(cfg.Routes, cfg.NotFound); err != nil {
		return fmt.Errorf("invalid routes: %w", err)
	}
	return nil
}
