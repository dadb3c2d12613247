package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engines understood by the listeners.
const (
	EngineNetHTTP  = "nethttp"
	EngineFastHTTP = "fasthttp"
)

const (
	defaultAddress         = "0.0.0.0"
	defaultEngine          = EngineNetHTTP
	defaultLogLevel        = "info"
	defaultLogSink         = "stdout"
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 20 * time.Second
	defaultRateTTL         = 10 * time.Minute
)

// Preset holds the ports an environment name selects.
type Preset struct {
	Name      string
	HTTPPort  int
	HTTPSPort int
}

var presets = map[string]Preset{
	"staging":    {Name: "staging", HTTPPort: 3000, HTTPSPort: 3001},
	"production": {Name: "production", HTTPPort: 5000, HTTPSPort: 5001},
}

// DefaultEnv is used when no environment name is given or the name is unknown.
const DefaultEnv = "staging"

// PresetFor returns the preset for name, case-insensitively, falling back to
// staging.
func PresetFor(name string) Preset {
	if p, ok := presets[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return presets[DefaultEnv]
}

// Defaults returns a config populated from the preset for env.
func Defaults(env string) *Config {
	p := PresetFor(env)
	return &Config{
		Env: p.Name,
		Server: ServerConfig{
			Address:         defaultAddress,
			HTTPPort:        p.HTTPPort,
			HTTPSPort:       p.HTTPSPort,
			Engine:          defaultEngine,
			IdleTimeout:     Duration(defaultIdleTimeout),
			ShutdownTimeout: Duration(defaultShutdownTimeout),
		},
		RateLimit: RateLimitConfig{TTL: Duration(defaultRateTTL)},
		Logging:   LoggingConfig{Level: defaultLogLevel, Sink: defaultLogSink},
	}
}

// HTTPAddr returns the plain listener address as host:port.
func (c *Config) HTTPAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.HTTPPort))
}

// HTTPSAddr returns the TLS listener address as host:port.
func (c *Config) HTTPSAddr() string {
	return net.JoinHostPort(c.Server.Address, strconv.Itoa(c.Server.HTTPSPort))
}

// TLSEnabled reports whether certificate material was configured.
func (c *Config) TLSEnabled() bool {
	return c.Server.TLS.CertFile != "" && c.Server.TLS.KeyFile != ""
}

// LoadConfigFile reads and parses a config file.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// ResolveConfigPath returns the config file path, preferring flag, then env.
func ResolveConfigPath(flagPath string, flagSet bool) string {
	if flagSet {
		return flagPath
	}
	if p := os.Getenv("UPTIME_CONFIG"); p != "" {
		return p
	}
	return flagPath
}

// overlay copies every non-zero field of src onto dst.
func overlay(dst, src *Config) {
	if src == nil {
		return
	}
	setStr(&dst.Env, src.Env)
	setStr(&dst.Server.Address, src.Server.Address)
	setInt(&dst.Server.HTTPPort, src.Server.HTTPPort)
	setInt(&dst.Server.HTTPSPort, src.Server.HTTPSPort)
	setStr(&dst.Server.Engine, src.Server.Engine)
	setStr(&dst.Server.TLS.CertFile, src.Server.TLS.CertFile)
	setStr(&dst.Server.TLS.KeyFile, src.Server.TLS.KeyFile)
	if src.Server.MaxBodySize != 0 {
		dst.Server.MaxBodySize = src.Server.MaxBodySize
	}
	setDur(&dst.Server.ReadTimeout, src.Server.ReadTimeout)
	setDur(&dst.Server.WriteTimeout, src.Server.WriteTimeout)
	setDur(&dst.Server.IdleTimeout, src.Server.IdleTimeout)
	setDur(&dst.Server.ShutdownTimeout, src.Server.ShutdownTimeout)
	setDur(&dst.Dispatch.ReplyTimeout, src.Dispatch.ReplyTimeout)
	if src.RateLimit.RPS != 0 {
		dst.RateLimit.RPS = src.RateLimit.RPS
	}
	setInt(&dst.RateLimit.Burst, src.RateLimit.Burst)
	setDur(&dst.RateLimit.TTL, src.RateLimit.TTL)
	setStr(&dst.Logging.Level, src.Logging.Level)
	setStr(&dst.Logging.Sink, src.Logging.Sink)
	setStr(&dst.Metrics.Address, src.Metrics.Address)
	if src.Routes != nil {
		dst.Routes = make(map[string]string, len(src.Routes))
		for k, v := range src.Routes {
			dst.Routes[k] = v
		}
	}
	setStr(&dst.NotFound, src.NotFound)
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDur(dst *Duration, v Duration) {
	if v != 0 {
		*dst = v
	}
}
