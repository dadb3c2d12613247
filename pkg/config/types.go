package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	// Routes maps a request path to a built-in handler name.
	Routes   map[string]string `yaml:"routes"`
	NotFound string            `yaml:"not_found"`
}

// ServerConfig holds listener and tls settings.
type ServerConfig struct {
	Address   string    `yaml:"address"`
	HTTPPort  int       `yaml:"http_port"`
	HTTPSPort int       `yaml:"https_port"`
	Engine    string    `yaml:"engine"` // "nethttp" or "fasthttp"
	TLS       TLSConfig `yaml:"tls"`
	// MaxBodySize caps request bodies; zero leaves them unbounded.
	MaxBodySize     SizeBytes `yaml:"max_body_size"`
	ReadTimeout     Duration  `yaml:"read_timeout"`
	WriteTimeout    Duration  `yaml:"write_timeout"`
	IdleTimeout     Duration  `yaml:"idle_timeout"`
	ShutdownTimeout Duration  `yaml:"shutdown_timeout"`
}

// TLSConfig holds TLS certificate configuration.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DispatchConfig tunes the request dispatcher.
type DispatchConfig struct {
	// ReplyTimeout bounds how long a request waits for its handler; zero
	// waits until the handler replies or the client leaves.
	ReplyTimeout Duration `yaml:"reply_timeout"`
}

// RateLimitConfig enables per-client token buckets when RPS is positive.
type RateLimitConfig struct {
	RPS   float64  `yaml:"rps"`
	Burst int      `yaml:"burst"`
	TTL   Duration `yaml:"ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"` // stdout | stderr | file:/path
}

// MetricsConfig holds the prometheus listener address; empty disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "64MB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSize accepts "1MB", "512KiB" or a plain byte count.
func ParseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) Int64() int64 { return int64(s) }

func (s SizeBytes) String() string {
	if s <= 0 {
		return "unlimited"
	}
	return humanize.IBytes(uint64(s))
}

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "100ms" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := ParseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDuration accepts Go duration strings and plain seconds.
func ParseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
