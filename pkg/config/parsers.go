package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Flags holds command-line values and which of them were set.
type Flags struct {
	Config    string
	HTTPPort  int
	HTTPSPort int
	Engine    string
	Env       string
	Set       map[string]bool
}

// EnvResult records which environment variables contributed.
type EnvResult struct {
	Used    []string
	EnvUsed bool
}

// EffectiveConfigResult is the merged configuration and where it came from.
type EffectiveConfigResult struct {
	Config     *Config
	ConfigPath string
	Source     string // "defaults", "config", "env" or "flags"
}

// ParseConfigFile loads the config file named by flags. A missing file is
// not an error; found reports whether one was read.
func ParseConfigFile(flags Flags) (cfg *Config, path string, found bool, err error) {
	path = ResolveConfigPath(flags.Config, flags.Set["config"])
	if path == "" {
		return &Config{}, "", false, nil
	}
	cfg, err = LoadConfigFile(path)
	if err != nil {
		if os.IsNotExist(err) && !flags.Set["config"] {
			return &Config{}, path, false, nil
		}
		return nil, path, false, fmt.Errorf("load config file: %w", err)
	}
	return cfg, path, true, nil
}

// ParseConfigEnvs reads UPTIME_* variables into a new Config; fields whose
// variable is unset stay zero.
func ParseConfigEnvs() (*Config, EnvResult, error) {
	cfg := &Config{}
	res := EnvResult{}
	var errs []string

	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
			res.Used = append(res.Used, name)
		}
	}
	num := func(name string, dst *int) {
		var raw string
		str(name, &raw)
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = n
	}
	dur := func(name string, dst *Duration) {
		var raw string
		str(name, &raw)
		if raw == "" {
			return
		}
		d, err := ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			return
		}
		*dst = d
	}

	str("UPTIME_ENV", &cfg.Env)
	str("UPTIME_ADDRESS", &cfg.Server.Address)
	num("UPTIME_HTTP_PORT", &cfg.Server.HTTPPort)
	num("UPTIME_HTTPS_PORT", &cfg.Server.HTTPSPort)
	str("UPTIME_ENGINE", &cfg.Server.Engine)
	str("UPTIME_TLS_CERT", &cfg.Server.TLS.CertFile)
	str("UPTIME_TLS_KEY", &cfg.Server.TLS.KeyFile)
	str("UPTIME_LOG_LEVEL", &cfg.Logging.Level)
	str("UPTIME_LOG_SINK", &cfg.Logging.Sink)
	str("UPTIME_METRICS_ADDR", &cfg.Metrics.Address)
	num("UPTIME_RATE_BURST", &cfg.RateLimit.Burst)
	dur("UPTIME_REPLY_TIMEOUT", &cfg.Dispatch.ReplyTimeout)

	var raw string
	str("UPTIME_RATE_RPS", &raw)
	if raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, fmt.Sprintf("UPTIME_RATE_RPS: %v", err))
		} else {
			cfg.RateLimit.RPS = f
		}
	}
	raw = ""
	str("UPTIME_MAX_BODY_SIZE", &raw)
	if raw != "" {
		s, err := ParseSize(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("UPTIME_MAX_BODY_SIZE: %v", err))
		} else {
			cfg.Server.MaxBodySize = s
		}
	}

	res.EnvUsed = len(res.Used) > 0
	if len(errs) > 0 {
		return nil, res, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return cfg, res, nil
}

// LoadEffectiveConfig merges the layers with precedence flags > env > file >
// environment preset.
func LoadEffectiveConfig(flags Flags, fileCfg *Config, filePath string, fileFound bool, envCfg *Config, envRes EnvResult) (EffectiveConfigResult, error) {
	if fileFound && fileCfg == nil {
		return EffectiveConfigResult{}, fmt.Errorf("config file %s was found but not parsed", filePath)
	}
	envName := ""
	if fileCfg != nil {
		setStr(&envName, fileCfg.Env)
	}
	if envCfg != nil {
		setStr(&envName, envCfg.Env)
	}
	if flags.Set["env"] {
		setStr(&envName, flags.Env)
	}

	cfg := Defaults(envName)
	source := "defaults"
	if fileFound {
		overlay(cfg, fileCfg)
		source = "config"
	}
	if envRes.EnvUsed {
		overlay(cfg, envCfg)
		source = "env"
	}

	flagCfg := &Config{}
	if flags.Set["http-port"] {
		flagCfg.Server.HTTPPort = flags.HTTPPort
	}
	if flags.Set["https-port"] {
		flagCfg.Server.HTTPSPort = flags.HTTPSPort
	}
	if flags.Set["engine"] {
		flagCfg.Server.Engine = flags.Engine
	}
	if flags.Set["http-port"] || flags.Set["https-port"] || flags.Set["engine"] || flags.Set["env"] {
		source = "flags"
	}
	overlay(cfg, flagCfg)

	cfg.Env = PresetFor(envName).Name
	cfg.Server.Engine = strings.ToLower(cfg.Server.Engine)

	path := ""
	if fileFound {
		path = filePath
	}
	return EffectiveConfigResult{Config: cfg, ConfigPath: path, Source: source}, nil
}
