package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes all the environment variables overriding the configuration.
const EnvPrefix = "TURNSTILE_"

// Load reads a YAML file on top of the defaults, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return Parse(data)
}

// Parse does the same as Load, except the YAML document is passed directly.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides the server section by TURNSTILE_* environment variables, if any set.
func ApplyEnv(cfg *Config) error {
	if port, ok := os.LookupEnv(EnvPrefix + "PORT"); ok {
		value, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}

		cfg.Server.Port = uint16(value)
	}

	overrides := []struct {
		name   string
		target *string
	}{
		{"ADDRESS", &cfg.Server.Address},
		{"SERVER_NAME", &cfg.Server.Name},
		{"DOCUMENT_ROOT", &cfg.Server.DocumentRoot},
		{"RUN_AS", &cfg.Server.RunAs},
		{"TLS_CERT_FILE", &cfg.TLS.CertFile},
		{"TLS_KEY_FILE", &cfg.TLS.KeyFile},
		{"LOG_LEVEL", &cfg.Log.Level},
	}

	for _, o := range overrides {
		if value, ok := os.LookupEnv(EnvPrefix + o.name); ok {
			*o.target = value
		}
	}

	return nil
}

var (
	ErrNoServerName       = errors.New("server name must not be empty")
	ErrNoDocumentRoot     = errors.New("document root must not be empty")
	ErrIncompleteTLS      = errors.New("both tls.cert_file and tls.key_file must be set")
	ErrBadReadBuffer      = errors.New("net.read_buffer_size must be positive")
	ErrBadHeadersNumber   = errors.New("headers.number.default must not exceed headers.number.maximal")
	ErrBadHeadersSpace    = errors.New("headers.space.default must not exceed headers.space.maximal")
	ErrUnknownLogLevel    = errors.New("log.level must be one of debug, info, warn, error")
	ErrUnknownLogFormat   = errors.New("log.format must be either text or json")
	ErrNoMetricsNamespace = errors.New("metrics.namespace must not be empty")
)

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Server.Name) == 0 {
		errs = append(errs, ErrNoServerName)
	}
	if len(c.Server.DocumentRoot) == 0 {
		errs = append(errs, ErrNoDocumentRoot)
	}
	if (len(c.TLS.CertFile) == 0) != (len(c.TLS.KeyFile) == 0) {
		errs = append(errs, ErrIncompleteTLS)
	}
	if c.NET.ReadBufferSize <= 0 {
		errs = append(errs, ErrBadReadBuffer)
	}
	if c.Headers.Number.Default > c.Headers.Number.Maximal {
		errs = append(errs, ErrBadHeadersNumber)
	}
	if c.Headers.Space.Default > c.Headers.Space.Maximal {
		errs = append(errs, ErrBadHeadersSpace)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ErrUnknownLogLevel)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, ErrUnknownLogFormat)
	}

	if c.Metrics.Enabled && len(c.Metrics.Namespace) == 0 {
		errs = append(errs, ErrNoMetricsNamespace)
	}

	return errors.Join(errs...)
}
