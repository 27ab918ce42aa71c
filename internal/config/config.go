package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultConcurrency is the ceiling on simultaneously fetched pages.
const DefaultConcurrency = 100

type Config struct {
	// Parallelism
	Concurrency       int
	RequestsPerSecond float64 // 0 = unlimited

	// Timeouts
	RequestTimeout      time.Duration
	ConnectTimeout      time.Duration
	TLSHandshakeTimeout time.Duration

	// HTTP
	UserAgent          string
	AcceptLanguage     string
	MaxRedirects       int
	MaxBodySize        int64
	InsecureSkipVerify bool

	// Logging
	LogLevel string
	LogJSON  bool
}

func DefaultConfig() *Config {
	return &Config{
		Concurrency:       DefaultConcurrency,
		RequestsPerSecond: 0,

		RequestTimeout:      30 * time.Second,
		ConnectTimeout:      10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,

		UserAgent:          "linkprobe/1.0 (+sitemap link inspector)",
		AcceptLanguage:     "en-US,en;q=0.9",
		MaxRedirects:       10,
		MaxBodySize:        20 * 1024 * 1024, // 20 MB
		InsecureSkipVerify: false,

		LogLevel: "INFO",
		LogJSON:  false,
	}
}

func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("Concurrency must be >= 1, got %d", c.Concurrency)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("RequestsPerSecond must be >= 0, got %v", c.RequestsPerSecond)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("RequestTimeout must be > 0, got %s", c.RequestTimeout)
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("ConnectTimeout must be > 0, got %s", c.ConnectTimeout)
	}
	if c.TLSHandshakeTimeout <= 0 {
		return fmt.Errorf("TLSHandshakeTimeout must be > 0, got %s", c.TLSHandshakeTimeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("MaxRedirects must be >= 0, got %d", c.MaxRedirects)
	}
	if c.MaxBodySize < 1 {
		return fmt.Errorf("MaxBodySize must be >= 1, got %d", c.MaxBodySize)
	}
	return nil
}

// fileConfig mirrors Config for TOML decoding. Durations are strings such as "8s".
type fileConfig struct {
	Concurrency         *int     `toml:"concurrency"`
	RequestsPerSecond   *float64 `toml:"requests_per_second"`
	RequestTimeout      string   `toml:"request_timeout"`
	ConnectTimeout      string   `toml:"connect_timeout"`
	TLSHandshakeTimeout string   `toml:"tls_handshake_timeout"`
	UserAgent           string   `toml:"user_agent"`
	AcceptLanguage      string   `toml:"accept_language"`
	MaxRedirects        *int     `toml:"max_redirects"`
	MaxBodySize         *int64   `toml:"max_body_size"`
	InsecureSkipVerify  *bool    `toml:"insecure_skip_verify"`
	LogLevel            string   `toml:"log_level"`
	LogJSON             *bool    `toml:"log_json"`
}

// LoadFile reads a TOML file on top of DefaultConfig. Keys absent from the
// file keep their defaults; unknown keys are rejected.
func LoadFile(path string) (*Config, error) {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	c := DefaultConfig()
	if err := fc.apply(c); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func (fc *fileConfig) apply(c *Config) error {
	if fc.Concurrency != nil {
		c.Concurrency = *fc.Concurrency
	}
	if fc.RequestsPerSecond != nil {
		c.RequestsPerSecond = *fc.RequestsPerSecond
	}
	if fc.MaxRedirects != nil {
		c.MaxRedirects = *fc.MaxRedirects
	}
	if fc.MaxBodySize != nil {
		c.MaxBodySize = *fc.MaxBodySize
	}
	if fc.InsecureSkipVerify != nil {
		c.InsecureSkipVerify = *fc.InsecureSkipVerify
	}
	if fc.LogJSON != nil {
		c.LogJSON = *fc.LogJSON
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}
	if fc.AcceptLanguage != "" {
		c.AcceptLanguage = fc.AcceptLanguage
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &c.RequestTimeout},
		{"connect_timeout", fc.ConnectTimeout, &c.ConnectTimeout},
		{"tls_handshake_timeout", fc.TLSHandshakeTimeout, &c.TLSHandshakeTimeout},
	}
	var errs []error
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.key, err))
			continue
		}
		*d.dst = v
	}
	return errors.Join(errs...)
}
