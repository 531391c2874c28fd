package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/vk/caniput/internal/call"
	"github.com/vk/caniput/internal/config"
	"github.com/vk/caniput/internal/principal"
)

const (
	DefaultUsername = "guest"
	DefaultReplica  = "http://127.0.0.1:8000"
	DefaultCanister = "rrkah-fqaaa-aaaaa-aaaaq-cai"
	DefaultLogLevel = "warn"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Username     string
	Replica      string
	Canister     string
	FetchRootKey bool
	RetryPause   time.Duration
	Timeout      time.Duration

	// WholePath sends the put path as one segment instead of splitting it
	// on "/".
	WholePath bool

	LogLevel  string
	LogFormat string
}

// DefaultConfig returns the built-in defaults. LogFormat is left empty so
// that the logger can pick one for its writer.
func DefaultConfig() Config {
	return Config{
		Username:     DefaultUsername,
		Replica:      DefaultReplica,
		Canister:     DefaultCanister,
		FetchRootKey: true,
		RetryPause:   call.DefaultPause,
		Timeout:      call.DefaultTimeout,
		LogLevel:     DefaultLogLevel,
	}
}

// ApplyFile overlays the fields set in a configuration file.
func (c *Config) ApplyFile(f *config.File) error {
	if f == nil {
		return nil
	}
	if f.Username != "" {
		c.Username = f.Username
	}
	if f.Replica != "" {
		c.Replica = f.Replica
	}
	if f.Canister != "" {
		c.Canister = f.Canister
	}
	if f.FetchRootKey != nil {
		c.FetchRootKey = *f.FetchRootKey
	}
	if f.WholePath != nil {
		c.WholePath = *f.WholePath
	}
	pause, err := f.RetryPause()
	if err != nil {
		return err
	}
	if pause > 0 {
		c.RetryPause = pause
	}
	timeout, err := f.RetryTimeout()
	if err != nil {
		return err
	}
	if timeout > 0 {
		c.Timeout = timeout
	}
	if lvl := f.LogLevel(); lvl != "" {
		c.LogLevel = lvl
	}
	if format := f.LogFormat(); format != "" {
		c.LogFormat = format
	}
	return nil
}

// Policy returns the retry policy described by the configuration.
func (c *Config) Policy() call.Policy {
	return call.Policy{Pause: c.RetryPause, Timeout: c.Timeout}
}

// NewConfig normalizes and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)

	var problems []error
	if cfg.Username == "" {
		problems = append(problems, errors.New("username must not be empty"))
	}
	if err := validateReplica(cfg.Replica); err != nil {
		problems = append(problems, err)
	}
	if _, err := principal.FromText(cfg.Canister); err != nil {
		problems = append(problems, fmt.Errorf("invalid canister id %q: %w", cfg.Canister, err))
	}
	if err := cfg.Policy().Validate(); err != nil {
		problems = append(problems, err)
	}
	if _, ok := ParseLevel(cfg.LogLevel); !ok {
		problems = append(problems, fmt.Errorf("invalid log level %q: must be 'trace', 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		problems = append(problems, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateReplica(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid replica URL %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid replica URL %q: scheme must be http, https, ws or wss", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid replica URL %q: missing host", raw)
	}
	return nil
}
