package config

import (
	"fmt"
	"time"
)

// File is the decoded configuration file. Empty strings and nil pointers
// mean "not set".
//
//	username       = "alice"
//	replica        = "http://127.0.0.1:8000"
//	canister       = "rrkah-fqaaa-aaaaa-aaaaq-cai"
//	fetch_root_key = true
//	whole_path     = false
//
//	retry {
//	  pause   = "100ms"
//	  timeout = "60s"
//	}
//
//	log {
//	  level  = "info"
//	  format = "text"
//	}
type File struct {
	Username     string `hcl:"username,optional" toml:"username"`
	Replica      string `hcl:"replica,optional" toml:"replica"`
	Canister     string `hcl:"canister,optional" toml:"canister"`
	FetchRootKey *bool  `hcl:"fetch_root_key,optional" toml:"fetch_root_key"`
	WholePath    *bool  `hcl:"whole_path,optional" toml:"whole_path"`
	Retry        *Retry `hcl:"retry,block" toml:"retry"`
	Log          *Log   `hcl:"log,block" toml:"log"`
}

// Retry holds the call retry policy. Durations use time.ParseDuration
// syntax.
type Retry struct {
	Pause   string `hcl:"pause,optional" toml:"pause"`
	Timeout string `hcl:"timeout,optional" toml:"timeout"`
}

// Log holds logging settings.
type Log struct {
	Level  string `hcl:"level,optional" toml:"level"`
	Format string `hcl:"format,optional" toml:"format"`
}

// RetryPause returns the configured pause, or zero when unset.
func (f *File) RetryPause() (time.Duration, error) {
	if f.Retry == nil {
		return 0, nil
	}
	return parseDuration("retry.pause", f.Retry.Pause)
}

// RetryTimeout returns the configured timeout, or zero when unset.
func (f *File) RetryTimeout() (time.Duration, error) {
	if f.Retry == nil {
		return 0, nil
	}
	return parseDuration("retry.timeout", f.Retry.Timeout)
}

// LogLevel returns the configured log level, or "" when unset.
func (f *File) LogLevel() string {
	if f.Log == nil {
		return ""
	}
	return f.Log.Level
}

// LogFormat returns the configured log format, or "" when unset.
func (f *File) LogFormat() string {
	if f.Log == nil {
		return ""
	}
	return f.Log.Format
}

// Validate checks the fields that can be checked without the rest of the
// configuration.
func (f *File) Validate() error {
	if _, err := f.RetryPause(); err != nil {
		return err
	}
	if _, err := f.RetryTimeout(); err != nil {
		return err
	}
	return nil
}

func parseDuration(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, s)
	}
	return d, nil
}
