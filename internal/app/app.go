package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/caniput/internal/call"
	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/identity"
	"github.com/vk/caniput/internal/principal"
	"github.com/vk/caniput/internal/transport"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
// The connection to the replica is made on the first put; inspect never
// touches the network.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config

	transport transport.Transport
	identity  identity.Identity
	caller    *call.Caller
}

// Option customizes an App.
type Option func(*App)

// WithTransport makes the App use tr instead of dialing cfg.Replica.
func WithTransport(tr transport.Transport) Option {
	return func(a *App) { a.transport = tr }
}

// WithIdentity replaces the freshly generated signing identity.
func WithIdentity(id identity.Identity) Option {
	return func(a *App) { a.identity = id }
}

// New is the constructor for the main application. Results go to outW and
// logs to logW.
func New(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.", "level", cfg.LogLevel)

	a := &App{outW: outW, logger: logger, config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the application's configuration.
func (a *App) Config() *Config { return a.config }

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// connect builds the identity, transport and caller on first use.
func (a *App) connect(ctx context.Context) (*call.Caller, error) {
	if a.caller != nil {
		return a.caller, nil
	}
	logger := ctxlog.FromContext(ctx)

	canister, err := principal.FromText(a.config.Canister)
	if err != nil {
		return nil, fmt.Errorf("invalid canister id: %w", err)
	}

	if a.identity == nil {
		logger.Info("Creating identity.")
		id, err := identity.NewBasic(nil)
		if err != nil {
			return nil, err
		}
		a.identity = id
	}
	logger.Debug("Identity ready.", "sender", a.identity.Sender().String())

	if a.transport == nil {
		tr, err := transport.New(a.config.Replica, a.identity, transport.WithPollInterval(a.config.RetryPause))
		if err != nil {
			return nil, err
		}
		a.transport = tr
		logger.Info("Built transport.", "replica", a.config.Replica)

		if a.config.FetchRootKey {
			if err := a.fetchRootKey(ctx); err != nil {
				return nil, err
			}
		}
	}

	caller, err := call.NewCaller(a.transport, canister, a.config.Policy())
	if err != nil {
		return nil, err
	}
	a.caller = caller
	return caller, nil
}

// fetchRootKey asks the gateway for its root key. The transport keeps the
// key and checks every later reply against it.
func (a *App) fetchRootKey(ctx context.Context) error {
	fetcher, ok := a.transport.(transport.RootKeyFetcher)
	if !ok {
		ctxlog.FromContext(ctx).Debug("Transport has no root key endpoint, skipping fetch.")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	key, err := fetcher.FetchRootKey(ctx)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Got root key.", "bytes", len(key), "verify_replies", true)
	return nil
}

// Close releases the transport.
func (a *App) Close() error {
	if a.transport == nil {
		return nil
	}
	return a.transport.Close()
}

// PathSegments is the path argument of a put: putPath split by SplitPath,
// or the whole of putPath when Config.WholePath is set.
func (c *Config) PathSegments(putPath string) []string {
	if c.WholePath {
		return []string{putPath}
	}
	return SplitPath(putPath)
}

// SplitPath turns a slash-separated put path into its segments. Empty
// segments are dropped, so "/a//b/" is [a b].
func SplitPath(p string) []string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// Syntax selects the literal syntax of the value command.
type Syntax string

const (
	SyntaxCandid Syntax = "candid"
	SyntaxHCL    Syntax = "hcl"
)

// ParseSyntax validates a syntax name.
func ParseSyntax(s string) (Syntax, error) {
	switch Syntax(strings.ToLower(s)) {
	case SyntaxCandid:
		return SyntaxCandid, nil
	case SyntaxHCL:
		return SyntaxHCL, nil
	}
	return "", errs.Errorf(errs.KindCodec, "parse syntax", "unknown syntax %q: must be 'candid' or 'hcl'", s)
}
