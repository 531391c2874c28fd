// Package transport performs single network attempts against a replica.
// Retrying is the caller's business: every failure is classified as either
// retryable or definitive through errs.TransportError.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/identity"
	"github.com/vk/caniput/internal/principal"
)

// Request is one update call.
type Request struct {
	Canister principal.Principal
	Method   string
	// Arg is the encoded argument message.
	Arg []byte
}

// Transport submits a signed request and returns the encoded reply.
type Transport interface {
	Submit(ctx context.Context, req Request) ([]byte, error)
	Close() error
}

// RootKeyFetcher is implemented by transports that can ask the replica for
// its root key. Only development replicas should be trusted this way.
type RootKeyFetcher interface {
	FetchRootKey(ctx context.Context) ([]byte, error)
}

type options struct {
	httpClient         *http.Client
	requestTimeout     time.Duration
	pollInterval       time.Duration
	ingressExpiry      time.Duration
	namespace          string
	insecureSkipVerify bool
	now                func() time.Time
}

func defaultOptions() options {
	return options{
		requestTimeout: 30 * time.Second,
		pollInterval:   100 * time.Millisecond,
		ingressExpiry:  5 * time.Minute,
		namespace:      "/",
		now:            time.Now,
	}
}

// Option configures a transport.
type Option func(*options)

// WithHTTPClient replaces the HTTP client, for tests and custom TLS setups.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRequestTimeout bounds one HTTP round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithPollInterval sets the pause between polls of an accepted request.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithIngressExpiry sets how long a signed request stays valid.
func WithIngressExpiry(d time.Duration) Option {
	return func(o *options) { o.ingressExpiry = d }
}

// WithNamespace selects the socket.io namespace.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(o *options) { o.insecureSkipVerify = true }
}

// New picks the transport for rawURL's scheme: HTTP for http and https,
// socket.io for ws and wss.
func New(rawURL string, id identity.Identity, opts ...Option) (Transport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Transport("transport.New", err)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTP(rawURL, id, opts...)
	case "ws", "wss":
		return NewSocketIO(rawURL, id, opts...)
	}
	return nil, errs.Errorf(errs.KindTransport, "transport.New", "unsupported URL scheme %q", u.Scheme)
}
