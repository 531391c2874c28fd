package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/identity"
)

const (
	ContentType = "application/candid"

	HeaderSender    = "X-Caniput-Sender"
	HeaderPublicKey = "X-Caniput-Public-Key"
	HeaderNonce     = "X-Caniput-Nonce"
	HeaderExpiry    = "X-Caniput-Expiry"
	HeaderSignature = "X-Caniput-Signature"

	// HeaderReplySignature carries the replica's signature over a reply,
	// made with the key served as root_key.
	HeaderReplySignature = "X-Caniput-Reply-Signature"

	// maxBodySize bounds any response body read into memory.
	maxBodySize = 64 << 20
)

// HTTP talks to a caniput gateway in front of the canister:
//
//	POST {base}/caniput/v1/canister/{canister}/call/{method}   submit a call
//	GET  {location}                                            poll an accepted call
//	GET  {base}/caniput/v1/status                              gateway status and root key
//
// Once FetchRootKey has run, every reply must carry a valid
// HeaderReplySignature for the fetched key.
type HTTP struct {
	base    *url.URL
	client  *http.Client
	id      identity.Identity
	opts    options
	rootKey []byte
}

// NewHTTP returns a transport for the replica at rawURL.
func NewHTTP(rawURL string, id identity.Identity, opts ...Option) (*HTTP, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Transport("transport.NewHTTP", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errs.Errorf(errs.KindTransport, "transport.NewHTTP", "URL %q is not http(s)", rawURL)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	client := o.httpClient
	if client == nil {
		client = newHTTPClient(o)
	}
	return &HTTP{base: base, client: client, id: id, opts: o}, nil
}

// endpoint resolves a gateway endpoint below {base}/caniput/v1.
func (h *HTTP) endpoint(elem ...string) *url.URL {
	return h.base.JoinPath(append([]string{"caniput", "v1"}, elem...)...)
}

func newHTTPClient(o options) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
	if o.insecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &http.Client{Timeout: o.requestTimeout, Transport: tr}
}

// Submit posts one signed call. A 202 reply is polled at the configured
// interval until the call completes or ctx ends.
func (h *HTTP) Submit(ctx context.Context, req Request) ([]byte, error) {
	logger := ctxlog.FromContext(ctx).With("transport", "http", "canister", req.Canister.String(), "method", req.Method)

	env, err := Seal(h.id, req, uuid.New(), h.opts.now().Add(h.opts.ingressExpiry))
	if err != nil {
		return nil, err
	}
	target := h.endpoint("canister", req.Canister.String(), "call", req.Method)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(req.Arg))
	if err != nil {
		return nil, errs.Transport("build request", err)
	}
	httpReq.Header.Set("Content-Type", ContentType)
	setEnvelope(httpReq.Header, env)

	logger.Debug("Submitting call.", "url", target.String(), "bytes", len(req.Arg), "nonce", env.Nonce.String())
	resp, err := h.do(httpReq)
	if err != nil {
		return nil, err
	}
	logger.Debug("Received response.", "status", resp.status, "bytes", len(resp.body))

	switch {
	case resp.status == http.StatusOK:
		return h.verifyReply(env, resp)
	case resp.status == http.StatusAccepted:
		if resp.location == "" {
			return nil, errs.Rejected(resp.status, errors.New("accepted without a Location to poll"))
		}
		return h.poll(ctx, env, resp.location)
	}
	return nil, statusError(resp.status, resp.body)
}

// verifyReply checks the reply signature when a root key is known.
func (h *HTTP) verifyReply(env Envelope, resp response) ([]byte, error) {
	if h.rootKey == nil {
		return resp.body, nil
	}
	sig, err := hex.DecodeString(resp.signature)
	if err != nil || len(sig) == 0 {
		return nil, errs.Errorf(errs.KindIdentity, "verify reply", "reply is not signed")
	}
	if err := identity.Verify(h.rootKey, ReplyDigest(env.Nonce, resp.body), sig); err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (h *HTTP) poll(ctx context.Context, env Envelope, location string) ([]byte, error) {
	logger := ctxlog.FromContext(ctx).With("transport", "http")
	ref, err := url.Parse(location)
	if err != nil {
		return nil, errs.Rejected(http.StatusAccepted, fmt.Errorf("bad poll location: %w", err))
	}
	target := h.base.ResolveReference(ref).String()

	timer := time.NewTimer(h.opts.pollInterval)
	defer timer.Stop()
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return nil, errs.Retryable(0, ctx.Err())
		case <-timer.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, errs.Transport("build request", err)
		}
		resp, err := h.do(httpReq)
		switch {
		case err != nil:
			logger.Debug("Poll attempt failed.", "url", target, "attempt", attempt, "error", err)
		case resp.status == http.StatusOK:
			return h.verifyReply(env, resp)
		case resp.status == http.StatusAccepted:
			logger.Debug("Call still pending.", "url", target, "attempt", attempt)
		case resp.status >= 400 && resp.status < 500:
			return nil, statusError(resp.status, resp.body)
		default:
			logger.Debug("Poll attempt failed.", "url", target, "attempt", attempt, "status", resp.status)
		}
		timer.Reset(h.opts.pollInterval)
	}
}

type response struct {
	status    int
	body      []byte
	location  string
	signature string
}

// do runs one request and reads the whole body. Network failures are
// retryable.
func (h *HTTP) do(req *http.Request) (response, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return response{}, errs.Retryable(0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return response{}, errs.Retryable(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return response{
		status:    resp.StatusCode,
		body:      body,
		location:  resp.Header.Get("Location"),
		signature: resp.Header.Get(HeaderReplySignature),
	}, nil
}

// statusError classifies a non-success status: client errors are
// definitive rejects, everything else may be retried.
func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	if status >= 400 && status < 500 {
		return errs.Rejected(status, fmt.Errorf("call rejected: %s", msg))
	}
	return errs.Retryable(status, fmt.Errorf("replica error: %s", msg))
}

func setEnvelope(h http.Header, env Envelope) {
	h.Set(HeaderSender, env.Sender.String())
	h.Set(HeaderNonce, env.Nonce.String())
	h.Set(HeaderExpiry, strconv.FormatInt(env.Expiry, 10))
	if len(env.PublicKey) > 0 {
		h.Set(HeaderPublicKey, hex.EncodeToString(env.PublicKey))
	}
	if len(env.Signature) > 0 {
		h.Set(HeaderSignature, hex.EncodeToString(env.Signature))
	}
}

// statusDoc is the JSON document served at /caniput/v1/status. RootKey is
// the hex DER Ed25519 public key that signs replies.
type statusDoc struct {
	RootKey string `json:"root_key"`
}

// FetchRootKey asks the gateway for its root key and keeps it: from then on
// replies without a valid signature for that key are refused.
func (h *HTTP) FetchRootKey(ctx context.Context) ([]byte, error) {
	target := h.endpoint("status").String()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Transport("fetch root key", err)
	}
	resp, err := h.do(httpReq)
	if err != nil {
		return nil, errs.Transport("fetch root key", err)
	}
	if resp.status != http.StatusOK {
		return nil, errs.Transport("fetch root key", statusError(resp.status, resp.body))
	}
	var st statusDoc
	if err := json.Unmarshal(resp.body, &st); err != nil {
		return nil, errs.Codec("fetch root key", err)
	}
	key, err := hex.DecodeString(st.RootKey)
	if err != nil || len(key) == 0 {
		return nil, errs.Errorf(errs.KindCodec, "fetch root key", "status has no usable root_key")
	}
	ctxlog.FromContext(ctx).Debug("Fetched root key.", "url", target, "bytes", len(key))
	h.rootKey = key
	return key, nil
}

// RootKey returns the key fetched by FetchRootKey, or nil.
func (h *HTTP) RootKey() []byte { return h.rootKey }

// Close releases idle connections.
func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// EnvelopeFromHeader reads the authentication headers of a call. Replicas
// and test servers use it to verify requests.
func EnvelopeFromHeader(h http.Header) (Envelope, error) {
	var env Envelope
	if err := env.Sender.UnmarshalText([]byte(h.Get(HeaderSender))); err != nil {
		return Envelope{}, fmt.Errorf("sender: %w", err)
	}
	nonce, err := uuid.Parse(h.Get(HeaderNonce))
	if err != nil {
		return Envelope{}, fmt.Errorf("nonce: %w", err)
	}
	env.Nonce = nonce
	if env.Expiry, err = strconv.ParseInt(h.Get(HeaderExpiry), 10, 64); err != nil {
		return Envelope{}, fmt.Errorf("expiry: %w", err)
	}
	if env.PublicKey, err = hex.DecodeString(h.Get(HeaderPublicKey)); err != nil {
		return Envelope{}, fmt.Errorf("public key: %w", err)
	}
	if env.Signature, err = hex.DecodeString(h.Get(HeaderSignature)); err != nil {
		return Envelope{}, fmt.Errorf("signature: %w", err)
	}
	return env, nil
}
