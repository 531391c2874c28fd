package transport

import (
	"context"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/identity"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	EventCall  = "call"
	EventReply = "reply"

	ReplyReplied  = "replied"
	ReplyRejected = "rejected"
)

// SocketIO submits calls over a socket.io connection. Each attempt opens
// its own websocket, emits one "call" event and waits for the "reply"
// carrying the same id.
type SocketIO struct {
	baseURL string
	path    string
	id      identity.Identity
	opts    options
}

// NewSocketIO returns a transport for a ws:// or wss:// endpoint.
func NewSocketIO(rawURL string, id identity.Identity, opts ...Option) (*SocketIO, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errs.Transport("transport.NewSocketIO", err)
	}
	scheme := map[string]string{"ws": "http", "wss": "https"}[u.Scheme]
	if scheme == "" {
		return nil, errs.Errorf(errs.KindTransport, "transport.NewSocketIO", "URL %q is not ws(s)", rawURL)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &SocketIO{
		baseURL: fmt.Sprintf("%s://%s", scheme, u.Host),
		path:    u.Path,
		id:      id,
		opts:    o,
	}, nil
}

type socketReply struct {
	body []byte
	err  error
}

// Submit connects, emits the call and waits for its reply or for ctx to
// end. Connection failures and timeouts are retryable; a "rejected" reply
// is definitive.
func (s *SocketIO) Submit(ctx context.Context, req Request) ([]byte, error) {
	callID := uuid.NewString()
	logger := ctxlog.FromContext(ctx).With("transport", "socketio", "url", s.baseURL, "call_id", callID, "method", req.Method)

	env, err := Seal(s.id, req, uuid.New(), s.opts.now().Add(s.opts.ingressExpiry))
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"id":         callID,
		"canister":   req.Canister.String(),
		"method":     req.Method,
		"arg":        hex.EncodeToString(req.Arg),
		"sender":     env.Sender.String(),
		"public_key": hex.EncodeToString(env.PublicKey),
		"nonce":      env.Nonce.String(),
		"expiry":     strconv.FormatInt(env.Expiry, 10),
		"signature":  hex.EncodeToString(env.Signature),
	}

	opts := socket.DefaultOptions()
	if s.path != "" && s.path != "/" {
		opts.SetPath(s.path)
	}
	if s.opts.insecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification.")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(s.baseURL, opts)
	client := manager.Socket(s.opts.namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client.")
		client.Disconnect()
	}()

	done := make(chan socketReply, 1)
	deliver := func(r socketReply) {
		select {
		case done <- r:
		default:
		}
	}

	client.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Connected, emitting call.", "sid", client.Id(), "bytes", len(req.Arg))
		client.Emit(EventCall, payload)
	})
	client.Once(types.EventName("connect_error"), func(args ...any) {
		err := errors.New("connect failed")
		if len(args) > 0 {
			if e, ok := args[0].(error); ok {
				err = e
			}
		}
		deliver(socketReply{err: errs.Retryable(0, err)})
	})
	client.On(types.EventName(EventReply), func(args ...any) {
		if len(args) == 0 {
			return
		}
		r, match := parseReply(callID, args[0])
		if match {
			deliver(r)
		}
	})

	client.Connect()

	select {
	case <-ctx.Done():
		return nil, errs.Retryable(0, fmt.Errorf("waiting for reply: %w", ctx.Err()))
	case r := <-done:
		return r.body, r.err
	}
}

// parseReply interprets a reply event. It reports false for replies to
// other calls.
func parseReply(callID string, data any) (socketReply, bool) {
	m, ok := data.(map[string]any)
	if !ok {
		return socketReply{}, false
	}
	if id, _ := m["id"].(string); id != callID {
		return socketReply{}, false
	}
	status, _ := m["status"].(string)
	switch status {
	case ReplyReplied:
		raw, _ := m["reply"].(string)
		body, err := hex.DecodeString(raw)
		if err != nil {
			return socketReply{err: errs.Codec("decode reply", err)}, true
		}
		return socketReply{body: body}, true
	case ReplyRejected:
		msg, _ := m["message"].(string)
		return socketReply{err: errs.Rejected(0, fmt.Errorf("call rejected: %s", msg))}, true
	}
	return socketReply{err: errs.Retryable(0, fmt.Errorf("unexpected reply status %q", status))}, true
}

// Close is a no-op: connections live for one attempt.
func (s *SocketIO) Close() error { return nil }
