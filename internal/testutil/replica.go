package testutil

import (
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/caniput/internal/identity"
	"github.com/vk/caniput/internal/idl"
	"github.com/vk/caniput/internal/principal"
	"github.com/vk/caniput/internal/transport"
	"github.com/vk/caniput/internal/value"
)

// StoredPut is one put call received by a Replica.
type StoredPut struct {
	Sender principal.Principal
	User   string
	Path   []string
	Values []value.Value
}

// Replica is a fake caniput gateway serving the HTTP call API over
// httptest. It verifies request signatures, decodes put arguments, answers
// (opt null) and signs every reply with its root key.
type Replica struct {
	Server *httptest.Server
	// Key is the root key pair; its public half is served as root_key.
	Key *identity.Basic
	// Refuse makes put answer null, a logical failure.
	Refuse bool
	// Forge signs replies with a key other than Key.
	Forge bool

	mu           sync.Mutex
	puts         []StoredPut
	statusServed int
}

// NewReplica starts a Replica that is shut down when the test ends.
func NewReplica(t *testing.T) *Replica {
	t.Helper()
	key, err := identity.NewBasic(nil)
	require.NoError(t, err)

	r := &Replica{Key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /caniput/v1/status", r.status)
	mux.HandleFunc("POST /caniput/v1/canister/{canister}/call/{method}", r.call)
	r.Server = httptest.NewServer(mux)
	t.Cleanup(r.Server.Close)
	return r
}

// URL returns the replica's base URL.
func (r *Replica) URL() string { return r.Server.URL }

// Puts returns the put calls received so far.
func (r *Replica) Puts() []StoredPut {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StoredPut(nil), r.puts...)
}

// StatusServed counts the root key fetches answered so far.
func (r *Replica) StatusServed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusServed
}

func (r *Replica) status(w http.ResponseWriter, _ *http.Request) {
	r.mu.Lock()
	r.statusServed++
	r.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"root_key": %q}`, hex.EncodeToString(r.Key.PublicKey()))
}

func (r *Replica) sign(env transport.Envelope, body []byte) (string, error) {
	key := r.Key
	if r.Forge {
		forged, err := identity.NewBasic(nil)
		if err != nil {
			return "", err
		}
		key = forged
	}
	sig, err := key.Sign(transport.ReplyDigest(env.Nonce, body))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sig), nil
}

func (r *Replica) call(w http.ResponseWriter, req *http.Request) {
	canister, err := principal.FromText(req.PathValue("canister"))
	if err != nil {
		http.Error(w, "bad canister: "+err.Error(), http.StatusBadRequest)
		return
	}
	method := req.PathValue("method")
	if method != "put" {
		http.Error(w, "no such method: "+method, http.StatusNotFound)
		return
	}
	arg, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env, err := transport.EnvelopeFromHeader(req.Header)
	if err == nil {
		err = env.Verify(transport.Request{Canister: canister, Method: method, Arg: arg})
	}
	if err != nil {
		http.Error(w, "unauthenticated: "+err.Error(), http.StatusForbidden)
		return
	}

	put, err := decodePut(arg)
	if err != nil {
		http.Error(w, "bad argument: "+err.Error(), http.StatusBadRequest)
		return
	}
	put.Sender = env.Sender

	reply := idl.None()
	if !r.Refuse {
		r.mu.Lock()
		r.puts = append(r.puts, put)
		r.mu.Unlock()
		reply = idl.Opt(idl.Null())
	}
	body, err := idl.EncodeArgs([]*idl.Type{idl.OptOf(idl.Prim(idl.KindNull))}, []idl.Value{reply})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sig, err := r.sign(env, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", transport.ContentType)
	w.Header().Set(transport.HeaderReplySignature, sig)
	_, _ = w.Write(body)
}

func decodePut(arg []byte) (StoredPut, error) {
	_, vals, err := idl.DecodeArgs(arg)
	if err != nil {
		return StoredPut{}, err
	}
	if len(vals) != 3 || vals[0].Kind != idl.KindText || vals[1].Kind != idl.KindVec || vals[2].Kind != idl.KindVec {
		return StoredPut{}, fmt.Errorf("want (text, vec text, vec Value), got %d values", len(vals))
	}
	put := StoredPut{User: vals[0].Text}
	for _, seg := range vals[1].Elems {
		put.Path = append(put.Path, seg.Text)
	}
	for i, wv := range vals[2].Elems {
		v, err := value.FromWire(wv)
		if err != nil {
			return StoredPut{}, fmt.Errorf("value %d: %w", i, err)
		}
		put.Values = append(put.Values, v)
	}
	return put, nil
}

// PathString joins a put path the way the command line spells it.
func (p StoredPut) PathString() string { return strings.Join(p.Path, "/") }
