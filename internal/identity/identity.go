// Package identity provides the signing identities a caller presents to
// the replica: a fresh Ed25519 key per process, or the anonymous identity.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	icid "github.com/aviate-labs/agent-go/identity"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/principal"
)

// Identity signs requests on behalf of a sender principal.
type Identity interface {
	// Sender is the principal the replica attributes calls to.
	Sender() principal.Principal
	// PublicKey is the DER-encoded public key, or nil when the identity
	// does not sign.
	PublicKey() []byte
	// Sign signs a request digest. Identities that do not sign return nil.
	Sign(digest []byte) ([]byte, error)
}

// Basic is an Ed25519 key pair held by an agent-go identity. Its sender is
// the self-authenticating principal of the public key.
type Basic struct {
	id     *icid.Ed25519Identity
	sender principal.Principal
}

// NewBasic generates a key pair from r. A nil r uses crypto/rand.
func NewBasic(r io.Reader) (*Basic, error) {
	if r == nil {
		r = rand.Reader
	}
	_, key, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, errs.Identity("generate key", err)
	}
	return fromKey(key)
}

// FromSeed derives the key pair from a 32-byte seed.
func FromSeed(seed []byte) (*Basic, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errs.Identity("load key", fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	return fromKey(ed25519.NewKeyFromSeed(seed))
}

func fromKey(key ed25519.PrivateKey) (*Basic, error) {
	pub, ok := key.Public().(ed25519.PublicKey)
	if !ok {
		return nil, errs.Identity("load key", errors.New("not an ed25519 key"))
	}
	id, err := icid.NewEd25519Identity(pub, key)
	if err != nil {
		return nil, errs.Identity("load key", err)
	}
	sender, err := principal.FromAgent(id.Sender())
	if err != nil {
		return nil, errs.Identity("derive sender", err)
	}
	return &Basic{id: id, sender: sender}, nil
}

func (b *Basic) Sender() principal.Principal { return b.sender }

// PublicKey is the DER-encoded SubjectPublicKeyInfo of the key.
func (b *Basic) PublicKey() []byte { return b.id.PublicKey() }

func (b *Basic) Sign(digest []byte) ([]byte, error) { return b.id.Sign(digest), nil }

// Anonymous is the unauthenticated identity.
type Anonymous struct{}

func (Anonymous) Sender() principal.Principal {
	p, _ := principal.FromAgent(icid.AnonymousIdentity{}.Sender())
	return p
}

func (Anonymous) PublicKey() []byte { return nil }

func (Anonymous) Sign([]byte) ([]byte, error) { return nil, nil }

// Verify checks a signature produced by an identity with the given
// DER-encoded public key.
func Verify(der, digest, sig []byte) error {
	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return errs.Identity("parse public key", err)
	}
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return errs.Identity("parse public key", fmt.Errorf("unsupported key type %T", pub))
	}
	if !ed25519.Verify(edPub, digest, sig) {
		return errs.Identity("verify", errors.New("signature mismatch"))
	}
	return nil
}
