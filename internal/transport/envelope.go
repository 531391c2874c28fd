package transport

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"time"

	"github.com/google/uuid"
	"github.com/vk/caniput/internal/identity"
	"github.com/vk/caniput/internal/principal"
)

const (
	// domainSeparator prefixes every request digest.
	domainSeparator = "\x0ccaniput-call"

	// replySeparator prefixes every reply digest.
	replySeparator = "\x0dcaniput-reply"
)

// Envelope is the authentication data sent alongside a request.
type Envelope struct {
	Sender    principal.Principal
	PublicKey []byte
	Nonce     uuid.UUID
	// Expiry is in Unix nanoseconds.
	Expiry    int64
	Signature []byte
}

// Seal signs req for id. The digest covers the canister, method, argument,
// sender, nonce and expiry.
func Seal(id identity.Identity, req Request, nonce uuid.UUID, expiry time.Time) (Envelope, error) {
	env := Envelope{
		Sender:    id.Sender(),
		PublicKey: id.PublicKey(),
		Nonce:     nonce,
		Expiry:    expiry.UnixNano(),
	}
	sig, err := id.Sign(Digest(req, env.Sender, env.Nonce, env.Expiry))
	if err != nil {
		return Envelope{}, err
	}
	env.Signature = sig
	return env, nil
}

// Verify checks the envelope's signature over req. Unsigned envelopes are
// accepted only from the anonymous sender.
func (e Envelope) Verify(req Request) error {
	if e.Sender.IsAnonymous() && len(e.Signature) == 0 {
		return nil
	}
	return identity.Verify(e.PublicKey, Digest(req, e.Sender, e.Nonce, e.Expiry), e.Signature)
}

// Digest is the SHA-256 request digest that gets signed.
func Digest(req Request, sender principal.Principal, nonce uuid.UUID, expiry int64) []byte {
	h := sha256.New()
	h.Write([]byte(domainSeparator))
	writeBlob(h, req.Canister.Bytes())
	writeBlob(h, []byte(req.Method))
	writeBlob(h, req.Arg)
	writeBlob(h, sender.Bytes())
	h.Write(nonce[:])
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(expiry))
	h.Write(b[:])
	return h.Sum(nil)
}

func writeBlob(h hash.Hash, b []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(b)))
	h.Write(n[:])
	h.Write(b)
}

// ReplyDigest is the SHA-256 digest a replica signs for the reply to the
// request carrying nonce.
func ReplyDigest(nonce uuid.UUID, body []byte) []byte {
	h := sha256.New()
	h.Write([]byte(replySeparator))
	h.Write(nonce[:])
	writeBlob(h, body)
	return h.Sum(nil)
}
