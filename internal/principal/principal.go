// Package principal holds opaque identity references: the byte string naming
// a user, canister or service. The checksummed textual form (for example
// "aaaaa-aa" or "rrkah-fqaaa-aaaaa-aaaaq-cai") is agent-go's; this type
// wraps it so that principals stay comparable with ==.
package principal

import (
	"errors"
	"fmt"
	"strings"

	icp "github.com/aviate-labs/agent-go/principal"
)

// MaxLength is the longest raw principal accepted.
const MaxLength = 29

// minTextLength is the shortest textual form: the encoded 4-byte checksum.
const minTextLength = 7

// Principal is an immutable, comparable identity reference. The zero value is
// the management canister ("aaaaa-aa").
type Principal struct {
	raw string
}

// FromBytes wraps raw bytes. It fails only when b is longer than MaxLength.
func FromBytes(b []byte) (Principal, error) {
	if len(b) > MaxLength {
		return Principal{}, fmt.Errorf("principal too long: %d bytes", len(b))
	}
	return Principal{raw: string(b)}, nil
}

// FromAgent converts an agent-go principal.
func FromAgent(p icp.Principal) (Principal, error) { return FromBytes(p.Raw) }

// Anonymous returns the anonymous principal ("2vxsx-fae").
func Anonymous() Principal {
	return Principal{raw: string(icp.AnonymousID.Raw)}
}

// SelfAuthenticating derives the principal owned by a DER-encoded public key.
func SelfAuthenticating(derPublicKey []byte) Principal {
	return Principal{raw: string(icp.NewSelfAuthenticating(derPublicKey).Raw)}
}

// FromText parses the dashed, checksummed textual form. Only the canonical
// lower-case spelling is accepted.
func FromText(text string) (Principal, error) {
	if text == "" {
		return Principal{}, errors.New("empty principal text")
	}
	if len(strings.ReplaceAll(text, "-", "")) < minTextLength {
		return Principal{}, fmt.Errorf("invalid principal %q: too short", text)
	}
	decoded, err := icp.Decode(text)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid principal %q: %w", text, err)
	}
	p, err := FromAgent(decoded)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid principal %q: %w", text, err)
	}
	if p.String() != text {
		return Principal{}, fmt.Errorf("invalid principal %q: not in canonical form %q", text, p.String())
	}
	return p, nil
}

// MustFromText is FromText for literals known to be valid.
func MustFromText(text string) Principal {
	p, err := FromText(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Agent returns the agent-go form of p.
func (p Principal) Agent() icp.Principal { return icp.Principal{Raw: p.Bytes()} }

// Bytes returns a copy of the raw bytes.
func (p Principal) Bytes() []byte { return []byte(p.raw) }

// Len is the raw byte length.
func (p Principal) Len() int { return len(p.raw) }

func (p Principal) IsAnonymous() bool { return p == Anonymous() }

// String renders the textual form.
func (p Principal) String() string { return p.Agent().String() }

func (p Principal) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Principal) UnmarshalText(text []byte) error {
	parsed, err := FromText(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
