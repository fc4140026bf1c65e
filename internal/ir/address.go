package ir

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

// KeySize is the byte length of both identities and derived addresses.
const KeySize = 32

// Identity is a caller's public credential: an ed25519 public key.
type Identity [KeySize]byte

// Address is an opaque 32-byte storage location.
type Address [KeySize]byte

// IdentityFromPublicKey converts an ed25519 public key to an Identity.
func IdentityFromPublicKey(pub ed25519.PublicKey) (Identity, error) {
	var id Identity
	if len(pub) != ed25519.PublicKeySize {
		return id, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

// ParseIdentity decodes a base58 identity.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	if err := decodeKey(s, id[:]); err != nil {
		return id, fmt.Errorf("parse identity: %w", err)
	}
	return id, nil
}

// MustParseIdentity is like ParseIdentity but panics on error.
// Use only in tests or for constants known to be valid.
func MustParseIdentity(s string) Identity {
	id, err := ParseIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the base58 form.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// PublicKey returns the identity as an ed25519 verification key.
func (id Identity) PublicKey() ed25519.PublicKey {
	return ed25519.PublicKey(id[:])
}

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if err := decodeKey(s, addr[:]); err != nil {
		return addr, fmt.Errorf("parse address: %w", err)
	}
	return addr, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only in tests or for constants known to be valid.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func decodeKey(s string, dst []byte) error {
	if s == "" {
		return fmt.Errorf("empty key")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58: %w", err)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("key must be %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}
