package testutil

import (
	"crypto/ed25519"
	"crypto/sha256"

	"github.com/roach88/counterslot/internal/ir"
)

// Key returns a deterministic ed25519 private key for an actor name.
// The same name always yields the same key, so scenario traces and golden
// files stay stable.
func Key(name string) ed25519.PrivateKey {
	seed := sha256.Sum256([]byte("counterslot/testutil/" + name))
	return ed25519.NewKeyFromSeed(seed[:])
}

// Identity returns the identity of Key(name).
func Identity(name string) ir.Identity {
	id, err := ir.IdentityFromPublicKey(Key(name).Public().(ed25519.PublicKey))
	if err != nil {
		panic(err)
	}
	return id
}
