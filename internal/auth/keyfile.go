package auth

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Key files hold the 64-byte ed25519 private key as a JSON array of numbers,
// the same layout wallet tooling writes.

// GenerateKey creates a new key pair from r (crypto/rand when nil).
func GenerateKey(r io.Reader) (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return priv, nil
}

// WriteKeyFile writes key to path with owner-only permissions.
func WriteKeyFile(path string, key ed25519.PrivateKey) error {
	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return fmt.Errorf("encode key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

// ReadKeyFile loads a key written by WriteKeyFile.
func ReadKeyFile(path string) (ed25519.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("parse key file %s: %w", path, err)
	}
	if len(ints) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key file %s: want %d bytes, got %d", path, ed25519.PrivateKeySize, len(ints))
	}

	key := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	for i, n := range ints {
		if n < 0 || n > 255 {
			return nil, fmt.Errorf("key file %s: byte %d out of range", path, i)
		}
		key[i] = byte(n)
	}

	// The public half must match the seed, otherwise signatures verify
	// against a different identity than the file claims.
	derived := ed25519.NewKeyFromSeed(key.Seed())
	if !derived.Equal(key) {
		return nil, fmt.Errorf("key file %s: public key does not match seed", path)
	}
	return key, nil
}
