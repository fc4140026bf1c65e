package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "counterslot/event/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID for an event.
// The ID is stable across restarts and audits given the same inputs.
func EventID(kind EventKind, addr Address, owner Identity, value uint8, seq int64) (string, error) {
	obj := map[string]any{
		"address": addr.String(),
		"kind":    string(kind),
		"owner":   owner.String(),
		"seq":     seq,
		"value":   int64(value),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(kind EventKind, addr Address, owner Identity, value uint8, seq int64) string {
	id, err := EventID(kind, addr, owner, value, seq)
	if err != nil {
		panic(err)
	}
	return id
}

// NewEvent builds an event with its message and content-addressed ID filled in.
func NewEvent(kind EventKind, rec Record, seq int64) (Event, error) {
	id, err := EventID(kind, rec.Address, rec.Owner, rec.Value, seq)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:      id,
		Seq:     seq,
		Kind:    kind,
		Address: rec.Address,
		Owner:   rec.Owner,
		Value:   rec.Value,
		Message: MessageFor(kind),
	}, nil
}
