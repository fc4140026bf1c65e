package ir

import (
	"bytes"
	"errors"
	"fmt"
)

// CounterAccountName is the account type name hashed into the discriminator.
const CounterAccountName = "Counter"

// CounterAccountSize is the persisted size: discriminator plus the value byte.
const CounterAccountSize = DiscriminatorSize + 1

// ErrAccountDiscriminator is returned when stored bytes belong to another account type.
var ErrAccountDiscriminator = errors.New("account discriminator mismatch")

// counterDiscriminator is computed once; the name never changes.
var counterDiscriminator = AccountDiscriminator(CounterAccountName)

// EncodeCounterAccount lays out a counter value as account data.
func EncodeCounterAccount(value uint8) []byte {
	data := make([]byte, CounterAccountSize)
	copy(data, counterDiscriminator[:])
	data[DiscriminatorSize] = value
	return data
}

// DecodeCounterAccount reads a counter value from account data.
func DecodeCounterAccount(data []byte) (uint8, error) {
	if len(data) < CounterAccountSize {
		return 0, fmt.Errorf("account data too short: %d < %d", len(data), CounterAccountSize)
	}
	if !bytes.Equal(data[:DiscriminatorSize], counterDiscriminator[:]) {
		return 0, ErrAccountDiscriminator
	}
	return data[DiscriminatorSize], nil
}
