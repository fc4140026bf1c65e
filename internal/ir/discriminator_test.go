package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Expected values are the published interface tags of the counter program.
func TestDiscriminators_MatchPublishedInterface(t *testing.T) {
	assert.Equal(t, Discriminator{255, 176, 4, 245, 188, 253, 124, 25}, AccountDiscriminator("Counter"))
	assert.Equal(t, Discriminator{67, 89, 100, 87, 231, 172, 35, 124}, InstructionDiscriminator("initializeCounter"))
	assert.Equal(t, Discriminator{171, 200, 174, 106, 229, 34, 80, 175}, InstructionDiscriminator("update_counter"))
	assert.Equal(t, Discriminator{101, 189, 94, 83, 118, 162, 97, 220}, EventDiscriminator("CustomEvent"))
}

func TestDiscriminator_String(t *testing.T) {
	assert.Equal(t, "[255, 176, 4, 245, 188, 253, 124, 25]", AccountDiscriminator("Counter").String())
}

func TestSnakeCase(t *testing.T) {
	assert.Equal(t, "initialize_counter", SnakeCase("initializeCounter"))
	assert.Equal(t, "update_counter", SnakeCase("update_counter"))
	assert.Equal(t, "counter", SnakeCase("Counter"))
}

func TestCounterAccount_EncodeDecode(t *testing.T) {
	data := EncodeCounterAccount(42)
	require.Len(t, data, CounterAccountSize)
	assert.Equal(t, AccountDiscriminator("Counter").Bytes(), data[:DiscriminatorSize])

	v, err := DecodeCounterAccount(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(42), v)
}

func TestCounterAccount_DecodeRejectsShortData(t *testing.T) {
	_, err := DecodeCounterAccount([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestCounterAccount_DecodeRejectsForeignDiscriminator(t *testing.T) {
	data := EncodeCounterAccount(1)
	data[0] ^= 0xff

	_, err := DecodeCounterAccount(data)
	assert.ErrorIs(t, err, ErrAccountDiscriminator)
}
