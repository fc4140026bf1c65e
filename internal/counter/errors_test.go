package counter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/counterslot/internal/ir"
)

func TestProgramError_IsMatchesCode(t *testing.T) {
	err := newError(ErrNotOwner, ir.Address{1}, ir.Identity{2}, nil)

	assert.True(t, errors.Is(err, ErrNotOwner))
	assert.False(t, errors.Is(err, ErrNotInitialized))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, errors.Is(wrapped, ErrNotOwner))
	assert.True(t, IsNotOwner(wrapped))
	assert.Equal(t, CodeNotOwner, Code(wrapped))
}

func TestProgramError_UnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrDerivationFailed, ir.Address{}, ir.Identity{}, cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsDerivationFailed(err))
}

func TestProgramError_Message(t *testing.T) {
	err := newError(ErrAlreadyInitialized, ir.Address{}, ir.Identity{}, nil)
	assert.Equal(t, "ALREADY_INITIALIZED: counter already initialized", err.Error())

	addr := ir.Address{9}
	err = newError(ErrNotInitialized, addr, ir.Identity{}, nil)
	assert.Equal(t, "NOT_INITIALIZED: counter not initialized (address="+addr.String()+")", err.Error())
}

func TestCode_NonProgramError(t *testing.T) {
	assert.Equal(t, ErrorCode(""), Code(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), Code(nil))
	assert.False(t, IsAlreadyInitialized(nil))
}
