package counter

import (
	"errors"
	"fmt"

	"github.com/roach88/counterslot/internal/ir"
)

// ErrorCode categorizes program errors.
type ErrorCode string

const (
	// CodeAlreadyInitialized indicates the derived slot is already occupied.
	CodeAlreadyInitialized ErrorCode = "ALREADY_INITIALIZED"

	// CodeNotInitialized indicates no record exists at the slot.
	CodeNotInitialized ErrorCode = "NOT_INITIALIZED"

	// CodeNotOwner indicates the caller is not the stored owner.
	CodeNotOwner ErrorCode = "NOT_OWNER"

	// CodeDerivationFailed indicates no safe address could be derived.
	CodeDerivationFailed ErrorCode = "DERIVATION_FAILED"
)

// ProgramError is returned when an operation's precondition fails.
// The operation has been aborted and no state changed.
type ProgramError struct {
	// Code identifies which precondition failed.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the slot the operation targeted, when known.
	Address ir.Address

	// Owner is the caller identity.
	Owner ir.Identity

	// Err is the underlying cause, if any.
	Err error
}

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrAlreadyInitialized = &ProgramError{Code: CodeAlreadyInitialized, Message: "counter already initialized"}
	ErrNotInitialized     = &ProgramError{Code: CodeNotInitialized, Message: "counter not initialized"}
	ErrNotOwner           = &ProgramError{Code: CodeNotOwner, Message: "caller does not own this counter"}
	ErrDerivationFailed   = &ProgramError{Code: CodeDerivationFailed, Message: "address derivation failed"}
)

// Error implements the error interface.
func (e *ProgramError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if !e.Address.IsZero() {
		msg = fmt.Sprintf("%s (address=%s)", msg, e.Address)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ProgramError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a ProgramError with the same code.
func (e *ProgramError) Is(target error) bool {
	pe, ok := target.(*ProgramError)
	return ok && pe.Code == e.Code
}

// Code returns the ProgramError code carried by err, or "" if none.
func Code(err error) ErrorCode {
	var pe *ProgramError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsAlreadyInitialized returns true if err carries CodeAlreadyInitialized.
func IsAlreadyInitialized(err error) bool {
	return Code(err) == CodeAlreadyInitialized
}

// IsNotInitialized returns true if err carries CodeNotInitialized.
func IsNotInitialized(err error) bool {
	return Code(err) == CodeNotInitialized
}

// IsNotOwner returns true if err carries CodeNotOwner.
func IsNotOwner(err error) bool {
	return Code(err) == CodeNotOwner
}

// IsDerivationFailed returns true if err carries CodeDerivationFailed.
func IsDerivationFailed(err error) bool {
	return Code(err) == CodeDerivationFailed
}

func newError(sentinel *ProgramError, addr ir.Address, owner ir.Identity, cause error) *ProgramError {
	return &ProgramError{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		Address: addr,
		Owner:   owner,
		Err:     cause,
	}
}
