package security

import (
	"errors"
	"fmt"
)

// Security engine errors.
var (
	// ErrUninitialized is returned when an operation requires an established
	// handshake that has not happened yet.
	ErrUninitialized = errors.New("security: not initialized")

	// ErrAlreadyInitialized is returned when a handshake is started twice on
	// the same session. The session must be reset before restarting.
	ErrAlreadyInitialized = errors.New("security: already initialized")

	// ErrHandshakeUnfinished is returned when finalization is attempted before
	// the key exchange has completed.
	ErrHandshakeUnfinished = errors.New("security: handshake not completed")
)

// InvalidBlockLengthError is returned when encrypt/decrypt input is not a
// multiple of the cipher block size.
type InvalidBlockLengthError struct {
	Length int
}

func (e *InvalidBlockLengthError) Error() string {
	return fmt.Sprintf("security: %d is an invalid block length", e.Length)
}

// KeyExchangeMismatchError is returned when the key material the client sent
// does not match our own computation. The handshake cannot continue and the
// connection must be torn down.
type KeyExchangeMismatchError struct {
	Received   uint64
	Calculated uint64
}

func (e *KeyExchangeMismatchError) Error() string {
	return fmt.Sprintf("security: calculated key %#x but received %#x", e.Calculated, e.Received)
}
