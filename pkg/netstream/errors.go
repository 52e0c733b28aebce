package netstream

import "errors"

// Session errors.
var (
	// ErrSessionClosed is returned when sending or receiving on a session
	// that has been torn down.
	ErrSessionClosed = errors.New("netstream: session closed")

	// ErrIdleTimeout closes sessions that produced no inbound packet within
	// the configured client timeout.
	ErrIdleTimeout = errors.New("netstream: client idle timeout")

	// ErrHandshakeTimeout closes sessions whose security handshake exceeded
	// its deadline.
	ErrHandshakeTimeout = errors.New("netstream: handshake deadline exceeded")

	// ErrUnexpectedHandshakePacket is returned when the client deviates from
	// the handshake sequence.
	ErrUnexpectedHandshakePacket = errors.New("netstream: unexpected packet during handshake")

	// ErrNoHandler is returned when a server is constructed without a
	// session handler.
	ErrNoHandler = errors.New("netstream: no session handler provided")

	// ErrAlreadyStarted is returned when a server is started twice.
	ErrAlreadyStarted = errors.New("netstream: already started")

	// ErrServerClosed is returned when a stopped server is started again.
	ErrServerClosed = errors.New("netstream: server closed")
)
